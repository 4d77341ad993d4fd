package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

const maxPartBytes = 6 << 20

// IMAPClient implements Client on a single IMAP mailbox over TLS.
// Fetches use BODY.PEEK[] so scanned messages are never marked \Seen.
type IMAPClient struct {
	c       *imapclient.Client
	mailbox string
}

// Dial connects over TLS, logs in and selects the mailbox (INBOX when
// empty). Port defaults to 993.
func Dial(ctx context.Context, host string, port int, username, password, mailbox string) (*IMAPClient, error) {
	if host == "" {
		return nil, errors.New("imap host is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}
	if port <= 0 {
		port = 993
	}
	if mailbox == "" {
		mailbox = "INBOX"
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Best-effort close on context cancel.
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(username, password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap select %s: %w", mailbox, err)
	}

	return &IMAPClient{c: c, mailbox: mailbox}, nil
}

// Close logs out then drops the connection.
func (ic *IMAPClient) Close() {
	if ic == nil || ic.c == nil {
		return
	}
	if err := ic.c.Logout().Wait(); err != nil {
		log.Printf("[imap] logout: %v", err)
	}
	_ = ic.c.Close()
}

// Search runs a UID search for the query and fetches envelopes only;
// results come back newest first, capped at maxResults.
func (ic *IMAPClient) Search(ctx context.Context, q Query, maxResults int) ([]MessageMeta, error) {
	if ic == nil || ic.c == nil {
		return nil, errors.New("imap client is nil")
	}
	if q.IsEmpty() {
		return nil, errors.New("refusing to run an unscoped search")
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	criteria := buildSearchCriteria(q)

	searchData, err := ic.c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return []MessageMeta{}, nil
	}

	// Newest first.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > maxResults {
		uids = uids[:maxResults]
	}

	fetchCmd := ic.c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]MessageMeta, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		meta := MessageMeta{ID: strconv.FormatUint(uint64(buf.UID), 10)}
		if buf.Envelope != nil {
			meta.Headers = append(meta.Headers,
				Header{Name: "From", Value: joinAddrs(buf.Envelope.From)},
				Header{Name: "Subject", Value: buf.Envelope.Subject},
			)
			if !buf.Envelope.Date.IsZero() {
				meta.Headers = append(meta.Headers,
					Header{Name: "Date", Value: buf.Envelope.Date.Format(time.RFC1123Z)})
			}
		}
		out = append(out, meta)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

// GetMessage fetches the full RFC822 message for a UID and parses it
// into the payload tree.
func (ic *IMAPClient) GetMessage(ctx context.Context, id string) (*Message, error) {
	if ic == nil || ic.c == nil {
		return nil, errors.New("imap client is nil")
	}
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad message id %q: %w", id, err)
	}
	uid := imap.UID(n)

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := ic.c.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	var raw []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			raw = append([]byte(nil), b...)
		}
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("message %s: empty fetch result", id)
	}

	return ParseRFC822(id, raw)
}

// ParseRFC822 turns raw message bytes into the Message shape used by the
// rest of the pipeline.
func ParseRFC822(id string, raw []byte) (*Message, error) {
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse rfc822: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(msg.Body, 25<<20))
	if err != nil {
		return nil, fmt.Errorf("read rfc822 body: %w", err)
	}

	payload := buildPart(msg.Header, body, 0)
	for _, name := range []string{"From", "To", "Subject", "Date", "Message-Id"} {
		if v := msg.Header.Get(name); v != "" {
			if name == "Subject" || name == "From" {
				v = decodeRFC2047(v)
			}
			payload.Headers = append(payload.Headers, Header{Name: name, Value: v})
		}
	}

	return &Message{
		ID:      id,
		Snippet: snippetFrom(payload),
		Payload: payload,
	}, nil
}

// buildPart recursively maps a MIME entity onto the Part tree. Transfer
// encodings are undone here so Body.Data always carries decoded content.
func buildPart(h netmail.Header, body []byte, depth int) *Part {
	ct := h.Get("Content-Type")
	cte := strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))

	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}
	mediaType = strings.ToLower(mediaType)

	part := &Part{MimeType: mediaType}
	if ct != "" {
		part.Headers = append(part.Headers, Header{Name: "Content-Type", Value: ct})
	}

	if strings.HasPrefix(mediaType, "multipart/") && depth < maxPartDepth {
		boundary := params["boundary"]
		if boundary != "" {
			mr := multipart.NewReader(bytes.NewReader(body), boundary)
			for {
				p, err := mr.NextPart()
				if err != nil {
					break
				}
				b, _ := io.ReadAll(io.LimitReader(p, maxPartBytes))
				part.Parts = append(part.Parts, buildPart(netmail.Header(p.Header), b, depth+1))
			}
			return part
		}
	}

	part.Body = EncodeBody(decodeTransferEncoding(body, cte))
	return part
}

func decodeTransferEncoding(b []byte, cte string) []byte {
	switch cte {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, maxPartBytes))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, maxPartBytes))
		return out
	default:
		return b
	}
}

func decodeRFC2047(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

// snippetFrom produces a short plain-text preview from the first
// text/plain part, used by follow-up classification.
func snippetFrom(p *Part) string {
	leaf := findPartByPrefix(p, "text/plain", 0)
	if leaf == nil {
		return ""
	}
	b, err := decodeBody(leaf.Body.Data)
	if err != nil {
		return ""
	}
	s := strings.Join(strings.Fields(string(b)), " ")
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func findPartByPrefix(p *Part, prefix string, depth int) *Part {
	if p == nil || depth > maxPartDepth {
		return nil
	}
	if strings.HasPrefix(p.MimeType, prefix) && p.Body.Data != "" {
		return p
	}
	for _, c := range p.Parts {
		if found := findPartByPrefix(c, prefix, depth+1); found != nil {
			return found
		}
	}
	return nil
}

func joinAddrs(addrs []imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}

// buildSearchCriteria maps a Query onto IMAP SEARCH. OR groups are
// folded into nested OR pairs; a multi-term group is ANDed with the
// rest by appending its outermost pair to the top-level criteria.
func buildSearchCriteria(q Query) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{}
	if !q.After.IsZero() {
		criteria.Since = q.After
	}

	if q.FromExact != "" {
		criteria.Header = append(criteria.Header,
			imap.SearchCriteriaHeaderField{Key: "From", Value: q.FromExact})
	} else {
		andGroup(criteria, headerGroup("From", q.FromAny))
	}
	andGroup(criteria, headerGroup("Subject", q.SubjectAny))

	return criteria
}

func headerGroup(key string, values []string) []imap.SearchCriteria {
	out := make([]imap.SearchCriteria, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, imap.SearchCriteria{
			Header: []imap.SearchCriteriaHeaderField{{Key: key, Value: v}},
		})
	}
	return out
}

func andGroup(dst *imap.SearchCriteria, group []imap.SearchCriteria) {
	switch len(group) {
	case 0:
	case 1:
		dst.Header = append(dst.Header, group[0].Header...)
	default:
		dst.Or = append(dst.Or, [2]imap.SearchCriteria{group[0], orFold(group[1:])})
	}
}

func orFold(group []imap.SearchCriteria) imap.SearchCriteria {
	if len(group) == 1 {
		return group[0]
	}
	return imap.SearchCriteria{
		Or: [][2]imap.SearchCriteria{{group[0], orFold(group[1:])}},
	}
}
