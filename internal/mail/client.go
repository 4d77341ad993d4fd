package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Header is a single message header as exposed to the pipeline.
type Header struct {
	Name  string
	Value string
}

// Body holds a part's payload as URL-safe base64 text.
type Body struct {
	Data string
}

// Part is one node of a message's MIME tree.
type Part struct {
	MimeType string
	Headers  []Header
	Body     Body
	Parts    []*Part
}

// Message is a fully fetched message: a payload tree plus a short snippet.
type Message struct {
	ID      string
	Snippet string
	Payload *Part
}

// MessageMeta is the lightweight result of a search: enough to decide
// whether a message is worth fetching.
type MessageMeta struct {
	ID      string
	Snippet string
	Headers []Header
}

func (m MessageMeta) Header(name string) string {
	return headerValue(m.Headers, name)
}

func (m *Message) Header(name string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	return headerValue(m.Payload.Headers, name)
}

func headerValue(hs []Header, name string) string {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Query is a provider search request built from one EmailSource and the
// scan watermark. The After bound is day-granular: provider search is
// date-only, so sub-day exactness relies on processed-id/job-id dedup.
type Query struct {
	FromExact  string
	FromAny    []string
	SubjectAny []string
	After      time.Time
}

// IsEmpty reports whether the query has no resolvable sender or subject
// term; such queries must be skipped, not executed.
func (q Query) IsEmpty() bool {
	return q.FromExact == "" && len(q.FromAny) == 0 && len(q.SubjectAny) == 0
}

// String renders the query Gmail-style, mainly for logs.
func (q Query) String() string {
	var parts []string
	switch {
	case q.FromExact != "":
		parts = append(parts, "from:"+q.FromExact)
	case len(q.FromAny) > 0:
		parts = append(parts, "from:("+strings.Join(q.FromAny, " OR ")+")")
	}
	if len(q.SubjectAny) > 0 {
		quoted := make([]string, len(q.SubjectAny))
		for i, s := range q.SubjectAny {
			quoted[i] = `"` + s + `"`
		}
		parts = append(parts, "subject:("+strings.Join(quoted, " OR ")+")")
	}
	if !q.After.IsZero() {
		parts = append(parts, "after:"+q.After.Format("2006/01/02"))
	}
	return strings.Join(parts, " ")
}

// Client is the mail-provider boundary: search for candidate messages,
// then fetch individual messages by id.
type Client interface {
	Search(ctx context.Context, q Query, maxResults int) ([]MessageMeta, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
}

// maxPartDepth bounds the payload traversal against cyclic or pathological
// nesting; real messages never get near it.
const maxPartDepth = 32

// HTMLBody extracts the HTML body of a message: a direct payload body is
// preferred, else the first text/html part found in document order.
func HTMLBody(m *Message) (string, error) {
	if m == nil || m.Payload == nil {
		return "", errors.New("message has no payload")
	}
	if isHTMLPart(m.Payload) && m.Payload.Body.Data != "" {
		b, err := decodeBody(m.Payload.Body.Data)
		if err != nil {
			return "", fmt.Errorf("decode body: %w", err)
		}
		return string(b), nil
	}
	part := findHTMLPart(m.Payload, 0)
	if part == nil {
		return "", errors.New("no text/html part found")
	}
	b, err := decodeBody(part.Body.Data)
	if err != nil {
		return "", fmt.Errorf("decode html part: %w", err)
	}
	return string(b), nil
}

func isHTMLPart(p *Part) bool {
	return strings.HasPrefix(strings.ToLower(p.MimeType), "text/html")
}

func findHTMLPart(p *Part, depth int) *Part {
	if p == nil || depth > maxPartDepth {
		return nil
	}
	if isHTMLPart(p) && p.Body.Data != "" {
		return p
	}
	for _, c := range p.Parts {
		if found := findHTMLPart(c, depth+1); found != nil {
			return found
		}
	}
	return nil
}

// EncodeBody wraps raw bytes in the URL-safe base64 transport shape.
func EncodeBody(b []byte) Body {
	return Body{Data: base64.URLEncoding.EncodeToString(b)}
}

func decodeBody(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
