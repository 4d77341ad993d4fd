package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims list values, applies defaults and checks the
// config for contradictions. Warnings never block startup.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Feeds.URLs = trimList(out.Feeds.URLs)

	if !out.Email.Enabled && !out.Feeds.Enabled {
		res.addWarn("email and feeds are both disabled; a scan will only report prior state.")
	}

	if out.Scan.LookbackDays < 0 {
		res.addErr("scan.lookback_days must be >= 0")
	}
	if out.Scan.MaxResults < 0 {
		res.addErr("scan.max_results must be >= 0")
	}

	if out.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
		if out.Email.IMAPPort == 0 {
			out.Email.IMAPPort = 993
		}
		if strings.TrimSpace(out.Email.Mailbox) == "" {
			out.Email.Mailbox = "INBOX"
		}
		if strings.TrimSpace(out.Email.KeyringAccount) == "" {
			out.Email.KeyringAccount = out.Email.Username
		}
	}

	if out.AI.Enabled {
		switch out.AI.Provider {
		case "gemini", "openai":
		case "":
			res.addErr("ai.provider is required when ai.enabled=true")
		default:
			res.addErr("ai.provider must be gemini or openai, got %q", out.AI.Provider)
		}
		if strings.TrimSpace(out.AI.APIKeyEnv) == "" {
			res.addWarn("ai.api_key_env is empty; provider calls will fail without a key.")
		}
	}

	return out, res
}
