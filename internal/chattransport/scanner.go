package chattransport

import "regexp"

// secretScanner redacts well-known credential shapes from outbound
// text before it reaches the chat transport, adapted from the
// teacher's pkg/chat PatternScanner — same regex-based approach, same
// "redact, don't block" failure mode, narrowed to this system's own
// credential surface (agent API keys, repository-host tokens).
type secretScanner struct {
	patterns []*regexp.Regexp
}

const redactedPlaceholder = "[redacted]"

func newSecretScanner() *secretScanner {
	raw := []string{
		`sk-ant-[A-Za-z0-9_-]{90,}`,
		`sk-[A-Za-z0-9]{48}`,
		`sk-proj-[A-Za-z0-9_-]{48,}`,
		`AKIA[0-9A-Z]{16}`,
		`ghp_[A-Za-z0-9]{36}`,
		`gho_[A-Za-z0-9]{36}`,
		`ghu_[A-Za-z0-9]{36}`,
		`ghs_[A-Za-z0-9]{36}`,
		`ghr_[A-Za-z0-9]{36}`,
		`Bearer\s+[A-Za-z0-9_-]{20,}`,
		`-----BEGIN\s+(?:RSA|DSA|EC|OPENSSH|PGP)\s+PRIVATE\s+KEY-----`,
	}
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		patterns = append(patterns, regexp.MustCompile(p))
	}
	return &secretScanner{patterns: patterns}
}

// redact returns text with any recognized secret replaced by a
// placeholder. Scanning never fails outright (no third-party timeout
// machinery is needed for a few MustCompile'd patterns) — it degrades
// to "no redaction" only if called with a nil scanner.
func (s *secretScanner) redact(text string) string {
	if s == nil {
		return text
	}
	for _, p := range s.patterns {
		text = p.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
