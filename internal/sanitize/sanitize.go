// Package sanitize redacts secret-shaped substrings from free text before
// it is persisted or served.
package sanitize

import "regexp"

var (
	bearerRe = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_.]+`)
	kvRe     = regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\s*[=:]\s*["']?[A-Za-z0-9\-_.]{20,}["']?`)
	jwtRe    = regexp.MustCompile(`eyJ[A-Za-z0-9\-_]{50,}\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`)
)

// Clean strips bearer tokens, key/value secrets, and JWT-shaped triplets.
// Matching is best effort: text without these patterns passes through
// unchanged, and cleaning is idempotent.
func Clean(text string) string {
	text = bearerRe.ReplaceAllString(text, "Bearer [REDACTED]")
	text = kvRe.ReplaceAllString(text, "${1}=[REDACTED]")
	text = jwtRe.ReplaceAllString(text, "[JWT_REDACTED]")
	return text
}
