package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// Patterns scrubbed from queries, headers and gin errors. UUIDs go before
// phone numbers, whose pattern would otherwise eat UUID digit groups.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex runs are left alone.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

const userIDHeaderKey = "x-user-id"

// RedactOptions configures RedactingLogger. MaskHeaders adds header names,
// matched case-insensitively, to Authorization, Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger is Logger for deployments that must keep personal data out
// of logs. It never logs bodies or client details. Emails, phone numbers and
// UUIDs are scrubbed from the query, gin errors and header values; masked
// headers become "[REDACTED]". The user id, in the user_id field and in the
// X-User-ID header, is replaced by Pseudonym so one listener's requests still
// line up.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}
	return accessLog{
		user:  Pseudonym,
		scrub: scrubPII,
		headers: func(h http.Header) map[string]string {
			return scrubHeaders(h, mask)
		},
	}.handler()
}

// Pseudonym maps a user id to a stable "u-" plus 8 hex chars digest. It hides
// the raw id from casual reading only.
func Pseudonym(id string) string {
	sum := sha256.Sum256([]byte(id))
	return "u-" + hex.EncodeToString(sum[:4])
}

func scrubPII(s string) string {
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func scrubHeaders(h http.Header, mask map[string]struct{}) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		key := strings.ToLower(k)
		switch _, masked := mask[key]; {
		case masked:
			out[k] = "[REDACTED]"
		case key == userIDHeaderKey:
			out[k] = Pseudonym(strings.TrimSpace(strings.Join(vv, ",")))
		default:
			out[k] = scrubPII(strings.Join(vv, ", "))
		}
	}
	return out
}
