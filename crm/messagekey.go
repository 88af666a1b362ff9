package crm

import (
	"strings"
	"unicode/utf8"
)

// messageKeyMaxLen caps normalized keys so they fit upstream varchar columns.
const messageKeyMaxLen = 190

// NormalizeInternetMessageID folds an RFC 5322 Message-ID into the dedup
// key form: lower-cased, all whitespace stripped, angle brackets stripped,
// length-capped. Idempotent: normalizing a normalized key returns it
// unchanged.
func NormalizeInternetMessageID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch r {
		case '<', '>', ' ', '\t', '\r', '\n':
			continue
		}
		b.WriteRune(r)
	}
	key := b.String()
	if len(key) > messageKeyMaxLen {
		key = key[:messageKeyMaxLen]
		// The byte cap may land mid-rune; back off to a boundary so the
		// result stays valid UTF-8 and re-normalizes to itself.
		for len(key) > 0 && !utf8.ValidString(key) {
			key = key[:len(key)-1]
		}
	}
	return key
}
