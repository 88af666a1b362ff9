package upstream

import (
	"strconv"
	"strings"
)

// Record is one upstream CRM record. Attribute names and presence vary by
// deployment, so access goes through tolerant getters.
type Record map[string]any

// ID returns the record id, empty when absent.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the attribute as a trimmed string, empty when absent or of
// an unusable type.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// FirstString returns the first non-empty attribute among keys.
func (r Record) FirstString(keys ...string) string {
	for _, key := range keys {
		if v := r.String(key); v != "" {
			return v
		}
	}
	return ""
}

// ListResult is one page of a module listing.
type ListResult struct {
	Records []Record
	Total   int
}
