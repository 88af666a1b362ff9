package upstream

import (
	"net/url"
	"strconv"

	"github.com/inboxcrm/connector/profiles"
)

// Filter is one equality condition on a module listing.
type Filter struct {
	Field string
	Value string
}

// whereShape encodes filters in the indexed where[] dialect.
func whereShape(filters []Filter) url.Values {
	query := url.Values{}
	for i, f := range filters {
		prefix := "where[" + strconv.Itoa(i) + "]"
		query.Set(prefix+"[type]", "equals")
		query.Set(prefix+"[attribute]", f.Field)
		query.Set(prefix+"[value]", f.Value)
	}
	return query
}

// filterShape encodes filters in the filter[field]=value dialect.
func filterShape(filters []Filter) url.Values {
	query := url.Values{}
	for _, f := range filters {
		query.Set("filter["+f.Field+"]", f.Value)
	}
	return query
}

// paramShape encodes filters as plain field=value parameters. The loosest
// dialect, kept last so stricter dialects win when supported.
func paramShape(filters []Filter) url.Values {
	query := url.Values{}
	for _, f := range filters {
		query.Set(f.Field, f.Value)
	}
	return query
}

// EqualityShapes returns the ordered list of equivalent filter encodings for
// the given deployment flavor. Deployments sometimes lie about their
// dialect, so every shape stays in the list; the flavor only sets the
// preferred order.
func EqualityShapes(flavor profiles.APIFlavor, filters ...Filter) []url.Values {
	where := whereShape(filters)
	filter := filterShape(filters)
	param := paramShape(filters)
	if flavor == profiles.FlavorLegacy {
		return []url.Values{filter, where, param}
	}
	return []url.Values{where, filter, param}
}
