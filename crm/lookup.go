package crm

import (
	"context"
	"strings"

	"github.com/inboxcrm/connector/upstream"
)

// emailField is the attribute the fixed person modules index email under.
const emailField = "emailAddress"

// LookupInclude selects the optional expansions of a lookup.
type LookupInclude struct {
	Account  bool
	Timeline bool
}

// PersonMatch is a matched Contact or Lead.
type PersonMatch struct {
	Module      string `json:"module"`
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Title       string `json:"title,omitempty"`
	AccountID   string `json:"accountId,omitempty"`
	AccountName string `json:"accountName,omitempty"`
	Link        string `json:"link,omitempty"`
}

// LookupResult is the outcome of LookupByEmail. A miss is a tagged empty
// result, not an error.
type LookupResult struct {
	NotFound bool            `json:"notFound"`
	Match    *PersonMatch    `json:"match"`
	Timeline []TimelineEntry `json:"timeline,omitempty"`
}

// LookupByEmail finds the Contact, or failing that the Lead, registered
// under the email address. First match wins.
func (a *Adapter) LookupByEmail(ctx context.Context, email string, include LookupInclude) (*LookupResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, ErrInvalidInput
	}

	match, err := a.findPersonByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return &LookupResult{NotFound: true}, nil
	}

	if include.Account && match.Module == ModuleContacts && match.AccountID != "" && match.AccountName == "" {
		// Host deployments differ on whether list rows embed the account
		// name; resolve it from the account record when absent.
		if account, err := a.upstream.Get(ctx, ModuleAccounts, match.AccountID); err == nil {
			match.AccountName = account.String("name")
		}
	}

	result := &LookupResult{Match: match}
	if include.Timeline {
		timeline, err := a.buildTimeline(ctx, match)
		if err != nil {
			return nil, err
		}
		result.Timeline = timeline
	}
	return result, nil
}

// findPersonByEmail queries Contacts then Leads with the flavor's filter
// shapes.
func (a *Adapter) findPersonByEmail(ctx context.Context, email string) (*PersonMatch, error) {
	for _, module := range []string{ModuleContacts, ModuleLeads} {
		shapes := upstream.EqualityShapes(a.profile.APIFlavor, upstream.Filter{Field: emailField, Value: email})
		result, err := a.upstream.ListWithShapes(ctx, module, nil, shapes)
		if err != nil {
			return nil, err
		}
		if len(result.Records) > 0 {
			return a.mapPerson(module, result.Records[0], email), nil
		}
	}
	return nil, nil
}

// mapPerson builds a PersonMatch from a raw record. Display name falls back
// from first+last, to a raw name field, to the query email; phone takes the
// first non-empty of work, mobile, home.
func (a *Adapter) mapPerson(module string, record upstream.Record, queryEmail string) *PersonMatch {
	name := strings.TrimSpace(record.String("firstName") + " " + record.String("lastName"))
	if name == "" {
		name = record.String("name")
	}
	if name == "" {
		name = queryEmail
	}
	email := record.String(emailField)
	if email == "" {
		email = queryEmail
	}
	return &PersonMatch{
		Module:      module,
		ID:          record.ID(),
		DisplayName: name,
		Email:       email,
		Phone:       record.FirstString("phoneWork", "phoneMobile", "phoneHome", "phoneNumber"),
		Title:       record.String("title"),
		AccountID:   record.String("accountId"),
		AccountName: record.String("accountName"),
		Link:        a.deepLink(module, record.ID()),
	}
}
