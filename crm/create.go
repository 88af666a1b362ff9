package crm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// PersonInput is the caller-supplied data for contact/lead creation.
type PersonInput struct {
	FirstName    string
	LastName     string
	Email        string
	Title        string
	Phone        string
	Account      string // account or company name
	Source       string
	CustomFields map[string]any
}

// CreateContact inserts a Contact. No dedup is attempted; duplicates are
// the caller's responsibility.
func (a *Adapter) CreateContact(ctx context.Context, in PersonInput) (*PersonMatch, error) {
	return a.createPerson(ctx, ModuleContacts, in)
}

// CreateLead inserts a Lead. Same contract as CreateContact.
func (a *Adapter) CreateLead(ctx context.Context, in PersonInput) (*PersonMatch, error) {
	return a.createPerson(ctx, ModuleLeads, in)
}

func (a *Adapter) createPerson(ctx context.Context, module string, in PersonInput) (*PersonMatch, error) {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" || strings.TrimSpace(in.Email) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "first name, last name and email are required")
	}

	attributes := map[string]any{
		"firstName": strings.TrimSpace(in.FirstName),
		"lastName":  strings.TrimSpace(in.LastName),
		emailField:  strings.TrimSpace(strings.ToLower(in.Email)),
	}
	setIfPresent(attributes, "title", in.Title)
	setIfPresent(attributes, "phoneNumber", in.Phone)
	setIfPresent(attributes, "accountName", in.Account)
	setIfPresent(attributes, "source", in.Source)

	for key, value := range in.CustomFields {
		if !isScalar(value) {
			return nil, errors.Wrapf(ErrInvalidInput, "custom field %q is not a scalar", key)
		}
		attributes[key] = value
	}

	record, err := a.upstream.Create(ctx, module, attributes)
	if err != nil {
		return nil, err
	}
	a.logger.Info().Str("module", module).Str("id", record.ID()).Msg("person record created")
	return a.mapPerson(module, record, attributes[emailField].(string)), nil
}

func setIfPresent(attributes map[string]any, key, value string) {
	if strings.TrimSpace(value) != "" {
		attributes[key] = strings.TrimSpace(value)
	}
}

// isScalar accepts the JSON scalar types plus nil. Nested maps and arrays
// are rejected rather than silently flattened.
func isScalar(value any) bool {
	switch value.(type) {
	case nil, string, bool, float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}
