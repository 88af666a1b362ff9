package crm

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

const maxOpportunities = 20

// Opportunity is one mapped relationship row. Optional fields stay empty
// when the deployment omits them.
type Opportunity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Stage     string `json:"stage,omitempty"`
	Amount    string `json:"amount,omitempty"`
	CloseDate string `json:"closeDate,omitempty"`
	Link      string `json:"link,omitempty"`
}

// OpportunitiesResult is the relationship page plus a portal link to the
// full list for the resolved scope.
type OpportunitiesResult struct {
	Items       []Opportunity `json:"items"`
	ViewAllLink string        `json:"viewAllLink,omitempty"`
}

// ListOpportunities lists the newest-modified opportunities related to a
// person or account. An explicit account id wins; a Contact resolves to its
// account when it has one, else to a contact-scoped relationship query; a
// Lead always uses the lead scope.
func (a *Adapter) ListOpportunities(ctx context.Context, personModule, personID, accountID string, limit int) (*OpportunitiesResult, error) {
	if limit <= 0 || limit > maxOpportunities {
		limit = maxOpportunities
	}

	scopeModule, scopeID, err := a.resolveOpportunityScope(ctx, personModule, personID, accountID)
	if err != nil {
		return nil, err
	}
	if scopeID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "no account or person to scope opportunities by")
	}

	query := url.Values{}
	query.Set("maxSize", strconv.Itoa(limit))
	query.Set("orderBy", "modifiedAt")
	query.Set("order", "desc")

	page, err := a.upstream.Relationships(ctx, scopeModule, scopeID, "opportunities", query)
	if err != nil {
		return nil, err
	}

	items := make([]Opportunity, 0, len(page.Records))
	for _, record := range page.Records {
		items = append(items, Opportunity{
			ID:        record.ID(),
			Name:      record.String("name"),
			Stage:     record.String("stage"),
			Amount:    record.String("amount"),
			CloseDate: record.String("closeDate"),
			Link:      a.deepLink(ModuleOpportunities, record.ID()),
		})
	}
	return &OpportunitiesResult{
		Items:       items,
		ViewAllLink: a.listLink(scopeModule, scopeID, "opportunities"),
	}, nil
}

func (a *Adapter) resolveOpportunityScope(ctx context.Context, personModule, personID, accountID string) (string, string, error) {
	if accountID != "" {
		return ModuleAccounts, accountID, nil
	}
	switch personModule {
	case ModuleContacts:
		if personID == "" {
			return "", "", nil
		}
		contact, err := a.upstream.Get(ctx, ModuleContacts, personID)
		if err != nil {
			return "", "", err
		}
		if linkedAccount := contact.String("accountId"); linkedAccount != "" {
			return ModuleAccounts, linkedAccount, nil
		}
		return ModuleContacts, personID, nil
	case ModuleLeads:
		return ModuleLeads, personID, nil
	default:
		return "", "", nil
	}
}
