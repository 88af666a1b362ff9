// Package crm maps the plugin-facing domain operations onto the upstream
// CRM API: person lookup, contact/lead creation, email logging, follow-up
// task creation, opportunity listing, and activity timeline aggregation.
package crm

import (
	"context"
	"net/url"
	"time"

	"github.com/inboxcrm/connector/crm/dedup"
	"github.com/inboxcrm/connector/profiles"
	"github.com/inboxcrm/connector/upstream"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Upstream module names. The fixed set this adapter touches.
const (
	ModuleContacts      = "Contacts"
	ModuleLeads         = "Leads"
	ModuleAccounts      = "Accounts"
	ModuleEmails        = "Emails"
	ModuleTasks         = "Tasks"
	ModuleNotes         = "Notes"
	ModuleCalls         = "Calls"
	ModuleMeetings      = "Meetings"
	ModuleOpportunities = "Opportunities"
	ModuleDocuments     = "Documents"
)

// UpstreamClient is the slice of the upstream package the adapter uses.
// Satisfied by *upstream.Client.
type UpstreamClient interface {
	List(ctx context.Context, module string, query url.Values) (*upstream.ListResult, error)
	ListWithShapes(ctx context.Context, module string, common url.Values, shapes []url.Values) (*upstream.ListResult, error)
	Get(ctx context.Context, module, id string) (upstream.Record, error)
	Exists(ctx context.Context, module, id string) (bool, error)
	Create(ctx context.Context, module string, attributes map[string]any) (upstream.Record, error)
	Relationships(ctx context.Context, module, id, relation string, query url.Values) (*upstream.ListResult, error)
}

// Adapter executes business operations for one profile.
type Adapter struct {
	profile  *profiles.Profile
	upstream UpstreamClient
	dedup    *dedup.Store
	logger   zerolog.Logger
	nowTime  func() time.Time
}

// AdapterOption modifies an Adapter.
type AdapterOption func(*Adapter)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.nowTime = nowFunc
	}
}

// NewAdapter builds an Adapter for one profile.
func NewAdapter(profile *profiles.Profile, client UpstreamClient, dedupStore *dedup.Store, logger zerolog.Logger, options ...AdapterOption) (*Adapter, error) {
	if profile == nil {
		return nil, errors.New("[NewAdapter] profile is required")
	}
	if client == nil {
		return nil, errors.New("[NewAdapter] upstream client is required")
	}
	if dedupStore == nil {
		return nil, errors.New("[NewAdapter] dedup store is required")
	}
	a := &Adapter{
		profile:  profile,
		upstream: client,
		dedup:    dedupStore,
		logger:   logger.With().Str("component", "crm").Str("profile", profile.ID).Logger(),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// EmailMessage is the plugin's view of the email being logged or turned into
// a task.
type EmailMessage struct {
	GraphMessageID    string
	InternetMessageID string
	ConversationID    string
	Subject           string
	BodyText          string
	Preview           string
	FromEmail         string
	FromName          string
	ReceivedAt        string
	WebLink           string
	Attachments       []Attachment
}

// Attachment is one email attachment as supplied by the plugin.
type Attachment struct {
	Name          string
	MimeType      string
	Size          int64
	ContentBase64 string
	IsInline      bool
}
