package crm

import (
	"context"

	"github.com/inboxcrm/connector/crm/dedup"
	"github.com/inboxcrm/connector/upstream"
	"github.com/pkg/errors"
)

// messageKeyField is the Emails attribute holding the normalized internet
// message id, and profileField the connector's profile tag where the schema
// carries one.
const (
	messageKeyField = "messageId"
	profileField    = "cSidecarProfile"
)

// LogEmailOptions selects the optional parts of an email log.
type LogEmailOptions struct {
	LinkModule         string
	LinkID             string
	IncludeBody        bool
	MaxAttachmentBytes int64
}

// LoggedEmail is the created (or pre-existing) activity record.
type LoggedEmail struct {
	Record dedup.RecordRef `json:"record"`
}

// LogEmail archives the message as an activity record, refusing to create a
// second record for the same normalized message key.
func (a *Adapter) LogEmail(ctx context.Context, msg EmailMessage, opts LogEmailOptions) (*LoggedEmail, error) {
	key := NormalizeInternetMessageID(msg.InternetMessageID)
	if key == "" {
		return nil, errors.Wrap(ErrInvalidInput, "internet message id is required")
	}

	existing, err := a.findLoggedEmail(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicateSubmissionError{Existing: *existing}
	}

	attributes := map[string]any{
		"name":          msg.Subject,
		messageKeyField: key,
		profileField:    a.profile.ID,
		"status":        "Archived",
		"fromString":    msg.FromEmail,
	}
	if msg.ReceivedAt != "" {
		attributes["dateSent"] = normalizeInstant(msg.ReceivedAt)
	}
	if opts.IncludeBody && msg.BodyText != "" {
		attributes["body"] = msg.BodyText
	}
	if opts.LinkModule != "" && opts.LinkID != "" {
		attributes["parentType"] = opts.LinkModule
		attributes["parentId"] = opts.LinkID
	}

	record, err := a.upstream.Create(ctx, ModuleEmails, attributes)
	if err != nil {
		return nil, err
	}
	ref := dedup.RecordRef{
		Module: ModuleEmails,
		ID:     record.ID(),
		Link:   a.deepLink(ModuleEmails, record.ID()),
		Name:   msg.Subject,
	}
	a.logger.Info().Str("id", ref.ID).Msg("email logged")

	if len(msg.Attachments) > 0 {
		parentLink := dedup.RecordRef{Module: opts.LinkModule, ID: opts.LinkID}
		a.persistAttachments(ctx, ref, parentLink, msg.Attachments, opts.MaxAttachmentBytes)
	}
	return &LoggedEmail{Record: ref}, nil
}

// findLoggedEmail probes the activity module for a record carrying the key.
// Shapes scoped to this profile are tried first; deployments whose schema
// lacks the profile attribute reject those with a 400 and fall through to
// the key-only shapes.
func (a *Adapter) findLoggedEmail(ctx context.Context, key string) (*dedup.RecordRef, error) {
	shapes := upstream.EqualityShapes(a.profile.APIFlavor,
		upstream.Filter{Field: messageKeyField, Value: key},
		upstream.Filter{Field: profileField, Value: a.profile.ID},
	)
	shapes = append(shapes, upstream.EqualityShapes(a.profile.APIFlavor,
		upstream.Filter{Field: messageKeyField, Value: key},
	)...)

	result, err := a.upstream.ListWithShapes(ctx, ModuleEmails, nil, shapes)
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	record := result.Records[0]
	return &dedup.RecordRef{
		Module: ModuleEmails,
		ID:     record.ID(),
		Link:   a.deepLink(ModuleEmails, record.ID()),
		Name:   record.String("name"),
	}, nil
}
