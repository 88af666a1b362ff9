package crm

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/inboxcrm/connector/crm/dedup"
	"github.com/inboxcrm/connector/upstream"
)

var (
	errAttachmentUnnamed  = errors.New("attachment has no name")
	errAttachmentTooLarge = errors.New("attachment exceeds size ceiling")
)

// persistAttachments writes each attachment as a first-class document
// record linked to the created activity, degrading per attachment: a 400 or
// 404 from the document schema falls back to a metadata note, itself
// falling back from the activity to the email's original link target. Other
// upstream failures are logged and the remaining attachments continue.
func (a *Adapter) persistAttachments(ctx context.Context, activity dedup.RecordRef, emailLink dedup.RecordRef, attachments []Attachment, maxBytes int64) {
	for _, attachment := range attachments {
		normalized, err := normalizeAttachment(attachment, maxBytes)
		if err != nil {
			a.logger.Warn().Err(err).Str("attachment", attachment.Name).Msg("skipping attachment")
			continue
		}
		if err := a.persistOne(ctx, activity, emailLink, normalized); err != nil {
			a.logger.Warn().Err(err).Str("attachment", normalized.Name).Msg("attachment not persisted")
		}
	}
}

func (a *Adapter) persistOne(ctx context.Context, activity, emailLink dedup.RecordRef, attachment Attachment) error {
	_, err := a.upstream.Create(ctx, ModuleDocuments, map[string]any{
		"name":       attachment.Name,
		"type":       attachment.MimeType,
		"size":       attachment.Size,
		"contents":   attachment.ContentBase64,
		"parentType": activity.Module,
		"parentId":   activity.ID,
	})
	if err == nil {
		return nil
	}
	if !upstream.IsStatus(err, http.StatusBadRequest, http.StatusNotFound) {
		return err
	}

	// Document schema absent on this deployment; embed the metadata in a
	// secondary note instead.
	if noteErr := a.createAttachmentNote(ctx, activity, attachment); noteErr == nil {
		return nil
	}
	if emailLink.Module == "" || emailLink.ID == "" {
		return err
	}
	return a.createAttachmentNote(ctx, emailLink, attachment)
}

func (a *Adapter) createAttachmentNote(ctx context.Context, parent dedup.RecordRef, attachment Attachment) error {
	_, err := a.upstream.Create(ctx, ModuleNotes, map[string]any{
		"name":       "Attachment: " + attachment.Name,
		"post":       attachmentNoteBody(attachment),
		"parentType": parent.Module,
		"parentId":   parent.ID,
	})
	return err
}

func attachmentNoteBody(attachment Attachment) string {
	body := attachment.Name
	if attachment.MimeType != "" {
		body += " (" + attachment.MimeType + ")"
	}
	return body + ", " + byteCount(attachment.Size)
}

// normalizeAttachment enforces the caller's ceiling and fills the size from
// the base64 payload length when the plugin omitted it.
func normalizeAttachment(attachment Attachment, maxBytes int64) (Attachment, error) {
	if attachment.Name == "" {
		return attachment, errAttachmentUnnamed
	}
	if attachment.Size <= 0 && attachment.ContentBase64 != "" {
		attachment.Size = int64(len(attachment.ContentBase64)) * 3 / 4
	}
	if maxBytes > 0 && attachment.Size > maxBytes {
		return attachment, errAttachmentTooLarge
	}
	return attachment, nil
}

func byteCount(size int64) string {
	switch {
	case size >= 1<<20:
		return strconv.FormatInt(size>>20, 10) + " MB"
	case size >= 1<<10:
		return strconv.FormatInt(size>>10, 10) + " KB"
	default:
		return strconv.FormatInt(size, 10) + " B"
	}
}
