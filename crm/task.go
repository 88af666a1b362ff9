package crm

import (
	"context"
	"strings"

	"github.com/inboxcrm/connector/crm/dedup"
	"github.com/pkg/errors"
)

// TaskContext optionally pins the record the task should link to.
type TaskContext struct {
	LinkModule string
	LinkID     string
}

// TaskAudit is the trail recorded with a created task.
type TaskAudit struct {
	CreatedBy          string
	CreatedBySubjectID string
}

// TaskResult is the created or pre-existing follow-up task.
type TaskResult struct {
	Record       dedup.RecordRef `json:"record"`
	Deduplicated bool            `json:"deduplicated"`
}

// CreateTaskFromEmail creates a follow-up task for the message, unless one
// was already created for either of its message-id variants and still exists
// upstream.
func (a *Adapter) CreateTaskFromEmail(ctx context.Context, msg EmailMessage, taskCtx TaskContext, audit TaskAudit) (*TaskResult, error) {
	graphID := strings.TrimSpace(msg.GraphMessageID)
	internetKey := NormalizeInternetMessageID(msg.InternetMessageID)
	if graphID == "" && internetKey == "" {
		return nil, errors.Wrap(ErrInvalidInput, "a graph or internet message id is required")
	}

	if existing, ok := a.findDedupEntry(ctx, graphID, internetKey); ok {
		return &TaskResult{Record: existing.Record, Deduplicated: true}, nil
	}

	link, err := a.resolveTaskLink(ctx, msg, taskCtx)
	if err != nil {
		return nil, err
	}

	attributes := map[string]any{
		"name":        taskName(msg),
		"description": a.composeTaskDescription(msg, graphID, internetKey, audit),
		"status":      "Not Started",
	}
	if link != nil {
		attributes["parentType"] = link.Module
		attributes["parentId"] = link.ID
	}

	record, err := a.upstream.Create(ctx, ModuleTasks, attributes)
	if err != nil {
		return nil, err
	}
	ref := dedup.RecordRef{
		Module: ModuleTasks,
		ID:     record.ID(),
		Link:   a.deepLink(ModuleTasks, record.ID()),
		Name:   record.String("name"),
	}
	a.logger.Info().Str("id", ref.ID).Msg("follow-up task created")

	// One dedup write per available key variant so lookup succeeds on
	// either identifier next time.
	entry := &dedup.Entry{
		ProfileID:          a.profile.ID,
		GraphMessageID:     graphID,
		InternetMessageID:  internetKey,
		Record:             ref,
		CreatedAt:          a.nowTime().Unix(),
		CreatedBy:          audit.CreatedBy,
		CreatedBySubjectID: audit.CreatedBySubjectID,
		FromEmail:          msg.FromEmail,
	}
	if graphID != "" {
		if err := a.dedup.Put(dedup.KeyGraph, graphID, entry); err != nil {
			a.logger.Warn().Err(err).Msg("dedup write failed for graph key")
		}
	}
	if internetKey != "" {
		if err := a.dedup.Put(dedup.KeyInternet, internetKey, entry); err != nil {
			a.logger.Warn().Err(err).Msg("dedup write failed for internet key")
		}
	}
	return &TaskResult{Record: ref}, nil
}

// findDedupEntry checks both key variants and verifies the referenced
// record still exists upstream. A stale entry is ignored; the recreate
// overwrites it.
func (a *Adapter) findDedupEntry(ctx context.Context, graphID, internetKey string) (*dedup.Entry, bool) {
	for _, candidate := range []struct {
		keyType dedup.KeyType
		value   string
	}{
		{dedup.KeyGraph, graphID},
		{dedup.KeyInternet, internetKey},
	} {
		entry, ok := a.dedup.Get(candidate.keyType, candidate.value)
		if !ok {
			continue
		}
		alive, err := a.upstream.Exists(ctx, entry.Record.Module, entry.Record.ID)
		if err != nil {
			// If the upstream cannot confirm either way, prefer the dedup
			// answer over risking a duplicate.
			a.logger.Warn().Err(err).Str("recordId", entry.Record.ID).Msg("dedup recheck failed, treating entry as live")
			return entry, true
		}
		if alive {
			return entry, true
		}
		a.logger.Info().Str("recordId", entry.Record.ID).Msg("dedup entry references a deleted record, recreating")
	}
	return nil, false
}

// resolveTaskLink picks the record the task hangs off: the explicit context
// when given (Contacts resolved to their account when possible), otherwise
// the sender looked up by email.
func (a *Adapter) resolveTaskLink(ctx context.Context, msg EmailMessage, taskCtx TaskContext) (*dedup.RecordRef, error) {
	if taskCtx.LinkModule != "" && taskCtx.LinkID != "" {
		link := &dedup.RecordRef{Module: taskCtx.LinkModule, ID: taskCtx.LinkID}
		if taskCtx.LinkModule == ModuleContacts {
			if contact, err := a.upstream.Get(ctx, ModuleContacts, taskCtx.LinkID); err == nil {
				if accountID := contact.String("accountId"); accountID != "" {
					return &dedup.RecordRef{Module: ModuleAccounts, ID: accountID}, nil
				}
			}
		}
		return link, nil
	}

	if msg.FromEmail == "" {
		return nil, nil
	}
	match, err := a.findPersonByEmail(ctx, strings.ToLower(strings.TrimSpace(msg.FromEmail)))
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}
	if match.Module == ModuleContacts && match.AccountID != "" {
		return &dedup.RecordRef{Module: ModuleAccounts, ID: match.AccountID}, nil
	}
	return &dedup.RecordRef{Module: match.Module, ID: match.ID}, nil
}

func taskName(msg EmailMessage) string {
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = "(no subject)"
	}
	return "Follow up: " + subject
}

// composeTaskDescription records everything needed to trace the task back
// to the email.
func (a *Adapter) composeTaskDescription(msg EmailMessage, graphID, internetKey string, audit TaskAudit) string {
	var b strings.Builder
	writeLine := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	sender := msg.FromName
	if msg.FromEmail != "" {
		if sender != "" {
			sender += " <" + msg.FromEmail + ">"
		} else {
			sender = msg.FromEmail
		}
	}
	writeLine("From", sender)
	writeLine("Received", normalizeInstant(msg.ReceivedAt))
	writeLine("Link", msg.WebLink)
	writeLine("Message-ID", internetKey)
	writeLine("Graph-ID", graphID)
	writeLine("Conversation", msg.ConversationID)
	if msg.Preview != "" {
		b.WriteString("\n")
		b.WriteString(msg.Preview)
		b.WriteString("\n")
	}
	writeLine("\nCreated by", audit.CreatedBy)
	writeLine("Session", audit.CreatedBySubjectID)
	return strings.TrimRight(b.String(), "\n")
}
