package crm_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/inboxcrm/connector/crm"
	"github.com/inboxcrm/connector/upstream"
	"github.com/stretchr/testify/require"
)

func sampleMessage() crm.EmailMessage {
	return crm.EmailMessage{
		InternetMessageID: "<Quarterly@Acme.Test>",
		Subject:           "Quarterly numbers",
		FromEmail:         "jane@acme.test",
		BodyText:          "Attached are the Q2 figures.",
		ReceivedAt:        "2024-06-01T09:30:00Z",
	}
}

func TestLogEmailCreatesActivityRecord(t *testing.T) {
	fake := newFakeUpstream()
	adapter := newTestAdapter(t, fake)

	logged, err := adapter.LogEmail(context.Background(), sampleMessage(), crm.LogEmailOptions{
		LinkModule:  crm.ModuleContacts,
		LinkID:      "c-1",
		IncludeBody: true,
	})
	require.NoError(t, err)
	require.Equal(t, crm.ModuleEmails, logged.Record.Module)
	require.Equal(t, "Quarterly numbers", logged.Record.Name)
	require.Contains(t, logged.Record.Link, "/#/Emails/view/")

	created := fake.createdIn(crm.ModuleEmails)
	require.Len(t, created, 1)
	attrs := created[0].Attributes
	require.Equal(t, "quarterly@acme.test", attrs["messageId"])
	require.Equal(t, "acme", attrs["cSidecarProfile"])
	require.Equal(t, "Archived", attrs["status"])
	require.Equal(t, "2024-06-01 09:30:00", attrs["dateSent"])
	require.Equal(t, "Attached are the Q2 figures.", attrs["body"])
	require.Equal(t, crm.ModuleContacts, attrs["parentType"])
	require.Equal(t, "c-1", attrs["parentId"])
}

func TestLogEmailOmitsBodyUnlessRequested(t *testing.T) {
	fake := newFakeUpstream()
	adapter := newTestAdapter(t, fake)

	_, err := adapter.LogEmail(context.Background(), sampleMessage(), crm.LogEmailOptions{})
	require.NoError(t, err)

	attrs := fake.createdIn(crm.ModuleEmails)[0].Attributes
	require.NotContains(t, attrs, "body")
	require.NotContains(t, attrs, "parentType")
}

func TestLogEmailSecondSubmissionIsDuplicate(t *testing.T) {
	fake := newFakeUpstream()
	// The fake's list answers from the fixture map, so mirror a created
	// email into the Emails listing the way the live module would.
	fake.createFn = func(module string, attributes map[string]any) (upstream.Record, error) {
		record, err := fake.createRaw(module, attributes)
		if err == nil {
			fake.lists[module] = append(fake.lists[module], record)
		}
		return record, err
	}
	adapter := newTestAdapter(t, fake)

	first, err := adapter.LogEmail(context.Background(), sampleMessage(), crm.LogEmailOptions{})
	require.NoError(t, err)

	_, err = adapter.LogEmail(context.Background(), sampleMessage(), crm.LogEmailOptions{})
	var dup *crm.DuplicateSubmissionError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, first.Record.ID, dup.Existing.ID)
	require.Equal(t, first.Record.Name, dup.Existing.Name)

	require.Len(t, fake.createdIn(crm.ModuleEmails), 1)
}

func TestLogEmailRequiresMessageID(t *testing.T) {
	adapter := newTestAdapter(t, newFakeUpstream())

	msg := sampleMessage()
	msg.InternetMessageID = "  <> "
	_, err := adapter.LogEmail(context.Background(), msg, crm.LogEmailOptions{})
	require.ErrorIs(t, err, crm.ErrInvalidInput)
}

func TestLogEmailDedupProbeFailurePropagates(t *testing.T) {
	fake := newFakeUpstream()
	fake.listFn = func(module string, query url.Values) (*upstream.ListResult, error) {
		return nil, &upstream.HTTPError{Status: 500, Endpoint: module, Snippet: "boom"}
	}
	adapter := newTestAdapter(t, fake)

	_, err := adapter.LogEmail(context.Background(), sampleMessage(), crm.LogEmailOptions{})
	require.True(t, upstream.IsStatus(err, 500))
	require.Empty(t, fake.created)
}
