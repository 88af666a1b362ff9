package crm

import (
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/inboxcrm/connector/internal/utils"
	"github.com/inboxcrm/connector/upstream"
)

const timelineLimit = 20

// TimelineEntry is one row of the merged activity view. Transient, produced
// fresh per lookup.
type TimelineEntry struct {
	Type       string `json:"type"`
	OccurredAt string `json:"occurredAt"`
	Title      string `json:"title"`
	Summary    string `json:"summary,omitempty"`
	Link       string `json:"link,omitempty"`
}

// timelineSource describes how one activity module maps to entries: which
// field carries the occurred-at instant and which candidate fields may hold
// a summary (first non-empty wins).
type timelineSource struct {
	module         string
	entryType      string
	occurredFields []string
	summaryFields  []string
}

var timelineSources = []timelineSource{
	{ModuleNotes, "Note", []string{"createdAt"}, []string{"post", "body"}},
	{ModuleCalls, "Call", []string{"dateStart", "createdAt"}, []string{"description"}},
	{ModuleMeetings, "Meeting", []string{"dateStart", "createdAt"}, []string{"description"}},
	{ModuleTasks, "Task", []string{"dateEnd", "dateStart", "createdAt"}, []string{"description"}},
}

// buildTimeline aggregates the activity modules parented to the matched
// person (or their account) into one descending, capped sequence.
func (a *Adapter) buildTimeline(ctx context.Context, match *PersonMatch) ([]TimelineEntry, error) {
	parentModule, parentID := match.Module, match.ID
	if match.Module == ModuleContacts && match.AccountID != "" {
		parentModule, parentID = ModuleAccounts, match.AccountID
	}

	entries := make([]TimelineEntry, 0, timelineLimit)
	for _, source := range timelineSources {
		shapes := upstream.EqualityShapes(a.profile.APIFlavor,
			upstream.Filter{Field: "parentType", Value: parentModule},
			upstream.Filter{Field: "parentId", Value: parentID},
		)
		common := url.Values{}
		common.Set("maxSize", "20")
		result, err := a.upstream.ListWithShapes(ctx, source.module, common, shapes)
		if err != nil {
			return nil, err
		}
		for _, record := range result.Records {
			entries = append(entries, a.mapTimelineEntry(source, record))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].OccurredAt != entries[j].OccurredAt {
			return entries[i].OccurredAt > entries[j].OccurredAt
		}
		return entries[i].Title < entries[j].Title
	})
	if len(entries) > timelineLimit {
		entries = entries[:timelineLimit]
	}
	return entries, nil
}

func (a *Adapter) mapTimelineEntry(source timelineSource, record upstream.Record) TimelineEntry {
	return TimelineEntry{
		Type:       source.entryType,
		OccurredAt: normalizeInstant(record.FirstString(source.occurredFields...)),
		Title:      utils.FirstNonEmpty(record.String("name"), source.entryType),
		Summary:    utils.Truncate(record.FirstString(source.summaryFields...), 300),
		Link:       a.deepLink(source.module, record.ID()),
	}
}

var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// normalizeInstant folds the upstream timestamp dialects into one absolute,
// zoneless form ("2006-01-02 15:04:05" in UTC) so entries from different
// modules sort against each other. Unparseable values pass through.
func normalizeInstant(raw string) string {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02 15:04:05")
		}
	}
	return raw
}
