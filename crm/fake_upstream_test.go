package crm_test

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/inboxcrm/connector/crm"
	"github.com/inboxcrm/connector/crm/dedup"
	"github.com/inboxcrm/connector/internal/kvstore"
	"github.com/inboxcrm/connector/profiles"
	"github.com/inboxcrm/connector/upstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeUpstream is a programmable in-memory stand-in for *upstream.Client.
// Lists answer from per-module fixtures, creates append and assign ids, and
// every behavior can be overridden per test through the function fields.
type fakeUpstream struct {
	lists    map[string][]upstream.Record // module → rows returned by list queries
	byID     map[string]upstream.Record   // module/id → record
	related  map[string][]upstream.Record // module/id/relation → rows
	created  []createdRecord
	nextID   int
	listFn   func(module string, query url.Values) (*upstream.ListResult, error)
	shapesFn func(module string, common url.Values, shapes []url.Values) (*upstream.ListResult, error)
	createFn func(module string, attributes map[string]any) (upstream.Record, error)
}

type createdRecord struct {
	Module     string
	Attributes map[string]any
	ID         string
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		lists:   map[string][]upstream.Record{},
		byID:    map[string]upstream.Record{},
		related: map[string][]upstream.Record{},
	}
}

func (f *fakeUpstream) List(ctx context.Context, module string, query url.Values) (*upstream.ListResult, error) {
	if f.listFn != nil {
		return f.listFn(module, query)
	}
	rows := f.lists[module]
	return &upstream.ListResult{Records: rows, Total: len(rows)}, nil
}

func (f *fakeUpstream) ListWithShapes(ctx context.Context, module string, common url.Values, shapes []url.Values) (*upstream.ListResult, error) {
	if f.shapesFn != nil {
		return f.shapesFn(module, common, shapes)
	}
	return f.List(ctx, module, common)
}

func (f *fakeUpstream) Get(ctx context.Context, module, id string) (upstream.Record, error) {
	record, ok := f.byID[module+"/"+id]
	if !ok {
		return nil, &upstream.HTTPError{Status: 404, Endpoint: module + "/" + id, Snippet: "not found"}
	}
	return record, nil
}

func (f *fakeUpstream) Exists(ctx context.Context, module, id string) (bool, error) {
	_, ok := f.byID[module+"/"+id]
	return ok, nil
}

func (f *fakeUpstream) Create(ctx context.Context, module string, attributes map[string]any) (upstream.Record, error) {
	if f.createFn != nil {
		return f.createFn(module, attributes)
	}
	return f.createRaw(module, attributes)
}

// createRaw is the default create behavior, callable from createFn overrides.
func (f *fakeUpstream) createRaw(module string, attributes map[string]any) (upstream.Record, error) {
	f.nextID++
	id := module + "-" + strconv.Itoa(f.nextID)
	record := upstream.Record{"id": id}
	for k, v := range attributes {
		record[k] = v
	}
	f.created = append(f.created, createdRecord{Module: module, Attributes: attributes, ID: id})
	f.byID[module+"/"+id] = record
	return record, nil
}

func (f *fakeUpstream) Relationships(ctx context.Context, module, id, relation string, query url.Values) (*upstream.ListResult, error) {
	rows := f.related[module+"/"+id+"/"+relation]
	return &upstream.ListResult{Records: rows, Total: len(rows)}, nil
}

func (f *fakeUpstream) createdIn(module string) []createdRecord {
	var out []createdRecord
	for _, c := range f.created {
		if c.Module == module {
			out = append(out, c)
		}
	}
	return out
}

func adapterProfile() *profiles.Profile {
	return &profiles.Profile{
		ID:        "acme",
		Name:      "Acme Corp",
		BaseURL:   "https://crm.acme.test/api/v1",
		APIFlavor: profiles.FlavorRest,
		OAuth: profiles.OAuthSettings{
			TokenURL: "https://crm.acme.test/oauth/token",
			ClientID: "plugin", ClientSecret: "hunter2",
		},
	}
}

func newTestAdapter(t *testing.T, fake *fakeUpstream, options ...crm.AdapterOption) *crm.Adapter {
	t.Helper()
	defaults := []crm.AdapterOption{crm.WithNowTime(func() time.Time { return fixedNow })}
	adapter, err := crm.NewAdapter(
		adapterProfile(),
		fake,
		dedup.NewStore(kvstore.NewMemoryStore()),
		zerolog.Nop(),
		append(defaults, options...)...,
	)
	require.NoError(t, err)
	return adapter
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
