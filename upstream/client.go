// Package upstream speaks to the resource-oriented CRM HTTP API: bearer
// authorization, JSON bodies, endpoint-per-module CRUD plus a relationship
// listing endpoint. Exact endpoint paths and filter syntax vary by
// deployment, which is why callers probe query shapes (see shapes.go).
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inboxcrm/connector/credentials"
	"github.com/inboxcrm/connector/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	connectTimeout = 5 * time.Second
	totalTimeout   = 15 * time.Second

	snippetLimit = 200
)

// TokenProvider supplies the bearer token for a call.
type TokenProvider func(ctx context.Context) (string, error)

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL       string
	TokenProvider TokenProvider
	HTTPClient    *http.Client
	UserAgent     string
	Logger        zerolog.Logger
}

// Client is a per-profile CRM API client.
type Client struct {
	baseURL       string
	tokenProvider TokenProvider
	httpClient    *http.Client
	userAgent     string
	logger        zerolog.Logger
}

// NewClient builds a Client, defaulting the HTTP client to one with bounded
// connect and total timeouts.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("[NewClient] base URL is required")
	}
	if opts.TokenProvider == nil {
		return nil, errors.New("[NewClient] token provider is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		}
	}
	return &Client{
		baseURL:       baseURL,
		tokenProvider: opts.TokenProvider,
		httpClient:    httpClient,
		userAgent:     strings.TrimSpace(opts.UserAgent),
		logger:        opts.Logger.With().Str("component", "upstream").Logger(),
	}, nil
}

// List fetches one page of a module, applying the query parameters as-is.
func (c *Client) List(ctx context.Context, module string, query url.Values) (*ListResult, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(module)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return parseListResult(endpoint, raw)
}

// ListWithShapes tries each query shape in order, merging common into every
// shape. A 400 from the upstream means the deployment rejects that filter
// dialect and the next shape is tried; the first non-400 outcome wins.
func (c *Client) ListWithShapes(ctx context.Context, module string, common url.Values, shapes []url.Values) (*ListResult, error) {
	if len(shapes) == 0 {
		return c.List(ctx, module, common)
	}
	var lastErr error
	for _, shape := range shapes {
		query := url.Values{}
		for k, vs := range common {
			query[k] = vs
		}
		for k, vs := range shape {
			query[k] = vs
		}
		result, err := c.List(ctx, module, query)
		if err == nil {
			return result, nil
		}
		if !IsStatus(err, http.StatusBadRequest) {
			return nil, err
		}
		c.logger.Debug().Str("module", module).Msg("filter shape rejected, trying next")
		lastErr = err
	}
	return nil, lastErr
}

// Get fetches one record by id.
func (c *Client) Get(ctx context.Context, module, id string) (Record, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(module) + "/" + url.PathEscape(id)
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, &BadResponseError{Endpoint: endpoint, Reason: "record payload is not an object"}
	}
	return record, nil
}

// Exists reports whether the record is still present upstream. A 404 (or
// 403, some deployments hide deleted records that way) is a clean "no".
func (c *Client) Exists(ctx context.Context, module, id string) (bool, error) {
	_, err := c.Get(ctx, module, id)
	if err == nil {
		return true, nil
	}
	if IsStatus(err, http.StatusNotFound, http.StatusForbidden) {
		return false, nil
	}
	return false, err
}

// Create inserts a record and returns the created payload.
func (c *Client) Create(ctx context.Context, module string, attributes map[string]any) (Record, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(module)
	raw, err := c.do(ctx, http.MethodPost, endpoint, attributes)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, &BadResponseError{Endpoint: endpoint, Reason: "created record payload is not an object"}
	}
	if record.ID() == "" {
		return nil, &BadResponseError{Endpoint: endpoint, Reason: "created record has no id"}
	}
	return record, nil
}

// Relationships lists records related to one record, e.g. a contact's
// opportunities.
func (c *Client) Relationships(ctx context.Context, module, id, relation string, query url.Values) (*ListResult, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(module) + "/" + url.PathEscape(id) + "/" + url.PathEscape(relation)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return parseListResult(endpoint, raw)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	token, err := c.tokenProvider(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "[Client.do] Marshal")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.do] NewRequest")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &UnreachableError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &HTTPError{
			Status:   resp.StatusCode,
			Endpoint: endpoint,
			Snippet:  credentials.RedactSecrets(utils.Truncate(string(raw), snippetLimit)),
		}
	}
	return raw, nil
}

// parseListResult accepts the page shapes seen across deployments: a "list"
// wrapper, a "records" wrapper, or a bare array.
func parseListResult(endpoint string, raw []byte) (*ListResult, error) {
	var wrapped struct {
		List    []Record `json:"list"`
		Records []Record `json:"records"`
		Total   int      `json:"total"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && (wrapped.List != nil || wrapped.Records != nil) {
		records := wrapped.List
		if records == nil {
			records = wrapped.Records
		}
		total := wrapped.Total
		if total == 0 {
			total = len(records)
		}
		return &ListResult{Records: records, Total: total}, nil
	}
	var bare []Record
	if err := json.Unmarshal(raw, &bare); err == nil {
		return &ListResult{Records: bare, Total: len(bare)}, nil
	}
	return nil, &BadResponseError{Endpoint: endpoint, Reason: "unrecognized list payload"}
}
