// iFormBuilder API v60 implementation of [Platform]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	apiPath   = "/exzact/api/v60/profiles/"
	tokenPath = "/exzact/api/oauth/token"

	// Page sizes of paginated listings.
	containerPageSize = 100
	itemPageSize      = 1000
)

// ClientOpts configures an [IFBClient].
type ClientOpts struct {
	ServerName   string
	BaseURL      string // overrides https://<ServerName>.iformbuilder.com
	ProfileID    int64
	ClientKey    string
	ClientSecret string
	RateLimit    float64 // requests per second; 0 disables pacing
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// ClientOptsFromSettings maps validated API settings onto [ClientOpts].
func ClientOptsFromSettings(s shared.APISettings) ClientOpts {
	return ClientOpts{
		ServerName:   s.ServerName,
		BaseURL:      s.BaseURL,
		ProfileID:    s.ProfileID,
		ClientKey:    s.ClientKey,
		ClientSecret: s.ClientSecret,
		RateLimit:    s.RateLimit,
	}
}

// IFBClient implements [Platform] against the iFormBuilder REST API.
type IFBClient struct {
	apiBase    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	calls      *atomic.Int64
	logger     *log.Logger
}

// NewIFBClient creates a client for one profile. No request is made until the first call;
// use [IFBClient.Authenticate] to fail early on bad credentials.
func NewIFBClient(ctx context.Context, opts ClientOpts) (*IFBClient, error) {
	if opts.ClientKey == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client key and secret are required", shared.ErrMissingCredentials)
	}
	if opts.ProfileID <= 0 {
		return nil, fmt.Errorf("%w: profile id must be positive", shared.ErrInvalidConfig)
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		if opts.ServerName == "" {
			return nil, fmt.Errorf("%w: server name is required", shared.ErrInvalidConfig)
		}
		base = "https://" + opts.ServerName + ".iformbuilder.com"
	}

	baseClient := opts.HTTPClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: 60 * time.Second}
	}

	calls := &atomic.Int64{}
	counted := &http.Client{
		Transport: &countingTransport{base: baseClient.Transport, calls: calls},
		Timeout:   baseClient.Timeout,
	}

	src := &assertionSource{
		ctx:      ctx,
		client:   counted,
		tokenURL: base + tokenPath,
		key:      opts.ClientKey,
		secret:   opts.ClientSecret,
		now:      time.Now,
	}
	tokens := oauth2.ReuseTokenSource(nil, src)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, counted), tokens)
	httpClient.Timeout = baseClient.Timeout

	return &IFBClient{
		apiBase:    base + apiPath + strconv.FormatInt(opts.ProfileID, 10),
		tokens:     tokens,
		httpClient: httpClient,
		limiter:    limiter,
		calls:      calls,
		logger:     logger,
	}, nil
}

// Authenticate fetches an access token.
func (c *IFBClient) Authenticate(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.tokens.Token(); err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return nil
}

// Calls returns the number of HTTP requests issued, token requests included.
func (c *IFBClient) Calls() int { return int(c.calls.Load()) }

// countingTransport counts every request that reaches the network.
type countingTransport struct {
	base  http.RoundTripper
	calls *atomic.Int64
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// doRequest performs an authenticated JSON request against the profile API.
func (c *IFBClient) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := c.apiBase + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s",
			shared.ErrAPIRequest, method, endpoint, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	if result == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("%w: %s %s: failed to decode response: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	return nil
}

// paginate walks a limit/offset listing until a short page.
func paginate[T any](ctx context.Context, c *IFBClient, endpoint string, query url.Values, limit int) ([]T, error) {
	var all []T
	for offset := 0; ; offset += limit {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))

		var page []T
		if err := c.doRequest(ctx, http.MethodGet, endpoint, q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < limit {
			return all, nil
		}
	}
}

type idResponse struct {
	ID json.Number `json:"id"`
}

func (r idResponse) value() (int64, error) {
	if r.ID == "" {
		return 0, nil
	}
	return ParseID(r.ID)
}

type fieldValue struct {
	ElementName string `json:"element_name"`
	Value       string `json:"value"`
}

type recordPayload struct {
	ID     int64        `json:"id,omitempty"`
	Fields []fieldValue `json:"fields"`
}

func fieldsOf(row models.Row, columns []string) []fieldValue {
	fields := make([]fieldValue, len(columns))
	for i, c := range columns {
		fields[i] = fieldValue{ElementName: c, Value: row[c]}
	}
	return fields
}

// ListPages implements [PageClient].
func (c *IFBClient) ListPages(ctx context.Context) ([]models.Container, error) {
	return c.listContainers(ctx, "/pages")
}

// CreatePage implements [PageClient].
func (c *IFBClient) CreatePage(ctx context.Context, name, label string) (int64, error) {
	var resp idResponse
	body := map[string]string{"name": name, "label": label}
	if err := c.doRequest(ctx, http.MethodPost, "/pages", nil, body, &resp); err != nil {
		return 0, err
	}
	return resp.value()
}

// ListElements implements [PageClient].
func (c *IFBClient) ListElements(ctx context.Context, pageID int64) ([]models.Element, error) {
	q := url.Values{"fields": {"name,label,data_type,data_size"}}
	raw, err := paginate[map[string]any](ctx, c, fmt.Sprintf("/pages/%d/elements", pageID), q, containerPageSize)
	if err != nil {
		return nil, err
	}

	elements := make([]models.Element, 0, len(raw))
	for _, m := range raw {
		dataType, _ := strconv.Atoi(Stringify(m["data_type"]))
		dataSize, _ := strconv.Atoi(Stringify(m["data_size"]))
		elements = append(elements, models.Element{
			Name:     Stringify(m["name"]),
			Label:    Stringify(m["label"]),
			DataType: dataType,
			DataSize: dataSize,
		})
	}
	return elements, nil
}

// CreateElements implements [PageClient].
func (c *IFBClient) CreateElements(ctx context.Context, pageID int64, elements []models.Element) error {
	if len(elements) == 0 {
		return nil
	}
	return c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/pages/%d/elements", pageID), nil, elements, nil)
}

// ListRecords implements [PageClient].
func (c *IFBClient) ListRecords(ctx context.Context, pageID int64, fields []string) ([]models.Record, error) {
	q := url.Values{"fields": {strings.Join(append([]string{"id"}, fields...), ",")}}
	raw, err := paginate[map[string]any](ctx, c, fmt.Sprintf("/pages/%d/records", pageID), q, itemPageSize)
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(raw))
	for _, m := range raw {
		id, err := ParseID(m["id"])
		if err != nil {
			return nil, fmt.Errorf("%w: record with invalid id: %v", shared.ErrAPIRequest, err)
		}
		values := make(models.Row, len(fields))
		for _, f := range fields {
			values[f] = Stringify(m[f])
		}
		records = append(records, models.Record{ID: id, Values: values})
	}
	return records, nil
}

// CreateRecords implements [PageClient].
func (c *IFBClient) CreateRecords(ctx context.Context, pageID int64, columns []string, rows []models.Row) error {
	body := make([]recordPayload, len(rows))
	for i, row := range rows {
		body[i] = recordPayload{Fields: fieldsOf(row, columns)}
	}
	return c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/pages/%d/records", pageID), nil, body, nil)
}

// UpdateRecords implements [PageClient].
func (c *IFBClient) UpdateRecords(ctx context.Context, pageID int64, columns []string, records []models.Record) error {
	body := make([]recordPayload, len(records))
	for i, r := range records {
		body[i] = recordPayload{ID: r.ID, Fields: fieldsOf(r.Values, columns)}
	}
	return c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/pages/%d/records", pageID), nil, body, nil)
}

// DeleteRecord implements [PageClient].
func (c *IFBClient) DeleteRecord(ctx context.Context, pageID, recordID int64) error {
	return c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/pages/%d/records/%d", pageID, recordID), nil, nil, nil)
}

// DeleteAllRecords implements [PageClient].
//
// A collection DELETE removes at most limit records, so it repeats until a listing
// of record ids comes back empty. Every DELETE and listing counts as a call.
func (c *IFBClient) DeleteAllRecords(ctx context.Context, pageID int64) error {
	endpoint := fmt.Sprintf("/pages/%d/records", pageID)
	limit := strconv.Itoa(itemPageSize)

	var lastFirst string
	for {
		if err := c.doRequest(ctx, http.MethodDelete, endpoint, url.Values{"limit": {limit}}, nil, nil); err != nil {
			return err
		}

		var remaining []map[string]any
		q := url.Values{"fields": {"id"}, "limit": {limit}, "offset": {"0"}}
		if err := c.doRequest(ctx, http.MethodGet, endpoint, q, nil, &remaining); err != nil {
			return err
		}
		if len(remaining) == 0 {
			return nil
		}

		first := Stringify(remaining[0]["id"])
		if first == lastFirst {
			return fmt.Errorf("%w: DELETE %s: %d records remain after clearing", shared.ErrAPIRequest, endpoint, len(remaining))
		}
		lastFirst = first
		c.logger.Debug("records remain, clearing again", "page", pageID, "remaining", len(remaining))
	}
}

// ListOptionLists implements [OptionListClient].
func (c *IFBClient) ListOptionLists(ctx context.Context) ([]models.Container, error) {
	return c.listContainers(ctx, "/optionlists")
}

// CreateOptionList implements [OptionListClient].
func (c *IFBClient) CreateOptionList(ctx context.Context, name string) (int64, error) {
	var resp idResponse
	if err := c.doRequest(ctx, http.MethodPost, "/optionlists", nil, map[string]string{"name": name}, &resp); err != nil {
		return 0, err
	}
	return resp.value()
}

// ListOptions implements [OptionListClient].
func (c *IFBClient) ListOptions(ctx context.Context, listID int64) ([]models.Option, error) {
	q := url.Values{"fields": {"id,key_value,label,sort_order,condition_value"}}
	raw, err := paginate[map[string]any](ctx, c, fmt.Sprintf("/optionlists/%d/options", listID), q, itemPageSize)
	if err != nil {
		return nil, err
	}

	options := make([]models.Option, 0, len(raw))
	for _, m := range raw {
		id, err := ParseID(m["id"])
		if err != nil {
			return nil, fmt.Errorf("%w: option with invalid id: %v", shared.ErrAPIRequest, err)
		}
		options = append(options, models.Option{
			ID:             id,
			KeyValue:       Stringify(m[models.OptionKeyValue]),
			Label:          Stringify(m[models.OptionLabel]),
			SortOrder:      Stringify(m[models.OptionSortOrder]),
			ConditionValue: Stringify(m[models.OptionConditionValue]),
		})
	}
	return options, nil
}

// CreateOptions implements [OptionListClient].
func (c *IFBClient) CreateOptions(ctx context.Context, listID int64, options []models.Option) error {
	return c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/optionlists/%d/options", listID), nil, optionPayloads(options), nil)
}

// UpdateOptions implements [OptionListClient].
func (c *IFBClient) UpdateOptions(ctx context.Context, listID int64, options []models.Option) error {
	return c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/optionlists/%d/options", listID), nil, optionPayloads(options), nil)
}

// optionPayloads encodes options for the API. A sort order that parses as an integer is sent as a number.
func optionPayloads(options []models.Option) []map[string]any {
	body := make([]map[string]any, len(options))
	for i, o := range options {
		p := map[string]any{
			models.OptionKeyValue:       o.KeyValue,
			models.OptionLabel:          o.Label,
			models.OptionSortOrder:      o.SortOrder,
			models.OptionConditionValue: o.ConditionValue,
		}
		if n, err := strconv.Atoi(o.SortOrder); err == nil {
			p[models.OptionSortOrder] = n
		}
		if o.ID > 0 {
			p["id"] = o.ID
		}
		body[i] = p
	}
	return body
}

func (c *IFBClient) listContainers(ctx context.Context, endpoint string) ([]models.Container, error) {
	q := url.Values{"fields": {"id,name"}}
	raw, err := paginate[map[string]any](ctx, c, endpoint, q, containerPageSize)
	if err != nil {
		return nil, err
	}

	containers := make([]models.Container, 0, len(raw))
	for _, m := range raw {
		id, err := ParseID(m["id"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s entry with invalid id: %v", shared.ErrAPIRequest, endpoint, err)
		}
		containers = append(containers, models.Container{ID: id, Name: Stringify(m["name"])})
	}
	return containers, nil
}
