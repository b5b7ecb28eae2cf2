package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client implements Store over the Confluence Cloud REST API.
//
// Authentication is basic auth with an account email and API token. The
// client owns no retry behavior; stale-version writes come back as
// ConflictError and everything else unexpected as TransportError.
type Client struct {
	baseURL string
	email   string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests, custom
// transport, proxies).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpc = h }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a REST client for the Confluence instance at baseURL
// (e.g. "https://example.atlassian.net/wiki").
func NewClient(baseURL, email, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		email:   email,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// contentJSON mirrors the REST content resource, expanded with
// body.storage, version, and space.
type contentJSON struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Space   struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value          string `json:"value"`
			Representation string `json:"representation"`
		} `json:"storage"`
	} `json:"body"`
}

func (c *contentJSON) toDocument() *Document {
	return &Document{
		ID:       c.ID,
		Title:    c.Title,
		SpaceKey: c.Space.Key,
		Type:     c.Type,
		Version:  c.Version.Number,
		Body:     c.Body.Storage.Value,
	}
}

// Fetch implements DocumentStore.
func (c *Client) Fetch(ctx context.Context, id string) (*Document, error) {
	var out contentJSON
	status, err := c.do(ctx, http.MethodGet,
		"/rest/api/content/"+url.PathEscape(id),
		url.Values{"expand": {"body.storage,version,space"}}, nil, &out, "fetch")
	if status == http.StatusNotFound {
		return nil, &NotFoundError{Kind: "page", Ref: id}
	}
	if err != nil {
		return nil, err
	}
	return out.toDocument(), nil
}

// FindByTitle implements DocumentStore.
func (c *Client) FindByTitle(ctx context.Context, spaceKey, title string) (*Document, error) {
	var out struct {
		Results []contentJSON `json:"results"`
	}
	q := url.Values{
		"spaceKey": {spaceKey},
		"title":    {title},
		"expand":   {"body.storage,version,space"},
	}
	if _, err := c.do(ctx, http.MethodGet, "/rest/api/content", q, nil, &out, "find"); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, &NotFoundError{Kind: "page", Ref: spaceKey + "/" + title}
	}
	return out.Results[0].toDocument(), nil
}

// Create implements DocumentStore.
func (c *Client) Create(ctx context.Context, spaceKey, title, body, parentID string) (string, error) {
	payload := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]any{"key": spaceKey},
		"body": map[string]any{
			"storage": map[string]any{"value": body, "representation": "storage"},
		},
	}
	if parentID != "" {
		payload["ancestors"] = []map[string]any{{"id": parentID}}
	}
	var out contentJSON
	if _, err := c.do(ctx, http.MethodPost, "/rest/api/content", nil, payload, &out, "create"); err != nil {
		return "", err
	}
	c.logger.Info("created page", "id", out.ID, "space", spaceKey, "title", title)
	return out.ID, nil
}

// Write implements DocumentStore. The server accepts the write only when
// expectedVersion is still current; a 409 surfaces as ConflictError.
func (c *Client) Write(ctx context.Context, id, title, body string, expectedVersion int) error {
	payload := map[string]any{
		"id":      id,
		"type":    "page",
		"title":   title,
		"version": map[string]any{"number": expectedVersion + 1},
		"body": map[string]any{
			"storage": map[string]any{"value": body, "representation": "storage"},
		},
	}
	status, err := c.do(ctx, http.MethodPut,
		"/rest/api/content/"+url.PathEscape(id), nil, payload, nil, "write")
	if status == http.StatusConflict {
		return &ConflictError{ID: id, ExpectedVersion: expectedVersion}
	}
	return err
}

// List implements LabelStore.
func (c *Client) List(ctx context.Context, id string) ([]string, error) {
	var out struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	path := "/rest/api/content/" + url.PathEscape(id) + "/label"
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out, "labels"); err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		labels = append(labels, r.Name)
	}
	return labels, nil
}

// Add implements LabelStore. Labels already present are skipped so the call
// is idempotent.
func (c *Client) Add(ctx context.Context, id string, labels []string) error {
	existing, err := c.List(ctx, id)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, l := range existing {
		have[l] = true
	}

	var missing []map[string]string
	for _, l := range labels {
		if !have[l] {
			missing = append(missing, map[string]string{"prefix": "global", "name": l})
		}
	}
	if len(missing) == 0 {
		return nil
	}
	path := "/rest/api/content/" + url.PathEscape(id) + "/label"
	_, err = c.do(ctx, http.MethodPost, path, nil, missing, nil, "labels")
	return err
}

// propertyJSON mirrors the REST content-property resource.
type propertyJSON struct {
	Key     string            `json:"key"`
	Value   map[string]string `json:"value"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

// Get implements PropertyStore. An unset key returns (nil, nil).
func (c *Client) Get(ctx context.Context, id, key string) (*Property, error) {
	var out propertyJSON
	path := "/rest/api/content/" + url.PathEscape(id) + "/property/" + url.PathEscape(key)
	status, err := c.do(ctx, http.MethodGet, path, nil, nil, &out, "property")
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Property{Value: out.Value, Version: out.Version.Number}, nil
}

// Upsert implements PropertyStore: create on first write, otherwise replace
// at the next version.
func (c *Client) Upsert(ctx context.Context, id, key string, value map[string]string) error {
	current, err := c.Get(ctx, id, key)
	if err != nil {
		return err
	}

	base := "/rest/api/content/" + url.PathEscape(id) + "/property"
	if current == nil {
		payload := map[string]any{"key": key, "value": value}
		_, err = c.do(ctx, http.MethodPost, base, nil, payload, nil, "property")
		return err
	}
	payload := map[string]any{
		"key":     key,
		"value":   value,
		"version": map[string]any{"number": current.Version + 1},
	}
	_, err = c.do(ctx, http.MethodPut, base+"/"+url.PathEscape(key), nil, payload, nil, "property")
	return err
}

// do runs one request. Returns the HTTP status (0 when the request never
// completed) so callers can special-case 404/409 before the generic
// TransportError applies.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, op string) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusConflict {
		// Callers translate these into the typed taxonomy.
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.StatusCode, nil
}
