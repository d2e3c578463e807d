package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultAPIVersion = "v2021-10-21"
	defaultDataset    = "production"
	apiHost           = "api.sanity.io"
	cdnHost           = "apicdn.sanity.io"
	tracerName        = "github.com/ch-Arham/NFT-Drop/internal/cms"
)

// Source exposes the two fixed collection queries used by the pages.
type Source interface {
	Collections(ctx context.Context) ([]Collection, error)
	CollectionBySlug(ctx context.Context, slug string) (Collection, error)
}

// Config configures the Sanity query client.
type Config struct {
	ProjectID    string
	Dataset      string
	APIVersion   string
	Token        string
	UseCDN       bool
	FallbackFile string
	CacheTTL     time.Duration
	// BaseURL overrides the derived https://<project>.api.sanity.io endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// Client queries collection records from a Sanity dataset. When no project is configured
// it serves records from the local fallback file instead.
type Client struct {
	baseURL      string
	dataset      string
	apiVersion   string
	token        string
	fallbackFile string
	http         *http.Client

	cacheTTL time.Duration
	mu       sync.RWMutex
	cache    map[string]cacheEntry
}

type cacheEntry struct {
	raw     json.RawMessage
	expires time.Time
}

// NewClient constructs a CMS client from cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		dataset:      firstNonEmpty(strings.TrimSpace(cfg.Dataset), defaultDataset),
		apiVersion:   firstNonEmpty(strings.TrimSpace(cfg.APIVersion), defaultAPIVersion),
		token:        strings.TrimSpace(cfg.Token),
		fallbackFile: strings.TrimSpace(cfg.FallbackFile),
		http:         cfg.HTTPClient,
		cacheTTL:     cfg.CacheTTL,
		cache:        map[string]cacheEntry{},
	}
	if !strings.HasPrefix(c.apiVersion, "v") {
		c.apiVersion = "v" + c.apiVersion
	}
	switch {
	case strings.TrimSpace(cfg.BaseURL) != "":
		c.baseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	case strings.TrimSpace(cfg.ProjectID) != "":
		host := apiHost
		// Authenticated queries must bypass the CDN.
		if cfg.UseCDN && c.token == "" {
			host = cdnHost
		}
		c.baseURL = fmt.Sprintf("https://%s.%s", strings.TrimSpace(cfg.ProjectID), host)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// Remote reports whether the client talks to a CMS rather than the local file.
func (c *Client) Remote() bool {
	return c != nil && c.baseURL != ""
}

// Collections returns every collection record in CMS order.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	if !c.Remote() {
		return c.fallbackCollections()
	}
	raw, err := c.query(ctx, "all_collections", allCollectionsQuery, nil)
	if err != nil {
		return nil, err
	}
	var out []Collection
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("cms: decode collections: %w", err)
	}
	return out, nil
}

// CollectionBySlug resolves exactly one collection; ErrNotFound when nothing matches.
func (c *Client) CollectionBySlug(ctx context.Context, slug string) (Collection, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Collection{}, ErrNotFound
	}
	if !c.Remote() {
		return c.fallbackCollection(slug)
	}
	raw, err := c.query(ctx, "collection_by_slug", collectionBySlugQuery, map[string]string{"id": slug})
	if err != nil {
		return Collection{}, err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Collection{}, ErrNotFound
	}
	var out Collection
	if err := json.Unmarshal(raw, &out); err != nil {
		return Collection{}, fmt.Errorf("cms: decode collection %s: %w", slug, err)
	}
	if out.Slug.Current == "" {
		return Collection{}, ErrNotFound
	}
	return out, nil
}

func (c *Client) query(ctx context.Context, name, groq string, params map[string]string) (json.RawMessage, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cms.query")
	defer span.End()
	span.SetAttributes(attribute.String("cms.query", name))

	key := cacheKey(name, params)
	if raw, ok := c.cached(key); ok {
		span.SetAttributes(attribute.Bool("cms.cache_hit", true))
		return raw, nil
	}

	raw, err := c.fetch(ctx, groq, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	c.store(key, raw)
	return raw, nil
}

func (c *Client) fetch(ctx context.Context, groq string, params map[string]string) (json.RawMessage, error) {
	endpoint, err := url.JoinPath(c.baseURL, c.apiVersion, "data", "query", c.dataset)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("query", groq)
	for k, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		q.Set("$"+k, string(encoded))
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cms: query status %d: %s", resp.StatusCode, drainError(resp.Body))
	}

	var payload struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cms: decode response: %w", err)
	}
	return payload.Result, nil
}

func (c *Client) cached(key string) (json.RawMessage, bool) {
	if c.cacheTTL <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.raw, true
}

func (c *Client) store(key string, raw json.RawMessage) {
	if c.cacheTTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{
		raw:     append(json.RawMessage(nil), raw...),
		expires: time.Now().Add(c.cacheTTL),
	}
}

func cacheKey(name string, params map[string]string) string {
	if len(params) == 0 {
		return name
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{name}
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "|")
}

func sanitizeSlug(slug string) string {
	slug = strings.TrimSpace(slug)
	slug = strings.Trim(slug, "/")
	if slug == "" {
		return ""
	}
	if strings.Contains(slug, "..") || strings.ContainsAny(slug, "/\\\"") {
		return ""
	}
	if strings.ContainsRune(slug, os.PathSeparator) {
		return ""
	}
	return slug
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
