// Package icd11 talks to the WHO ICD-11 API. All network failures degrade
// to unavailability rather than errors so that callers can fall back to
// static mappings.
package icd11

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/cache"
)

const (
	defaultTokenURL   = "https://id.who.int/connect/token"
	defaultAPIBaseURL = "https://icd-api.who.int/icd"
	defaultAPIVersion = "release/11/2024-01"

	oauthScope = "icdapi_access"

	// Tokens are refreshed this long before their reported expiry.
	tokenRefreshMargin = 60 * time.Second
)

// Category distinguishes the two groups a search hit can land in.
type Category string

const (
	CategoryTM2         Category = "TM2"
	CategoryBiomedicine Category = "Biomedicine"
)

// Entity is a single destination entity from an ICD-11 search response.
type Entity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Code returns the last path segment of the entity ID, which is the
// linearization code.
func (e Entity) Code() string {
	idx := strings.LastIndex(e.ID, "/")
	if idx < 0 {
		return e.ID
	}
	return e.ID[idx+1:]
}

// Category classifies the entity. Traditional Medicine Module 2 entities
// live under chapter x02; everything else is Biomedicine.
func (e Entity) Category() Category {
	if strings.Contains(strings.ToLower(e.ID), "x02") {
		return CategoryTM2
	}
	return CategoryBiomedicine
}

// Config holds WHO API connection settings. Zero-value URL fields fall back
// to the public WHO endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIBaseURL   string
	APIVersion   string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// Client is a WHO ICD-11 API client with OAuth2 client-credentials
// authentication and a TTL cache in front of search calls.
type Client struct {
	clientID     string
	clientSecret string
	tokenURL     string
	apiBaseURL   string
	cacheTTL     time.Duration

	store      cache.Store
	httpClient *http.Client
	logger     zerolog.Logger

	mu             sync.Mutex
	accessToken    string
	tokenExpiresAt time.Time
}

// New builds a Client backed by the given cache store.
func New(cfg Config, store cache.Store, logger zerolog.Logger) *Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     tokenURL,
		apiBaseURL:   strings.TrimRight(apiBase, "/") + "/" + strings.Trim(version, "/"),
		cacheTTL:     ttl,
		store:        store,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.With().Str("component", "icd11").Logger(),
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// Authenticate obtains an access token, reusing a cached one while it
// remains valid. It reports success rather than returning an error: an
// unreachable or rejecting token endpoint means the source is unavailable.
func (c *Client) Authenticate(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureTokenLocked(ctx)
}

func (c *Client) ensureTokenLocked(ctx context.Context) bool {
	if c.accessToken != "" && time.Now().Before(c.tokenExpiresAt) {
		return true
	}
	if !c.Configured() {
		return false
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {oauthScope},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error().Err(err).Msg("building token request")
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("token endpoint unreachable")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("token request rejected")
		return false
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		c.logger.Warn().Err(err).Msg("decoding token response")
		return false
	}
	if token.AccessToken == "" {
		return false
	}
	if token.ExpiresIn <= 0 {
		token.ExpiresIn = 3600
	}

	c.accessToken = token.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenRefreshMargin)
	c.logger.Info().Msg("authenticated with WHO ICD-11 API")
	return true
}

func (c *Client) bearerToken(ctx context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ensureTokenLocked(ctx) {
		return "", false
	}
	return c.accessToken, true
}

type searchResponse struct {
	DestinationEntities []struct {
		ID    string `json:"id"`
		Title struct {
			Value string `json:"@value"`
		} `json:"title"`
	} `json:"destinationEntities"`
}

// Search queries the given linearization for a term. The second return
// value reports availability: false means the source could not be reached
// (auth failure, transport error, bad payload), while an empty slice with
// true means the API answered and matched nothing. Successful responses
// are cached; a fresh cached answer is served without touching the API.
func (c *Client) Search(ctx context.Context, term, linearization string) ([]Entity, bool) {
	if linearization == "" {
		linearization = "mms"
	}
	key := cache.Key("search", term, linearization)

	if entry, ok := c.store.Get(key); ok && time.Since(entry.CachedAt) < c.cacheTTL {
		var cached []Entity
		if err := json.Unmarshal(entry.Data, &cached); err == nil {
			c.logger.Debug().Str("term", term).Msg("serving cached search results")
			return cached, true
		}
	}

	token, ok := c.bearerToken(ctx)
	if !ok {
		return nil, false
	}

	endpoint := fmt.Sprintf("%s/%s/search", c.apiBaseURL, linearization)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("building search request")
		return nil, false
	}
	q := req.URL.Query()
	q.Set("q", term)
	q.Set("subtreeFilterUsesFoundationDescendants", "false")
	q.Set("includeKeywordResult", "true")
	q.Set("useFlexisearch", "false")
	q.Set("flatResults", "false")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("API-Version", "v2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("term", term).Msg("search request failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("term", term).Msg("search request rejected")
		return nil, false
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn().Err(err).Msg("decoding search response")
		return nil, false
	}

	entities := make([]Entity, 0, len(payload.DestinationEntities))
	for _, de := range payload.DestinationEntities {
		entities = append(entities, Entity{ID: de.ID, Title: de.Title.Value})
	}

	if raw, err := json.Marshal(entities); err == nil {
		if err := c.store.Put(key, raw); err != nil {
			c.logger.Warn().Err(err).Msg("caching search results")
		}
	}
	c.logger.Debug().Str("term", term).Int("results", len(entities)).Msg("search completed")
	return entities, true
}

// CacheSummary reports the state of the backing cache store.
func (c *Client) CacheSummary() (cache.Summary, error) {
	return c.store.Summary()
}
