package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"vintage-stats/internal/config"
	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
	cache   *RequestCache
	limiter *rate.Limiter
	live    atomic.Int64
	logger  zerolog.Logger

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	RemainingMinute int       `json:"remaining_minute"`
	RemainingDay    int       `json:"remaining_day"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Response struct {
	Status int
	Body   []byte
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = constants.DefaultRequestsPerMinute
	}
	return &Client{
		baseURL: cfg.OpenDotaBaseURL,
		apiKey:  cfg.OpenDotaAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		cache:   NewRequestCache(),
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1),
		logger:  logger,
		rateLimit: RateLimitInfo{
			RemainingMinute: perMinute,
			UpdatedAt:       time.Now(),
		},
	}
}

// LiveRequests counts outbound calls that did not come from the cache.
func (c *Client) LiveRequests() int64 {
	return c.live.Load()
}

func (c *Client) Cache() *RequestCache {
	return c.cache
}

func (c *Client) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *Client) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if remaining := string(resp.Header.Peek("X-Rate-Limit-Remaining-Minute")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.RemainingMinute = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Rate-Limit-Remaining-Day")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.RemainingDay = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// Get returns the memoized body for rawURL when present, otherwise performs a
// live call and remembers successful responses.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	key := cacheKey(fasthttp.MethodGet, rawURL)
	if body, ok := c.cache.Lookup(key); ok {
		c.logger.Debug().Str("endpoint", endpointOf(rawURL)).Msg("request cache hit")
		return &Response{Status: fasthttp.StatusOK, Body: body}, nil
	}
	resp, err := c.do(ctx, fasthttp.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	c.cache.Store(key, resp.Body)
	return resp, nil
}

// GetLive always goes to the network. The response still refreshes the cache
// so later cached reads of the same URL observe it.
func (c *Client) GetLive(ctx context.Context, rawURL string) (*Response, error) {
	resp, err := c.do(ctx, fasthttp.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	c.cache.Store(cacheKey(fasthttp.MethodGet, rawURL), resp.Body)
	return resp, nil
}

func (c *Client) Post(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, fasthttp.MethodPost, rawURL)
}

// Seed stores a body obtained elsewhere (e.g. a file cache) under rawURL.
func (c *Client) Seed(rawURL string, body []byte) {
	c.cache.Store(cacheKey(fasthttp.MethodGet, rawURL), body)
}

func (c *Client) PlayerMatchesURL(accountID int64, limit int) string {
	q := url.Values{}
	q.Set("significant", "0")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.withKey(fmt.Sprintf("%s/players/%d/matches", c.baseURL, accountID), q)
}

func (c *Client) RecentMatchesURL(accountID int64) string {
	return c.withKey(fmt.Sprintf("%s/players/%d/recentMatches", c.baseURL, accountID), url.Values{})
}

func (c *Client) RequestParseURL(matchID int64) string {
	return c.withKey(fmt.Sprintf("%s/request/%d", c.baseURL, matchID), url.Values{})
}

func (c *Client) MatchURL(matchID int64) string {
	return c.withKey(fmt.Sprintf("%s/matches/%d", c.baseURL, matchID), url.Values{})
}

func (c *Client) PlayerURL(accountID int64) string {
	return c.withKey(fmt.Sprintf("%s/players/%d", c.baseURL, accountID), url.Values{})
}

func (c *Client) withKey(base string, q url.Values) string {
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// GetPlayerMatches fetches up to limit most recent matches, bypassing the cache.
func (c *Client) GetPlayerMatches(ctx context.Context, accountID int64, limit int) ([]domain.MatchSummary, error) {
	u := c.PlayerMatchesURL(accountID, limit)
	resp, err := c.GetLive(ctx, u)
	if err != nil {
		return nil, err
	}
	return decodeMatches(fasthttp.MethodGet, endpointOf(u), resp.Body)
}

// GetRecentMatches returns the decoded feed along with the raw body so callers
// can keep an exact copy on disk.
func (c *Client) GetRecentMatches(ctx context.Context, accountID int64) ([]domain.MatchSummary, []byte, error) {
	u := c.RecentMatchesURL(accountID)
	resp, err := c.GetLive(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	matches, err := decodeMatches(fasthttp.MethodGet, endpointOf(u), resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return matches, resp.Body, nil
}

func (c *Client) RequestParse(ctx context.Context, matchID int64) (*Response, error) {
	return c.Post(ctx, c.RequestParseURL(matchID))
}

func (c *Client) GetMatch(ctx context.Context, matchID int64) ([]byte, error) {
	resp, err := c.Get(ctx, c.MatchURL(matchID))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) GetPlayer(ctx context.Context, accountID int64) ([]byte, error) {
	resp, err := c.Get(ctx, c.PlayerURL(accountID))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*Response, error) {
	endpoint := endpointOf(rawURL)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("%w: rate limiter: %w", ErrNotSent, err)}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(method)

	live := c.live.Add(1)
	c.logger.Debug().Str("method", method).Str("endpoint", endpoint).Int64("live_requests", live).Msg("live request")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, constants.ExternalAPITimeout)
	}
	if err != nil {
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: err}
	}

	c.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &TransportError{
			Method:   method,
			Endpoint: endpoint,
			Status:   resp.StatusCode(),
			Err:      errors.New("unexpected status"),
		}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return &Response{Status: resp.StatusCode(), Body: body}, nil
}

func decodeMatches(method, endpoint string, body []byte) ([]domain.MatchSummary, error) {
	var matches []domain.MatchSummary
	if err := json.Unmarshal(body, &matches); err != nil {
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("decode matches: %w", err)}
	}
	if len(matches) == 0 {
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: ErrEmptyResponse}
	}
	return matches, nil
}

func endpointOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
