package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"vintage-stats/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matchesBody = `[
	{"match_id": 7, "start_time": 300, "kills": 1, "deaths": 2, "assists": 3, "player_slot": 1, "radiant_win": true, "version": null},
	{"match_id": 6, "start_time": 200, "player_slot": 130, "radiant_win": true, "version": 21}
]`

type fakeOpenDota struct {
	server *httptest.Server
	hits   map[string]*atomic.Int64
}

func newFakeOpenDota(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *fakeOpenDota {
	t.Helper()
	f := &fakeOpenDota{hits: make(map[string]*atomic.Int64)}
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		counter := &atomic.Int64{}
		f.hits[pattern] = counter
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			counter.Add(1)
			handler(w, r)
		})
	}
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(baseURL, apiKey string) *Client {
	return NewClient(&config.Config{
		OpenDotaBaseURL:   baseURL + "/api",
		OpenDotaAPIKey:    apiKey,
		RequestsPerMinute: 60000,
	}, zerolog.Nop())
}

func TestGetCachesAndCountsOnlyLiveCalls(t *testing.T) {
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/matches/42": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"match_id": 42}`))
		},
	})
	c := newTestClient(f.server.URL, "")
	ctx := context.Background()

	first, err := c.GetMatch(ctx, 42)
	require.NoError(t, err)
	second, err := c.GetMatch(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), c.LiveRequests())
	assert.Equal(t, int64(1), f.hits["GET /api/matches/42"].Load())
	assert.Equal(t, int64(1), c.Cache().Hits())
}

func TestGetLiveAlwaysCountsAndRefreshesCache(t *testing.T) {
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/players/1/recentMatches": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(matchesBody))
		},
	})
	c := newTestClient(f.server.URL, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		matches, raw, err := c.GetRecentMatches(ctx, 1)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.JSONEq(t, matchesBody, string(raw))
	}
	assert.Equal(t, int64(3), c.LiveRequests())
	assert.Equal(t, int64(3), f.hits["GET /api/players/1/recentMatches"].Load())

	_, err := c.Get(ctx, c.RecentMatchesURL(1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.LiveRequests(), "cached read after a live call must not hit the network")
}

func TestGetPlayerMatchesDecodesDetailStatus(t *testing.T) {
	var gotQuery string
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/players/1/matches": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(matchesBody))
		},
	})
	c := newTestClient(f.server.URL, "secret")

	matches, err := c.GetPlayerMatches(context.Background(), 1, 40)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.False(t, matches[0].Version.IsResolved())
	assert.True(t, matches[1].Version.IsResolved())
	assert.Equal(t, "21", matches[1].Version.Value())
	assert.Contains(t, gotQuery, "limit=40")
	assert.Contains(t, gotQuery, "significant=0")
	assert.Contains(t, gotQuery, "api_key=secret")
}

func TestPostIsNeverCached(t *testing.T) {
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /api/request/100": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"job": {"jobId": 1}}`))
		},
	})
	c := newTestClient(f.server.URL, "")

	for i := 0; i < 2; i++ {
		resp, err := c.RequestParse(context.Background(), 100)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
	}
	assert.Equal(t, int64(2), f.hits["POST /api/request/100"].Load())
	assert.Equal(t, int64(2), c.LiveRequests())
	assert.Zero(t, c.Cache().Len())
}

func TestNon200IsTransportError(t *testing.T) {
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/players/1/recentMatches": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
	})
	c := newTestClient(f.server.URL, "secret")

	_, _, err := c.GetRecentMatches(context.Background(), 1)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusTooManyRequests, te.Status)
	assert.Equal(t, "/api/players/1/recentMatches", te.Endpoint)
	assert.NotContains(t, err.Error(), "secret")
	assert.Equal(t, int64(1), c.LiveRequests())
	assert.Zero(t, c.Cache().Len(), "failed responses are not cached")
}

func TestEmptyListIsTransportError(t *testing.T) {
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/players/1/matches": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
	})
	c := newTestClient(f.server.URL, "")

	_, err := c.GetPlayerMatches(context.Background(), 1, 1)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestSeedServesWithoutNetwork(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "")
	c.Seed(c.MatchURL(9), []byte(`{"match_id": 9}`))

	body, err := c.GetMatch(context.Background(), 9)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_id": 9}`, string(body))
	assert.Zero(t, c.LiveRequests())
}

func TestRateLimitHeadersRecorded(t *testing.T) {
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/matches/1": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Rate-Limit-Remaining-Minute", "57")
			w.Header().Set("X-Rate-Limit-Remaining-Day", "1999")
			_, _ = w.Write([]byte(`{}`))
		},
	})
	c := newTestClient(f.server.URL, "")

	_, err := c.GetMatch(context.Background(), 1)
	require.NoError(t, err)
	info := c.GetRateLimitInfo()
	assert.Equal(t, 57, info.RemainingMinute)
	assert.Equal(t, 1999, info.RemainingDay)
}

func TestGetPlayerIsCached(t *testing.T) {
	f := newFakeOpenDota(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/players/5": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"profile":{"account_id":5}}`))
		},
	})
	c := newTestClient(f.server.URL, "")
	ctx := context.Background()

	for range 2 {
		body, err := c.GetPlayer(ctx, 5)
		require.NoError(t, err)
		assert.JSONEq(t, `{"profile":{"account_id":5}}`, string(body))
	}
	assert.Equal(t, int64(1), f.hits["GET /api/players/5"].Load())
	assert.Equal(t, f.server.URL+"/api/players/5", c.PlayerURL(5))
}

func TestCancelledWaitIsNotSent(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RequestParse(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSent)
	assert.Zero(t, c.LiveRequests())
}
