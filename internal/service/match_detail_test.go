package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"vintage-stats/internal/config"
	"vintage-stats/internal/filestore"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatchClient struct {
	bodies  map[int64][]byte
	players map[int64][]byte
	gets    int
	seeded  map[string][]byte
}

func (c *fakeMatchClient) GetPlayer(ctx context.Context, accountID int64) ([]byte, error) {
	c.gets++
	body, ok := c.players[accountID]
	if !ok {
		return nil, fmt.Errorf("player %d not found", accountID)
	}
	return body, nil
}

func (c *fakeMatchClient) PlayerURL(accountID int64) string {
	return fmt.Sprintf("https://api.opendota.com/api/players/%d", accountID)
}

func (c *fakeMatchClient) GetMatch(ctx context.Context, matchID int64) ([]byte, error) {
	c.gets++
	body, ok := c.bodies[matchID]
	if !ok {
		return nil, fmt.Errorf("match %d not found", matchID)
	}
	return body, nil
}

func (c *fakeMatchClient) MatchURL(matchID int64) string {
	return fmt.Sprintf("https://api.opendota.com/api/matches/%d", matchID)
}

func (c *fakeMatchClient) Seed(rawURL string, body []byte) {
	c.seeded[rawURL] = body
}

func TestMatchDetailFetchesOnceAcrossRuns(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	client := &fakeMatchClient{bodies: map[int64][]byte{42: []byte(`{"match_id":42}`)}, seeded: map[string][]byte{}}
	svc := NewMatchDetailService(cfg, filestore.New(), client, zerolog.Nop())
	ctx := context.Background()

	body, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_id":42}`, string(body))
	assert.Equal(t, 1, client.gets)
	assert.Equal(t, filepath.Join(cfg.DataDir, "matches", "42_data.json"), svc.Path(42))

	// a fresh service models the next process run
	next := NewMatchDetailService(cfg, filestore.New(), client, zerolog.Nop())
	body, err = next.Get(ctx, 42)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_id":42}`, string(body))
	assert.Equal(t, 1, client.gets)
	assert.Contains(t, client.seeded, client.MatchURL(42))
}

func TestMatchDetailRefetchesUnreadableFile(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	client := &fakeMatchClient{bodies: map[int64][]byte{7: []byte(`{"match_id":7}`)}, seeded: map[string][]byte{}}
	svc := NewMatchDetailService(cfg, filestore.New(), client, zerolog.Nop())

	require.NoError(t, os.MkdirAll(filepath.Dir(svc.Path(7)), 0o755))
	require.NoError(t, os.WriteFile(svc.Path(7), []byte(`{"match_id":`), 0o644))

	body, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_id":7}`, string(body))
	assert.Equal(t, 1, client.gets)
	assert.Empty(t, client.seeded)
}

func TestMatchDetailFetchError(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	client := &fakeMatchClient{bodies: map[int64][]byte{}, seeded: map[string][]byte{}}
	svc := NewMatchDetailService(cfg, filestore.New(), client, zerolog.Nop())

	_, err := svc.Get(context.Background(), 1)
	require.Error(t, err)
	_, statErr := os.Stat(svc.Path(1))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPlayerProfileFetchesOnceAcrossRuns(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	client := &fakeMatchClient{players: map[int64][]byte{5: []byte(`{"profile":{"account_id":5}}`)}, seeded: map[string][]byte{}}
	svc := NewMatchDetailService(cfg, filestore.New(), client, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Player(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.DataDir, "players", "5_data.json"), svc.PlayerPath(5))
	_, err = os.Stat(svc.PlayerPath(5))
	require.NoError(t, err)

	next := NewMatchDetailService(cfg, filestore.New(), client, zerolog.Nop())
	body, err := next.Player(ctx, 5)
	require.NoError(t, err)
	assert.JSONEq(t, `{"profile":{"account_id":5}}`, string(body))
	assert.Equal(t, 1, client.gets)
	assert.Contains(t, client.seeded, client.PlayerURL(5))
	assert.NotContains(t, client.seeded, client.MatchURL(5))
}
