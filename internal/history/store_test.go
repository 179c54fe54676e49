package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vintage-stats/internal/config"
	"vintage-stats/internal/domain"
	"vintage-stats/internal/filestore"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	matches []domain.MatchSummary
	err     error
	calls   int
	limit   int
}

func (f *fakeFetcher) GetPlayerMatches(ctx context.Context, accountID int64, limit int) ([]domain.MatchSummary, error) {
	f.calls++
	f.limit = limit
	return f.matches, f.err
}

func newTestStore(t *testing.T, fetcher MatchFetcher) *Store {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir()}
	return NewStore(cfg, filestore.New(), fetcher, zerolog.Nop())
}

func summaries(ids ...int64) []domain.MatchSummary {
	out := make([]domain.MatchSummary, len(ids))
	for i, id := range ids {
		out[i] = domain.MatchSummary{MatchID: id, StartTime: id * 100, Version: domain.Resolved("21")}
	}
	return out
}

var account = domain.Account{ID: 67712324, Nick: "Fazy"}

func TestLoadAbsentFetchesAndPersists(t *testing.T) {
	fetcher := &fakeFetcher{matches: summaries(5, 4, 3)}
	s := newTestStore(t, fetcher)

	history, err := s.Load(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountHistory(summaries(5, 4, 3)), history)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 40, fetcher.limit)

	_, err = os.Stat(s.Path(account.ID))
	require.NoError(t, err)

	again, err := s.Load(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, history, again)
	assert.Equal(t, 1, fetcher.calls, "a stored history must not be refetched")
}

func TestLoadCorruptRefetches(t *testing.T) {
	cases := map[string]string{
		"not json":     `{{{`,
		"not an array": `{"match_id": 1}`,
		"missing id":   `[{"kills": 3}]`,
		"empty file":   ``,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			fetcher := &fakeFetcher{matches: summaries(9)}
			s := newTestStore(t, fetcher)
			path := s.Path(account.ID)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			history, err := s.Load(context.Background(), account)
			require.NoError(t, err)
			assert.Equal(t, domain.AccountHistory(summaries(9)), history)
			assert.Equal(t, 1, fetcher.calls)
		})
	}
}

func TestLoadFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	s := newTestStore(t, fetcher)

	_, err := s.Load(context.Background(), account)
	require.Error(t, err)
	_, statErr := os.Stat(s.Path(account.ID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveCapsToNewest(t *testing.T) {
	s := newTestStore(t, &fakeFetcher{})
	ids := make([]int64, 45)
	for i := range ids {
		ids[i] = int64(100 - i)
	}

	_, err := s.Save(account, summaries(ids...))
	require.NoError(t, err)

	history, err := s.Load(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, history, 40)
	assert.Equal(t, int64(100), history[0].MatchID)
	assert.Equal(t, int64(61), history[39].MatchID)
}

func TestSaveRoundTrip(t *testing.T) {
	s := newTestStore(t, &fakeFetcher{})
	party := 2
	in := domain.AccountHistory{
		{MatchID: 3, Kills: 10, Deaths: 1, Assists: 4, PartySize: &party, PlayerSlot: 131, Version: domain.Requested()},
		{MatchID: 2, RadiantWin: true, Version: domain.Unparsed()},
		{MatchID: 1, GameMode: 22, Version: domain.Resolved("21")},
	}

	res, err := s.Save(account, in)
	require.NoError(t, err)
	assert.Equal(t, filestore.Bootstrap, res.Outcome)

	out, err := s.Load(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	res, err = s.Save(account, out)
	require.NoError(t, err)
	assert.Equal(t, filestore.Unchanged, res.Outcome)
}

func TestSaveRecentKeepsRawBody(t *testing.T) {
	s := newTestStore(t, &fakeFetcher{})
	raw := []byte(`[{"match_id":1,"extra":"kept"}]`)

	_, err := s.SaveRecent(account, raw)
	require.NoError(t, err)

	data, err := os.ReadFile(s.RecentPath(account.ID))
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestDecodeRejectsCorrupt(t *testing.T) {
	_, err := Decode([]byte(`[{"kills":1}]`))
	assert.ErrorIs(t, err, ErrCorrupt)

	history, err := Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, history)
}
