package filestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestSaveBootstrap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "lastmatches.json")
	s := NewWithClock(fixedClock())

	res, err := s.Save(path, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, Bootstrap, res.Outcome)
	assert.Empty(t, res.ArchivedTo)

	data, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	archives, err := s.Archives(path)
	require.NoError(t, err)
	assert.Empty(t, archives)
}

func TestSaveUnchangedDiscardsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1_history.json")
	s := NewWithClock(fixedClock())

	_, err := s.Save(path, []byte(`[1]`))
	require.NoError(t, err)
	res, err := s.Save(path, []byte(`[1]`))
	require.NoError(t, err)

	assert.Equal(t, Unchanged, res.Outcome)
	archives, err := s.Archives(path)
	require.NoError(t, err)
	assert.Empty(t, archives)
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestSaveChangedArchivesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1_history.json")
	s := NewWithClock(fixedClock())

	_, err := s.Save(path, []byte(`[1]`))
	require.NoError(t, err)
	res, err := s.Save(path, []byte(`[2,1]`))
	require.NoError(t, err)
	assert.Equal(t, Changed, res.Outcome)
	require.NotEmpty(t, res.ArchivedTo)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "1_history_20240301T120001.000000000.json"), res.ArchivedTo)

	archived, err := os.ReadFile(res.ArchivedTo)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(archived))

	current, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, `[2,1]`, string(current))

	_, err = s.Save(path, []byte(`[3,2,1]`))
	require.NoError(t, err)
	archives, err := s.Archives(path)
	require.NoError(t, err)
	assert.Len(t, archives, 2)
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestArchivePathAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewWithClock(func() time.Time { return now })

	first := s.ArchivePath(path)
	require.NoError(t, os.WriteFile(first, []byte("x"), 0o644))
	second := s.ArchivePath(path)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(dir, "snap_20240301T120000.000000000_1.json"), second)
}

func TestReadMissing(t *testing.T) {
	s := New()
	_, err := s.Read(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ok, err := s.Exists(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*_new*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
