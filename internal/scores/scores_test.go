package scores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Tracker {
	t.Helper()
	tr, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestNewPlayerDefaults(t *testing.T) {
	tr := openMem(t)
	assert.Equal(t, Record{Autosave: true}, tr.Get("p1"))

	_, ok, err := tr.Stored("p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWinsAndLossesAutosave(t *testing.T) {
	tr := openMem(t)
	tr.RecordWin("p1", 300)
	tr.RecordLoss("p1")
	rec := tr.RecordWin("p1", 200)

	assert.Equal(t, Record{Highscore: 300, Wins: 2, Tries: 3, Autosave: true}, rec)

	stored, ok, err := tr.Stored("p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, stored)
}

func TestAutosaveOffDefersWrites(t *testing.T) {
	tr := openMem(t)
	_, err := tr.SetAutosave("p1", false)
	require.NoError(t, err)

	tr.RecordWin("p1", 500)
	stored, ok, err := tr.Stored("p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, stored.Wins)
	assert.False(t, stored.Autosave)

	saved, err := tr.Save("p1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Wins)

	stored, _, err = tr.Stored("p1")
	require.NoError(t, err)
	assert.Equal(t, Record{Highscore: 500, Wins: 1, Tries: 1}, stored)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	tr, err := Open(Config{Path: dir})
	require.NoError(t, err)
	tr.RecordWin("p1", 700)
	require.NoError(t, tr.Close())

	tr, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, Record{Highscore: 700, Wins: 1, Tries: 1, Autosave: true}, tr.Get("p1"))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	tr := openMem(t)
	tr.RecordWin("guest", 900)
	tr.RecordLoss("guest")
	tr.RecordWin("user", 100)

	rec, err := tr.Merge("guest", "user")
	require.NoError(t, err)
	assert.Equal(t, Record{Highscore: 900, Wins: 2, Tries: 3, Autosave: true}, rec)

	_, ok, err := tr.Stored("guest")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Record{Autosave: true}, tr.Get("guest"))
}
