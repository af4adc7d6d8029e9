package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chulobby-project/chulobby/internal/lobby"
)

func testStore(t *testing.T) *GameStore {
	t.Helper()
	gs, err := NewGameStore(filepath.Join(t.TempDir(), "game.db"))
	require.NoError(t, err)
	t.Cleanup(func() { gs.Close() })
	return gs
}

var testDevice = []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}

func TestAccountLifecycle(t *testing.T) {
	gs := testStore(t)

	known, err := gs.DeviceRegistered(testDevice)
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, gs.CreateAccount(testDevice, "alice", "secret"))

	known, err = gs.DeviceRegistered(testDevice)
	require.NoError(t, err)
	assert.True(t, known)

	taken, err := gs.UsernameTaken("alice")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = gs.UsernameTaken("bob")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestValidateLogin(t *testing.T) {
	gs := testStore(t)
	require.NoError(t, gs.CreateAccount(testDevice, "alice", "secret"))

	ok, err := gs.ValidateLogin("alice", "secret", testDevice)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gs.ValidateLogin("alice", "wrong", testDevice)
	require.NoError(t, err)
	assert.False(t, ok)

	// Credentials are bound to the console that registered them.
	ok, err = gs.ValidateLogin("alice", "secret", []byte{9, 9, 9, 9, 9, 9})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRankingRoundtrip(t *testing.T) {
	gs := testStore(t)
	require.NoError(t, gs.CreateAccount(testDevice, "alice", "secret"))

	st, err := gs.Ranking(testDevice, "alice")
	require.NoError(t, err)
	assert.Equal(t, lobby.RoundStats{}, st)

	want := lobby.RoundStats{Won: 12, Lost: 5, Total: 17}
	require.NoError(t, gs.UpdateRanking(testDevice, "alice", want))

	st, err = gs.Ranking(testDevice, "alice")
	require.NoError(t, err)
	assert.Equal(t, want, st)

	_, err = gs.Ranking(testDevice, "nobody")
	assert.Error(t, err)
}

func TestTopRanking(t *testing.T) {
	gs := testStore(t)
	require.NoError(t, gs.CreateAccount(testDevice, "alice", "a"))
	require.NoError(t, gs.CreateAccount([]byte{1, 1, 1, 1, 1, 1}, "bob", "b"))
	require.NoError(t, gs.UpdateRanking(testDevice, "alice", lobby.RoundStats{Won: 3, Lost: 1, Total: 4}))
	require.NoError(t, gs.UpdateRanking([]byte{1, 1, 1, 1, 1, 1}, "bob", lobby.RoundStats{Won: 9, Lost: 0, Total: 9}))

	table, err := gs.TopRanking()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "TOP 10 RANKING")
	assert.Contains(t, lines[2], "Username")
	// Sorted by rounds won.
	assert.True(t, strings.HasPrefix(lines[3], "bob"))
	assert.True(t, strings.HasPrefix(lines[4], "alice"))
}

func TestPuzzleStorage(t *testing.T) {
	gs := testStore(t)

	exists, err := gs.PuzzleExists("maze")
	require.NoError(t, err)
	assert.False(t, exists)

	blob := []byte("puzzle bytes")
	id, err := gs.InsertPuzzle("maze", "alice", blob)
	require.NoError(t, err)
	require.NotZero(t, id)

	exists, err = gs.PuzzleExists("maze")
	require.NoError(t, err)
	assert.True(t, exists)

	name, data, err := gs.PuzzleBlob(id)
	require.NoError(t, err)
	assert.Equal(t, "maze", name)
	assert.Equal(t, blob, data)

	require.NoError(t, gs.IncrementDownloads(id))
	list, err := gs.Puzzles()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "maze", list[0].Name)
	assert.Equal(t, "alice", list[0].Creator)
	assert.Equal(t, uint32(1), list[0].Downloads)

	_, _, err = gs.PuzzleBlob(9999)
	assert.Error(t, err)
}
