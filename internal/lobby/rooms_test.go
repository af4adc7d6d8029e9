package lobby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chulobby-project/chulobby/internal/protocol"
)

func testState() *State {
	return NewState(Caps{MaxClients: 8, MaxRooms: 4, MaxPuzzles: 8, SeatsPerRoom: 4})
}

func seatedPlayer(clientID uint32, name string) *Player {
	p := NewPlayer(clientID, 0x0a000000+clientID, nopOutbox{})
	p.Name = name
	p.DeviceID = deviceFor(clientID)
	p.Authorized = true
	return p
}

func TestSeedStaticRooms(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)

	require.NotNil(t, s.rooms[0])
	assert.Equal(t, "PSO Room", s.rooms[0].Name)
	assert.Equal(t, "Admin", s.rooms[0].Creator)
	assert.Equal(t, protocol.RoomItemBase, s.rooms[0].ItemID)
	assert.True(t, s.rooms[0].Static)
	for i := 1; i < 4; i++ {
		require.NotNil(t, s.rooms[i], "room slot %d", i)
	}
}

func TestSeedStaticRoomsDeedee(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(true)

	require.NotNil(t, s.rooms[0])
	require.NotNil(t, s.rooms[1])
	assert.Equal(t, "Sonic Room", s.rooms[1].Name)
	assert.Nil(t, s.rooms[2])
}

func TestCompactSeatsShiftsOneStep(t *testing.T) {
	a, b, c := seatedPlayer(1, "a"), seatedPlayer(2, "b"), seatedPlayer(3, "c")
	seats := []*Player{nil, a, nil, b}
	compactSeats(seats)
	assert.Equal(t, []*Player{a, nil, b, nil}, seats)

	seats = []*Player{a, nil, b, c}
	compactSeats(seats)
	assert.Equal(t, []*Player{a, b, c, nil}, seats)
}

func TestPurgeSeatsDropsGhostsAndDuplicates(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)
	r := s.rooms[0]

	ghost := seatedPlayer(5, "")
	stale := seatedPlayer(6, "alice")
	other := seatedPlayer(7, "bob")
	r.Seats[0], r.Seats[1], r.Seats[2] = ghost, stale, other
	r.TakenSeats = 3

	// Same console as the stale seat holder reconnects and joins again.
	joiner := seatedPlayer(8, "alice")
	joiner.DeviceID = stale.DeviceID
	require.True(t, s.joinRoom(r, joiner))

	// One compaction pass leaves seat zero open, so the joiner takes it.
	assert.Equal(t, 2, r.TakenSeats)
	assert.Same(t, joiner, r.Seats[0])
	assert.Same(t, other, r.Seats[1])
}

func TestCreateRoomUsesFirstFreeSlot(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(true) // slots 0 and 1 taken

	r := s.createRoom("My Room", "", "alice")
	require.NotNil(t, r)
	assert.Equal(t, protocol.RoomItemBase+2, r.ItemID)
	assert.Same(t, r, s.rooms[2])
	assert.False(t, r.Static)
	assert.Equal(t, protocol.IconTeam, r.LIcon)
}

func TestCreateRoomFailsWhenTableFull(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false) // all four slots

	assert.Nil(t, s.createRoom("No Space", "", "alice"))
}

func TestReapStaleRooms(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(true)

	old := s.createRoom("Old", "", "alice")
	require.NotNil(t, old)
	fresh := s.createRoom("Fresh", "", "bob")
	require.NotNil(t, fresh)
	old.CreatedAt = time.Now().Add(-25 * time.Hour)

	assert.Equal(t, 1, s.reapStaleRooms(time.Now()))
	assert.Nil(t, s.roomByItemID(old.ItemID))
	// Compaction moved the fresh room into the freed slot.
	assert.Same(t, fresh, s.rooms[2])
}

func TestReapSparesOccupiedAndStaticRooms(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(true)
	s.rooms[0].CreatedAt = time.Now().Add(-48 * time.Hour)

	occupied := s.createRoom("Busy", "", "alice")
	require.NotNil(t, occupied)
	occupied.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.True(t, s.joinRoom(occupied, seatedPlayer(1, "alice")))

	assert.Equal(t, 0, s.reapStaleRooms(time.Now()))
}

func TestLeaveRoomCompacts(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)
	r := s.rooms[0]

	a, b := seatedPlayer(1, "a"), seatedPlayer(2, "b")
	require.True(t, s.joinRoom(r, a))
	require.True(t, s.joinRoom(r, b))

	assert.Same(t, r, s.leaveRoom(a))
	assert.Equal(t, 1, r.TakenSeats)
	assert.Same(t, b, r.Seats[0])

	assert.Nil(t, s.leaveRoom(a), "second leave finds no seat")
}

func TestRosterReplicatesControllers(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)
	r := s.rooms[0]

	couch := seatedPlayer(1, "couch")
	couch.Controllers = 2
	solo := seatedPlayer(2, "solo")
	require.True(t, s.joinRoom(r, couch))
	require.True(t, s.joinRoom(r, solo))

	entries := r.roster()
	require.Len(t, entries, 3)
	assert.Equal(t, "couch", entries[0].Name)
	assert.Equal(t, "couch", entries[1].Name)
	assert.Equal(t, "solo", entries[2].Name)
}

func TestRosterSkipsReplicationWhenLastSeatOverflows(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)
	r := s.rooms[0]

	for i := uint32(1); i <= 3; i++ {
		require.True(t, s.joinRoom(r, seatedPlayer(i, "p")))
	}
	greedy := seatedPlayer(9, "greedy")
	greedy.Controllers = 4
	require.True(t, s.joinRoom(r, greedy))

	// The extra controller entries do not fit, so the console gets its one
	// base line and nothing more.
	entries := r.roster()
	require.Len(t, entries, 4)
	assert.Equal(t, "greedy", entries[3].Name)
}

// The overflow check only guards the replicated entries, so a
// multi-controller console seated before the end can push the roster past
// the seat count while its extras still fit.
func TestRosterMidSeatReplicationOverflows(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)
	r := s.rooms[0]

	require.True(t, s.joinRoom(r, seatedPlayer(1, "a")))
	couch := seatedPlayer(2, "couch")
	couch.Controllers = 3
	require.True(t, s.joinRoom(r, couch))
	require.True(t, s.joinRoom(r, seatedPlayer(3, "c")))

	entries := r.roster()
	require.Len(t, entries, 5)
	assert.Equal(t, "c", entries[4].Name)
}

// When the mid-seat extras do not fit, replication stops the whole walk and
// later occupants are dropped from the roster.
func TestRosterMidSeatOverflowDropsLaterSeats(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)
	r := s.rooms[0]

	require.True(t, s.joinRoom(r, seatedPlayer(1, "a")))
	greedy := seatedPlayer(2, "greedy")
	greedy.Controllers = 4
	require.True(t, s.joinRoom(r, greedy))
	require.True(t, s.joinRoom(r, seatedPlayer(3, "c")))

	entries := r.roster()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "greedy", entries[1].Name)
}

func TestClearSeatsBarsRankingFlush(t *testing.T) {
	s := testState()
	s.SeedStaticRooms(false)
	r := s.rooms[0]

	a, b := seatedPlayer(1, "a"), seatedPlayer(2, "b")
	require.True(t, s.joinRoom(r, a))
	require.True(t, s.joinRoom(r, b))

	r.clearSeats()
	assert.Equal(t, 0, r.TakenSeats)
	assert.False(t, a.StoreRanking)
	assert.False(t, b.StoreRanking)
	for _, seat := range r.Seats {
		assert.Nil(t, seat)
	}
}
