package lobby

import (
	"time"

	"github.com/chulobby-project/chulobby/internal/protocol"
)

// Room is one game room. Seats are compacted towards index zero; the
// console renders occupants in seat order.
type Room struct {
	Name     string
	Password string
	Creator  string
	ItemID   uint32
	LIcon    protocol.Icon
	RIcon    protocol.Icon

	Static     bool // seeded at startup, never reaped
	CreatedAt  time.Time
	Seats      []*Player
	TakenSeats int
}

// PasswordProtected reports whether joining requires a password.
func (r *Room) PasswordProtected() bool {
	return r.Password != ""
}

// staleAfter is how long an empty player-created room survives.
const staleAfter = 24 * time.Hour

var staticRooms = []struct {
	name  string
	rIcon protocol.Icon
}{
	{"PSO Room", protocol.IconPSO},
	{"Sonic Room", protocol.IconSonic},
	{"Mice Room", protocol.IconMice},
	{"Cat Room", protocol.IconMice},
	{"Team Room", protocol.IconDD},
}

// SeedStaticRooms creates the permanent rooms at startup. Dee Dee mode runs
// a smaller lobby and only gets the first two.
func (s *State) SeedStaticRooms(deedee bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(staticRooms)
	if deedee {
		n = 2
	}
	for i := 0; i < n && i < len(s.rooms); i++ {
		if s.rooms[i] != nil {
			continue
		}
		s.rooms[i] = &Room{
			Name:      staticRooms[i].name,
			Creator:   "Admin",
			ItemID:    protocol.RoomItemBase + uint32(i),
			LIcon:     protocol.IconTeam,
			RIcon:     staticRooms[i].rIcon,
			Static:    true,
			CreatedAt: time.Now(),
			Seats:     make([]*Player, s.caps.SeatsPerRoom),
		}
	}
}

// roomByItemID finds a room by its menu item id. Lock held by caller.
func (s *State) roomByItemID(itemID uint32) *Room {
	for _, r := range s.rooms {
		if r != nil && r.ItemID == itemID {
			return r
		}
	}
	return nil
}

// compactSeats shifts occupants one step towards seat zero. A single pass
// matches what the console expects after one departure; multiple holes are
// closed across subsequent room changes.
func compactSeats(seats []*Player) {
	for i := 1; i < len(seats); i++ {
		if seats[i-1] == nil {
			seats[i-1] = seats[i]
			seats[i] = nil
		}
	}
}

// purgeSeats drops ghost occupants (no username, left over from a timed out
// pre-login connection) and any previous seat held by the same console,
// then compacts. Called before every join. Lock held by caller.
func (r *Room) purgeSeats(joiner *Player) {
	found := false
	for i, pl := range r.Seats {
		if pl == nil {
			continue
		}
		if pl.Name == "" || pl.DeviceID == joiner.DeviceID {
			r.Seats[i] = nil
			r.TakenSeats--
			found = true
		}
	}
	if found {
		compactSeats(r.Seats)
	}
}

// joinRoom seats the player. Capacity is checked by the caller before the
// transition so a rejection can roll the menu position back. Lock held by
// caller.
func (s *State) joinRoom(r *Room, p *Player) bool {
	r.purgeSeats(p)
	for i := range r.Seats {
		if r.Seats[i] == nil {
			r.Seats[i] = p
			r.TakenSeats++
			return true
		}
	}
	return false
}

// leaveRoom removes the player from whichever room holds a seat for them
// and returns that room, or nil. Lock held by caller.
func (s *State) leaveRoom(p *Player) *Room {
	for _, r := range s.rooms {
		if r == nil {
			continue
		}
		for i, pl := range r.Seats {
			if pl != nil && pl.ClientID == p.ClientID {
				r.Seats[i] = nil
				r.TakenSeats--
				compactSeats(r.Seats)
				return r
			}
		}
	}
	return nil
}

// reapStaleRooms frees empty player-created rooms older than staleAfter and
// compacts the room table one step. Runs before every room creation so the
// table cannot fill up with abandoned rooms. Lock held by caller.
func (s *State) reapStaleRooms(now time.Time) int {
	reaped := 0
	for i, r := range s.rooms {
		if r == nil || r.Static {
			continue
		}
		if r.TakenSeats == 0 && now.Sub(r.CreatedAt) >= staleAfter {
			s.rooms[i] = nil
			reaped++
		}
	}
	for i := 1; i < len(s.rooms); i++ {
		if s.rooms[i-1] == nil {
			s.rooms[i-1] = s.rooms[i]
			s.rooms[i] = nil
		}
	}
	return reaped
}

// ReapRooms frees abandoned player rooms. Called periodically by the
// background scheduler so stale rooms do not linger between creations.
func (s *State) ReapRooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reapStaleRooms(time.Now())
}

// createRoom allocates a player room in the first free slot. The item id is
// derived from the slot index. Lock held by caller.
func (s *State) createRoom(name, password, creator string) *Room {
	s.reapStaleRooms(time.Now())

	if name == "" {
		return nil
	}
	for i := range s.rooms {
		if s.rooms[i] != nil {
			continue
		}
		r := &Room{
			Name:      name,
			Password:  password,
			Creator:   creator,
			ItemID:    protocol.RoomItemBase + uint32(i),
			LIcon:     protocol.IconTeam,
			RIcon:     protocol.IconMice,
			CreatedAt: time.Now(),
			Seats:     make([]*Player, s.caps.SeatsPerRoom),
		}
		s.rooms[i] = r
		return r
	}
	return nil
}

// roster builds the start-game entries for a room. A console that declared
// several controllers is replicated so every local player gets a roster
// line. Replication that would run past the seat count stops the walk
// instead of trimming, so a mid-seat multi-controller console can still
// push the roster past the seat count when its extras fit.
func (r *Room) roster() []protocol.RosterEntry {
	var entries []protocol.RosterEntry
	seatCap := len(r.Seats)
	for _, pl := range r.Seats {
		if pl == nil {
			continue
		}
		entry := protocol.RosterEntry{
			DeviceID: pl.DeviceID,
			IP:       pl.IP,
			Name:     pl.Name,
		}
		entries = append(entries, entry)
		if pl.Controllers > 1 {
			extra := int(pl.Controllers) - 1
			if len(entries)+extra > seatCap {
				break
			}
			for j := 0; j < extra; j++ {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// occupants returns the seated players in order. Lock held by caller.
func (r *Room) occupants() []*Player {
	var out []*Player
	for _, pl := range r.Seats {
		if pl != nil {
			out = append(out, pl)
		}
	}
	return out
}

// occupantNames returns the usernames of the seated players.
func (r *Room) occupantNames() []string {
	var out []string
	for _, pl := range r.Seats {
		if pl != nil {
			out = append(out, pl.Name)
		}
	}
	return out
}

// clearSeats empties the room after a game start; the occupants reconnect
// through the login flow when the game ends.
func (r *Room) clearSeats() {
	for i := range r.Seats {
		if r.Seats[i] != nil {
			r.Seats[i].StoreRanking = false
			r.Seats[i] = nil
			r.TakenSeats--
		}
	}
}
