package lobby

import (
	"sync"
	"time"
)

// Caps are the fixed capacities of the lobby. Slots are allocated up front;
// the lobby never grows past them.
type Caps struct {
	MaxClients   int
	MaxRooms     int
	MaxPuzzles   int
	SeatsPerRoom int
}

// Puzzle is one catalog entry. The blob itself stays in the database and is
// fetched on download.
type Puzzle struct {
	ID        uint32
	Name      string
	Creator   string
	Downloads uint32
}

// State is the shared lobby state. One mutex guards everything; operations
// hold it for a whole message dispatch so invariants hold across the
// multi-step transitions (join checks, rollbacks, broadcast snapshots).
type State struct {
	mu      sync.Mutex
	caps    Caps
	players []*Player
	rooms   []*Room
	puzzles []*Puzzle
}

// NewState allocates the slot tables.
func NewState(caps Caps) *State {
	return &State{
		caps:    caps,
		players: make([]*Player, caps.MaxClients),
		rooms:   make([]*Room, caps.MaxRooms),
		puzzles: make([]*Puzzle, caps.MaxPuzzles),
	}
}

// AddPlayer registers a freshly accepted connection into the first free
// slot. Returns false when the lobby is full.
func (s *State) AddPlayer(p *Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.players {
		if s.players[i] == nil {
			s.players[i] = p
			return true
		}
	}
	return false
}

// removePlayer clears the player's slot. Lock held by caller.
func (s *State) removePlayer(p *Player) {
	for i := range s.players {
		if s.players[i] != nil && s.players[i].ClientID == p.ClientID {
			s.players[i] = nil
		}
	}
}

// playerByClientID finds a connected player. Lock held by caller.
func (s *State) playerByClientID(id uint32) *Player {
	for _, pl := range s.players {
		if pl != nil && pl.ClientID == id {
			return pl
		}
	}
	return nil
}

// authorizedPlayers returns the players that completed the lobby login.
// Lock held by caller.
func (s *State) authorizedPlayers() []*Player {
	var out []*Player
	for _, pl := range s.players {
		if pl != nil && pl.Authorized {
			out = append(out, pl)
		}
	}
	return out
}

// playerNames returns the usernames of all authorized players. Lock held
// by caller.
func (s *State) playerNames() []string {
	var names []string
	for _, pl := range s.players {
		if pl != nil && pl.Authorized {
			names = append(names, pl.Name)
		}
	}
	return names
}

// LoadPuzzles fills the catalog from the database at startup.
func (s *State) LoadPuzzles(list []Puzzle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range list {
		if i >= len(s.puzzles) {
			break
		}
		p := list[i]
		s.puzzles[i] = &p
	}
}

// addPuzzle appends an uploaded puzzle to the catalog. Lock held by caller.
func (s *State) addPuzzle(p Puzzle) bool {
	for i := range s.puzzles {
		if s.puzzles[i] == nil {
			s.puzzles[i] = &p
			return true
		}
	}
	return false
}

// puzzleByID finds a catalog entry. Lock held by caller.
func (s *State) puzzleByID(id uint32) *Puzzle {
	for _, pz := range s.puzzles {
		if pz != nil && pz.ID == id {
			return pz
		}
	}
	return nil
}

// PlayerInfo is a read-only snapshot row for the admin surfaces.
type PlayerInfo struct {
	ClientID    uint32 `json:"client_id"`
	Name        string `json:"name"`
	Menu        string `json:"menu"`
	Controllers uint8  `json:"controllers"`
	Authorized  bool   `json:"authorized"`
	Won         uint32 `json:"won_rounds"`
	Lost        uint32 `json:"lost_rounds"`
	Total       uint32 `json:"total_rounds"`
}

// RoomInfo is a read-only snapshot row for the admin surfaces.
type RoomInfo struct {
	Name      string    `json:"name"`
	Creator   string    `json:"creator"`
	ItemID    uint32    `json:"item_id"`
	Seats     int       `json:"taken_seats"`
	Static    bool      `json:"static"`
	Protected bool      `json:"password_protected"`
	CreatedAt time.Time `json:"created_at"`
}

// PuzzleInfo is a read-only snapshot row for the admin surfaces.
type PuzzleInfo struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Creator   string `json:"creator"`
	Downloads uint32 `json:"downloads"`
}

// PlayersSnapshot returns a copy of the connected player table.
func (s *State) PlayersSnapshot() []PlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlayerInfo, 0)
	for _, pl := range s.players {
		if pl == nil {
			continue
		}
		out = append(out, PlayerInfo{
			ClientID:    pl.ClientID,
			Name:        pl.Name,
			Menu:        pl.Menu.String(),
			Controllers: pl.Controllers,
			Authorized:  pl.Authorized,
			Won:         pl.Session.Won + pl.Persisted.Won,
			Lost:        pl.Session.Lost + pl.Persisted.Lost,
			Total:       pl.Session.Total + pl.Persisted.Total,
		})
	}
	return out
}

// RoomsSnapshot returns a copy of the room table.
func (s *State) RoomsSnapshot() []RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RoomInfo, 0)
	for _, r := range s.rooms {
		if r == nil {
			continue
		}
		out = append(out, RoomInfo{
			Name:      r.Name,
			Creator:   r.Creator,
			ItemID:    r.ItemID,
			Seats:     r.TakenSeats,
			Static:    r.Static,
			Protected: r.PasswordProtected(),
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// PuzzlesSnapshot returns a copy of the puzzle catalog.
func (s *State) PuzzlesSnapshot() []PuzzleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PuzzleInfo, 0)
	for _, pz := range s.puzzles {
		if pz == nil {
			continue
		}
		out = append(out, PuzzleInfo{
			ID:        pz.ID,
			Name:      pz.Name,
			Creator:   pz.Creator,
			Downloads: pz.Downloads,
		})
	}
	return out
}

// Counts returns the number of connected players and live rooms.
func (s *State) Counts() (players, rooms int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pl := range s.players {
		if pl != nil {
			players++
		}
	}
	for _, r := range s.rooms {
		if r != nil {
			rooms++
		}
	}
	return players, rooms
}
