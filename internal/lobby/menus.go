package lobby

import (
	"github.com/chulobby-project/chulobby/internal/protocol"
)

// Menu payload builders. All run with the state lock held so the listings
// are consistent snapshots. Each menu item names the menu the selection
// navigates to; the first row is the title and is excluded from the entry
// count by the protocol builder.

func (s *State) serverMenu(deedee bool) ([]byte, error) {
	m := protocol.NewMenuList()
	if deedee {
		m.AddItem(protocol.MenuServer, 0x00, protocol.IconServer, protocol.IconEmpty, "Dee Dee Server", false)
	} else {
		m.AddItem(protocol.MenuServer, 0x00, protocol.IconServer, protocol.IconEmpty, "ChuChu Server", false).
			AddItem(protocol.MenuServer, 0xdd, protocol.IconMemo, protocol.IconEmpty, "Top News", false).
			AddItem(protocol.MenuServer, 0xcc, protocol.IconMemo, protocol.IconEmpty, "Top Ranking", false)
	}
	m.AddItem(protocol.MenuRoom, 0x00, protocol.IconDoor, protocol.IconEmpty, "Game Rooms", false)
	if !deedee {
		m.AddItem(protocol.MenuPuzzleLand, 0x00, protocol.IconDoor, protocol.IconEmpty, "Puzzle Land", false)
	}
	return m.Finish()
}

func (s *State) roomMenu() ([]byte, error) {
	m := protocol.NewMenuList().
		AddItem(protocol.MenuRoom, 0x00, protocol.IconDoor, protocol.IconEmpty, "Game Rooms", false).
		AddItem(protocol.MenuServer, 0xee, protocol.IconExit, protocol.IconEmpty, "Exit", false).
		AddItem(protocol.MenuRoom, 0xcc, protocol.IconCreateTeam, protocol.IconEmpty, "Create Game Room", false)

	for _, r := range s.rooms {
		if r != nil {
			m.AddItem(protocol.MenuGame, r.ItemID, r.LIcon, r.RIcon, r.Name, r.PasswordProtected())
		}
	}
	// Players browsing the room list show up as entries too.
	for _, pl := range s.players {
		if pl != nil && pl.Authorized && pl.Menu == protocol.MenuRoom {
			m.AddItem(protocol.MenuRoom, pl.ClientID, protocol.IconGuy, protocol.IconMice, pl.Name, false)
		}
	}
	return m.Finish()
}

// roomMenuAudience is everyone who currently sees the room list; they all
// get the refreshed listing so new rooms and browsers appear live.
func (s *State) roomMenuAudience() []*Player {
	var out []*Player
	for _, pl := range s.players {
		if pl != nil && pl.Authorized && pl.Menu == protocol.MenuRoom {
			out = append(out, pl)
		}
	}
	return out
}

func gameMenu(r *Room) ([]byte, error) {
	m := protocol.NewMenuList().
		AddItem(protocol.MenuGame, r.ItemID, protocol.IconTeam, protocol.IconEmpty, r.Name, false).
		AddItem(protocol.MenuRoom, 0xee, protocol.IconExit, protocol.IconEmpty, "Exit", false).
		AddItem(protocol.MenuGame, 0xff, protocol.IconGo, protocol.IconEmpty, "Start Game", false)

	for _, pl := range r.Seats {
		if pl != nil {
			m.AddItem(protocol.MenuGame, pl.ClientID, protocol.IconGuy, protocol.IconMice, pl.Name, false)
		}
	}
	return m.Finish()
}

func puzzleLandMenu() ([]byte, error) {
	return protocol.NewMenuList().
		AddItem(protocol.MenuPuzzleLand, 0x00, protocol.IconDoor, protocol.IconEmpty, "Puzzle Land", false).
		AddItem(protocol.MenuServer, 0xee, protocol.IconExit, protocol.IconEmpty, "Exit", false).
		AddItem(protocol.MenuPuzzleZone, 0x00, protocol.IconPuzzleFlag, protocol.IconEmpty, "Puzzle zone", false).
		AddItem(protocol.MenuPuzzleLand, 0xaa, protocol.IconPuzzleUpload, protocol.IconEmpty, "Upload puzzle", false).
		Finish()
}

func (s *State) puzzleZoneMenu() ([]byte, error) {
	m := protocol.NewMenuList().
		AddItem(protocol.MenuPuzzleZone, 0x00, protocol.IconPuzzleFlag, protocol.IconEmpty, "Puzzle zone", false).
		AddItem(protocol.MenuPuzzleLand, 0xee, protocol.IconExit, protocol.IconEmpty, "Exit", false)

	for _, pz := range s.puzzles {
		if pz != nil {
			m.AddItem(protocol.MenuPuzzleZoneFile, pz.ID, protocol.IconPuzzleDownload, protocol.IconEmpty, pz.Name, false)
		}
	}
	return m.Finish()
}
