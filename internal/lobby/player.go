// Package lobby holds the shared server state (players, game rooms, the
// puzzle catalog) and the message dispatcher that drives the menu state
// machine. All state lives behind one mutex; handlers collect outbound
// messages as envelopes under the lock and the network layer writes them
// after release.
package lobby

import (
	"github.com/chulobby-project/chulobby/internal/protocol"
)

// Outbox delivers one framed message to a connected console. The network
// layer's implementation encrypts with the connection's outbound cipher;
// delivery is best effort.
type Outbox interface {
	Send(data []byte)
}

// RoundStats are the game's round counters for one player.
type RoundStats struct {
	Won   uint32
	Lost  uint32
	Total uint32
}

// Zero reports whether no rounds have been recorded.
func (r RoundStats) Zero() bool {
	return r.Won == 0 && r.Lost == 0
}

// Player is one connected console. Fields are guarded by the State mutex;
// the Outbox is safe to use without it.
type Player struct {
	ClientID    uint32
	IP          uint32 // peer IPv4, used in start-game rosters
	Name        string
	DeviceID    [protocol.DeviceIDLen]byte
	Controllers uint8

	// Menu position, updated on every menu change.
	Menu protocol.MenuID
	Item uint32

	Authorized  bool
	CreatedRoom bool // one room creation allowed per session

	// StoreRanking is cleared when a newer session for the same device
	// takes over, or when a game starts; the game reports fresh counters
	// on the post-game reconnect.
	StoreRanking bool

	Session   RoundStats // reported by the game during this session
	Persisted RoundStats // loaded from the database at login

	out Outbox
}

// NewPlayer returns a player in the pre-login state.
func NewPlayer(clientID, ip uint32, out Outbox) *Player {
	return &Player{
		ClientID:     clientID,
		IP:           ip,
		Controllers:  1,
		Menu:         protocol.MenuServer,
		StoreRanking: true,
		out:          out,
	}
}

// Deliver hands a message to the player's connection.
func (p *Player) Deliver(data []byte) {
	if p.out != nil {
		p.out.Send(data)
	}
}

// Envelope is one outbound message snapshotted under the lobby lock. The
// payload is plaintext; encryption happens per recipient at write time.
type Envelope struct {
	To   *Player
	Data []byte
}
