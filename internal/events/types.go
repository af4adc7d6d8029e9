// Package events defines the event types flowing through the lobby's
// internal publish-subscribe bus.
package events

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Lobby activity
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventRoomCreated  EventType = "room_created"
	EventRoomJoined   EventType = "room_joined"
	EventGameStarted  EventType = "game_started"

	// System events
	EventShutdown EventType = "shutdown"
)

// Event represents a single event in the system.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// PlayerJoinedPayload is emitted when a player finishes the lobby login.
type PlayerJoinedPayload struct {
	Player      string
	PlayerCount int
}

// PlayerLeftPayload is emitted when an authorized player disconnects.
type PlayerLeftPayload struct {
	Player      string
	PlayerCount int
}

// RoomCreatedPayload is emitted when a player creates a game room.
type RoomCreatedPayload struct {
	Room    string
	Creator string
}

// RoomJoinedPayload is emitted when a player takes a seat in a game room.
// Players is a snapshot of everyone connected at that moment.
type RoomJoinedPayload struct {
	Room    string
	Player  string
	Players []string
}

// GameStartedPayload is emitted when a room's occupants are dropped into a
// game.
type GameStartedPayload struct {
	Room    string
	Players []string
}
