package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chulobby-project/chulobby/internal/protocol"
)

// Client ids appear in the same wire field as the menu sentinels (0xaa..0xff),
// puzzle row ids and the room item range, so the server must never hand out an
// id a menu decode could mistake for one of those.
func TestClientIDsStayInsideClientWindow(t *testing.T) {
	s := NewLobbyServer(nil, nil)

	first := s.nextClientID()
	assert.Equal(t, clientIDBase+1, first)

	// Run well past a wrap of the window to show ids never drift into the
	// sentinel or room ranges.
	window := int(clientIDLimit - clientIDBase)
	for i := 0; i < 2*window; i++ {
		id := s.nextClientID()
		require.Greater(t, id, uint32(0xff), "id %#x collides with the menu sentinel range", id)
		require.Less(t, id, protocol.RoomItemBase, "id %#x collides with the room item range", id)
	}
}

func TestClientIDsNeverDecodeAsMenuActions(t *testing.T) {
	s := NewLobbyServer(nil, nil)

	for i := 0; i < 512; i++ {
		id := s.nextClientID()
		assert.Equal(t, protocol.SelectTarget, protocol.DecodeSelection(protocol.MenuRoom, id))
		assert.Equal(t, protocol.SelectTarget, protocol.DecodeSelection(protocol.MenuGame, id))
		assert.Equal(t, protocol.SelectTarget, protocol.DecodeSelection(protocol.MenuServer, id))
	}
}
