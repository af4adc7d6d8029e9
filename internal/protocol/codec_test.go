package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderSize)
	BuildHeader(buf, MsgMenuList, 0x03, 0x1234)

	h, ok := ParseHeader(buf)
	require.True(t, ok)
	assert.Equal(t, MsgMenuList, h.ID)
	assert.Equal(t, byte(0x03), h.Flag)
	assert.Equal(t, uint16(0x1234), h.Size)

	_, ok = ParseHeader(buf[:3])
	assert.False(t, ok)
}

func TestFrameNext(t *testing.T) {
	msg := make([]byte, 16)
	BuildHeader(msg, MsgChat, 0x00, 16)

	t.Run("complete message", func(t *testing.T) {
		assert.Equal(t, 16, FrameNext(msg))
	})

	t.Run("two messages back to back", func(t *testing.T) {
		second := make([]byte, 8)
		BuildHeader(second, MsgNotify, 0x01, 8)
		buf := append(append([]byte(nil), msg...), second...)

		n := FrameNext(buf)
		require.Equal(t, 16, n)
		assert.Equal(t, 8, FrameNext(buf[n:]))
	})

	t.Run("partial message is discarded", func(t *testing.T) {
		assert.Equal(t, 0, FrameNext(msg[:10]))
		assert.Equal(t, 0, FrameNext(msg[:3]))
	})

	t.Run("declared size larger than buffer", func(t *testing.T) {
		short := append([]byte(nil), msg...)
		BuildHeader(short, MsgChat, 0x00, 64)
		assert.Equal(t, 0, FrameNext(short))
	})

	t.Run("size below header length", func(t *testing.T) {
		bad := append([]byte(nil), msg...)
		BuildHeader(bad, MsgChat, 0x00, 2)
		assert.Equal(t, 0, FrameNext(bad))
	})
}

func TestDecodeSelection(t *testing.T) {
	cases := []struct {
		name string
		menu MenuID
		item uint32
		want Selection
	}{
		{"server ranking", MenuServer, 0xcc, SelectRanking},
		{"server news", MenuServer, 0xdd, SelectNews},
		{"server open", MenuServer, 0x00, SelectOpen},
		{"room exit", MenuRoom, 0xee, SelectExit},
		{"room create", MenuRoom, 0xcc, SelectCreateRoom},
		{"room join", MenuRoom, RoomItemBase + 2, SelectRoom},
		{"game start", MenuGame, 0xff, SelectStartGame},
		{"game join room", MenuGame, RoomItemBase, SelectRoom},
		{"puzzle land upload", MenuPuzzleLand, 0xaa, SelectUploadPuzzle},
		{"puzzle zone exit", MenuPuzzleZone, 0xee, SelectExit},
		{"puzzle file download", MenuPuzzleZoneFile, 42, SelectTarget},
		{"player target", MenuRoom, 0x0105, SelectTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecodeSelection(tc.menu, tc.item))
		})
	}
}

func TestMessageWriterSizeCeiling(t *testing.T) {
	w := NewMessageWriter()
	w.WriteBytes(make([]byte, MaxMessageSize-HeaderSize))
	_, err := w.Finish(MsgInfoPanel, 0x01)
	require.NoError(t, err)

	w = NewMessageWriter()
	w.WriteBytes(make([]byte, MaxMessageSize-HeaderSize+1))
	_, err = w.Finish(MsgInfoPanel, 0x01)
	require.Error(t, err)
}

func TestMessageWriterLayout(t *testing.T) {
	msg, err := NewMessageWriter().
		WriteUint32(0x01020304).
		WriteUint16(0xbeef).
		WriteFixedString("abc", 6).
		Finish(MsgChat, 0x07)
	require.NoError(t, err)

	assert.Equal(t, MsgChat, msg[0])
	assert.Equal(t, byte(0x07), msg[1])
	assert.Equal(t, uint16(16), uint16(msg[2])<<8|uint16(msg[3]))
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, msg[4:8])
	assert.Equal(t, []byte{0xbe, 0xef}, msg[8:10])
	assert.Equal(t, []byte{'a', 'b', 'c', 0, 0, 0}, msg[10:16])
}
