package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNotify(t *testing.T) {
	msg, err := BuildNotify(NotifyRoomCreated)
	require.NoError(t, err)

	h, ok := ParseHeader(msg)
	require.True(t, ok)
	assert.Equal(t, MsgNotify, h.ID)
	assert.Equal(t, byte(0x01), h.Flag)
	assert.Equal(t, int(h.Size), len(msg))

	text := "Game room created!"
	assert.Equal(t, text, cString(msg[12:]))
	// text offset 12, text bytes, 4 bytes padding
	assert.Equal(t, 12+len(text)+4, len(msg))
}

func TestBuildCopyright(t *testing.T) {
	msg, err := BuildCopyright(false, 0x0a0b0c0d, 0x01020304)
	require.NoError(t, err)
	require.Len(t, msg, CopyrightSize)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgCopyright, h.ID)
	assert.Equal(t, LobbyCopyright, cString(msg[4:68]))
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c, 0x0d}, msg[68:72])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, msg[72:76])

	login, err := BuildCopyright(true, 1, 2)
	require.NoError(t, err)
	h, _ = ParseHeader(login)
	assert.Equal(t, MsgLoginCopyright, h.ID)
	assert.Equal(t, LoginCopyright, cString(login[4:68]))
}

func TestBuildLoginOK(t *testing.T) {
	device := [DeviceIDLen]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	msg, err := BuildLoginOK(device)
	require.NoError(t, err)
	require.Len(t, msg, 12)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgLoginRequest, h.ID)
	assert.Equal(t, LoginAckOK, h.Flag)
	assert.Equal(t, device[:], msg[4:10])
}

func TestBuildRedirect(t *testing.T) {
	msg, err := BuildRedirect(0xc0a80001, 9500)
	require.NoError(t, err)
	require.Len(t, msg, 12)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgRedirect, h.ID)
	assert.Equal(t, []byte{0xc0, 0xa8, 0x00, 0x01}, msg[4:8])
	assert.Equal(t, []byte{0x25, 0x1c}, msg[8:10])
	assert.Equal(t, []byte{0x00, 0x00}, msg[10:12])
}

func TestBuildChatRoundTrip(t *testing.T) {
	msg, err := BuildChat(MenuServer, 0, "[mouse]:\thello there")
	require.NoError(t, err)

	parsed, err := ParseChat(msg)
	require.NoError(t, err)
	assert.Equal(t, MenuServer, parsed.Menu)
	assert.Equal(t, uint32(0), parsed.ItemID)
	assert.Equal(t, "[mouse]:\thello there", parsed.Text)
}

func TestBuildWhisper(t *testing.T) {
	msg, err := BuildWhisper("cat", "psst")
	require.NoError(t, err)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgInfoPanel, h.ID)
	assert.Equal(t, byte(0x00), h.Flag)
	assert.True(t, strings.HasPrefix(cString(msg[4:]), "Message from 'cat'\n\n"))
	assert.True(t, strings.HasSuffix(cString(msg[4:]), "psst"))
}

func TestBuildInfoPanel(t *testing.T) {
	content := []byte("================ TOP 10 RANKING ================\n")
	msg, err := BuildInfoPanel(content)
	require.NoError(t, err)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgInfoPanel, h.ID)
	assert.Equal(t, byte(0x01), h.Flag)
	assert.Equal(t, content, msg[4:4+len(content)])
	assert.Equal(t, 4+len(content)+4, len(msg))
}

func TestBuildPuzzleData(t *testing.T) {
	blob := []byte{1, 2, 3, 4, 5}
	msg, err := BuildPuzzleData("maze", blob)
	require.NoError(t, err)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgPuzzleData, h.ID)
	assert.Equal(t, "maze", cString(msg[4:0x14]))
	assert.Equal(t, blob, msg[0x14:])
}

func TestBuildStartGameRoster(t *testing.T) {
	entries := []RosterEntry{
		{DeviceID: [DeviceIDLen]byte{1, 2, 3, 4, 5, 6}, IP: 0x0a000001, Name: "mouse"},
		{DeviceID: [DeviceIDLen]byte{9, 9, 9, 9, 9, 9}, IP: 0x0a000002, Name: "cat"},
	}
	msg, err := BuildStartGame(entries)
	require.NoError(t, err)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgStartGame, h.ID)
	assert.Equal(t, byte(2), h.Flag)
	require.Len(t, msg, HeaderSize+2*RosterStride)

	// first entry: device at +0, ip at +8, name at +16
	assert.Equal(t, entries[0].DeviceID[:], msg[4:10])
	assert.Equal(t, []byte{0x0a, 0x00, 0x00, 0x01}, msg[12:16])
	assert.Equal(t, "mouse", cString(msg[20:36]))

	// second entry starts one stride later
	base := HeaderSize + RosterStride
	assert.Equal(t, entries[1].DeviceID[:], msg[base:base+6])
	assert.Equal(t, "cat", cString(msg[base+16:base+32]))
}

func TestBuildStartGameTruncatesLongNames(t *testing.T) {
	msg, err := BuildStartGame([]RosterEntry{
		{Name: "averylongusername"},
	})
	require.NoError(t, err)
	assert.Equal(t, "averylon", cString(msg[20:36]))
}

func TestMenuListEntryCountExcludesTitle(t *testing.T) {
	msg, err := NewMenuList().
		AddItem(MenuServer, 0, IconServer, IconEmpty, "ChuChu Ser", false).
		AddItem(MenuServer, 0xdd, IconMemo, IconEmpty, "Top News", false).
		AddItem(MenuRoom, 0, IconDoor, IconEmpty, "Game Room", false).
		Finish()
	require.NoError(t, err)

	h, _ := ParseHeader(msg)
	assert.Equal(t, MsgMenuList, h.ID)
	assert.Equal(t, byte(2), h.Flag)
	assert.Len(t, msg, HeaderSize+3*MenuItemSize)
}

func TestMenuListItemLayout(t *testing.T) {
	msg, err := NewMenuList().
		AddItem(MenuGame, RoomItemBase+1, IconTeam, IconMice, "Mice Room", false).
		Finish()
	require.NoError(t, err)

	rec := msg[HeaderSize:]
	assert.Equal(t, []byte{0, 0, 0, 2}, rec[0:4]) // target menu
	assert.Equal(t, []byte{0, 0, 0x20, 0x01}, rec[4:8])
	assert.Equal(t, byte(IconTeam), rec[8])
	assert.Equal(t, byte(IconMice), rec[9])
	assert.Equal(t, "Mice Room", cString(rec[10:20]))
}

func TestMenuListMarker(t *testing.T) {
	msg, err := NewMenuList().
		AddItem(MenuRoom, 0xcc, IconCreateTeam, IconEmpty, "Create", false).
		AddItem(MenuGame, RoomItemBase, IconTeam, IconMice, "Secret", true).
		AddItem(MenuGame, RoomItemBase+1, IconTeam, IconMice, "Open", false).
		Finish()
	require.NoError(t, err)

	first := msg[HeaderSize : HeaderSize+MenuItemSize]
	second := msg[HeaderSize+MenuItemSize : HeaderSize+2*MenuItemSize]
	third := msg[HeaderSize+2*MenuItemSize:]
	assert.Equal(t, byte(0xff), first[MenuItemSize-1], "create entry carries the form marker")
	assert.Equal(t, byte(0xff), second[MenuItemSize-1], "password room carries the form marker")
	assert.Equal(t, byte(0x00), third[MenuItemSize-1])
}

func TestParseLoginRequest(t *testing.T) {
	msg := make([]byte, LoginRequestMsgLen)
	BuildHeader(msg, MsgLoginRequest, 2, LoginRequestMsgLen)
	copy(msg[0x06:], []byte{1, 2, 3, 4, 5, 6})
	copy(msg[0x14:], "mouse")

	req, err := ParseLoginRequest(msg)
	require.NoError(t, err)
	assert.Equal(t, "mouse", req.Username)
	assert.Equal(t, byte(2), req.Controllers)
	assert.Equal(t, [DeviceIDLen]byte{1, 2, 3, 4, 5, 6}, req.DeviceID)

	bad := make([]byte, 20)
	BuildHeader(bad, MsgLoginRequest, 0, 20)
	_, err = ParseLoginRequest(bad)
	assert.Error(t, err)
}

func TestParseAuthRequest(t *testing.T) {
	msg := make([]byte, AuthMsgLen)
	BuildHeader(msg, MsgAuth, 0, AuthMsgLen)
	copy(msg[0x06:], []byte{6, 5, 4, 3, 2, 1})
	copy(msg[0x14:], "cat")
	copy(msg[0x24:], "secret")

	req, err := ParseAuthRequest(msg)
	require.NoError(t, err)
	assert.Equal(t, "cat", req.Username)
	assert.Equal(t, "secret", req.Password)
	assert.Equal(t, [DeviceIDLen]byte{6, 5, 4, 3, 2, 1}, req.DeviceID)
}

func TestParseMenuChangeWithForm(t *testing.T) {
	msg := make([]byte, CreateRoomMsgLen)
	BuildHeader(msg, MsgMenuChange, 0x01, CreateRoomMsgLen)
	copy(msg[4:], []byte{0, 0, 0, 1}) // room menu
	copy(msg[8:], []byte{0, 0, 0, 0xcc})
	copy(msg[0x0c:], "My Room")
	copy(msg[0x1c:], "hunter2")

	mc, err := ParseMenuChange(msg)
	require.NoError(t, err)
	assert.Equal(t, MenuRoom, mc.Menu)
	assert.Equal(t, SelectCreateRoom, mc.Selection)
	require.True(t, mc.HasForm)
	assert.Equal(t, "My Room", mc.FormName)
	assert.Equal(t, "hunter2", mc.FormPass)
}

func TestParseStatsUpdate(t *testing.T) {
	msg := make([]byte, StatsMsgLen)
	BuildHeader(msg, MsgPlayerStats, 0, StatsMsgLen)
	copy(msg[0x08:], []byte{0, 0, 0, 7})
	copy(msg[0x0c:], []byte{0, 0, 0, 3})
	copy(msg[0x10:], []byte{0, 0, 0, 10})

	st, err := ParseStatsUpdate(msg)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), st.Won)
	assert.Equal(t, uint32(3), st.Lost)
	assert.Equal(t, uint32(10), st.Total)

	msg[3] = 0x10 // lie about the size
	_, err = ParseStatsUpdate(msg)
	assert.Error(t, err)
}

func TestParsePuzzleUpload(t *testing.T) {
	msg := make([]byte, PuzzleUploadMsgLen)
	BuildHeader(msg, MsgPuzzleUpload, 0, PuzzleUploadMsgLen)
	copy(msg[4:], "maze")
	msg[0x14] = 0xab

	up, err := ParsePuzzleUpload(msg)
	require.NoError(t, err)
	assert.Equal(t, "maze", up.Name)
	assert.Len(t, up.Data, PuzzleUploadMsgLen-0x14)
	assert.Equal(t, byte(0xab), up.Data[0])

	_, err = ParsePuzzleUpload(msg[:100])
	assert.Error(t, err)
}
