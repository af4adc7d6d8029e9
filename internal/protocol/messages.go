package protocol

import (
	"fmt"
)

// BuildNotify creates a notification box message (0x01).
func BuildNotify(code NotifyCode) ([]byte, error) {
	text, ok := notifyTexts[code]
	if !ok {
		text = "?"
	}
	return NewMessageWriter().
		PadTo(12).
		WriteString(text).
		Pad(4).
		Finish(MsgNotify, 0x01)
}

// BuildCopyright creates the unencrypted greeting (0x02 lobby, 0x17 login)
// carrying the cipher seeds for both traffic directions.
func BuildCopyright(login bool, serverSeed, clientSeed uint32) ([]byte, error) {
	text := LobbyCopyright
	id := MsgCopyright
	if login {
		text = LoginCopyright
		id = MsgLoginCopyright
	}
	return NewMessageWriter().
		WriteFixedString(text, 64).
		WriteUint32(serverSeed).
		WriteUint32(clientSeed).
		Finish(id, 0x00)
}

// BuildAuthResult creates a bare registration result (0x03).
func BuildAuthResult(flag byte) []byte {
	msg := make([]byte, HeaderSize)
	BuildHeader(msg, MsgAuth, flag, HeaderSize)
	return msg
}

// BuildLoginAck creates a bare login result (0x04) for rejections.
func BuildLoginAck(flag byte) []byte {
	msg := make([]byte, HeaderSize)
	BuildHeader(msg, MsgLoginRequest, flag, HeaderSize)
	return msg
}

// BuildLoginOK creates the successful login ack (0x04) echoing the device
// id back to the console. The console stores the echoed id and presents it
// again when a game starts, so the echo is mandatory.
func BuildLoginOK(deviceID [DeviceIDLen]byte) ([]byte, error) {
	return NewMessageWriter().
		WriteBytes(deviceID[:]).
		Pad(2).
		Finish(MsgLoginRequest, LoginAckOK)
}

// BuildLoginStatus creates the known/new device response (0x18).
func BuildLoginStatus(flag byte) []byte {
	msg := make([]byte, HeaderSize)
	BuildHeader(msg, MsgLoginStatus, flag, HeaderSize)
	return msg
}

// BuildRedirect creates the redirect (0x19) pointing the console at the
// lobby address. The console also reuses this address to reconnect after a
// game ends.
func BuildRedirect(ip uint32, port uint16) ([]byte, error) {
	return NewMessageWriter().
		WriteUint32(ip).
		WriteUint16(port).
		Pad(2).
		Finish(MsgRedirect, 0x00)
}

// BuildChat creates a lobby chat line (0x06) addressed at (menu, item).
// Announcements use menu 0, item 0.
func BuildChat(menu MenuID, itemID uint32, text string) ([]byte, error) {
	return NewMessageWriter().
		WriteUint32(uint32(menu)).
		WriteUint32(itemID).
		WriteString(text).
		Pad(2).
		Finish(MsgChat, 0x00)
}

// BuildWhisper creates a private message panel (0x1a) for one recipient.
func BuildWhisper(from, text string) ([]byte, error) {
	return NewMessageWriter().
		WriteString(fmt.Sprintf("Message from '%s'\n\n", from)).
		WriteString(text).
		Pad(4).
		Finish(MsgInfoPanel, 0x00)
}

// BuildInfoBox creates the bottom-right info box text (0x11).
func BuildInfoBox(text string) ([]byte, error) {
	return NewMessageWriter().
		PadTo(12).
		WriteString(text).
		Pad(4).
		Finish(MsgInfoBox, 0x00)
}

// BuildInfoPanel creates the large green text panel (0x1a flag 0x01) used
// for the news page and the ranking table.
func BuildInfoPanel(content []byte) ([]byte, error) {
	return NewMessageWriter().
		WriteBytes(content).
		Pad(4).
		Finish(MsgInfoPanel, 0x01)
}

// BuildUploadPrompt creates the empty 0x14 telling the console to pick a
// puzzle to upload.
func BuildUploadPrompt() ([]byte, error) {
	return NewMessageWriter().
		PadTo(12).
		Finish(MsgPuzzleUpload, 0x00)
}

// BuildPuzzleData creates a puzzle download payload (0x13).
func BuildPuzzleData(name string, blob []byte) ([]byte, error) {
	return NewMessageWriter().
		WriteFixedString(name, 16).
		WriteBytes(blob).
		Finish(MsgPuzzleData, 0x00)
}

// RosterEntry is one occupant controller in a start-game roster.
type RosterEntry struct {
	DeviceID [DeviceIDLen]byte
	IP       uint32
	Name     string
}

// BuildStartGame creates the roster message (0x0e) that drops every room
// occupant into the game. The header flag carries the entry count.
func BuildStartGame(entries []RosterEntry) ([]byte, error) {
	w := NewMessageWriter()
	for _, e := range entries {
		// Name field is 16 bytes but the game only reads 8 characters.
		w.WriteBytes(e.DeviceID[:]).
			Pad(2).
			WriteUint32(e.IP).
			Pad(4).
			WriteFixedString(e.Name, 9).
			Pad(7)
	}
	return w.Finish(MsgStartGame, byte(len(entries)))
}

// MenuList builds a menu listing message (0x07). The header flag carries
// the number of selectable entries, which excludes the title row.
type MenuList struct {
	w     *MessageWriter
	items int
}

// NewMenuList returns an empty menu listing.
func NewMenuList() *MenuList {
	return &MenuList{w: NewMessageWriter()}
}

// AddItem appends one 20-byte menu item record. target is the menu the
// selection navigates to. marked sets the trailing label byte to 0xff,
// which makes the console pop a text entry form before sending the
// selection; it is set for the create-room entry and password rooms.
func (m *MenuList) AddItem(target MenuID, itemID uint32, left, right Icon, label string, marked bool) *MenuList {
	start := m.w.Len()
	m.w.WriteUint32(uint32(target)).
		WriteUint32(itemID).
		WriteByte(byte(left)).
		WriteByte(byte(right)).
		WriteFixedString(label, menuLabelSize)
	if marked || left == IconCreateTeam {
		m.w.SetByte(start+MenuItemSize-1, 0xff)
	}
	m.items++
	return m
}

// Finish stamps the header with the entry count and returns the message.
func (m *MenuList) Finish() ([]byte, error) {
	entries := 0
	if m.items > 0 {
		entries = m.items - 1
	}
	return m.w.Finish(MsgMenuList, byte(entries))
}
