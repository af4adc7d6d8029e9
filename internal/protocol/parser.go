package protocol

import (
	"encoding/binary"
	"fmt"
)

// Inbound message parsers. Each takes one complete framed message including
// the header and validates the fixed client lengths before touching the
// payload. A returned error means the message is corrupt; callers treat
// that as a protocol violation and drop the connection.

// LoginRequest is the lobby login (0x04). The console sends it right after
// the copyright exchange and again after every game.
type LoginRequest struct {
	DeviceID    [DeviceIDLen]byte
	Username    string
	Controllers byte
}

// ParseLoginRequest parses a lobby login request.
func ParseLoginRequest(msg []byte) (LoginRequest, error) {
	h, ok := ParseHeader(msg)
	if !ok {
		return LoginRequest{}, fmt.Errorf("protocol: login request too short")
	}
	if int(h.Size) != len(msg) ||
		(h.Size != LoginRequestMsgLen && h.Size != LoginRequestLongMsgLen) {
		return LoginRequest{}, fmt.Errorf("protocol: login request has bad length %d", h.Size)
	}
	var req LoginRequest
	copy(req.DeviceID[:], msg[0x06:0x0c])
	req.Username = cString(msg[0x14 : 0x14+MaxUsernameLen])
	req.Controllers = h.Flag
	return req, nil
}

// AuthRequest is a login-server credential message: registration (0x03) or
// login (0x04), both 0x34 bytes.
type AuthRequest struct {
	DeviceID [DeviceIDLen]byte
	Username string
	Password string
}

// ParseAuthRequest parses a login-server credential message.
func ParseAuthRequest(msg []byte) (AuthRequest, error) {
	h, ok := ParseHeader(msg)
	if !ok {
		return AuthRequest{}, fmt.Errorf("protocol: auth request too short")
	}
	if int(h.Size) != len(msg) || h.Size != AuthMsgLen {
		return AuthRequest{}, fmt.Errorf("protocol: auth request has bad length %d", h.Size)
	}
	var req AuthRequest
	copy(req.DeviceID[:], msg[0x06:0x0c])
	req.Username = cString(msg[0x14 : 0x14+MaxUsernameLen])
	req.Password = cString(msg[0x24 : 0x24+MaxPasswordLen])
	return req, nil
}

// ParseLoginStatusRequest parses the opening login-server message (0x18)
// and returns the console's device id.
func ParseLoginStatusRequest(msg []byte) ([DeviceIDLen]byte, error) {
	var id [DeviceIDLen]byte
	h, ok := ParseHeader(msg)
	if !ok {
		return id, fmt.Errorf("protocol: login status request too short")
	}
	if int(h.Size) != len(msg) || h.Size != LoginStatusMsgLen || h.Flag != 0x00 {
		return id, fmt.Errorf("protocol: login status request has bad length %d flag %#02x", h.Size, h.Flag)
	}
	copy(id[:], msg[0x06:0x0c])
	return id, nil
}

// MenuChange is a menu selection (0x10). When the console pops a text form
// before sending the selection (create room, password room), the form
// fields ride along and HasForm is set.
type MenuChange struct {
	Menu      MenuID
	ItemID    uint32
	Selection Selection
	HasForm   bool
	FormName  string // room name for create, unused for password joins
	FormPass  string
}

// ParseMenuChange parses a menu selection.
func ParseMenuChange(msg []byte) (MenuChange, error) {
	h, ok := ParseHeader(msg)
	if !ok || int(h.Size) != len(msg) || h.Size < 0x0c {
		return MenuChange{}, fmt.Errorf("protocol: menu change too short")
	}
	mc := MenuChange{
		Menu:   MenuID(binary.BigEndian.Uint32(msg[4:8])),
		ItemID: binary.BigEndian.Uint32(msg[8:12]),
	}
	mc.Selection = DecodeSelection(mc.Menu, mc.ItemID)
	if h.Size == CreateRoomMsgLen && h.Flag == 0x01 {
		mc.HasForm = true
		mc.FormName = cString(msg[0x0c : 0x0c+MaxUsernameLen])
		mc.FormPass = cString(msg[0x1c : 0x1c+MaxPasswordLen])
	}
	return mc, nil
}

// ChatMessage is a chat line (0x06). Item id zero is lobby-wide; a nonzero
// item id whispers to the player with that client id.
type ChatMessage struct {
	Menu   MenuID
	ItemID uint32
	Text   string
}

// ParseChat parses a chat line.
func ParseChat(msg []byte) (ChatMessage, error) {
	h, ok := ParseHeader(msg)
	if !ok || int(h.Size) != len(msg) || h.Size < 0x0c {
		return ChatMessage{}, fmt.Errorf("protocol: chat message too short")
	}
	return ChatMessage{
		Menu:   MenuID(binary.BigEndian.Uint32(msg[4:8])),
		ItemID: binary.BigEndian.Uint32(msg[8:12]),
		Text:   cString(msg[12:]),
	}, nil
}

// InfoRequest asks for info box text about a menu item (0x09).
type InfoRequest struct {
	Menu   MenuID
	ItemID uint32
}

// ParseInfoRequest parses an info request.
func ParseInfoRequest(msg []byte) (InfoRequest, error) {
	h, ok := ParseHeader(msg)
	if !ok || int(h.Size) != len(msg) || h.Size < 0x0c {
		return InfoRequest{}, fmt.Errorf("protocol: info request too short")
	}
	return InfoRequest{
		Menu:   MenuID(binary.BigEndian.Uint32(msg[4:8])),
		ItemID: binary.BigEndian.Uint32(msg[8:12]),
	}, nil
}

// PuzzleUpload is a puzzle upload payload (0x14), always 0x390 bytes.
type PuzzleUpload struct {
	Name string
	Data []byte
}

// ParsePuzzleUpload parses a puzzle upload. The length check guards the
// fixed-size copy; anything else is rejected before the blob is touched.
func ParsePuzzleUpload(msg []byte) (PuzzleUpload, error) {
	h, ok := ParseHeader(msg)
	if !ok || int(h.Size) != len(msg) || h.Size != PuzzleUploadMsgLen {
		return PuzzleUpload{}, fmt.Errorf("protocol: puzzle upload has bad length")
	}
	return PuzzleUpload{
		Name: cString(msg[4:0x14]),
		Data: append([]byte(nil), msg[0x14:]...),
	}, nil
}

// StatsUpdate carries the round counters the game reports after each match
// (0x1b). The values are absolute session totals, not deltas.
type StatsUpdate struct {
	Won   uint32
	Lost  uint32
	Total uint32
}

// ParseStatsUpdate parses a round counter update.
func ParseStatsUpdate(msg []byte) (StatsUpdate, error) {
	h, ok := ParseHeader(msg)
	if !ok || int(h.Size) != len(msg) || h.Size != StatsMsgLen {
		return StatsUpdate{}, fmt.Errorf("protocol: stats update has bad length")
	}
	return StatsUpdate{
		Won:   binary.BigEndian.Uint32(msg[0x08:0x0c]),
		Lost:  binary.BigEndian.Uint32(msg[0x0c:0x10]),
		Total: binary.BigEndian.Uint32(msg[0x10:0x14]),
	}, nil
}
