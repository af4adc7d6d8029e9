// Package protocol implements the binary wire format spoken by the Dreamcast
// lobby and login servers: the 4-byte message header, the menu listing
// records, and the builders and parsers for every message the console
// understands. All multi-byte integers are big-endian.
package protocol

// Message IDs. The first header byte of every message.
const (
	MsgNotify         byte = 0x01 // small notification box with text
	MsgCopyright      byte = 0x02 // lobby greeting, unencrypted, carries cipher seeds
	MsgAuth           byte = 0x03 // account registration / auth result
	MsgLoginRequest   byte = 0x04 // login request and its ack
	MsgDisconnect     byte = 0x05 // client is going away
	MsgChat           byte = 0x06 // lobby chat line
	MsgMenuList       byte = 0x07 // menu listing, header flag = entry count
	MsgInfoRequest    byte = 0x09 // client pressed X on a menu item
	MsgStartGame      byte = 0x0e // start-game roster
	MsgMenuChange     byte = 0x10 // client selected a menu item
	MsgInfoBox        byte = 0x11 // bottom-right info box text
	MsgPuzzleData     byte = 0x13 // puzzle download payload
	MsgPuzzleUpload   byte = 0x14 // puzzle upload prompt / upload payload
	MsgLoginCopyright byte = 0x17 // login-server greeting, unencrypted
	MsgLoginStatus    byte = 0x18 // known/new device response
	MsgRedirect       byte = 0x19 // redirect to the lobby address
	MsgInfoPanel      byte = 0x1a // large green text panel, also whispers
	MsgPlayerStats    byte = 0x1b // round counter update
)

// MenuID identifies one of the fixed menu screens. Each menu item record
// names the menu a selection navigates to.
type MenuID uint32

const (
	MenuServer         MenuID = 0
	MenuRoom           MenuID = 1
	MenuGame           MenuID = 2
	MenuPuzzleLand     MenuID = 3
	MenuPuzzleZone     MenuID = 4
	MenuPuzzleZoneFile MenuID = 5
)

// String returns a short name for logging.
func (m MenuID) String() string {
	switch m {
	case MenuServer:
		return "server"
	case MenuRoom:
		return "room"
	case MenuGame:
		return "game"
	case MenuPuzzleLand:
		return "puzzle_land"
	case MenuPuzzleZone:
		return "puzzle_zone"
	case MenuPuzzleZoneFile:
		return "puzzle_file"
	default:
		return "unknown"
	}
}

// Item id sentinels the console sends in menu-change messages. They are
// decoded once at the wire boundary into Selection values; nothing past the
// parser compares raw sentinel bytes.
const (
	itemRanking    uint32 = 0xcc // server menu
	itemCreateRoom uint32 = 0xcc // room menu
	itemNews       uint32 = 0xdd
	itemExit       uint32 = 0xee
	itemStartGame  uint32 = 0xff
	itemUpload     uint32 = 0xaa

	// RoomItemBase is added to a room's slot index to form its item id.
	RoomItemBase uint32 = 0x2000
)

// Selection is the decoded meaning of a menu-change item id within its menu.
type Selection int

const (
	SelectOpen Selection = iota // plain navigation, no special action
	SelectRanking
	SelectNews
	SelectExit
	SelectCreateRoom
	SelectStartGame
	SelectUploadPuzzle
	SelectRoom   // item id names a game room
	SelectTarget // item id names a player or puzzle row
)

// DecodeSelection maps the raw (menu, item) pair from a menu-change message
// to its meaning. The same sentinel byte means different things in different
// menus, so the menu id is part of the decode.
func DecodeSelection(menu MenuID, itemID uint32) Selection {
	switch menu {
	case MenuServer:
		switch itemID {
		case itemRanking:
			return SelectRanking
		case itemNews:
			return SelectNews
		}
	case MenuRoom:
		switch {
		case itemID == itemExit:
			return SelectExit
		case itemID == itemCreateRoom:
			return SelectCreateRoom
		case itemID >= RoomItemBase:
			return SelectRoom
		}
	case MenuGame:
		switch {
		case itemID == itemStartGame:
			return SelectStartGame
		case itemID >= RoomItemBase:
			return SelectRoom
		}
	case MenuPuzzleLand:
		switch itemID {
		case itemUpload:
			return SelectUploadPuzzle
		case itemExit:
			return SelectExit
		}
	case MenuPuzzleZone:
		if itemID == itemExit {
			return SelectExit
		}
	case MenuPuzzleZoneFile:
		if itemID != 0 {
			return SelectTarget
		}
	}
	if itemID != 0 {
		return SelectTarget
	}
	return SelectOpen
}

// Icon bytes shown next to menu item labels.
type Icon byte

const (
	IconEmpty          Icon = 0x00
	IconGuy            Icon = 0x01
	IconDoor           Icon = 0x02
	IconTeam           Icon = 0x03
	IconServer         Icon = 0x04
	IconExit           Icon = 0x05
	IconCreateRoom     Icon = 0x06
	IconCreateTeam     Icon = 0x07
	IconGo             Icon = 0x08
	IconMemo           Icon = 0x09
	IconPuzzleDownload Icon = 0x0a
	IconPuzzleUpload   Icon = 0x0b
	IconPuzzleFlag     Icon = 0x0c
	IconMice           Icon = 0x0e
	IconPSO            Icon = 0x0f
	IconDD             Icon = 0x10
	IconSonic          Icon = 0x11
)

// NotifyCode selects the text shown in a notification box.
type NotifyCode int

const (
	NotifyAlone          NotifyCode = 0x01
	NotifyRoomFull       NotifyCode = 0x02
	NotifyUploadFailed   NotifyCode = 0x03
	NotifyUploadOK       NotifyCode = 0x04
	NotifyDownloadFailed NotifyCode = 0x05
	NotifyPuzzleExists   NotifyCode = 0x06
	NotifyRoomCreated    NotifyCode = 0x07
	NotifyBadPassword    NotifyCode = 0x08
	NotifyAlreadyCreated NotifyCode = 0x09
)

var notifyTexts = map[NotifyCode]string{
	NotifyAlone:          "You are all alone....\nWait for more players!",
	NotifyRoomFull:       "The game room is full...\nPlease wait!",
	NotifyUploadFailed:   "Something went wrong\nwhile uploading",
	NotifyUploadOK:       "Upload completed",
	NotifyDownloadFailed: "Something went wrong\nwhile downloading",
	NotifyPuzzleExists:   "Puzzle already exists!",
	NotifyRoomCreated:    "Game room created!",
	NotifyBadPassword:    "Invalid password!",
	NotifyAlreadyCreated: "Already created a game room\nfor this session",
}

// Login-server flags.
const (
	LoginStatusRegistered byte = 0x01 // device known, client reads VMU credentials
	LoginStatusNew        byte = 0x02 // device unknown, client registers

	AuthFlagOK            byte = 0x01
	AuthFlagUsernameTaken byte = 0x02

	LoginAckOK         byte = 0x00
	LoginAckServerFull byte = 0x01
	LoginAckWrongPass  byte = 0x03
)

// Wire sizes and limits.
const (
	HeaderSize     = 4
	MaxMessageSize = 4096

	MenuItemSize  = 20 // one record in a menu listing
	menuLabelSize = 10 // label field inside a menu item record
	CopyrightSize = 76
	RosterStride  = 32 // one entry in a start-game roster

	MaxUsernameLen = 16
	MaxPasswordLen = 16
	DeviceIDLen    = 6

	// Fixed client message lengths, validated before parsing.
	LoginStatusMsgLen      = 0x3c
	AuthMsgLen             = 0x34
	LoginRequestMsgLen     = 0x34
	LoginRequestLongMsgLen = 0x98 // first login after the copyright exchange
	CreateRoomMsgLen       = 0x2c
	StatsMsgLen            = 0x14
	PuzzleUploadMsgLen     = 0x390
)

// Greeting strings sent in the unencrypted copyright message.
const (
	LobbyCopyright = "DreamCast Lobby Server. Copyright SEGA Enterprises. 1999"
	LoginCopyright = "DreamCast Port Map. Copyright SEGA Enterprises. 1999"
)
