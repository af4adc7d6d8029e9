package lobby

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/chulobby-project/chulobby/internal/events"
	"github.com/chulobby-project/chulobby/internal/protocol"
	"github.com/chulobby-project/chulobby/internal/util"
)

// Options tune dispatcher behavior.
type Options struct {
	// Deedee switches the lobby into the smaller Dee Dee Planet layout.
	Deedee bool
	// InfoPath is the file served as the Top News page.
	InfoPath string
}

// Dispatcher routes one decoded client message through the lobby state
// machine. Handle runs under the state lock and returns the outbound
// messages as envelopes; the caller writes them after the lock is released.
// A non-nil error from Handle is a protocol violation and tears the
// connection down.
type Dispatcher struct {
	state *State
	store Store
	bus   *events.EventBus
	opts  Options
	log   zerolog.Logger
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(state *State, store Store, bus *events.EventBus, opts Options) *Dispatcher {
	return &Dispatcher{
		state: state,
		store: store,
		bus:   bus,
		opts:  opts,
		log:   util.ComponentLogger("lobby"),
	}
}

// State exposes the lobby state for the admin surfaces.
func (d *Dispatcher) State() *State {
	return d.state
}

// push appends one envelope, swallowing (and logging) builder errors so a
// single oversized payload never kills the whole dispatch.
func (d *Dispatcher) push(envs []Envelope, to *Player, data []byte, err error) []Envelope {
	if err != nil {
		d.log.Error().Err(err).Uint32("client_id", to.ClientID).Msg("dropping unbuildable message")
		return envs
	}
	return append(envs, Envelope{To: to, Data: data})
}

// fanOut appends one envelope per recipient sharing the same payload.
func (d *Dispatcher) fanOut(envs []Envelope, to []*Player, data []byte, err error) []Envelope {
	if err != nil {
		d.log.Error().Err(err).Msg("dropping unbuildable broadcast")
		return envs
	}
	for _, pl := range to {
		envs = append(envs, Envelope{To: pl, Data: data})
	}
	return envs
}

// announce sends a chat line to every authorized player.
func (d *Dispatcher) announce(envs []Envelope, text string) []Envelope {
	data, err := protocol.BuildChat(0, 0, text)
	return d.fanOut(envs, d.state.authorizedPlayers(), data, err)
}

func (d *Dispatcher) emit(t events.EventType, payload interface{}) {
	if d.bus == nil {
		return
	}
	d.bus.Emit(context.Background(), events.Event{Type: t, Source: "lobby", Payload: payload})
}

// Handle dispatches one complete framed message from a connected console.
func (d *Dispatcher) Handle(p *Player, msg []byte) ([]Envelope, error) {
	h, ok := protocol.ParseHeader(msg)
	if !ok {
		return nil, fmt.Errorf("lobby: message too short")
	}

	d.state.mu.Lock()
	defer d.state.mu.Unlock()

	switch h.ID {
	case protocol.MsgLoginRequest:
		return d.handleLogin(p, msg)
	case protocol.MsgMenuChange:
		return d.handleMenuChange(p, msg)
	case protocol.MsgChat:
		return d.handleChat(p, msg), nil
	case protocol.MsgInfoRequest:
		return d.handleInfoRequest(p, msg), nil
	case protocol.MsgPuzzleUpload:
		return d.handlePuzzleUpload(p, msg), nil
	case protocol.MsgPlayerStats:
		return d.handleStats(p, msg)
	default:
		d.log.Debug().
			Uint8("msg_id", h.ID).
			Uint32("client_id", p.ClientID).
			Msg("unsupported client message")
		return nil, nil
	}
}

// handleLogin processes the lobby login (0x04): first contact after the
// copyright exchange and every post-game reconnect.
func (d *Dispatcher) handleLogin(p *Player, msg []byte) ([]Envelope, error) {
	req, err := protocol.ParseLoginRequest(msg)
	if err != nil {
		return nil, err
	}

	var envs []Envelope
	if req.Username == "" {
		return d.push(envs, p, protocol.BuildLoginAck(protocol.LoginAckServerFull), nil), nil
	}

	if p.Name != req.Username {
		d.log.Info().Str("username", req.Username).Uint32("client_id", p.ClientID).Msg("player logging in")
		p.Name = req.Username
		p.DeviceID = req.DeviceID

		stats, err := d.store.Ranking(p.DeviceID[:], p.Name)
		if err != nil {
			// No ranking row means no valid account; drop the connection.
			return nil, fmt.Errorf("lobby: fetch ranking for %q: %w", p.Name, err)
		}
		p.Persisted = stats
		d.adoptStaleSession(p)
		p.Authorized = true
	}

	// A nonzero flag carries the local controller count and marks the
	// login that should be announced.
	if req.Controllers != 0 {
		p.Controllers = req.Controllers
		envs = d.announce(envs, fmt.Sprintf("[%s]: *** joined the server ***\n", p.Name))
		d.emit(events.EventPlayerJoined, events.PlayerJoinedPayload{
			Player:      p.Name,
			PlayerCount: len(d.state.authorizedPlayers()),
		})
	}

	ack, err := protocol.BuildLoginOK(p.DeviceID)
	envs = d.push(envs, p, ack, err)

	p.Menu, p.Item = protocol.MenuServer, 0
	menu, err := d.state.serverMenu(d.opts.Deedee)
	return d.push(envs, p, menu, err), nil
}

// adoptStaleSession handles a console that timed out and reconnected before
// the old connection was torn down: the old session's counters are flushed
// under the new identity and the old session is barred from flushing again.
func (d *Dispatcher) adoptStaleSession(p *Player) {
	for _, other := range d.state.players {
		if other == nil || other == p || !other.Authorized {
			continue
		}
		if other.DeviceID != p.DeviceID {
			continue
		}
		d.log.Info().Str("username", p.Name).Msg("found stale session for device")
		other.StoreRanking = false
		if !other.Session.Zero() {
			combined := RoundStats{
				Won:   other.Session.Won + p.Persisted.Won,
				Lost:  other.Session.Lost + p.Persisted.Lost,
				Total: other.Session.Total + p.Persisted.Total,
			}
			if err := d.store.UpdateRanking(p.DeviceID[:], p.Name, combined); err != nil {
				d.log.Error().Err(err).Str("username", p.Name).Msg("could not flush stale session ranking")
			}
		}
		return
	}
}

// handleMenuChange processes a menu selection (0x10), including the create
// room and password entry forms that ride along with some selections.
func (d *Dispatcher) handleMenuChange(p *Player, msg []byte) ([]Envelope, error) {
	mc, err := protocol.ParseMenuChange(msg)
	if err != nil {
		return nil, err
	}

	if mc.HasForm {
		switch mc.Selection {
		case protocol.SelectCreateRoom:
			return d.createRoomFlow(p, mc), nil
		case protocol.SelectRoom:
			r := d.state.roomByItemID(mc.ItemID)
			if r != nil && r.PasswordProtected() && r.Password != mc.FormPass {
				d.log.Warn().Str("username", p.Name).Str("room", r.Name).Msg("wrong room password")
				data, err := protocol.BuildNotify(protocol.NotifyBadPassword)
				return d.push(nil, p, data, err), nil
			}
		}
	}
	return d.menuTransition(p, mc), nil
}

// createRoomFlow handles the create-room form submission.
func (d *Dispatcher) createRoomFlow(p *Player, mc protocol.MenuChange) []Envelope {
	var envs []Envelope
	if p.CreatedRoom {
		data, err := protocol.BuildNotify(protocol.NotifyAlreadyCreated)
		return d.push(envs, p, data, err)
	}

	r := d.state.createRoom(mc.FormName, mc.FormPass, p.Name)
	if r == nil {
		d.log.Warn().Str("username", p.Name).Msg("room creation rejected")
		data, err := protocol.BuildNotify(protocol.NotifyUploadFailed)
		return d.push(envs, p, data, err)
	}
	p.CreatedRoom = true
	d.log.Info().Str("username", p.Name).Str("room", r.Name).Msg("game room created")

	menu, err := d.state.roomMenu()
	envs = d.fanOut(envs, d.state.roomMenuAudience(), menu, err)
	envs = d.announce(envs, fmt.Sprintf("[%s]: *** created a new game room ***\n", p.Name))
	d.emit(events.EventRoomCreated, events.RoomCreatedPayload{Room: r.Name, Creator: p.Name})
	return envs
}

// menuTransition moves the player through the menu graph. The position is
// updated first; vetoed transitions (full room, lonely start) roll it back.
func (d *Dispatcher) menuTransition(p *Player, mc protocol.MenuChange) []Envelope {
	var envs []Envelope
	prevMenu, prevItem := p.Menu, p.Item
	p.Menu, p.Item = mc.Menu, mc.ItemID

	switch mc.Menu {
	case protocol.MenuServer:
		switch mc.Selection {
		case protocol.SelectRanking:
			return d.rankingPanel(p)
		case protocol.SelectNews:
			return d.newsPanel(p)
		default:
			menu, err := d.state.serverMenu(d.opts.Deedee)
			return d.push(envs, p, menu, err)
		}

	case protocol.MenuRoom:
		if mc.Selection == protocol.SelectExit {
			envs = d.leaveCurrentRoom(envs, p)
		}
		menu, err := d.state.roomMenu()
		return d.fanOut(envs, d.state.roomMenuAudience(), menu, err)

	case protocol.MenuGame:
		if mc.Selection == protocol.SelectStartGame {
			return d.startGame(p, prevMenu, prevItem)
		}
		return d.joinRoomFlow(p, mc.ItemID, prevMenu, prevItem)

	case protocol.MenuPuzzleLand:
		if mc.Selection == protocol.SelectUploadPuzzle {
			data, err := protocol.BuildUploadPrompt()
			return d.push(envs, p, data, err)
		}
		menu, err := puzzleLandMenu()
		return d.push(envs, p, menu, err)

	case protocol.MenuPuzzleZone:
		menu, err := d.state.puzzleZoneMenu()
		envs = d.push(envs, p, menu, err)
		info, err := protocol.BuildInfoBox("Press X to\nsee the puzzle creator")
		return d.push(envs, p, info, err)

	case protocol.MenuPuzzleZoneFile:
		return d.downloadPuzzle(p, mc.ItemID)

	default:
		menu, err := d.state.serverMenu(d.opts.Deedee)
		return d.push(envs, p, menu, err)
	}
}

// startGame validates and launches the game for the room the player is in.
func (d *Dispatcher) startGame(p *Player, prevMenu protocol.MenuID, prevItem uint32) []Envelope {
	var envs []Envelope
	r := d.state.roomByItemID(prevItem)
	if r == nil {
		return nil
	}
	if r.TakenSeats < 2 {
		data, err := protocol.BuildNotify(protocol.NotifyAlone)
		envs = d.push(envs, p, data, err)
		p.Menu, p.Item = prevMenu, prevItem
		return envs
	}

	names := r.occupantNames()
	d.log.Info().Str("room", r.Name).Strs("players", names).Msg("starting game")
	d.emit(events.EventGameStarted, events.GameStartedPayload{Room: r.Name, Players: names})

	roster, err := protocol.BuildStartGame(r.roster())
	envs = d.fanOut(envs, r.occupants(), roster, err)
	r.clearSeats()
	return envs
}

// joinRoomFlow seats the player or rolls the transition back when the room
// cannot take them.
func (d *Dispatcher) joinRoomFlow(p *Player, itemID uint32, prevMenu protocol.MenuID, prevItem uint32) []Envelope {
	var envs []Envelope
	r := d.state.roomByItemID(itemID)
	if r == nil {
		return nil
	}

	seatCap := len(r.Seats)
	if r.TakenSeats >= seatCap || int(p.Controllers)+r.TakenSeats > seatCap {
		data, err := protocol.BuildNotify(protocol.NotifyRoomFull)
		envs = d.push(envs, p, data, err)
		p.Menu, p.Item = prevMenu, prevItem
		return envs
	}

	if !d.state.joinRoom(r, p) {
		p.Menu, p.Item = prevMenu, prevItem
		return nil
	}
	d.log.Info().Str("username", p.Name).Str("room", r.Name).Msg("player joined room")
	d.emit(events.EventRoomJoined, events.RoomJoinedPayload{
		Room:    r.Name,
		Player:  p.Name,
		Players: d.state.playerNames(),
	})

	menu, err := gameMenu(r)
	return d.fanOut(envs, r.occupants(), menu, err)
}

// leaveCurrentRoom removes the player from their room, if any, and tells
// the remaining occupants.
func (d *Dispatcher) leaveCurrentRoom(envs []Envelope, p *Player) []Envelope {
	r := d.state.leaveRoom(p)
	if r == nil {
		return envs
	}
	d.log.Info().Str("username", p.Name).Str("room", r.Name).Msg("player left room")
	if r.TakenSeats > 0 {
		menu, err := gameMenu(r)
		envs = d.fanOut(envs, r.occupants(), menu, err)
	}
	return envs
}

func (d *Dispatcher) rankingPanel(p *Player) []Envelope {
	table, err := d.store.TopRanking()
	if err != nil {
		d.log.Error().Err(err).Msg("could not generate top ranking")
		return nil
	}
	data, err := protocol.BuildInfoPanel([]byte(table))
	return d.push(nil, p, data, err)
}

func (d *Dispatcher) newsPanel(p *Player) []Envelope {
	content, err := os.ReadFile(d.opts.InfoPath)
	if err != nil {
		d.log.Error().Err(err).Str("path", d.opts.InfoPath).Msg("could not read news file")
		return nil
	}
	data, err := protocol.BuildInfoPanel(content)
	return d.push(nil, p, data, err)
}

// downloadPuzzle replies with the puzzle blob and bumps the download
// counter.
func (d *Dispatcher) downloadPuzzle(p *Player, id uint32) []Envelope {
	name, blob, err := d.store.PuzzleBlob(id)
	if err != nil {
		d.log.Error().Err(err).Uint32("puzzle_id", id).Msg("puzzle download failed")
		data, err := protocol.BuildNotify(protocol.NotifyDownloadFailed)
		return d.push(nil, p, data, err)
	}

	if err := d.store.IncrementDownloads(id); err != nil {
		d.log.Warn().Err(err).Uint32("puzzle_id", id).Msg("could not update download counter")
	} else if pz := d.state.puzzleByID(id); pz != nil {
		pz.Downloads++
	}

	data, err := protocol.BuildPuzzleData(name, blob)
	return d.push(nil, p, data, err)
}

// handleChat fans a chat line out to the lobby or whispers it to a single
// player.
func (d *Dispatcher) handleChat(p *Player, msg []byte) []Envelope {
	cm, err := protocol.ParseChat(msg)
	if err != nil {
		return nil
	}
	if len(cm.Text) >= 1024 {
		d.log.Warn().Uint32("client_id", p.ClientID).Msg("oversized chat message dropped")
		return nil
	}

	if cm.ItemID == 0 {
		line := fmt.Sprintf("[%s]:\t%s", p.Name, cm.Text)
		data, err := protocol.BuildChat(cm.Menu, 0, line)
		var all []*Player
		for _, pl := range d.state.players {
			if pl != nil {
				all = append(all, pl)
			}
		}
		return d.fanOut(nil, all, data, err)
	}

	// Whisper: the item id is the target's client id in the same menu.
	for _, pl := range d.state.players {
		if pl != nil && pl.Menu == cm.Menu && pl.ClientID == cm.ItemID {
			data, err := protocol.BuildWhisper(p.Name, cm.Text)
			return d.push(nil, pl, data, err)
		}
	}
	return nil
}

// handleInfoRequest fills the bottom-right info box for the item under the
// cursor.
func (d *Dispatcher) handleInfoRequest(p *Player, msg []byte) []Envelope {
	req, err := protocol.ParseInfoRequest(msg)
	if err != nil {
		return nil
	}

	// A player entry takes precedence regardless of menu.
	if target := d.state.playerByClientID(req.ItemID); target != nil {
		text := fmt.Sprintf("Rounds\nWon: %d\nLost: %d\nTotal: %d\nControllers: %d",
			target.Session.Won+target.Persisted.Won,
			target.Session.Lost+target.Persisted.Lost,
			target.Session.Total+target.Persisted.Total,
			target.Controllers)
		data, err := protocol.BuildInfoBox(text)
		return d.push(nil, p, data, err)
	}

	var text string
	switch req.Menu {
	case protocol.MenuGame:
		r := d.state.roomByItemID(req.ItemID)
		if r == nil {
			return nil
		}
		text = fmt.Sprintf("%d of %d\nusers in the room\nCreated by\n%s", r.TakenSeats, len(r.Seats), r.Creator)
	case protocol.MenuPuzzleZone:
		text = "Press X to\nsee the puzzle creator"
	case protocol.MenuPuzzleZoneFile:
		pz := d.state.puzzleByID(req.ItemID)
		if pz == nil {
			return nil
		}
		text = fmt.Sprintf("Created by\n%s\nDownloaded:\n%d", pz.Creator, pz.Downloads)
	default:
		text = "No additional\ninfo"
	}
	data, err := protocol.BuildInfoBox(text)
	return d.push(nil, p, data, err)
}

// handlePuzzleUpload stores an uploaded puzzle and replies with the puzzle
// land menu plus a result notification.
func (d *Dispatcher) handlePuzzleUpload(p *Player, msg []byte) []Envelope {
	var envs []Envelope

	up, err := protocol.ParsePuzzleUpload(msg)
	if err != nil {
		d.log.Warn().Err(err).Uint32("client_id", p.ClientID).Msg("rejecting malformed puzzle upload")
		data, err := protocol.BuildNotify(protocol.NotifyUploadFailed)
		return d.push(envs, p, data, err)
	}

	menu, err := puzzleLandMenu()
	envs = d.push(envs, p, menu, err)

	result := protocol.NotifyUploadOK
	exists, err := d.store.PuzzleExists(up.Name)
	switch {
	case err != nil:
		d.log.Error().Err(err).Msg("puzzle lookup failed")
		result = protocol.NotifyUploadFailed
	case exists:
		result = protocol.NotifyPuzzleExists
	default:
		id, err := d.store.InsertPuzzle(up.Name, p.Name, up.Data)
		if err != nil {
			d.log.Error().Err(err).Str("puzzle", up.Name).Msg("puzzle insert failed")
			result = protocol.NotifyUploadFailed
		} else {
			d.state.addPuzzle(Puzzle{ID: id, Name: up.Name, Creator: p.Name})
			d.log.Info().Str("puzzle", up.Name).Str("username", p.Name).Msg("puzzle uploaded")
		}
	}

	data, err := protocol.BuildNotify(result)
	return d.push(envs, p, data, err)
}

// handleStats records the round counters the game reports after a match.
// They are flushed to the database when the session ends.
func (d *Dispatcher) handleStats(p *Player, msg []byte) ([]Envelope, error) {
	st, err := protocol.ParseStatsUpdate(msg)
	if err != nil {
		return nil, err
	}
	p.Session = RoundStats{Won: st.Won, Lost: st.Lost, Total: st.Total}
	return nil, nil
}

// Disconnect tears a player down: ranking flush, room removal, departure
// announcement, slot release. Safe to call for never-authorized players.
func (d *Dispatcher) Disconnect(p *Player) []Envelope {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()

	var envs []Envelope
	announced := p.Authorized && p.StoreRanking
	if announced {
		if !p.Session.Zero() {
			combined := RoundStats{
				Won:   p.Session.Won + p.Persisted.Won,
				Lost:  p.Session.Lost + p.Persisted.Lost,
				Total: p.Session.Total + p.Persisted.Total,
			}
			if err := d.store.UpdateRanking(p.DeviceID[:], p.Name, combined); err != nil {
				d.log.Error().Err(err).Str("username", p.Name).Msg("could not store ranking")
			}
		}
		envs = d.leaveCurrentRoom(envs, p)
	}
	d.state.removePlayer(p)
	if announced {
		envs = d.announce(envs, fmt.Sprintf("[%s]: *** left the server ***\n", p.Name))
		d.emit(events.EventPlayerLeft, events.PlayerLeftPayload{
			Player:      p.Name,
			PlayerCount: len(d.state.authorizedPlayers()),
		})
	}
	d.log.Info().Uint32("client_id", p.ClientID).Msg("client removed")
	return envs
}
