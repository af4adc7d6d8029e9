package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/crypt"
	"github.com/chulobby-project/chulobby/internal/lobby"
	"github.com/chulobby-project/chulobby/internal/protocol"
	"github.com/chulobby-project/chulobby/internal/util"
)

// Client ids share the wire's item-id field with the single-byte menu
// sentinels, puzzle row ids and the 0x2000+ room item ids, so they live in
// the window between the sentinels and RoomItemBase and wrap inside it.
const (
	clientIDBase  = uint32(0x0100)
	clientIDLimit = protocol.RoomItemBase
)

// LobbyServer accepts game consoles redirected here by the login server and
// runs each one through the lobby dispatcher.
type LobbyServer struct {
	cfg        *config.Config
	dispatcher *lobby.Dispatcher
	listener   net.Listener
	nextID     uint32
}

// NewLobbyServer creates the lobby listener.
func NewLobbyServer(cfg *config.Config, dispatcher *lobby.Dispatcher) *LobbyServer {
	return &LobbyServer{cfg: cfg, dispatcher: dispatcher}
}

// nextClientID hands out the next id in the client window.
func (s *LobbyServer) nextClientID() uint32 {
	n := atomic.AddUint32(&s.nextID, 1)
	return clientIDBase + n%(clientIDLimit-clientIDBase)
}

// Start begins accepting console connections. Blocks until ctx is done.
func (s *LobbyServer) Start(ctx context.Context) error {
	sd := s.cfg.GetServerData()
	addr := fmt.Sprintf("%s:%d", sd.BindIP, sd.LobbyPort)

	// SO_REUSEADDR allows immediate rebinding after a restart.
	lc := ReuseAddrListenConfig()
	var err error
	s.listener, err = lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start lobby listener on %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Msg("lobby server started")

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info().Msg("lobby server stopping")
				return nil
			default:
				log.Error().Err(err).Msg("failed to accept connection")
				continue
			}
		}

		log.Debug().
			Str("remote", conn.RemoteAddr().String()).
			Msg("new console connection")

		go s.handleConnection(ctx, conn)
	}
}

// handleConnection runs one console session: copyright greeting, then the
// encrypted message loop until the console leaves or breaks protocol.
func (s *LobbyServer) handleConnection(ctx context.Context, rawConn net.Conn) {
	sd := s.cfg.GetServerData()
	idleTimeout := time.Duration(sd.IdleTimeoutMin) * time.Minute

	serverSeed, clientSeed := newSeed(), newSeed()
	conn := NewConn(rawConn, crypt.NewCipher(serverSeed))
	defer conn.Close()
	inbound := crypt.NewCipher(clientSeed)

	clientID := s.nextClientID()
	logger := util.ComponentLogger("lobby_handler").With().
		Uint32("client_id", clientID).
		Str("remote", rawConn.RemoteAddr().String()).
		Logger()

	p := lobby.NewPlayer(clientID, remoteIPv4(rawConn.RemoteAddr()), conn)
	if !s.dispatcher.State().AddPlayer(p) {
		logger.Warn().Msg("lobby full, dropping connection")
		return
	}

	greeting, err := protocol.BuildCopyright(false, serverSeed, clientSeed)
	if err == nil {
		err = conn.SendPlain(greeting)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to send greeting")
		s.deliver(s.dispatcher.Disconnect(p))
		return
	}

	buf := make([]byte, protocol.MaxMessageSize)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("context cancelled, closing connection")
			s.deliver(s.dispatcher.Disconnect(p))
			return
		default:
		}

		n, err := conn.Read(buf, idleTimeout)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF) || conn.IsClosed():
				logger.Debug().Msg("console disconnected")
			default:
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					logger.Warn().Msg("console idle timeout")
				} else {
					logger.Error().Err(err).Msg("read error, closing connection")
				}
			}
			s.deliver(s.dispatcher.Disconnect(p))
			return
		}

		// The stream cipher works on whole words; a misaligned read means
		// the keystreams have diverged and the session cannot continue.
		if err := inbound.CryptInPlace(buf[:n]); err != nil {
			logger.Warn().Err(err).Msg("undecryptable read, closing connection")
			s.deliver(s.dispatcher.Disconnect(p))
			return
		}

		off := 0
		for {
			size := protocol.FrameNext(buf[off:n])
			if size == 0 {
				break
			}
			envs, err := s.dispatcher.Handle(p, buf[off:off+size])
			s.deliver(envs)
			if err != nil {
				logger.Warn().Err(err).Msg("protocol violation, closing connection")
				s.deliver(s.dispatcher.Disconnect(p))
				return
			}
			off += size
		}
	}
}

// deliver writes dispatch results to their recipients. Runs outside the
// lobby lock.
func (s *LobbyServer) deliver(envs []lobby.Envelope) {
	for _, e := range envs {
		e.To.Deliver(e.Data)
	}
}

// Stop gracefully stops the lobby listener.
func (s *LobbyServer) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
