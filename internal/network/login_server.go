package network

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/crypt"
	"github.com/chulobby-project/chulobby/internal/lobby"
	"github.com/chulobby-project/chulobby/internal/protocol"
	"github.com/chulobby-project/chulobby/internal/util"
)

// loginTimeout bounds the whole authentication exchange; a console that
// stalls mid-login does not hold a socket for long.
const loginTimeout = 2 * time.Minute

// LoginServer is the first address a console dials. It checks whether the
// console is registered, handles account creation and credential checks,
// and redirects authenticated consoles to the lobby.
type LoginServer struct {
	cfg      *config.Config
	store    lobby.Store
	listener net.Listener
}

// NewLoginServer creates the login listener.
func NewLoginServer(cfg *config.Config, store lobby.Store) *LoginServer {
	return &LoginServer{cfg: cfg, store: store}
}

// Start begins accepting console connections. Blocks until ctx is done.
func (s *LoginServer) Start(ctx context.Context) error {
	sd := s.cfg.GetServerData()
	addr := fmt.Sprintf("%s:%d", sd.BindIP, sd.LoginPort)

	lc := ReuseAddrListenConfig()
	var err error
	s.listener, err = lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start login listener on %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Msg("login server started")

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info().Msg("login server stopping")
				return nil
			default:
				log.Error().Err(err).Msg("failed to accept connection")
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

// handleConnection walks one console through the authentication exchange:
// device check first, then registration or login, then the lobby redirect.
func (s *LoginServer) handleConnection(rawConn net.Conn) {
	serverSeed, clientSeed := newSeed(), newSeed()
	conn := NewConn(rawConn, crypt.NewCipher(serverSeed))
	defer conn.Close()
	inbound := crypt.NewCipher(clientSeed)

	logger := util.ComponentLogger("login_handler").With().
		Str("remote", rawConn.RemoteAddr().String()).
		Logger()

	greeting, err := protocol.BuildCopyright(true, serverSeed, clientSeed)
	if err == nil {
		err = conn.SendPlain(greeting)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to send greeting")
		return
	}

	started := false
	buf := make([]byte, protocol.MaxMessageSize)
	for {
		n, err := conn.Read(buf, loginTimeout)
		if err != nil {
			if !errors.Is(err, io.EOF) && !conn.IsClosed() {
				logger.Debug().Err(err).Msg("login connection ended")
			}
			return
		}
		if err := inbound.CryptInPlace(buf[:n]); err != nil {
			logger.Warn().Err(err).Msg("undecryptable read, closing connection")
			return
		}

		off := 0
		for {
			size := protocol.FrameNext(buf[off:n])
			if size == 0 {
				break
			}
			done, err := s.handleMessage(conn, logger, buf[off:off+size], &started)
			if err != nil {
				logger.Warn().Err(err).Msg("protocol violation, closing connection")
				return
			}
			if done {
				return
			}
			off += size
		}
	}
}

// handleMessage processes one framed login-server message. done is true
// once the console has been redirected and the session is over.
func (s *LoginServer) handleMessage(conn *Conn, logger zerolog.Logger, msg []byte, started *bool) (done bool, err error) {
	h, ok := protocol.ParseHeader(msg)
	if !ok {
		return false, fmt.Errorf("message too short")
	}

	// The device check must come first; nothing else is valid before it.
	if !*started {
		if h.ID != protocol.MsgLoginStatus {
			return false, fmt.Errorf("expected device check, got %#02x", h.ID)
		}
		deviceID, err := protocol.ParseLoginStatusRequest(msg)
		if err != nil {
			return false, err
		}

		registered, err := s.store.DeviceRegistered(deviceID[:])
		if err != nil {
			return false, fmt.Errorf("device lookup: %w", err)
		}
		flag := protocol.LoginStatusNew
		if registered {
			flag = protocol.LoginStatusRegistered
		}
		logger.Info().Bool("registered", registered).Msg("console identified")
		conn.Send(protocol.BuildLoginStatus(flag))
		*started = true
		return false, nil
	}

	switch h.ID {
	case protocol.MsgAuth: // registration
		req, err := protocol.ParseAuthRequest(msg)
		if err != nil {
			return false, err
		}
		if req.Username == "" {
			conn.Send(protocol.BuildLoginAck(protocol.LoginAckServerFull))
			return false, nil
		}

		taken, err := s.store.UsernameTaken(req.Username)
		if err != nil {
			return false, fmt.Errorf("username lookup: %w", err)
		}
		if taken {
			logger.Info().Str("username", req.Username).Msg("username already taken")
			conn.Send(protocol.BuildAuthResult(protocol.AuthFlagUsernameTaken))
			return false, nil
		}

		if err := s.store.CreateAccount(req.DeviceID[:], req.Username, req.Password); err != nil {
			return false, fmt.Errorf("account creation: %w", err)
		}
		logger.Info().Str("username", req.Username).Msg("account registered")
		conn.Send(protocol.BuildAuthResult(protocol.AuthFlagOK))
		return true, s.redirect(conn)

	case protocol.MsgLoginRequest: // credential check
		req, err := protocol.ParseAuthRequest(msg)
		if err != nil {
			return false, err
		}
		if req.Username == "" {
			conn.Send(protocol.BuildLoginAck(protocol.LoginAckServerFull))
			return false, nil
		}

		valid, err := s.store.ValidateLogin(req.Username, req.Password, req.DeviceID[:])
		if err != nil {
			return false, fmt.Errorf("login validation: %w", err)
		}
		if !valid {
			logger.Info().Str("username", req.Username).Msg("invalid credentials")
			conn.Send(protocol.BuildLoginAck(protocol.LoginAckWrongPass))
			return false, nil
		}
		logger.Info().Str("username", req.Username).Msg("console authenticated")
		conn.Send(protocol.BuildAuthResult(protocol.AuthFlagOK))
		return true, s.redirect(conn)

	default:
		logger.Debug().Uint8("msg_id", h.ID).Msg("unsupported login message")
		return false, nil
	}
}

// redirect points the console at the lobby server.
func (s *LoginServer) redirect(conn *Conn) error {
	sd := s.cfg.GetServerData()
	ip4 := net.ParseIP(sd.PublicIP).To4()
	if ip4 == nil {
		return fmt.Errorf("public IP %q is not IPv4", sd.PublicIP)
	}
	data, err := protocol.BuildRedirect(binary.BigEndian.Uint32(ip4), uint16(sd.LobbyPort))
	if err != nil {
		return err
	}
	conn.Send(data)
	return nil
}

// Stop gracefully stops the login listener.
func (s *LoginServer) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
