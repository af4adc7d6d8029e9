// Package network implements the TCP listeners for the login and lobby
// servers and the encrypted console connections they hand out.
package network

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chulobby-project/chulobby/internal/crypt"
	"github.com/chulobby-project/chulobby/internal/util"
)

// The console can sit on a menu for a long time without draining its socket;
// writes get the same generous 30-minute bound the reads use.
const writeTimeout = 30 * time.Minute

// Conn wraps one console TCP connection. Everything after the copyright
// greeting is encrypted; outbound traffic runs through this connection's
// keystream under the write lock so concurrent broadcasts cannot interleave
// cipher state.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	out    *crypt.Cipher
	logger zerolog.Logger

	connectedAt  time.Time
	lastActivity time.Time
	closed       bool
}

// NewConn wraps an accepted connection with its outbound cipher.
func NewConn(conn net.Conn, out *crypt.Cipher) *Conn {
	now := time.Now()
	return &Conn{
		conn:         conn,
		out:          out,
		connectedAt:  now,
		lastActivity: now,
		logger: util.ComponentLogger("connection").With().
			Str("remote", conn.RemoteAddr().String()).
			Logger(),
	}
}

// Send encrypts and writes one complete message. It satisfies the outbox
// the lobby delivers through, so failures are logged rather than returned;
// a broken socket is noticed by the reader side and torn down there.
func (c *Conn) Send(data []byte) {
	buf := append([]byte(nil), data...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.out.CryptInPlace(buf); err != nil {
		c.logger.Error().Err(err).Msg("refusing to send unalignable message")
		return
	}
	if err := c.write(buf); err != nil {
		c.logger.Warn().Err(err).Msg("send failed")
	}
}

// SendPlain writes one message without encryption. Only the copyright
// greeting goes out this way.
func (c *Conn) SendPlain(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection is closed")
	}
	return c.write(data)
}

// write assumes c.mu is held.
func (c *Conn) write(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	c.lastActivity = time.Now()
	return nil
}

// Read fills buf with whatever the console sent, honoring the idle timeout.
func (c *Conn) Read(buf []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
	return n, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info().Msg("connection closed")
	return c.conn.Close()
}

// IsClosed returns whether the connection has been closed.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastActivity returns the time of the last read/write activity.
func (c *Conn) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// RemoteAddr returns the remote address of the connection.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// newSeed draws a cipher seed the way the original service did: four bytes,
// each limited to a nibble.
func newSeed() uint32 {
	var seed uint32
	for i := 0; i < 4; i++ {
		seed = seed<<8 | uint32(rand.Intn(16))
	}
	return seed
}

// remoteIPv4 extracts the console's IPv4 address as a big-endian word for
// the start-game roster. Zero when the peer is not IPv4.
func remoteIPv4(addr net.Addr) uint32 {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return 0
	}
	ip4 := tcp.IP.To4()
	if ip4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip4)
}
