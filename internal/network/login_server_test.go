package network

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/crypt"
	"github.com/chulobby-project/chulobby/internal/lobby"
	"github.com/chulobby-project/chulobby/internal/protocol"
)

// authStore is a minimal account store for the login exchange.
type authStore struct {
	registered bool
	taken      bool
	validLogin bool

	createdUser string
	createdPass string
}

func (a *authStore) DeviceRegistered(deviceID []byte) (bool, error) { return a.registered, nil }
func (a *authStore) UsernameTaken(username string) (bool, error)    { return a.taken, nil }
func (a *authStore) CreateAccount(deviceID []byte, username, password string) error {
	a.createdUser, a.createdPass = username, password
	return nil
}
func (a *authStore) ValidateLogin(username, password string, deviceID []byte) (bool, error) {
	return a.validLogin, nil
}
func (a *authStore) Ranking(deviceID []byte, username string) (lobby.RoundStats, error) {
	return lobby.RoundStats{}, nil
}
func (a *authStore) UpdateRanking(deviceID []byte, username string, stats lobby.RoundStats) error {
	return nil
}
func (a *authStore) TopRanking() (string, error)                { return "", nil }
func (a *authStore) Puzzles() ([]lobby.Puzzle, error)           { return nil, nil }
func (a *authStore) PuzzleExists(name string) (bool, error)     { return false, nil }
func (a *authStore) InsertPuzzle(name, creator string, data []byte) (uint32, error) {
	return 0, nil
}
func (a *authStore) PuzzleBlob(id uint32) (string, []byte, error) { return "", nil, nil }
func (a *authStore) IncrementDownloads(id uint32) error           { return nil }

// loginClient drives the console side of the exchange over a pipe.
type loginClient struct {
	t    *testing.T
	conn net.Conn
	in   *crypt.Cipher
	out  *crypt.Cipher
}

func startLoginSession(t *testing.T, store *authStore) *loginClient {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ServerData.PublicIP = "203.0.113.7"

	server, client := net.Pipe()
	srv := NewLoginServer(cfg, store)
	go srv.handleConnection(server)

	c := &loginClient{t: t, conn: client}
	t.Cleanup(func() { client.Close() })

	// Greeting comes first, unencrypted, carrying both cipher seeds.
	greeting := c.readPlain(protocol.CopyrightSize)
	require.Equal(t, protocol.MsgLoginCopyright, greeting[0])
	serverSeed := binary.BigEndian.Uint32(greeting[68:72])
	clientSeed := binary.BigEndian.Uint32(greeting[72:76])
	c.in = crypt.NewCipher(serverSeed)
	c.out = crypt.NewCipher(clientSeed)
	return c
}

func (c *loginClient) readPlain(n int) []byte {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	_, err := io.ReadFull(c.conn, buf)
	require.NoError(c.t, err)
	return buf
}

// readMessage reads and decrypts one complete framed server message.
func (c *loginClient) readMessage() []byte {
	c.t.Helper()
	head := c.readPlain(protocol.HeaderSize)
	require.NoError(c.t, c.in.CryptInPlace(head))
	h, ok := protocol.ParseHeader(head)
	require.True(c.t, ok)
	if int(h.Size) == protocol.HeaderSize {
		return head
	}
	rest := c.readPlain(int(h.Size) - protocol.HeaderSize)
	require.NoError(c.t, c.in.CryptInPlace(rest))
	return append(head, rest...)
}

func (c *loginClient) send(msg []byte) {
	c.t.Helper()
	buf := append([]byte(nil), msg...)
	require.NoError(c.t, c.out.CryptInPlace(buf))
	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := c.conn.Write(buf)
	require.NoError(c.t, err)
}

func deviceCheckMsg(device []byte) []byte {
	msg := make([]byte, protocol.LoginStatusMsgLen)
	protocol.BuildHeader(msg, protocol.MsgLoginStatus, 0x00, protocol.LoginStatusMsgLen)
	copy(msg[0x06:], device)
	return msg
}

func authMsg(id byte, device []byte, username, password string) []byte {
	msg := make([]byte, protocol.AuthMsgLen)
	protocol.BuildHeader(msg, id, 0x00, protocol.AuthMsgLen)
	copy(msg[0x06:], device)
	copy(msg[0x14:], username)
	copy(msg[0x24:], password)
	return msg
}

var testDevice = []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}

func TestLoginServerRegistration(t *testing.T) {
	store := &authStore{registered: false}
	c := startLoginSession(t, store)

	c.send(deviceCheckMsg(testDevice))
	status := c.readMessage()
	assert.Equal(t, protocol.MsgLoginStatus, status[0])
	assert.Equal(t, protocol.LoginStatusNew, status[1])

	c.send(authMsg(protocol.MsgAuth, testDevice, "alice", "secret"))
	result := c.readMessage()
	assert.Equal(t, protocol.MsgAuth, result[0])
	assert.Equal(t, protocol.AuthFlagOK, result[1])
	assert.Equal(t, "alice", store.createdUser)
	assert.Equal(t, "secret", store.createdPass)

	redirect := c.readMessage()
	require.Equal(t, protocol.MsgRedirect, redirect[0])
	assert.Equal(t, net.IPv4(203, 0, 113, 7).To4(), net.IP(redirect[4:8]))
	assert.Equal(t, uint16(config.DefaultLobbyPort), binary.BigEndian.Uint16(redirect[8:10]))
}

func TestLoginServerKnownDeviceLogin(t *testing.T) {
	store := &authStore{registered: true, validLogin: true}
	c := startLoginSession(t, store)

	c.send(deviceCheckMsg(testDevice))
	status := c.readMessage()
	assert.Equal(t, protocol.LoginStatusRegistered, status[1])

	c.send(authMsg(protocol.MsgLoginRequest, testDevice, "alice", "secret"))
	result := c.readMessage()
	assert.Equal(t, protocol.MsgAuth, result[0])
	assert.Equal(t, protocol.AuthFlagOK, result[1])

	redirect := c.readMessage()
	assert.Equal(t, protocol.MsgRedirect, redirect[0])
}

func TestLoginServerWrongPassword(t *testing.T) {
	store := &authStore{registered: true, validLogin: false}
	c := startLoginSession(t, store)

	c.send(deviceCheckMsg(testDevice))
	c.readMessage()

	c.send(authMsg(protocol.MsgLoginRequest, testDevice, "alice", "wrong"))
	ack := c.readMessage()
	assert.Equal(t, protocol.MsgLoginRequest, ack[0])
	assert.Equal(t, protocol.LoginAckWrongPass, ack[1])
}

func TestLoginServerUsernameTaken(t *testing.T) {
	store := &authStore{registered: false, taken: true}
	c := startLoginSession(t, store)

	c.send(deviceCheckMsg(testDevice))
	c.readMessage()

	c.send(authMsg(protocol.MsgAuth, testDevice, "alice", "secret"))
	result := c.readMessage()
	assert.Equal(t, protocol.MsgAuth, result[0])
	assert.Equal(t, protocol.AuthFlagUsernameTaken, result[1])
	assert.Empty(t, store.createdUser)
}

func TestLoginServerRejectsOutOfOrderMessages(t *testing.T) {
	store := &authStore{}
	c := startLoginSession(t, store)

	// Credentials before the device check violate the exchange.
	c.send(authMsg(protocol.MsgAuth, testDevice, "alice", "secret"))

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4)
	_, err := io.ReadFull(c.conn, buf)
	assert.Error(t, err, "server must close without replying")
}
