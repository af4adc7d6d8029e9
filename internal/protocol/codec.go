package protocol

import (
	"encoding/binary"
)

// Header is the 4-byte prefix on every message:
// [id:1][flag:1][total size:u16 big-endian]. The size includes the header.
type Header struct {
	ID   byte
	Flag byte
	Size uint16
}

// BuildHeader writes a header into the first four bytes of buf.
func BuildHeader(buf []byte, id, flag byte, size uint16) {
	buf[0] = id
	buf[1] = flag
	binary.BigEndian.PutUint16(buf[2:4], size)
}

// ParseHeader reads the header from buf. ok is false when buf is too short
// to hold one.
func ParseHeader(buf []byte) (h Header, ok bool) {
	if len(buf) < HeaderSize {
		return Header{}, false
	}
	return Header{
		ID:   buf[0],
		Flag: buf[1],
		Size: binary.BigEndian.Uint16(buf[2:4]),
	}, true
}

// FrameNext returns the length of the first complete message in buf, or 0
// when buf does not hold one. The fixed console client writes each message
// in a single segment, so a short or oversized remainder is discarded by the
// caller rather than buffered.
func FrameNext(buf []byte) int {
	if len(buf) < HeaderSize {
		return 0
	}
	size := int(binary.BigEndian.Uint16(buf[2:4]))
	if size < HeaderSize || size > MaxMessageSize || size > len(buf) {
		return 0
	}
	return size
}

// cString returns the bytes of b up to the first NUL as a string.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// putCString copies s into dst, truncating to leave room for a NUL
// terminator. Bytes past the terminator are zeroed.
func putCString(dst []byte, s string) {
	n := len(s)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, s[:n])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
