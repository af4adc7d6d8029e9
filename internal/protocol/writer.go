package protocol

import (
	"encoding/binary"
	"fmt"
)

// MessageWriter builds one outbound message. It reserves the header up front
// and enforces the protocol's message size ceiling; once a write would
// exceed it, the writer goes sticky-bad and Finish reports the error.
type MessageWriter struct {
	buf []byte
	err error
}

// NewMessageWriter returns a writer with the header bytes reserved.
func NewMessageWriter() *MessageWriter {
	return &MessageWriter{buf: make([]byte, HeaderSize, 64)}
}

func (w *MessageWriter) grow(n int) []byte {
	if w.err != nil {
		return nil
	}
	if len(w.buf)+n > MaxMessageSize {
		w.err = fmt.Errorf("protocol: message exceeds %d bytes", MaxMessageSize)
		return nil
	}
	off := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return w.buf[off:]
}

// WriteByte appends a single byte.
func (w *MessageWriter) WriteByte(v byte) *MessageWriter {
	if b := w.grow(1); b != nil {
		b[0] = v
	}
	return w
}

// WriteUint16 appends v in big-endian order.
func (w *MessageWriter) WriteUint16(v uint16) *MessageWriter {
	if b := w.grow(2); b != nil {
		binary.BigEndian.PutUint16(b, v)
	}
	return w
}

// WriteUint32 appends v in big-endian order.
func (w *MessageWriter) WriteUint32(v uint32) *MessageWriter {
	if b := w.grow(4); b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
	return w
}

// WriteBytes appends raw bytes.
func (w *MessageWriter) WriteBytes(data []byte) *MessageWriter {
	if b := w.grow(len(data)); b != nil {
		copy(b, data)
	}
	return w
}

// WriteString appends the bytes of s with no terminator.
func (w *MessageWriter) WriteString(s string) *MessageWriter {
	if b := w.grow(len(s)); b != nil {
		copy(b, s)
	}
	return w
}

// WriteFixedString appends s into a NUL-padded field of the given width,
// truncating to keep at least one terminator byte.
func (w *MessageWriter) WriteFixedString(s string, width int) *MessageWriter {
	if b := w.grow(width); b != nil {
		putCString(b, s)
	}
	return w
}

// Pad appends n zero bytes.
func (w *MessageWriter) Pad(n int) *MessageWriter {
	w.grow(n)
	return w
}

// PadTo extends the message with zero bytes up to the given absolute offset.
func (w *MessageWriter) PadTo(offset int) *MessageWriter {
	if n := offset - len(w.buf); n > 0 {
		w.grow(n)
	}
	return w
}

// Len returns the current message length including the header.
func (w *MessageWriter) Len() int {
	return len(w.buf)
}

// SetByte overwrites a single byte at an absolute offset already written.
func (w *MessageWriter) SetByte(offset int, v byte) *MessageWriter {
	if w.err == nil && offset < len(w.buf) {
		w.buf[offset] = v
	}
	return w
}

// Finish stamps the header and returns the completed message.
func (w *MessageWriter) Finish(id, flag byte) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	BuildHeader(w.buf, id, flag, uint16(len(w.buf)))
	return w.buf, nil
}
