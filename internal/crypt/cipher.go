// Package crypt implements the stream cipher used by the Dreamcast lobby
// protocol. It is a lagged Fibonacci keystream generator keyed from a single
// 32-bit seed; every connection runs two independent instances, one per
// traffic direction. The cipher is obfuscation, not security.
package crypt

import (
	"encoding/binary"
	"fmt"
)

const (
	tableSize = 1042
	// cursor value that triggers a remix before the next keystream word
	remixMark = 56
)

// Cipher holds the keystream table and cursor for one traffic direction.
// It is not safe for concurrent use; callers serialize access per direction.
type Cipher struct {
	keys [tableSize]uint32
	pos  int
}

// NewCipher returns a cipher keyed with seed. Two ciphers created from the
// same seed produce identical keystreams, which is what makes the scheme
// symmetric: the peer decrypts by re-encrypting with its own copy.
func NewCipher(seed uint32) *Cipher {
	c := &Cipher{}
	c.createKeys(seed)
	return c
}

func (c *Cipher) createKeys(seed uint32) {
	esi := uint32(1)
	ebx := seed

	c.keys[56] = ebx
	c.keys[55] = ebx

	for edi := uint32(0x15); edi <= 0x46e; edi += 0x15 {
		idx := edi % 55
		t := ebx - esi
		c.keys[idx] = esi
		ebx = esi
		esi = t
	}

	for i := 0; i < 4; i++ {
		c.mixKeys()
	}
	c.pos = remixMark
}

func (c *Cipher) mixKeys() {
	for i := 1; i <= 24; i++ {
		c.keys[i] -= c.keys[i+0x1f]
	}
	for i := 0x19; i <= 0x37; i++ {
		c.keys[i] -= c.keys[i-0x18]
	}
}

func (c *Cipher) nextWord() uint32 {
	if c.pos == remixMark {
		c.mixKeys()
		c.pos = 1
	}
	w := c.keys[c.pos]
	c.pos++
	return w
}

// CryptInPlace XORs data with the keystream, one little-endian 32-bit word
// at a time. Encryption and decryption are the same operation. The protocol
// only ever carries word-aligned payloads, so a trailing partial word means
// the stream is corrupt and the call fails without consuming keystream.
func (c *Cipher) CryptInPlace(data []byte) error {
	if len(data)%4 != 0 {
		return fmt.Errorf("crypt: data length %d is not word aligned", len(data))
	}
	for i := 0; i < len(data); i += 4 {
		w := binary.LittleEndian.Uint32(data[i:]) ^ c.nextWord()
		binary.LittleEndian.PutUint32(data[i:], w)
	}
	return nil
}
