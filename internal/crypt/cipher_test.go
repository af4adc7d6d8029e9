package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherDeterministic(t *testing.T) {
	a := NewCipher(0x0d0a0b0c)
	b := NewCipher(0x0d0a0b0c)

	bufA := make([]byte, 64)
	bufB := make([]byte, 64)
	for i := range bufA {
		bufA[i] = byte(i)
		bufB[i] = byte(i)
	}

	require.NoError(t, a.CryptInPlace(bufA))
	require.NoError(t, b.CryptInPlace(bufB))
	assert.Equal(t, bufA, bufB, "same seed must produce the same keystream")
}

func TestCipherRoundTrip(t *testing.T) {
	const seed = 0x00040f02

	plain := make([]byte, 256)
	for i := range plain {
		plain[i] = byte(i * 7)
	}

	enc := NewCipher(seed)
	dec := NewCipher(seed)

	// Crypt in several chunks to exercise the cursor across remix boundaries.
	data := append([]byte(nil), plain...)
	require.NoError(t, enc.CryptInPlace(data[:64]))
	require.NoError(t, enc.CryptInPlace(data[64:]))
	assert.False(t, bytes.Equal(plain, data), "ciphertext should differ from plaintext")

	require.NoError(t, dec.CryptInPlace(data))
	assert.Equal(t, plain, data)
}

func TestCipherSeedsDiverge(t *testing.T) {
	a := NewCipher(1)
	b := NewCipher(2)

	bufA := make([]byte, 32)
	bufB := make([]byte, 32)
	require.NoError(t, a.CryptInPlace(bufA))
	require.NoError(t, b.CryptInPlace(bufB))
	assert.NotEqual(t, bufA, bufB)
}

func TestCipherKeystreamAdvances(t *testing.T) {
	c := NewCipher(0xdeadbeef)

	first := make([]byte, 4)
	second := make([]byte, 4)
	require.NoError(t, c.CryptInPlace(first))
	require.NoError(t, c.CryptInPlace(second))
	assert.NotEqual(t, first, second, "consecutive words must come from different cursor positions")
}

func TestCipherRejectsPartialWord(t *testing.T) {
	c := NewCipher(42)

	err := c.CryptInPlace(make([]byte, 7))
	require.Error(t, err)

	// The failed call must not consume keystream.
	ref := NewCipher(42)
	got := make([]byte, 8)
	want := make([]byte, 8)
	require.NoError(t, c.CryptInPlace(got))
	require.NoError(t, ref.CryptInPlace(want))
	assert.Equal(t, want, got)
}
