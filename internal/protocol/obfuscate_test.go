package protocol

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterleave(t *testing.T) {
	data := []byte{'a', 'b', 'c', 'd', 'e'}
	Interleave(data)
	assert.Equal(t, []byte{'a', 'e', 'b', 'd', 'c'}, data)

	Deinterleave(data)
	assert.Equal(t, []byte{'a', 'b', 'c', 'd', 'e'}, data)
}

func TestSwapMultiples(t *testing.T) {
	// 12, 6, 18 are all divisible by 6 and form one run; 7 breaks it.
	data := []byte{12, 6, 18, 7, 24}
	SwapMultiples(data, 6)
	assert.Equal(t, []byte{18, 6, 12, 7, 24}, data)

	// Involutive.
	SwapMultiples(data, 6)
	assert.Equal(t, []byte{12, 6, 18, 7, 24}, data)
}

func TestFlipMSB_Involutive(t *testing.T) {
	data := []byte{0x00, 0x7F, 0x80, 0xFF, 0x2A}
	FlipMSB(data)
	assert.Equal(t, []byte{0x80, 0xFF, 0x00, 0x7F, 0xAA}, data)
	FlipMSB(data)
	assert.Equal(t, []byte{0x00, 0x7F, 0x80, 0xFF, 0x2A}, data)
}

func TestObfuscatePayload_RoundTrip(t *testing.T) {
	for multiple := 6; multiple <= 12; multiple++ {
		for trial := 0; trial < 50; trial++ {
			n := 1 + rand.IntN(200)
			data := make([]byte, n)
			for i := range data {
				data[i] = byte(rand.IntN(256))
			}
			orig := make([]byte, n)
			copy(orig, data)

			ObfuscatePayload(data, multiple)
			DeobfuscatePayload(data, multiple)
			require.Equal(t, orig, data, "multiple %d len %d", multiple, n)
		}
	}
}
