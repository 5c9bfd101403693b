package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeNumber_SingleByte(t *testing.T) {
	e := EncodeNumber(0)
	assert.Equal(t, [4]byte{1, 0xFE, 0xFE, 0xFE}, e)

	e = EncodeNumber(252)
	assert.Equal(t, [4]byte{253, 0xFE, 0xFE, 0xFE}, e)
}

func TestEncodeNumber_MultiByte(t *testing.T) {
	e := EncodeNumber(CharMax)
	assert.Equal(t, [4]byte{1, 2, 0xFE, 0xFE}, e)

	e = EncodeNumber(ShortMax)
	assert.Equal(t, [4]byte{1, 1, 2, 0xFE}, e)

	e = EncodeNumber(ThreeMax)
	assert.Equal(t, [4]byte{1, 1, 1, 2}, e)
}

func TestDecodeNumber_RoundTrip(t *testing.T) {
	values := []int{0, 1, 7, 252, 253, 254, 12345, 64008, 64009, 99999, 16194276, 16194277, 100_000_000}
	for _, v := range values {
		e := EncodeNumber(v)
		assert.Equal(t, v, DecodeNumber(e[0], e[1], e[2], e[3]), "value %d", v)
	}
}

func TestDecodeNumber_ShortForms(t *testing.T) {
	// Trailing 254 bytes are unset, so shorter reads agree for small values.
	e := EncodeNumber(42)
	assert.Equal(t, 42, DecodeNumber(e[0]))
	assert.Equal(t, 42, DecodeNumber(e[0], e[1]))

	e = EncodeNumber(1000)
	assert.Equal(t, 1000, DecodeNumber(e[0], e[1]))
}
