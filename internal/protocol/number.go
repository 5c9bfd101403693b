package protocol

// Encoded number limits. Each byte of an encoded number carries a value in
// 1..=253; byte value 254 marks an unused trailing byte.
const (
	CharMax  = 253
	ShortMax = CharMax * CharMax
	ThreeMax = CharMax * CharMax * CharMax
	IntMax   = CharMax * CharMax * CharMax * CharMax

	byteUnset = 0xFE
)

// EncodeNumber encodes value into up to four protocol bytes.
// Unused trailing bytes are set to 254.
func EncodeNumber(value int) [4]byte {
	out := [4]byte{byteUnset, byteUnset, byteUnset, byteUnset}
	if value < 0 {
		value = 0
	}

	remaining := value
	if remaining >= ThreeMax {
		out[3] = byte(remaining/ThreeMax + 1)
		remaining %= ThreeMax
	}
	if value >= ShortMax {
		out[2] = byte(remaining/ShortMax + 1)
		remaining %= ShortMax
	}
	if value >= CharMax {
		out[1] = byte(remaining/CharMax + 1)
		remaining %= CharMax
	}
	out[0] = byte(remaining + 1)
	return out
}

// DecodeNumber decodes up to four protocol bytes back into an integer.
// Bytes equal to 254 (and missing bytes) are treated as unset.
func DecodeNumber(bytes ...byte) int {
	result := 0
	for i := min(len(bytes), 4) - 1; i >= 0; i-- {
		b := bytes[i]
		if b == byteUnset {
			b = 1
		}
		value := int(b) - 1
		switch i {
		case 3:
			result += value * ThreeMax
		case 2:
			result += value * ShortMax
		case 1:
			result += value * CharMax
		case 0:
			result += value
		}
	}
	return result
}
