package protocol

// Payload obfuscation negotiated at handshake. Three reversible byte
// transforms are composed; the multiple used for SwapMultiples differs per
// direction (encode_multiple for server→client, decode_multiple for
// client→server). Init-family packets bypass obfuscation entirely.

// Interleave rewrites data so the first half occupies even offsets and the
// second half occupies odd offsets in reverse.
// [a b c d e] → [a e b d c]
func Interleave(data []byte) {
	buf := make([]byte, len(data))
	ii := 0
	for i := 0; i < len(data); i += 2 {
		buf[i] = data[ii]
		ii++
	}
	i := len(data) - 1
	if len(data)%2 != 0 {
		i--
	}
	for ; i > 0; i -= 2 {
		buf[i] = data[ii]
		ii++
	}
	copy(data, buf)
}

// Deinterleave is the inverse of Interleave.
func Deinterleave(data []byte) {
	buf := make([]byte, len(data))
	ii := 0
	for i := 0; i < len(data); i += 2 {
		buf[ii] = data[i]
		ii++
	}
	i := len(data) - 1
	if len(data)%2 != 0 {
		i--
	}
	for ; i > 0; i -= 2 {
		buf[ii] = data[i]
		ii++
	}
	copy(data, buf)
}

// FlipMSB flips the most significant bit of every byte. Involutive.
func FlipMSB(data []byte) {
	for i := range data {
		data[i] ^= 0x80
	}
}

// SwapMultiples reverses every run of consecutive bytes that are each
// divisible by multiple. Involutive for a fixed multiple.
func SwapMultiples(data []byte, multiple int) {
	if multiple <= 0 {
		return
	}
	run := 0
	for i := 0; i <= len(data); i++ {
		if i < len(data) && int(data[i])%multiple == 0 {
			run++
			continue
		}
		if run > 1 {
			for b, e := i-run, i-1; b < e; b, e = b+1, e-1 {
				data[b], data[e] = data[e], data[b]
			}
		}
		run = 0
	}
}

// ObfuscatePayload applies the outbound transform in place.
func ObfuscatePayload(data []byte, multiple int) {
	SwapMultiples(data, multiple)
	FlipMSB(data)
	Interleave(data)
}

// DeobfuscatePayload reverses ObfuscatePayload given the same multiple.
func DeobfuscatePayload(data []byte, multiple int) {
	Deinterleave(data)
	FlipMSB(data)
	SwapMultiples(data, multiple)
}
