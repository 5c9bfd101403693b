package protocol

// Reader walks a packet body, decoding encoded numbers and strings the way
// the client lays them out. All getters are total: reading past the end
// yields zero values rather than an error, because body layouts are
// trusted-length and a short body is a semantic problem for the handler,
// not a framing problem.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps a packet body.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports how many bytes are left.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int) []byte {
	if r.pos >= len(r.data) {
		return nil
	}
	end := min(r.pos+n, len(r.data))
	b := r.data[r.pos:end]
	r.pos = end
	return b
}

// GetByte reads one raw byte.
func (r *Reader) GetByte() byte {
	b := r.take(1)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// GetChar reads a one-byte encoded number.
func (r *Reader) GetChar() int {
	return DecodeNumber(r.take(1)...)
}

// GetShort reads a two-byte encoded number.
func (r *Reader) GetShort() int {
	return DecodeNumber(r.take(2)...)
}

// GetThree reads a three-byte encoded number.
func (r *Reader) GetThree() int {
	return DecodeNumber(r.take(3)...)
}

// GetInt reads a four-byte encoded number.
func (r *Reader) GetInt() int {
	return DecodeNumber(r.take(4)...)
}

// GetBreakString reads bytes up to (and consuming) the 0xFF break byte.
func (r *Reader) GetBreakString() string {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0xFF {
		r.pos++
	}
	s := string(r.data[start:r.pos])
	if r.pos < len(r.data) {
		r.pos++ // consume the break
	}
	return s
}

// GetPrefixString reads a char-length-prefixed string.
func (r *Reader) GetPrefixString() string {
	n := r.GetChar()
	return string(r.take(n))
}

// GetEndString reads all remaining bytes as a string.
func (r *Reader) GetEndString() string {
	s := string(r.data[r.pos:])
	r.pos = len(r.data)
	return s
}

// GetBytes reads n raw bytes.
func (r *Reader) GetBytes(n int) []byte {
	return r.take(n)
}
