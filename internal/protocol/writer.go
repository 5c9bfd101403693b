package protocol

// Writer builds a packet body.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with a small preallocated buffer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the accumulated body.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the body length so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// AddByte appends one raw byte.
func (w *Writer) AddByte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// AddChar appends a one-byte encoded number.
func (w *Writer) AddChar(v int) *Writer {
	e := EncodeNumber(v)
	w.buf = append(w.buf, e[0])
	return w
}

// AddShort appends a two-byte encoded number.
func (w *Writer) AddShort(v int) *Writer {
	e := EncodeNumber(v)
	w.buf = append(w.buf, e[0], e[1])
	return w
}

// AddThree appends a three-byte encoded number.
func (w *Writer) AddThree(v int) *Writer {
	e := EncodeNumber(v)
	w.buf = append(w.buf, e[0], e[1], e[2])
	return w
}

// AddInt appends a four-byte encoded number.
func (w *Writer) AddInt(v int) *Writer {
	e := EncodeNumber(v)
	w.buf = append(w.buf, e[0], e[1], e[2], e[3])
	return w
}

// AddString appends raw string bytes with no terminator.
func (w *Writer) AddString(s string) *Writer {
	w.buf = append(w.buf, s...)
	return w
}

// AddBreakString appends string bytes followed by the 0xFF break byte.
func (w *Writer) AddBreakString(s string) *Writer {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0xFF)
	return w
}

// AddPrefixString appends a char-length-prefixed string.
func (w *Writer) AddPrefixString(s string) *Writer {
	w.AddChar(len(s))
	w.buf = append(w.buf, s...)
	return w
}

// AddBytes appends raw bytes.
func (w *Writer) AddBytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}
