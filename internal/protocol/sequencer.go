package protocol

import "math/rand/v2"

// SequenceStartMax bounds the sequence start value negotiated at handshake.
const SequenceStartMax = 1757

// sequenceThreshold decides whether the client embeds its sequence as one or
// two encoded bytes.
const sequenceThreshold = CharMax

// InitSequence is the handshake form of a sequence start: two bytes the
// client combines as s1*7 + s2 - 13.
type InitSequence struct {
	Start int
	Seq1  byte
	Seq2  byte
}

// GenerateInitSequence picks a random start in 0..=SequenceStartMax and the
// two handshake bytes that encode it.
func GenerateInitSequence() InitSequence {
	start := rand.IntN(SequenceStartMax + 1)
	seq1 := (start + 13) / 7
	seq2 := (start + 13) % 7
	return InitSequence{Start: start, Seq1: byte(seq1), Seq2: byte(seq2)}
}

// InitSequenceFromBytes recovers the start value the client derived.
func InitSequenceFromBytes(seq1, seq2 byte) int {
	return int(seq1)*7 + int(seq2) - 13
}

// PingSequence is the Connection/Ping form of a re-seed: two encoded numbers
// the client subtracts (seq1 - seq2).
type PingSequence struct {
	Start int
	Seq1  int
	Seq2  int
}

// GeneratePingSequence picks a fresh start and its ping encoding.
func GeneratePingSequence() PingSequence {
	start := rand.IntN(SequenceStartMax + 1)
	offset := rand.IntN(CharMax)
	return PingSequence{Start: start, Seq1: start + offset, Seq2: offset}
}

// GenerateAccountSequence picks the single-byte re-seed sent with an account
// reply boundary.
func GenerateAccountSequence() int {
	return rand.IntN(240)
}

// Sequencer tracks the server-side sequence for one connection. The value
// cycles through start..start+9; the client must echo the next value with
// every packet except Init and the first post-handshake packet.
type Sequencer struct {
	start   int
	counter int
}

// NewSequencer starts a sequencer at the given handshake start value.
func NewSequencer(start int) *Sequencer {
	return &Sequencer{start: start}
}

// NextSequence advances the counter and returns the value the client is
// expected to send with the packet being processed.
func (s *Sequencer) NextSequence() int {
	seq := s.start + s.counter
	s.counter = (s.counter + 1) % 10
	return seq
}

// Peek returns the value NextSequence would produce without advancing.
func (s *Sequencer) Peek() int {
	return s.start + s.counter
}

// SetStart re-seeds the sequencer. The counter keeps cycling so one sender's
// stream stays monotone within a window.
func (s *Sequencer) SetStart(start int) {
	s.start = start
}

// TwoByteSequence reports whether the next client sequence arrives as a
// two-byte encoded number.
func (s *Sequencer) TwoByteSequence() bool {
	return s.Peek() >= sequenceThreshold
}
