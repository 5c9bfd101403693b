package protocol

import (
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencer_CyclesAndThreshold(t *testing.T) {
	s := NewSequencer(100)
	seen := make([]int, 0, 12)
	for i := 0; i < 12; i++ {
		seen = append(seen, s.NextSequence())
	}
	assert.Equal(t, []int{100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 100, 101}, seen)

	s = NewSequencer(250)
	assert.False(t, s.TwoByteSequence()) // 250 < 253
	s.NextSequence()
	s.NextSequence()
	s.NextSequence()
	assert.True(t, s.TwoByteSequence()) // 253 crosses the threshold
}

func TestGenerateInitSequence_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		is := GenerateInitSequence()
		require.GreaterOrEqual(t, is.Start, 0)
		require.LessOrEqual(t, is.Start, SequenceStartMax)
		require.Equal(t, is.Start, InitSequenceFromBytes(is.Seq1, is.Seq2))
	}
}

func TestGeneratePingSequence_Recoverable(t *testing.T) {
	for i := 0; i < 200; i++ {
		ps := GeneratePingSequence()
		require.Equal(t, ps.Start, ps.Seq1-ps.Seq2)
		require.LessOrEqual(t, ps.Start, SequenceStartMax)
	}
}

// rawClient drives the client side of a bus over an in-memory pipe.
type rawClient struct {
	conn net.Conn
	seq  *Sequencer
	mult int // server's decode multiple (client's encode direction)
}

func (c *rawClient) send(t *testing.T, action PacketAction, family PacketFamily, seqOverride int, body []byte) {
	t.Helper()
	w := NewWriter()
	w.AddByte(byte(action))
	w.AddByte(byte(family))
	if family != FamilyInit {
		if c.seq.TwoByteSequence() {
			next := c.seq.NextSequence()
			if seqOverride >= 0 {
				next = seqOverride
			}
			w.AddShort(next)
		} else {
			next := c.seq.NextSequence()
			if seqOverride >= 0 {
				next = seqOverride
			}
			w.AddChar(next)
		}
	}
	w.AddBytes(body)

	payload := w.Bytes()
	if family != FamilyInit {
		ObfuscatePayload(payload, c.mult)
	}
	frame := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(frame[:2], uint16(len(payload)))
	copy(frame[2:], payload)
	_, err := c.conn.Write(frame)
	require.NoError(t, err)
}

func newBusPair(t *testing.T, enforce bool) (*Bus, *rawClient) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })

	bus := NewBus(server, enforce)
	bus.Handshake(6, 7, 100)
	// The sequencer consumed nothing yet; mirror it client-side.
	return bus, &rawClient{conn: client, seq: NewSequencer(100), mult: 7}
}

func TestBus_RecvRoundTrip(t *testing.T) {
	bus, client := newBusPair(t, true)

	go client.send(t, ActionRequest, FamilyWalk, -1, NewWriter().AddChar(3).AddThree(12345).Bytes())

	pkt, err := bus.Recv()
	require.NoError(t, err)
	assert.Equal(t, ActionRequest, pkt.Action)
	assert.Equal(t, FamilyWalk, pkt.Family)
	assert.Equal(t, 3, pkt.Reader.GetChar())
	assert.Equal(t, 12345, pkt.Reader.GetThree())
}

func TestBus_SequenceViolation(t *testing.T) {
	bus, client := newBusPair(t, true)

	// First post-handshake packet is exempt.
	go client.send(t, ActionPlayer, FamilyFace, -1, NewWriter().AddChar(1).Bytes())
	_, err := bus.Recv()
	require.NoError(t, err)

	// Expected is 101; send 99 (divergence of 2).
	go client.send(t, ActionPlayer, FamilyFace, 99, NewWriter().AddChar(1).Bytes())
	_, err = bus.Recv()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSequence)
	assert.Contains(t, err.Error(), "Got 99, expected 101")
}

func TestBus_SequenceOffByOneTolerated(t *testing.T) {
	bus, client := newBusPair(t, true)

	go client.send(t, ActionPlayer, FamilyFace, -1, nil)
	_, err := bus.Recv()
	require.NoError(t, err)

	go client.send(t, ActionPlayer, FamilyFace, 102, nil) // expected 101
	_, err = bus.Recv()
	require.NoError(t, err)
}

func TestBus_SequenceNotEnforced(t *testing.T) {
	bus, client := newBusPair(t, false)

	go client.send(t, ActionPlayer, FamilyFace, -1, nil)
	_, err := bus.Recv()
	require.NoError(t, err)

	go client.send(t, ActionPlayer, FamilyFace, 7, nil) // wildly wrong, but enforcement is off
	_, err = bus.Recv()
	require.NoError(t, err)
}

func TestBus_SendObfuscated(t *testing.T) {
	bus, client := newBusPair(t, true)

	body := NewWriter().AddShort(512).AddBreakString("hello").Bytes()
	require.NoError(t, bus.Send(ActionReply, FamilyLogin, body))

	var header [2]byte
	_, err := io.ReadFull(client.conn, header[:])
	require.NoError(t, err)
	payload := make([]byte, binary.LittleEndian.Uint16(header[:]))
	_, err = io.ReadFull(client.conn, payload)
	require.NoError(t, err)

	// Client reverses the server's encode multiple.
	DeobfuscatePayload(payload, 6)
	r := NewReader(payload)
	assert.Equal(t, ActionReply, PacketAction(r.GetByte()))
	assert.Equal(t, FamilyLogin, PacketFamily(r.GetByte()))
	assert.Equal(t, 512, r.GetShort())
	assert.Equal(t, "hello", r.GetBreakString())
}

func TestBus_InitBypassesObfuscation(t *testing.T) {
	bus, client := newBusPair(t, true)

	go func() {
		w := NewWriter()
		w.AddByte(byte(ActionInit))
		w.AddByte(byte(FamilyInit))
		w.AddThree(271828) // challenge
		payload := w.Bytes()
		frame := make([]byte, 2+len(payload))
		binary.LittleEndian.PutUint16(frame[:2], uint16(len(payload)))
		copy(frame[2:], payload)
		client.conn.Write(frame)
	}()

	pkt, err := bus.Recv()
	require.NoError(t, err)
	assert.Equal(t, FamilyInit, pkt.Family)
	assert.Equal(t, 271828, pkt.Reader.GetThree())
}
