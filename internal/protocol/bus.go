package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	headerSize     = 2
	maxPayloadSize = 64008

	defaultSendQueueSize = 256
	defaultWriteTimeout  = 5 * time.Second
)

// Protocol violations. All of them are fatal to the session.
var (
	ErrInvalidSequence = errors.New("sending invalid sequence")
	ErrPayloadTooLarge = errors.New("payload exceeds frame limit")
	ErrBusClosed       = errors.New("packet bus closed")
	ErrBeforeHandshake = errors.New("non-init packet before handshake")
)

// Packet is one decoded inbound frame.
type Packet struct {
	Action PacketAction
	Family PacketFamily
	Reader *Reader
}

// Bus frames, obfuscates and sequences packets over one TCP stream.
// Recv is called from the session's read goroutine; Send may be called from
// any goroutine and enqueues onto a writer goroutine, так же как очередь
// записи у GameClient.
type Bus struct {
	conn net.Conn

	encodeMultiple int
	decodeMultiple int
	seq            *Sequencer
	enforce        bool
	handshaked     bool
	firstPacket    bool

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewBus wraps an accepted connection. The bus speaks only Init frames until
// Handshake is called.
func NewBus(conn net.Conn, enforceSequence bool) *Bus {
	b := &Bus{
		conn:    conn,
		enforce: enforceSequence,
		sendCh:  make(chan []byte, defaultSendQueueSize),
		closeCh: make(chan struct{}),
	}
	b.wg.Add(1)
	go b.writeLoop()
	return b
}

// Handshake arms the obfuscation multiples and the sequencer. The first
// post-handshake packet is exempt from the sequence check.
func (b *Bus) Handshake(encodeMultiple, decodeMultiple int, sequenceStart int) {
	b.encodeMultiple = encodeMultiple
	b.decodeMultiple = decodeMultiple
	b.seq = NewSequencer(sequenceStart)
	b.handshaked = true
	b.firstPacket = true
}

// ReseedSequence re-seeds the sequencer, used by Connection/Ping and the
// account-reply boundary.
func (b *Bus) ReseedSequence(start int) {
	if b.seq != nil {
		b.seq.SetStart(start)
	}
}

// Recv reads and decodes one frame. Any returned error is fatal.
func (b *Bus) Recv() (Packet, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(b.conn, header[:]); err != nil {
		return Packet{}, fmt.Errorf("reading frame header: %w", err)
	}

	length := int(binary.LittleEndian.Uint16(header[:]))
	if length < 2 || length > maxPayloadSize {
		return Packet{}, fmt.Errorf("invalid frame length %d", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(b.conn, payload); err != nil {
		return Packet{}, fmt.Errorf("reading frame payload: %w", err)
	}

	// Init frames travel in the clear; everything else is obfuscated with
	// the client's multiple.
	if payload[1] == byte(FamilyInit) && payload[0] == byte(ActionInit) {
		r := NewReader(payload)
		action := PacketAction(r.GetByte())
		family := PacketFamily(r.GetByte())
		return Packet{Action: action, Family: family, Reader: r}, nil
	}

	if !b.handshaked {
		return Packet{}, ErrBeforeHandshake
	}
	DeobfuscatePayload(payload, b.decodeMultiple)

	r := NewReader(payload)
	action := PacketAction(r.GetByte())
	family := PacketFamily(r.GetByte())

	if err := b.checkSequence(action, family, r); err != nil {
		return Packet{}, err
	}

	return Packet{Action: action, Family: family, Reader: r}, nil
}

// checkSequence consumes and validates the client sequence bytes.
func (b *Bus) checkSequence(action PacketAction, family PacketFamily, r *Reader) error {
	if family == FamilyConnection && action == ActionPing {
		// Ping carries no client sequence; the reply re-seeds instead.
		b.seq.NextSequence()
		return nil
	}

	twoBytes := b.seq.TwoByteSequence()
	expected := b.seq.NextSequence()

	var got int
	if twoBytes {
		got = r.GetShort()
	} else {
		got = r.GetChar()
	}

	if b.firstPacket {
		b.firstPacket = false
		return nil
	}

	// Tolerate a divergence of one packet boundary.
	diff := got - expected
	if diff < -1 || diff > 1 {
		if b.enforce {
			return fmt.Errorf("%w: Got %d, expected %d", ErrInvalidSequence, got, expected)
		}
	}
	return nil
}

// Send frames, obfuscates and enqueues one packet.
func (b *Bus) Send(action PacketAction, family PacketFamily, body []byte) error {
	payload := make([]byte, 0, 2+len(body))
	payload = append(payload, byte(action), byte(family))
	payload = append(payload, body...)

	if len(payload) > maxPayloadSize {
		return ErrPayloadTooLarge
	}

	if family != FamilyInit {
		ObfuscatePayload(payload, b.encodeMultiple)
	}

	frame := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint16(frame[:headerSize], uint16(len(payload)))
	copy(frame[headerSize:], payload)

	select {
	case b.sendCh <- frame:
		return nil
	case <-b.closeCh:
		return ErrBusClosed
	}
}

func (b *Bus) writeLoop() {
	defer b.wg.Done()
	for {
		select {
		case frame := <-b.sendCh:
			_ = b.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
			if _, err := b.conn.Write(frame); err != nil {
				b.Close()
				return
			}
		case <-b.closeCh:
			// Drain what was queued before the close.
			for {
				select {
				case frame := <-b.sendCh:
					_ = b.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
					if _, err := b.conn.Write(frame); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// Close shuts the bus down and closes the socket. Safe to call twice.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.closeCh)
		go func() {
			b.wg.Wait()
			b.conn.Close()
		}()
	})
}
