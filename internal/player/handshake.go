package player

import (
	"math/rand/v2"

	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Init reply codes.
const (
	initOutOfDate = 1
	initOK        = 2
	initBanned    = 3
)

// Obfuscation multiples are negotiated per session within this range.
const (
	multipleMin = 6
	multipleMax = 12
)

// handleInit answers the clear-text handshake: negotiate the obfuscation
// multiples and the sequence start, solve the client's challenge, and arm
// the bus. Everything after this packet is obfuscated and sequenced.
func (p *Player) handleInit(pkt protocol.Packet) {
	if pkt.Action != protocol.ActionInit || p.state != StateUninitialized {
		p.state = StateClosed
		return
	}

	r := pkt.Reader
	challenge := r.GetThree()
	r.GetChar() // version major
	r.GetChar() // version minor
	r.GetChar() // version patch

	seq := protocol.GenerateInitSequence()
	encodeMultiple := randomMultiple()
	decodeMultiple := randomMultiple()

	w := protocol.NewWriter()
	w.AddByte(initOK)
	w.AddByte(seq.Seq1)
	w.AddByte(seq.Seq2)
	w.AddByte(byte(encodeMultiple))
	w.AddByte(byte(decodeMultiple))
	w.AddShort(p.id)
	w.AddThree(challengeResponse(challenge))

	if err := p.bus.Send(protocol.ActionInit, protocol.FamilyInit, w.Bytes()); err != nil {
		p.state = StateClosed
		return
	}

	// The client encodes with our decode multiple and vice versa.
	p.bus.Handshake(encodeMultiple, decodeMultiple, seq.Start)
	p.state = StateInitialized
	p.log.Debug("handshake complete", "sequence_start", seq.Start)
}

func randomMultiple() int {
	return multipleMin + rand.IntN(multipleMax-multipleMin+1)
}

// challengeResponse solves the client's init challenge. The client computes
// the same function and drops the connection on a mismatch.
func challengeResponse(challenge int) int {
	challenge++
	return 110905 + (challenge%9+1)*((11092004-challenge)%((challenge%11+1)*119%1000)+1)%64008
}
