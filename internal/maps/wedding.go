package maps

import (
	"fmt"
	"strings"

	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Priest reply codes.
const (
	priestNotDressed      = 1
	priestPartnerNotHere  = 2
	priestPartnerNotYours = 3
	priestBusy            = 4
	priestDoYou           = 5
	priestAccepted        = 6
)

// weddingPhase walks the ceremony forward. Timed phases count down in
// ticks; the two ask phases wait for an AcceptWedding from the named
// character.
type weddingPhase int

const (
	weddingIdle weddingPhase = iota
	weddingPending
	weddingOpening
	weddingAskFirst
	weddingWaitFirst
	weddingAskSecond
	weddingWaitSecond
	weddingPronounce
	weddingCelebrate
)

type weddingState struct {
	phase     weddingPhase
	npcIndex  int
	first     string // the requester
	second    string
	ticksLeft int
}

func (w *weddingState) involves(name string) bool {
	if w.phase == weddingIdle {
		return false
	}
	return strings.EqualFold(w.first, name) || strings.EqualFold(w.second, name)
}

func (w *weddingState) cancel() {
	*w = weddingState{}
}

// findByName returns the character entry with the given name, if present.
func (m *Map) findByName(name string) *entry {
	for _, e := range m.characters {
		if strings.EqualFold(e.char.Name, name) {
			return e
		}
	}
	return nil
}

// requestWedding starts a ceremony at a priest NPC. Both betrothed must be
// present, engaged to each other, and carrying the wedding ring.
func (m *Map) requestWedding(c RequestWedding) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	npc := m.npcs[c.NpcIndex]
	if npc == nil || !npc.Alive {
		return
	}
	if rec := m.pub.Npc(npc.ID); rec == nil || rec.Type != eodata.NpcPriest {
		return
	}

	if m.wedding.phase != weddingIdle {
		e.conn.Send(protocol.ActionReply, protocol.FamilyPriest, priestReplyPacket(priestBusy))
		return
	}

	partner := m.findByName(c.PartnerName)
	if partner == nil {
		e.conn.Send(protocol.ActionReply, protocol.FamilyPriest, priestReplyPacket(priestPartnerNotHere))
		return
	}
	if !strings.EqualFold(e.char.Fiance, partner.char.Name) || !strings.EqualFold(partner.char.Fiance, e.char.Name) {
		e.conn.Send(protocol.ActionReply, protocol.FamilyPriest, priestReplyPacket(priestPartnerNotYours))
		return
	}
	ring := m.cfg.Marriage.RingItemID
	if e.char.InInventory(ring) == 0 || partner.char.InInventory(ring) == 0 {
		e.conn.Send(protocol.ActionReply, protocol.FamilyPriest, priestReplyPacket(priestNotDressed))
		return
	}

	delayTicks := m.secondsToTicks(m.cfg.Marriage.CeremonyStartDelaySeconds)
	m.wedding = weddingState{
		phase:     weddingPending,
		npcIndex:  c.NpcIndex,
		first:     e.char.Name,
		second:    partner.char.Name,
		ticksLeft: delayTicks,
	}
	e.conn.Send(protocol.ActionReply, protocol.FamilyPriest, priestReplyPacket(priestAccepted))
	m.sendAll(0, protocol.ActionPlayer, protocol.FamilyMusic, musicPacket(m.cfg.Marriage.MfxID))
}

// acceptWedding is one of the betrothed saying "I do".
func (m *Map) acceptWedding(c AcceptWedding) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	switch m.wedding.phase {
	case weddingWaitFirst:
		if strings.EqualFold(e.char.Name, m.wedding.first) {
			m.priestSays(fmt.Sprintf("%s, do you take %s to be your lawfully wedded partner?", m.wedding.second, m.wedding.first))
			m.wedding.phase = weddingAskSecond
			m.wedding.ticksLeft = m.secondsToTicks(3)
		}
	case weddingWaitSecond:
		if strings.EqualFold(e.char.Name, m.wedding.second) {
			m.wedding.phase = weddingPronounce
			m.wedding.ticksLeft = m.secondsToTicks(2)
		}
	}
}

// weddingTick advances the timed ceremony phases.
func (m *Map) weddingTick() {
	if m.wedding.phase == weddingIdle {
		return
	}
	// Either betrothed leaving aborts the ceremony.
	first := m.findByName(m.wedding.first)
	second := m.findByName(m.wedding.second)
	if first == nil || second == nil {
		m.wedding.cancel()
		return
	}

	if m.wedding.ticksLeft > 0 {
		m.wedding.ticksLeft--
		return
	}

	switch m.wedding.phase {
	case weddingPending:
		m.priestSays("Dearly beloved, we are gathered here today to join these two souls in marriage.")
		m.wedding.phase = weddingOpening
		m.wedding.ticksLeft = m.secondsToTicks(5)
	case weddingOpening:
		m.priestSays(fmt.Sprintf("%s, do you take %s to be your lawfully wedded partner?", m.wedding.first, m.wedding.second))
		m.wedding.phase = weddingAskFirst
		m.wedding.ticksLeft = m.secondsToTicks(2)
	case weddingAskFirst:
		first.conn.Send(protocol.ActionReply, protocol.FamilyPriest, priestReplyPacket(priestDoYou))
		m.wedding.phase = weddingWaitFirst
	case weddingAskSecond:
		second.conn.Send(protocol.ActionReply, protocol.FamilyPriest, priestReplyPacket(priestDoYou))
		m.wedding.phase = weddingWaitSecond
	case weddingPronounce:
		m.priestSays("I now pronounce you partners for life. You may kiss!")
		m.wedding.phase = weddingCelebrate
		m.wedding.ticksLeft = m.secondsToTicks(3)
	case weddingCelebrate:
		m.marry(first, second)
		m.wedding.cancel()
	}
}

// priestSays queues a chat line from the officiating priest.
func (m *Map) priestSays(message string) {
	npc := m.npcs[m.wedding.npcIndex]
	if npc == nil {
		return
	}
	m.npcUpdates = append(m.npcUpdates, npcUpdate{
		kind:     npcUpdateChat,
		npcIndex: npc.Index,
		coords:   npc.Coords,
		message:  message,
	})
}

// marry binds the couple and plays the celebration.
func (m *Map) marry(first, second *entry) {
	first.char.Partner = second.char.Name
	second.char.Partner = first.char.Name
	first.char.Fiance = ""
	second.char.Fiance = ""

	effect := m.cfg.Marriage.CelebrationEffectID
	m.sendAll(0, protocol.ActionPlayer, protocol.FamilyEffect, effectPacket(first.char.PlayerID, effect))
	m.sendAll(0, protocol.ActionPlayer, protocol.FamilyEffect, effectPacket(second.char.PlayerID, effect))
}

// divorce dissolves the requester's marriage. An absent partner's record is
// corrected the next time they load.
func (m *Map) divorce(c DivorceRequest) {
	e := m.character(c.PlayerID)
	if e == nil || e.char.Partner == "" {
		return
	}
	if partner := m.findByName(e.char.Partner); partner != nil {
		partner.char.Partner = ""
		partner.conn.Send(protocol.ActionRemove, protocol.FamilyMarriage, talkServerPacket(e.char.Name))
	}
	e.char.Partner = ""
	e.conn.Send(protocol.ActionRemove, protocol.FamilyMarriage, talkServerPacket(e.char.Name))
}

// secondsToTicks converts wall seconds into simulation ticks.
func (m *Map) secondsToTicks(seconds int) int {
	tick := m.cfg.World.TickRate
	if tick <= 0 {
		return seconds * 8
	}
	return int(float64(seconds) * float64(1e9) / float64(tick.Nanoseconds()))
}
