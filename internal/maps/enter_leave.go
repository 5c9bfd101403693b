package maps

import (
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// enter takes ownership of a character. Everyone already in range sees a
// Players.Agree; the joiner refreshes via NearbyInfo once their client asks.
func (m *Map) enter(c Enter) {
	char := c.Character
	char.MapID = m.id
	if !m.emf.InBounds(char.Coords.X, char.Coords.Y) {
		char.Coords = model.Coords{X: m.emf.RelogX, Y: m.emf.RelogY}
	}

	m.characters[char.PlayerID] = &entry{char: char, conn: c.Conn}

	if char.Hidden {
		return
	}
	body := appearPacket(char.MapInfo())
	m.sendInRange(char.Coords, char.PlayerID, protocol.ActionAgree, protocol.FamilyPlayers, body)
}

// leave releases a character back to the caller. In-flight interactions
// involving the leaver are cancelled first so no dangling references remain.
func (m *Map) leave(c Leave) {
	e := m.character(c.PlayerID)
	if e == nil {
		c.Reply <- nil
		return
	}

	m.cancelInteractions(c.PlayerID)
	m.arena.remove(c.PlayerID)
	for _, npc := range m.npcs {
		npc.ForgetOpponent(c.PlayerID)
	}

	delete(m.characters, c.PlayerID)

	if !e.char.Hidden {
		body := avatarRemovePacket(c.PlayerID, c.WarpAnim)
		m.sendInRange(e.char.Coords, c.PlayerID, protocol.ActionRemove, protocol.FamilyAvatar, body)
	}

	c.Reply <- e.char
}

// cancelInteractions severs any wedding involving the player and clears an
// in-flight spell chant.
func (m *Map) cancelInteractions(playerID int) {
	e := m.character(playerID)
	if e == nil {
		return
	}
	e.char.SpellState = model.SpellState{}
	if m.wedding.involves(e.char.Name) {
		m.wedding.cancel()
		m.sendAll(0, protocol.ActionOpen, protocol.FamilyPriest, priestReplyPacket(priestPartnerNotHere))
	}
}

func (m *Map) emote(c Emote) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	body := emotePacket(c.PlayerID, c.Emote)
	m.sendInRange(e.char.Coords, c.PlayerID, protocol.ActionPlayer, protocol.FamilyEmote, body)
}

func (m *Map) talkMessage(c TalkMessage) {
	e := m.character(c.PlayerID)
	if e == nil || c.Message == "" {
		return
	}
	body := talkPlayerPacket(c.PlayerID, c.Message)
	m.sendInRange(e.char.Coords, c.PlayerID, protocol.ActionPlayer, protocol.FamilyTalk, body)
}
