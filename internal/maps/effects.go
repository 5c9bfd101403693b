package maps

import (
	"time"

	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// quakeState drives the periodic earthquake on maps with a quake effect.
// Stronger effect levels shake harder and more often.
type quakeState struct {
	strength int
	minTicks int
	maxTicks int
	nextIn   int
}

func (m *Map) initQuake() {
	switch m.emf.Effect {
	case eodata.EffectQuake1:
		m.quake = quakeState{strength: 1, minTicks: 300, maxTicks: 1000}
	case eodata.EffectQuake2:
		m.quake = quakeState{strength: 3, minTicks: 200, maxTicks: 700}
	case eodata.EffectQuake3:
		m.quake = quakeState{strength: 5, minTicks: 150, maxTicks: 500}
	case eodata.EffectQuake4:
		m.quake = quakeState{strength: 8, minTicks: 100, maxTicks: 300}
	default:
		return
	}
	m.quake.nextIn = randomRange(m.quake.minTicks, m.quake.maxTicks)
}

func (m *Map) quakeTick() {
	if m.quake.strength == 0 {
		return
	}
	m.quake.nextIn--
	if m.quake.nextIn > 0 {
		return
	}
	m.quake.nextIn = randomRange(m.quake.minTicks, m.quake.maxTicks)
	m.sendAll(0, protocol.ActionUse, protocol.FamilyEffect, quakePacket(m.quake.strength))
}

const (
	// jukeboxCostGold is the price of one track; gold is item id 1.
	jukeboxCostGold = 25
	goldItemID      = 1
	// jukeboxPlayTime blocks new requests while a track plays.
	jukeboxPlayTime = 90 * time.Second
)

type jukeboxState struct {
	playingUntil time.Time
}

// playJukebox buys a track on the map's jukebox. The requester must stand
// next to the jukebox tile and the box must be idle.
func (m *Map) playJukebox(c PlayJukebox) {
	e := m.character(c.PlayerID)
	if e == nil || c.TrackID <= 0 {
		return
	}
	if !m.nearJukebox(e.char.Coords) {
		return
	}
	if m.now().Before(m.jukebox.playingUntil) {
		return
	}
	if e.char.InInventory(goldItemID) < jukeboxCostGold {
		return
	}
	e.char.RemoveItem(goldItemID, jukeboxCostGold)
	e.char.CalculateStats(m.pub, m.formulas)

	m.jukebox.playingUntil = m.now().Add(jukeboxPlayTime)
	m.sendAll(0, protocol.ActionPlayer, protocol.FamilyJukebox, jukeboxPacket(c.TrackID))
}

func (m *Map) nearJukebox(coords model.Coords) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if m.emf.Tile(coords.X+dx, coords.Y+dy) == eodata.TileJukebox {
				return true
			}
		}
	}
	return false
}
