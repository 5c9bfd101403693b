package maps

import (
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// arenaLaunchTicks is how often an arena map tries to start a round.
const arenaLaunchTicks = 500

// arenaState runs the PK arena rounds on maps that have arena tiles.
// Players standing on an arena tile when the launch timer fires become the
// round's fighters; the last one standing wins.
type arenaState struct {
	enabled bool
	ticks   int
	active  bool
	kills   map[int]int // participant player id → kills this round
}

func (a *arenaState) remove(playerID int) {
	delete(a.kills, playerID)
	if a.active && len(a.kills) <= 1 {
		a.active = false
		a.kills = nil
	}
}

// onArenaTile reports whether a tile is part of the arena floor.
func (m *Map) onArenaTile(coords model.Coords) bool {
	return m.emf.Tile(coords.X, coords.Y) == eodata.TileArena
}

// initArena enables the arena when the map has arena tiles.
func (m *Map) initArena() {
	for y := 0; y < m.emf.Height; y++ {
		for x := 0; x < m.emf.Width; x++ {
			if m.emf.Tile(x, y) == eodata.TileArena {
				m.arena.enabled = true
				return
			}
		}
	}
}

// arenaTick counts down to the next launch. A round begins when at least two
// players are standing on the arena floor and no round is running.
func (m *Map) arenaTick() {
	if !m.arena.enabled {
		return
	}
	m.arena.ticks++
	if m.arena.ticks < arenaLaunchTicks {
		return
	}
	m.arena.ticks = 0

	if m.arena.active {
		return
	}

	kills := make(map[int]int)
	for id, e := range m.characters {
		if m.onArenaTile(e.char.Coords) {
			kills[id] = 0
		}
	}
	if len(kills) < 2 {
		// A lone fighter gets told the round cannot start.
		for id := range kills {
			if e := m.character(id); e != nil {
				e.conn.Send(protocol.ActionDrop, protocol.FamilyArena, arenaDropPacket())
			}
		}
		return
	}

	m.arena.active = true
	m.arena.kills = kills
	m.sendAll(0, protocol.ActionUse, protocol.FamilyArena, arenaUsePacket(len(kills)))
}

// arenaKill records a kill inside an active round, ejects the loser and ends
// the round when one fighter remains.
func (m *Map) arenaKill(attacker, victim *entry) {
	if !m.arena.active {
		return
	}
	if _, fighting := m.arena.kills[attacker.char.PlayerID]; !fighting {
		return
	}
	m.arena.kills[attacker.char.PlayerID]++
	delete(m.arena.kills, victim.char.PlayerID)

	victim.char.HP = victim.char.MaxHP / 2
	if victim.char.HP < 1 {
		victim.char.HP = 1
	}
	exit := model.Coords{X: m.emf.RelogX, Y: m.emf.RelogY}
	victim.conn.RequestWarp(m.id, exit, true, model.WarpAnimationNone)

	m.sendAll(0, protocol.ActionSpec, protocol.FamilyArena, arenaSpecPacket(
		attacker.char.PlayerID, int(attacker.char.Direction),
		m.arena.kills[attacker.char.PlayerID], attacker.char.Name, victim.char.Name,
	))

	if len(m.arena.kills) == 1 {
		m.sendAll(0, protocol.ActionAccept, protocol.FamilyArena, arenaAcceptPacket(
			attacker.char.Name, m.arena.kills[attacker.char.PlayerID], victim.char.Name,
		))
		m.arena.active = false
		m.arena.kills = nil
	}
}

func arenaUsePacket(fighters int) []byte {
	w := protocol.NewWriter()
	w.AddChar(fighters)
	return w.Bytes()
}

func arenaDropPacket() []byte {
	return protocol.NewWriter().AddChar(0).Bytes()
}

func arenaSpecPacket(killerID, direction, kills int, killer, victim string) []byte {
	w := protocol.NewWriter()
	w.AddShort(killerID)
	w.AddChar(direction)
	w.AddInt(kills)
	w.AddBreakString(killer)
	w.AddBreakString(victim)
	return w.Bytes()
}

func arenaAcceptPacket(winner string, kills int, lastVictim string) []byte {
	w := protocol.NewWriter()
	w.AddBreakString(winner)
	w.AddInt(kills)
	w.AddBreakString(lastVictim)
	return w.Bytes()
}
