package maps

import (
	"math/rand/v2"

	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// inRange reports whether two tiles are within the see distance of each
// other. Range is Chebyshev: the visible area is a square.
func (m *Map) inRange(a, b model.Coords) bool {
	return model.InRange(a, b, m.cfg.World.SeeDistance)
}

// sendInRange delivers a packet to every player whose character is within
// see distance of the origin, excluding the origin player itself.
func (m *Map) sendInRange(origin model.Coords, except int, action protocol.PacketAction, family protocol.PacketFamily, body []byte) {
	for id, e := range m.characters {
		if id == except {
			continue
		}
		if m.inRange(origin, e.char.Coords) {
			e.conn.Send(action, family, body)
		}
	}
}

// sendAll delivers a packet to every player on the map.
func (m *Map) sendAll(except int, action protocol.PacketAction, family protocol.PacketFamily, body []byte) {
	for id, e := range m.characters {
		if id == except {
			continue
		}
		e.conn.Send(action, family, body)
	}
}

func (m *Map) broadcastRaw(c BroadcastPacket) {
	m.sendAll(c.Except, c.Action, c.Family, c.Body)
}

// occupied reports whether a living character or NPC stands on the tile.
func (m *Map) occupied(coords model.Coords) bool {
	for _, e := range m.characters {
		if e.char.Coords == coords && !e.char.Hidden {
			return true
		}
	}
	for _, npc := range m.npcs {
		if npc.Alive && npc.Coords == coords {
			return true
		}
	}
	return false
}

// npcAt returns the living NPC on the tile, if any.
func (m *Map) npcAt(coords model.Coords) *model.Npc {
	for _, npc := range m.npcs {
		if npc.Alive && npc.Coords == coords {
			return npc
		}
	}
	return nil
}

// characterAt returns the visible character on the tile, if any.
func (m *Map) characterAt(coords model.Coords) *entry {
	for _, e := range m.characters {
		if e.char.Coords == coords && !e.char.Hidden {
			return e
		}
	}
	return nil
}

// allocItemIndex returns the lowest free ground item index, recycling
// indices freed by pickups so the dense id space never grows unbounded.
func (m *Map) allocItemIndex() int {
	for i := 1; ; i++ {
		if _, used := m.items[i]; !used {
			return i
		}
	}
}

// dropGround places a stack on a tile with a protection window for the owner.
func (m *Map) dropGround(itemID, amount int, coords model.Coords, ownerID int) *model.GroundItem {
	item := &model.GroundItem{
		Index:     m.allocItemIndex(),
		ID:        itemID,
		Amount:    amount,
		Coords:    coords,
		OwnerID:   ownerID,
		DroppedAt: m.now(),
	}
	m.items[item.Index] = item
	return item
}

// nearbyInfo collects everything in range of the player, for the refresh
// the client requests after a warp.
func (m *Map) nearbyInfo(playerID int) NearbyReply {
	var reply NearbyReply
	e := m.character(playerID)
	if e == nil {
		return reply
	}
	origin := e.char.Coords

	for _, other := range m.characters {
		if other.char.Hidden && other.char.PlayerID != playerID {
			continue
		}
		if m.inRange(origin, other.char.Coords) {
			reply.Characters = append(reply.Characters, other.char.MapInfo())
		}
	}
	for _, npc := range m.npcs {
		if npc.Alive && m.inRange(origin, npc.Coords) {
			reply.Npcs = append(reply.Npcs, npc.MapInfo())
		}
	}
	for _, item := range m.items {
		if m.inRange(origin, item.Coords) {
			reply.Items = append(reply.Items, item.MapInfo())
		}
	}
	return reply
}

func (m *Map) characterSnapshot(c CharacterSnapshot) {
	e := m.character(c.PlayerID)
	if e == nil {
		c.Reply <- nil
		return
	}
	c.Reply <- e.char.Clone()
}

func (m *Map) snapshotAll(c SnapshotAll) {
	out := make([]*model.Character, 0, len(m.characters))
	for _, e := range m.characters {
		out = append(out, e.char.Clone())
	}
	c.Reply <- out
}

// randomRange returns a uniform int in [lo, hi].
func randomRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo+1)
}
