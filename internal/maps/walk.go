package maps

import (
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// spikeDamagePercent of max hp dealt by stepping on spikes.
const spikeDamagePercent = 20

// walk validates and applies a one-tile step. The server derives the
// destination from the character's own coordinates; the client's claim is
// only used to detect desync and force a refresh.
func (m *Map) walk(c Walk) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	char := e.char
	if char.SitState != model.SitStand {
		return
	}

	char.Direction = c.Direction
	target := model.NextCoords(char.Coords, c.Direction)

	ghost := char.Admin >= model.AdminGameMaster

	if !m.emf.InBounds(target.X, target.Y) {
		return
	}
	spec := m.emf.Tile(target.X, target.Y)
	if !ghost {
		if !spec.Walkable() {
			return
		}
		if m.occupied(target) {
			return
		}
		if door, ok := m.doors[target]; ok && !door.Open {
			return
		}
	}

	// A warp tile redirects the step into a warp flow instead of a move.
	if warp, ok := m.emf.Warp(target.X, target.Y); ok {
		if warp.LevelRequired > 0 && char.Level < warp.LevelRequired && !ghost {
			return
		}
		dest := model.Coords{X: warp.DestinationX, Y: warp.DestinationY}
		e.conn.RequestWarp(warp.DestinationMap, dest, warp.DestinationMap == m.id, model.WarpAnimationNone)
		return
	}

	prev := char.Coords
	char.Coords = target

	if c.Coords != target {
		// Client desynced; snap it back with a full refresh.
		e.conn.Send(protocol.ActionReply, protocol.FamilyRefresh, m.refreshPacket(c.PlayerID))
	}

	if !char.Hidden {
		body := walkPacket(c.PlayerID, c.Direction, target)
		m.sendInRange(target, c.PlayerID, protocol.ActionPlayer, protocol.FamilyWalk, body)
	}

	m.announceNewlyVisible(e, prev)

	if m.cfg.AutoPickup.Enabled {
		for _, item := range m.items {
			if item.Coords == target {
				m.pickUpItem(PickUpItem{PlayerID: c.PlayerID, ItemIndex: item.Index})
			}
		}
	}

	switch spec {
	case eodata.TileSpikes, eodata.TileSpikesTrap:
		m.applySpikes(e)
	}
}

// announceNewlyVisible exchanges appear packets between the walker and
// everything that just came into range, and sends the walker a Walk.Reply
// listing newly visible ground items and NPCs.
func (m *Map) announceNewlyVisible(e *entry, prev model.Coords) {
	char := e.char
	w := protocol.NewWriter()

	for id, other := range m.characters {
		if id == char.PlayerID {
			continue
		}
		wasVisible := m.inRange(prev, other.char.Coords)
		visible := m.inRange(char.Coords, other.char.Coords)
		if visible && !wasVisible {
			if !char.Hidden {
				other.conn.Send(protocol.ActionAgree, protocol.FamilyPlayers, appearPacket(char.MapInfo()))
			}
			if !other.char.Hidden {
				e.conn.Send(protocol.ActionAgree, protocol.FamilyPlayers, appearPacket(other.char.MapInfo()))
			}
		}
	}

	w.AddByte(0xFF)
	for _, npc := range m.npcs {
		if npc.Alive && m.inRange(char.Coords, npc.Coords) && !m.inRange(prev, npc.Coords) {
			writeNpcMapInfo(w, npc.MapInfo())
		}
	}
	w.AddByte(0xFF)
	for _, item := range m.items {
		if m.inRange(char.Coords, item.Coords) && !m.inRange(prev, item.Coords) {
			writeItemMapInfo(w, item.MapInfo())
		}
	}
	if w.Len() > 2 {
		e.conn.Send(protocol.ActionReply, protocol.FamilyWalk, w.Bytes())
	}
}

// applySpikes damages the character standing on a spike tile.
func (m *Map) applySpikes(e *entry) {
	char := e.char
	damage := char.MaxHP * spikeDamagePercent / 100
	if damage < 1 {
		damage = 1
	}
	dealt := char.Damage(damage)
	dead := char.HP == 0

	e.conn.Send(protocol.ActionSpec, protocol.FamilyEffect, recoverPlayerPacket(char.HP, char.TP))
	if !char.Hidden {
		body := spikeDamagePacket(char.PlayerID, char.HPPercent(), dealt, dead)
		m.sendInRange(char.Coords, char.PlayerID, protocol.ActionAdmin, protocol.FamilyEffect, body)
	}
	if dead {
		m.rescue(e)
	}
}

// rescue returns a dead character to the rescue point with half hp.
func (m *Map) rescue(e *entry) {
	char := e.char
	char.HP = char.MaxHP / 2
	if char.HP < 1 {
		char.HP = 1
	}
	dest := model.Coords{X: m.cfg.Rescue.X, Y: m.cfg.Rescue.Y}
	e.conn.RequestWarp(m.cfg.Rescue.Map, dest, m.cfg.Rescue.Map == m.id, model.WarpAnimationNone)
}

// refreshPacket rebuilds the full in-range view for one player.
func (m *Map) refreshPacket(playerID int) []byte {
	reply := m.nearbyInfo(playerID)
	w := protocol.NewWriter()
	w.AddChar(len(reply.Characters))
	w.AddByte(0xFF)
	for _, info := range reply.Characters {
		writeCharacterMapInfo(w, info)
	}
	for _, info := range reply.Npcs {
		writeNpcMapInfo(w, info)
	}
	w.AddByte(0xFF)
	for _, info := range reply.Items {
		writeItemMapInfo(w, info)
	}
	return w.Bytes()
}

func (m *Map) face(c Face) {
	e := m.character(c.PlayerID)
	if e == nil || e.char.SitState != model.SitStand {
		return
	}
	e.char.Direction = c.Direction
	if !e.char.Hidden {
		body := facePacket(c.PlayerID, c.Direction)
		m.sendInRange(e.char.Coords, c.PlayerID, protocol.ActionPlayer, protocol.FamilyFace, body)
	}
}

func (m *Map) sit(c Sit) {
	e := m.character(c.PlayerID)
	if e == nil || e.char.SitState != model.SitStand {
		return
	}
	char := e.char

	if !c.Chair {
		char.SitState = model.SitFloor
		body := sitPacket(c.PlayerID, char.Coords, char.Direction, false)
		e.conn.Send(protocol.ActionPlayer, protocol.FamilySit, body)
		m.sendInRange(char.Coords, c.PlayerID, protocol.ActionPlayer, protocol.FamilySit, body)
		return
	}

	// Chair sits move the character onto the chair tile; it must be an
	// adjacent chair facing a compatible direction and unoccupied.
	if model.Distance(char.Coords, c.Coords) != 1 || m.occupied(c.Coords) {
		return
	}
	spec := m.emf.Tile(c.Coords.X, c.Coords.Y)
	direction, ok := chairFacing(spec, char.Coords, c.Coords)
	if !ok {
		return
	}

	char.Coords = c.Coords
	char.Direction = direction
	char.SitState = model.SitChair

	body := sitPacket(c.PlayerID, c.Coords, direction, true)
	e.conn.Send(protocol.ActionPlayer, protocol.FamilyChair, body)
	m.sendInRange(char.Coords, c.PlayerID, protocol.ActionPlayer, protocol.FamilyChair, body)
}

// chairFacing resolves the direction a character sits in on a chair tile,
// or reports that the approach is invalid for this chair type.
func chairFacing(spec eodata.TileSpec, from, chair model.Coords) (model.Direction, bool) {
	approach := directionBetween(chair, from)
	switch spec {
	case eodata.TileChairDown:
		return model.DirectionDown, approach == model.DirectionDown
	case eodata.TileChairUp:
		return model.DirectionUp, approach == model.DirectionUp
	case eodata.TileChairLeft:
		return model.DirectionLeft, approach == model.DirectionLeft
	case eodata.TileChairRight:
		return model.DirectionRight, approach == model.DirectionRight
	case eodata.TileChairAll:
		return approach, true
	}
	return model.DirectionDown, false
}

// directionBetween returns the direction from one tile toward an adjacent
// tile.
func directionBetween(from, to model.Coords) model.Direction {
	switch {
	case to.Y > from.Y:
		return model.DirectionDown
	case to.Y < from.Y:
		return model.DirectionUp
	case to.X < from.X:
		return model.DirectionLeft
	default:
		return model.DirectionRight
	}
}

func (m *Map) stand(c Stand) {
	e := m.character(c.PlayerID)
	if e == nil || e.char.SitState == model.SitStand {
		return
	}
	e.char.SitState = model.SitStand

	body := standPacket(c.PlayerID, e.char.Coords)
	e.conn.Send(protocol.ActionPlayer, protocol.FamilySit, body)
	m.sendInRange(e.char.Coords, c.PlayerID, protocol.ActionRemove, protocol.FamilySit, body)
}

// doorCloseDelayTicks keeps an opened door passable briefly.
const doorCloseDelayTicks = 25

func (m *Map) openDoor(c OpenDoor) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	door, ok := m.doors[c.Coords]
	if !ok || door.Open {
		return
	}
	if model.Distance(e.char.Coords, c.Coords) > 1 {
		return
	}
	if door.Key != 0 && e.char.InInventory(door.Key) == 0 && e.char.Admin == model.AdminPlayer {
		return
	}

	door.Open = true
	m.openDoors[c.Coords] = doorCloseDelayTicks

	body := doorOpenPacket(c.Coords)
	e.conn.Send(protocol.ActionOpen, protocol.FamilyDoor, body)
	m.sendInRange(c.Coords, c.PlayerID, protocol.ActionOpen, protocol.FamilyDoor, body)
}
