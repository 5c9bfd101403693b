package maps

import (
	"math"

	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// respawnSpread is how far from its spawn point an NPC may reappear.
const respawnSpread = 2

// respawnAttempts bounds the random placement search before falling back to
// the exact spawn tile.
const respawnAttempts = 200

// tick advances the map one simulation step: NPC timers and actions,
// respawns, timed map effects, chest refills, doors, and the ceremony and
// arena state machines. NPC activity is batched and flushed per viewer at
// the end so each client gets one packet per tick.
func (m *Map) tick() {
	m.npcUpdates = m.npcUpdates[:0]

	frozen := m.cfg.Npcs.FreezeOnEmptyMap && len(m.characters) == 0

	for _, npc := range m.npcs {
		if !npc.Alive {
			if npc.SpawnTicks > 0 {
				npc.SpawnTicks--
			}
			if npc.SpawnTicks == 0 && !frozen {
				m.respawnNpc(npc)
			}
			continue
		}
		if frozen {
			continue
		}
		m.tickNpc(npc)
	}

	if m.drainTicks > 0 {
		m.drainIn--
		if m.drainIn <= 0 {
			m.drainIn = m.drainTicks
			m.applyMapEffects()
		}
	}

	m.tickChests()
	m.tickDoors()
	m.quakeTick()
	m.arenaTick()
	m.weddingTick()

	m.flushNpcUpdates()
}

// tickNpc advances one living NPC: cooldowns, boredom, then an act when the
// act timer elapses.
func (m *Map) tickNpc(npc *model.Npc) {
	rec := m.pub.Npc(npc.ID)
	if rec == nil {
		return
	}

	m.tickNpcTalk(npc, rec)

	speed := m.npcSpeedTicks(npc)
	if speed <= 0 {
		return // static species never act
	}
	npc.ActTicks++
	if npc.ActTicks < speed {
		return
	}
	npc.ActTicks = 0

	// Opponents who stop fighting are eventually forgotten.
	for i := 0; i < len(npc.Opponents); {
		npc.Opponents[i].BoredTicks += speed
		if m.boredTicks > 0 && npc.Opponents[i].BoredTicks > m.boredTicks {
			npc.Opponents = append(npc.Opponents[:i], npc.Opponents[i+1:]...)
			continue
		}
		i++
	}

	target := m.npcTarget(npc, rec)
	if target != nil {
		if model.Distance(npc.Coords, target.char.Coords) == 1 {
			m.npcAttack(npc, rec, target)
			return
		}
		m.npcChase(npc, target)
		return
	}
	m.npcWander(npc)
}

// npcSpeedTicks maps the NPC's spawn speed class onto an act interval.
func (m *Map) npcSpeedTicks(npc *model.Npc) int {
	if npc.SpawnIndex >= len(m.emf.NpcSpawns) {
		return m.cfg.Npcs.Speeds[1]
	}
	class := m.emf.NpcSpawns[npc.SpawnIndex].SpawnType % 7
	return m.cfg.Npcs.Speeds[class]
}

// npcTarget picks who the NPC is fighting: the nearest present opponent, or
// for aggressive species the nearest visible player.
func (m *Map) npcTarget(npc *model.Npc, rec *eodata.NpcRecord) *entry {
	var best *entry
	bestDist := math.MaxInt

	for _, o := range npc.Opponents {
		if e := m.character(o.PlayerID); e != nil && !e.char.Hidden {
			if d := model.Distance(npc.Coords, e.char.Coords); d < bestDist {
				best, bestDist = e, d
			}
		}
	}
	if best != nil {
		return best
	}

	if rec.Type != eodata.NpcAggressive {
		return nil
	}
	for _, e := range m.characters {
		if e.char.Hidden || e.char.Admin > model.AdminPlayer {
			continue
		}
		d := model.Distance(npc.Coords, e.char.Coords)
		if d <= m.cfg.Npcs.ChaseDistance && d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}

// npcAttack swings at an adjacent target. The hit is queued into the batch
// packet; a killing blow rescues the victim after the flush.
func (m *Map) npcAttack(npc *model.Npc, rec *eodata.NpcRecord, target *entry) {
	char := target.char
	npc.Direction = directionBetween(npc.Coords, char.Coords)

	ctx := formula.DamageContext{
		Amount:        randomRange(rec.MinDamage, rec.MaxDamage),
		Accuracy:      rec.Accuracy,
		TargetArmor:   char.Armor,
		TargetEvade:   char.Evasion,
		TargetSitting: char.SitState != model.SitStand,
	}
	rate, err := m.formulas.HitRate(ctx)
	if err != nil {
		m.log.Error("hit rate formula failed", "error", err)
		return
	}
	damage := 0
	if randomRange(1, 100) <= rate {
		damage, err = m.formulas.Damage(ctx)
		if err != nil {
			m.log.Error("damage formula failed", "error", err)
			return
		}
	}

	dealt := char.Damage(damage)
	dead := char.HP == 0

	m.npcUpdates = append(m.npcUpdates, npcUpdate{
		kind:      npcUpdateAttack,
		npcIndex:  npc.Index,
		coords:    npc.Coords,
		direction: npc.Direction,
		targetID:  char.PlayerID,
		damage:    dealt,
		hpPercent: char.HPPercent(),
		killed:    dead,
	})
	target.conn.Send(protocol.ActionPlayer, protocol.FamilyRecover, recoverPlayerPacket(char.HP, char.TP))

	if dead {
		m.rescue(target)
	}
}

// npcChase steps one tile toward the target, preferring the longer axis.
func (m *Map) npcChase(npc *model.Npc, target *entry) {
	dx := target.char.Coords.X - npc.Coords.X
	dy := target.char.Coords.Y - npc.Coords.Y

	var primary, secondary model.Direction
	if abs(dx) >= abs(dy) {
		primary, secondary = horizontal(dx), vertical(dy)
	} else {
		primary, secondary = vertical(dy), horizontal(dx)
	}

	for _, dir := range []model.Direction{primary, secondary} {
		next := model.NextCoords(npc.Coords, dir)
		if m.npcCanStep(next) {
			npc.Coords = next
			npc.Direction = dir
			m.npcUpdates = append(m.npcUpdates, npcUpdate{
				kind:      npcUpdatePosition,
				npcIndex:  npc.Index,
				coords:    next,
				direction: dir,
			})
			return
		}
	}
}

// npcWander takes a random idle step, or stands still.
func (m *Map) npcWander(npc *model.Npc) {
	// Stand still most acts so idle NPCs do not pace constantly.
	if randomRange(0, 3) != 0 {
		return
	}
	dir := model.Direction(randomRange(0, 3))
	next := model.NextCoords(npc.Coords, dir)
	if !m.npcCanStep(next) {
		npc.Direction = dir
		return
	}
	npc.Coords = next
	npc.Direction = dir
	m.npcUpdates = append(m.npcUpdates, npcUpdate{
		kind:      npcUpdatePosition,
		npcIndex:  npc.Index,
		coords:    next,
		direction: dir,
	})
}

// npcCanStep reports whether an NPC may move onto a tile.
func (m *Map) npcCanStep(coords model.Coords) bool {
	if !m.emf.InBounds(coords.X, coords.Y) {
		return false
	}
	spec := m.emf.Tile(coords.X, coords.Y)
	if !spec.Walkable() || spec == eodata.TileNPCBoundary || spec.Chair() {
		return false
	}
	if _, isWarp := m.emf.Warp(coords.X, coords.Y); isWarp {
		return false
	}
	return !m.occupied(coords)
}

// tickNpcTalk advances idle chatter.
func (m *Map) tickNpcTalk(npc *model.Npc, rec *eodata.NpcRecord) {
	talk, ok := m.pub.Talk[npc.ID]
	if !ok || len(talk.Messages) == 0 || m.talkTicks <= 0 {
		return
	}
	npc.TalkTicks++
	if npc.TalkTicks < m.talkTicks {
		return
	}
	npc.TalkTicks = 0
	if randomRange(1, 100) > talk.Rate {
		return
	}
	m.npcUpdates = append(m.npcUpdates, npcUpdate{
		kind:     npcUpdateChat,
		npcIndex: npc.Index,
		coords:   npc.Coords,
		message:  talk.Messages[randomRange(0, len(talk.Messages)-1)],
	})
}

// respawnNpc brings a dead NPC back near its spawn point.
func (m *Map) respawnNpc(npc *model.Npc) {
	if npc.SpawnIndex >= len(m.emf.NpcSpawns) {
		return
	}
	spawn := m.emf.NpcSpawns[npc.SpawnIndex]
	rec := m.pub.Npc(npc.ID)
	if rec == nil {
		return
	}

	npc.Alive = true
	npc.HP = rec.HP
	npc.MaxHP = rec.HP
	npc.ActTicks = 0
	m.placeRespawned(npc, spawn)

	info := npc.MapInfo()
	for _, viewer := range m.characters {
		if m.inRange(npc.Coords, viewer.char.Coords) {
			viewer.conn.Send(protocol.ActionReply, protocol.FamilyAppear, npcAppearPacket(info))
		}
	}
}

// placeRespawned picks a free tile near the spawn point, falling back to the
// exact spawn tile when the area is crowded.
func (m *Map) placeRespawned(npc *model.Npc, spawn eodata.NpcSpawn) {
	if spawn.SpawnType == 7 {
		// Fixed spawns reappear exactly where mapped, facing as mapped.
		npc.Coords = model.Coords{X: spawn.X, Y: spawn.Y}
		npc.Direction = model.Direction(spawn.SpawnTime % 4)
		return
	}
	for i := 0; i < respawnAttempts; i++ {
		c := model.Coords{
			X: spawn.X + randomRange(-respawnSpread, respawnSpread),
			Y: spawn.Y + randomRange(-respawnSpread, respawnSpread),
		}
		if m.npcCanStep(c) {
			npc.Coords = c
			npc.Direction = model.Direction(randomRange(0, 3))
			return
		}
	}
	npc.Coords = model.Coords{X: spawn.X, Y: spawn.Y}
	npc.Direction = model.DirectionDown
}

// applyMapEffects runs the map's timed effect on everyone present. Drains
// never kill: hp damage is clamped to leave at least one hp.
func (m *Map) applyMapEffects() {
	switch m.emf.Effect {
	case eodata.EffectHPDrain:
		m.applyHPDrain()
	case eodata.EffectTPDrain:
		m.applyTPDrain()
	}
	m.applyTimedSpikes()
}

func (m *Map) applyHPDrain() {
	type drained struct {
		e      *entry
		damage int
	}
	var all []drained
	for _, e := range m.characters {
		damage := int(float64(e.char.MaxHP) * m.cfg.World.DrainHPDamage)
		damage = min(damage, e.char.HP-1)
		if damage < 0 {
			damage = 0
		}
		e.char.HP -= damage
		all = append(all, drained{e: e, damage: damage})
	}

	// Each viewer gets their own damage plus every other victim in range.
	for _, d := range all {
		var others []drainOther
		for _, o := range all {
			if o.e == d.e {
				continue
			}
			if m.inRange(d.e.char.Coords, o.e.char.Coords) {
				others = append(others, drainOther{
					PlayerID:  o.e.char.PlayerID,
					HPPercent: o.e.char.HPPercent(),
					Damage:    o.damage,
				})
			}
		}
		d.e.conn.Send(protocol.ActionTargetOther, protocol.FamilyEffect,
			drainHPPacket(d.damage, d.e.char.HP, d.e.char.MaxHP, others))
	}
}

func (m *Map) applyTPDrain() {
	for _, e := range m.characters {
		damage := int(float64(e.char.MaxTP) * m.cfg.World.DrainTPDamage)
		damage = min(damage, e.char.TP)
		e.char.TP -= damage
		e.conn.Send(protocol.ActionSpec, protocol.FamilyEffect,
			drainTPPacket(damage, e.char.TP, e.char.MaxTP))
	}
}

// applyTimedSpikes hurts everyone standing on timed spike tiles.
func (m *Map) applyTimedSpikes() {
	for _, e := range m.characters {
		if m.emf.Tile(e.char.Coords.X, e.char.Coords.Y) == eodata.TileSpikesTimed {
			m.applySpikes(e)
		}
	}
}

// tickChests refills chest slots whose spawn timers have elapsed.
func (m *Map) tickChests() {
	now := m.now()
	for _, chest := range m.chests {
		for i := range chest.Spawns {
			spawn := &chest.Spawns[i]
			if spawn.LastTaken.IsZero() || now.Sub(spawn.LastTaken) < spawn.SpawnTime {
				continue
			}
			if chest.Item(spawn.Slot) != nil {
				continue
			}
			spawn.LastTaken = now
			chest.Items = append(chest.Items, model.ChestSlotItem{
				Slot:   spawn.Slot,
				ItemID: spawn.ItemID,
				Amount: spawn.Amount,
			})
			m.sendInRange(chest.Coords, 0, protocol.ActionAgree, protocol.FamilyChest, chestAgreePacket(chest.Items))
		}
	}
}

// tickDoors closes opened doors after their delay.
func (m *Map) tickDoors() {
	for coords, ticks := range m.openDoors {
		if ticks > 1 {
			m.openDoors[coords] = ticks - 1
			continue
		}
		delete(m.openDoors, coords)
		if door, ok := m.doors[coords]; ok {
			door.Open = false
		}
	}
}

// flushNpcUpdates sends each viewer one packet covering the NPC activity
// they can see.
func (m *Map) flushNpcUpdates() {
	if len(m.npcUpdates) == 0 {
		return
	}
	for _, viewer := range m.characters {
		var positions, attacks, chats []npcUpdate
		for _, u := range m.npcUpdates {
			if !m.inRange(viewer.char.Coords, u.coords) {
				continue
			}
			switch u.kind {
			case npcUpdatePosition:
				positions = append(positions, u)
			case npcUpdateAttack:
				attacks = append(attacks, u)
			case npcUpdateChat:
				chats = append(chats, u)
			}
		}
		if len(positions) == 0 && len(attacks) == 0 && len(chats) == 0 {
			continue
		}
		viewer.conn.Send(protocol.ActionPlayer, protocol.FamilyNPC, npcBatchPacket(positions, attacks, chats))
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func horizontal(dx int) model.Direction {
	if dx < 0 {
		return model.DirectionLeft
	}
	return model.DirectionRight
}

func vertical(dy int) model.Direction {
	if dy < 0 {
		return model.DirectionUp
	}
	return model.DirectionDown
}
