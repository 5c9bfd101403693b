package maps

import (
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

const dropRollMax = 64000

// attack resolves one swing: replay the animation, then walk the facing ray
// out to the weapon's range and damage the first target found.
func (m *Map) attack(c Attack) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	char := e.char
	if char.SitState != model.SitStand {
		return
	}
	char.Direction = c.Direction

	weaponRange, needsArrows := m.cfg.WeaponRangeFor(char.Paperdoll[model.SlotWeapon])
	if needsArrows && char.Paperdoll[model.SlotShield] == 0 {
		// Ranged weapons shoot whatever quiver occupies the shield slot.
		return
	}

	if !char.Hidden {
		body := attackPacket(c.PlayerID, c.Direction)
		m.sendInRange(char.Coords, c.PlayerID, protocol.ActionPlayer, protocol.FamilyAttack, body)
	}

	tile := char.Coords
	for step := 0; step < weaponRange; step++ {
		tile = model.NextCoords(tile, c.Direction)
		if !m.emf.InBounds(tile.X, tile.Y) || !m.emf.Tile(tile.X, tile.Y).Walkable() {
			return
		}
		if npc := m.npcAt(tile); npc != nil {
			m.attackNpc(e, npc)
			return
		}
		if m.emf.PK {
			if victim := m.characterAt(tile); victim != nil && victim.char.PlayerID != c.PlayerID {
				m.attackPlayer(e, victim)
				return
			}
		}
	}
}

// attackNpc applies one melee hit to an NPC.
func (m *Map) attackNpc(attacker *entry, npc *model.Npc) {
	rec := m.pub.Npc(npc.ID)
	if rec == nil || (rec.Type != eodata.NpcPassive && rec.Type != eodata.NpcAggressive) {
		return
	}
	char := attacker.char

	// Full hp or facing away from the attacker makes the hit critical.
	critical := npc.HP == npc.MaxHP || npc.Direction == char.Direction

	damage := m.rollDamage(char, critical, rec.Armor, rec.Evade, false)
	npc.HP -= min(damage, npc.HP)
	if damage > 0 {
		npc.RecordDamage(char.PlayerID, damage)
	}

	if npc.HP == 0 {
		m.killNpc(attacker, npc, rec, damage)
		return
	}

	body := npcReplyPacket(char.PlayerID, int(char.Direction), npc.Index, damage, npc.HPPercent())
	for _, viewer := range m.characters {
		if m.inRange(npc.Coords, viewer.char.Coords) {
			viewer.conn.Send(protocol.ActionReply, protocol.FamilyNPC, body)
		}
	}
}

// rollDamage runs the hit-rate and damage formulas for one swing.
func (m *Map) rollDamage(char *model.Character, critical bool, targetArmor, targetEvade int, targetSitting bool) int {
	ctx := formula.DamageContext{
		Amount:        randomRange(char.MinDamage, char.MaxDamage),
		Critical:      critical,
		Accuracy:      char.Accuracy,
		TargetArmor:   targetArmor,
		TargetEvade:   targetEvade,
		TargetSitting: targetSitting,
	}
	rate, err := m.formulas.HitRate(ctx)
	if err != nil {
		m.log.Error("hit rate formula failed", "error", err)
		return 0
	}
	if randomRange(1, 100) > rate {
		return 0
	}
	damage, err := m.formulas.Damage(ctx)
	if err != nil {
		m.log.Error("damage formula failed", "error", err)
		return 0
	}
	return damage
}

// killNpc handles a kill: drop roll, experience with party share, level-ups,
// and the death broadcast.
func (m *Map) killNpc(killer *entry, npc *model.Npc, rec *eodata.NpcRecord, finalBlow int) {
	spawnTicks := 0
	if npc.SpawnIndex < len(m.emf.NpcSpawns) {
		spawnTicks = m.emf.NpcSpawns[npc.SpawnIndex].SpawnTime
	}
	coords := npc.Coords
	npc.Die(spawnTicks)

	drop := m.rollDrop(rec.ID, coords, killer.char.PlayerID)

	leveled := m.awardExperience(killer, rec.Experience)

	char := killer.char
	for id, viewer := range m.characters {
		if !m.inRange(coords, viewer.char.Coords) {
			continue
		}
		if id == char.PlayerID && leveled {
			viewer.conn.Send(protocol.ActionAccept, protocol.FamilyNPC, npcAcceptPacket(
				char.PlayerID, int(char.Direction), npc.Index, drop, finalBlow,
				char.Level, char.StatPoints, char.SkillPoints, char.MaxHP, char.MaxTP, char.MaxSP,
			))
			continue
		}
		viewer.conn.Send(protocol.ActionSpec, protocol.FamilyNPC, npcSpecPacket(
			char.PlayerID, int(char.Direction), npc.Index, drop, finalBlow,
		))
	}
}

// rollDrop rolls the species' drop table once. The table is sorted ascending
// by rate so rarer entries get first claim on a low roll.
func (m *Map) rollDrop(npcID int, coords model.Coords, killerID int) *model.GroundItem {
	drops := m.pub.NpcDrops(npcID)
	if len(drops) == 0 {
		return nil
	}
	roll := randomRange(1, dropRollMax)
	for _, d := range drops {
		if roll <= d.Rate {
			amount := randomRange(d.Min, d.Max)
			if amount <= 0 {
				return nil
			}
			return m.dropGround(d.ItemID, amount, coords, killerID)
		}
	}
	return nil
}

// awardExperience pays out a kill. A partied killer splits the reward with
// every member standing on this map; each present member receives the
// formula share. Returns whether the killer leveled.
func (m *Map) awardExperience(killer *entry, exp int) bool {
	if exp <= 0 {
		return false
	}

	members := m.world.PartyMembers(killer.char.PlayerID)
	var present []*entry
	for _, id := range members {
		if e := m.character(id); e != nil {
			present = append(present, e)
		}
	}

	if len(present) < 2 {
		return m.grantExperience(killer, exp)
	}

	share, err := m.formulas.PartyExpShare(len(present), exp)
	if err != nil {
		m.log.Error("party exp share formula failed", "error", err)
		share = exp / len(present)
	}

	killerLeveled := false
	for _, member := range present {
		leveled := m.grantExperience(member, share)
		if member.char.PlayerID == killer.char.PlayerID {
			killerLeveled = leveled
		}
		m.world.NotifyPartyExp(member.char.PlayerID, share)
	}
	return killerLeveled
}

// grantExperience applies exp to one character, recalculating on level-up,
// and reports the new total to their client.
func (m *Map) grantExperience(e *entry, exp int) bool {
	char := e.char
	levels := char.AddExperience(m.expTable, exp, m.cfg.World.StatPointsPerLevel, m.cfg.World.SkillPointsPerLevel)
	if levels > 0 {
		char.CalculateStats(m.pub, m.formulas)
	}
	e.conn.Send(protocol.ActionReply, protocol.FamilyRecover, expRewardPacket(char.Experience, levels > 0))
	return levels > 0
}

// attackPlayer applies one melee hit to another player on a PK map.
func (m *Map) attackPlayer(attacker, victim *entry) {
	char := attacker.char
	target := victim.char

	// Facing away from the attacker makes the hit critical.
	critical := target.Direction == char.Direction

	damage := m.rollDamage(char, critical, target.Armor, target.Evasion, target.SitState != model.SitStand)
	dealt := target.Damage(damage)
	dead := target.HP == 0

	body := avatarReplyPacket(char.PlayerID, target.PlayerID, dealt, int(char.Direction), target.HPPercent(), dead)
	for _, viewer := range m.characters {
		if m.inRange(target.Coords, viewer.char.Coords) {
			viewer.conn.Send(protocol.ActionReply, protocol.FamilyAvatar, body)
		}
	}
	victim.conn.Send(protocol.ActionPlayer, protocol.FamilyRecover, recoverPlayerPacket(target.HP, target.TP))

	if dead {
		if m.arena.active && m.onArenaTile(target.Coords) {
			m.arenaKill(attacker, victim)
			return
		}
		m.rescue(victim)
	}
}
