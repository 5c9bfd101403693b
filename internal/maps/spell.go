package maps

import (
	"time"

	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Chant timing bounds per cast-time unit. A completion arriving outside the
// window is a speed hack or a stale packet and is ignored.
const (
	chantTickMin = 47 * time.Millisecond
	chantTickMax = 50 * time.Millisecond
)

// castSpellRequest starts a chant. The completion packet must arrive within
// the spell's timing window or it is dropped.
func (m *Map) castSpellRequest(c CastSpellRequest) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	char := e.char
	if !char.HasSpell(c.SpellID) || m.pub.Spell(c.SpellID) == nil {
		return
	}

	char.SpellState = model.SpellState{SpellID: c.SpellID, RequestedAt: m.now()}

	if !char.Hidden {
		body := spellRequestPacket(c.PlayerID, c.SpellID)
		m.sendInRange(char.Coords, c.PlayerID, protocol.ActionRequest, protocol.FamilySpell, body)
	}
}

// beginCast validates the completion against the in-flight chant and deducts
// tp. Returns the spell record, or nil when the cast must be dropped. The
// chant state is consumed either way.
func (m *Map) beginCast(e *entry, spellID int) *eodata.SpellRecord {
	char := e.char
	state := char.SpellState
	char.SpellState = model.SpellState{}

	if state.SpellID != spellID {
		return nil
	}
	spell := m.pub.Spell(spellID)
	if spell == nil {
		return nil
	}

	if spell.CastTime > 0 {
		elapsed := m.now().Sub(state.RequestedAt)
		lo := time.Duration(spell.CastTime) * chantTickMin
		hi := time.Duration(spell.CastTime) * chantTickMax
		if elapsed < lo || elapsed > hi {
			return nil
		}
	}

	if char.TP < spell.TPCost {
		return nil
	}
	char.TP -= spell.TPCost
	return spell
}

// castSpellSelf completes a self-targeted heal. A full-hp heal is a no-op
// that still consumes tp.
func (m *Map) castSpellSelf(c CastSpellSelf) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	spell := m.beginCast(e, c.SpellID)
	if spell == nil || spell.Type != eodata.SpellHeal {
		return
	}
	char := e.char

	healed := char.Heal(spell.HP)
	body := spellTargetSelfPacket(c.PlayerID, c.SpellID, healed, char.HPPercent(), char.HP, char.TP)
	e.conn.Send(protocol.ActionTargetSelf, protocol.FamilySpell, body)
	if !char.Hidden {
		// Bystanders see the heal without the caster's private vitals.
		m.sendInRange(char.Coords, c.PlayerID, protocol.ActionTargetSelf, protocol.FamilySpell,
			spellTargetSelfPacket(c.PlayerID, c.SpellID, healed, char.HPPercent(), 0, 0))
	}
}

// castSpellOther completes a cast on a player or NPC target.
func (m *Map) castSpellOther(c CastSpellOther) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	spell := m.beginCast(e, c.SpellID)
	if spell == nil {
		return
	}
	if c.TargetNpc {
		m.spellNpc(e, spell, c.TargetID)
		return
	}
	m.spellPlayer(e, spell, c.TargetID)
}

func (m *Map) spellNpc(caster *entry, spell *eodata.SpellRecord, npcIndex int) {
	if spell.Type != eodata.SpellDamage {
		return
	}
	npc := m.npcs[npcIndex]
	if npc == nil || !npc.Alive {
		return
	}
	rec := m.pub.Npc(npc.ID)
	if rec == nil || (rec.Type != eodata.NpcPassive && rec.Type != eodata.NpcAggressive) {
		return
	}
	char := caster.char
	if !m.inRange(char.Coords, npc.Coords) {
		return
	}

	ctx := formula.DamageContext{
		Amount:      randomRange(spell.MinDamage, spell.MaxDamage),
		Critical:    npc.HP == npc.MaxHP,
		Accuracy:    char.Accuracy + spell.Accuracy,
		TargetArmor: rec.Armor,
		TargetEvade: rec.Evade,
	}
	damage, err := m.formulas.Damage(ctx)
	if err != nil {
		m.log.Error("spell damage formula failed", "error", err)
		return
	}
	npc.HP -= min(damage, npc.HP)
	if damage > 0 {
		npc.RecordDamage(char.PlayerID, damage)
	}

	if npc.HP == 0 {
		m.killNpc(caster, npc, rec, damage)
		return
	}

	body := spellTargetNpcPacket(spell.ID, char.PlayerID, int(char.Direction), npc.Index, damage, npc.HPPercent(), false)
	for _, viewer := range m.characters {
		if m.inRange(npc.Coords, viewer.char.Coords) {
			viewer.conn.Send(protocol.ActionTargetOther, protocol.FamilyCast, body)
		}
	}
}

func (m *Map) spellPlayer(caster *entry, spell *eodata.SpellRecord, targetID int) {
	if spell.Type != eodata.SpellHeal {
		return
	}
	target := m.character(targetID)
	if target == nil {
		return
	}
	char := caster.char
	if !m.inRange(char.Coords, target.char.Coords) {
		return
	}

	healed := target.char.Heal(spell.HP)
	body := spellTargetOtherPacket(targetID, char.PlayerID, int(char.Direction), spell.ID, healed, target.char.HPPercent())
	for _, viewer := range m.characters {
		if m.inRange(target.char.Coords, viewer.char.Coords) {
			viewer.conn.Send(protocol.ActionTargetOther, protocol.FamilySpell, body)
		}
	}
	target.conn.Send(protocol.ActionPlayer, protocol.FamilyRecover, recoverPlayerPacket(target.char.HP, target.char.TP))
}

// castSpellGroup completes a party-wide heal: every party member standing on
// this map is healed for one tp cost.
func (m *Map) castSpellGroup(c CastSpellGroup) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	spell := m.beginCast(e, c.SpellID)
	if spell == nil || spell.Type != eodata.SpellHeal {
		return
	}
	char := e.char

	members := m.world.PartyMembers(c.PlayerID)
	if len(members) == 0 {
		return
	}

	for _, id := range members {
		member := m.character(id)
		if member == nil {
			continue
		}
		healed := member.char.Heal(spell.HP)
		body := spellGroupPacket(spell.ID, char.PlayerID, char.TP, healed, id, member.char.HPPercent())
		for _, viewer := range m.characters {
			if m.inRange(member.char.Coords, viewer.char.Coords) {
				viewer.conn.Send(protocol.ActionTargetGroup, protocol.FamilySpell, body)
			}
		}
		member.conn.Send(protocol.ActionPlayer, protocol.FamilyRecover, recoverPlayerPacket(member.char.HP, member.char.TP))
	}
}
