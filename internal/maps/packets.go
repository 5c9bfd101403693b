package maps

import (
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Packet body builders. Each returns the payload for one action/family pair;
// the bus adds sequencing and obfuscation.

func writeCharacterMapInfo(w *protocol.Writer, info model.CharacterMapInfo) {
	w.AddBreakString(info.Name)
	w.AddShort(info.PlayerID)
	w.AddShort(info.MapID)
	w.AddShort(info.Coords.X)
	w.AddShort(info.Coords.Y)
	w.AddChar(int(info.Direction))
	w.AddChar(6) // class marker byte kept for client parsers
	w.AddString(padGuildTag(info.GuildTag))
	w.AddChar(info.Level)
	w.AddChar(int(info.Gender))
	w.AddChar(info.HairStyle)
	w.AddChar(info.HairColor)
	w.AddChar(info.Skin)
	w.AddShort(info.MaxHP)
	w.AddShort(info.HP)
	w.AddShort(info.MaxTP)
	w.AddShort(info.TP)
	w.AddShort(info.Boots)
	w.AddShort(0)
	w.AddShort(0)
	w.AddShort(0)
	w.AddShort(info.Armor)
	w.AddShort(0)
	w.AddShort(info.Hat)
	w.AddShort(info.Shield)
	w.AddShort(info.Weapon)
	w.AddChar(int(info.SitState))
	w.AddChar(boolChar(info.Hidden))
	w.AddByte(0xFF)
}

func writeNpcMapInfo(w *protocol.Writer, info model.NpcMapInfo) {
	w.AddChar(info.Index)
	w.AddShort(info.ID)
	w.AddChar(info.Coords.X)
	w.AddChar(info.Coords.Y)
	w.AddChar(int(info.Direction))
}

func writeItemMapInfo(w *protocol.Writer, info model.ItemMapInfo) {
	w.AddShort(info.Index)
	w.AddShort(info.ID)
	w.AddChar(info.Coords.X)
	w.AddChar(info.Coords.Y)
	w.AddThree(info.Amount)
}

// appearPacket announces one character entering view (Players.Agree).
func appearPacket(info model.CharacterMapInfo) []byte {
	w := protocol.NewWriter()
	w.AddByte(0xFF)
	writeCharacterMapInfo(w, info)
	return w.Bytes()
}

// npcAppearPacket announces one NPC entering view (Appear.Reply).
func npcAppearPacket(info model.NpcMapInfo) []byte {
	w := protocol.NewWriter()
	w.AddChar(0)
	w.AddByte(0xFF)
	writeNpcMapInfo(w, info)
	return w.Bytes()
}

// avatarRemovePacket announces a character leaving view.
func avatarRemovePacket(playerID, warpAnim int) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	if warpAnim > 0 {
		w.AddChar(warpAnim)
	}
	return w.Bytes()
}

// walkPacket replays another player's step.
func walkPacket(playerID int, direction model.Direction, coords model.Coords) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddChar(int(direction))
	w.AddChar(coords.X)
	w.AddChar(coords.Y)
	return w.Bytes()
}

// facePacket replays a turn in place.
func facePacket(playerID int, direction model.Direction) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddChar(int(direction))
	return w.Bytes()
}

// sitPacket replays a character sitting down.
func sitPacket(playerID int, coords model.Coords, direction model.Direction, chair bool) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddChar(coords.X)
	w.AddChar(coords.Y)
	w.AddChar(int(direction))
	w.AddChar(boolChar(chair))
	return w.Bytes()
}

// standPacket replays a character standing up.
func standPacket(playerID int, coords model.Coords) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddChar(coords.X)
	w.AddChar(coords.Y)
	return w.Bytes()
}

// doorOpenPacket announces an opened door.
func doorOpenPacket(coords model.Coords) []byte {
	w := protocol.NewWriter()
	w.AddChar(coords.X)
	w.AddShort(coords.Y)
	return w.Bytes()
}

// attackPacket replays a swing.
func attackPacket(playerID int, direction model.Direction) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddChar(int(direction))
	return w.Bytes()
}

// avatarReplyPacket reports player-vs-player damage.
func avatarReplyPacket(attackerID, victimID, damage, direction, hpPercent int, dead bool) []byte {
	w := protocol.NewWriter()
	w.AddShort(attackerID)
	w.AddShort(victimID)
	w.AddThree(damage)
	w.AddChar(direction)
	w.AddChar(hpPercent)
	w.AddChar(boolChar(dead))
	return w.Bytes()
}

// itemDropPacket confirms a drop to the dropper: remaining inventory plus
// the new ground stack.
func itemDropPacket(itemID, droppedAmount, remaining int, item model.ItemMapInfo, weight, maxWeight int) []byte {
	w := protocol.NewWriter()
	w.AddShort(itemID)
	w.AddThree(droppedAmount)
	w.AddInt(remaining)
	w.AddShort(item.Index)
	w.AddChar(item.Coords.X)
	w.AddChar(item.Coords.Y)
	w.AddChar(weight)
	w.AddChar(maxWeight)
	return w.Bytes()
}

// itemAddPacket shows a new ground stack to a bystander.
func itemAddPacket(item model.ItemMapInfo) []byte {
	w := protocol.NewWriter()
	w.AddShort(item.ID)
	w.AddShort(item.Index)
	w.AddThree(item.Amount)
	w.AddChar(item.Coords.X)
	w.AddChar(item.Coords.Y)
	return w.Bytes()
}

// itemRemovePacket hides a picked-up ground stack from a bystander.
func itemRemovePacket(index int) []byte {
	w := protocol.NewWriter()
	w.AddShort(index)
	return w.Bytes()
}

// itemGetPacket confirms a pickup to the taker.
func itemGetPacket(index, itemID, taken, weight, maxWeight int) []byte {
	w := protocol.NewWriter()
	w.AddShort(index)
	w.AddShort(itemID)
	w.AddThree(taken)
	w.AddChar(weight)
	w.AddChar(maxWeight)
	return w.Bytes()
}

// itemJunkPacket confirms junking items.
func itemJunkPacket(itemID, junked, remaining, weight, maxWeight int) []byte {
	w := protocol.NewWriter()
	w.AddShort(itemID)
	w.AddThree(junked)
	w.AddInt(remaining)
	w.AddChar(weight)
	w.AddChar(maxWeight)
	return w.Bytes()
}

// chestOpenPacket lists a chest's contents.
func chestOpenPacket(coords model.Coords, items []model.ChestSlotItem) []byte {
	w := protocol.NewWriter()
	w.AddChar(coords.X)
	w.AddChar(coords.Y)
	for _, it := range items {
		w.AddShort(it.ItemID)
		w.AddThree(it.Amount)
	}
	return w.Bytes()
}

// chestGetPacket confirms taking from a chest: the taken stack, the new
// weight, then the remaining contents.
func chestGetPacket(itemID, amount, weight, maxWeight int, items []model.ChestSlotItem) []byte {
	w := protocol.NewWriter()
	w.AddShort(itemID)
	w.AddThree(amount)
	w.AddChar(weight)
	w.AddChar(maxWeight)
	for _, it := range items {
		w.AddShort(it.ItemID)
		w.AddThree(it.Amount)
	}
	return w.Bytes()
}

// chestAgreePacket refreshes a chest's contents for other viewers.
func chestAgreePacket(items []model.ChestSlotItem) []byte {
	w := protocol.NewWriter()
	for _, it := range items {
		w.AddShort(it.ItemID)
		w.AddThree(it.Amount)
	}
	return w.Bytes()
}

// emotePacket replays an emote.
func emotePacket(playerID, emote int) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddChar(emote)
	return w.Bytes()
}

// talkPlayerPacket replays local chat.
func talkPlayerPacket(playerID int, message string) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddString(message)
	return w.Bytes()
}

// talkServerPacket is a server line in the chat window.
func talkServerPacket(message string) []byte {
	w := protocol.NewWriter()
	w.AddString(message)
	return w.Bytes()
}

// jukeboxPacket announces a purchased track.
func jukeboxPacket(trackID int) []byte {
	w := protocol.NewWriter()
	w.AddShort(trackID)
	return w.Bytes()
}

// effectPacket plays a one-shot effect on a player for bystanders.
func effectPacket(playerID, effectID int) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddThree(effectID)
	return w.Bytes()
}

// quakePacket shakes the screen with the given strength.
func quakePacket(strength int) []byte {
	w := protocol.NewWriter()
	w.AddChar(1) // effect: earthquake
	w.AddChar(strength)
	return w.Bytes()
}

// drainHPPacket reports a map-wide hp drain to one viewer: their own new
// vitals followed by every other damaged character in range.
type drainOther struct {
	PlayerID  int
	HPPercent int
	Damage    int
}

func drainHPPacket(damage, hp, maxHP int, others []drainOther) []byte {
	w := protocol.NewWriter()
	w.AddShort(damage)
	w.AddShort(hp)
	w.AddShort(maxHP)
	for _, o := range others {
		w.AddShort(o.PlayerID)
		w.AddChar(o.HPPercent)
		w.AddShort(o.Damage)
	}
	return w.Bytes()
}

// drainTPPacket reports a map-wide tp drain.
func drainTPPacket(damage, tp, maxTP int) []byte {
	w := protocol.NewWriter()
	w.AddShort(damage)
	w.AddShort(tp)
	w.AddShort(maxTP)
	return w.Bytes()
}

// spikeDamagePacket reports spike damage on a character to bystanders.
func spikeDamagePacket(playerID, hpPercent, damage int, dead bool) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddChar(hpPercent)
	w.AddChar(boolChar(dead))
	w.AddThree(damage)
	return w.Bytes()
}

// recoverPlayerPacket refreshes the player's own hp/tp after a change.
func recoverPlayerPacket(hp, tp int) []byte {
	w := protocol.NewWriter()
	w.AddShort(hp)
	w.AddShort(tp)
	return w.Bytes()
}

// npcBatchPacket serializes one tick's NPC activity visible to one viewer:
// position blocks, then 0xFF, attack blocks, then 0xFF, chat blocks.
func npcBatchPacket(positions, attacks, chats []npcUpdate) []byte {
	w := protocol.NewWriter()
	for _, u := range positions {
		w.AddChar(u.npcIndex)
		w.AddChar(u.coords.X)
		w.AddChar(u.coords.Y)
		w.AddChar(int(u.direction))
	}
	w.AddByte(0xFF)
	for _, u := range attacks {
		w.AddChar(u.npcIndex)
		w.AddChar(boolChar(u.killed))
		w.AddChar(int(u.direction))
		w.AddShort(u.targetID)
		w.AddThree(u.damage)
		w.AddChar(u.hpPercent)
	}
	w.AddByte(0xFF)
	for _, u := range chats {
		w.AddChar(u.npcIndex)
		w.AddChar(len(u.message))
		w.AddString(u.message)
	}
	return w.Bytes()
}

// npcReplyPacket reports melee damage on an NPC to a viewer.
func npcReplyPacket(attackerID, attackerDirection, npcIndex, damage, hpPercent int) []byte {
	w := protocol.NewWriter()
	w.AddShort(attackerID)
	w.AddChar(attackerDirection)
	w.AddShort(npcIndex)
	w.AddThree(damage)
	w.AddChar(hpPercent)
	return w.Bytes()
}

// npcSpecPacket reports an NPC death to one viewer, with the killer's swing
// and optionally the dropped stack.
func npcSpecPacket(killerID, killerDirection, npcIndex int, drop *model.GroundItem, damage int) []byte {
	w := protocol.NewWriter()
	w.AddShort(killerID)
	w.AddChar(killerDirection)
	w.AddShort(npcIndex)
	if drop != nil {
		w.AddShort(drop.Index)
		w.AddShort(drop.ID)
		w.AddChar(drop.Coords.X)
		w.AddChar(drop.Coords.Y)
		w.AddInt(drop.Amount)
	} else {
		w.AddShort(0)
		w.AddShort(0)
		w.AddChar(0)
		w.AddChar(0)
		w.AddInt(0)
	}
	w.AddThree(damage)
	return w.Bytes()
}

// npcAcceptPacket extends an NPC death report with the killer's level-up,
// sent to the killer's party or bystanders when a level was gained.
func npcAcceptPacket(killerID, killerDirection, npcIndex int, drop *model.GroundItem, damage int, level, statPoints, skillPoints, maxHP, maxTP, maxSP int) []byte {
	w := protocol.NewWriter()
	w.AddBytes(npcSpecPacket(killerID, killerDirection, npcIndex, drop, damage))
	w.AddChar(level)
	w.AddShort(statPoints)
	w.AddShort(skillPoints)
	w.AddShort(maxHP)
	w.AddShort(maxTP)
	w.AddShort(maxSP)
	return w.Bytes()
}

// expRewardPacket reports the killer's own exp total after a kill.
func expRewardPacket(experience int64, levelUp bool) []byte {
	w := protocol.NewWriter()
	w.AddInt(int(experience))
	w.AddChar(boolChar(levelUp))
	return w.Bytes()
}

// spellRequestPacket replays the start of a chant to bystanders.
func spellRequestPacket(playerID, spellID int) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddShort(spellID)
	return w.Bytes()
}

// spellTargetSelfPacket reports a completed self heal.
func spellTargetSelfPacket(playerID, spellID, healed, hpPercent, hp, tp int) []byte {
	w := protocol.NewWriter()
	w.AddShort(playerID)
	w.AddShort(spellID)
	w.AddInt(healed)
	w.AddChar(hpPercent)
	w.AddShort(hp)
	w.AddShort(tp)
	return w.Bytes()
}

// spellTargetOtherPacket reports a completed heal on another player.
func spellTargetOtherPacket(targetID, casterID, casterDirection, spellID, healed, hpPercent int) []byte {
	w := protocol.NewWriter()
	w.AddShort(targetID)
	w.AddShort(casterID)
	w.AddChar(casterDirection)
	w.AddShort(spellID)
	w.AddInt(healed)
	w.AddChar(hpPercent)
	return w.Bytes()
}

// spellTargetNpcPacket reports a completed attack spell on an NPC.
func spellTargetNpcPacket(spellID, casterID, casterDirection, npcIndex, damage, hpPercent int, killed bool) []byte {
	w := protocol.NewWriter()
	w.AddShort(spellID)
	w.AddShort(casterID)
	w.AddChar(casterDirection)
	w.AddShort(npcIndex)
	w.AddThree(damage)
	w.AddChar(hpPercent)
	w.AddChar(boolChar(killed))
	return w.Bytes()
}

// spellGroupPacket reports one party member healed by a group spell.
func spellGroupPacket(spellID, casterID, casterTP, healed, targetID, hpPercent int) []byte {
	w := protocol.NewWriter()
	w.AddShort(spellID)
	w.AddShort(casterID)
	w.AddShort(casterTP)
	w.AddShort(healed)
	w.AddShort(targetID)
	w.AddChar(hpPercent)
	return w.Bytes()
}

// warpRequestLocalPacket asks the client to animate a local warp.
func warpRequestLocalPacket(mapID int, coords model.Coords) []byte {
	w := protocol.NewWriter()
	w.AddChar(0) // local
	w.AddShort(mapID)
	w.AddChar(coords.X)
	w.AddChar(coords.Y)
	return w.Bytes()
}

// musicPacket switches the client's background track.
func musicPacket(trackID int) []byte {
	w := protocol.NewWriter()
	w.AddChar(trackID)
	return w.Bytes()
}

// priestReplyPacket answers a wedding request with a status code.
func priestReplyPacket(code int) []byte {
	w := protocol.NewWriter()
	w.AddShort(code)
	return w.Bytes()
}

// padGuildTag renders a guild tag as exactly three characters.
func padGuildTag(tag string) string {
	for len(tag) < 3 {
		tag += " "
	}
	return tag[:3]
}

func boolChar(b bool) int {
	if b {
		return 1
	}
	return 0
}
