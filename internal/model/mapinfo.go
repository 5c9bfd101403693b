package model

// CharacterMapInfo is the visible slice of a character, as serialized into
// player-range packets.
type CharacterMapInfo struct {
	Name      string
	PlayerID  int
	MapID     int
	Coords    Coords
	Direction Direction
	ClassID   int
	GuildTag  string
	Level     int
	Gender    Gender
	HairStyle int
	HairColor int
	Skin      int
	MaxHP     int
	HP        int
	MaxTP     int
	TP        int
	// Equipment as shown on the avatar: boots, armor, hat, shield, weapon.
	Boots  int
	Armor  int
	Hat    int
	Shield int
	Weapon int
	SitState SitState
	Hidden   bool
}

// NpcMapInfo is the visible slice of a live NPC.
type NpcMapInfo struct {
	Index     int
	ID        int
	Coords    Coords
	Direction Direction
}

// ItemMapInfo is the visible slice of a ground item.
type ItemMapInfo struct {
	Index  int
	ID     int
	Amount int
	Coords Coords
}

// MapInfo projects the character onto its packet representation.
func (c *Character) MapInfo() CharacterMapInfo {
	return CharacterMapInfo{
		Name:      c.Name,
		PlayerID:  c.PlayerID,
		MapID:     c.MapID,
		Coords:    c.Coords,
		Direction: c.Direction,
		ClassID:   c.Class,
		GuildTag:  c.GuildTag,
		Level:     c.Level,
		Gender:    c.Gender,
		HairStyle: c.HairStyle,
		HairColor: c.HairColor,
		Skin:      c.Skin,
		MaxHP:     c.MaxHP,
		HP:        c.HP,
		MaxTP:     c.MaxTP,
		TP:        c.TP,
		Boots:     c.Paperdoll[SlotBoots],
		Armor:     c.Paperdoll[SlotArmor],
		Hat:       c.Paperdoll[SlotHat],
		Shield:    c.Paperdoll[SlotShield],
		Weapon:    c.Paperdoll[SlotWeapon],
		SitState:  c.SitState,
		Hidden:    c.Hidden,
	}
}

// MapInfo projects a live NPC onto its packet representation.
func (n *Npc) MapInfo() NpcMapInfo {
	return NpcMapInfo{
		Index:     n.Index,
		ID:        n.ID,
		Coords:    n.Coords,
		Direction: n.Direction,
	}
}

// MapInfo projects a ground item onto its packet representation.
func (g *GroundItem) MapInfo() ItemMapInfo {
	return ItemMapInfo{
		Index:  g.Index,
		ID:     g.ID,
		Amount: g.Amount,
		Coords: g.Coords,
	}
}

// HPPercent is hp as a 0..100 percentage of max, for health bars.
func (c *Character) HPPercent() int {
	if c.MaxHP <= 0 {
		return 0
	}
	return c.HP * 100 / c.MaxHP
}

// HPPercent is hp as a 0..100 percentage of max.
func (n *Npc) HPPercent() int {
	if n.MaxHP <= 0 {
		return 0
	}
	return n.HP * 100 / n.MaxHP
}

// Clone returns a deep copy safe to hand across goroutines, used when the
// persistence layer snapshots a live character.
func (c *Character) Clone() *Character {
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	cp.Bank = append([]Item(nil), c.Bank...)
	cp.Spells = append([]Spell(nil), c.Spells...)
	cp.Quests = make([]QuestProgress, len(c.Quests))
	for i, q := range c.Quests {
		cp.Quests[i] = q
		cp.Quests[i].NpcKills = make(map[int]int, len(q.NpcKills))
		for id, kills := range q.NpcKills {
			cp.Quests[i].NpcKills[id] = kills
		}
	}
	return &cp
}
