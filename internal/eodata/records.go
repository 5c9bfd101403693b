// Package eodata holds the static game content loaded once at startup:
// pub record databases (items, NPCs, spells, classes, drops, talk, shops,
// inns), per-map EMF files and the experience table. Everything here is
// immutable after load and may be referenced from any goroutine.
package eodata

// ItemType classifies a pub item record.
type ItemType int

const (
	ItemStatic ItemType = iota
	ItemUnused
	ItemMoney
	ItemHeal
	ItemTeleport
	ItemSpell
	ItemEXPReward
	ItemStatReward
	ItemSkillReward
	ItemKey
	ItemWeapon
	ItemShield
	ItemArmor
	ItemHat
	ItemBoots
	ItemGloves
	ItemAccessory
	ItemBelt
	ItemNecklace
	ItemRing
	ItemArmlet
	ItemBracer
	ItemBeer
	ItemEffectPotion
	ItemHairDye
	ItemCureCurse
)

// ItemRecord is one item definition.
type ItemRecord struct {
	ID      int
	Name    string
	Graphic int
	Type    ItemType
	Weight  int

	HP       int
	TP       int
	MinDamage int
	MaxDamage int
	Accuracy int
	Evade    int
	Armor    int

	Str int
	Int int
	Wis int
	Agi int
	Con int
	Cha int

	// Spec1 meaning depends on Type: key id for ItemKey, spell id for
	// ItemSpell, heal hp for ItemHeal, scroll map for ItemTeleport.
	Spec1 int
	Spec2 int
	Spec3 int

	LevelReq int
	ClassReq int
}

// NpcType classifies a pub NPC record.
type NpcType int

const (
	NpcFriendly NpcType = iota
	NpcPassive
	NpcAggressive
	npcReserved3
	npcReserved4
	npcReserved5
	NpcShop
	NpcInn
	NpcBank
	NpcBarber
	NpcGuild
	NpcPriest
	NpcLawyer
	NpcTrainer
	npcReserved14
	NpcQuest
)

// NpcRecord is one NPC species definition.
type NpcRecord struct {
	ID      int
	Name    string
	Graphic int
	Type    NpcType
	Boss    bool
	Child   bool

	HP         int
	MinDamage  int
	MaxDamage  int
	Accuracy   int
	Evade      int
	Armor      int
	Experience int
}

// SpellType classifies a spell record.
type SpellType int

const (
	SpellHeal SpellType = iota
	SpellDamage
	SpellBard
)

// SpellTargetRestrict limits who a spell may target.
type SpellTargetRestrict int

const (
	RestrictNPCOnly SpellTargetRestrict = iota
	RestrictFriendly
	RestrictOpponent
)

// SpellTargetType is the cast shape a spell completes with.
type SpellTargetType int

const (
	TargetNormal SpellTargetType = iota
	TargetSelf
	targetReserved2
	TargetGroup
)

// SpellRecord is one spell definition.
type SpellRecord struct {
	ID             int
	Name           string
	Chant          string
	Type           SpellType
	TargetRestrict SpellTargetRestrict
	TargetType     SpellTargetType

	CastTime  int // chant ticks; the completion window is CastTime × 47..50 ms
	TPCost    int
	SPCost    int
	MinDamage int
	MaxDamage int
	Accuracy  int
	HP        int
}

// ClassRecord is one character class definition.
type ClassRecord struct {
	ID   int
	Name string

	Str int
	Int int
	Wis int
	Agi int
	Con int
	Cha int
}

// DropRecord is one entry of an NPC's drop table. Rate is rolled out of
// 64000.
type DropRecord struct {
	ItemID int
	Min    int
	Max    int
	Rate   int
}

// TalkRecord is an NPC species' idle chatter.
type TalkRecord struct {
	NpcID    int
	Rate     int // percent chance once the talk cooldown elapses
	Messages []string
}

// ShopTrade is one buy/sell line of a shop.
type ShopTrade struct {
	ItemID    int
	BuyPrice  int
	SellPrice int
}

// ShopRecord is a vendor NPC's stock.
type ShopRecord struct {
	VendorID int
	Name     string
	Trades   []ShopTrade
}

// InnRecord is a home/inn definition.
type InnRecord struct {
	VendorID  int
	Name      string
	SpawnMap  int
	SpawnX    int
	SpawnY    int
	SleepMap  int
	SleepX    int
	SleepY    int
	AltSpawnEnabled bool
}

// SkillMasterSkill is one learnable skill at a trainer.
type SkillMasterSkill struct {
	SkillID      int
	LevelReq     int
	ClassReq     int
	Price        int
	SkillIDReq   [4]int
	StrReq       int
	IntReq       int
	WisReq       int
	AgiReq       int
	ConReq       int
	ChaReq       int
}

// SkillMasterRecord is a trainer NPC's teachable list.
type SkillMasterRecord struct {
	VendorID int
	Name     string
	MinLevel int
	MaxLevel int
	ClassReq int
	Skills   []SkillMasterSkill
}

// Pub aggregates every static record database. Lookups are total: a missing
// id yields nil.
type Pub struct {
	Items   []ItemRecord
	Npcs    []NpcRecord
	Spells  []SpellRecord
	Classes []ClassRecord

	Drops   map[int][]DropRecord // npc id → table
	Talk    map[int]TalkRecord   // npc id → chatter
	Shops   map[int]ShopRecord   // vendor id → stock
	Inns    map[int]InnRecord    // vendor id → inn
	Masters map[int]SkillMasterRecord
}

// Item returns the record for an item id, or nil.
func (p *Pub) Item(id int) *ItemRecord {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// Npc returns the record for an NPC species id, or nil.
func (p *Pub) Npc(id int) *NpcRecord {
	for i := range p.Npcs {
		if p.Npcs[i].ID == id {
			return &p.Npcs[i]
		}
	}
	return nil
}

// Spell returns the record for a spell id, or nil.
func (p *Pub) Spell(id int) *SpellRecord {
	for i := range p.Spells {
		if p.Spells[i].ID == id {
			return &p.Spells[i]
		}
	}
	return nil
}

// Class returns the record for a class id, or nil.
func (p *Pub) Class(id int) *ClassRecord {
	for i := range p.Classes {
		if p.Classes[i].ID == id {
			return &p.Classes[i]
		}
	}
	return nil
}

// NpcDrops returns the drop table for an NPC species, sorted by the loader
// in ascending rate order. Missing species have no drops.
func (p *Pub) NpcDrops(id int) []DropRecord {
	return p.Drops[id]
}
