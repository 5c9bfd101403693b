package model

import (
	"time"

	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
)

// Gender of a character.
type Gender int

const (
	GenderFemale Gender = iota
	GenderMale
)

// Item is one inventory or bank stack.
type Item struct {
	ID     int
	Amount int
}

// Spell is one learned spell.
type Spell struct {
	ID    int
	Level int
}

// QuestProgress tracks one quest's state for a character.
type QuestProgress struct {
	QuestID     int
	State       int
	NpcKills    map[int]int // npc id → kills
	PlayerKills int
	Done        bool
}

// DisplayWeightMax is the clamp applied to the weight sent to clients even
// when the underlying value exceeds it.
const DisplayWeightMax = 250

// Character is the authoritative in-memory character. Exactly one place owns
// it at a time: the world briefly after selection, then the map it stands
// on, then the player actor during a warp gap.
type Character struct {
	// Identity
	ID        int
	AccountID int
	PlayerID  int // owning session
	Name      string
	Title     string
	Home      string
	Admin     AdminLevel

	// Cosmetic
	Gender    Gender
	Skin      int
	HairStyle int
	HairColor int
	Class     int

	// Progression
	Level      int
	Experience int64
	BaseStr    int
	BaseInt    int
	BaseWis    int
	BaseAgi    int
	BaseCon    int
	BaseCha    int
	AdjStr     int
	AdjInt     int
	AdjWis     int
	AdjAgi     int
	AdjCon     int
	AdjCha     int
	StatPoints  int
	SkillPoints int
	Karma       int

	// Vitals
	HP        int
	MaxHP     int
	TP        int
	MaxTP     int
	MaxSP     int
	Weight    int
	MaxWeight int

	// Combat-derived
	MinDamage int
	MaxDamage int
	Accuracy  int
	Evasion   int
	Armor     int

	// Location
	MapID     int
	Coords    Coords
	Direction Direction
	SitState  SitState
	Hidden    bool

	// Possessions
	Items     []Item // inventory, unique by item id
	Bank      []Item
	Paperdoll Paperdoll
	Spells    []Spell
	Quests    []QuestProgress

	// Guild
	GuildTag        string
	GuildName       string
	GuildRank       int // 1..=9, 0 = none
	GuildRankString string

	// Relationships
	Partner string
	Fiance  string

	// Session metadata
	LoggedInAt time.Time
	Usage      int // accumulated minutes

	// Transient spell-cast state
	SpellState SpellState
}

// SpellState is the two-phase cast in flight, if any.
type SpellState struct {
	SpellID     int
	RequestedAt time.Time
}

// InInventory returns the held amount of an item.
func (c *Character) InInventory(itemID int) int {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it.Amount
		}
	}
	return 0
}

// AddItem adds amount of an item to the inventory, respecting the per-stack
// cap. Returns the amount actually added.
func (c *Character) AddItem(itemID, amount, maxItem int) int {
	if amount <= 0 || itemID <= 0 {
		return 0
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			room := maxItem - c.Items[i].Amount
			if room <= 0 {
				return 0
			}
			added := min(amount, room)
			c.Items[i].Amount += added
			return added
		}
	}
	added := min(amount, maxItem)
	c.Items = append(c.Items, Item{ID: itemID, Amount: added})
	return added
}

// RemoveItem removes up to amount of an item from the inventory and returns
// the amount removed.
func (c *Character) RemoveItem(itemID, amount int) int {
	for i := range c.Items {
		if c.Items[i].ID != itemID {
			continue
		}
		removed := min(amount, c.Items[i].Amount)
		c.Items[i].Amount -= removed
		if c.Items[i].Amount == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
		return removed
	}
	return 0
}

// InBank returns the banked amount of an item.
func (c *Character) InBank(itemID int) int {
	for _, it := range c.Bank {
		if it.ID == itemID {
			return it.Amount
		}
	}
	return 0
}

// DepositItem moves amount into the bank under the per-item cap, returning
// the amount deposited. The caller removes it from the inventory.
func (c *Character) DepositItem(itemID, amount, bankMax int) int {
	if amount <= 0 {
		return 0
	}
	for i := range c.Bank {
		if c.Bank[i].ID == itemID {
			room := bankMax - c.Bank[i].Amount
			if room <= 0 {
				return 0
			}
			added := min(amount, room)
			c.Bank[i].Amount += added
			return added
		}
	}
	added := min(amount, bankMax)
	c.Bank = append(c.Bank, Item{ID: itemID, Amount: added})
	return added
}

// WithdrawItem removes amount from the bank, returning the amount removed.
func (c *Character) WithdrawItem(itemID, amount int) int {
	for i := range c.Bank {
		if c.Bank[i].ID != itemID {
			continue
		}
		removed := min(amount, c.Bank[i].Amount)
		c.Bank[i].Amount -= removed
		if c.Bank[i].Amount == 0 {
			c.Bank = append(c.Bank[:i], c.Bank[i+1:]...)
		}
		return removed
	}
	return 0
}

// HasSpell reports whether the spell is in the spellbook.
func (c *Character) HasSpell(spellID int) bool {
	for _, s := range c.Spells {
		if s.ID == spellID {
			return true
		}
	}
	return false
}

// Quest returns the progress record for a quest, creating it on first use.
func (c *Character) Quest(questID int) *QuestProgress {
	for i := range c.Quests {
		if c.Quests[i].QuestID == questID {
			return &c.Quests[i]
		}
	}
	c.Quests = append(c.Quests, QuestProgress{
		QuestID:  questID,
		NpcKills: make(map[int]int),
	})
	return &c.Quests[len(c.Quests)-1]
}

// DisplayWeight is the weight shown to the client, clamped at 250.
func (c *Character) DisplayWeight() int {
	return min(c.Weight, DisplayWeightMax)
}

// DisplayMaxWeight is the capacity shown to the client, clamped at 250.
func (c *Character) DisplayMaxWeight() int {
	return min(c.MaxWeight, DisplayWeightMax)
}

// CalculateStats recomputes every derived field from base stats, class and
// equipment. Called after load, level-up, stat allocation and any paperdoll
// or inventory mutation.
func (c *Character) CalculateStats(pub *eodata.Pub, formulas *formula.Engine) {
	c.AdjStr = c.BaseStr
	c.AdjInt = c.BaseInt
	c.AdjWis = c.BaseWis
	c.AdjAgi = c.BaseAgi
	c.AdjCon = c.BaseCon
	c.AdjCha = c.BaseCha

	if class := pub.Class(c.Class); class != nil {
		c.AdjStr += class.Str
		c.AdjInt += class.Int
		c.AdjWis += class.Wis
		c.AdjAgi += class.Agi
		c.AdjCon += class.Con
		c.AdjCha += class.Cha
	}

	c.MinDamage = 0
	c.MaxDamage = 0
	c.Accuracy = 0
	c.Evasion = 0
	c.Armor = 0

	equippedWeight := 0
	for _, itemID := range c.Paperdoll {
		if itemID == 0 {
			continue
		}
		rec := pub.Item(itemID)
		if rec == nil {
			continue
		}
		equippedWeight += rec.Weight
		c.MinDamage += rec.MinDamage
		c.MaxDamage += rec.MaxDamage
		c.Accuracy += rec.Accuracy
		c.Evasion += rec.Evade
		c.Armor += rec.Armor
		c.AdjStr += rec.Str
		c.AdjInt += rec.Int
		c.AdjWis += rec.Wis
		c.AdjAgi += rec.Agi
		c.AdjCon += rec.Con
		c.AdjCha += rec.Cha
	}

	ctx := formula.StatContext{
		Level: c.Level,
		Str:   c.AdjStr,
		Int:   c.AdjInt,
		Wis:   c.AdjWis,
		Agi:   c.AdjAgi,
		Con:   c.AdjCon,
		Cha:   c.AdjCha,
		Class: c.Class,
	}

	// Formula failures leave the previous value; the engine reports 0 with
	// an error and these fields must never collapse to zero mid-session.
	if v, err := formulas.Vital(formula.FnMaxHP, ctx); err == nil {
		c.MaxHP = v
	}
	if v, err := formulas.Vital(formula.FnMaxTP, ctx); err == nil {
		c.MaxTP = v
	}
	if v, err := formulas.Vital(formula.FnMaxSP, ctx); err == nil {
		c.MaxSP = v
	}
	if v, err := formulas.Vital(formula.FnMaxWeight, ctx); err == nil {
		c.MaxWeight = v
	}
	if v, err := formulas.ClassStat(formula.FnClassDamage, ctx); err == nil {
		c.MinDamage += 1 + v
		c.MaxDamage += 2 + v
	}
	if v, err := formulas.ClassStat(formula.FnClassAccuracy, ctx); err == nil {
		c.Accuracy += v
	}
	if v, err := formulas.ClassStat(formula.FnClassDefense, ctx); err == nil {
		c.Armor += v
	}
	if v, err := formulas.ClassStat(formula.FnClassEvade, ctx); err == nil {
		c.Evasion += v
	}

	c.Weight = equippedWeight
	for _, it := range c.Items {
		if rec := pub.Item(it.ID); rec != nil {
			c.Weight += rec.Weight * it.Amount
		}
	}

	c.HP = min(c.HP, c.MaxHP)
	c.TP = min(c.TP, c.MaxTP)
}

// AddExperience applies a kill reward and advances levels while experience
// strictly exceeds the next threshold. Returns the number of levels gained.
func (c *Character) AddExperience(table *eodata.ExpTable, exp int, statPerLevel, skillPerLevel int) int {
	if exp <= 0 {
		return 0
	}
	c.Experience += int64(exp)

	levels := 0
	for c.Level < eodata.MaxLevel && c.Experience > table.Threshold(c.Level+1) {
		c.Level++
		c.StatPoints += statPerLevel
		c.SkillPoints += skillPerLevel
		levels++
	}
	return levels
}

// Heal restores hp up to the maximum, returning the amount applied.
func (c *Character) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	healed := min(amount, c.MaxHP-c.HP)
	c.HP += healed
	return healed
}

// Damage reduces hp, never below zero, returning the amount applied.
func (c *Character) Damage(amount int) int {
	if amount <= 0 {
		return 0
	}
	dealt := min(amount, c.HP)
	c.HP -= dealt
	return dealt
}
