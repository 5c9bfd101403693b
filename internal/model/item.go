package model

import "time"

// GroundItem is one item stack lying on a map tile.
type GroundItem struct {
	Index  int // unique within the map, recycled
	ID     int
	Amount int
	Coords Coords

	// OwnerID has a first-pickup window after a drop; 0 means free for all.
	OwnerID   int
	DroppedAt time.Time
}

// ProtectedFrom reports whether the owner-only pickup window still excludes
// the given player.
func (g *GroundItem) ProtectedFrom(playerID int, window time.Duration, now time.Time) bool {
	if g.OwnerID == 0 || g.OwnerID == playerID {
		return false
	}
	return now.Sub(g.DroppedAt) < window
}

// ChestSlotItem is the current content of one chest slot.
type ChestSlotItem struct {
	Slot   int
	ItemID int
	Amount int
}

// ChestSpawn is one refill rule attached to a chest.
type ChestSpawn struct {
	Slot      int
	ItemID    int
	Amount    int
	SpawnTime time.Duration
	LastTaken time.Time
}

// Chest is one chest tile's state.
type Chest struct {
	Coords Coords
	Key    int // required key item id, 0 = unlocked
	Items  []ChestSlotItem
	Spawns []ChestSpawn
}

// Item returns the content of a slot, if filled.
func (c *Chest) Item(slot int) *ChestSlotItem {
	for i := range c.Items {
		if c.Items[i].Slot == slot {
			return &c.Items[i]
		}
	}
	return nil
}

// Door is one openable door tile.
type Door struct {
	Coords Coords
	Open   bool
	Key    int // required key item id, 0 = unlocked
}
