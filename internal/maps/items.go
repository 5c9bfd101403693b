package maps

import (
	"time"

	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

const (
	// dropDistanceMax bounds how far from themselves a player may drop or
	// pick up items.
	dropDistanceMax = 2
	// dropProtectDuration is the owner-only pickup window on player drops.
	dropProtectDuration = 5 * time.Second
)

func (m *Map) dropItem(c DropItem) {
	e := m.character(c.PlayerID)
	if e == nil || c.Amount <= 0 {
		return
	}
	char := e.char

	coords := c.Coords
	if (coords == model.Coords{}) {
		coords = char.Coords
	}
	if model.Distance(char.Coords, coords) > dropDistanceMax {
		return
	}
	if !m.emf.InBounds(coords.X, coords.Y) || !m.emf.Tile(coords.X, coords.Y).Walkable() {
		return
	}

	removed := char.RemoveItem(c.ItemID, c.Amount)
	if removed == 0 {
		return
	}
	char.CalculateStats(m.pub, m.formulas)

	item := m.dropGround(c.ItemID, removed, coords, c.PlayerID)

	e.conn.Send(protocol.ActionDrop, protocol.FamilyItem, itemDropPacket(
		c.ItemID, removed, char.InInventory(c.ItemID), item.MapInfo(),
		char.DisplayWeight(), char.DisplayMaxWeight(),
	))
	m.sendInRange(coords, c.PlayerID, protocol.ActionAdd, protocol.FamilyItem, itemAddPacket(item.MapInfo()))
}

func (m *Map) pickUpItem(c PickUpItem) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	char := e.char
	item := m.items[c.ItemIndex]
	if item == nil {
		return
	}
	if model.Distance(char.Coords, item.Coords) > dropDistanceMax {
		return
	}
	if item.ProtectedFrom(c.PlayerID, dropProtectDuration, m.now()) {
		return
	}

	added := char.AddItem(item.ID, item.Amount, m.cfg.Limits.MaxItem)
	if added == 0 {
		return
	}
	char.CalculateStats(m.pub, m.formulas)

	fully := added == item.Amount
	if fully {
		delete(m.items, item.Index)
	} else {
		item.Amount -= added
	}

	e.conn.Send(protocol.ActionGet, protocol.FamilyItem, itemGetPacket(
		c.ItemIndex, item.ID, added, char.DisplayWeight(), char.DisplayMaxWeight(),
	))
	if fully {
		m.sendInRange(item.Coords, c.PlayerID, protocol.ActionRemove, protocol.FamilyItem, itemRemovePacket(c.ItemIndex))
	}
}

func (m *Map) junkItem(c JunkItem) {
	e := m.character(c.PlayerID)
	if e == nil || c.Amount <= 0 {
		return
	}
	char := e.char

	removed := char.RemoveItem(c.ItemID, c.Amount)
	if removed == 0 {
		return
	}
	char.CalculateStats(m.pub, m.formulas)

	e.conn.Send(protocol.ActionJunk, protocol.FamilyItem, itemJunkPacket(
		c.ItemID, removed, char.InInventory(c.ItemID),
		char.DisplayWeight(), char.DisplayMaxWeight(),
	))
}

// chestAt finds the chest for a tile, if the tile is a chest.
func (m *Map) chestAt(coords model.Coords) *model.Chest {
	if m.emf.Tile(coords.X, coords.Y) != eodata.TileChest {
		return nil
	}
	for _, chest := range m.chests {
		if chest.Coords == coords {
			return chest
		}
	}
	return nil
}

// canUseChest checks adjacency and the key requirement.
func (m *Map) canUseChest(e *entry, chest *model.Chest) bool {
	if model.Distance(e.char.Coords, chest.Coords) > 1 {
		return false
	}
	if chest.Key != 0 && e.char.InInventory(chest.Key) == 0 && e.char.Admin == model.AdminPlayer {
		return false
	}
	return true
}

func (m *Map) openChest(c OpenChest) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	chest := m.chestAt(c.Coords)
	if chest == nil || !m.canUseChest(e, chest) {
		return
	}
	e.conn.Send(protocol.ActionOpen, protocol.FamilyChest, chestOpenPacket(chest.Coords, chest.Items))
}

func (m *Map) takeChestItem(c TakeChestItem) {
	e := m.character(c.PlayerID)
	if e == nil {
		return
	}
	chest := m.chestAt(c.Coords)
	if chest == nil || !m.canUseChest(e, chest) {
		return
	}

	var taken *model.ChestSlotItem
	for i := range chest.Items {
		if chest.Items[i].ItemID == c.ItemID {
			taken = &chest.Items[i]
			break
		}
	}
	if taken == nil {
		return
	}

	char := e.char
	added := char.AddItem(taken.ItemID, taken.Amount, m.cfg.Limits.MaxItem)
	if added == 0 {
		return
	}
	char.CalculateStats(m.pub, m.formulas)

	slot := taken.Slot
	if added == taken.Amount {
		for i := range chest.Items {
			if &chest.Items[i] == taken {
				chest.Items = append(chest.Items[:i], chest.Items[i+1:]...)
				break
			}
		}
		// Start the refill clock for every spawn rule on this slot.
		for i := range chest.Spawns {
			if chest.Spawns[i].Slot == slot {
				chest.Spawns[i].LastTaken = m.now()
			}
		}
	} else {
		taken.Amount -= added
	}

	e.conn.Send(protocol.ActionGet, protocol.FamilyChest, chestGetPacket(
		c.ItemID, added, char.DisplayWeight(), char.DisplayMaxWeight(), chest.Items,
	))
	m.sendInRange(chest.Coords, c.PlayerID, protocol.ActionAgree, protocol.FamilyChest, chestAgreePacket(chest.Items))
}

func (m *Map) addChestItem(c AddChestItem) {
	e := m.character(c.PlayerID)
	if e == nil || c.Amount <= 0 {
		return
	}
	chest := m.chestAt(c.Coords)
	if chest == nil || !m.canUseChest(e, chest) {
		return
	}

	// Stacks merge onto an existing slot; otherwise the item takes the
	// first free slot, and a full chest rejects the deposit.
	slot := -1
	for i := range chest.Items {
		if chest.Items[i].ItemID == c.ItemID {
			slot = chest.Items[i].Slot
			break
		}
	}
	if slot == -1 {
		used := make(map[int]bool)
		for _, it := range chest.Items {
			used[it.Slot] = true
		}
		for s := 0; s < m.cfg.Chest.Slots; s++ {
			if !used[s] {
				slot = s
				break
			}
		}
	}
	if slot == -1 {
		return
	}

	char := e.char
	removed := char.RemoveItem(c.ItemID, c.Amount)
	if removed == 0 {
		return
	}
	char.CalculateStats(m.pub, m.formulas)

	if existing := chest.Item(slot); existing != nil && existing.ItemID == c.ItemID {
		existing.Amount += removed
	} else {
		chest.Items = append(chest.Items, model.ChestSlotItem{Slot: slot, ItemID: c.ItemID, Amount: removed})
	}

	e.conn.Send(protocol.ActionGet, protocol.FamilyChest, chestGetPacket(
		c.ItemID, 0, char.DisplayWeight(), char.DisplayMaxWeight(), chest.Items,
	))
	m.sendInRange(chest.Coords, c.PlayerID, protocol.ActionAgree, protocol.FamilyChest, chestAgreePacket(chest.Items))
}
