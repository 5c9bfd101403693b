package model

// EquipmentSlot is one of the 15 fixed paperdoll slots.
type EquipmentSlot int

const (
	SlotBoots EquipmentSlot = iota
	SlotAccessory
	SlotGloves
	SlotBelt
	SlotArmor
	SlotNecklace
	SlotHat
	SlotShield
	SlotWeapon
	SlotRing1
	SlotRing2
	SlotArmlet1
	SlotArmlet2
	SlotBracer1
	SlotBracer2

	EquipmentSlots = 15
)

func (s EquipmentSlot) String() string {
	names := [...]string{
		"boots", "accessory", "gloves", "belt", "armor", "necklace", "hat",
		"shield", "weapon", "ring", "ring2", "armlet", "armlet2", "bracer", "bracer2",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Paperdoll is the equipped-items view: item id per slot, 0 = empty.
type Paperdoll [EquipmentSlots]int

// Items returns the non-empty slots as item ids.
func (p *Paperdoll) Items() []int {
	out := make([]int, 0, EquipmentSlots)
	for _, id := range p {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}
