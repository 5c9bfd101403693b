package model

// Opponent tracks one player's engagement with an NPC: cumulative damage for
// drop/exp priority and how long they have been out of combat.
type Opponent struct {
	PlayerID    int
	DamageDealt int
	BoredTicks  int
}

// Npc is one live NPC on a map. Owned exclusively by the map actor.
type Npc struct {
	Index      int // map-local, dense
	ID         int // species
	SpawnIndex int // index into the map's spawn list
	Coords     Coords
	Direction  Direction

	HP    int
	MaxHP int
	Alive bool

	Opponents []Opponent

	ActTicks    int
	TalkTicks   int
	SpawnTicks  int
	WalkIdleFor int

	Boss  bool
	Child bool
}

// Opponent returns the engagement record for a player, if present.
func (n *Npc) Opponent(playerID int) *Opponent {
	for i := range n.Opponents {
		if n.Opponents[i].PlayerID == playerID {
			return &n.Opponents[i]
		}
	}
	return nil
}

// RecordDamage notes damage dealt by a player and resets their bored timer.
func (n *Npc) RecordDamage(playerID, damage int) {
	if o := n.Opponent(playerID); o != nil {
		o.DamageDealt += damage
		o.BoredTicks = 0
		return
	}
	n.Opponents = append(n.Opponents, Opponent{PlayerID: playerID, DamageDealt: damage})
}

// ForgetOpponent drops a player from the opponent list.
func (n *Npc) ForgetOpponent(playerID int) {
	for i := range n.Opponents {
		if n.Opponents[i].PlayerID == playerID {
			n.Opponents = append(n.Opponents[:i], n.Opponents[i+1:]...)
			return
		}
	}
}

// TopAttacker returns the player who dealt the most damage, 0 if none.
func (n *Npc) TopAttacker() int {
	best := 0
	bestDamage := -1
	for _, o := range n.Opponents {
		if o.DamageDealt > bestDamage {
			best = o.PlayerID
			bestDamage = o.DamageDealt
		}
	}
	return best
}

// Die marks the NPC dead and clears combat state. Respawn is scheduled by
// the map's tick using the spawn entry's timer.
func (n *Npc) Die(spawnTicks int) {
	n.Alive = false
	n.HP = 0
	n.Opponents = nil
	n.SpawnTicks = spawnTicks
}
