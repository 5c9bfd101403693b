package model

// Party is a world-wide player group. The first member is the leader.
// Membership is exclusive: a player belongs to at most one party.
type Party struct {
	Members []int // player ids, leader first
}

// Leader returns the leader's player id, 0 for an empty party.
func (p *Party) Leader() int {
	if len(p.Members) == 0 {
		return 0
	}
	return p.Members[0]
}

// Contains reports membership.
func (p *Party) Contains(playerID int) bool {
	for _, id := range p.Members {
		if id == playerID {
			return true
		}
	}
	return false
}

// Remove drops a member, preserving order. Returns true if removed.
func (p *Party) Remove(playerID int) bool {
	for i, id := range p.Members {
		if id == playerID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			return true
		}
	}
	return false
}

// WarpSession is the ephemeral record connecting a warp request to its
// eventual accept. The session id is a single-use nonce.
type WarpSession struct {
	MapID     int
	Coords    Coords
	Local     bool // same-map reposition vs map switch
	Animation int  // 0 = none
	SessionID int
}

// WarpAnimation values carried on enter/leave broadcasts.
const (
	WarpAnimationNone   = 0
	WarpAnimationScroll = 1
	WarpAnimationAdmin  = 2
)
