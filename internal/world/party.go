package world

import (
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Party request kinds on the wire.
const (
	partyRequestJoin   = 0
	partyRequestInvite = 1
)

// PartyCommand dispatches one Party-family packet from a session.
func (w *Coordinator) PartyCommand(playerID int, action protocol.PacketAction, r *protocol.Reader) {
	switch action {
	case protocol.ActionRequest:
		kind := r.GetChar()
		targetID := r.GetShort()
		w.partyRequest(playerID, kind, targetID)
	case protocol.ActionAccept:
		kind := r.GetChar()
		otherID := r.GetShort()
		w.partyAccept(playerID, kind, otherID)
	case protocol.ActionRemove:
		targetID := r.GetShort()
		if targetID == playerID {
			w.leaveParty(playerID)
		} else {
			w.kickFromParty(playerID, targetID)
		}
	case protocol.ActionTake:
		w.sendPartyList(playerID)
	}
}

// partyRequest forwards an invite or join request to the target, who answers
// with Party/Accept.
func (w *Coordinator) partyRequest(playerID, kind, targetID int) {
	w.mu.Lock()
	target, ok := w.sessions[targetID]
	w.mu.Unlock()
	if !ok {
		return
	}

	name := ""
	if char, found := w.charactersByID()[playerID]; found {
		name = char.Name
	}
	body := protocol.NewWriter().
		AddChar(kind).
		AddShort(playerID).
		AddString(name).
		Bytes()
	target.PartyUpdate(protocol.ActionRequest, body)
}

// partyAccept seals a request: for an invite the accepter joins the
// inviter's party, for a join request the other way around.
func (w *Coordinator) partyAccept(playerID, kind, otherID int) {
	joiner, host := playerID, otherID
	if kind == partyRequestJoin {
		joiner, host = otherID, playerID
	}

	w.mu.Lock()
	if w.partyOfLocked(joiner) != nil {
		w.mu.Unlock()
		return
	}
	party := w.partyOfLocked(host)
	if party == nil {
		party = &model.Party{Members: []int{host}}
		w.parties = append(w.parties, party)
	}
	if len(party.Members) >= w.cfg.Limits.MaxPartySize {
		w.mu.Unlock()
		return
	}
	party.Members = append(party.Members, joiner)
	members := append([]int(nil), party.Members...)
	w.mu.Unlock()

	w.broadcastPartyList(members)
}

// leaveParty removes a player from their party, disbanding it below two
// members. Leadership passes to the next member.
func (w *Coordinator) leaveParty(playerID int) {
	w.mu.Lock()
	party := w.partyOfLocked(playerID)
	if party == nil {
		w.mu.Unlock()
		return
	}
	party.Remove(playerID)
	remaining := append([]int(nil), party.Members...)
	if len(remaining) < 2 {
		w.dropPartyLocked(party)
		remaining = nil
	}
	w.mu.Unlock()

	body := protocol.NewWriter().AddShort(playerID).Bytes()
	for _, id := range remaining {
		w.mu.Lock()
		s, ok := w.sessions[id]
		w.mu.Unlock()
		if ok {
			s.PartyUpdate(protocol.ActionRemove, body)
		}
	}
}

// kickFromParty is the leader removing someone else.
func (w *Coordinator) kickFromParty(leaderID, targetID int) {
	w.mu.Lock()
	party := w.partyOfLocked(leaderID)
	if party == nil || party.Leader() != leaderID || !party.Contains(targetID) {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	w.leaveParty(targetID)
}

// PartyMessage relays party-tab chat to the sender's other party members.
// The body carries the sender id, the client resolves the name itself.
func (w *Coordinator) PartyMessage(senderID int, message string) {
	w.mu.Lock()
	party := w.partyOfLocked(senderID)
	if party == nil {
		w.mu.Unlock()
		return
	}
	var members []Session
	for _, id := range party.Members {
		if id == senderID {
			continue
		}
		if s, ok := w.sessions[id]; ok {
			members = append(members, s)
		}
	}
	w.mu.Unlock()

	body := protocol.NewWriter().
		AddShort(senderID).
		AddString(message).
		Bytes()
	for _, s := range members {
		s.Send(protocol.ActionOpen, protocol.FamilyTalk, body)
	}
}

// PartyMembers returns the player's party, leader first; nil when solo.
func (w *Coordinator) PartyMembers(playerID int) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	party := w.partyOfLocked(playerID)
	if party == nil {
		return nil
	}
	return append([]int(nil), party.Members...)
}

// NotifyPartyExp pushes a shared-kill experience gain to the member's party
// panel. The map actor has already granted the experience itself.
func (w *Coordinator) NotifyPartyExp(playerID, exp int) {
	w.mu.Lock()
	s, ok := w.sessions[playerID]
	w.mu.Unlock()
	if !ok {
		return
	}
	body := protocol.NewWriter().
		AddShort(playerID).
		AddInt(exp).
		Bytes()
	s.PartyUpdate(protocol.ActionTargetGroup, body)
}

// sendPartyList refreshes one member's party panel.
func (w *Coordinator) sendPartyList(playerID int) {
	members := w.PartyMembers(playerID)
	if members == nil {
		return
	}
	w.mu.Lock()
	s, ok := w.sessions[playerID]
	w.mu.Unlock()
	if ok {
		s.PartyUpdate(protocol.ActionList, w.partyListBody(members))
	}
}

// broadcastPartyList refreshes every member's panel after a roster change.
func (w *Coordinator) broadcastPartyList(members []int) {
	body := w.partyListBody(members)
	for _, id := range members {
		w.mu.Lock()
		s, ok := w.sessions[id]
		w.mu.Unlock()
		if ok {
			s.PartyUpdate(protocol.ActionCreate, body)
		}
	}
}

// partyListBody serializes the roster with live level and hp detail pulled
// from the map snapshots.
func (w *Coordinator) partyListBody(members []int) []byte {
	chars := w.charactersByID()
	leader := members[0]

	wr := protocol.NewWriter()
	for _, id := range members {
		wr.AddShort(id)
		wr.AddChar(boolChar(id == leader))
		if char, ok := chars[id]; ok {
			wr.AddChar(char.Level)
			wr.AddChar(char.HPPercent())
			wr.AddBreakString(char.Name)
		} else {
			wr.AddChar(0)
			wr.AddChar(0)
			wr.AddBreakString("")
		}
	}
	return wr.Bytes()
}

// partyOfLocked finds the player's party. Caller holds the mutex.
func (w *Coordinator) partyOfLocked(playerID int) *model.Party {
	for _, p := range w.parties {
		if p.Contains(playerID) {
			return p
		}
	}
	return nil
}

// dropPartyLocked removes an (about to be) empty party. Caller holds the
// mutex.
func (w *Coordinator) dropPartyLocked(party *model.Party) {
	for i, p := range w.parties {
		if p == party {
			w.parties = append(w.parties[:i], w.parties[i+1:]...)
			return
		}
	}
}

func boolChar(b bool) int {
	if b {
		return 1
	}
	return 0
}

// PartyOf exposes the player's party for tests and admin tooling.
func (w *Coordinator) PartyOf(playerID int) *model.Party {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.partyOfLocked(playerID)
}
