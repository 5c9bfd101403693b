package world

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorokya/reoserv-sub000/internal/config"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/player"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

type fakeSession struct {
	id      int
	sends   []protocol.PacketFamily
	parties []protocol.PacketAction
	warps   []int
	closed  string
}

func (f *fakeSession) PlayerID() int { return f.id }

func (f *fakeSession) Send(_ protocol.PacketAction, family protocol.PacketFamily, _ []byte) {
	f.sends = append(f.sends, family)
}

func (f *fakeSession) RequestWarp(mapID int, _ model.Coords, _ bool, _ int) {
	f.warps = append(f.warps, mapID)
}

func (f *fakeSession) Close(reason string) { f.closed = reason }

func (f *fakeSession) PartyUpdate(action protocol.PacketAction, _ []byte) {
	f.parties = append(f.parties, action)
}

type fakeRepo struct {
	mu    sync.Mutex
	saved []string
}

func (f *fakeRepo) Save(_ context.Context, c *model.Character) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, c.Name)
	return nil
}

func newTestWorld(t *testing.T) (*Coordinator, *fakeRepo) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.MaxPlayers = 2
	cfg.Server.IPReconnectLimit = 100 * time.Millisecond
	repo := &fakeRepo{}
	return New(&cfg, NewSaver(repo)), repo
}

func addSession(w *Coordinator, id int, name string) *fakeSession {
	s := &fakeSession{id: id}
	w.AddSession(s)
	if name != "" {
		w.RegisterCharacter(name, "", id)
	}
	return s
}

func TestAdmitThrottlesReconnects(t *testing.T) {
	w, _ := newTestWorld(t)

	assert.True(t, w.Admit("10.0.0.1"))
	assert.False(t, w.Admit("10.0.0.1"), "immediate reconnect refused")
	assert.True(t, w.Admit("10.0.0.2"), "other addresses unaffected")
}

func TestAdmitEnforcesConnectionCap(t *testing.T) {
	w, _ := newTestWorld(t)
	w.cfg.Server.MaxConnections = 1

	require.True(t, w.Admit("10.0.0.1"))
	assert.False(t, w.Admit("10.0.0.2"))

	w.RemoveSession(0, "10.0.0.1")
	assert.True(t, w.Admit("10.0.0.2"))
}

func TestTryLoginGates(t *testing.T) {
	w, _ := newTestWorld(t)

	assert.Equal(t, player.LoginOK, w.TryLogin(7))
	assert.Equal(t, player.LoginAlreadyIn, w.TryLogin(7))
	assert.Equal(t, player.LoginOK, w.TryLogin(8))
	assert.Equal(t, player.LoginServerFull, w.TryLogin(9))

	w.Logout(7)
	assert.Equal(t, player.LoginOK, w.TryLogin(9))
}

func TestGlobalMessageSkipsSender(t *testing.T) {
	w, _ := newTestWorld(t)
	sender := addSession(w, 1, "ayla")
	other := addSession(w, 2, "bran")

	w.GlobalMessage(1, "ayla", "hello world")

	assert.Empty(t, sender.sends)
	assert.Equal(t, []protocol.PacketFamily{protocol.FamilyTalk}, other.sends)
}

func TestGuildMessageReachesGuildmatesOnly(t *testing.T) {
	w, _ := newTestWorld(t)
	sender := &fakeSession{id: 1}
	w.AddSession(sender)
	w.RegisterCharacter("ayla", "DRG", 1)
	mate := &fakeSession{id: 2}
	w.AddSession(mate)
	w.RegisterCharacter("bran", "DRG", 2)
	outsider := &fakeSession{id: 3}
	w.AddSession(outsider)
	w.RegisterCharacter("cora", "OWL", 3)

	w.GuildMessage(1, "DRG", "ayla", "raid at dusk")

	assert.Empty(t, sender.sends)
	assert.Equal(t, []protocol.PacketFamily{protocol.FamilyTalk}, mate.sends)
	assert.Empty(t, outsider.sends)

	w.UnregisterCharacter("bran")
	w.GuildMessage(1, "DRG", "ayla", "again")
	assert.Len(t, mate.sends, 1, "unregistered member no longer receives")
}

func TestTellMessageRouting(t *testing.T) {
	w, _ := newTestWorld(t)
	addSession(w, 1, "ayla")
	target := addSession(w, 2, "bran")

	assert.True(t, w.TellMessage("ayla", "Bran", "psst"))
	assert.Len(t, target.sends, 1)
	assert.False(t, w.TellMessage("ayla", "nobody", "psst"))
}

func TestPartyJoinLeaveDisband(t *testing.T) {
	w, _ := newTestWorld(t)
	host := addSession(w, 1, "ayla")
	joiner := addSession(w, 2, "bran")
	third := addSession(w, 3, "cora")

	// bran accepts ayla's invite, then cora does.
	w.partyAccept(2, partyRequestInvite, 1)
	w.partyAccept(3, partyRequestInvite, 1)

	party := w.PartyOf(1)
	require.NotNil(t, party)
	assert.Equal(t, []int{1, 2, 3}, party.Members)
	assert.NotEmpty(t, host.parties)
	assert.NotEmpty(t, joiner.parties)

	// The leader leaving promotes the next member.
	w.leaveParty(1)
	party = w.PartyOf(2)
	require.NotNil(t, party)
	assert.Equal(t, 2, party.Leader())
	assert.Nil(t, w.PartyOf(1))

	// Dropping to one member disbands.
	w.leaveParty(3)
	assert.Nil(t, w.PartyOf(2))
	assert.NotEmpty(t, third.parties)
}

func TestPartyMessageReachesOtherMembers(t *testing.T) {
	w, _ := newTestWorld(t)
	sender := addSession(w, 1, "ayla")
	mate := addSession(w, 2, "bran")
	outsider := addSession(w, 3, "cora")

	w.partyAccept(2, partyRequestInvite, 1)
	mate.parties = nil

	w.PartyMessage(1, "pull the left group")

	assert.Empty(t, sender.sends)
	assert.Equal(t, []protocol.PacketFamily{protocol.FamilyTalk}, mate.sends)
	assert.Empty(t, outsider.sends)
}

func TestPartyAcceptRespectsSizeAndExclusivity(t *testing.T) {
	w, _ := newTestWorld(t)
	w.cfg.Limits.MaxPartySize = 2
	for id := 1; id <= 4; id++ {
		addSession(w, id, "")
	}

	w.partyAccept(2, partyRequestInvite, 1)
	w.partyAccept(3, partyRequestInvite, 1)
	assert.Len(t, w.PartyOf(1).Members, 2, "full party rejects a third")

	// A party member cannot join a second party.
	w.partyAccept(2, partyRequestInvite, 4)
	assert.Nil(t, w.PartyOf(4))
}

func TestPartyKickOnlyByLeader(t *testing.T) {
	w, _ := newTestWorld(t)
	addSession(w, 1, "ayla")
	addSession(w, 2, "bran")
	addSession(w, 3, "cora")
	w.partyAccept(2, partyRequestInvite, 1)
	w.partyAccept(3, partyRequestInvite, 1)

	w.kickFromParty(2, 3)
	assert.NotNil(t, w.PartyOf(3), "non-leader cannot kick")

	w.kickFromParty(1, 3)
	assert.Nil(t, w.PartyOf(3))
}

func TestRemoveSessionLeavesParty(t *testing.T) {
	w, _ := newTestWorld(t)
	addSession(w, 1, "ayla")
	addSession(w, 2, "bran")
	w.partyAccept(2, partyRequestInvite, 1)
	require.NotNil(t, w.PartyOf(2))

	w.RemoveSession(2, "10.0.0.1")
	assert.Nil(t, w.PartyOf(2))
	assert.Nil(t, w.PartyOf(1), "two-member party disbands")
}

func TestAdminKickRequiresGuardian(t *testing.T) {
	w, _ := newTestWorld(t)
	target := addSession(w, 2, "bran")

	mortal := &model.Character{Name: "ayla", Admin: model.AdminPlayer}
	assert.Empty(t, w.AdminCommand(1, mortal, "kick bran"))
	assert.Empty(t, target.closed)

	guardian := &model.Character{Name: "ayla", Admin: model.AdminGuardian}
	reply := w.AdminCommand(1, guardian, "kick bran")
	assert.Contains(t, reply, "kicked")
	assert.Contains(t, target.closed, "kicked")
}

func TestAdminJailAndFree(t *testing.T) {
	w, _ := newTestWorld(t)
	target := addSession(w, 2, "bran")
	guardian := &model.Character{Name: "ayla", Admin: model.AdminGuardian}

	w.AdminCommand(1, guardian, "jail bran")
	require.Len(t, target.warps, 1)
	assert.Equal(t, w.cfg.Jail.Map, target.warps[0])

	w.AdminCommand(1, guardian, "free bran")
	require.Len(t, target.warps, 2)
	assert.Equal(t, w.cfg.Rescue.Map, target.warps[1])
}

func TestAdminUnknownCommand(t *testing.T) {
	w, _ := newTestWorld(t)
	gm := &model.Character{Name: "ayla", Admin: model.AdminHighGameMaster}
	assert.Contains(t, w.AdminCommand(1, gm, "frobnicate"), "unknown command")
}

func TestSaverWritesQueuedCharacters(t *testing.T) {
	repo := &fakeRepo{}
	s := NewSaver(repo)

	s.Enqueue(&model.Character{Name: "ayla"})
	s.Enqueue(&model.Character{Name: "bran"})
	s.Flush()

	assert.Equal(t, []string{"ayla", "bran"}, repo.saved)
}

func TestNotifyPartyExpReachesMember(t *testing.T) {
	w, _ := newTestWorld(t)
	member := addSession(w, 1, "ayla")

	w.NotifyPartyExp(1, 120)
	assert.Equal(t, []protocol.PacketAction{protocol.ActionTargetGroup}, member.parties)
}
