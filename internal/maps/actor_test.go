package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorokya/reoserv-sub000/internal/config"
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

type sentPacket struct {
	Action protocol.PacketAction
	Family protocol.PacketFamily
	Body   []byte
}

type warpRequest struct {
	MapID     int
	Coords    model.Coords
	Local     bool
	Animation int
}

// fakeConn records everything the map sends to one player.
type fakeConn struct {
	id      int
	packets []sentPacket
	warps   []warpRequest
}

func (f *fakeConn) PlayerID() int { return f.id }

func (f *fakeConn) Send(action protocol.PacketAction, family protocol.PacketFamily, body []byte) {
	f.packets = append(f.packets, sentPacket{Action: action, Family: family, Body: body})
}

func (f *fakeConn) RequestWarp(mapID int, coords model.Coords, local bool, animation int) {
	f.warps = append(f.warps, warpRequest{MapID: mapID, Coords: coords, Local: local, Animation: animation})
}

func (f *fakeConn) Close(string) {}

func (f *fakeConn) count(action protocol.PacketAction, family protocol.PacketFamily) int {
	n := 0
	for _, p := range f.packets {
		if p.Action == action && p.Family == family {
			n++
		}
	}
	return n
}

func (f *fakeConn) reset() {
	f.packets = nil
	f.warps = nil
}

// fakeWorld stubs the party lookups.
type fakeWorld struct {
	parties map[int][]int
	expSeen map[int]int
}

func (f *fakeWorld) PartyMembers(playerID int) []int { return f.parties[playerID] }

func (f *fakeWorld) NotifyPartyExp(playerID, exp int) {
	if f.expSeen == nil {
		f.expSeen = make(map[int]int)
	}
	f.expSeen[playerID] += exp
}

func testPub() *eodata.Pub {
	return &eodata.Pub{
		Items: []eodata.ItemRecord{
			{ID: 1, Name: "Gold", Weight: 0},
			{ID: 2, Name: "Dagger", Type: eodata.ItemWeapon, Weight: 3, MinDamage: 10, MaxDamage: 10},
			{ID: 5, Name: "Rusty Key", Type: eodata.ItemKey},
		},
		Npcs: []eodata.NpcRecord{
			{ID: 10, Name: "Rat", Type: eodata.NpcPassive, HP: 20, Experience: 50},
			{ID: 11, Name: "Priest", Type: eodata.NpcPriest, HP: 100},
		},
		Classes: []eodata.ClassRecord{{ID: 1, Name: "Peasant"}},
		Drops: map[int][]eodata.DropRecord{
			10: {{ItemID: 1, Min: 3, Max: 3, Rate: 64000}},
		},
		Talk: map[int]eodata.TalkRecord{},
	}
}

func testEmf() *eodata.Emf {
	e := eodata.NewEmf(20, 20)
	e.RelogX = 2
	e.RelogY = 2
	return e
}

func newTestMap(t *testing.T) (*Map, *fakeWorld) {
	t.Helper()
	cfg := config.Default()
	cfg.Npcs.InstantSpawn = true
	// Deterministic combat: every swing lands.
	engine, err := formula.New(formula.DefaultFormulas + "\nfunction hit_rate(c) return 100 end\n")
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	world := &fakeWorld{parties: make(map[int][]int)}
	m := NewMap(5, testEmf(), &cfg, testPub(), eodata.NewExpTable(), engine, world)
	return m, world
}

func addPlayer(t *testing.T, m *Map, id int, coords model.Coords) (*model.Character, *fakeConn) {
	t.Helper()
	char := &model.Character{
		ID:       id,
		PlayerID: id,
		Name:     testName(id),
		Level:    1,
		Class:    1,
		BaseStr:  10,
		BaseCon:  10,
		Coords:   coords,
	}
	char.CalculateStats(m.pub, m.formulas)
	char.HP = char.MaxHP
	char.TP = char.MaxTP

	conn := &fakeConn{id: id}
	m.enter(Enter{Character: char, Conn: conn})
	conn.reset()
	return char, conn
}

func testName(id int) string {
	names := []string{"", "ayla", "bran", "cora", "dain"}
	if id < len(names) {
		return names[id]
	}
	return "extra"
}

func TestEnterBroadcastsToPlayersInRange(t *testing.T) {
	m, _ := newTestMap(t)
	_, near := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	_, far := addPlayer(t, m, 2, model.Coords{X: 19, Y: 19})
	near.reset()
	far.reset()

	addPlayer(t, m, 3, model.Coords{X: 6, Y: 5})

	assert.Equal(t, 1, near.count(protocol.ActionAgree, protocol.FamilyPlayers))
	assert.Zero(t, far.count(protocol.ActionAgree, protocol.FamilyPlayers))
}

func TestLeaveReturnsCharacterAndAnnounces(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	_, witness := addPlayer(t, m, 2, model.Coords{X: 6, Y: 5})
	witness.reset()

	reply := make(chan *model.Character, 1)
	m.leave(Leave{PlayerID: 1, Reply: reply})

	got := <-reply
	require.NotNil(t, got)
	assert.Equal(t, char.Name, got.Name)
	assert.Nil(t, m.character(1))
	assert.Equal(t, 1, witness.count(protocol.ActionRemove, protocol.FamilyAvatar))
}

func TestLeaveUnknownPlayerRepliesNil(t *testing.T) {
	m, _ := newTestMap(t)
	reply := make(chan *model.Character, 1)
	m.leave(Leave{PlayerID: 99, Reply: reply})
	assert.Nil(t, <-reply)
}

func TestWalkMovesAndReplays(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	_, witness := addPlayer(t, m, 2, model.Coords{X: 7, Y: 5})
	witness.reset()

	m.walk(Walk{PlayerID: 1, Direction: model.DirectionRight, Coords: model.Coords{X: 6, Y: 5}})

	assert.Equal(t, model.Coords{X: 6, Y: 5}, char.Coords)
	assert.Equal(t, 1, witness.count(protocol.ActionPlayer, protocol.FamilyWalk))
}

func TestWalkRejectsWallAndOccupiedTiles(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	addPlayer(t, m, 2, model.Coords{X: 5, Y: 6})
	m.emf.SetTile(6, 5, eodata.TileWall)

	m.walk(Walk{PlayerID: 1, Direction: model.DirectionRight})
	assert.Equal(t, model.Coords{X: 5, Y: 5}, char.Coords, "wall must block")

	m.walk(Walk{PlayerID: 1, Direction: model.DirectionDown})
	assert.Equal(t, model.Coords{X: 5, Y: 5}, char.Coords, "occupied tile must block")
}

func TestWalkOntoWarpTileStartsWarpInsteadOfMoving(t *testing.T) {
	m, _ := newTestMap(t)
	char, conn := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	m.emf.SetWarp(6, 5, eodata.WarpSpec{DestinationMap: 7, DestinationX: 3, DestinationY: 4})

	m.walk(Walk{PlayerID: 1, Direction: model.DirectionRight})

	assert.Equal(t, model.Coords{X: 5, Y: 5}, char.Coords, "warp step must not move the character")
	require.Len(t, conn.warps, 1)
	assert.Equal(t, 7, conn.warps[0].MapID)
	assert.Equal(t, model.Coords{X: 3, Y: 4}, conn.warps[0].Coords)
	assert.False(t, conn.warps[0].Local)
}

func TestWalkWarpLevelRequirement(t *testing.T) {
	m, _ := newTestMap(t)
	char, conn := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	m.emf.SetWarp(6, 5, eodata.WarpSpec{DestinationMap: 7, DestinationX: 3, DestinationY: 4, LevelRequired: 50})

	m.walk(Walk{PlayerID: 1, Direction: model.DirectionRight})
	assert.Empty(t, conn.warps, "level gate must hold")
	assert.Equal(t, model.Coords{X: 5, Y: 5}, char.Coords)
}

func TestFaceTurnsInPlace(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	_, witness := addPlayer(t, m, 2, model.Coords{X: 6, Y: 5})
	witness.reset()

	m.face(Face{PlayerID: 1, Direction: model.DirectionUp})

	assert.Equal(t, model.DirectionUp, char.Direction)
	assert.Equal(t, 1, witness.count(protocol.ActionPlayer, protocol.FamilyFace))
}

func TestSitFloorAndStand(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})

	m.sit(Sit{PlayerID: 1})
	assert.Equal(t, model.SitFloor, char.SitState)

	// Sitting characters cannot walk.
	m.walk(Walk{PlayerID: 1, Direction: model.DirectionRight})
	assert.Equal(t, model.Coords{X: 5, Y: 5}, char.Coords)

	m.stand(Stand{PlayerID: 1})
	assert.Equal(t, model.SitStand, char.SitState)
}

func TestChairSitRequiresMatchingApproach(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	m.emf.SetTile(5, 4, eodata.TileChairDown)

	// Approaching from below means sitting facing down: valid.
	m.sit(Sit{PlayerID: 1, Coords: model.Coords{X: 5, Y: 4}, Chair: true})
	assert.Equal(t, model.SitChair, char.SitState)
	assert.Equal(t, model.Coords{X: 5, Y: 4}, char.Coords)
	assert.Equal(t, model.DirectionDown, char.Direction)
}

func TestDoorRequiresKey(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	coords := model.Coords{X: 6, Y: 5}
	m.doors[coords] = &model.Door{Coords: coords, Key: 5}

	m.openDoor(OpenDoor{PlayerID: 1, Coords: coords})
	assert.False(t, m.doors[coords].Open, "door must stay shut without the key")

	char.AddItem(5, 1, 10_000_000)
	m.openDoor(OpenDoor{PlayerID: 1, Coords: coords})
	assert.True(t, m.doors[coords].Open)
}

func TestOpenedDoorClosesAfterDelay(t *testing.T) {
	m, _ := newTestMap(t)
	addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	coords := model.Coords{X: 6, Y: 5}
	m.doors[coords] = &model.Door{Coords: coords}

	m.openDoor(OpenDoor{PlayerID: 1, Coords: coords})
	require.True(t, m.doors[coords].Open)

	for i := 0; i < doorCloseDelayTicks; i++ {
		m.tickDoors()
	}
	assert.False(t, m.doors[coords].Open)
}

func TestDropAndPickUpItem(t *testing.T) {
	m, _ := newTestMap(t)
	char, conn := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	char.AddItem(1, 100, 10_000_000)

	m.dropItem(DropItem{PlayerID: 1, ItemID: 1, Amount: 40, Coords: model.Coords{X: 5, Y: 6}})
	assert.Equal(t, 60, char.InInventory(1))
	require.Len(t, m.items, 1)
	assert.Equal(t, 1, conn.count(protocol.ActionDrop, protocol.FamilyItem))

	var index int
	for i := range m.items {
		index = i
	}
	m.pickUpItem(PickUpItem{PlayerID: 1, ItemIndex: index})
	assert.Equal(t, 100, char.InInventory(1))
	assert.Empty(t, m.items)
}

func TestPickUpRespectsOwnerProtection(t *testing.T) {
	m, _ := newTestMap(t)
	_, _ = addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	thief, _ := addPlayer(t, m, 2, model.Coords{X: 5, Y: 7})

	item := m.dropGround(1, 10, model.Coords{X: 5, Y: 6}, 1)

	m.pickUpItem(PickUpItem{PlayerID: 2, ItemIndex: item.Index})
	assert.Zero(t, thief.InInventory(1), "protection window must exclude others")

	// After the window the stack is free for all.
	m.now = func() time.Time { return item.DroppedAt.Add(dropProtectDuration + time.Second) }
	m.pickUpItem(PickUpItem{PlayerID: 2, ItemIndex: item.Index})
	assert.Equal(t, 10, thief.InInventory(1))
}

func TestGroundItemIndicesAreRecycled(t *testing.T) {
	m, _ := newTestMap(t)
	a := m.dropGround(1, 1, model.Coords{X: 1, Y: 1}, 0)
	b := m.dropGround(1, 1, model.Coords{X: 2, Y: 1}, 0)
	require.Equal(t, 1, a.Index)
	require.Equal(t, 2, b.Index)

	delete(m.items, a.Index)
	c := m.dropGround(1, 1, model.Coords{X: 3, Y: 1}, 0)
	assert.Equal(t, 1, c.Index, "freed index must be reused")
}

func TestAttackKillPaysDropAndExperience(t *testing.T) {
	m, _ := newTestMap(t)
	char, conn := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	char.Paperdoll[model.SlotWeapon] = 2
	char.CalculateStats(m.pub, m.formulas)

	npc := &model.Npc{Index: 100, ID: 10, Coords: model.Coords{X: 6, Y: 5}, HP: 1, MaxHP: 20, Alive: true}
	m.npcs[npc.Index] = npc

	before := char.Experience
	m.attack(Attack{PlayerID: 1, Direction: model.DirectionRight})

	assert.False(t, npc.Alive)
	assert.Greater(t, char.Experience, before)
	require.Len(t, m.items, 1, "rate 64000 of 64000 must always drop")
	for _, item := range m.items {
		assert.Equal(t, 1, item.ID)
		assert.Equal(t, 3, item.Amount)
		assert.Equal(t, 1, item.OwnerID)
	}
	assert.Equal(t, 1, conn.count(protocol.ActionSpec, protocol.FamilyNPC)+conn.count(protocol.ActionAccept, protocol.FamilyNPC))
}

func TestPartyKillSplitsExperience(t *testing.T) {
	m, world := newTestMap(t)
	killer, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	buddy, _ := addPlayer(t, m, 2, model.Coords{X: 8, Y: 5})
	killer.Paperdoll[model.SlotWeapon] = 2
	killer.CalculateStats(m.pub, m.formulas)
	world.parties[1] = []int{1, 2}

	npc := &model.Npc{Index: 100, ID: 10, Coords: model.Coords{X: 6, Y: 5}, HP: 1, MaxHP: 20, Alive: true}
	m.npcs[npc.Index] = npc

	m.attack(Attack{PlayerID: 1, Direction: model.DirectionRight})

	// party_exp_share(2, 50) = floor(50*7/10) = 35 each.
	assert.Equal(t, int64(35), killer.Experience)
	assert.Equal(t, int64(35), buddy.Experience)
	assert.Equal(t, 35, world.expSeen[1])
	assert.Equal(t, 35, world.expSeen[2])
}

func TestNpcRespawnsAfterTimer(t *testing.T) {
	m, _ := newTestMap(t)
	addPlayer(t, m, 1, model.Coords{X: 1, Y: 1})

	m.emf.NpcSpawns = append(m.emf.NpcSpawns, eodata.NpcSpawn{X: 10, Y: 10, ID: 10, SpawnTime: 3, Amount: 1})
	npc := &model.Npc{Index: 100, ID: 10, SpawnIndex: 0, Coords: model.Coords{X: 10, Y: 10}, HP: 0, MaxHP: 20}
	npc.Die(3)
	m.npcs[npc.Index] = npc

	for i := 0; i < 3; i++ {
		assert.False(t, npc.Alive)
		m.tick()
	}
	assert.True(t, npc.Alive)
	assert.Equal(t, 20, npc.HP)
	assert.LessOrEqual(t, model.Distance(npc.Coords, model.Coords{X: 10, Y: 10}), respawnSpread)
}

func TestHPDrainNeverKills(t *testing.T) {
	m, _ := newTestMap(t)
	m.emf.Effect = eodata.EffectHPDrain
	char, conn := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	char.HP = 1

	m.applyMapEffects()

	assert.Equal(t, 1, char.HP, "drain must leave at least one hp")
	assert.Equal(t, 1, conn.count(protocol.ActionTargetOther, protocol.FamilyEffect))
}

func TestHPDrainReportsOthersInRange(t *testing.T) {
	m, _ := newTestMap(t)
	m.emf.Effect = eodata.EffectHPDrain
	a, connA := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	b, _ := addPlayer(t, m, 2, model.Coords{X: 6, Y: 5})

	m.applyMapEffects()

	assert.Less(t, a.HP, a.MaxHP)
	assert.Less(t, b.HP, b.MaxHP)
	require.Equal(t, 1, connA.count(protocol.ActionTargetOther, protocol.FamilyEffect))
	// A's packet must carry B's damage block after A's own vitals.
	var body []byte
	for _, p := range connA.packets {
		if p.Action == protocol.ActionTargetOther && p.Family == protocol.FamilyEffect {
			body = p.Body
		}
	}
	r := protocol.NewReader(body)
	r.GetShort() // own damage
	r.GetShort() // hp
	r.GetShort() // max hp
	assert.Equal(t, 2, r.GetShort(), "first other block must name player 2")
}

func TestChestTakeAndRefill(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	coords := model.Coords{X: 5, Y: 6}
	m.emf.SetTile(coords.X, coords.Y, eodata.TileChest)

	chest := &model.Chest{
		Coords: coords,
		Items:  []model.ChestSlotItem{{Slot: 0, ItemID: 1, Amount: 25}},
		Spawns: []model.ChestSpawn{{Slot: 0, ItemID: 1, Amount: 25, SpawnTime: time.Minute}},
	}
	m.chests = append(m.chests, chest)

	m.takeChestItem(TakeChestItem{PlayerID: 1, Coords: coords, ItemID: 1})
	assert.Equal(t, 25, char.InInventory(1))
	assert.Empty(t, chest.Items)

	// Before the timer the slot stays empty; after it refills.
	m.tickChests()
	assert.Empty(t, chest.Items)

	base := m.now()
	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	m.tickChests()
	require.Len(t, chest.Items, 1)
	assert.Equal(t, 25, chest.Items[0].Amount)
}

func TestSpellHealOnFullHPStillCostsTP(t *testing.T) {
	m, _ := newTestMap(t)
	m.pub.Spells = append(m.pub.Spells, eodata.SpellRecord{
		ID: 1, Type: eodata.SpellHeal, TPCost: 5, HP: 10,
	})
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	char.Spells = append(char.Spells, model.Spell{ID: 1})
	char.HP = char.MaxHP
	tpBefore := char.TP

	m.castSpellRequest(CastSpellRequest{PlayerID: 1, SpellID: 1})
	m.castSpellSelf(CastSpellSelf{PlayerID: 1, SpellID: 1})

	assert.Equal(t, char.MaxHP, char.HP)
	assert.Equal(t, tpBefore-5, char.TP, "a wasted heal still burns tp")
}

func TestSpellCompletionOutsideChantWindowIsDropped(t *testing.T) {
	m, _ := newTestMap(t)
	m.pub.Spells = append(m.pub.Spells, eodata.SpellRecord{
		ID: 1, Type: eodata.SpellHeal, TPCost: 5, HP: 10, CastTime: 4,
	})
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	char.Spells = append(char.Spells, model.Spell{ID: 1})
	char.HP = 1
	tpBefore := char.TP

	base := time.Now()
	m.now = func() time.Time { return base }
	m.castSpellRequest(CastSpellRequest{PlayerID: 1, SpellID: 1})

	// Instant completion: far below 4×47ms.
	m.castSpellSelf(CastSpellSelf{PlayerID: 1, SpellID: 1})
	assert.Equal(t, 1, char.HP)
	assert.Equal(t, tpBefore, char.TP, "a rejected cast must not burn tp")

	// Retry within the window heals.
	m.castSpellRequest(CastSpellRequest{PlayerID: 1, SpellID: 1})
	m.now = func() time.Time { return base.Add(4 * 48 * time.Millisecond) }
	m.castSpellSelf(CastSpellSelf{PlayerID: 1, SpellID: 1})
	assert.Equal(t, 11, char.HP)
	assert.Equal(t, tpBefore-5, char.TP)
}

func TestWeddingCeremonyMarriesCouple(t *testing.T) {
	m, _ := newTestMap(t)
	groom, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	bride, _ := addPlayer(t, m, 2, model.Coords{X: 6, Y: 5})
	groom.Fiance = bride.Name
	bride.Fiance = groom.Name
	ring := m.cfg.Marriage.RingItemID
	groom.AddItem(ring, 1, 10_000_000)
	bride.AddItem(ring, 1, 10_000_000)

	priest := &model.Npc{Index: 100, ID: 11, Coords: model.Coords{X: 5, Y: 4}, HP: 100, MaxHP: 100, Alive: true}
	m.npcs[priest.Index] = priest

	m.requestWedding(RequestWedding{PlayerID: 1, NpcIndex: 100, PartnerName: bride.Name})
	require.Equal(t, weddingPending, m.wedding.phase)

	advance := func(phase weddingPhase) {
		t.Helper()
		for i := 0; i < 1000 && m.wedding.phase != phase; i++ {
			m.weddingTick()
		}
		require.Equal(t, phase, m.wedding.phase)
	}

	advance(weddingWaitFirst)
	m.acceptWedding(AcceptWedding{PlayerID: 1})
	advance(weddingWaitSecond)
	m.acceptWedding(AcceptWedding{PlayerID: 2})
	advance(weddingIdle)

	assert.Equal(t, bride.Name, groom.Partner)
	assert.Equal(t, groom.Name, bride.Partner)
	assert.Empty(t, groom.Fiance)
	assert.Empty(t, bride.Fiance)
}

func TestWeddingAbortsWhenBetrothedLeaves(t *testing.T) {
	m, _ := newTestMap(t)
	groom, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	bride, _ := addPlayer(t, m, 2, model.Coords{X: 6, Y: 5})
	groom.Fiance = bride.Name
	bride.Fiance = groom.Name
	ring := m.cfg.Marriage.RingItemID
	groom.AddItem(ring, 1, 10_000_000)
	bride.AddItem(ring, 1, 10_000_000)

	priest := &model.Npc{Index: 100, ID: 11, Coords: model.Coords{X: 5, Y: 4}, HP: 100, MaxHP: 100, Alive: true}
	m.npcs[priest.Index] = priest

	m.requestWedding(RequestWedding{PlayerID: 1, NpcIndex: 100, PartnerName: bride.Name})
	require.Equal(t, weddingPending, m.wedding.phase)

	reply := make(chan *model.Character, 1)
	m.leave(Leave{PlayerID: 2, Reply: reply})
	<-reply

	assert.Equal(t, weddingIdle, m.wedding.phase)
	assert.Empty(t, groom.Partner)
}

func TestSnapshotAllReturnsClones(t *testing.T) {
	m, _ := newTestMap(t)
	char, _ := addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	char.AddItem(1, 10, 10_000_000)

	reply := make(chan []*model.Character, 1)
	m.snapshotAll(SnapshotAll{Reply: reply})
	snaps := <-reply
	require.Len(t, snaps, 1)

	// Mutating the snapshot must not touch the live character.
	snaps[0].RemoveItem(1, 10)
	assert.Equal(t, 10, char.InInventory(1))
}

func TestNearbyInfoIsRangeGated(t *testing.T) {
	m, _ := newTestMap(t)
	addPlayer(t, m, 1, model.Coords{X: 5, Y: 5})
	addPlayer(t, m, 2, model.Coords{X: 6, Y: 5})
	addPlayer(t, m, 3, model.Coords{X: 19, Y: 19})
	m.dropGround(1, 5, model.Coords{X: 5, Y: 6}, 0)
	m.dropGround(1, 5, model.Coords{X: 19, Y: 18}, 0)

	reply := m.nearbyInfo(1)
	assert.Len(t, reply.Characters, 2, "self and the near player")
	assert.Len(t, reply.Items, 1)
}

func TestRunDrainsMailboxUntilClosed(t *testing.T) {
	m, _ := newTestMap(t)
	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	reply := make(chan RidAndSizeReply, 1)
	require.True(t, m.Send(RidAndSize{Reply: reply}))
	<-reply

	m.Inbox().Close()
	<-done
}
