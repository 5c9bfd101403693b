package player

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorokya/reoserv-sub000/internal/config"
	"github.com/sorokya/reoserv-sub000/internal/db"
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/maps"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

const (
	testEncodeMultiple = 6
	testDecodeMultiple = 7
)

type fakeAccounts struct {
	accounts  map[string]*db.Account
	passwords map[string]string
	counts    map[int]int
	created   []string
}

func (f *fakeAccounts) Get(_ context.Context, username string) (*db.Account, error) {
	return f.accounts[username], nil
}

func (f *fakeAccounts) Exists(_ context.Context, username string) (bool, error) {
	_, ok := f.accounts[username]
	return ok, nil
}

func (f *fakeAccounts) Create(_ context.Context, username, _, _, _ string) (int, error) {
	f.created = append(f.created, username)
	return len(f.created), nil
}

func (f *fakeAccounts) VerifyPassword(_ context.Context, username, password string) (bool, error) {
	return f.passwords[username] == password, nil
}

func (f *fakeAccounts) UpdateLastLogin(context.Context, int, string) error { return nil }

func (f *fakeAccounts) CharacterCount(_ context.Context, accountID int) (int, error) {
	return f.counts[accountID], nil
}

type fakeChars struct {
	summaries map[int][]db.CharacterSummary
	chars     map[int]*model.Character
	created   []*model.Character
	deleted   []int
}

func (f *fakeChars) List(_ context.Context, accountID int) ([]db.CharacterSummary, error) {
	return f.summaries[accountID], nil
}

func (f *fakeChars) NameExists(_ context.Context, name string) (bool, error) {
	for _, list := range f.summaries {
		for _, s := range list {
			if s.Name == name {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeChars) Load(_ context.Context, characterID int) (*model.Character, error) {
	return f.chars[characterID].Clone(), nil
}

func (f *fakeChars) Create(_ context.Context, c *model.Character) (int, error) {
	f.created = append(f.created, c)
	return 100 + len(f.created), nil
}

func (f *fakeChars) Delete(_ context.Context, characterID int) error {
	f.deleted = append(f.deleted, characterID)
	return nil
}

// fakeCoordinator stubs the world for a session and doubles as the map's
// party lookup.
type fakeCoordinator struct {
	gate       LoginGate
	maps       map[int]*maps.Map
	mapFiles   map[int][]byte
	registered map[string]int
	guildTags  []string
	saved      []*model.Character
	globals    []string
	guildChat  []string
	partyChat  []string
	announces  []string
	tells      []string
	tellOK     bool
	adminReply string
	adminCmds  []string
	news       []string
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		maps:       make(map[int]*maps.Map),
		mapFiles:   make(map[int][]byte),
		registered: make(map[string]int),
		tellOK:     true,
	}
}

func (f *fakeCoordinator) TryLogin(int) LoginGate { return f.gate }
func (f *fakeCoordinator) Logout(int)             {}

func (f *fakeCoordinator) MapFor(mapID int) (*maps.Map, bool) {
	m, ok := f.maps[mapID]
	return m, ok
}

func (f *fakeCoordinator) MapFile(mapID int) []byte { return f.mapFiles[mapID] }
func (f *fakeCoordinator) PubFile(int) []byte       { return []byte{0x45, 0x49, 0x46} }

func (f *fakeCoordinator) RegisterCharacter(name, guildTag string, playerID int) {
	f.registered[name] = playerID
	f.guildTags = append(f.guildTags, guildTag)
}

func (f *fakeCoordinator) UnregisterCharacter(name string) { delete(f.registered, name) }

func (f *fakeCoordinator) GlobalMessage(_ int, _, message string) {
	f.globals = append(f.globals, message)
}

func (f *fakeCoordinator) GuildMessage(_ int, tag, _, message string) {
	f.guildChat = append(f.guildChat, tag+":"+message)
}

func (f *fakeCoordinator) PartyMessage(_ int, message string) {
	f.partyChat = append(f.partyChat, message)
}

func (f *fakeCoordinator) TellMessage(_, _, message string) bool {
	f.tells = append(f.tells, message)
	return f.tellOK
}

func (f *fakeCoordinator) AnnounceMessage(_, message string) {
	f.announces = append(f.announces, message)
}

func (f *fakeCoordinator) PartyCommand(int, protocol.PacketAction, *protocol.Reader) {}

func (f *fakeCoordinator) AdminCommand(_ int, _ *model.Character, command string) string {
	f.adminCmds = append(f.adminCmds, command)
	return f.adminReply
}

func (f *fakeCoordinator) SaveCharacter(c *model.Character) { f.saved = append(f.saved, c) }
func (f *fakeCoordinator) News() []string                   { return f.news }

func (f *fakeCoordinator) PartyMembers(int) []int  { return nil }
func (f *fakeCoordinator) NotifyPartyExp(int, int) {}

type fakeGuilds struct {
	details *db.GuildDetails
}

func (f *fakeGuilds) GetGuildDetails(_ context.Context, tag string) (*db.GuildDetails, error) {
	if f.details != nil && f.details.Tag == tag {
		return f.details, nil
	}
	return nil, nil
}

type testSession struct {
	p        *Player
	client   net.Conn
	world    *fakeCoordinator
	accounts *fakeAccounts
	chars    *fakeChars
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })

	bus := protocol.NewBus(server, true)
	t.Cleanup(bus.Close)

	cfg := config.Default()
	world := newFakeCoordinator()
	accounts := &fakeAccounts{
		accounts:  make(map[string]*db.Account),
		passwords: make(map[string]string),
		counts:    make(map[int]int),
	}
	chars := &fakeChars{
		summaries: make(map[int][]db.CharacterSummary),
		chars:     make(map[int]*model.Character),
	}
	engine, err := formula.New(formula.DefaultFormulas)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	p := New(1, "127.0.0.1", bus, Deps{
		Config:   &cfg,
		World:    world,
		Accounts: accounts,
		Chars:    chars,
		Pub:      testPub(),
		ExpTable: eodata.NewExpTable(),
		Formulas: engine,
	})
	return &testSession{p: p, client: client, world: world, accounts: accounts, chars: chars}
}

func testPub() *eodata.Pub {
	return &eodata.Pub{
		Items:   []eodata.ItemRecord{{ID: 1, Name: "Gold"}},
		Npcs:    []eodata.NpcRecord{{ID: 10, Name: "Rat", Type: eodata.NpcPassive, HP: 20}},
		Classes: []eodata.ClassRecord{{ID: 1, Name: "Peasant"}},
		Drops:   map[int][]eodata.DropRecord{},
		Talk:    map[int]eodata.TalkRecord{},
	}
}

// handshake arms the bus directly so tests can skip the init exchange.
func (s *testSession) handshake() {
	s.p.bus.Handshake(testEncodeMultiple, testDecodeMultiple, 1)
	s.p.state = StateInitialized
}

// login fast-forwards the session to the character screen.
func (s *testSession) login(t *testing.T) {
	t.Helper()
	s.handshake()
	s.accounts.accounts["ayla"] = &db.Account{ID: 7, Username: "ayla"}
	s.accounts.passwords["ayla"] = "hunter22"
	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyLogin,
		body(func(w *protocol.Writer) {
			w.AddBreakString("ayla")
			w.AddBreakString("hunter22")
		})))
	reply := s.read(t)
	require.Equal(t, protocol.FamilyLogin, reply.family)
	require.Equal(t, loginOK, reply.r.GetShort())
}

// pkt builds an inbound packet the way the bus would deliver it.
func pkt(action protocol.PacketAction, family protocol.PacketFamily, body []byte) protocol.Packet {
	payload := append([]byte{byte(action), byte(family)}, body...)
	r := protocol.NewReader(payload)
	r.GetByte()
	r.GetByte()
	return protocol.Packet{Action: action, Family: family, Reader: r}
}

func body(build func(w *protocol.Writer)) []byte {
	w := protocol.NewWriter()
	build(w)
	return w.Bytes()
}

type reply struct {
	action protocol.PacketAction
	family protocol.PacketFamily
	r      *protocol.Reader
}

// read pulls one server frame off the pipe and deobfuscates it.
func (s *testSession) read(t *testing.T) reply {
	t.Helper()
	require.NoError(t, s.client.SetReadDeadline(time.Now().Add(2*time.Second)))

	var header [2]byte
	_, err := io.ReadFull(s.client, header[:])
	require.NoError(t, err)
	payload := make([]byte, binary.LittleEndian.Uint16(header[:]))
	_, err = io.ReadFull(s.client, payload)
	require.NoError(t, err)

	if !(payload[0] == byte(protocol.ActionInit) && payload[1] == byte(protocol.FamilyInit)) {
		protocol.DeobfuscatePayload(payload, testEncodeMultiple)
	}
	r := protocol.NewReader(payload)
	action := protocol.PacketAction(r.GetByte())
	family := protocol.PacketFamily(r.GetByte())
	return reply{action: action, family: family, r: r}
}

func TestHandshakeRepliesAndArmsBus(t *testing.T) {
	s := newTestSession(t)

	s.p.handlePacket(pkt(protocol.ActionInit, protocol.FamilyInit,
		body(func(w *protocol.Writer) {
			w.AddThree(12345) // challenge
			w.AddChar(0)
			w.AddChar(0)
			w.AddChar(28)
		})))

	reply := s.read(t)
	assert.Equal(t, protocol.FamilyInit, reply.family)
	assert.Equal(t, byte(initOK), reply.r.GetByte())
	reply.r.GetByte() // seq1
	reply.r.GetByte() // seq2
	emult := int(reply.r.GetByte())
	dmult := int(reply.r.GetByte())
	assert.GreaterOrEqual(t, emult, multipleMin)
	assert.LessOrEqual(t, emult, multipleMax)
	assert.GreaterOrEqual(t, dmult, multipleMin)
	assert.LessOrEqual(t, dmult, multipleMax)
	assert.Equal(t, 1, reply.r.GetShort())
	assert.Equal(t, challengeResponse(12345), reply.r.GetThree())
	assert.Equal(t, StateInitialized, s.p.state)
}

func TestHandshakeRejectedTwice(t *testing.T) {
	s := newTestSession(t)
	s.handshake()

	s.p.handlePacket(pkt(protocol.ActionInit, protocol.FamilyInit,
		body(func(w *protocol.Writer) {
			w.AddThree(1)
			w.AddChar(0)
			w.AddChar(0)
			w.AddChar(28)
		})))

	assert.Equal(t, StateClosed, s.p.state)
}

func TestChallengeResponseKnownValues(t *testing.T) {
	// Spot checks against the client's solver.
	for _, challenge := range []int{1, 12345, 999999} {
		got := challengeResponse(challenge)
		assert.Greater(t, got, 110905, "challenge %d", challenge)
	}
}

func TestLoginSuccess(t *testing.T) {
	s := newTestSession(t)
	s.handshake()
	s.accounts.accounts["ayla"] = &db.Account{ID: 7, Username: "ayla"}
	s.accounts.passwords["ayla"] = "hunter22"
	s.chars.summaries[7] = []db.CharacterSummary{{ID: 11, Name: "ayla", Level: 3}}

	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyLogin,
		body(func(w *protocol.Writer) {
			w.AddBreakString("Ayla") // case folded by the server
			w.AddBreakString("hunter22")
		})))

	reply := s.read(t)
	assert.Equal(t, protocol.ActionReply, reply.action)
	assert.Equal(t, protocol.FamilyLogin, reply.family)
	assert.Equal(t, loginOK, reply.r.GetShort())
	assert.Equal(t, 1, reply.r.GetChar())
	assert.Equal(t, StateLoggedIn, s.p.state)
}

func TestLoginWrongPasswordCountsAndCloses(t *testing.T) {
	s := newTestSession(t)
	s.handshake()
	s.accounts.accounts["ayla"] = &db.Account{ID: 7, Username: "ayla"}
	s.accounts.passwords["ayla"] = "hunter22"

	attempt := func() {
		s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyLogin,
			body(func(w *protocol.Writer) {
				w.AddBreakString("ayla")
				w.AddBreakString("wrong")
			})))
	}

	for i := 0; i < s.p.deps.Config.Server.MaxLoginAttempts; i++ {
		attempt()
		reply := s.read(t)
		assert.Equal(t, loginWrongPassword, reply.r.GetShort())
	}
	assert.Equal(t, StateClosed, s.p.state)
}

func TestLoginAlreadyIn(t *testing.T) {
	s := newTestSession(t)
	s.handshake()
	s.world.gate = LoginAlreadyIn
	s.accounts.accounts["ayla"] = &db.Account{ID: 7, Username: "ayla"}
	s.accounts.passwords["ayla"] = "hunter22"

	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyLogin,
		body(func(w *protocol.Writer) {
			w.AddBreakString("ayla")
			w.AddBreakString("hunter22")
		})))

	reply := s.read(t)
	assert.Equal(t, loginLoggedIn, reply.r.GetShort())
	assert.NotEqual(t, StateLoggedIn, s.p.state)
}

func TestCharacterCreateRejectsBadNames(t *testing.T) {
	s := newTestSession(t)
	s.login(t)

	for _, name := range []string{"ab", "With Space", "h4xor", "averyveryverylongname"} {
		s.p.handlePacket(pkt(protocol.ActionCreate, protocol.FamilyCharacter,
			body(func(w *protocol.Writer) {
				w.AddShort(1000)
				w.AddShort(0)
				w.AddShort(1)
				w.AddShort(1)
				w.AddShort(0)
				w.AddByte(0xFF)
				w.AddBreakString(name)
			})))
		reply := s.read(t)
		assert.Equal(t, characterNotAllowed, reply.r.GetShort(), "name %q", name)
	}
	assert.Empty(t, s.chars.created)
}

func TestCharacterCreateSpawnsAtConfiguredHome(t *testing.T) {
	s := newTestSession(t)
	s.login(t)

	s.p.handlePacket(pkt(protocol.ActionCreate, protocol.FamilyCharacter,
		body(func(w *protocol.Writer) {
			w.AddShort(1000)
			w.AddShort(1)
			w.AddShort(5)
			w.AddShort(2)
			w.AddShort(0)
			w.AddByte(0xFF)
			w.AddBreakString("bran")
		})))

	reply := s.read(t)
	assert.Equal(t, characterOK, reply.r.GetShort())
	require.Len(t, s.chars.created, 1)
	created := s.chars.created[0]
	assert.Equal(t, "bran", created.Name)
	assert.Equal(t, s.p.deps.Config.NewCharacter.SpawnMap, created.MapID)
	assert.Equal(t, 1, created.Level)
	assert.Equal(t, created.MaxHP, created.HP)
}

func TestCharacterCreateRejectsDuplicate(t *testing.T) {
	s := newTestSession(t)
	s.login(t)
	s.chars.summaries[7] = []db.CharacterSummary{{ID: 11, Name: "bran"}}

	s.p.handlePacket(pkt(protocol.ActionCreate, protocol.FamilyCharacter,
		body(func(w *protocol.Writer) {
			w.AddShort(1000)
			w.AddShort(0)
			w.AddShort(1)
			w.AddShort(1)
			w.AddShort(0)
			w.AddByte(0xFF)
			w.AddBreakString("bran")
		})))

	reply := s.read(t)
	assert.Equal(t, characterExists, reply.r.GetShort())
}

func TestSelectCharacterBindsSession(t *testing.T) {
	s := newTestSession(t)
	s.login(t)
	s.chars.summaries[7] = []db.CharacterSummary{{ID: 11, Name: "ayla"}}
	s.chars.chars[11] = &model.Character{
		ID: 11, AccountID: 7, Name: "ayla", Level: 2, Class: 1,
		MapID: 5, Coords: model.Coords{X: 4, Y: 4},
	}

	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) { w.AddInt(11) })))

	reply := s.read(t)
	assert.Equal(t, protocol.FamilyWelcome, reply.family)
	assert.Equal(t, welcomeSelectCharacter, reply.r.GetShort())
	assert.Equal(t, StateEnteringGame, s.p.state)
	assert.NotZero(t, s.p.sessionID)
	require.NotNil(t, s.p.character)
	assert.Equal(t, "ayla", s.p.character.Name)
}

func TestSelectCharacterRejectsForeignID(t *testing.T) {
	s := newTestSession(t)
	s.login(t)
	s.chars.summaries[7] = []db.CharacterSummary{{ID: 11, Name: "ayla"}}

	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) { w.AddInt(99) })))

	assert.Zero(t, s.p.sessionID)
	assert.Equal(t, StateLoggedIn, s.p.state)
}

// startMap spins up a live map actor for enter-game and warp tests.
func (s *testSession) startMap(t *testing.T, id int) *maps.Map {
	t.Helper()
	cfg := s.p.deps.Config
	emf := eodata.NewEmf(20, 20)
	emf.RelogX = 2
	emf.RelogY = 2
	emf.File = []byte("EMF0123456789")
	m := maps.NewMap(id, emf, cfg, s.p.deps.Pub, s.p.deps.ExpTable, s.p.deps.Formulas, s.world)
	s.world.maps[id] = m
	s.world.mapFiles[id] = emf.File
	go m.Run()
	t.Cleanup(m.Inbox().Close)
	return m
}

// enterGame fast-forwards through select + enter on a live map.
func (s *testSession) enterGame(t *testing.T) {
	t.Helper()
	s.login(t)
	s.startMap(t, 5)
	s.chars.summaries[7] = []db.CharacterSummary{{ID: 11, Name: "ayla"}}
	char := &model.Character{
		ID: 11, AccountID: 7, Name: "ayla", Level: 2, Class: 1,
		BaseStr: 10, BaseCon: 10, HP: 10, TP: 10,
		MapID: 5, Coords: model.Coords{X: 4, Y: 4},
	}
	s.chars.chars[11] = char

	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) { w.AddInt(11) })))
	s.read(t)

	s.p.handlePacket(pkt(protocol.ActionMsg, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) { w.AddShort(s.p.sessionID) })))
	reply := s.read(t)
	require.Equal(t, welcomeEnterGame, reply.r.GetShort())
	require.Equal(t, StateInGame, s.p.state)
}

func TestEnterGameRegistersAndReports(t *testing.T) {
	s := newTestSession(t)
	s.world.news = []string{"Welcome to the server"}
	s.enterGame(t)

	assert.Equal(t, 1, s.world.registered["ayla"])
	assert.Nil(t, s.p.character, "map owns the character in game")
}

func TestEnterGameRejectsBadSession(t *testing.T) {
	s := newTestSession(t)
	s.login(t)
	s.startMap(t, 5)
	s.chars.summaries[7] = []db.CharacterSummary{{ID: 11, Name: "ayla"}}
	s.chars.chars[11] = &model.Character{
		ID: 11, AccountID: 7, Name: "ayla", Class: 1, MapID: 5,
	}

	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) { w.AddInt(11) })))
	s.read(t)

	s.p.handlePacket(pkt(protocol.ActionMsg, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) { w.AddShort(s.p.sessionID + 1) })))

	assert.Equal(t, StateClosed, s.p.state)
}

func TestFileRequestServesMap(t *testing.T) {
	s := newTestSession(t)
	s.login(t)
	s.startMap(t, 5)
	s.chars.summaries[7] = []db.CharacterSummary{{ID: 11, Name: "ayla"}}
	s.chars.chars[11] = &model.Character{
		ID: 11, AccountID: 7, Name: "ayla", Class: 1, MapID: 5,
	}
	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) { w.AddInt(11) })))
	s.read(t)

	s.p.handlePacket(pkt(protocol.ActionAgree, protocol.FamilyWelcome,
		body(func(w *protocol.Writer) {
			w.AddChar(FileTypeMap)
			w.AddShort(s.p.sessionID)
		})))

	reply := s.read(t)
	assert.Equal(t, protocol.FamilyInit, reply.family)
	assert.Equal(t, FileTypeMap, reply.r.GetChar())
	assert.NotZero(t, reply.r.Remaining())
}

func TestLocalTalkReachesMap(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)

	s.p.handlePacket(pkt(protocol.ActionReport, protocol.FamilyTalk,
		body(func(w *protocol.Writer) { w.AddString("hello there") })))

	// Local chat has no audience here, so nothing comes back; the admin
	// prefix must instead reach the world.
	s.world.adminReply = "done"
	s.p.handlePacket(pkt(protocol.ActionReport, protocol.FamilyTalk,
		body(func(w *protocol.Writer) { w.AddString("$kick bran") })))

	reply := s.read(t)
	assert.Equal(t, protocol.ActionServer, reply.action)
	assert.Equal(t, protocol.FamilyTalk, reply.family)
	require.Len(t, s.world.adminCmds, 1)
	assert.Equal(t, "kick bran", s.world.adminCmds[0])
}

func TestGlobalAndAnnounceForwarded(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)

	s.p.handlePacket(pkt(protocol.ActionMsg, protocol.FamilyTalk,
		body(func(w *protocol.Writer) { w.AddString("trading boots") })))
	s.p.handlePacket(pkt(protocol.ActionAnnounce, protocol.FamilyTalk,
		body(func(w *protocol.Writer) { w.AddString("server restart soon") })))
	s.p.handlePacket(pkt(protocol.ActionOpen, protocol.FamilyTalk,
		body(func(w *protocol.Writer) { w.AddString("pull the left group") })))

	assert.Equal(t, []string{"trading boots"}, s.world.globals)
	assert.Equal(t, []string{"server restart soon"}, s.world.announces)
	assert.Equal(t, []string{"pull the left group"}, s.world.partyChat)
}

func TestTellFailureEchoesTargetBack(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)
	s.world.tellOK = false

	s.p.handlePacket(pkt(protocol.ActionTell, protocol.FamilyTalk,
		body(func(w *protocol.Writer) {
			w.AddBreakString("cora")
			w.AddString("you there?")
		})))

	reply := s.read(t)
	assert.Equal(t, protocol.ActionReply, reply.action)
	assert.Equal(t, protocol.FamilyTalk, reply.family)
	assert.Equal(t, "cora", reply.r.GetBreakString())
}

func TestGuildChatForwardedWithTag(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)

	// Without a guild the message goes nowhere.
	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyTalk,
		body(func(w *protocol.Writer) { w.AddString("anyone on?") })))
	assert.Empty(t, s.world.guildChat)

	s.p.guildTag = "DRG"
	s.p.handlePacket(pkt(protocol.ActionRequest, protocol.FamilyTalk,
		body(func(w *protocol.Writer) { w.AddString("raid at dusk") })))
	assert.Equal(t, []string{"DRG:raid at dusk"}, s.world.guildChat)
}

func TestGuildReportLookup(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)

	details := &db.GuildDetails{
		Tag: "DRG", Name: "Dragoons", Description: "oldest guild",
		CreatedAt: "2024-01-01", Bank: 5000,
	}
	details.Ranks[0] = "Leader"
	details.Staff = []db.GuildStaffMember{{Name: "ayla", Rank: 1}}
	s.p.deps.Guilds = &fakeGuilds{details: details}

	s.p.handlePacket(pkt(protocol.ActionReport, protocol.FamilyGuild,
		body(func(w *protocol.Writer) {
			w.AddInt(1)
			w.AddString("drg")
		})))

	reply := s.read(t)
	require.Equal(t, protocol.FamilyGuild, reply.family)
	require.Equal(t, protocol.ActionReport, reply.action)
	assert.Equal(t, "Dragoons", reply.r.GetBreakString())
	assert.Equal(t, "DRG", reply.r.GetBreakString())
	assert.Equal(t, "2024-01-01", reply.r.GetBreakString())
	assert.Equal(t, "oldest guild", reply.r.GetBreakString())
	assert.Equal(t, "5000", reply.r.GetBreakString())
	assert.Equal(t, "Leader", reply.r.GetBreakString())
}

func TestLocalWarpRoundTrip(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)

	s.p.handleCommand(warpCommand{
		MapID:  5,
		Coords: model.Coords{X: 9, Y: 9},
		Local:  true,
	})
	reply := s.read(t)
	require.Equal(t, protocol.ActionRequest, reply.action)
	require.Equal(t, protocol.FamilyWarp, reply.family)
	assert.Equal(t, warpLocal, reply.r.GetChar())
	assert.Equal(t, 5, reply.r.GetShort())

	s.p.handlePacket(pkt(protocol.ActionAccept, protocol.FamilyWarp,
		body(func(w *protocol.Writer) { w.AddShort(5) })))
	reply = s.read(t)
	require.Equal(t, protocol.ActionAgree, reply.action)
	require.Equal(t, protocol.FamilyWarp, reply.family)
	assert.Equal(t, warpEnterGame, reply.r.GetChar())

	char := s.p.snapshotSelf()
	require.NotNil(t, char)
	assert.Equal(t, model.Coords{X: 9, Y: 9}, char.Coords)
	assert.Nil(t, s.p.pendingWarp)
}

func TestRemoteWarpMovesBetweenMaps(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)
	s.startMap(t, 6)

	s.p.handleCommand(warpCommand{
		MapID:  6,
		Coords: model.Coords{X: 3, Y: 3},
	})
	reply := s.read(t)
	assert.Equal(t, warpRemote, reply.r.GetChar())
	assert.Equal(t, 6, reply.r.GetShort())

	s.p.handlePacket(pkt(protocol.ActionAccept, protocol.FamilyWarp,
		body(func(w *protocol.Writer) { w.AddShort(6) })))
	s.read(t)

	assert.Equal(t, 6, s.p.mapID)
	char := s.p.snapshotSelf()
	require.NotNil(t, char)
	assert.Equal(t, 6, char.MapID)
	assert.Equal(t, model.Coords{X: 3, Y: 3}, char.Coords)
}

func TestWarpAcceptWithoutPendingIsIgnored(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)

	s.p.handlePacket(pkt(protocol.ActionAccept, protocol.FamilyWarp,
		body(func(w *protocol.Writer) { w.AddShort(5) })))

	assert.Equal(t, StateInGame, s.p.state)
	assert.Equal(t, 5, s.p.mapID)
}

func TestShutdownSavesAndUnregisters(t *testing.T) {
	s := newTestSession(t)
	s.enterGame(t)

	s.p.shutdown()

	require.Len(t, s.world.saved, 1)
	assert.Equal(t, "ayla", s.world.saved[0].Name)
	assert.NotContains(t, s.world.registered, "ayla")
	assert.Equal(t, StateClosed, s.p.state)
}

func TestValidCharacterName(t *testing.T) {
	assert.True(t, validCharacterName("ayla"))
	assert.True(t, validCharacterName("longername"))
	assert.False(t, validCharacterName("abc"))
	assert.False(t, validCharacterName("has space"))
	assert.False(t, validCharacterName("num3ric"))
	assert.False(t, validCharacterName("waytoolongforaname"))
}
