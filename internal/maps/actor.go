// Package maps implements the per-map actor. One actor owns the entire
// mutable state of one map — characters, NPCs, ground items, chests, doors,
// arena, jukebox and wedding — and drains its mailbox on a single goroutine,
// so every mutation is race-free by construction. The world coordinator
// fans a Tick into every map at the configured rate.
package maps

import (
	"log/slog"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/actor"
	"github.com/sorokya/reoserv-sub000/internal/config"
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Sender is the per-player connection surface the map talks back through.
// Implemented by the player actor's handle; every method is a non-blocking
// enqueue.
type Sender interface {
	PlayerID() int
	Send(action protocol.PacketAction, family protocol.PacketFamily, body []byte)
	// RequestWarp asks the owning player actor to start a warp flow.
	RequestWarp(mapID int, coords model.Coords, local bool, animation int)
	// Close terminates the session with a reason.
	Close(reason string)
}

// World is the slice of the coordinator the map needs during a tick.
type World interface {
	// PartyMembers returns the member ids of the player's party, leader
	// first, or nil when the player is partyless.
	PartyMembers(playerID int) []int
	// NotifyPartyExp reports an exp gain so party summaries stay current.
	NotifyPartyExp(playerID, exp int)
}

// entry pairs the owned character with its connection.
type entry struct {
	char *model.Character
	conn Sender
}

// Map owns one map's state. All methods must run on the actor goroutine.
type Map struct {
	id       int
	emf      *eodata.Emf
	cfg      *config.Config
	pub      *eodata.Pub
	expTable *eodata.ExpTable
	formulas *formula.Engine
	world    World
	log      *slog.Logger

	characters map[int]*entry
	npcs       map[int]*model.Npc
	items      map[int]*model.GroundItem
	chests     []*model.Chest
	doors      map[model.Coords]*model.Door
	openDoors  map[model.Coords]int // coords → ticks until auto-close

	arena   arenaState
	jukebox jukeboxState
	quake   quakeState
	wedding weddingState

	// Tick thresholds derived from config durations.
	talkTicks  int
	boredTicks int
	drainTicks int
	drainIn    int

	npcUpdates []npcUpdate // batched within one tick

	inbox *actor.Mailbox[Command]
	now   func() time.Time
}

// npcUpdate is one record of the per-tick batched Npc.Player packet.
type npcUpdate struct {
	kind      int // 0 position, 1 attack, 2 chat
	npcIndex  int
	coords    model.Coords
	direction model.Direction

	targetID  int
	damage    int
	hpPercent int
	killed    bool

	message string
}

const (
	npcUpdatePosition = iota
	npcUpdateAttack
	npcUpdateChat
)

// NewMap builds a map actor's state from its EMF and static content.
func NewMap(id int, emf *eodata.Emf, cfg *config.Config, pub *eodata.Pub, expTable *eodata.ExpTable, formulas *formula.Engine, world World) *Map {
	m := &Map{
		id:         id,
		emf:        emf,
		cfg:        cfg,
		pub:        pub,
		expTable:   expTable,
		formulas:   formulas,
		world:      world,
		log:        slog.With("map", id),
		characters: make(map[int]*entry),
		npcs:       make(map[int]*model.Npc),
		items:      make(map[int]*model.GroundItem),
		doors:      make(map[model.Coords]*model.Door),
		openDoors:  make(map[model.Coords]int),
		inbox:      actor.NewMailbox[Command](),
		now:        time.Now,
	}

	tick := cfg.World.TickRate
	if tick <= 0 {
		tick = 120 * time.Millisecond
	}
	m.talkTicks = int(cfg.Npcs.TalkRate / tick)
	m.boredTicks = int(cfg.Npcs.BoredTimer / tick)
	m.drainTicks = cfg.World.DrainRate
	m.drainIn = m.drainTicks

	m.spawnNpcs()
	m.buildChests()
	m.buildDoors()
	m.initQuake()
	m.initArena()

	return m
}

// ID returns the map id.
func (m *Map) ID() int {
	return m.id
}

// Inbox returns the mailbox a MapHandle sends into.
func (m *Map) Inbox() *actor.Mailbox[Command] {
	return m.inbox
}

// Run drains the mailbox until the mailbox closes. Panics from a single
// command are contained so one bad message cannot take the map down.
func (m *Map) Run() {
	for {
		cmd, ok := m.inbox.Recv()
		if !ok {
			return
		}
		m.dispatch(cmd)
	}
}

func (m *Map) dispatch(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("map command panicked", "command", commandName(cmd), "panic", r)
		}
	}()

	switch c := cmd.(type) {
	case Tick:
		m.tick()
	case Enter:
		m.enter(c)
	case Leave:
		m.leave(c)
	case Walk:
		m.walk(c)
	case Face:
		m.face(c)
	case Sit:
		m.sit(c)
	case Stand:
		m.stand(c)
	case OpenDoor:
		m.openDoor(c)
	case Attack:
		m.attack(c)
	case CastSpellRequest:
		m.castSpellRequest(c)
	case CastSpellSelf:
		m.castSpellSelf(c)
	case CastSpellOther:
		m.castSpellOther(c)
	case CastSpellGroup:
		m.castSpellGroup(c)
	case DropItem:
		m.dropItem(c)
	case PickUpItem:
		m.pickUpItem(c)
	case JunkItem:
		m.junkItem(c)
	case OpenChest:
		m.openChest(c)
	case TakeChestItem:
		m.takeChestItem(c)
	case AddChestItem:
		m.addChestItem(c)
	case Emote:
		m.emote(c)
	case TalkMessage:
		m.talkMessage(c)
	case PlayJukebox:
		m.playJukebox(c)
	case RequestWedding:
		m.requestWedding(c)
	case AcceptWedding:
		m.acceptWedding(c)
	case DivorceRequest:
		m.divorce(c)
	case Refresh:
		if e := m.character(c.PlayerID); e != nil {
			e.conn.Send(protocol.ActionReply, protocol.FamilyRefresh, m.refreshPacket(c.PlayerID))
		}
	case RidAndSize:
		c.Reply <- RidAndSizeReply{Rid: m.emf.Rid, Size: m.emf.FileSize()}
	case NearbyInfo:
		c.Reply <- m.nearbyInfo(c.PlayerID)
	case CharacterSnapshot:
		m.characterSnapshot(c)
	case SnapshotAll:
		m.snapshotAll(c)
	case BroadcastPacket:
		m.broadcastRaw(c)
	default:
		m.log.Warn("unknown map command", "command", commandName(cmd))
	}
}

// Send enqueues a command for the actor; used by MapHandle.
func (m *Map) Send(cmd Command) bool {
	return m.inbox.Send(cmd)
}

// character returns the entry for a player id. Lookups are total: a missing
// player yields nil and the caller returns silently.
func (m *Map) character(playerID int) *entry {
	return m.characters[playerID]
}

// spawnNpcs builds the dense NPC table from the spawn list.
func (m *Map) spawnNpcs() {
	index := 0
	for spawnIndex, spawn := range m.emf.NpcSpawns {
		rec := m.pub.Npc(spawn.ID)
		if rec == nil {
			m.log.Error("npc spawn references missing species", "species", spawn.ID)
			continue
		}
		for i := 0; i < max(spawn.Amount, 1); i++ {
			npc := &model.Npc{
				Index:      index,
				ID:         spawn.ID,
				SpawnIndex: spawnIndex,
				Coords:     model.Coords{X: spawn.X, Y: spawn.Y},
				HP:         rec.HP,
				MaxHP:      rec.HP,
				Boss:       rec.Boss,
				Child:      rec.Child,
			}
			if m.cfg.Npcs.InstantSpawn {
				npc.Alive = true
				m.placeRespawned(npc, spawn)
			} else {
				npc.SpawnTicks = spawn.SpawnTime
			}
			m.npcs[index] = npc
			index++
		}
	}
}

// buildChests groups chest spawn rules by coordinate.
func (m *Map) buildChests() {
	byCoords := make(map[model.Coords]*model.Chest)
	for _, item := range m.emf.ChestItems {
		coords := model.Coords{X: item.X, Y: item.Y}
		chest, ok := byCoords[coords]
		if !ok {
			chest = &model.Chest{Coords: coords, Key: item.Key}
			byCoords[coords] = chest
			m.chests = append(m.chests, chest)
		}
		if chest.Key == 0 {
			chest.Key = item.Key
		}
		chest.Spawns = append(chest.Spawns, model.ChestSpawn{
			Slot:      item.Slot,
			ItemID:    item.ItemID,
			Amount:    item.Amount,
			SpawnTime: time.Duration(item.SpawnTime) * time.Minute,
		})
	}

	// Chests start full: one filled slot per spawn slot.
	for _, chest := range m.chests {
		filled := make(map[int]bool)
		for _, spawn := range chest.Spawns {
			if filled[spawn.Slot] || spawn.Slot >= m.cfg.Chest.Slots {
				continue
			}
			filled[spawn.Slot] = true
			chest.Items = append(chest.Items, model.ChestSlotItem{
				Slot:   spawn.Slot,
				ItemID: spawn.ItemID,
				Amount: spawn.Amount,
			})
		}
	}
}

// buildDoors registers a closed door for every doored warp tile.
func (m *Map) buildDoors() {
	for y := 0; y < m.emf.Height; y++ {
		for x := 0; x < m.emf.Width; x++ {
			warp, ok := m.emf.Warp(x, y)
			if !ok || warp.Door == 0 {
				continue
			}
			key := 0
			if warp.Door > 1 {
				key = warp.Door - 1
			}
			coords := model.Coords{X: x, Y: y}
			m.doors[coords] = &model.Door{Coords: coords, Key: key}
		}
	}
}

// Empty reports whether no characters are on the map.
func (m *Map) Empty() bool {
	return len(m.characters) == 0
}
