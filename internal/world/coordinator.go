// Package world hosts the coordinator: the one place that knows every live
// session and every map. It fans the wall-clock tick out to the map actors,
// owns parties and server-wide chat, admits connections, and schedules the
// periodic character saves.
package world

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/config"
	"github.com/sorokya/reoserv-sub000/internal/maps"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/player"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Session is the surface the coordinator needs from a live player session.
// *player.Handle satisfies it.
type Session interface {
	PlayerID() int
	Send(action protocol.PacketAction, family protocol.PacketFamily, body []byte)
	RequestWarp(mapID int, coords model.Coords, local bool, animation int)
	Close(reason string)
	PartyUpdate(action protocol.PacketAction, body []byte)
}

// Coordinator implements both the map actors' and the player sessions' view
// of the world. All tables live behind one mutex; every method is a short
// critical section so the coordinator never becomes the serialization point
// of the simulation itself.
type Coordinator struct {
	cfg   *config.Config
	log   *slog.Logger
	saver *Saver

	mu sync.Mutex

	maps     map[int]*maps.Map
	mapFiles map[int][]byte
	pubFiles map[int][]byte

	sessions map[int]Session
	names    map[string]int // lowercased character name -> player id
	guilds   map[int]string // player id -> guild tag, for guild chat
	online   map[int]bool   // account ids with a live login

	parties []*model.Party
	bans    BanStore

	ipSeen  map[string]time.Time
	ipCount map[string]int

	news []string
}

var _ maps.World = (*Coordinator)(nil)
var _ player.World = (*Coordinator)(nil)

// New builds an empty world. Maps are attached with AddMap before Run.
func New(cfg *config.Config, saver *Saver) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		log:      slog.With("component", "world"),
		saver:    saver,
		maps:     make(map[int]*maps.Map),
		mapFiles: make(map[int][]byte),
		pubFiles: make(map[int][]byte),
		sessions: make(map[int]Session),
		names:    make(map[string]int),
		guilds:   make(map[int]string),
		online:   make(map[int]bool),
		ipSeen:   make(map[string]time.Time),
		ipCount:  make(map[string]int),
	}
}

// AddMap registers a map actor and its raw file image.
func (w *Coordinator) AddMap(m *maps.Map, file []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maps[m.ID()] = m
	w.mapFiles[m.ID()] = file
}

// SetPubFile registers a raw pub file image served during the welcome flow.
func (w *Coordinator) SetPubFile(fileType int, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pubFiles[fileType] = data
}

// SetNews sets the login-screen news lines.
func (w *Coordinator) SetNews(lines []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.news = lines
}

// Maps returns every registered map actor.
func (w *Coordinator) Maps() []*maps.Map {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*maps.Map, 0, len(w.maps))
	for _, m := range w.maps {
		out = append(out, m)
	}
	return out
}

// MapFor returns the actor for a map id.
func (w *Coordinator) MapFor(mapID int) (*maps.Map, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.maps[mapID]
	return m, ok
}

// MapFile returns the raw map image for client transfer.
func (w *Coordinator) MapFile(mapID int) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mapFiles[mapID]
}

// PubFile returns a raw pub image for client transfer.
func (w *Coordinator) PubFile(fileType int) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pubFiles[fileType]
}

// News returns the login news lines.
func (w *Coordinator) News() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.news
}

// Admit decides whether a fresh TCP connection may proceed. Reconnects from
// one address faster than the configured interval are refused, as is
// anything past the connection cap.
func (w *Coordinator) Admit(ip string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := 0
	for _, n := range w.ipCount {
		total += n
	}
	if w.cfg.Server.MaxConnections > 0 && total >= w.cfg.Server.MaxConnections {
		return false
	}
	if last, ok := w.ipSeen[ip]; ok && time.Since(last) < w.cfg.Server.IPReconnectLimit {
		return false
	}
	w.ipSeen[ip] = time.Now()
	w.ipCount[ip]++
	return true
}

// AddSession attaches a live session under its player id.
func (w *Coordinator) AddSession(s Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sessions[s.PlayerID()] = s
}

// RemoveSession detaches a session and dissolves its party membership.
func (w *Coordinator) RemoveSession(playerID int, ip string) {
	w.mu.Lock()
	if n := w.ipCount[ip]; n <= 1 {
		delete(w.ipCount, ip)
	} else {
		w.ipCount[ip] = n - 1
	}
	delete(w.sessions, playerID)
	w.mu.Unlock()

	w.leaveParty(playerID)
}

// TryLogin reserves the login slot for an account.
func (w *Coordinator) TryLogin(accountID int) player.LoginGate {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.online[accountID] {
		return player.LoginAlreadyIn
	}
	if w.cfg.Server.MaxPlayers > 0 && len(w.online) >= w.cfg.Server.MaxPlayers {
		return player.LoginServerFull
	}
	w.online[accountID] = true
	return player.LoginOK
}

// Logout releases an account's login slot.
func (w *Coordinator) Logout(accountID int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.online, accountID)
}

// RegisterCharacter indexes a character name for tells and admin commands,
// and its guild tag for guild chat.
func (w *Coordinator) RegisterCharacter(name, guildTag string, playerID int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.names[strings.ToLower(name)] = playerID
	if guildTag != "" {
		w.guilds[playerID] = guildTag
	}
}

// UnregisterCharacter drops the name index entry.
func (w *Coordinator) UnregisterCharacter(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.names[strings.ToLower(name)]
	if ok {
		delete(w.guilds, id)
	}
	delete(w.names, strings.ToLower(name))
}

// SessionByName resolves a character name to its session.
func (w *Coordinator) SessionByName(name string) (Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.names[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	s, ok := w.sessions[id]
	return s, ok
}

// SaveCharacter hands a character to the async persistence worker.
func (w *Coordinator) SaveCharacter(c *model.Character) {
	w.saver.Enqueue(c)
}

// GlobalMessage relays global-tab chat to every other session.
func (w *Coordinator) GlobalMessage(senderID int, senderName, message string) {
	body := protocol.NewWriter().
		AddBreakString(senderName).
		AddString(message).
		Bytes()

	for _, s := range w.snapshotSessions() {
		if s.PlayerID() == senderID {
			continue
		}
		s.Send(protocol.ActionMsg, protocol.FamilyTalk, body)
	}
}

// GuildMessage relays guild-tab chat to the sender's guildmates.
func (w *Coordinator) GuildMessage(senderID int, guildTag, senderName, message string) {
	w.mu.Lock()
	var members []Session
	for id, tag := range w.guilds {
		if tag != guildTag || id == senderID {
			continue
		}
		if s, ok := w.sessions[id]; ok {
			members = append(members, s)
		}
	}
	w.mu.Unlock()

	body := protocol.NewWriter().
		AddBreakString(senderName).
		AddString(message).
		Bytes()
	for _, s := range members {
		s.Send(protocol.ActionRequest, protocol.FamilyTalk, body)
	}
}

// TellMessage delivers a private message; false means the target is not
// online and the sender gets the not-found echo.
func (w *Coordinator) TellMessage(senderName, target, message string) bool {
	s, ok := w.SessionByName(target)
	if !ok {
		return false
	}
	body := protocol.NewWriter().
		AddBreakString(senderName).
		AddString(message).
		Bytes()
	s.Send(protocol.ActionTell, protocol.FamilyTalk, body)
	return true
}

// AnnounceMessage relays an admin announcement to every session.
func (w *Coordinator) AnnounceMessage(senderName, message string) {
	body := protocol.NewWriter().
		AddBreakString(senderName).
		AddString(message).
		Bytes()
	for _, s := range w.snapshotSessions() {
		s.Send(protocol.ActionAnnounce, protocol.FamilyTalk, body)
	}
}

// ServerMessage pushes a server-line message to one session.
func (w *Coordinator) ServerMessage(playerID int, message string) {
	w.mu.Lock()
	s, ok := w.sessions[playerID]
	w.mu.Unlock()
	if !ok {
		return
	}
	s.Send(protocol.ActionServer, protocol.FamilyTalk, protocol.NewWriter().AddString(message).Bytes())
}

func (w *Coordinator) snapshotSessions() []Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	return out
}

// charactersByID snapshots every map and indexes the live characters. Used
// by the rare world-level operations that need character detail (party
// lists, admin lookups); the hot paths never call it.
func (w *Coordinator) charactersByID() map[int]*model.Character {
	out := make(map[int]*model.Character)
	for _, m := range w.Maps() {
		reply := make(chan []*model.Character, 1)
		if !m.Send(maps.SnapshotAll{Reply: reply}) {
			continue
		}
		select {
		case chars := <-reply:
			for _, c := range chars {
				out[c.PlayerID] = c
			}
		case <-time.After(2 * time.Second):
			w.log.Warn("map snapshot timed out", "map", m.ID())
		}
	}
	return out
}
