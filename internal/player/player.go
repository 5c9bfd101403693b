// Package player implements the per-connection session actor. One player
// actor owns the TCP session's protocol state machine: handshake, account
// login, character selection, and in-game packet routing to the map actors.
// During a warp the actor briefly owns the character itself; at every other
// in-game moment the character belongs to the map it stands on.
package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/config"
	"github.com/sorokya/reoserv-sub000/internal/db"
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/maps"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// State is the session's position in the login flow. Transitions only move
// forward; a protocol violation at any state closes the session.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateLoggedIn
	StateEnteringGame
	StateInGame
	StateClosed
)

// LoginGate is the world's verdict on a login attempt.
type LoginGate int

const (
	LoginOK LoginGate = iota
	LoginAlreadyIn
	LoginServerFull
)

// World is the slice of the coordinator a player session needs.
type World interface {
	// TryLogin reserves the account slot; Logout releases it.
	TryLogin(accountID int) LoginGate
	Logout(accountID int)

	MapFor(mapID int) (*maps.Map, bool)
	MapFile(mapID int) []byte
	PubFile(fileType int) []byte

	RegisterCharacter(name, guildTag string, playerID int)
	UnregisterCharacter(name string)

	GlobalMessage(senderID int, senderName, message string)
	GuildMessage(senderID int, guildTag, senderName, message string)
	PartyMessage(senderID int, message string)
	TellMessage(senderName, target, message string) bool
	AnnounceMessage(senderName, message string)
	PartyCommand(playerID int, action protocol.PacketAction, r *protocol.Reader)
	AdminCommand(issuerID int, issuer *model.Character, command string) string

	// SaveCharacter persists asynchronously; the world owns the gateway.
	SaveCharacter(c *model.Character)
	News() []string
}

// AccountStore is the slice of the account repository a session uses.
type AccountStore interface {
	Get(ctx context.Context, username string) (*db.Account, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, password, email, ip string) (int, error)
	VerifyPassword(ctx context.Context, username, password string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int, ip string) error
	CharacterCount(ctx context.Context, accountID int) (int, error)
}

// CharacterStore is the slice of the character repository a session uses.
type CharacterStore interface {
	List(ctx context.Context, accountID int) ([]db.CharacterSummary, error)
	NameExists(ctx context.Context, name string) (bool, error)
	Load(ctx context.Context, characterID int) (*model.Character, error)
	Create(ctx context.Context, c *model.Character) (int, error)
	Delete(ctx context.Context, characterID int) error
}

// GuildStore answers guild lookups. Optional; sessions without one ignore
// guild info requests.
type GuildStore interface {
	GetGuildDetails(ctx context.Context, tag string) (*db.GuildDetails, error)
}

// Deps bundles what every player session shares.
type Deps struct {
	Config   *config.Config
	World    World
	Accounts AccountStore
	Chars    CharacterStore
	Guilds   GuildStore
	Pub      *eodata.Pub
	ExpTable *eodata.ExpTable
	Formulas *formula.Engine
}

// command is an out-of-band message from another actor into the session.
type command interface{ playerCommand() }

type warpCommand struct {
	MapID     int
	Coords    model.Coords
	Local     bool
	Animation int
}

type closeCommand struct{ Reason string }

type partyUpdateCommand struct {
	Action protocol.PacketAction
	Body   []byte
}

func (warpCommand) playerCommand()        {}
func (closeCommand) playerCommand()       {}
func (partyUpdateCommand) playerCommand() {}

// Player is one live session.
type Player struct {
	id   int
	ip   string
	bus  *protocol.Bus
	deps Deps
	log  *slog.Logger

	state State

	account     *db.Account
	character   *model.Character // owned only outside the in-game map
	characterID int
	mapID       int
	guildTag    string // cached at enter, the map owns the live value

	sessionID   int // nonce bound at character select
	loginFails  int
	pendingWarp *warpCommand
	needPong    bool

	commands chan command
	packets  chan protocol.Packet
	readErr  chan error
}

// New wraps an accepted connection in a session actor.
func New(id int, ip string, bus *protocol.Bus, deps Deps) *Player {
	return &Player{
		id:       id,
		ip:       ip,
		bus:      bus,
		deps:     deps,
		log:      slog.With("player", id, "ip", ip),
		commands: make(chan command, 64),
		packets:  make(chan protocol.Packet, 16),
		readErr:  make(chan error, 1),
	}
}

// ID returns the session's player id.
func (p *Player) ID() int {
	return p.id
}

// Handle returns the surface other actors use to reach this session.
func (p *Player) Handle() *Handle {
	return &Handle{player: p}
}

// Run drives the session until the connection drops or the session closes.
func (p *Player) Run(ctx context.Context) {
	go p.readLoop()

	pingRate := p.deps.Config.Server.PingRate
	if pingRate <= 0 {
		pingRate = time.Minute
	}
	ping := time.NewTicker(pingRate)
	defer ping.Stop()

	defer p.shutdown()

	for p.state != StateClosed {
		select {
		case <-ctx.Done():
			return
		case err := <-p.readErr:
			if err != nil {
				p.log.Debug("session read ended", "error", err)
			}
			return
		case pkt := <-p.packets:
			p.handlePacket(pkt)
		case cmd := <-p.commands:
			p.handleCommand(cmd)
		case <-ping.C:
			if p.needPong {
				p.log.Info("ping timeout")
				return
			}
			p.sendPing()
		}
	}
}

func (p *Player) readLoop() {
	for {
		pkt, err := p.bus.Recv()
		if err != nil {
			p.readErr <- err
			return
		}
		p.packets <- pkt
	}
}

func (p *Player) handleCommand(cmd command) {
	switch c := cmd.(type) {
	case warpCommand:
		p.beginWarp(c)
	case closeCommand:
		p.log.Info("session closed by server", "reason", c.Reason)
		p.state = StateClosed
	case partyUpdateCommand:
		_ = p.bus.Send(c.Action, protocol.FamilyParty, c.Body)
	}
}

// handlePacket routes one inbound packet by session state: before the
// handshake only Init is legal, before login only the account and login
// families, and the in-game families only once a character is on a map.
func (p *Player) handlePacket(pkt protocol.Packet) {
	if pkt.Family == protocol.FamilyInit {
		p.handleInit(pkt)
		return
	}

	switch p.state {
	case StateUninitialized:
		p.log.Warn("packet before handshake", "family", pkt.Family.String())
		p.state = StateClosed
	case StateInitialized:
		p.handlePreLogin(pkt)
	case StateLoggedIn, StateEnteringGame:
		p.handleLobby(pkt)
	case StateInGame:
		p.handleInGame(pkt)
	}
}

func (p *Player) handlePreLogin(pkt protocol.Packet) {
	switch {
	case pkt.Family == protocol.FamilyConnection && pkt.Action == protocol.ActionPing:
		p.needPong = false
	case pkt.Family == protocol.FamilyConnection && pkt.Action == protocol.ActionAccept:
		// Client acknowledging the handshake multiples.
	case pkt.Family == protocol.FamilyLogin && pkt.Action == protocol.ActionRequest:
		p.handleLogin(pkt.Reader)
	case pkt.Family == protocol.FamilyAccount:
		p.handleAccount(pkt)
	default:
		p.log.Debug("unexpected pre-login packet", "family", pkt.Family.String())
	}
}

func (p *Player) handleLobby(pkt protocol.Packet) {
	switch {
	case pkt.Family == protocol.FamilyConnection && pkt.Action == protocol.ActionPing:
		p.needPong = false
	case pkt.Family == protocol.FamilyCharacter:
		p.handleCharacter(pkt)
	case pkt.Family == protocol.FamilyWelcome:
		p.handleWelcome(pkt)
	default:
		p.log.Debug("unexpected lobby packet", "family", pkt.Family.String())
	}
}

// sendPing re-seeds the client's sequence and expects a ping back before the
// next tick of the ping timer.
func (p *Player) sendPing() {
	if p.state == StateUninitialized {
		return
	}
	seq := protocol.GeneratePingSequence()
	w := protocol.NewWriter()
	w.AddShort(seq.Seq1)
	w.AddChar(seq.Seq2)
	if err := p.bus.Send(protocol.ActionPlayer, protocol.FamilyConnection, w.Bytes()); err != nil {
		p.state = StateClosed
		return
	}
	p.bus.ReseedSequence(seq.Start)
	p.needPong = true
}

// shutdown tears the session down: the character is pulled off its map,
// its usage clock is settled and it is saved before the slot is released.
func (p *Player) shutdown() {
	defer p.bus.Close()

	char := p.character
	if p.state == StateInGame && char == nil {
		char = p.retrieveCharacter(model.WarpAnimationNone)
	}
	if char != nil {
		char.Usage += int(time.Since(char.LoggedInAt).Minutes())
		p.deps.World.SaveCharacter(char)
		p.deps.World.UnregisterCharacter(char.Name)
	}
	if p.account != nil {
		p.deps.World.Logout(p.account.ID)
	}
	p.state = StateClosed
}

// retrieveCharacter pulls the character back from its current map.
func (p *Player) retrieveCharacter(warpAnim int) *model.Character {
	m, ok := p.deps.World.MapFor(p.mapID)
	if !ok {
		return nil
	}
	reply := make(chan *model.Character, 1)
	if !m.Send(maps.Leave{PlayerID: p.id, WarpAnim: warpAnim, Reply: reply}) {
		return nil
	}
	select {
	case char := <-reply:
		return char
	case <-time.After(5 * time.Second):
		p.log.Error("map did not release character", "map", p.mapID)
		return nil
	}
}
