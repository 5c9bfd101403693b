package player

import (
	"context"
	"strings"

	"github.com/sorokya/reoserv-sub000/internal/db"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Character reply codes.
const (
	characterExists     = 1
	characterFull       = 2
	characterNotAllowed = 4
	characterOK         = 5
	characterDeleted    = 6
	characterContinue   = 1000
)

const maxCharactersPerAccount = 3

// handleCharacter serves the character screen: creation approval, creation,
// and deletion.
func (p *Player) handleCharacter(pkt protocol.Packet) {
	switch pkt.Action {
	case protocol.ActionRequest:
		p.handleCharacterRequest()
	case protocol.ActionCreate:
		p.handleCharacterCreate(pkt.Reader)
	case protocol.ActionTake:
		p.handleCharacterTake(pkt.Reader)
	case protocol.ActionRemove:
		p.handleCharacterRemove(pkt.Reader)
	}
}

func (p *Player) handleCharacterRequest() {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	count, err := p.deps.Accounts.CharacterCount(ctx, p.account.ID)
	if err != nil {
		p.log.Error("counting characters failed", "error", err)
		p.state = StateClosed
		return
	}

	w := protocol.NewWriter()
	if count >= maxCharactersPerAccount {
		w.AddShort(characterFull)
	} else {
		w.AddShort(characterContinue)
		w.AddString("OK")
	}
	_ = p.bus.Send(protocol.ActionReply, protocol.FamilyCharacter, w.Bytes())
}

func (p *Player) handleCharacterCreate(r *protocol.Reader) {
	r.GetShort() // session id
	gender := r.GetShort()
	hairStyle := r.GetShort()
	hairColor := r.GetShort()
	skin := r.GetShort()
	r.GetByte() // break
	name := strings.ToLower(r.GetBreakString())

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if !validCharacterName(name) {
		p.sendCharacterReply(characterNotAllowed, nil)
		return
	}
	taken, err := p.deps.Chars.NameExists(ctx, name)
	if err != nil {
		p.log.Error("character name check failed", "error", err)
		p.state = StateClosed
		return
	}
	if taken {
		p.sendCharacterReply(characterExists, nil)
		return
	}
	count, err := p.deps.Accounts.CharacterCount(ctx, p.account.ID)
	if err != nil {
		p.log.Error("counting characters failed", "error", err)
		p.state = StateClosed
		return
	}
	if count >= maxCharactersPerAccount {
		p.sendCharacterReply(characterFull, nil)
		return
	}

	spawn := p.deps.Config.NewCharacter
	char := &model.Character{
		AccountID: p.account.ID,
		Name:      name,
		Home:      spawn.Home,
		Gender:    model.Gender(gender),
		Skin:      skin,
		HairStyle: hairStyle,
		HairColor: hairColor,
		Level:     1,
		MapID:     spawn.SpawnMap,
		Coords:    model.Coords{X: spawn.SpawnX, Y: spawn.SpawnY},
		Direction: model.Direction(spawn.SpawnDirection),
	}
	char.CalculateStats(p.deps.Pub, p.deps.Formulas)
	char.HP = char.MaxHP
	char.TP = char.MaxTP

	if _, err := p.deps.Chars.Create(ctx, char); err != nil {
		p.log.Error("creating character failed", "error", err)
		p.state = StateClosed
		return
	}
	p.log.Info("character created", "name", name)

	summaries, err := p.deps.Chars.List(ctx, p.account.ID)
	if err != nil {
		p.log.Error("listing characters failed", "error", err)
		p.state = StateClosed
		return
	}
	p.sendCharacterListReply(characterOK, summaries)
}

// handleCharacterTake is the pre-delete confirmation carrying the id the
// client is about to remove.
func (p *Player) handleCharacterTake(r *protocol.Reader) {
	id := r.GetInt()
	if !p.ownsCharacter(id) {
		return
	}
	w := protocol.NewWriter()
	w.AddShort(characterContinue)
	w.AddInt(id)
	_ = p.bus.Send(protocol.ActionPlayer, protocol.FamilyCharacter, w.Bytes())
}

func (p *Player) handleCharacterRemove(r *protocol.Reader) {
	r.GetShort() // session id
	id := r.GetInt()
	if !p.ownsCharacter(id) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if err := p.deps.Chars.Delete(ctx, id); err != nil {
		p.log.Error("deleting character failed", "error", err)
		p.state = StateClosed
		return
	}
	p.log.Info("character deleted", "character_id", id)

	summaries, err := p.deps.Chars.List(ctx, p.account.ID)
	if err != nil {
		p.log.Error("listing characters failed", "error", err)
		p.state = StateClosed
		return
	}
	p.sendCharacterListReply(characterDeleted, summaries)
}

// ownsCharacter guards deletion against ids from other accounts.
func (p *Player) ownsCharacter(id int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	summaries, err := p.deps.Chars.List(ctx, p.account.ID)
	if err != nil {
		p.log.Error("listing characters failed", "error", err)
		return false
	}
	for _, s := range summaries {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (p *Player) sendCharacterReply(code int, extra []byte) {
	w := protocol.NewWriter()
	w.AddShort(code)
	w.AddString("NO")
	w.AddBytes(extra)
	_ = p.bus.Send(protocol.ActionReply, protocol.FamilyCharacter, w.Bytes())
}

func (p *Player) sendCharacterListReply(code int, summaries []db.CharacterSummary) {
	w := protocol.NewWriter()
	w.AddShort(code)
	writeCharacterList(w, summaries)
	_ = p.bus.Send(protocol.ActionReply, protocol.FamilyCharacter, w.Bytes())
}

// validCharacterName enforces lowercase letters only, 4..12 runes.
func validCharacterName(name string) bool {
	if len(name) < 4 || len(name) > 12 {
		return false
	}
	for _, c := range name {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
