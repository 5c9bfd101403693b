package player

import (
	"strings"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/maps"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

const (
	sitActionSit   = 1
	sitActionStand = 2
)

// handleInGame routes one in-game packet. Most families become a single map
// command carrying what the reader held; the map actor does all validation.
func (p *Player) handleInGame(pkt protocol.Packet) {
	r := pkt.Reader
	switch pkt.Family {
	case protocol.FamilyConnection:
		if pkt.Action == protocol.ActionPing {
			p.needPong = false
		}
	case protocol.FamilyWalk:
		p.toMap(maps.Walk{
			PlayerID:  p.id,
			Direction: model.Direction(r.GetChar()),
			Timestamp: r.GetThree(),
			Coords:    model.Coords{X: r.GetChar(), Y: r.GetChar()},
		})
	case protocol.FamilyFace:
		p.toMap(maps.Face{PlayerID: p.id, Direction: model.Direction(r.GetChar())})
	case protocol.FamilySit:
		switch r.GetChar() {
		case sitActionSit:
			p.toMap(maps.Sit{PlayerID: p.id})
		case sitActionStand:
			p.toMap(maps.Stand{PlayerID: p.id})
		}
	case protocol.FamilyChair:
		p.toMap(maps.Sit{
			PlayerID: p.id,
			Coords:   model.Coords{X: r.GetChar(), Y: r.GetChar()},
			Chair:    true,
		})
	case protocol.FamilyAttack:
		p.toMap(maps.Attack{
			PlayerID:  p.id,
			Direction: model.Direction(r.GetChar()),
			Timestamp: r.GetThree(),
		})
	case protocol.FamilySpell:
		p.handleSpell(pkt)
	case protocol.FamilyItem:
		p.handleItem(pkt)
	case protocol.FamilyChest:
		p.handleChest(pkt)
	case protocol.FamilyDoor:
		if pkt.Action == protocol.ActionOpen {
			p.toMap(maps.OpenDoor{
				PlayerID: p.id,
				Coords:   model.Coords{X: r.GetChar(), Y: r.GetChar()},
			})
		}
	case protocol.FamilyEmote:
		if pkt.Action == protocol.ActionReport {
			p.toMap(maps.Emote{PlayerID: p.id, Emote: r.GetChar()})
		}
	case protocol.FamilyTalk:
		p.handleTalk(pkt)
	case protocol.FamilyRefresh:
		p.toMap(maps.Refresh{PlayerID: p.id})
	case protocol.FamilyJukebox:
		if pkt.Action == protocol.ActionMsg {
			p.toMap(maps.PlayJukebox{PlayerID: p.id, TrackID: r.GetShort()})
		}
	case protocol.FamilyPriest:
		p.handlePriest(pkt)
	case protocol.FamilyMarriage:
		if pkt.Action == protocol.ActionRequest {
			p.toMap(maps.DivorceRequest{PlayerID: p.id})
		}
	case protocol.FamilyParty:
		p.deps.World.PartyCommand(p.id, pkt.Action, r)
	case protocol.FamilyGuild:
		p.handleGuild(pkt)
	case protocol.FamilyWarp:
		p.handleWarpPacket(pkt)
	default:
		p.log.Debug("unhandled in-game packet",
			"family", pkt.Family.String(), "action", int(pkt.Action))
	}
}

// toMap forwards a command to the session's current map.
func (p *Player) toMap(cmd maps.Command) {
	m, ok := p.deps.World.MapFor(p.mapID)
	if !ok {
		return
	}
	m.Send(cmd)
}

func (p *Player) handleSpell(pkt protocol.Packet) {
	r := pkt.Reader
	switch pkt.Action {
	case protocol.ActionRequest:
		p.toMap(maps.CastSpellRequest{
			PlayerID:  p.id,
			SpellID:   r.GetShort(),
			Timestamp: r.GetThree(),
		})
	case protocol.ActionTargetSelf:
		r.GetChar() // direction, unused
		p.toMap(maps.CastSpellSelf{
			PlayerID:  p.id,
			SpellID:   r.GetShort(),
			Timestamp: r.GetThree(),
		})
	case protocol.ActionTargetOther:
		targetNpc := r.GetChar() == 2
		r.GetChar() // previous timestamp byte, unused
		spellID := r.GetShort()
		targetID := r.GetShort()
		p.toMap(maps.CastSpellOther{
			PlayerID:  p.id,
			SpellID:   spellID,
			TargetID:  targetID,
			TargetNpc: targetNpc,
			Timestamp: r.GetThree(),
		})
	case protocol.ActionTargetGroup:
		p.toMap(maps.CastSpellGroup{
			PlayerID:  p.id,
			SpellID:   r.GetShort(),
			Timestamp: r.GetThree(),
		})
	}
}

func (p *Player) handleItem(pkt protocol.Packet) {
	r := pkt.Reader
	switch pkt.Action {
	case protocol.ActionDrop:
		itemID := r.GetShort()
		amount := r.GetInt()
		// 0xFF,0xFF means "at my feet".
		var coords model.Coords
		if b := r.GetByte(); b != 0xFF {
			coords.X = protocol.DecodeNumber(b)
			coords.Y = r.GetChar()
		}
		p.toMap(maps.DropItem{PlayerID: p.id, ItemID: itemID, Amount: amount, Coords: coords})
	case protocol.ActionGet:
		p.toMap(maps.PickUpItem{PlayerID: p.id, ItemIndex: r.GetShort()})
	case protocol.ActionJunk:
		p.toMap(maps.JunkItem{PlayerID: p.id, ItemID: r.GetShort(), Amount: r.GetInt()})
	}
}

func (p *Player) handleChest(pkt protocol.Packet) {
	r := pkt.Reader
	switch pkt.Action {
	case protocol.ActionOpen:
		p.toMap(maps.OpenChest{
			PlayerID: p.id,
			Coords:   model.Coords{X: r.GetChar(), Y: r.GetChar()},
		})
	case protocol.ActionTake:
		coords := model.Coords{X: r.GetChar(), Y: r.GetChar()}
		p.toMap(maps.TakeChestItem{PlayerID: p.id, Coords: coords, ItemID: r.GetShort()})
	case protocol.ActionAdd:
		coords := model.Coords{X: r.GetChar(), Y: r.GetChar()}
		p.toMap(maps.AddChestItem{
			PlayerID: p.id,
			Coords:   coords,
			ItemID:   r.GetShort(),
			Amount:   r.GetInt(),
		})
	}
}

func (p *Player) handleTalk(pkt protocol.Packet) {
	r := pkt.Reader
	switch pkt.Action {
	case protocol.ActionReport:
		message := r.GetEndString()
		if strings.HasPrefix(message, "$") {
			p.runAdminCommand(strings.TrimPrefix(message, "$"))
			return
		}
		p.toMap(maps.TalkMessage{PlayerID: p.id, Message: message})
	case protocol.ActionMsg:
		p.deps.World.GlobalMessage(p.id, p.characterName(), r.GetEndString())
	case protocol.ActionRequest:
		if p.guildTag != "" {
			p.deps.World.GuildMessage(p.id, p.guildTag, p.characterName(), r.GetEndString())
		}
	case protocol.ActionOpen:
		p.deps.World.PartyMessage(p.id, r.GetEndString())
	case protocol.ActionTell:
		target := r.GetBreakString()
		message := r.GetEndString()
		if !p.deps.World.TellMessage(p.characterName(), target, message) {
			w := protocol.NewWriter()
			w.AddBreakString(target)
			_ = p.bus.Send(protocol.ActionReply, protocol.FamilyTalk, w.Bytes())
		}
	case protocol.ActionAnnounce:
		p.deps.World.AnnounceMessage(p.characterName(), r.GetEndString())
	}
}

// runAdminCommand hands a $command to the world and echoes its answer back
// as a server message.
func (p *Player) runAdminCommand(command string) {
	char := p.snapshotSelf()
	if char == nil {
		return
	}
	reply := p.deps.World.AdminCommand(p.id, char, command)
	if reply == "" {
		return
	}
	w := protocol.NewWriter()
	w.AddString(reply)
	_ = p.bus.Send(protocol.ActionServer, protocol.FamilyTalk, w.Bytes())
}

func (p *Player) handlePriest(pkt protocol.Packet) {
	r := pkt.Reader
	switch pkt.Action {
	case protocol.ActionRequest:
		r.GetInt() // session, unused
		npcIndex := r.GetShort()
		p.toMap(maps.RequestWedding{
			PlayerID:    p.id,
			NpcIndex:    npcIndex,
			PartnerName: strings.ToLower(r.GetEndString()),
		})
	case protocol.ActionAccept:
		p.toMap(maps.AcceptWedding{PlayerID: p.id})
	}
}

// characterName resolves the session's character name without touching map
// state; the map owns the character while in game.
func (p *Player) characterName() string {
	if p.character != nil {
		return p.character.Name
	}
	if char := p.snapshotSelf(); char != nil {
		return char.Name
	}
	return ""
}

// snapshotSelf asks the current map for a copy of the session's character.
func (p *Player) snapshotSelf() *model.Character {
	if p.character != nil {
		return p.character
	}
	m, ok := p.deps.World.MapFor(p.mapID)
	if !ok {
		return nil
	}
	reply := make(chan *model.Character, 1)
	if !m.Send(maps.CharacterSnapshot{PlayerID: p.id, Reply: reply}) {
		return nil
	}
	select {
	case char := <-reply:
		return char
	case <-time.After(5 * time.Second):
		return nil
	}
}
