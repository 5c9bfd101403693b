package player

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/maps"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Welcome reply codes.
const (
	welcomeSelectCharacter = 1
	welcomeEnterGame       = 2
)

// File types a client may request during the welcome flow. The world serves
// pub images keyed by these values.
const (
	FileTypeMap   = 1
	FileTypeItem  = 2
	FileTypeNpc   = 3
	FileTypeSpell = 4
	FileTypeClass = 5
)

// handleWelcome drives the gap between account login and the game: select
// a character, stream data files, enter the world.
func (p *Player) handleWelcome(pkt protocol.Packet) {
	switch pkt.Action {
	case protocol.ActionRequest:
		p.handleSelectCharacter(pkt.Reader)
	case protocol.ActionAgree:
		p.handleFileRequest(pkt.Reader)
	case protocol.ActionMsg:
		p.handleEnterGame(pkt.Reader)
	}
}

// handleSelectCharacter loads the chosen character and binds the session
// nonce used by the rest of the flow.
func (p *Player) handleSelectCharacter(r *protocol.Reader) {
	id := r.GetInt()
	if !p.ownsCharacter(id) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	char, err := p.deps.Chars.Load(ctx, id)
	if err != nil {
		p.log.Error("loading character failed", "error", err)
		p.state = StateClosed
		return
	}
	char.PlayerID = p.id
	char.LoggedInAt = time.Now()
	char.CalculateStats(p.deps.Pub, p.deps.Formulas)

	// A character on a missing map is rescued.
	if _, ok := p.deps.World.MapFor(char.MapID); !ok {
		rescue := p.deps.Config.Rescue
		char.MapID = rescue.Map
		char.Coords = model.Coords{X: rescue.X, Y: rescue.Y}
	}

	p.character = char
	p.characterID = id
	p.mapID = char.MapID
	p.sessionID = 1 + rand.IntN(protocol.ShortMax-1)
	p.state = StateEnteringGame

	rid, size := p.mapRidAndSize(char.MapID)

	w := protocol.NewWriter()
	w.AddShort(welcomeSelectCharacter)
	w.AddShort(p.sessionID)
	w.AddInt(id)
	w.AddShort(char.MapID)
	w.AddBytes(rid[:])
	w.AddThree(size)
	w.AddBreakString(char.Name)
	w.AddBreakString(char.Title)
	w.AddBreakString(char.GuildName)
	w.AddBreakString(char.GuildRankString)
	w.AddShort(char.Class)
	w.AddString(padGuildTag(char.GuildTag))
	w.AddChar(int(char.Admin))
	w.AddChar(char.Level)
	w.AddInt(int(char.Experience))
	w.AddInt(char.Usage)
	w.AddShort(char.HP)
	w.AddShort(char.MaxHP)
	w.AddShort(char.TP)
	w.AddShort(char.MaxTP)
	w.AddShort(char.MaxSP)
	w.AddShort(char.StatPoints)
	w.AddShort(char.SkillPoints)
	w.AddShort(char.Karma)
	w.AddShort(char.MinDamage)
	w.AddShort(char.MaxDamage)
	w.AddShort(char.Accuracy)
	w.AddShort(char.Evasion)
	w.AddShort(char.Armor)
	w.AddShort(char.AdjStr)
	w.AddShort(char.AdjInt)
	w.AddShort(char.AdjWis)
	w.AddShort(char.AdjAgi)
	w.AddShort(char.AdjCon)
	w.AddShort(char.AdjCha)
	for _, itemID := range char.Paperdoll {
		w.AddShort(itemID)
	}
	w.AddByte(0xFF)
	_ = p.bus.Send(protocol.ActionReply, protocol.FamilyWelcome, w.Bytes())
}

// handleFileRequest streams one data file. The session nonce must match.
func (p *Player) handleFileRequest(r *protocol.Reader) {
	fileType := r.GetChar()
	session := r.GetShort()
	if session != p.sessionID || p.sessionID == 0 {
		p.log.Warn("file request with bad session", "got", session)
		p.state = StateClosed
		return
	}

	var data []byte
	if fileType == FileTypeMap {
		data = p.deps.World.MapFile(p.mapID)
	} else {
		data = p.deps.World.PubFile(fileType)
	}
	if data == nil {
		p.log.Error("requested file missing", "type", fileType)
		p.state = StateClosed
		return
	}

	w := protocol.NewWriter()
	w.AddChar(fileType)
	if fileType != FileTypeMap {
		w.AddChar(1) // file id
	}
	w.AddBytes(data)
	_ = p.bus.Send(protocol.ActionInit, protocol.FamilyInit, w.Bytes())
}

// handleEnterGame hands the character to its map and sends the welcome
// payload: news, weight, inventory, spells and everything in range.
func (p *Player) handleEnterGame(r *protocol.Reader) {
	session := r.GetShort()
	if session != p.sessionID || p.character == nil {
		p.state = StateClosed
		return
	}
	char := p.character

	m, ok := p.deps.World.MapFor(char.MapID)
	if !ok {
		p.state = StateClosed
		return
	}

	p.character = nil
	p.state = StateInGame
	p.guildTag = char.GuildTag
	p.deps.World.RegisterCharacter(char.Name, char.GuildTag, p.id)
	m.Send(maps.Enter{Character: char, Conn: p.Handle()})

	nearby := p.requestNearby(m)

	w := protocol.NewWriter()
	w.AddShort(welcomeEnterGame)
	w.AddByte(0xFF)
	for i, line := range p.newsLines() {
		w.AddBreakString(line)
		if i == 8 {
			break
		}
	}
	w.AddChar(char.DisplayWeight())
	w.AddChar(char.DisplayMaxWeight())
	for _, it := range char.Items {
		w.AddShort(it.ID)
		w.AddInt(it.Amount)
	}
	w.AddByte(0xFF)
	for _, s := range char.Spells {
		w.AddShort(s.ID)
		w.AddShort(s.Level)
	}
	w.AddByte(0xFF)
	writeNearby(w, nearby)
	_ = p.bus.Send(protocol.ActionReply, protocol.FamilyWelcome, w.Bytes())

	p.log.Info("entered game", "character", char.Name, "map", char.MapID)
}

// newsLines pads the news to the nine lines the client renders.
func (p *Player) newsLines() []string {
	news := p.deps.World.News()
	for len(news) < 9 {
		news = append(news, "")
	}
	return news
}

func (p *Player) requestNearby(m *maps.Map) maps.NearbyReply {
	reply := make(chan maps.NearbyReply, 1)
	if !m.Send(maps.NearbyInfo{PlayerID: p.id, Reply: reply}) {
		return maps.NearbyReply{}
	}
	select {
	case nearby := <-reply:
		return nearby
	case <-time.After(5 * time.Second):
		return maps.NearbyReply{}
	}
}

func writeNearby(w *protocol.Writer, nearby maps.NearbyReply) {
	w.AddChar(len(nearby.Characters))
	w.AddByte(0xFF)
	for _, info := range nearby.Characters {
		writeCharacterMapInfo(w, info)
	}
	for _, info := range nearby.Npcs {
		w.AddChar(info.Index)
		w.AddShort(info.ID)
		w.AddChar(info.Coords.X)
		w.AddChar(info.Coords.Y)
		w.AddChar(int(info.Direction))
	}
	w.AddByte(0xFF)
	for _, info := range nearby.Items {
		w.AddShort(info.Index)
		w.AddShort(info.ID)
		w.AddChar(info.Coords.X)
		w.AddChar(info.Coords.Y)
		w.AddThree(info.Amount)
	}
}

// writeCharacterMapInfo mirrors the map actor's appear layout so the client
// parses both identically.
func writeCharacterMapInfo(w *protocol.Writer, info model.CharacterMapInfo) {
	w.AddBreakString(info.Name)
	w.AddShort(info.PlayerID)
	w.AddShort(info.MapID)
	w.AddShort(info.Coords.X)
	w.AddShort(info.Coords.Y)
	w.AddChar(int(info.Direction))
	w.AddChar(6)
	w.AddString(padGuildTag(info.GuildTag))
	w.AddChar(info.Level)
	w.AddChar(int(info.Gender))
	w.AddChar(info.HairStyle)
	w.AddChar(info.HairColor)
	w.AddChar(info.Skin)
	w.AddShort(info.MaxHP)
	w.AddShort(info.HP)
	w.AddShort(info.MaxTP)
	w.AddShort(info.TP)
	w.AddShort(info.Boots)
	w.AddShort(0)
	w.AddShort(0)
	w.AddShort(0)
	w.AddShort(info.Armor)
	w.AddShort(0)
	w.AddShort(info.Hat)
	w.AddShort(info.Shield)
	w.AddShort(info.Weapon)
	w.AddChar(int(info.SitState))
	if info.Hidden {
		w.AddChar(1)
	} else {
		w.AddChar(0)
	}
	w.AddByte(0xFF)
}

// padGuildTag renders a guild tag as exactly three characters.
func padGuildTag(tag string) string {
	for len(tag) < 3 {
		tag += " "
	}
	return tag[:3]
}

func (p *Player) mapRidAndSize(mapID int) ([4]byte, int) {
	m, ok := p.deps.World.MapFor(mapID)
	if !ok {
		return [4]byte{}, 0
	}
	reply := make(chan maps.RidAndSizeReply, 1)
	if !m.Send(maps.RidAndSize{Reply: reply}) {
		return [4]byte{}, 0
	}
	select {
	case rs := <-reply:
		return rs.Rid, rs.Size
	case <-time.After(5 * time.Second):
		return [4]byte{}, 0
	}
}
