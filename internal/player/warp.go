package player

import (
	"github.com/sorokya/reoserv-sub000/internal/maps"
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

const (
	warpLocal     = 1
	warpRemote    = 2
	warpEnterGame = 2
)

// beginWarp answers a map's warp request. For a local warp the client only
// needs the go-ahead; for a map switch it needs the target's revision id and
// file size so it can decide whether to ask for the file first.
func (p *Player) beginWarp(c warpCommand) {
	if p.state != StateInGame {
		return
	}
	p.pendingWarp = &c

	w := protocol.NewWriter()
	if c.Local {
		w.AddChar(warpLocal)
		w.AddShort(c.MapID)
	} else {
		rid, size := p.mapRidAndSize(c.MapID)
		w.AddChar(warpRemote)
		w.AddShort(c.MapID)
		w.AddBytes(rid[:])
		w.AddThree(size)
	}
	if err := p.bus.Send(protocol.ActionRequest, protocol.FamilyWarp, w.Bytes()); err != nil {
		p.pendingWarp = nil
		p.state = StateClosed
	}
}

func (p *Player) handleWarpPacket(pkt protocol.Packet) {
	switch pkt.Action {
	case protocol.ActionAccept:
		p.handleWarpAccept(pkt.Reader)
	case protocol.ActionTake:
		p.handleWarpTake()
	}
}

// handleWarpAccept completes a pending warp: pull the character off the old
// map, move it, hand it to the new map, and resend everything in range.
func (p *Player) handleWarpAccept(r *protocol.Reader) {
	warp := p.pendingWarp
	if warp == nil {
		p.log.Warn("warp accept with no pending warp")
		return
	}
	p.pendingWarp = nil

	if got := r.GetShort(); got != warp.MapID {
		p.log.Warn("warp accept for wrong map", "got", got, "want", warp.MapID)
		return
	}

	char := p.retrieveCharacter(warp.Animation)
	if char == nil {
		p.state = StateClosed
		return
	}
	char.MapID = warp.MapID
	char.Coords = warp.Coords
	char.SitState = model.SitStand

	m, ok := p.deps.World.MapFor(warp.MapID)
	if !ok {
		// Target vanished between request and accept; keep ownership and
		// let shutdown save the character where it stands.
		p.character = char
		p.state = StateClosed
		return
	}
	p.mapID = warp.MapID
	m.Send(maps.Enter{Character: char, Conn: p.Handle(), WarpAnim: warp.Animation})

	nearby := p.requestNearby(m)

	w := protocol.NewWriter()
	w.AddChar(warpEnterGame)
	writeNearby(w, nearby)
	_ = p.bus.Send(protocol.ActionAgree, protocol.FamilyWarp, w.Bytes())
}

// handleWarpTake streams the pending target map's file mid-warp.
func (p *Player) handleWarpTake() {
	warp := p.pendingWarp
	if warp == nil {
		return
	}
	data := p.deps.World.MapFile(warp.MapID)
	if data == nil {
		p.log.Error("warp target map file missing", "map", warp.MapID)
		p.state = StateClosed
		return
	}
	w := protocol.NewWriter()
	w.AddChar(FileTypeMap)
	w.AddBytes(data)
	_ = p.bus.Send(protocol.ActionInit, protocol.FamilyInit, w.Bytes())
}
