package player

import (
	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Handle is the thread-safe surface other actors use to reach a session.
// It satisfies the map actor's Sender. Packet sends go straight to the bus
// writer queue; everything touching session state is enqueued as a command.
type Handle struct {
	player *Player
}

// PlayerID returns the session id.
func (h *Handle) PlayerID() int {
	return h.player.id
}

// Send enqueues a packet onto the session's write queue.
func (h *Handle) Send(action protocol.PacketAction, family protocol.PacketFamily, body []byte) {
	_ = h.player.bus.Send(action, family, body)
}

// RequestWarp asks the session to run a warp flow.
func (h *Handle) RequestWarp(mapID int, coords model.Coords, local bool, animation int) {
	h.enqueue(warpCommand{MapID: mapID, Coords: coords, Local: local, Animation: animation})
}

// Close asks the session to terminate.
func (h *Handle) Close(reason string) {
	h.enqueue(closeCommand{Reason: reason})
}

// PartyUpdate pushes a party-family packet built by the world.
func (h *Handle) PartyUpdate(action protocol.PacketAction, body []byte) {
	h.enqueue(partyUpdateCommand{Action: action, Body: body})
}

// enqueue drops the command if the session's queue is full; a session that
// far behind is about to be torn down anyway.
func (h *Handle) enqueue(cmd command) {
	select {
	case h.player.commands <- cmd:
	default:
	}
}
