package player

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

func (p *Player) handleGuild(pkt protocol.Packet) {
	r := pkt.Reader
	switch pkt.Action {
	case protocol.ActionReport:
		r.GetInt() // client session, unused
		tag := strings.ToUpper(strings.TrimSpace(r.GetEndString()))
		if tag != "" {
			p.sendGuildReport(tag)
		}
	}
}

// sendGuildReport answers a guild lookup with the summary, the nine rank
// names and the staff roster.
func (p *Player) sendGuildReport(tag string) {
	if p.deps.Guilds == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	details, err := p.deps.Guilds.GetGuildDetails(ctx, tag)
	if err != nil {
		p.log.Error("guild lookup failed", "tag", tag, "error", err)
		return
	}
	if details == nil {
		return
	}

	w := protocol.NewWriter()
	w.AddBreakString(details.Name)
	w.AddBreakString(details.Tag)
	w.AddBreakString(details.CreatedAt)
	w.AddBreakString(details.Description)
	w.AddBreakString(strconv.Itoa(details.Bank))
	for _, rank := range details.Ranks {
		w.AddBreakString(rank)
	}
	w.AddShort(len(details.Staff))
	w.AddByte(0xFF)
	for _, m := range details.Staff {
		w.AddChar(m.Rank)
		w.AddBreakString(m.Name)
	}
	_ = p.bus.Send(protocol.ActionReport, protocol.FamilyGuild, w.Bytes())
}
