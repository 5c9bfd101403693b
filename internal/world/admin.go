package world

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/model"
)

// BanStore bans the account owning a character. *db.CharacterRepository
// satisfies it.
type BanStore interface {
	BanAccountOf(ctx context.Context, characterName string) error
}

// SetBanStore wires the repository used by the $ban command.
func (w *Coordinator) SetBanStore(bans BanStore) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bans = bans
}

// AdminCommand executes a $-prefixed chat command. The returned string is
// echoed back to the issuer as a server message; empty means silence.
func (w *Coordinator) AdminCommand(issuerID int, issuer *model.Character, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "jail":
		return w.adminJail(issuer, args, true)
	case "free":
		return w.adminJail(issuer, args, false)
	case "kick":
		return w.adminKick(issuer, args)
	case "ban":
		return w.adminBan(issuer, args)
	case "warp":
		return w.adminWarp(issuerID, issuer, args)
	case "warptome":
		return w.adminWarpToMe(issuerID, issuer, args)
	default:
		return fmt.Sprintf("unknown command %q", verb)
	}
}

// adminJail moves a character into (or out of) the jail map.
func (w *Coordinator) adminJail(issuer *model.Character, args []string, in bool) string {
	if issuer.Admin < model.AdminGuardian {
		return ""
	}
	if len(args) != 1 {
		return "usage: $jail <name> / $free <name>"
	}
	s, ok := w.SessionByName(args[0])
	if !ok {
		return fmt.Sprintf("%s is not online", args[0])
	}

	if in {
		jail := w.cfg.Jail
		s.RequestWarp(jail.Map, model.Coords{X: jail.X, Y: jail.Y}, false, model.WarpAnimationAdmin)
		return fmt.Sprintf("%s jailed", args[0])
	}
	rescue := w.cfg.Rescue
	s.RequestWarp(rescue.Map, model.Coords{X: rescue.X, Y: rescue.Y}, false, model.WarpAnimationAdmin)
	return fmt.Sprintf("%s freed", args[0])
}

func (w *Coordinator) adminKick(issuer *model.Character, args []string) string {
	if issuer.Admin < model.AdminGuardian {
		return ""
	}
	if len(args) != 1 {
		return "usage: $kick <name>"
	}
	s, ok := w.SessionByName(args[0])
	if !ok {
		return fmt.Sprintf("%s is not online", args[0])
	}
	s.Close("kicked by " + issuer.Name)
	w.AnnounceMessage("server", fmt.Sprintf("%s was kicked from the server", args[0]))
	return fmt.Sprintf("%s kicked", args[0])
}

// adminBan bans the target's account, then kicks any live session.
func (w *Coordinator) adminBan(issuer *model.Character, args []string) string {
	if issuer.Admin < model.AdminGameMaster {
		return ""
	}
	if len(args) != 1 {
		return "usage: $ban <name>"
	}

	w.mu.Lock()
	bans := w.bans
	w.mu.Unlock()
	if bans == nil {
		return "ban store not configured"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bans.BanAccountOf(ctx, strings.ToLower(args[0])); err != nil {
		w.log.Error("banning account failed", "target", args[0], "error", err)
		return "ban failed"
	}
	if s, ok := w.SessionByName(args[0]); ok {
		s.Close("banned by " + issuer.Name)
	}
	w.AnnounceMessage("server", fmt.Sprintf("%s was banned from the server", args[0]))
	return fmt.Sprintf("%s banned", args[0])
}

// adminWarp teleports the issuer: $warp <map> [x y].
func (w *Coordinator) adminWarp(issuerID int, issuer *model.Character, args []string) string {
	if issuer.Admin < model.AdminGuardian {
		return ""
	}
	var mapID, x, y int
	switch len(args) {
	case 1:
		if _, err := fmt.Sscanf(args[0], "%d", &mapID); err != nil {
			return "usage: $warp <map> [x y]"
		}
	case 3:
		if _, err := fmt.Sscanf(strings.Join(args, " "), "%d %d %d", &mapID, &x, &y); err != nil {
			return "usage: $warp <map> [x y]"
		}
	default:
		return "usage: $warp <map> [x y]"
	}

	if _, ok := w.MapFor(mapID); !ok {
		return fmt.Sprintf("map %d does not exist", mapID)
	}

	w.mu.Lock()
	s, ok := w.sessions[issuerID]
	w.mu.Unlock()
	if !ok {
		return ""
	}
	s.RequestWarp(mapID, model.Coords{X: x, Y: y}, false, model.WarpAnimationAdmin)
	return ""
}

// adminWarpToMe pulls a character onto the issuer's tile.
func (w *Coordinator) adminWarpToMe(issuerID int, issuer *model.Character, args []string) string {
	if issuer.Admin < model.AdminGuardian {
		return ""
	}
	if len(args) != 1 {
		return "usage: $warptome <name>"
	}
	s, ok := w.SessionByName(args[0])
	if !ok {
		return fmt.Sprintf("%s is not online", args[0])
	}
	self, ok := w.charactersByID()[issuerID]
	if !ok {
		return ""
	}
	s.RequestWarp(self.MapID, self.Coords, false, model.WarpAnimationAdmin)
	return ""
}
