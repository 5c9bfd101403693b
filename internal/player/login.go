package player

import (
	"context"
	"strings"
	"time"

	"github.com/sorokya/reoserv-sub000/internal/db"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Login reply codes.
const (
	loginWrongUser     = 1
	loginWrongPassword = 2
	loginOK            = 3
	loginBanned        = 4
	loginLoggedIn      = 5
	loginBusy          = 6
)

// Account reply codes.
const (
	accountExists   = 1
	accountCreated  = 3
	accountRejected = 5
	accountContinue = 1000
)

const dbTimeout = 5 * time.Second

// handleLogin verifies credentials and reserves the account's login slot.
// Failed attempts are counted; too many close the session.
func (p *Player) handleLogin(r *protocol.Reader) {
	username := strings.ToLower(r.GetBreakString())
	password := r.GetBreakString()

	if p.loginFails >= p.deps.Config.Server.MaxLoginAttempts {
		p.state = StateClosed
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	account, err := p.deps.Accounts.Get(ctx, username)
	if err != nil {
		p.log.Error("account lookup failed", "error", err)
		p.state = StateClosed
		return
	}
	if account == nil {
		p.loginFail(loginWrongUser)
		return
	}

	ok, err := p.deps.Accounts.VerifyPassword(ctx, username, password)
	if err != nil {
		p.log.Error("password verification failed", "error", err)
		p.state = StateClosed
		return
	}
	if !ok {
		p.loginFail(loginWrongPassword)
		return
	}

	if account.Banned {
		p.sendLoginReply(loginBanned, nil)
		p.state = StateClosed
		return
	}

	switch p.deps.World.TryLogin(account.ID) {
	case LoginAlreadyIn:
		p.sendLoginReply(loginLoggedIn, nil)
		return
	case LoginServerFull:
		p.sendLoginReply(loginBusy, nil)
		return
	}

	if err := p.deps.Accounts.UpdateLastLogin(ctx, account.ID, p.ip); err != nil {
		p.log.Error("updating last login failed", "error", err)
	}

	summaries, err := p.deps.Chars.List(ctx, account.ID)
	if err != nil {
		p.log.Error("listing characters failed", "error", err)
		p.deps.World.Logout(account.ID)
		p.state = StateClosed
		return
	}

	p.account = account
	p.state = StateLoggedIn
	p.sendLoginReply(loginOK, summaries)
	p.log.Info("account logged in", "account", username)
}

func (p *Player) loginFail(code int) {
	p.loginFails++
	p.sendLoginReply(code, nil)
	if p.loginFails >= p.deps.Config.Server.MaxLoginAttempts {
		p.state = StateClosed
	}
}

func (p *Player) sendLoginReply(code int, summaries []db.CharacterSummary) {
	w := protocol.NewWriter()
	w.AddShort(code)
	if code == loginOK {
		writeCharacterList(w, summaries)
	}
	if err := p.bus.Send(protocol.ActionReply, protocol.FamilyLogin, w.Bytes()); err != nil {
		p.state = StateClosed
	}
}

func writeCharacterList(w *protocol.Writer, summaries []db.CharacterSummary) {
	w.AddChar(len(summaries))
	w.AddChar(0)
	w.AddByte(0xFF)
	for _, s := range summaries {
		writeCharacterSummary(w, s)
	}
}

func writeCharacterSummary(w *protocol.Writer, s db.CharacterSummary) {
	w.AddBreakString(s.Name)
	w.AddInt(s.ID)
	w.AddChar(s.Level)
	w.AddChar(int(s.Gender))
	w.AddChar(s.HairStyle)
	w.AddChar(s.HairColor)
	w.AddChar(s.Skin)
	w.AddChar(int(s.Admin))
	w.AddShort(s.Paperdoll[0])  // boots
	w.AddShort(s.Paperdoll[4])  // armor
	w.AddShort(s.Paperdoll[6])  // hat
	w.AddShort(s.Paperdoll[7])  // shield
	w.AddShort(s.Paperdoll[8])  // weapon
	w.AddByte(0xFF)
}

// handleAccount serves the account-creation flow: a name check followed by
// the create itself.
func (p *Player) handleAccount(pkt protocol.Packet) {
	switch pkt.Action {
	case protocol.ActionRequest:
		p.handleAccountRequest(pkt.Reader)
	case protocol.ActionCreate:
		p.handleAccountCreate(pkt.Reader)
	}
}

func (p *Player) handleAccountRequest(r *protocol.Reader) {
	username := strings.ToLower(r.GetBreakString())

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	exists, err := p.deps.Accounts.Exists(ctx, username)
	if err != nil {
		p.log.Error("account name check failed", "error", err)
		p.state = StateClosed
		return
	}

	w := protocol.NewWriter()
	if exists {
		w.AddShort(accountExists)
		w.AddString("NO")
	} else {
		w.AddShort(accountContinue)
		w.AddString("OK")
	}
	_ = p.bus.Send(protocol.ActionReply, protocol.FamilyAccount, w.Bytes())

	// The client is held briefly before it may submit the create.
	if delay := p.deps.Config.Account.DelayTime; delay > 0 && !exists {
		time.Sleep(delay)
	}
}

func (p *Player) handleAccountCreate(r *protocol.Reader) {
	r.GetShort() // session id, unused
	r.GetByte()  // break
	username := strings.ToLower(r.GetBreakString())
	password := r.GetBreakString()
	r.GetBreakString() // full name
	r.GetBreakString() // location
	email := r.GetBreakString()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	exists, err := p.deps.Accounts.Exists(ctx, username)
	if err != nil {
		p.log.Error("account name check failed", "error", err)
		p.state = StateClosed
		return
	}

	w := protocol.NewWriter()
	if exists || len(username) < 4 || len(password) < 6 {
		w.AddShort(accountRejected)
		w.AddString("NO")
		_ = p.bus.Send(protocol.ActionReply, protocol.FamilyAccount, w.Bytes())
		return
	}

	if _, err := p.deps.Accounts.Create(ctx, username, password, email, p.ip); err != nil {
		p.log.Error("creating account failed", "error", err)
		p.state = StateClosed
		return
	}

	w.AddShort(accountCreated)
	w.AddString("OK")
	_ = p.bus.Send(protocol.ActionReply, protocol.FamilyAccount, w.Bytes())
	p.log.Info("account created", "account", username)
}
