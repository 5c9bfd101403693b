// Package formula evaluates the operator-tunable game formulas: vitals,
// class combat stats, hit rate, damage and party experience share. Formulas
// are Lua functions loaded from a text file so operators can tune them
// without recompiling; a built-in default set ships with the server.
package formula

import (
	"errors"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Function names the formula file must define.
const (
	FnMaxHP         = "max_hp"
	FnMaxTP         = "max_tp"
	FnMaxSP         = "max_sp"
	FnMaxWeight     = "max_weight"
	FnDamage        = "damage"
	FnHitRate       = "hit_rate"
	FnClassDamage   = "class_damage"
	FnClassAccuracy = "class_accuracy"
	FnClassDefense  = "class_defense"
	FnClassEvade    = "class_evade"
	FnPartyExpShare = "party_exp_share"
)

// ErrNotDefined is returned when the formula file lacks a required function.
var ErrNotDefined = errors.New("formula not defined")

// Engine wraps a Lua VM holding compiled formulas. Calls are serialized with
// a mutex; every map actor shares one engine and the calls are short.
type Engine struct {
	mu sync.Mutex
	vm *lua.LState
}

// New compiles a formula script.
func New(script string) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	if err := vm.DoString(script); err != nil {
		vm.Close()
		return nil, fmt.Errorf("loading formulas: %w", err)
	}
	return &Engine{vm: vm}, nil
}

// Load reads a formula file from disk. A missing file yields the defaults.
func Load(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(DefaultFormulas)
		}
		return nil, fmt.Errorf("reading formula file %s: %w", path, err)
	}
	return New(string(data))
}

// Close releases the VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// Eval calls a formula function with the given context and returns its
// numeric result. On any failure the returned value is 0 along with the
// error, so callers can log and fall back to a safe default.
func (e *Engine) Eval(fn string, ctx map[string]any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fnVal := e.vm.GetGlobal(fn)
	if fnVal == lua.LNil {
		return 0, fmt.Errorf("%w: %s", ErrNotDefined, fn)
	}

	table := e.vm.NewTable()
	for k, v := range ctx {
		switch val := v.(type) {
		case int:
			table.RawSetString(k, lua.LNumber(val))
		case int64:
			table.RawSetString(k, lua.LNumber(val))
		case float64:
			table.RawSetString(k, lua.LNumber(val))
		case bool:
			table.RawSetString(k, lua.LBool(val))
		case string:
			table.RawSetString(k, lua.LString(val))
		default:
			return 0, fmt.Errorf("formula %s: unsupported context value %q", fn, k)
		}
	}

	if err := e.vm.CallByParam(lua.P{Fn: fnVal, NRet: 1, Protect: true}, table); err != nil {
		return 0, fmt.Errorf("evaluating %s: %w", fn, err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	num, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("formula %s returned %s, want number", fn, ret.Type())
	}
	return int(num), nil
}

// StatContext feeds the vital and class formulas.
type StatContext struct {
	Level int
	Str   int
	Int   int
	Wis   int
	Agi   int
	Con   int
	Cha   int
	Class int
}

func (c StatContext) toMap() map[string]any {
	return map[string]any{
		"level": c.Level,
		"str":   c.Str,
		"intl":  c.Int,
		"wis":   c.Wis,
		"agi":   c.Agi,
		"con":   c.Con,
		"cha":   c.Cha,
		"class": c.Class,
	}
}

// Vital evaluates one of the max_hp/max_tp/max_sp/max_weight formulas.
func (e *Engine) Vital(fn string, ctx StatContext) (int, error) {
	return e.Eval(fn, ctx.toMap())
}

// ClassStat evaluates one of the class combat-stat formulas.
func (e *Engine) ClassStat(fn string, ctx StatContext) (int, error) {
	return e.Eval(fn, ctx.toMap())
}

// DamageContext feeds the damage and hit_rate formulas.
type DamageContext struct {
	Amount        int
	Critical      bool
	Accuracy      int
	TargetArmor   int
	TargetEvade   int
	TargetSitting bool
}

// Damage evaluates the final damage for one swing. Errors yield 0.
func (e *Engine) Damage(ctx DamageContext) (int, error) {
	return e.Eval(FnDamage, map[string]any{
		"amount":         ctx.Amount,
		"critical":       ctx.Critical,
		"accuracy":       ctx.Accuracy,
		"target_armor":   ctx.TargetArmor,
		"target_evade":   ctx.TargetEvade,
		"target_sitting": ctx.TargetSitting,
	})
}

// HitRate evaluates the percent chance to land a hit. Errors yield 0.
func (e *Engine) HitRate(ctx DamageContext) (int, error) {
	return e.Eval(FnHitRate, map[string]any{
		"accuracy":       ctx.Accuracy,
		"critical":       ctx.Critical,
		"target_evade":   ctx.TargetEvade,
		"target_sitting": ctx.TargetSitting,
	})
}

// PartyExpShare evaluates each member's cut of a party kill.
func (e *Engine) PartyExpShare(members, exp int) (int, error) {
	return e.Eval(FnPartyExpShare, map[string]any{
		"members": members,
		"exp":     exp,
	})
}

// DefaultFormulas is the built-in formula set, matching the shape the
// external formula file must follow.
const DefaultFormulas = `
function max_hp(c)
	return 10 + c.con * 3 + c.level * 3
end

function max_tp(c)
	return 10 + c.intl * 2 + c.wis * 3
end

function max_sp(c)
	return 20 + c.level * 2
end

function max_weight(c)
	return 70 + c.str
end

function class_damage(c)
	return math.floor(c.str / 10)
end

function class_accuracy(c)
	return math.floor(c.agi / 4)
end

function class_defense(c)
	return math.floor(c.con / 10)
end

function class_evade(c)
	return math.floor(c.agi / 4)
end

function damage(c)
	local d = c.amount - math.floor(c.target_armor / 2)
	if c.critical then
		d = math.floor(d * 3 / 2)
	end
	if c.target_sitting then
		d = math.floor(d * 6 / 5)
	end
	if d < 0 then
		d = 0
	end
	return d
end

function hit_rate(c)
	local rate = 50 + c.accuracy - c.target_evade
	if c.target_sitting then
		rate = 100
	end
	if rate < 20 then
		rate = 20
	end
	if rate > 100 then
		rate = 100
	end
	return rate
end

-- Monotone in exp, anti-monotone in member count.
function party_exp_share(c)
	return math.floor(c.exp * (c.members + 5) / (c.members * 5))
end
`
