package eodata

import (
	"fmt"
	"os"

	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// TileSpec is the special behavior of one tile.
type TileSpec int

const (
	TileNone TileSpec = iota
	TileWall
	TileChairDown
	TileChairLeft
	TileChairRight
	TileChairUp
	TileChairAll
	TileChest
	TileBankVault
	TileNPCBoundary
	TileMapEdge
	TileFakeWall
	TileBoard
	TileJukebox
	TileJump
	TileWater
	TileArena
	TileAmbientSource
	TileSpikes
	TileSpikesTrap
	TileSpikesTimed
)

// Walkable reports whether a character may stand on this tile.
func (t TileSpec) Walkable() bool {
	switch t {
	case TileWall, TileChest, TileBankVault, TileMapEdge, TileBoard, TileJukebox:
		return false
	}
	return true
}

// Chair reports whether this tile is a sittable chair facing some direction.
func (t TileSpec) Chair() bool {
	switch t {
	case TileChairDown, TileChairLeft, TileChairRight, TileChairUp, TileChairAll:
		return true
	}
	return false
}

// WarpSpec is a warp source tile.
type WarpSpec struct {
	DestinationMap int
	DestinationX   int
	DestinationY   int
	LevelRequired  int
	Door           int // 0 = not a door, 1 = no key, >1 = key item id + 1
}

// NpcSpawn is one NPC spawn list entry.
type NpcSpawn struct {
	X         int
	Y         int
	ID        int // species
	SpawnType int // 7 = fixed facing (type%4), else random
	SpawnTime int // ticks between death and respawn
	Amount    int
}

// ChestSpawnItem is one chest refill rule from the map file.
type ChestSpawnItem struct {
	X         int
	Y         int
	Key       int // required key item id, 0 = none
	Slot      int
	ItemID    int
	SpawnTime int // minutes
	Amount    int
}

// MapEffect is the timed map-wide effect.
type MapEffect int

const (
	EffectNone MapEffect = iota
	EffectHPDrain
	EffectTPDrain
	EffectQuake1
	EffectQuake2
	EffectQuake3
	EffectQuake4
)

// Emf is one parsed map file. Immutable after load; MapActors read it but
// never write it.
type Emf struct {
	Rid    [4]byte // revision id the client caches on
	Name   string
	Width  int
	Height int

	MusicID     int
	MusicExtra  int
	AmbientNoise int
	Effect      MapEffect
	RelogX      int
	RelogY      int
	CanScroll   bool
	PK          bool

	tiles map[[2]int]TileSpec
	warps map[[2]int]WarpSpec

	NpcSpawns  []NpcSpawn
	ChestItems []ChestSpawnItem

	// File is the raw on-disk image streamed to clients for map transfer.
	File []byte
}

// NewEmf creates an empty map of the given size, used by tests and tools.
func NewEmf(width, height int) *Emf {
	return &Emf{
		Width:  width,
		Height: height,
		tiles:  make(map[[2]int]TileSpec),
		warps:  make(map[[2]int]WarpSpec),
	}
}

// FileSize returns the byte size of the raw map image.
func (e *Emf) FileSize() int {
	return len(e.File)
}

// InBounds reports whether coordinates fall inside the map rectangle.
func (e *Emf) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < e.Width && y < e.Height
}

// Tile returns the tile spec at (x, y). Out-of-bounds reads as TileMapEdge.
func (e *Emf) Tile(x, y int) TileSpec {
	if !e.InBounds(x, y) {
		return TileMapEdge
	}
	return e.tiles[[2]int{x, y}]
}

// SetTile stores a tile spec, replacing the default TileNone.
func (e *Emf) SetTile(x, y int, spec TileSpec) {
	e.tiles[[2]int{x, y}] = spec
}

// Warp returns the warp spec at (x, y), if any.
func (e *Emf) Warp(x, y int) (WarpSpec, bool) {
	w, ok := e.warps[[2]int{x, y}]
	return w, ok
}

// SetWarp stores a warp source tile.
func (e *Emf) SetWarp(x, y int, w WarpSpec) {
	e.warps[[2]int{x, y}] = w
}

// LoadEmf parses a map file from disk.
//
// Layout (all numbers protocol-encoded):
//
//	magic "EMF", rid[4], name(break string), width(char), height(char),
//	music(char), musicExtra(char), ambient(short), effect(char),
//	relogX(char), relogY(char), flags(char: bit0 scroll, bit1 pk),
//	tileRows(char) × [y(char), count(char) × [x(char), spec(char)]],
//	warpRows(char) × [y(char), count(char) × [x(char), destMap(short),
//	    destX(char), destY(char), level(char), door(short)]],
//	npcSpawns(char) × [x(char), y(char), id(short), spawnType(char),
//	    spawnTime(short), amount(char)],
//	chestItems(char) × [x(char), y(char), key(short), slot(char),
//	    itemID(short), spawnTime(short), amount(three)]
func LoadEmf(path string) (*Emf, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file %s: %w", path, err)
	}
	emf, err := ParseEmf(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing map file %s: %w", path, err)
	}
	return emf, nil
}

// ParseEmf parses a raw map image.
func ParseEmf(raw []byte) (*Emf, error) {
	if len(raw) < 7 || string(raw[:3]) != "EMF" {
		return nil, fmt.Errorf("bad map file magic")
	}
	r := protocol.NewReader(raw[3:])

	e := &Emf{
		tiles: make(map[[2]int]TileSpec),
		warps: make(map[[2]int]WarpSpec),
		File:  raw,
	}
	copy(e.Rid[:], r.GetBytes(4))
	e.Name = r.GetBreakString()
	e.Width = r.GetChar()
	e.Height = r.GetChar()
	e.MusicID = r.GetChar()
	e.MusicExtra = r.GetChar()
	e.AmbientNoise = r.GetShort()
	e.Effect = MapEffect(r.GetChar())
	e.RelogX = r.GetChar()
	e.RelogY = r.GetChar()
	flags := r.GetChar()
	e.CanScroll = flags&1 != 0
	e.PK = flags&2 != 0

	for rows := r.GetChar(); rows > 0; rows-- {
		y := r.GetChar()
		for n := r.GetChar(); n > 0; n-- {
			x := r.GetChar()
			e.tiles[[2]int{x, y}] = TileSpec(r.GetChar())
		}
	}
	for rows := r.GetChar(); rows > 0; rows-- {
		y := r.GetChar()
		for n := r.GetChar(); n > 0; n-- {
			x := r.GetChar()
			e.warps[[2]int{x, y}] = WarpSpec{
				DestinationMap: r.GetShort(),
				DestinationX:   r.GetChar(),
				DestinationY:   r.GetChar(),
				LevelRequired:  r.GetChar(),
				Door:           r.GetShort(),
			}
		}
	}
	for n := r.GetChar(); n > 0; n-- {
		e.NpcSpawns = append(e.NpcSpawns, NpcSpawn{
			X:         r.GetChar(),
			Y:         r.GetChar(),
			ID:        r.GetShort(),
			SpawnType: r.GetChar(),
			SpawnTime: r.GetShort(),
			Amount:    r.GetChar(),
		})
	}
	for n := r.GetChar(); n > 0; n-- {
		e.ChestItems = append(e.ChestItems, ChestSpawnItem{
			X:         r.GetChar(),
			Y:         r.GetChar(),
			Key:       r.GetShort(),
			Slot:      r.GetChar(),
			ItemID:    r.GetShort(),
			SpawnTime: r.GetShort(),
			Amount:    r.GetThree(),
		})
	}

	if e.Width <= 0 || e.Height <= 0 {
		return nil, fmt.Errorf("bad map dimensions %dx%d", e.Width, e.Height)
	}
	return e, nil
}
