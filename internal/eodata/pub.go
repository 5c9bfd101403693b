package eodata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Pub file names under the data directory.
const (
	FileItems   = "dat001.eif"
	FileNpcs    = "dtn001.enf"
	FileSpells  = "dsl001.esf"
	FileClasses = "dat001.ecf"
	FileDrops   = "dts001.edf"
	FileTalk    = "ttd001.etf"
	FileShops   = "dts001.esh"
	FileInns    = "din001.eid"
	FileMasters = "dsm001.emf"
)

// LoadPub loads every record database from dir. Auxiliary files (drops,
// talk, shops, inns, masters) are optional; the four core pubs are not.
func LoadPub(dir string) (*Pub, error) {
	p := &Pub{
		Drops:   make(map[int][]DropRecord),
		Talk:    make(map[int]TalkRecord),
		Shops:   make(map[int]ShopRecord),
		Inns:    make(map[int]InnRecord),
		Masters: make(map[int]SkillMasterRecord),
	}

	raw, err := os.ReadFile(filepath.Join(dir, FileItems))
	if err != nil {
		return nil, fmt.Errorf("reading item pub: %w", err)
	}
	if p.Items, err = parseItems(raw); err != nil {
		return nil, fmt.Errorf("parsing item pub: %w", err)
	}

	raw, err = os.ReadFile(filepath.Join(dir, FileNpcs))
	if err != nil {
		return nil, fmt.Errorf("reading npc pub: %w", err)
	}
	if p.Npcs, err = parseNpcs(raw); err != nil {
		return nil, fmt.Errorf("parsing npc pub: %w", err)
	}

	raw, err = os.ReadFile(filepath.Join(dir, FileSpells))
	if err != nil {
		return nil, fmt.Errorf("reading spell pub: %w", err)
	}
	if p.Spells, err = parseSpells(raw); err != nil {
		return nil, fmt.Errorf("parsing spell pub: %w", err)
	}

	raw, err = os.ReadFile(filepath.Join(dir, FileClasses))
	if err != nil {
		return nil, fmt.Errorf("reading class pub: %w", err)
	}
	if p.Classes, err = parseClasses(raw); err != nil {
		return nil, fmt.Errorf("parsing class pub: %w", err)
	}

	if raw, err = os.ReadFile(filepath.Join(dir, FileDrops)); err == nil {
		parseDrops(raw, p.Drops)
	}
	if raw, err = os.ReadFile(filepath.Join(dir, FileTalk)); err == nil {
		parseTalk(raw, p.Talk)
	}
	if raw, err = os.ReadFile(filepath.Join(dir, FileShops)); err == nil {
		parseShops(raw, p.Shops)
	}
	if raw, err = os.ReadFile(filepath.Join(dir, FileInns)); err == nil {
		parseInns(raw, p.Inns)
	}
	if raw, err = os.ReadFile(filepath.Join(dir, FileMasters)); err == nil {
		parseMasters(raw, p.Masters)
	}

	// Drop tables are consumed in ascending rate order by the kill path.
	for id := range p.Drops {
		table := p.Drops[id]
		sort.Slice(table, func(i, j int) bool { return table[i].Rate < table[j].Rate })
		p.Drops[id] = table
	}

	return p, nil
}

func pubReader(raw []byte, magic string) (*protocol.Reader, int, error) {
	if len(raw) < len(magic)+2 || string(raw[:len(magic)]) != magic {
		return nil, 0, fmt.Errorf("bad pub magic, want %q", magic)
	}
	r := protocol.NewReader(raw[len(magic):])
	count := r.GetShort()
	return r, count, nil
}

func parseItems(raw []byte) ([]ItemRecord, error) {
	r, count, err := pubReader(raw, "EIF")
	if err != nil {
		return nil, err
	}
	items := make([]ItemRecord, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, ItemRecord{
			ID:        i + 1,
			Name:      r.GetPrefixString(),
			Graphic:   r.GetShort(),
			Type:      ItemType(r.GetChar()),
			Weight:    r.GetChar(),
			HP:        r.GetShort(),
			TP:        r.GetShort(),
			MinDamage: r.GetShort(),
			MaxDamage: r.GetShort(),
			Accuracy:  r.GetShort(),
			Evade:     r.GetShort(),
			Armor:     r.GetShort(),
			Str:       r.GetChar(),
			Int:       r.GetChar(),
			Wis:       r.GetChar(),
			Agi:       r.GetChar(),
			Con:       r.GetChar(),
			Cha:       r.GetChar(),
			Spec1:     r.GetThree(),
			Spec2:     r.GetChar(),
			Spec3:     r.GetChar(),
			LevelReq:  r.GetShort(),
			ClassReq:  r.GetShort(),
		})
	}
	return items, nil
}

func parseNpcs(raw []byte) ([]NpcRecord, error) {
	r, count, err := pubReader(raw, "ENF")
	if err != nil {
		return nil, err
	}
	npcs := make([]NpcRecord, 0, count)
	for i := 0; i < count; i++ {
		rec := NpcRecord{
			ID:      i + 1,
			Name:    r.GetPrefixString(),
			Graphic: r.GetShort(),
			Type:    NpcType(r.GetChar()),
		}
		flags := r.GetChar()
		rec.Boss = flags&1 != 0
		rec.Child = flags&2 != 0
		rec.HP = r.GetThree()
		rec.MinDamage = r.GetShort()
		rec.MaxDamage = r.GetShort()
		rec.Accuracy = r.GetShort()
		rec.Evade = r.GetShort()
		rec.Armor = r.GetShort()
		rec.Experience = r.GetThree()
		npcs = append(npcs, rec)
	}
	return npcs, nil
}

func parseSpells(raw []byte) ([]SpellRecord, error) {
	r, count, err := pubReader(raw, "ESF")
	if err != nil {
		return nil, err
	}
	spells := make([]SpellRecord, 0, count)
	for i := 0; i < count; i++ {
		spells = append(spells, SpellRecord{
			ID:             i + 1,
			Name:           r.GetPrefixString(),
			Chant:          r.GetPrefixString(),
			Type:           SpellType(r.GetChar()),
			TargetRestrict: SpellTargetRestrict(r.GetChar()),
			TargetType:     SpellTargetType(r.GetChar()),
			CastTime:       r.GetChar(),
			TPCost:         r.GetShort(),
			SPCost:         r.GetShort(),
			MinDamage:      r.GetShort(),
			MaxDamage:      r.GetShort(),
			Accuracy:       r.GetShort(),
			HP:             r.GetShort(),
		})
	}
	return spells, nil
}

func parseClasses(raw []byte) ([]ClassRecord, error) {
	r, count, err := pubReader(raw, "ECF")
	if err != nil {
		return nil, err
	}
	classes := make([]ClassRecord, 0, count)
	for i := 0; i < count; i++ {
		classes = append(classes, ClassRecord{
			ID:   i,
			Name: r.GetPrefixString(),
			Str:  r.GetChar(),
			Int:  r.GetChar(),
			Wis:  r.GetChar(),
			Agi:  r.GetChar(),
			Con:  r.GetChar(),
			Cha:  r.GetChar(),
		})
	}
	return classes, nil
}

func parseDrops(raw []byte, out map[int][]DropRecord) {
	r, count, err := pubReader(raw, "EDF")
	if err != nil {
		return
	}
	for i := 0; i < count; i++ {
		npcID := r.GetShort()
		n := r.GetChar()
		table := make([]DropRecord, 0, n)
		for j := 0; j < n; j++ {
			table = append(table, DropRecord{
				ItemID: r.GetShort(),
				Min:    r.GetThree(),
				Max:    r.GetThree(),
				Rate:   r.GetShort(),
			})
		}
		out[npcID] = table
	}
}

func parseTalk(raw []byte, out map[int]TalkRecord) {
	r, count, err := pubReader(raw, "ETF")
	if err != nil {
		return
	}
	for i := 0; i < count; i++ {
		rec := TalkRecord{
			NpcID: r.GetShort(),
			Rate:  r.GetChar(),
		}
		n := r.GetChar()
		for j := 0; j < n; j++ {
			rec.Messages = append(rec.Messages, r.GetPrefixString())
		}
		out[rec.NpcID] = rec
	}
}

func parseShops(raw []byte, out map[int]ShopRecord) {
	r, count, err := pubReader(raw, "ESH")
	if err != nil {
		return
	}
	for i := 0; i < count; i++ {
		rec := ShopRecord{
			VendorID: r.GetShort(),
			Name:     r.GetPrefixString(),
		}
		n := r.GetChar()
		for j := 0; j < n; j++ {
			rec.Trades = append(rec.Trades, ShopTrade{
				ItemID:    r.GetShort(),
				BuyPrice:  r.GetThree(),
				SellPrice: r.GetThree(),
			})
		}
		out[rec.VendorID] = rec
	}
}

func parseInns(raw []byte, out map[int]InnRecord) {
	r, count, err := pubReader(raw, "EID")
	if err != nil {
		return
	}
	for i := 0; i < count; i++ {
		rec := InnRecord{
			VendorID: r.GetShort(),
			Name:     r.GetPrefixString(),
			SpawnMap: r.GetShort(),
			SpawnX:   r.GetChar(),
			SpawnY:   r.GetChar(),
			SleepMap: r.GetShort(),
			SleepX:   r.GetChar(),
			SleepY:   r.GetChar(),
		}
		rec.AltSpawnEnabled = r.GetChar() != 0
		out[rec.VendorID] = rec
	}
}

func parseMasters(raw []byte, out map[int]SkillMasterRecord) {
	r, count, err := pubReader(raw, "EMS")
	if err != nil {
		return
	}
	for i := 0; i < count; i++ {
		rec := SkillMasterRecord{
			VendorID: r.GetShort(),
			Name:     r.GetPrefixString(),
			MinLevel: r.GetChar(),
			MaxLevel: r.GetChar(),
			ClassReq: r.GetChar(),
		}
		n := r.GetShort()
		for j := 0; j < n; j++ {
			sk := SkillMasterSkill{
				SkillID:  r.GetShort(),
				LevelReq: r.GetChar(),
				ClassReq: r.GetChar(),
				Price:    r.GetInt(),
			}
			for k := range sk.SkillIDReq {
				sk.SkillIDReq[k] = r.GetShort()
			}
			sk.StrReq = r.GetShort()
			sk.IntReq = r.GetShort()
			sk.WisReq = r.GetShort()
			sk.AgiReq = r.GetShort()
			sk.ConReq = r.GetShort()
			sk.ChaReq = r.GetShort()
			rec.Skills = append(rec.Skills, sk)
		}
		out[rec.VendorID] = rec
	}
}
