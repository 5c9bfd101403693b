package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sorokya/reoserv-sub000/internal/model"
)

// CharacterRepository assembles and persists the character aggregate:
// the Character row plus Paperdoll, Position, Stats and the Inventory, Bank,
// Spell and QuestProgress sets.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// CharacterSummary is what the character-list screen shows.
type CharacterSummary struct {
	ID        int
	Name      string
	Level     int
	Gender    model.Gender
	HairStyle int
	HairColor int
	Skin      int
	Admin     model.AdminLevel
	Paperdoll model.Paperdoll
}

// List returns the summaries of an account's characters, creation order.
func (r *CharacterRepository) List(ctx context.Context, accountID int) ([]CharacterSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.name, s.level, c.gender, c.hair_style, c.hair_color, c.skin, c.admin_level,
		        p.boots, p.accessory, p.gloves, p.belt, p.armor, p.necklace, p.hat, p.shield, p.weapon,
		        p.ring1, p.ring2, p.armlet1, p.armlet2, p.bracer1, p.bracer2
		 FROM "Character" c
		 JOIN "Stats" s ON s.character_id = c.id
		 JOIN "Paperdoll" p ON p.character_id = c.id
		 WHERE c.account_id = $1
		 ORDER BY c.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing characters for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var out []CharacterSummary
	for rows.Next() {
		var cs CharacterSummary
		dest := []any{&cs.ID, &cs.Name, &cs.Level, &cs.Gender, &cs.HairStyle, &cs.HairColor, &cs.Skin, &cs.Admin}
		for i := range cs.Paperdoll {
			dest = append(dest, &cs.Paperdoll[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning character summary: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// NameExists reports whether a character name is taken.
func (r *CharacterRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM "Character" WHERE LOWER(name) = LOWER($1)`, name,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking character name %q: %w", name, err)
	}
	return n > 0, nil
}

// Load assembles the full character aggregate. Returns nil, nil when the id
// does not exist.
func (r *CharacterRepository) Load(ctx context.Context, characterID int) (*model.Character, error) {
	c := &model.Character{ID: characterID}

	err := r.db.QueryRow(ctx,
		`SELECT c.account_id, c.name, COALESCE(c.title, ''), COALESCE(c.home, ''), c.admin_level,
		        c.gender, c.skin, c.hair_style, c.hair_color, c.class,
		        COALESCE(c.guild_tag, ''), COALESCE(c.guild_name, ''), COALESCE(c.guild_rank, 0),
		        COALESCE(c.guild_rank_string, ''), COALESCE(c.partner, ''), COALESCE(c.fiance, ''),
		        pos.map_id, pos.x, pos.y, pos.direction, pos.sit_state, pos.hidden,
		        s.level, s.experience, s.hp, s.tp,
		        s.str, s.intl, s.wis, s.agi, s.con, s.cha,
		        s.stat_points, s.skill_points, s.karma, s.usage,
		        p.boots, p.accessory, p.gloves, p.belt, p.armor, p.necklace, p.hat, p.shield, p.weapon,
		        p.ring1, p.ring2, p.armlet1, p.armlet2, p.bracer1, p.bracer2
		 FROM "Character" c
		 JOIN "Position" pos ON pos.character_id = c.id
		 JOIN "Stats" s ON s.character_id = c.id
		 JOIN "Paperdoll" p ON p.character_id = c.id
		 WHERE c.id = $1`, characterID,
	).Scan(
		&c.AccountID, &c.Name, &c.Title, &c.Home, &c.Admin,
		&c.Gender, &c.Skin, &c.HairStyle, &c.HairColor, &c.Class,
		&c.GuildTag, &c.GuildName, &c.GuildRank,
		&c.GuildRankString, &c.Partner, &c.Fiance,
		&c.MapID, &c.Coords.X, &c.Coords.Y, &c.Direction, &c.SitState, &c.Hidden,
		&c.Level, &c.Experience, &c.HP, &c.TP,
		&c.BaseStr, &c.BaseInt, &c.BaseWis, &c.BaseAgi, &c.BaseCon, &c.BaseCha,
		&c.StatPoints, &c.SkillPoints, &c.Karma, &c.Usage,
		&c.Paperdoll[model.SlotBoots], &c.Paperdoll[model.SlotAccessory], &c.Paperdoll[model.SlotGloves],
		&c.Paperdoll[model.SlotBelt], &c.Paperdoll[model.SlotArmor], &c.Paperdoll[model.SlotNecklace],
		&c.Paperdoll[model.SlotHat], &c.Paperdoll[model.SlotShield], &c.Paperdoll[model.SlotWeapon],
		&c.Paperdoll[model.SlotRing1], &c.Paperdoll[model.SlotRing2],
		&c.Paperdoll[model.SlotArmlet1], &c.Paperdoll[model.SlotArmlet2],
		&c.Paperdoll[model.SlotBracer1], &c.Paperdoll[model.SlotBracer2],
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %d: %w", characterID, err)
	}

	if c.Items, err = r.loadItems(ctx, `SELECT item_id, amount FROM "Inventory" WHERE character_id = $1 ORDER BY item_id`, characterID); err != nil {
		return nil, err
	}
	if c.Bank, err = r.loadItems(ctx, `SELECT item_id, amount FROM "Bank" WHERE character_id = $1 ORDER BY item_id`, characterID); err != nil {
		return nil, err
	}

	spellRows, err := r.db.Query(ctx,
		`SELECT spell_id, level FROM "Spell" WHERE character_id = $1 ORDER BY spell_id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("querying spells for character %d: %w", characterID, err)
	}
	defer spellRows.Close()
	for spellRows.Next() {
		var s model.Spell
		if err := spellRows.Scan(&s.ID, &s.Level); err != nil {
			return nil, fmt.Errorf("scanning spell: %w", err)
		}
		c.Spells = append(c.Spells, s)
	}
	if err := spellRows.Err(); err != nil {
		return nil, err
	}

	questRows, err := r.db.Query(ctx,
		`SELECT quest_id, state, npc_kills, player_kills, done
		 FROM "QuestProgress" WHERE character_id = $1 ORDER BY quest_id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("querying quests for character %d: %w", characterID, err)
	}
	defer questRows.Close()
	for questRows.Next() {
		var q model.QuestProgress
		var kills []byte
		if err := questRows.Scan(&q.QuestID, &q.State, &kills, &q.PlayerKills, &q.Done); err != nil {
			return nil, fmt.Errorf("scanning quest progress: %w", err)
		}
		q.NpcKills = make(map[int]int)
		if len(kills) > 0 {
			if err := json.Unmarshal(kills, &q.NpcKills); err != nil {
				return nil, fmt.Errorf("decoding npc kills for character %d quest %d: %w", characterID, q.QuestID, err)
			}
		}
		c.Quests = append(c.Quests, q)
	}
	return c, questRows.Err()
}

func (r *CharacterRepository) loadItems(ctx context.Context, query string, characterID int) ([]model.Item, error) {
	rows, err := r.db.Query(ctx, query, characterID)
	if err != nil {
		return nil, fmt.Errorf("querying items for character %d: %w", characterID, err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Amount); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Create initializes the character row and its four fixed companion rows.
// Returns the new character id.
func (r *CharacterRepository) Create(ctx context.Context, c *model.Character) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int
	err = tx.QueryRow(ctx,
		`INSERT INTO "Character" (account_id, name, home, admin_level, gender, skin, hair_style, hair_color, class, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		c.AccountID, c.Name, c.Home, c.Admin, c.Gender, c.Skin, c.HairStyle, c.HairColor, c.Class, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting character %q: %w", c.Name, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO "Position" (character_id, map_id, x, y, direction, sit_state, hidden)
		 VALUES ($1, $2, $3, $4, $5, 0, FALSE)`,
		id, c.MapID, c.Coords.X, c.Coords.Y, c.Direction,
	); err != nil {
		return 0, fmt.Errorf("inserting position: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO "Stats" (character_id, level, experience, hp, tp,
		                      str, intl, wis, agi, con, cha,
		                      stat_points, skill_points, karma, usage)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0)`,
		id, c.Level, c.Experience, c.HP, c.TP,
		c.BaseStr, c.BaseInt, c.BaseWis, c.BaseAgi, c.BaseCon, c.BaseCha,
		c.StatPoints, c.SkillPoints, c.Karma,
	); err != nil {
		return 0, fmt.Errorf("inserting stats: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO "Paperdoll" (character_id) VALUES ($1)`, id,
	); err != nil {
		return 0, fmt.Errorf("inserting paperdoll: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing create: %w", err)
	}
	c.ID = id
	return id, nil
}

// Save writes the aggregate inside one transaction. Child sets are written
// as diffs: the old rows are re-read and only the changed subset is
// inserted, updated or deleted.
func (r *CharacterRepository) Save(ctx context.Context, c *model.Character) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE "Character" SET title = $1, home = $2, admin_level = $3,
		        gender = $4, skin = $5, hair_style = $6, hair_color = $7, class = $8,
		        guild_tag = $9, guild_name = $10, guild_rank = $11, guild_rank_string = $12,
		        partner = $13, fiance = $14
		 WHERE id = $15`,
		c.Title, c.Home, c.Admin,
		c.Gender, c.Skin, c.HairStyle, c.HairColor, c.Class,
		c.GuildTag, c.GuildName, c.GuildRank, c.GuildRankString,
		c.Partner, c.Fiance, c.ID,
	); err != nil {
		return fmt.Errorf("updating character %d: %w", c.ID, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE "Position" SET map_id = $1, x = $2, y = $3, direction = $4, sit_state = $5, hidden = $6
		 WHERE character_id = $7`,
		c.MapID, c.Coords.X, c.Coords.Y, c.Direction, c.SitState, c.Hidden, c.ID,
	); err != nil {
		return fmt.Errorf("updating position for character %d: %w", c.ID, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE "Stats" SET level = $1, experience = $2, hp = $3, tp = $4,
		        str = $5, intl = $6, wis = $7, agi = $8, con = $9, cha = $10,
		        stat_points = $11, skill_points = $12, karma = $13, usage = $14
		 WHERE character_id = $15`,
		c.Level, c.Experience, c.HP, c.TP,
		c.BaseStr, c.BaseInt, c.BaseWis, c.BaseAgi, c.BaseCon, c.BaseCha,
		c.StatPoints, c.SkillPoints, c.Karma, c.Usage, c.ID,
	); err != nil {
		return fmt.Errorf("updating stats for character %d: %w", c.ID, err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE "Paperdoll" SET boots = $1, accessory = $2, gloves = $3, belt = $4,
		        armor = $5, necklace = $6, hat = $7, shield = $8, weapon = $9,
		        ring1 = $10, ring2 = $11, armlet1 = $12, armlet2 = $13, bracer1 = $14, bracer2 = $15
		 WHERE character_id = $16`,
		c.Paperdoll[model.SlotBoots], c.Paperdoll[model.SlotAccessory], c.Paperdoll[model.SlotGloves],
		c.Paperdoll[model.SlotBelt], c.Paperdoll[model.SlotArmor], c.Paperdoll[model.SlotNecklace],
		c.Paperdoll[model.SlotHat], c.Paperdoll[model.SlotShield], c.Paperdoll[model.SlotWeapon],
		c.Paperdoll[model.SlotRing1], c.Paperdoll[model.SlotRing2],
		c.Paperdoll[model.SlotArmlet1], c.Paperdoll[model.SlotArmlet2],
		c.Paperdoll[model.SlotBracer1], c.Paperdoll[model.SlotBracer2], c.ID,
	); err != nil {
		return fmt.Errorf("updating paperdoll for character %d: %w", c.ID, err)
	}

	if err := diffItems(ctx, tx, "Inventory", c.ID, c.Items); err != nil {
		return err
	}
	if err := diffItems(ctx, tx, "Bank", c.ID, c.Bank); err != nil {
		return err
	}
	if err := diffSpells(ctx, tx, c.ID, c.Spells); err != nil {
		return err
	}
	if err := diffQuests(ctx, tx, c.ID, c.Quests); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing save for character %d: %w", c.ID, err)
	}
	return nil
}

func diffItems(ctx context.Context, tx pgx.Tx, table string, characterID int, items []model.Item) error {
	rows, err := tx.Query(ctx,
		fmt.Sprintf(`SELECT item_id, amount FROM %q WHERE character_id = $1`, table), characterID)
	if err != nil {
		return fmt.Errorf("re-reading %s for character %d: %w", table, characterID, err)
	}
	old := make(map[int]int)
	for rows.Next() {
		var id, amount int
		if err := rows.Scan(&id, &amount); err != nil {
			rows.Close()
			return fmt.Errorf("scanning %s row: %w", table, err)
		}
		old[id] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	seen := make(map[int]bool, len(items))
	for _, it := range items {
		seen[it.ID] = true
		oldAmount, exists := old[it.ID]
		switch {
		case !exists:
			if _, err := tx.Exec(ctx,
				fmt.Sprintf(`INSERT INTO %q (character_id, item_id, amount) VALUES ($1, $2, $3)`, table),
				characterID, it.ID, it.Amount,
			); err != nil {
				return fmt.Errorf("inserting %s item %d: %w", table, it.ID, err)
			}
		case oldAmount != it.Amount:
			if _, err := tx.Exec(ctx,
				fmt.Sprintf(`UPDATE %q SET amount = $1 WHERE character_id = $2 AND item_id = $3`, table),
				it.Amount, characterID, it.ID,
			); err != nil {
				return fmt.Errorf("updating %s item %d: %w", table, it.ID, err)
			}
		}
	}
	for id := range old {
		if !seen[id] {
			if _, err := tx.Exec(ctx,
				fmt.Sprintf(`DELETE FROM %q WHERE character_id = $1 AND item_id = $2`, table),
				characterID, id,
			); err != nil {
				return fmt.Errorf("deleting %s item %d: %w", table, id, err)
			}
		}
	}
	return nil
}

func diffSpells(ctx context.Context, tx pgx.Tx, characterID int, spells []model.Spell) error {
	rows, err := tx.Query(ctx,
		`SELECT spell_id, level FROM "Spell" WHERE character_id = $1`, characterID)
	if err != nil {
		return fmt.Errorf("re-reading spells for character %d: %w", characterID, err)
	}
	old := make(map[int]int)
	for rows.Next() {
		var id, level int
		if err := rows.Scan(&id, &level); err != nil {
			rows.Close()
			return fmt.Errorf("scanning spell row: %w", err)
		}
		old[id] = level
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	seen := make(map[int]bool, len(spells))
	for _, s := range spells {
		seen[s.ID] = true
		oldLevel, exists := old[s.ID]
		switch {
		case !exists:
			if _, err := tx.Exec(ctx,
				`INSERT INTO "Spell" (character_id, spell_id, level) VALUES ($1, $2, $3)`,
				characterID, s.ID, s.Level,
			); err != nil {
				return fmt.Errorf("inserting spell %d: %w", s.ID, err)
			}
		case oldLevel != s.Level:
			if _, err := tx.Exec(ctx,
				`UPDATE "Spell" SET level = $1 WHERE character_id = $2 AND spell_id = $3`,
				s.Level, characterID, s.ID,
			); err != nil {
				return fmt.Errorf("updating spell %d: %w", s.ID, err)
			}
		}
	}
	for id := range old {
		if !seen[id] {
			if _, err := tx.Exec(ctx,
				`DELETE FROM "Spell" WHERE character_id = $1 AND spell_id = $2`,
				characterID, id,
			); err != nil {
				return fmt.Errorf("deleting spell %d: %w", id, err)
			}
		}
	}
	return nil
}

func diffQuests(ctx context.Context, tx pgx.Tx, characterID int, quests []model.QuestProgress) error {
	rows, err := tx.Query(ctx,
		`SELECT quest_id FROM "QuestProgress" WHERE character_id = $1`, characterID)
	if err != nil {
		return fmt.Errorf("re-reading quests for character %d: %w", characterID, err)
	}
	old := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning quest row: %w", err)
		}
		old[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	seen := make(map[int]bool, len(quests))
	for _, q := range quests {
		seen[q.QuestID] = true
		kills, err := json.Marshal(q.NpcKills)
		if err != nil {
			return fmt.Errorf("encoding npc kills for quest %d: %w", q.QuestID, err)
		}
		if old[q.QuestID] {
			if _, err := tx.Exec(ctx,
				`UPDATE "QuestProgress" SET state = $1, npc_kills = $2, player_kills = $3, done = $4
				 WHERE character_id = $5 AND quest_id = $6`,
				q.State, kills, q.PlayerKills, q.Done, characterID, q.QuestID,
			); err != nil {
				return fmt.Errorf("updating quest %d: %w", q.QuestID, err)
			}
		} else {
			if _, err := tx.Exec(ctx,
				`INSERT INTO "QuestProgress" (character_id, quest_id, state, npc_kills, player_kills, done)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				characterID, q.QuestID, q.State, kills, q.PlayerKills, q.Done,
			); err != nil {
				return fmt.Errorf("inserting quest %d: %w", q.QuestID, err)
			}
		}
	}
	for id := range old {
		if !seen[id] {
			if _, err := tx.Exec(ctx,
				`DELETE FROM "QuestProgress" WHERE character_id = $1 AND quest_id = $2`,
				characterID, id,
			); err != nil {
				return fmt.Errorf("deleting quest %d: %w", id, err)
			}
		}
	}
	return nil
}

// Delete cascades the four owned tables then removes the character row.
func (r *CharacterRepository) Delete(ctx context.Context, characterID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"Inventory", "Bank", "Spell", "QuestProgress", "Paperdoll", "Position", "Stats"} {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %q WHERE character_id = $1`, table), characterID,
		); err != nil {
			return fmt.Errorf("deleting %s for character %d: %w", table, characterID, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM "Character" WHERE id = $1`, characterID); err != nil {
		return fmt.Errorf("deleting character %d: %w", characterID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete for character %d: %w", characterID, err)
	}
	return nil
}

// BanAccountOf flags the account owning a character as banned. The ban
// takes effect on the next login; kicking the live session is the caller's
// job.
func (r *CharacterRepository) BanAccountOf(ctx context.Context, characterName string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE "Account" SET banned = TRUE
		 WHERE id = (SELECT account_id FROM "Character" WHERE LOWER(name) = LOWER($1))`,
		characterName)
	if err != nil {
		return fmt.Errorf("banning account of %q: %w", characterName, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no character named %q", characterName)
	}
	return nil
}
