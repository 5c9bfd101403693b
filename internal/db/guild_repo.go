package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GuildDetails is the three result sets of the guild lookup procedure:
// summary, ranks and staff.
type GuildDetails struct {
	Tag         string
	Name        string
	Description string
	CreatedAt   string
	Bank        int

	Ranks [9]string

	Staff []GuildStaffMember
}

// GuildStaffMember is one leader or recruiter row.
type GuildStaffMember struct {
	Name string
	Rank int
}

// GuildRepository reads and writes guild rows.
type GuildRepository struct {
	db *pgxpool.Pool
}

// NewGuildRepository creates a GuildRepository.
func NewGuildRepository(db *pgxpool.Pool) *GuildRepository {
	return &GuildRepository{db: db}
}

// GetGuildDetails assembles the summary, ranks and staff of a guild.
// Returns nil, nil when the tag is unknown.
func (r *GuildRepository) GetGuildDetails(ctx context.Context, tag string) (*GuildDetails, error) {
	var d GuildDetails
	err := r.db.QueryRow(ctx,
		`SELECT tag, name, COALESCE(description, ''), created_at::text, bank
		 FROM "Guild" WHERE tag = $1`, tag,
	).Scan(&d.Tag, &d.Name, &d.Description, &d.CreatedAt, &d.Bank)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying guild %q: %w", tag, err)
	}

	rankRows, err := r.db.Query(ctx,
		`SELECT rank_index, name FROM "GuildRank" WHERE guild_tag = $1 ORDER BY rank_index`, tag)
	if err != nil {
		return nil, fmt.Errorf("querying guild ranks for %q: %w", tag, err)
	}
	defer rankRows.Close()
	for rankRows.Next() {
		var index int
		var name string
		if err := rankRows.Scan(&index, &name); err != nil {
			return nil, fmt.Errorf("scanning guild rank: %w", err)
		}
		if index >= 1 && index <= 9 {
			d.Ranks[index-1] = name
		}
	}
	if err := rankRows.Err(); err != nil {
		return nil, err
	}

	staffRows, err := r.db.Query(ctx,
		`SELECT name, guild_rank FROM "Character"
		 WHERE guild_tag = $1 AND guild_rank <= 2 ORDER BY guild_rank, name`, tag)
	if err != nil {
		return nil, fmt.Errorf("querying guild staff for %q: %w", tag, err)
	}
	defer staffRows.Close()
	for staffRows.Next() {
		var m GuildStaffMember
		if err := staffRows.Scan(&m.Name, &m.Rank); err != nil {
			return nil, fmt.Errorf("scanning guild staff: %w", err)
		}
		d.Staff = append(d.Staff, m)
	}
	return &d, staffRows.Err()
}

// Exists reports whether a guild tag or name is taken.
func (r *GuildRepository) Exists(ctx context.Context, tag, name string) (bool, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM "Guild" WHERE tag = $1 OR LOWER(name) = LOWER($2)`, tag, name,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking guild %q: %w", tag, err)
	}
	return n > 0, nil
}
