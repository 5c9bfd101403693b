package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Account is one account row.
type Account struct {
	ID       int
	Username string
	Banned   bool
	Email    string
	LastIP   string
}

// AccountRepository manages account rows and password verification.
type AccountRepository struct {
	db   *pgxpool.Pool
	salt string
}

// NewAccountRepository creates an AccountRepository. The salt is mixed into
// every hash so leaked rows cannot be cross-checked against other servers.
func NewAccountRepository(db *pgxpool.Pool, salt string) *AccountRepository {
	return &AccountRepository{db: db, salt: salt}
}

// HashPassword builds the stored hash: bcrypt at fixed cost over the
// username-salted password.
func (r *AccountRepository) HashPassword(username, password string) (string, error) {
	seasoned := r.salt + strings.ToLower(username) + password
	hash, err := bcrypt.GenerateFromPassword([]byte(seasoned), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks credentials against the stored hash.
// Returns false (no error) for a wrong password or unknown account.
func (r *AccountRepository) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	var stored string
	err := r.db.QueryRow(ctx,
		`SELECT password_hash FROM "Account" WHERE username = $1`,
		strings.ToLower(username),
	).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying password for %q: %w", username, err)
	}

	seasoned := r.salt + strings.ToLower(username) + password
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(seasoned)) == nil, nil
}

// Get retrieves an account by username. Returns nil, nil when absent.
func (r *AccountRepository) Get(ctx context.Context, username string) (*Account, error) {
	var acc Account
	err := r.db.QueryRow(ctx,
		`SELECT id, username, banned, COALESCE(email, ''), COALESCE(last_ip, '')
		 FROM "Account" WHERE username = $1`,
		strings.ToLower(username),
	).Scan(&acc.ID, &acc.Username, &acc.Banned, &acc.Email, &acc.LastIP)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account %q: %w", username, err)
	}
	return &acc, nil
}

// Exists reports whether a username is taken.
func (r *AccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM "Account" WHERE username = $1`,
		strings.ToLower(username),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking username %q: %w", username, err)
	}
	return n > 0, nil
}

// Create inserts a new account and returns its id.
func (r *AccountRepository) Create(ctx context.Context, username, password, email, ip string) (int, error) {
	hash, err := r.HashPassword(username, password)
	if err != nil {
		return 0, err
	}
	var id int
	err = r.db.QueryRow(ctx,
		`INSERT INTO "Account" (username, password_hash, email, last_ip, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		strings.ToLower(username), hash, email, ip, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating account %q: %w", username, err)
	}
	return id, nil
}

// UpdateLastLogin stamps a successful login.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id int, ip string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE "Account" SET last_ip = $1, last_login = $2 WHERE id = $3`,
		ip, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating last login for account %d: %w", id, err)
	}
	return nil
}

// CharacterCount returns how many characters an account holds.
func (r *AccountRepository) CharacterCount(ctx context.Context, accountID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM "Character" WHERE account_id = $1`, accountID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting characters for account %d: %w", accountID, err)
	}
	return n, nil
}
