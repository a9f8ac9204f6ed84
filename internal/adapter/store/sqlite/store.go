package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ismoil793/mega-miyya/internal/store"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements the store.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One review record per (owner, pr_number), mutated as the run proceeds
	CREATE TABLE IF NOT EXISTS reviews (
		review_id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		pr_number INTEGER NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('pending', 'completed', 'failed')),
		result TEXT,
		provider TEXT,
		model TEXT,
		head_sha TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(owner, pr_number)
	);

	-- Per-account review enrollment
	CREATE TABLE IF NOT EXISTS account_settings (
		account TEXT PRIMARY KEY,
		enabled INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_owner_pr ON reviews(owner, pr_number);
	CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// FindReview returns the record for (owner, prNumber), or store.ErrNotFound.
func (s *Store) FindReview(ctx context.Context, owner string, prNumber int) (store.ReviewRecord, error) {
	query := `
		SELECT review_id, owner, repo, pr_number, status, result, provider, model, head_sha, created_at, updated_at
		FROM reviews WHERE owner = ? AND pr_number = ?
	`

	var rec store.ReviewRecord
	var createdAt, updatedAt int64
	var result, provider, model, headSHA sql.NullString

	err := s.db.QueryRowContext(ctx, query, owner, prNumber).Scan(
		&rec.ReviewID,
		&rec.Owner,
		&rec.Repo,
		&rec.PRNumber,
		&rec.Status,
		&result,
		&provider,
		&model,
		&headSHA,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ReviewRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.ReviewRecord{}, fmt.Errorf("failed to find review: %w", err)
	}

	rec.ResultJSON = result.String
	rec.Provider = provider.String
	rec.Model = model.String
	rec.HeadSHA = headSHA.String
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)

	return rec, nil
}

// InsertReview stores a new review record.
func (s *Store) InsertReview(ctx context.Context, rec store.ReviewRecord) error {
	query := `
		INSERT INTO reviews (review_id, owner, repo, pr_number, status, result, provider, model, head_sha, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ReviewID,
		rec.Owner,
		rec.Repo,
		rec.PRNumber,
		rec.Status,
		nullable(rec.ResultJSON),
		nullable(rec.Provider),
		nullable(rec.Model),
		nullable(rec.HeadSHA),
		rec.CreatedAt.Unix(),
		rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	return nil
}

// UpdateReview mutates an existing record in place, keyed by review ID.
func (s *Store) UpdateReview(ctx context.Context, rec store.ReviewRecord) error {
	query := `
		UPDATE reviews
		SET status = ?, result = ?, provider = ?, model = ?, head_sha = ?, updated_at = ?
		WHERE review_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.Status,
		nullable(rec.ResultJSON),
		nullable(rec.Provider),
		nullable(rec.Model),
		nullable(rec.HeadSHA),
		rec.UpdatedAt.Unix(),
		rec.ReviewID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// FindAccountSettings returns the settings row for the account, or
// store.ErrNotFound when the account has never been enrolled.
func (s *Store) FindAccountSettings(ctx context.Context, account string) (store.AccountSettings, error) {
	query := `SELECT account, enabled, updated_at FROM account_settings WHERE account = ?`

	var settings store.AccountSettings
	var enabled int
	var updatedAt int64

	err := s.db.QueryRowContext(ctx, query, account).Scan(&settings.Account, &enabled, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AccountSettings{}, store.ErrNotFound
	}
	if err != nil {
		return store.AccountSettings{}, fmt.Errorf("failed to find account settings: %w", err)
	}

	settings.Enabled = enabled != 0
	settings.UpdatedAt = time.Unix(updatedAt, 0)

	return settings, nil
}

// UpsertAccountSettings creates or replaces the settings row for an account.
func (s *Store) UpsertAccountSettings(ctx context.Context, settings store.AccountSettings) error {
	query := `
		INSERT INTO account_settings (account, enabled, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at
	`

	enabled := 0
	if settings.Enabled {
		enabled = 1
	}

	_, err := s.db.ExecContext(ctx, query, settings.Account, enabled, settings.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert account settings: %w", err)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
