package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that no row matched the lookup key.
var ErrNotFound = errors.New("store: not found")

// Store defines the persistence layer interface for review records and
// account settings.
type Store interface {
	// Review records, unique per (owner, pr_number).
	FindReview(ctx context.Context, owner string, prNumber int) (ReviewRecord, error)
	InsertReview(ctx context.Context, rec ReviewRecord) error
	UpdateReview(ctx context.Context, rec ReviewRecord) error

	// Account settings determine whether an account is enrolled for review.
	FindAccountSettings(ctx context.Context, account string) (AccountSettings, error)
	UpsertAccountSettings(ctx context.Context, settings AccountSettings) error

	// Utility
	Close() error
}

// ReviewRecord is the storage form of a review. The structured result is
// serialized JSON so the schema stays stable as the result shape evolves.
type ReviewRecord struct {
	ReviewID   string
	Owner      string
	Repo       string
	PRNumber   int
	Status     string
	ResultJSON string
	Provider   string
	Model      string
	HeadSHA    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AccountSettings records per-account enrollment.
type AccountSettings struct {
	Account   string
	Enabled   bool
	UpdatedAt time.Time
}
