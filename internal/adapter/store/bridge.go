// Package store bridges the storage layer to the review use case port,
// translating between domain records and their serialized storage form.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ismoil793/mega-miyya/internal/domain"
	"github.com/ismoil793/mega-miyya/internal/store"
)

// Bridge adapts a store.Store to the review use case's Store port.
type Bridge struct {
	store store.Store
}

// NewBridge creates a bridge over the given store.
func NewBridge(s store.Store) *Bridge {
	return &Bridge{store: s}
}

// FindReview looks up the record for (owner, number). A missing record is
// reported through the found flag, not an error.
func (b *Bridge) FindReview(ctx context.Context, owner string, number int) (domain.ReviewRecord, bool, error) {
	rec, err := b.store.FindReview(ctx, owner, number)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ReviewRecord{}, false, nil
	}
	if err != nil {
		return domain.ReviewRecord{}, false, err
	}

	domainRec, err := toDomain(rec)
	if err != nil {
		return domain.ReviewRecord{}, false, err
	}
	return domainRec, true, nil
}

// InsertReview persists a new review record.
func (b *Bridge) InsertReview(ctx context.Context, rec domain.ReviewRecord) error {
	storeRec, err := toStore(rec)
	if err != nil {
		return err
	}
	return b.store.InsertReview(ctx, storeRec)
}

// UpdateReview persists a mutation of an existing record.
func (b *Bridge) UpdateReview(ctx context.Context, rec domain.ReviewRecord) error {
	storeRec, err := toStore(rec)
	if err != nil {
		return err
	}
	return b.store.UpdateReview(ctx, storeRec)
}

// AccountEnabled reports whether the account is enrolled for review.
// Accounts without a settings row are not enrolled.
func (b *Bridge) AccountEnabled(ctx context.Context, owner string) (bool, error) {
	settings, err := b.store.FindAccountSettings(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return settings.Enabled, nil
}

func toStore(rec domain.ReviewRecord) (store.ReviewRecord, error) {
	resultJSON := ""
	if rec.Result != nil {
		data, err := json.Marshal(rec.Result)
		if err != nil {
			return store.ReviewRecord{}, fmt.Errorf("store: marshal result: %w", err)
		}
		resultJSON = string(data)
	}

	return store.ReviewRecord{
		ReviewID:   rec.ID,
		Owner:      rec.Owner,
		Repo:       rec.Repo,
		PRNumber:   rec.PRNumber,
		Status:     rec.Status,
		ResultJSON: resultJSON,
		Provider:   rec.Provider,
		Model:      rec.Model,
		HeadSHA:    rec.HeadSHA,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func toDomain(rec store.ReviewRecord) (domain.ReviewRecord, error) {
	var result *domain.ReviewResult
	if rec.ResultJSON != "" {
		result = &domain.ReviewResult{}
		if err := json.Unmarshal([]byte(rec.ResultJSON), result); err != nil {
			return domain.ReviewRecord{}, fmt.Errorf("store: unmarshal result: %w", err)
		}
	}

	return domain.ReviewRecord{
		ID:        rec.ReviewID,
		Owner:     rec.Owner,
		Repo:      rec.Repo,
		PRNumber:  rec.PRNumber,
		Status:    rec.Status,
		Result:    result,
		Provider:  rec.Provider,
		Model:     rec.Model,
		HeadSHA:   rec.HeadSHA,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
