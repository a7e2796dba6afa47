package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type UserRecordRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewUserRecordRepository(s store.Store, logger zerolog.Logger) *UserRecordRepository {
	return &UserRecordRepository{store: s, logger: logger}
}

func userRecordKey(userID string) string {
	return constants.UserRecordKeyPrefix + userID
}

// Get returns the stored record or a zeroed one when the user has none yet.
func (r *UserRecordRepository) Get(ctx context.Context, userID string) (*domain.UserRecord, error) {
	rec, err := store.GetJSON[domain.UserRecord](ctx, r.store, userRecordKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return &domain.UserRecord{
			SchemaVersion: constants.SchemaVersion,
			UserID:        userID,
			Matches:       []domain.MatchEntry{},
		}, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load user record")
		return nil, err
	}
	if rec.UserID == "" {
		rec.UserID = userID
	}
	return rec, nil
}

func (r *UserRecordRepository) Save(ctx context.Context, rec *domain.UserRecord) error {
	rec.SchemaVersion = constants.SchemaVersion
	if err := store.PutJSON(ctx, r.store, userRecordKey(rec.UserID), rec); err != nil {
		r.logger.Error().Err(err).Str("user_id", rec.UserID).Msg("failed to save user record")
		return err
	}
	return nil
}

func (r *UserRecordRepository) All(ctx context.Context) ([]*domain.UserRecord, error) {
	keys, err := r.store.Keys(ctx, constants.UserRecordKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}

	records := make([]*domain.UserRecord, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.LoadConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			rec, err := store.GetJSON[domain.UserRecord](gctx, r.store, key)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if rec.UserID == "" {
				rec.UserID = strings.TrimPrefix(key, constants.UserRecordKeyPrefix)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load user records: %w", err)
	}

	out := records[:0]
	for _, rec := range records {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}
