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

type PartyRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewPartyRepository(s store.Store, logger zerolog.Logger) *PartyRepository {
	return &PartyRepository{store: s, logger: logger}
}

func partyKey(id string) string {
	return constants.PartyKeyPrefix + id
}

func (r *PartyRepository) Get(ctx context.Context, id string) (*domain.Party, error) {
	key := partyKey(id)
	if id == "" || !store.ValidKey(key) || strings.HasPrefix(key, constants.UserRecordKeyPrefix) {
		return nil, domain.ErrPartyNotFound
	}
	party, err := store.GetJSON[domain.Party](ctx, r.store, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrPartyNotFound
	}
	if err != nil {
		r.logger.Error().Err(err).Str("party_id", id).Msg("failed to load party")
		return nil, err
	}
	return party, nil
}

func (r *PartyRepository) Save(ctx context.Context, party *domain.Party) error {
	party.SchemaVersion = constants.SchemaVersion
	if err := store.PutJSON(ctx, r.store, partyKey(party.ID), party); err != nil {
		r.logger.Error().Err(err).Str("party_id", party.ID).Msg("failed to save party")
		return err
	}
	return nil
}

// List loads every party document. User records share the party_ prefix and
// are skipped.
func (r *PartyRepository) List(ctx context.Context) ([]*domain.Party, error) {
	keys, err := r.store.Keys(ctx, constants.PartyKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}

	var partyKeys []string
	for _, k := range keys {
		if !strings.HasPrefix(k, constants.UserRecordKeyPrefix) {
			partyKeys = append(partyKeys, k)
		}
	}

	parties := make([]*domain.Party, len(partyKeys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.LoadConcurrency)
	for i, key := range partyKeys {
		g.Go(func() error {
			p, err := store.GetJSON[domain.Party](gctx, r.store, key)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			parties[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load parties: %w", err)
	}

	out := parties[:0]
	for _, p := range parties {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}
