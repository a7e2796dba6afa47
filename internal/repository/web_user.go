package repository

import (
	"context"
	"errors"
	"fmt"

	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/store"

	"github.com/rs/zerolog"
)

var ErrWebUserNotFound = errors.New("web user not found")

type WebUserRepository struct {
	store  store.Store
	logger zerolog.Logger
}

func NewWebUserRepository(s store.Store, logger zerolog.Logger) *WebUserRepository {
	return &WebUserRepository{store: s, logger: logger}
}

func (r *WebUserRepository) Get(ctx context.Context, id string) (*domain.WebUser, error) {
	u, err := store.GetJSON[domain.WebUser](ctx, r.store, constants.WebUserKeyPrefix+id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrWebUserNotFound
	}
	return u, err
}

func (r *WebUserRepository) Save(ctx context.Context, u *domain.WebUser) error {
	u.SchemaVersion = constants.SchemaVersion
	return store.PutJSON(ctx, r.store, constants.WebUserKeyPrefix+u.ID, u)
}

func (r *WebUserRepository) List(ctx context.Context) ([]*domain.WebUser, error) {
	keys, err := r.store.Keys(ctx, constants.WebUserKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list web users: %w", err)
	}
	users := make([]*domain.WebUser, 0, len(keys))
	for _, key := range keys {
		u, err := store.GetJSON[domain.WebUser](ctx, r.store, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *WebUserRepository) Permissions(ctx context.Context) (*domain.Permissions, error) {
	p, err := store.GetJSON[domain.Permissions](ctx, r.store, constants.PermissionsKey)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.Permissions{
			SchemaVersion: constants.SchemaVersion,
			UserRoles:     map[string]domain.Role{},
			Pages:         domain.DefaultPages(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if p.UserRoles == nil {
		p.UserRoles = map[string]domain.Role{}
	}
	if p.Pages == nil {
		p.Pages = domain.DefaultPages()
	}
	return p, nil
}

func (r *WebUserRepository) SavePermissions(ctx context.Context, p *domain.Permissions) error {
	p.SchemaVersion = constants.SchemaVersion
	if err := store.PutJSON(ctx, r.store, constants.PermissionsKey, p); err != nil {
		r.logger.Error().Err(err).Msg("failed to save permissions")
		return err
	}
	return nil
}
