package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/repository"

	"github.com/rs/zerolog"
)

// PermissionManager resolves roles. IDs listed in ADMIN_IDS are always admin;
// everyone else gets the stored role or guest.
type PermissionManager struct {
	users  *repository.WebUserRepository
	cfg    *config.Config
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewPermissionManager(users *repository.WebUserRepository, cfg *config.Config, logger zerolog.Logger) *PermissionManager {
	return &PermissionManager{
		users:  users,
		cfg:    cfg,
		logger: logger.With().Str("component", "permissions").Logger(),
	}
}

func (p *PermissionManager) RoleOf(ctx context.Context, userID string) (domain.Role, error) {
	if p.cfg.IsAdminID(userID) {
		return domain.RoleAdmin, nil
	}
	perms, err := p.users.Permissions(ctx)
	if err != nil {
		return domain.RoleGuest, err
	}
	if role, ok := perms.UserRoles[userID]; ok {
		return role, nil
	}
	return domain.RoleGuest, nil
}

// CanAccess reports whether userID may open path. Unknown paths need member.
func (p *PermissionManager) CanAccess(ctx context.Context, userID, path string) (bool, error) {
	role, err := p.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	perms, err := p.users.Permissions(ctx)
	if err != nil {
		return false, err
	}
	required, ok := perms.Pages[path]
	if !ok {
		required = domain.RoleMember
	}
	return role.AtLeast(required), nil
}

func (p *PermissionManager) SetUserRole(ctx context.Context, actorID, targetID string, role domain.Role) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot change own role", domain.ErrForbidden)
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	perms, err := p.users.Permissions(ctx)
	if err != nil {
		return err
	}
	perms.UserRoles[targetID] = role
	if err := p.users.SavePermissions(ctx, perms); err != nil {
		return err
	}

	p.logger.Info().Str("actor_id", actorID).Str("user_id", targetID).Str("role", string(role)).Msg("user role changed")
	return nil
}

func (p *PermissionManager) SetPagePermission(ctx context.Context, path string, role domain.Role) error {
	if _, err := domain.ParseRole(string(role)); err != nil {
		return err
	}
	if path == "" || path[0] != '/' {
		return fmt.Errorf("%w: page path must start with /", domain.ErrInvalidInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	perms, err := p.users.Permissions(ctx)
	if err != nil {
		return err
	}
	perms.Pages[path] = role
	if err := p.users.SavePermissions(ctx, perms); err != nil {
		return err
	}

	p.logger.Info().Str("path", path).Str("role", string(role)).Msg("page permission changed")
	return nil
}

type UserWithRole struct {
	*domain.WebUser
	EffectiveRole domain.Role `json:"effectiveRole"`
	EnvAdmin      bool        `json:"envAdmin"`
}

type Overview struct {
	Users []UserWithRole         `json:"users"`
	Pages map[string]domain.Role `json:"pages"`
}

func (p *PermissionManager) Overview(ctx context.Context) (*Overview, error) {
	users, err := p.users.List(ctx)
	if err != nil {
		return nil, err
	}
	perms, err := p.users.Permissions(ctx)
	if err != nil {
		return nil, err
	}

	out := &Overview{Pages: perms.Pages}
	for _, u := range users {
		role := perms.UserRoles[u.ID]
		if role == "" {
			role = domain.RoleGuest
		}
		envAdmin := p.cfg.IsAdminID(u.ID)
		if envAdmin {
			role = domain.RoleAdmin
		}
		out.Users = append(out.Users, UserWithRole{WebUser: u, EffectiveRole: role, EnvAdmin: envAdmin})
	}
	sort.Slice(out.Users, func(i, j int) bool {
		return out.Users[i].LastLogin.After(out.Users[j].LastLogin)
	})
	return out, nil
}
