package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aimdot-bot/internal/api"
	"aimdot-bot/internal/config"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// UserFetcher is the part of the Discord REST client used after login.
type UserFetcher interface {
	GetCurrentUser(ctx context.Context, accessToken string) (*api.DiscordUser, error)
	GetCurrentUserGuilds(ctx context.Context, accessToken string) ([]api.DiscordGuild, error)
}

type Service struct {
	oauth  *oauth2.Config
	client UserFetcher
	users  *repository.WebUserRepository
	perms  *PermissionManager
	jwt    *JWTManager
	logger zerolog.Logger
}

func NewOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordCallbackURL,
		Scopes:       []string{"identify", "guilds"},
		Endpoint:     discordEndpoint,
	}
}

func NewService(
	oauth *oauth2.Config,
	client *api.DiscordClient,
	users *repository.WebUserRepository,
	perms *PermissionManager,
	jwt *JWTManager,
	logger zerolog.Logger,
) *Service {
	return newService(oauth, client, users, perms, jwt, logger)
}

func newService(oauth *oauth2.Config, client UserFetcher, users *repository.WebUserRepository, perms *PermissionManager, jwt *JWTManager, logger zerolog.Logger) *Service {
	return &Service{
		oauth:  oauth,
		client: client,
		users:  users,
		perms:  perms,
		jwt:    jwt,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

func (s *Service) JWT() *JWTManager {
	return s.jwt
}

func (s *Service) Permissions() *PermissionManager {
	return s.perms
}

// NewState returns a random OAuth2 state value and the URL to redirect to.
func (s *Service) NewState() (state, url string, err error) {
	state, err = gonanoid.New(32)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	return state, s.oauth.AuthCodeURL(state), nil
}

type LoginResult struct {
	User  *domain.WebUser
	Role  domain.Role
	Token string
}

// Login exchanges the authorization code, stores the web user and issues a
// session token.
func (s *Service) Login(ctx context.Context, code string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	du, err := s.client.GetCurrentUser(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user: %w", err)
	}
	guilds, err := s.client.GetCurrentUserGuilds(ctx, tok.AccessToken)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", du.ID).Msg("failed to fetch guilds")
	}

	return s.completeLogin(ctx, du, len(guilds))
}

func (s *Service) completeLogin(ctx context.Context, du *api.DiscordUser, guildCount int) (*LoginResult, error) {
	now := time.Now().UTC()
	user, err := s.users.Get(ctx, du.ID)
	if errors.Is(err, repository.ErrWebUserNotFound) {
		user = &domain.WebUser{ID: du.ID, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}

	role, err := s.perms.RoleOf(ctx, du.ID)
	if err != nil {
		return nil, err
	}

	user.Username = du.Username
	user.GlobalName = du.GlobalName
	user.Avatar = du.Avatar
	user.Guilds = guildCount
	user.Role = role
	user.LastLogin = now
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save web user: %w", err)
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user logged in")
	return &LoginResult{User: user, Role: role, Token: token}, nil
}

// LandingPath is where a user goes after login.
func LandingPath(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "/dashboard"
	case domain.RoleMember:
		return "/party"
	default:
		return "/"
	}
}
