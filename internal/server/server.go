package server

import (
	"net/http"
	"time"

	"aimdot-bot/internal/api"
	"aimdot-bot/internal/auth"
	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/live"
	"aimdot-bot/internal/metrics"
	"aimdot-bot/internal/middleware"
	"aimdot-bot/internal/service"
	"aimdot-bot/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// GuildCounter reports how many guilds the chat bot is connected to.
type GuildCounter interface {
	GuildCount() int
}

type Params struct {
	fx.In

	Parties *service.PartyService
	Stats   *service.StatsService
	Auth    *auth.Service
	Store   *store.Cache
	Hub     *live.Hub
	Config  *config.Config
	Logger  zerolog.Logger
	Guilds  GuildCounter       `optional:"true"`
	API     *api.DiscordClient `optional:"true"`
}

// Server serves the dashboard JSON API.
type Server struct {
	parties  *service.PartyService
	stats    *service.StatsService
	auth     *auth.Service
	store    *store.Cache
	hub      *live.Hub
	guilds   GuildCounter
	api      *api.DiscordClient
	cfg      *config.Config
	validate *validator.Validate
	logger   zerolog.Logger
	started  time.Time
}

func New(p Params) *Server {
	return &Server{
		parties:  p.Parties,
		stats:    p.Stats,
		auth:     p.Auth,
		store:    p.Store,
		hub:      p.Hub,
		guilds:   p.Guilds,
		api:      p.API,
		cfg:      p.Config,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   p.Logger.With().Str("component", "http").Logger(),
		started:  time.Now(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /auth/discord", s.login)
	mux.HandleFunc("GET /auth/discord/callback", s.callback)
	mux.HandleFunc("GET /logout", s.logout)
	mux.Handle("GET /api/me", s.require(domain.RoleGuest, s.me))
	mux.Handle("GET /api/access", s.require(domain.RoleGuest, s.access))

	mux.Handle("GET /party/api/types", s.require(domain.RoleMember, s.partyTypes))
	mux.Handle("GET /party/api/list", s.require(domain.RoleMember, s.listParties))
	mux.Handle("GET /party/api/all", s.require(domain.RoleAdmin, s.listAllParties))
	mux.Handle("GET /party/api/{id}", s.require(domain.RoleMember, s.getParty))
	mux.Handle("POST /party/api/create", s.require(domain.RoleMember, s.createParty))
	mux.Handle("POST /party/api/join/{id}", s.require(domain.RoleMember, s.joinParty))
	mux.Handle("POST /party/api/move/{id}", s.require(domain.RoleMember, s.moveMember))
	mux.Handle("POST /party/api/leave/{id}", s.require(domain.RoleMember, s.leaveParty))
	mux.Handle("POST /party/api/cancel/{id}", s.require(domain.RoleMember, s.cancelParty))
	mux.Handle("POST /party/api/result/{id}", s.require(domain.RoleAdmin, s.recordResults))

	mux.Handle("GET /api/stats/me", s.require(domain.RoleMember, s.myStats))
	mux.Handle("GET /api/leaderboard", s.require(domain.RoleMember, s.leaderboard))

	mux.Handle("GET /api/admin/dashboard", s.require(domain.RoleAdmin, s.dashboard))
	mux.Handle("GET /api/admin/permissions", s.require(domain.RoleAdmin, s.permissions))
	mux.Handle("POST /api/admin/permissions/user", s.require(domain.RoleAdmin, s.setUserRole))
	mux.Handle("POST /api/admin/permissions/page", s.require(domain.RoleAdmin, s.setPagePermission))

	mux.Handle("GET /ws", s.require(domain.RoleMember, s.hub.ServeWS))

	return mux
}

// require resolves the session and enforces the minimum role. It wraps each
// route rather than the mux so the mux still records the matched pattern.
func (s *Server) require(role domain.Role, h http.HandlerFunc) http.Handler {
	return middleware.Session(s.auth.JWT(), s.auth.Permissions())(middleware.RequireRole(role)(h))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
