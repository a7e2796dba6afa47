package server

import (
	"net/http"
	"runtime"
	"time"

	"aimdot-bot/internal/api"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/store"
)

type dashboardResponse struct {
	Uptime      string                     `json:"uptime"`
	StartedAt   time.Time                  `json:"startedAt"`
	GoVersion   string                     `json:"goVersion"`
	Goroutines  int                        `json:"goroutines"`
	Memory      memoryStats                `json:"memory"`
	Store       storeStats                 `json:"store"`
	Parties     map[domain.PartyStatus]int `json:"parties"`
	Guilds      int                        `json:"guilds"`
	LiveClients int                        `json:"liveClients"`
	DiscordAPI  *api.RateLimitInfo         `json:"discordApi,omitempty"`
}

type memoryStats struct {
	AllocMB float64 `json:"allocMb"`
	SysMB   float64 `json:"sysMb"`
	NumGC   uint32  `json:"numGc"`
}

type storeStats struct {
	Backend      string         `json:"backend"`
	CacheEntries int            `json:"cacheEntries"`
	Namespaces   map[string]int `json:"namespaces"`
}

func toMB(b uint64) float64 {
	return float64(b*100/(1<<20)) / 100
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	namespaces, err := store.Namespaces(ctx, s.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := s.parties.CountByStatus(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	guilds := 0
	if s.guilds != nil {
		guilds = s.guilds.GuildCount()
	}

	// last rate limit state seen on the OAuth user/guild lookups
	var discordAPI *api.RateLimitInfo
	if s.api != nil {
		info := s.api.GetRateLimitInfo()
		discordAPI = &info
	}

	writeData(w, http.StatusOK, dashboardResponse{
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		StartedAt:  s.started,
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		Memory: memoryStats{
			AllocMB: toMB(mem.Alloc),
			SysMB:   toMB(mem.Sys),
			NumGC:   mem.NumGC,
		},
		Store: storeStats{
			Backend:      s.store.Backend(),
			CacheEntries: s.store.Len(),
			Namespaces:   namespaces,
		},
		Parties:     counts,
		Guilds:      guilds,
		LiveClients: s.hub.ClientCount(),
		DiscordAPI:  discordAPI,
	})
}

func (s *Server) permissions(w http.ResponseWriter, r *http.Request) {
	overview, err := s.auth.Permissions().Overview(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, overview)
}

type setRoleRequest struct {
	UserID string      `json:"userId" validate:"required"`
	Role   domain.Role `json:"role" validate:"required,oneof=guest member admin"`
}

func (s *Server) setUserRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.auth.Permissions().SetUserRole(r.Context(), principal(r).UserID, req.UserID, req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req)
}

type setPageRequest struct {
	Path string      `json:"path" validate:"required,startswith=/"`
	Role domain.Role `json:"role" validate:"required,oneof=guest member admin"`
}

func (s *Server) setPagePermission(w http.ResponseWriter, r *http.Request) {
	var req setPageRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.auth.Permissions().SetPagePermission(r.Context(), req.Path, req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, req)
}
