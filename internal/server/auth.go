package server

import (
	"net/http"
	"strings"
	"time"

	"aimdot-bot/internal/auth"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"
)

// safeReturnTo only allows local absolute paths.
func safeReturnTo(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return ""
	}
	return path
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	state, url, err := s.auth.NewState()
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The state cookie carries the post-login path after the first colon.
	value := state
	if rt := safeReturnTo(r.URL.Query().Get("returnTo")); rt != "" {
		value += ":" + rt
	}
	http.SetCookie(w, &http.Cookie{
		Name:     constants.StateCookieName,
		Value:    value,
		Path:     "/auth",
		MaxAge:   int(constants.StateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(constants.StateCookieName)
	http.SetCookie(w, &http.Cookie{
		Name:     constants.StateCookieName,
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
	if err != nil {
		s.logger.Warn().Msg("oauth callback without state cookie")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusFound)
		return
	}

	state, returnTo, _ := strings.Cut(cookie.Value, ":")
	q := r.URL.Query()
	if q.Get("state") == "" || q.Get("state") != state {
		s.logger.Warn().Msg("oauth state mismatch")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusFound)
		return
	}
	if q.Get("error") != "" || q.Get("code") == "" {
		http.Redirect(w, r, "/?error=access_denied", http.StatusFound)
		return
	}

	res, err := s.auth.Login(r.Context(), q.Get("code"))
	if err != nil {
		s.logger.Error().Err(err).Msg("discord login failed")
		http.Redirect(w, r, "/?error=login_failed", http.StatusFound)
		return
	}

	s.setSession(w, res.Token)
	if rt := safeReturnTo(returnTo); rt != "" {
		http.Redirect(w, r, rt, http.StatusFound)
		return
	}
	http.Redirect(w, r, auth.LandingPath(res.Role), http.StatusFound)
}

func (s *Server) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.auth.JWT().Duration()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

type meResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	Landing  string      `json:"landing"`
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	writeData(w, http.StatusOK, meResponse{
		ID:       p.UserID,
		Username: p.Username,
		Role:     p.Role,
		Landing:  auth.LandingPath(p.Role),
	})
}

// access answers whether the caller may open a dashboard page.
func (s *Server) access(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	allowed, err := s.auth.Permissions().CanAccess(r.Context(), principal(r).UserID, path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"path": path, "allowed": allowed})
}
