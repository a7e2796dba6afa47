package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"aimdot-bot/internal/auth"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/domain"

	"github.com/rs/zerolog"
)

const principalKey contextKey = "principal"

type Principal struct {
	UserID   string      `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

func (p *Principal) Identity() domain.Identity {
	return domain.Identity{UserID: p.UserID, Username: p.Username}
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Session resolves the session cookie into a Principal. Requests without a
// valid cookie pass through anonymously.
func Session(jwt *auth.JWTManager, perms *auth.PermissionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(constants.SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwt.Validate(cookie.Value)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring invalid session cookie")
				next.ServeHTTP(w, r)
				return
			}

			role, err := perms.RoleOf(r.Context(), claims.UserID)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", claims.UserID).Msg("failed to resolve role")
				writeError(w, http.StatusInternalServerError, "internal", "권한 확인 중 오류가 발생했습니다.")
				return
			}

			ctx := WithPrincipal(r.Context(), &Principal{
				UserID:   claims.UserID,
				Username: claims.Username,
				Role:     role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects anonymous requests with 401 and insufficient roles with 403.
func RequireRole(required domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "로그인이 필요합니다.")
				return
			}
			if !p.Role.AtLeast(required) {
				writeError(w, http.StatusForbidden, domain.ErrForbidden.Code, domain.ErrForbidden.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
