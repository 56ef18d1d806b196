package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/session"
)

// Authenticator resolves a raw token to claims (signature, expiry and
// revocation all checked) and a principal to its profile.
// service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Claims, error)
	ProfileFor(ctx context.Context, principalID string) (*model.Profile, error)
}

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate puts a *session.Session into every request context.
//
// The token is read from the "token" cookie, or from an
// "Authorization: Bearer" header for API clients. A missing or bad token is
// not an error here: the request simply carries a signed-out session and the
// guards further down decide what to do with it.
func Authenticate(a Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.New()
			ctx := r.Context()

			if raw := TokenFromRequest(r); raw != "" {
				claims, err := a.Authenticate(ctx, raw)
				if err == nil {
					sess.SetPrincipal(claims.Principal())
					ctx = context.WithValue(ctx, claimsKey, claims)

					profile, err := a.ProfileFor(ctx, claims.PrincipalID)
					if err != nil {
						logger.Error("failed to load profile",
							slog.String("principal_id", claims.PrincipalID),
							slog.String("error", err.Error()),
						)
					}
					sess.SetProfile(profile)
				} else {
					logger.Debug("ignoring invalid token", slog.String("error", err.Error()))
				}
			}

			next.ServeHTTP(w, r.WithContext(session.NewContext(ctx, sess)))
		})
	}
}

// TokenFromRequest returns the session token from the cookie or the Bearer
// header, cookie first.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ClaimsFromContext returns the validated claims of the request, if any.
// Sign-out needs them to revoke the token.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// RequirePage guards HTML routes: anonymous users are sent to /login and
// members trying an admin page are sent to /browse. The handler behind a
// guard that redirects is never called, so no admin data is loaded.
func RequirePage(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := session.Check(session.FromContext(r.Context()).Snapshot(), adminOnly)
			if d != session.Allow {
				http.Redirect(w, r, d.Location(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAPI is the JSON counterpart of RequirePage: 401 for anonymous
// callers, 403 for members on admin endpoints.
func RequireAPI(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch session.Check(session.FromContext(r.Context()).Snapshot(), adminOnly) {
			case session.RedirectSignIn:
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
				return
			case session.RedirectBrowse:
				writeJSONError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// jsonError has the same shape as handler.ErrorResponse. The handler
// package imports this one, so the type cannot be shared.
type jsonError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: code, Message: message})
}
