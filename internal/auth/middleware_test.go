package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/session"
)

// stubAuthenticator accepts exactly one token.
type stubAuthenticator struct {
	token   string
	claims  *Claims
	profile *model.Profile
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*Claims, error) {
	if token != s.token {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func (s *stubAuthenticator) ProfileFor(context.Context, string) (*model.Profile, error) {
	return s.profile, nil
}

func newStub(role model.Role) *stubAuthenticator {
	return &stubAuthenticator{
		token:   "good",
		claims:  &Claims{PrincipalID: "u1", Email: "u1@example.com", TokenID: "jti"},
		profile: &model.Profile{ID: "p1", UserID: "u1", Role: role},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoSession records the session the handler saw.
func echoSession(got *session.Snapshot) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = session.FromContext(r.Context()).Snapshot()
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_Cookie(t *testing.T) {
	var snap session.Snapshot
	h := Authenticate(newStub(model.RoleAdmin), quietLogger())(echoSession(&snap))

	req := httptest.NewRequest(http.MethodGet, "/browse", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "good"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, snap.Principal)
	assert.Equal(t, "u1", snap.Principal.ID)
	assert.Equal(t, "p1", snap.Profile.ID)
	assert.True(t, snap.IsAdmin)
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	var snap session.Snapshot
	h := Authenticate(newStub(model.RoleMember), quietLogger())(echoSession(&snap))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, snap.Principal)
	assert.False(t, snap.IsAdmin)
}

func TestAuthenticate_BadTokenIsAnonymous(t *testing.T) {
	var snap session.Snapshot
	h := Authenticate(newStub(model.RoleAdmin), quietLogger())(echoSession(&snap))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, snap.Principal)
	assert.False(t, snap.IsAdmin)
}

func TestRequirePage(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		role      model.Role
		adminOnly bool
		wantCode  int
		wantLoc   string
	}{
		{"anonymous to browse", "", model.RoleMember, false, http.StatusSeeOther, "/login"},
		{"anonymous to admin", "", model.RoleMember, true, http.StatusSeeOther, "/login"},
		{"member to browse", "good", model.RoleMember, false, http.StatusOK, ""},
		{"member to admin", "good", model.RoleMember, true, http.StatusSeeOther, "/browse"},
		{"admin to admin", "good", model.RoleAdmin, true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })
			h := Authenticate(newStub(tt.role), quietLogger())(RequirePage(tt.adminOnly)(inner))

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.token})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			assert.Equal(t, tt.wantCode == http.StatusOK, reached)
		})
	}
}

func TestRequireAPI(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	run := func(token string, role model.Role, adminOnly bool) *httptest.ResponseRecorder {
		h := Authenticate(newStub(role), quietLogger())(RequireAPI(adminOnly)(inner))
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, run("", model.RoleAdmin, false).Code)
	assert.Equal(t, http.StatusForbidden, run("good", model.RoleMember, true).Code)
	assert.Equal(t, http.StatusNoContent, run("good", model.RoleMember, false).Code)
	assert.Equal(t, http.StatusNoContent, run("good", model.RoleAdmin, true).Code)

	rec := run("", model.RoleAdmin, true)
	assert.JSONEq(t, `{"error":"unauthorized","message":"valid authentication required"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestWriteJSONError_Escapes(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONError(rec, http.StatusForbidden, "forbidden", `say "no" \ here`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body jsonError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, `say "no" \ here`, body.Message)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(req))

	req.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(req))

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(req), "cookie wins over header")
}

func TestClaimsFromContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	var got *Claims
	h := Authenticate(newStub(model.RoleMember), quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "good"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "jti", got.TokenID)
}

func TestCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTokenCookie(rec, "tok", time.Now().Add(time.Hour), true)
	c := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	ClearTokenCookie(rec, false)
	c = rec.Result().Cookies()[0]
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}
