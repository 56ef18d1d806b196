package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/streambox/internal/auth"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/service"
	"github.com/sakif/streambox/internal/session"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves both faces of authentication: the /login and /signup
// forms for browsers and the /api/auth endpoints for API clients. The GitHub
// routes are only mounted when a provider is configured.
type AuthHandler struct {
	auth         *service.AuthService
	github       *auth.GitHubProvider // nil when GitHub sign-in is disabled
	views        *Renderer
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	views *Renderer,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		github:       github,
		views:        views,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// --- pages ---

type authForm struct {
	Email       string
	DisplayName string
}

// HandleLoginPage renders the sign-in form.
//
// HTTP: GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Principal() != nil {
		http.Redirect(w, r, session.BrowsePath, http.StatusSeeOther)
		return
	}

	data := pageData{Title: "Sign In", Page: authForm{}}
	q := r.URL.Query()
	if q.Get("registered") != "" {
		data.Notice = "Account created. Please sign in."
	}
	if msg := q.Get("error"); msg != "" {
		data.Flash = msg
	}
	h.views.Render(w, r, http.StatusOK, "login", data)
}

// HandleLogin signs in with the posted email and password and sets the
// session cookie. Failures re-render the form with the error message.
//
// HTTP: POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.views.Render(w, r, http.StatusBadRequest, "login", pageData{Title: "Sign In", Flash: "Invalid form submission"})
		return
	}
	email := r.PostForm.Get("email")

	res, err := h.auth.SignIn(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		status, msg := formError(err, h.logger)
		h.views.Render(w, r, status, "login", pageData{
			Title: "Sign In",
			Flash: msg,
			Page:  authForm{Email: email},
		})
		return
	}

	auth.SetTokenCookie(w, res.Token, res.ExpiresAt, h.secureCookie)
	http.Redirect(w, r, session.BrowsePath, http.StatusSeeOther)
}

// HandleSignupPage renders the sign-up form.
//
// HTTP: GET /signup
func (h *AuthHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "signup", pageData{Title: "Sign Up", Page: authForm{}})
}

// HandleSignup creates the account and sends the browser to /login. It does
// not sign in.
//
// HTTP: POST /signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.views.Render(w, r, http.StatusBadRequest, "signup", pageData{Title: "Sign Up", Flash: "Invalid form submission"})
		return
	}
	form := authForm{
		Email:       r.PostForm.Get("email"),
		DisplayName: r.PostForm.Get("display_name"),
	}

	if _, err := h.auth.SignUp(r.Context(), form.Email, r.PostForm.Get("password"), form.DisplayName); err != nil {
		status, msg := formError(err, h.logger)
		h.views.Render(w, r, status, "signup", pageData{Title: "Sign Up", Flash: msg, Page: form})
		return
	}

	http.Redirect(w, r, session.SignInPath+"?registered=1", http.StatusSeeOther)
}

// HandleLogout signs the request's session out and always clears the
// cookie, even when the token could not be revoked.
//
// HTTP: POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.signOut(r.Context()); err != nil {
		h.logger.Error("sign out failed", slog.String("error", err.Error()))
	}
	auth.ClearTokenCookie(w, h.secureCookie)
	http.Redirect(w, r, session.SignInPath, http.StatusSeeOther)
}

func (h *AuthHandler) signOut(ctx context.Context) error {
	claims, _ := auth.ClaimsFromContext(ctx)
	return session.FromContext(ctx).SignOut(ctx, session.SignOutFunc(func(ctx context.Context) error {
		if claims == nil {
			return nil
		}
		return h.auth.SignOut(ctx, claims)
	}))
}

// --- JSON API ---

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse is returned by POST /api/auth/signin.
type SignInResponse struct {
	Principal *model.Principal `json:"principal"`
	Profile   *model.Profile   `json:"profile"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// MeResponse describes the caller's session.
type MeResponse struct {
	Principal *model.Principal `json:"principal"`
	Profile   *model.Profile   `json:"profile"`
	IsAdmin   bool             `json:"isAdmin"`
}

// HandleAPISignUp
//
// HTTP: POST /api/auth/signup
func (h *AuthHandler) HandleAPISignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	principal, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"principal": principal})
}

// HandleAPISignIn returns a bearer token for API clients.
//
// HTTP: POST /api/auth/signin
func (h *AuthHandler) HandleAPISignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SignInResponse{
		Principal: res.Principal,
		Profile:   res.Profile,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// HandleAPISignOut revokes the caller's token. Signed-out callers get a 204
// too. A revocation failure is reported, but the cookie is cleared first.
//
// HTTP: POST /api/auth/signout
func (h *AuthHandler) HandleAPISignOut(w http.ResponseWriter, r *http.Request) {
	err := h.signOut(r.Context())
	auth.ClearTokenCookie(w, h.secureCookie)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	snap := session.FromContext(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, MeResponse{
		Principal: snap.Principal,
		Profile:   snap.Profile,
		IsAdmin:   snap.IsAdmin,
	})
}

// --- GitHub ---

// GitHubEnabled reports whether the /auth/github routes should be mounted.
func (h *AuthHandler) GitHubEnabled() bool {
	return h.github != nil
}

// HandleGitHubLogin redirects to GitHub's authorization page. The state is
// kept in a short-lived cookie and checked on the way back.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the OAuth flow: check the state, exchange
// the code, sign in (creating the account and profile on first use).
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		loginError(w, r, "GitHub sign-in was cancelled")
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		loginError(w, r, "GitHub sign-in failed")
		return
	}

	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		_, msg := formError(err, h.logger)
		loginError(w, r, msg)
		return
	}

	auth.SetTokenCookie(w, res.Token, res.ExpiresAt, h.secureCookie)
	http.Redirect(w, r, session.BrowsePath, http.StatusSeeOther)
}

func loginError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, session.SignInPath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}
