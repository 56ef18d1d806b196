// Package service holds the business rules of streambox. Handlers, the CLI
// and tests call into it; it talks to storage only through the
// repository interfaces and never sees HTTP types.
//
//	handler (HTTP) → service (rules) → repository (SQL)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/auth"
	"github.com/sakif/streambox/internal/metrics"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
)

const (
	MaxDisplayNameLength = 50

	// Shown verbatim on the sign-in form.
	msgInvalidCredentials = "Invalid login credentials"
	msgSignedOut          = "session has been signed out"
)

// AuthService signs people up, in and out, and turns tokens back into
// principals for the middleware.
type AuthService struct {
	accounts  repository.AccountRepository
	profiles  repository.ProfileRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	revoker   auth.Revoker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAuthService wires the auth rules. m may be nil.
func NewAuthService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	revoker auth.Revoker,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		profiles:  profiles,
		tokens:    tokens,
		passwords: passwords,
		revoker:   revoker,
		metrics:   m,
		logger:    logger,
	}
}

// AuthResult is everything a successful sign-in hands to the caller: the
// identity, its profile (nil when an admin deleted it), and the token.
type AuthResult struct {
	Principal *model.Principal
	Profile   *model.Profile
	Token     string
	ExpiresAt time.Time
}

// SignUp creates an account and its member profile. It does not sign the
// user in; the sign-up page sends them to /login afterwards.
func (s *AuthService) SignUp(ctx context.Context, email, password, displayName string) (*model.Principal, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < auth.MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password should be at least %d characters", auth.MinPasswordLength))
	}
	if displayName == "" {
		return nil, apperror.ValidationFailed("display_name", "Display name is required")
	}
	if len(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("display_name",
			fmt.Sprintf("Display name must be %d characters or less", MaxDisplayNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password is too long")
	}

	account := &model.Account{Email: email, PasswordHash: hash}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	profile := &model.Profile{UserID: account.ID, DisplayName: displayName, Role: model.RoleMember}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		// The account stays; signing in works and shows no profile.
		s.logger.Error("failed to create profile after sign-up",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating profile: %w", err)
	}

	s.logger.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("profile_id", profile.ID),
	)
	return account.Principal(), nil
}

// SignIn checks email and password. Unknown email, GitHub-only account and
// wrong password all produce the same unauthorized error.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (res *AuthResult, err error) {
	defer func() { s.metrics.SignIn("password", err) }()

	account, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up account: %w", err)
	}
	if account.PasswordHash == "" {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(ctx, account)
}

// LoginOrRegisterGitHub finishes the OAuth callback: upsert the account by
// GitHub id, make sure it has a profile, and issue a token.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (res *AuthResult, err error) {
	defer func() { s.metrics.SignIn("github", err) }()

	if gh == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	account := &model.Account{GitHubID: gh.ID, Email: gh.SignInEmail()}
	if err := s.accounts.UpsertGitHubAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("service/auth: upserting GitHub account %d: %w", gh.ID, err)
	}

	_, err = s.profiles.GetProfileByUserID(ctx, account.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		profile := &model.Profile{UserID: account.ID, DisplayName: gh.DisplayName(), Role: model.RoleMember}
		err = s.profiles.CreateProfile(ctx, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: ensuring profile for %s: %w", account.ID, err)
	}

	s.logger.Info("signed in via GitHub",
		slog.String("account_id", account.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(ctx, account)
}

func (s *AuthService) issue(ctx context.Context, account *model.Account) (*AuthResult, error) {
	principal := account.Principal()

	token, claims, err := s.tokens.Generate(principal)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token: %w", err)
	}

	profile, err := s.ProfileFor(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Principal: principal,
		Profile:   profile,
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// SignOut revokes the token named by claims until it would have expired.
func (s *AuthService) SignOut(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}
	s.logger.Info("signed out", slog.String("principal_id", claims.PrincipalID))
	return nil
}

// Authenticate implements auth.Authenticator. A revoked token, or one whose
// revocation status cannot be checked, is rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized(err.Error())
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		s.logger.Error("revocation check failed", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized(msgSignedOut)
	}
	if revoked {
		return nil, apperror.Unauthorized(msgSignedOut)
	}
	return claims, nil
}

// ProfileFor returns the principal's profile, or nil without error when it
// has none.
func (s *AuthService) ProfileFor(ctx context.Context, principalID string) (*model.Profile, error) {
	p, err := s.profiles.GetProfileByUserID(ctx, principalID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading profile: %w", err)
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return apperror.ValidationFailed("email", "Invalid email format")
	}
	return nil
}
