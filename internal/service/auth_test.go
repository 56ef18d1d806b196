package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/auth"
	"github.com/sakif/streambox/internal/model"
)

func TestSignUp_CreatesMemberProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.auth.SignUp(ctx, " Neo@Example.com ", "secret123", "  Neo  ")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if p.Email != "neo@example.com" {
		t.Errorf("Email = %q, want normalised", p.Email)
	}

	profile, err := env.auth.ProfileFor(ctx, p.ID)
	if err != nil || profile == nil {
		t.Fatalf("ProfileFor() = %v, %v", profile, err)
	}
	if profile.Role != model.RoleMember || profile.DisplayName != "Neo" {
		t.Errorf("profile = %+v, want member named Neo", profile)
	}
}

func TestSignUp_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name, email, password, display, field string
	}{
		{"empty email", "", "secret123", "x", "email"},
		{"bad email", "not-an-email", "secret123", "x", "email"},
		{"no tld", "a@localhost", "secret123", "x", "email"},
		{"short password", "a@example.com", "12345", "x", "password"},
		{"missing display name", "a@example.com", "secret123", "   ", "display_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.SignUp(context.Background(), tt.email, tt.password, tt.display)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestSignUp_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.SignUp(ctx, "neo@example.com", "secret123", "Neo"); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}
	_, err := env.auth.SignUp(ctx, "NEO@example.com", "other-pass", "Neo 2")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	if err.Error() != "User already registered" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	res := env.signUpAndIn(t, "trinity@example.com")

	if res.Token == "" || res.ExpiresAt.IsZero() {
		t.Errorf("result missing token: %+v", res)
	}
	if res.Profile == nil || res.Profile.UserID != res.Principal.ID {
		t.Errorf("Profile = %+v, want one owned by %s", res.Profile, res.Principal.ID)
	}

	claims, err := env.auth.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if claims.PrincipalID != res.Principal.ID {
		t.Errorf("PrincipalID = %q, want %q", claims.PrincipalID, res.Principal.ID)
	}
}

func TestSignIn_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signUpAndIn(t, "trinity@example.com")

	for _, tc := range []struct{ email, password string }{
		{"trinity@example.com", "wrong-password"},
		{"nobody@example.com", "secret123"},
	} {
		_, err := env.auth.SignIn(context.Background(), tc.email, tc.password)
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("SignIn(%s) error = %v, want ErrUnauthorized", tc.email, err)
			continue
		}
		if err.Error() != "Invalid login credentials" {
			t.Errorf("message = %q", err.Error())
		}
	}
}

func TestSignIn_DeletedProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.signUpAndIn(t, "switch@example.com")

	if err := env.db.DeleteProfile(ctx, first.Profile.ID); err != nil {
		t.Fatalf("DeleteProfile() error = %v", err)
	}

	res, err := env.auth.SignIn(ctx, "switch@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if res.Profile != nil {
		t.Errorf("Profile = %+v, want nil after deletion", res.Profile)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.signUpAndIn(t, "neo@example.com")

	claims, err := env.auth.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if err := env.auth.SignOut(ctx, claims); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if _, err := env.auth.Authenticate(ctx, res.Token); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Authenticate() after sign-out error = %v, want ErrUnauthorized", err)
	}
	if err := env.auth.SignOut(ctx, nil); err != nil {
		t.Errorf("SignOut(nil) error = %v", err)
	}
}

func TestAuthenticate_FailsClosed(t *testing.T) {
	env := newTestEnv(t)
	res := env.signUpAndIn(t, "neo@example.com")

	env.auth.revoker = failingRevoker{err: errors.New("redis down")}

	if _, err := env.auth.Authenticate(context.Background(), res.Token); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if err := env.auth.SignOut(context.Background(), &auth.Claims{TokenID: "x"}); err == nil {
		t.Error("SignOut() should report the revocation failure")
	}
}

func TestAuthenticate_Garbage(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.auth.Authenticate(context.Background(), "garbage"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginOrRegisterGitHub(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gh := &auth.GitHubUser{ID: 99, Login: "Octocat", Name: "The Octocat"}

	first, err := env.auth.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("first login error = %v", err)
	}
	if first.Principal.Email != "octocat@users.noreply.github.com" {
		t.Errorf("Email = %q", first.Principal.Email)
	}
	if first.Profile == nil || first.Profile.DisplayName != "The Octocat" {
		t.Fatalf("Profile = %+v", first.Profile)
	}

	second, err := env.auth.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("second login error = %v", err)
	}
	if second.Principal.ID != first.Principal.ID || second.Profile.ID != first.Profile.ID {
		t.Error("repeat GitHub login should reuse account and profile")
	}

	// GitHub accounts have no password
	if _, err := env.auth.SignIn(ctx, first.Principal.Email, ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("password sign-in for a GitHub account error = %v", err)
	}

	if _, err := env.auth.LoginOrRegisterGitHub(ctx, nil); err == nil {
		t.Error("nil GitHub user should fail")
	}
}
