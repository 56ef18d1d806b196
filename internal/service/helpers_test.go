package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/streambox/internal/auth"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository/sqlstore"
)

// testEnv bundles every service over one in-memory store.
type testEnv struct {
	db        *sqlstore.DB
	tokens    *auth.TokenService
	revoker   *auth.MemoryRevoker
	auth      *AuthService
	catalog   *CatalogService
	profiles  *ProfileService
	watchlist *WatchlistService
	progress  *ProgressService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("service-test-secret-0123", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	revoker := auth.NewMemoryRevoker()
	logger := testLogger()

	return &testEnv{
		db:        db,
		tokens:    tokens,
		revoker:   revoker,
		auth:      NewAuthService(db, db, tokens, auth.NewPasswordServiceWithCost(bcrypt.MinCost), revoker, nil, logger),
		catalog:   NewCatalogService(db, db, logger),
		profiles:  NewProfileService(db, db, logger),
		watchlist: NewWatchlistService(db, db, logger),
		progress:  NewProgressService(db, db, logger),
	}
}

// signUpAndIn registers a member and returns the sign-in result.
func (e *testEnv) signUpAndIn(t *testing.T, email string) *AuthResult {
	t.Helper()
	ctx := context.Background()
	if _, err := e.auth.SignUp(ctx, email, "secret123", "Test User"); err != nil {
		t.Fatalf("SignUp(%s): %v", email, err)
	}
	res, err := e.auth.SignIn(ctx, email, "secret123")
	if err != nil {
		t.Fatalf("SignIn(%s): %v", email, err)
	}
	return res
}

func (e *testEnv) movie(t *testing.T, title string) *model.Movie {
	t.Helper()
	m, err := e.catalog.CreateMovie(context.Background(), MovieInput{
		Title:        title,
		Description:  "desc",
		ThumbnailURL: "https://example.com/t.jpg",
		VideoURL:     "https://example.com/v.mp4",
		ReleaseYear:  2001,
	})
	if err != nil {
		t.Fatalf("CreateMovie(%s): %v", title, err)
	}
	return m
}

// failingRevoker simulates an unreachable deny-list.
type failingRevoker struct{ err error }

func (f failingRevoker) Revoke(context.Context, string, time.Time) error { return f.err }
func (f failingRevoker) IsRevoked(context.Context, string) (bool, error) { return true, f.err }
