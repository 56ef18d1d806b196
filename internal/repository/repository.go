// Package repository declares the storage contracts the services depend on.
//
// The interfaces describe the "hosted backend" of the app: a handful of tables
// read with equality filters and ordering, written with insert, delete by
// filter and upsert by compound key. internal/repository/sqlstore implements
// all of them on SQLite or Postgres; services and tests only see these types.
package repository

import (
	"context"

	"github.com/sakif/streambox/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// AccountRepository stores sign-in credentials.
type AccountRepository interface {
	// CreateAccount returns apperror.ErrConflict when the email is taken.
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	// UpsertGitHubAccount keeps the internal id stable across logins.
	UpsertGitHubAccount(ctx context.Context, account *model.Account) error
}

type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *model.Profile) error
	GetProfileByUserID(ctx context.Context, userID string) (*model.Profile, error)
	ListProfiles(ctx context.Context, opts ListOptions) ([]model.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	SetProfileRole(ctx context.Context, id string, role model.Role) error
}

type MovieRepository interface {
	CreateMovie(ctx context.Context, movie *model.Movie) error
	GetMovie(ctx context.Context, id string) (*model.Movie, error)
	ListMovies(ctx context.Context, opts ListOptions) ([]model.Movie, error)
	CountMovies(ctx context.Context) (int, error)
	DeleteMovie(ctx context.Context, id string) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
}

type WatchlistRepository interface {
	ListWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error)
	// AddWatchlistEntry is idempotent on (UserID, MovieID).
	AddWatchlistEntry(ctx context.Context, entry *model.WatchlistEntry) error
	RemoveWatchlistEntry(ctx context.Context, userID, movieID string) error
}

type ProgressRepository interface {
	// GetProgress returns apperror.ErrNotFound when no row exists for the pair.
	GetProgress(ctx context.Context, userID, movieID string) (*model.WatchProgress, error)
	UpsertProgress(ctx context.Context, progress *model.WatchProgress) error
}
