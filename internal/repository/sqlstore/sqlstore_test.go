package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
)

// newTestDB returns a fresh in-memory store that is closed with the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestAccount(t *testing.T, db *DB, email string) *model.Account {
	t.Helper()
	a := &model.Account{Email: email, PasswordHash: "hash"}
	if err := db.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return a
}

func createTestProfile(t *testing.T, db *DB, email string) *model.Profile {
	t.Helper()
	a := createTestAccount(t, db, email)
	p := &model.Profile{UserID: a.ID, DisplayName: email}
	if err := db.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

func createTestMovie(t *testing.T, db *DB, title string) *model.Movie {
	t.Helper()
	m := &model.Movie{
		Title:        title,
		Description:  "a test movie",
		ThumbnailURL: "https://example.com/thumb.jpg",
		VideoURL:     "https://example.com/video.mp4",
		ReleaseYear:  1999,
	}
	if err := db.CreateMovie(context.Background(), m); err != nil {
		t.Fatalf("failed to create test movie: %v", err)
	}
	return m
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Fatal("Open() should reject unknown drivers")
	}
}

func TestRebind(t *testing.T) {
	sqlite := &DB{driver: DriverSQLite}
	pg := &DB{driver: DriverPostgres}

	q := `SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?`
	if got := sqlite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed the query: %q", got)
	}
	want := `SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3`
	if got := pg.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

// =========================================================================
// ACCOUNTS
// =========================================================================

func TestCreateAccount(t *testing.T) {
	db := newTestDB(t)
	a := &model.Account{Email: "  Neo@Example.com ", PasswordHash: "hash"}

	if err := db.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if a.ID == "" {
		t.Error("CreateAccount() did not set ID")
	}
	if a.Email != "neo@example.com" {
		t.Errorf("Email = %q, want normalised %q", a.Email, "neo@example.com")
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreateAccount() did not set CreatedAt")
	}
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestAccount(t, db, "neo@example.com")

	err := db.CreateAccount(context.Background(), &model.Account{Email: "NEO@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateAccount() error = %v, want ErrConflict", err)
	}
	if err.Error() != "User already registered" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestGetAccountByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestAccount(t, db, "trinity@example.com")

	found, err := db.GetAccountByEmail(context.Background(), "Trinity@Example.com")
	if err != nil {
		t.Fatalf("GetAccountByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
	if found.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, "hash")
	}
	if found.GitHubID != 0 {
		t.Errorf("GitHubID = %d, want 0 for a password account", found.GitHubID)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetAccountByID(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetAccountByID() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetAccountByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetAccountByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUpsertGitHubAccount_KeepsID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.Account{GitHubID: 42, Email: "octocat@github.com"}
	if err := db.UpsertGitHubAccount(ctx, first); err != nil {
		t.Fatalf("first upsert error = %v", err)
	}

	second := &model.Account{GitHubID: 42, Email: "new@github.com"}
	if err := db.UpsertGitHubAccount(ctx, second); err != nil {
		t.Fatalf("second upsert error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed across upserts: %q → %q", first.ID, second.ID)
	}

	found, err := db.GetAccountByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetAccountByID() error = %v", err)
	}
	if found.Email != "new@github.com" || found.GitHubID != 42 {
		t.Errorf("account after upsert = %+v", found)
	}
}

func TestUpsertGitHubAccount_RequiresGitHubID(t *testing.T) {
	db := newTestDB(t)
	err := db.UpsertGitHubAccount(context.Background(), &model.Account{Email: "x@example.com"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// PROFILES
// =========================================================================

func TestCreateProfile_DefaultsToMember(t *testing.T) {
	db := newTestDB(t)
	p := createTestProfile(t, db, "morpheus@example.com")

	if p.Role != model.RoleMember {
		t.Errorf("Role = %q, want %q", p.Role, model.RoleMember)
	}

	found, err := db.GetProfileByUserID(context.Background(), p.UserID)
	if err != nil {
		t.Fatalf("GetProfileByUserID() error = %v", err)
	}
	if found.ID != p.ID || found.DisplayName != "morpheus@example.com" {
		t.Errorf("found = %+v, want %+v", found, p)
	}
}

func TestCreateProfile_UnknownAccount(t *testing.T) {
	db := newTestDB(t)
	err := db.CreateProfile(context.Background(), &model.Profile{UserID: "ghost", DisplayName: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateProfile_OnePerAccount(t *testing.T) {
	db := newTestDB(t)
	p := createTestProfile(t, db, "tank@example.com")

	err := db.CreateProfile(context.Background(), &model.Profile{UserID: p.UserID, DisplayName: "again"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestSetProfileRole(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProfile(t, db, "oracle@example.com")

	if err := db.SetProfileRole(ctx, p.ID, model.RoleAdmin); err != nil {
		t.Fatalf("SetProfileRole() error = %v", err)
	}
	found, _ := db.GetProfileByUserID(ctx, p.UserID)
	if !model.IsAdmin(found) {
		t.Errorf("Role = %q, want admin", found.Role)
	}

	if err := db.SetProfileRole(ctx, p.ID, model.Role("root")); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("invalid role error = %v, want ErrValidation", err)
	}
	if err := db.SetProfileRole(ctx, "missing", model.RoleAdmin); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing profile error = %v, want ErrNotFound", err)
	}
}

func TestListProfiles(t *testing.T) {
	db := newTestDB(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		createTestProfile(t, db, email)
	}

	all, err := db.ListProfiles(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}

	page, err := db.ListProfiles(context.Background(), repository.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListProfiles() page error = %v", err)
	}
	if len(page) != 1 {
		t.Errorf("page len = %d, want 1", len(page))
	}
}

func TestDeleteProfile_CascadesWatchData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProfile(t, db, "switch@example.com")
	m := createTestMovie(t, db, "The Matrix")

	if err := db.AddWatchlistEntry(ctx, &model.WatchlistEntry{UserID: p.ID, MovieID: m.ID}); err != nil {
		t.Fatalf("AddWatchlistEntry() error = %v", err)
	}
	if err := db.UpsertProgress(ctx, &model.WatchProgress{UserID: p.ID, MovieID: m.ID, Progress: 10}); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}

	if err := db.DeleteProfile(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProfile() error = %v", err)
	}

	entries, err := db.ListWatchlist(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListWatchlist() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("watchlist has %d rows after profile delete, want 0", len(entries))
	}
	if _, err := db.GetProgress(ctx, p.ID, m.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProgress() error = %v, want ErrNotFound", err)
	}

	// The account survives; sign-in still works, just without a profile.
	if _, err := db.GetAccountByID(ctx, p.UserID); err != nil {
		t.Errorf("account gone after profile delete: %v", err)
	}

	if err := db.DeleteProfile(ctx, p.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteProfile() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// MOVIES & CATEGORIES
// =========================================================================

func TestMovieLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := createTestMovie(t, db, "Inception")

	found, err := db.GetMovie(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if found.Title != "Inception" || found.ReleaseYear != 1999 || found.VideoURL != m.VideoURL {
		t.Errorf("found = %+v", found)
	}

	n, err := db.CountMovies(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountMovies() = %d, %v; want 1, nil", n, err)
	}

	if err := db.DeleteMovie(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMovie() error = %v", err)
	}
	if _, err := db.GetMovie(ctx, m.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetMovie() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteMovie(ctx, m.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteMovie() twice error = %v, want ErrNotFound", err)
	}
}

func TestListMovies_Limit(t *testing.T) {
	db := newTestDB(t)
	for _, title := range []string{"One", "Two", "Three"} {
		createTestMovie(t, db, title)
	}

	movies, err := db.ListMovies(context.Background(), repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListMovies() error = %v", err)
	}
	if len(movies) != 2 {
		t.Errorf("len = %d, want 2", len(movies))
	}
}

func TestCategories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i, name := range []string{"Sci-Fi Hits", "Trending Now"} {
		// positions are reversed on purpose: ordering is by position, not insert order
		c := &model.Category{Name: name, Position: 1 - i}
		if err := db.CreateCategory(ctx, c); err != nil {
			t.Fatalf("CreateCategory(%q) error = %v", name, err)
		}
	}

	categories, err := db.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) != 2 || categories[0].Name != "Trending Now" {
		t.Errorf("categories = %+v, want Trending Now first", categories)
	}

	err = db.CreateCategory(ctx, &model.Category{Name: "Trending Now"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate category error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// WATCHLIST & PROGRESS
// =========================================================================

func TestWatchlist_AddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProfile(t, db, "neo@example.com")
	m := createTestMovie(t, db, "The Matrix")

	for i := 0; i < 2; i++ {
		if err := db.AddWatchlistEntry(ctx, &model.WatchlistEntry{UserID: p.ID, MovieID: m.ID}); err != nil {
			t.Fatalf("AddWatchlistEntry() #%d error = %v", i+1, err)
		}
	}

	entries, err := db.ListWatchlist(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListWatchlist() error = %v", err)
	}
	if len(entries) != 1 || entries[0].MovieID != m.ID {
		t.Errorf("entries = %+v, want exactly %s", entries, m.ID)
	}
}

func TestWatchlist_Remove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProfile(t, db, "neo@example.com")
	m := createTestMovie(t, db, "The Matrix")

	_ = db.AddWatchlistEntry(ctx, &model.WatchlistEntry{UserID: p.ID, MovieID: m.ID})
	if err := db.RemoveWatchlistEntry(ctx, p.ID, m.ID); err != nil {
		t.Fatalf("RemoveWatchlistEntry() error = %v", err)
	}
	if err := db.RemoveWatchlistEntry(ctx, p.ID, m.ID); err != nil {
		t.Errorf("removing an absent pair should not fail: %v", err)
	}

	entries, _ := db.ListWatchlist(ctx, p.ID)
	if len(entries) != 0 {
		t.Errorf("len = %d, want 0", len(entries))
	}
}

func TestWatchlist_UnknownMovie(t *testing.T) {
	db := newTestDB(t)
	p := createTestProfile(t, db, "neo@example.com")

	err := db.AddWatchlistEntry(context.Background(), &model.WatchlistEntry{UserID: p.ID, MovieID: "nope"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestProgress_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProfile(t, db, "neo@example.com")
	m := createTestMovie(t, db, "Interstellar")

	if _, err := db.GetProgress(ctx, p.ID, m.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetProgress() before any checkpoint error = %v, want ErrNotFound", err)
	}

	for _, v := range []int{10, 45} {
		if err := db.UpsertProgress(ctx, &model.WatchProgress{UserID: p.ID, MovieID: m.ID, Progress: v}); err != nil {
			t.Fatalf("UpsertProgress(%d) error = %v", v, err)
		}
	}

	got, err := db.GetProgress(ctx, p.ID, m.ID)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if got.Progress != 45 {
		t.Errorf("Progress = %d, want 45 (last write wins)", got.Progress)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestProgress_Clamped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestProfile(t, db, "neo@example.com")
	m := createTestMovie(t, db, "Interstellar")

	if err := db.UpsertProgress(ctx, &model.WatchProgress{UserID: p.ID, MovieID: m.ID, Progress: 250}); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}
	got, _ := db.GetProgress(ctx, p.ID, m.ID)
	if got.Progress != 100 {
		t.Errorf("Progress = %d, want 100", got.Progress)
	}
}
