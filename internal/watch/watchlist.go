package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/streambox/internal/session"
)

// Watchlist is the local set of movie ids saved by the session's profile.
//
// Toggle mutates the set before the remote call returns so the UI can flip the
// button immediately. If the remote call fails the change is rolled back and
// the error returned, so local and remote never stay apart.
//
// Toggles are serialized: two quick toggles of the same movie reach the store
// in the order they were made.
type Watchlist struct {
	remote WatchlistRemote
	sess   *session.Session
	rec    Recorder
	logger *slog.Logger

	toggleMu sync.Mutex // held for the whole of one Toggle or Load

	mu  sync.RWMutex // guards ids
	ids map[string]struct{}
}

// NewWatchlist returns an empty Watchlist. rec may be nil.
func NewWatchlist(remote WatchlistRemote, sess *session.Session, rec Recorder, logger *slog.Logger) *Watchlist {
	return &Watchlist{
		remote: remote,
		sess:   sess,
		rec:    OrNop(rec),
		logger: logger,
		ids:    make(map[string]struct{}),
	}
}

// Load replaces the local set with the profile's rows from the store. It
// waits for an in-flight Toggle so a revert never lands on reloaded state.
// Without a profile it does nothing.
func (w *Watchlist) Load(ctx context.Context) error {
	profileID := w.sess.ProfileID()
	if profileID == "" {
		return nil
	}

	w.toggleMu.Lock()
	defer w.toggleMu.Unlock()

	ids, err := w.remote.ListWatchlist(ctx, profileID)
	if err != nil {
		return fmt.Errorf("watch: loading watchlist: %w", err)
	}

	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	w.mu.Lock()
	w.ids = next
	w.mu.Unlock()
	return nil
}

// Toggle adds movieID when it is absent and removes it when present.
// added reports the new membership. Without a profile it does nothing.
func (w *Watchlist) Toggle(ctx context.Context, movieID string) (added bool, err error) {
	profileID := w.sess.ProfileID()
	if profileID == "" {
		return false, nil
	}

	w.toggleMu.Lock()
	defer w.toggleMu.Unlock()

	wasPresent := w.flip(movieID)

	action := "add"
	if wasPresent {
		action = "remove"
		err = w.remote.RemoveFromWatchlist(ctx, profileID, movieID)
	} else {
		err = w.remote.AddToWatchlist(ctx, profileID, movieID)
	}
	w.rec.WatchlistToggled(action, err)

	if err != nil {
		w.flip(movieID)
		w.logger.Error("watchlist toggle failed, reverted",
			slog.String("action", action),
			slog.String("movie_id", movieID),
			slog.String("profile_id", profileID),
			slog.String("error", err.Error()),
		)
		return wasPresent, fmt.Errorf("watch: %s %s: %w", action, movieID, err)
	}

	return !wasPresent, nil
}

// flip inverts membership of id and returns whether it was present before.
func (w *Watchlist) flip(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.ids[id]; ok {
		delete(w.ids, id)
		return true
	}
	w.ids[id] = struct{}{}
	return false
}

func (w *Watchlist) Has(movieID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.ids[movieID]
	return ok
}

// IDs returns the set sorted, for stable rendering and tests.
func (w *Watchlist) IDs() []string {
	w.mu.RLock()
	ids := make([]string, 0, len(w.ids))
	for id := range w.ids {
		ids = append(ids, id)
	}
	w.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (w *Watchlist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.ids)
}
