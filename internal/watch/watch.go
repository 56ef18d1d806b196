// Package watch keeps per-view playback state in step with the store: the set
// of movie ids on a profile's watchlist and the resume position of one movie.
//
// Both types read the current profile from a *session.Session and talk to the
// store through small interfaces, so the same code runs against the services
// in-process (server, CLI seed commands) and against the HTTP API client.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/sakif/streambox/internal/model"
)

// DefaultCheckpointInterval is how often playback progress is persisted.
const DefaultCheckpointInterval = 10 * time.Second

// ErrNoProfile is returned by helpers that need a profile when none is set.
// Load and Toggle treat a missing profile as a no-op instead.
var ErrNoProfile = errors.New("watch: no profile in session")

// WatchlistRemote is the store side of the watchlist.
type WatchlistRemote interface {
	ListWatchlist(ctx context.Context, profileID string) ([]string, error)
	AddToWatchlist(ctx context.Context, profileID, movieID string) error
	RemoveFromWatchlist(ctx context.Context, profileID, movieID string) error
}

// ProgressRemote is the store side of watch progress. GetProgress returns an
// error wrapping apperror.ErrNotFound when nothing was saved yet.
type ProgressRemote interface {
	GetProgress(ctx context.Context, profileID, movieID string) (*model.WatchProgress, error)
	SaveProgress(ctx context.Context, profileID, movieID string, progress int) error
}

// Recorder receives sync outcomes. *metrics.Metrics implements it.
type Recorder interface {
	WatchlistToggled(action string, err error)
	ProgressCheckpointed(err error)
}

type nopRecorder struct{}

func (nopRecorder) WatchlistToggled(string, error) {}
func (nopRecorder) ProgressCheckpointed(error)     {}

// OrNop returns r, or a Recorder that drops everything when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
