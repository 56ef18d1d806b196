package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/service"
	"github.com/sakif/streambox/internal/session"
	"github.com/sakif/streambox/internal/watch"
)

// WatchHandler exposes a profile's watchlist and playback progress.
// Every route requires a signed-in session; the rows are keyed by the
// session's profile id.
type WatchHandler struct {
	watchlist *service.WatchlistService
	progress  *service.ProgressService
	recorder  watch.Recorder
	interval  time.Duration
	logger    *slog.Logger

	toggles profileLocks
}

// profileLocks hands out one mutex per profile id. Entries are dropped when
// the last holder unlocks.
type profileLocks struct {
	mu    sync.Mutex
	locks map[string]*profileLock
}

type profileLock struct {
	sync.Mutex
	refs int
}

func (p *profileLocks) lock(id string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*profileLock)
	}
	l, ok := p.locks[id]
	if !ok {
		l = &profileLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}

func NewWatchHandler(
	watchlist *service.WatchlistService,
	progress *service.ProgressService,
	recorder watch.Recorder,
	interval time.Duration,
	logger *slog.Logger,
) *WatchHandler {
	return &WatchHandler{
		watchlist: watchlist,
		progress:  progress,
		recorder:  watch.OrNop(recorder),
		interval:  interval,
		logger:    logger,
	}
}

// WatchlistResponse is the body of the watchlist endpoints.
type WatchlistResponse struct {
	MovieIDs []string `json:"movieIds"`
}

// ToggleResponse reports the membership after a toggle.
type ToggleResponse struct {
	MovieID     string `json:"movieId"`
	InWatchlist bool   `json:"inWatchlist"`
}

// ProgressRequest carries either a whole percent or the played fraction of
// the video. A fraction is floored to a percent server side.
type ProgressRequest struct {
	Progress *int     `json:"progress,omitempty"`
	Fraction *float64 `json:"fraction,omitempty"`
}

// ProgressResponse is the saved checkpoint for one movie.
type ProgressResponse struct {
	MovieID   string    `json:"movieId"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// HandleListWatchlist
//
// HTTP: GET /api/watchlist
func (h *WatchHandler) HandleListWatchlist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.watchlist.ListWatchlist(r.Context(), session.FromContext(r.Context()).ProfileID())
	if err != nil {
		writeError(w, h.logger, profileRequired(err))
		return
	}
	writeJSON(w, http.StatusOK, WatchlistResponse{MovieIDs: ids})
}

// HandleAddToWatchlist is idempotent.
//
// HTTP: PUT /api/watchlist/{movieID}
func (h *WatchHandler) HandleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")
	err := h.watchlist.AddToWatchlist(r.Context(), session.FromContext(r.Context()).ProfileID(), movieID)
	h.recorder.WatchlistToggled("add", err)
	if err != nil {
		writeError(w, h.logger, profileRequired(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveFromWatchlist succeeds whether or not the movie was listed.
//
// HTTP: DELETE /api/watchlist/{movieID}
func (h *WatchHandler) HandleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")
	err := h.watchlist.RemoveFromWatchlist(r.Context(), session.FromContext(r.Context()).ProfileID(), movieID)
	h.recorder.WatchlistToggled("remove", err)
	if err != nil {
		writeError(w, h.logger, profileRequired(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleWatchlist flips membership of one movie. The browse page's
// "My List" button posts here. Toggles of one profile run one at a time, so
// two quick clicks add and then remove.
//
// HTTP: POST /api/watchlist/{movieID}/toggle
func (h *WatchHandler) HandleToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	profileID := sess.ProfileID()
	if profileID == "" {
		writeError(w, h.logger, profileRequired(watch.ErrNoProfile))
		return
	}

	unlock := h.toggles.lock(profileID)
	defer unlock()

	movieID := chi.URLParam(r, "movieID")
	list := watch.NewWatchlist(h.watchlist, sess, h.recorder, h.logger)
	if err := list.Load(ctx); err != nil {
		writeError(w, h.logger, err)
		return
	}

	added, err := list.Toggle(ctx, movieID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{MovieID: movieID, InWatchlist: added})
}

// HandleGetProgress returns 404 when the movie was never checkpointed.
//
// HTTP: GET /api/progress/{movieID}
func (h *WatchHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")
	p, err := h.progress.GetProgress(r.Context(), session.FromContext(r.Context()).ProfileID(), movieID)
	if err != nil {
		writeError(w, h.logger, profileRequired(err))
		return
	}
	writeJSON(w, http.StatusOK, ProgressResponse{MovieID: p.MovieID, Progress: p.Progress, UpdatedAt: p.UpdatedAt})
}

// HandleSaveProgress upserts one checkpoint.
//
// HTTP: PUT /api/progress/{movieID}
func (h *WatchHandler) HandleSaveProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := chi.URLParam(r, "movieID")
	sess := session.FromContext(ctx)

	var req ProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var (
		percent int
		err     error
	)
	switch {
	case req.Fraction != nil:
		percent = watch.PercentFromFraction(*req.Fraction)
		err = watch.NewCheckpointer(h.progress, sess, movieID, h.interval, h.recorder, h.logger).
			Checkpoint(ctx, *req.Fraction)
	case req.Progress != nil:
		percent = *req.Progress
		err = h.progress.SaveProgress(ctx, sess.ProfileID(), movieID, percent)
		h.recorder.ProgressCheckpointed(err)
	default:
		err = apperror.ValidationFailed("progress", "progress or fraction is required")
	}
	if err != nil {
		writeError(w, h.logger, profileRequired(err))
		return
	}

	writeJSON(w, http.StatusOK, ProgressResponse{MovieID: movieID, Progress: model.ClampProgress(percent)})
}

// profileRequired reports a signed-in caller whose profile was deleted as a
// 403 rather than a 500.
func profileRequired(err error) error {
	if errors.Is(err, watch.ErrNoProfile) {
		return apperror.Forbidden("a profile is required")
	}
	return err
}
