package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/service"
	"github.com/sakif/streambox/internal/session"
	"github.com/sakif/streambox/internal/watch"
)

// browseListLimit is how many movies each browse row shows.
const browseListLimit = 20

// PageHandler renders the member pages: the browse grid and the player.
type PageHandler struct {
	catalog   *service.CatalogService
	watchlist *service.WatchlistService
	progress  *service.ProgressService
	recorder  watch.Recorder
	interval  time.Duration
	views     *Renderer
	logger    *slog.Logger
}

func NewPageHandler(
	catalog *service.CatalogService,
	watchlist *service.WatchlistService,
	progress *service.ProgressService,
	recorder watch.Recorder,
	interval time.Duration,
	views *Renderer,
	logger *slog.Logger,
) *PageHandler {
	return &PageHandler{
		catalog:   catalog,
		watchlist: watchlist,
		progress:  progress,
		recorder:  watch.OrNop(recorder),
		interval:  interval,
		views:     views,
		logger:    logger,
	}
}

type movieCard struct {
	model.Movie
	InList bool
}

type movieRow struct {
	Name   string
	Movies []movieCard
}

type browsePage struct {
	Hero   *movieCard
	MyList []movieCard
	Rows   []movieRow
}

type watchPage struct {
	Movie *model.Movie
	// Start is the resume position as a fraction of the duration.
	Start float64
	// IntervalMillis is how often the player checkpoints.
	IntervalMillis int64
}

// HandleRoot sends visitors to the browse page; the guard there decides
// whether they need to sign in first.
//
// HTTP: GET /
func (h *PageHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, session.BrowsePath, http.StatusSeeOther)
}

// HandleBrowse renders the hero title, the "My List" row and one row per
// category. The catalog has no category membership, so every row shows
// the newest movies.
//
// HTTP: GET /browse
func (h *PageHandler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	movies, err := h.catalog.ListMovies(ctx, browseListLimit, 0)
	if err != nil {
		h.renderError(w, r, "browse", "Browse", err)
		return
	}
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.renderError(w, r, "browse", "Browse", err)
		return
	}

	list := watch.NewWatchlist(h.watchlist, sess, h.recorder, h.logger)
	if err := list.Load(ctx); err != nil {
		h.renderError(w, r, "browse", "Browse", err)
		return
	}

	cards := make([]movieCard, len(movies))
	for i, m := range movies {
		cards[i] = movieCard{Movie: m, InList: list.Has(m.ID)}
	}

	page := browsePage{}
	if len(cards) > 0 {
		page.Hero = &cards[0]
	}
	for _, c := range cards {
		if c.InList {
			page.MyList = append(page.MyList, c)
		}
	}
	for _, c := range categories {
		page.Rows = append(page.Rows, movieRow{Name: c.Name, Movies: cards})
	}

	h.views.Render(w, r, http.StatusOK, "browse", pageData{Title: "Browse", Page: page})
}

// HandleWatch renders the player for one movie, positioned at the saved
// checkpoint.
//
// HTTP: GET /watch/{id}
func (h *PageHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := chi.URLParam(r, "id")

	movie, err := h.catalog.GetMovie(ctx, movieID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Redirect(w, r, session.BrowsePath, http.StatusSeeOther)
			return
		}
		h.renderError(w, r, "watch", "Watch", err)
		return
	}

	cp := watch.NewCheckpointer(h.progress, session.FromContext(ctx), movie.ID, h.interval, h.recorder, h.logger)
	start, err := cp.Resume(ctx)
	if err != nil {
		// playback still works from the beginning
		h.logger.Warn("resume failed",
			slog.String("movie_id", movie.ID),
			slog.String("error", err.Error()),
		)
		start = 0
	}

	h.views.Render(w, r, http.StatusOK, "watch", pageData{
		Title: movie.Title,
		Page: watchPage{
			Movie:          movie,
			Start:          start,
			IntervalMillis: cp.Interval().Milliseconds(),
		},
	})
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, name, title string, err error) {
	status, msg := formError(err, h.logger)
	h.views.Render(w, r, status, name, pageData{Title: title, Flash: msg})
}
