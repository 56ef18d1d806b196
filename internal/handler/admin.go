package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/service"
	"github.com/sakif/streambox/internal/session"
)

const (
	adminPath    = "/admin"
	tabMovies    = "movies"
	tabUsers     = "users"
	adminListCap = service.MaxListLimit
)

// AdminHandler serves the admin panel and the /api/admin profile routes.
// Both are mounted behind the admin-only guards, so handlers here assume an
// admin session.
type AdminHandler struct {
	catalog  *service.CatalogService
	profiles *service.ProfileService
	views    *Renderer
	logger   *slog.Logger
}

func NewAdminHandler(catalog *service.CatalogService, profiles *service.ProfileService, views *Renderer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, profiles: profiles, views: views, logger: logger}
}

type adminPage struct {
	Tab      string
	Movies   []model.Movie
	Profiles []model.Profile
	Form     movieForm
}

type movieForm struct {
	Title        string
	Description  string
	ThumbnailURL string
	VideoURL     string
	ReleaseYear  string
}

// HandleAdminPage renders the movies or the users tab. Load failures are
// shown in the banner instead of leaving the tab silently empty.
//
// HTTP: GET /admin?tab=movies|users
func (h *AdminHandler) HandleAdminPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := adminPage{Tab: tabMovies}
	if q.Get("tab") == tabUsers {
		page.Tab = tabUsers
	}
	h.renderAdmin(w, r, http.StatusOK, page, q.Get("error"), q.Get("notice"))
}

func (h *AdminHandler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, page adminPage, flash, notice string) {
	ctx := r.Context()
	var err error
	switch page.Tab {
	case tabUsers:
		page.Profiles, err = h.profiles.List(ctx, adminListCap, 0)
	default:
		page.Movies, err = h.catalog.ListMovies(ctx, adminListCap, 0)
	}
	if err != nil {
		status, flash = formError(err, h.logger)
	}

	h.views.Render(w, r, status, "admin", pageData{
		Title:  "Admin",
		Flash:  flash,
		Notice: notice,
		Page:   page,
	})
}

// HandleCreateMovieForm adds a movie from the admin form.
//
// HTTP: POST /admin/movies
func (h *AdminHandler) HandleCreateMovieForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		adminRedirect(w, r, tabMovies, "error", "Invalid form submission")
		return
	}
	form := movieForm{
		Title:        r.PostForm.Get("title"),
		Description:  r.PostForm.Get("description"),
		ThumbnailURL: r.PostForm.Get("thumbnail_url"),
		VideoURL:     r.PostForm.Get("video_url"),
		ReleaseYear:  r.PostForm.Get("release_year"),
	}

	year, err := strconv.Atoi(strings.TrimSpace(form.ReleaseYear))
	if err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, adminPage{Tab: tabMovies, Form: form}, "Release year must be a number", "")
		return
	}

	movie, err := h.catalog.CreateMovie(r.Context(), service.MovieInput{
		Title:        form.Title,
		Description:  form.Description,
		ThumbnailURL: form.ThumbnailURL,
		VideoURL:     form.VideoURL,
		ReleaseYear:  year,
	})
	if err != nil {
		status, msg := formError(err, h.logger)
		h.renderAdmin(w, r, status, adminPage{Tab: tabMovies, Form: form}, msg, "")
		return
	}

	adminRedirect(w, r, tabMovies, "notice", "Added "+movie.Title)
}

// HandleDeleteMovieForm
//
// HTTP: POST /admin/movies/{id}/delete
func (h *AdminHandler) HandleDeleteMovieForm(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteMovie(r.Context(), chi.URLParam(r, "id")); err != nil {
		_, msg := formError(err, h.logger)
		adminRedirect(w, r, tabMovies, "error", msg)
		return
	}
	adminRedirect(w, r, tabMovies, "notice", "Movie deleted")
}

// HandleDeleteProfileForm
//
// HTTP: POST /admin/profiles/{id}/delete
func (h *AdminHandler) HandleDeleteProfileForm(w http.ResponseWriter, r *http.Request) {
	actor := session.FromContext(r.Context()).ProfileID()
	if err := h.profiles.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		_, msg := formError(err, h.logger)
		adminRedirect(w, r, tabUsers, "error", msg)
		return
	}
	adminRedirect(w, r, tabUsers, "notice", "Profile deleted")
}

// HandleListProfiles returns profiles newest first.
//
// HTTP: GET /api/admin/profiles?limit=20&offset=0
func (h *AdminHandler) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	profiles, err := h.profiles.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleDeleteProfile removes a profile and its watchlist and progress rows.
// Admins cannot delete their own profile.
//
// HTTP: DELETE /api/admin/profiles/{id}
func (h *AdminHandler) HandleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	actor := session.FromContext(r.Context()).ProfileID()
	if err := h.profiles.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func adminRedirect(w http.ResponseWriter, r *http.Request, tab, key, msg string) {
	v := url.Values{}
	v.Set("tab", tab)
	v.Set(key, msg)
	http.Redirect(w, r, adminPath+"?"+v.Encode(), http.StatusSeeOther)
}
