package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/service"
)

// CatalogHandler serves the movie catalog. Reads are open to any signed-in
// session; writes are mounted under /api/admin.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// HandleListMovies returns movies newest first.
//
// HTTP: GET /api/movies?limit=20&offset=0
func (h *CatalogHandler) HandleListMovies(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	movies, err := h.catalog.ListMovies(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

// HandleGetMovie
//
// HTTP: GET /api/movies/{id}
func (h *CatalogHandler) HandleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := h.catalog.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// HandleListCategories returns the browse rows in display order.
//
// HTTP: GET /api/categories
func (h *CatalogHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleCreateMovie inserts a full movie record.
//
// HTTP: POST /api/admin/movies
func (h *CatalogHandler) HandleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var in service.MovieInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	movie, err := h.catalog.CreateMovie(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, movie)
}

// HandleDeleteMovie
//
// HTTP: DELETE /api/admin/movies/{id}
func (h *CatalogHandler) HandleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteMovie(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pagination reads limit and offset from the query string. Missing values
// are zero; the services apply their own defaults and caps.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(field, field+" must be a non-negative integer")
	}
	return n, nil
}
