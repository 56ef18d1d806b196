package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	DefaultListLimit     = 20
	MaxListLimit         = 100

	// The first film ever shot.
	MinReleaseYear = 1888
)

// MovieInput is the full record an admin submits. Movies are only ever
// inserted whole or deleted; there is no partial update.
type MovieInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	VideoURL     string `json:"videoUrl"`
	ReleaseYear  int    `json:"releaseYear"`
}

// CatalogService manages movies and the category rows of the browse page.
type CatalogService struct {
	movies     repository.MovieRepository
	categories repository.CategoryRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewCatalogService(movies repository.MovieRepository, categories repository.CategoryRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		movies:     movies,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

// ListMovies returns movies newest first. Out-of-range paging values are
// clamped instead of rejected.
func (s *CatalogService) ListMovies(ctx context.Context, limit, offset int) ([]model.Movie, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	movies, err := s.movies.ListMovies(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing movies: %w", err)
	}
	return movies, nil
}

func (s *CatalogService) GetMovie(ctx context.Context, id string) (*model.Movie, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "movie id is required")
	}
	m, err := s.movies.GetMovie(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/catalog: fetching movie %s: %w", id, err)
	}
	return m, nil
}

// CreateMovie validates in and inserts it.
func (s *CatalogService) CreateMovie(ctx context.Context, in MovieInput) (*model.Movie, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)
	in.VideoURL = strings.TrimSpace(in.VideoURL)

	if err := s.validateMovie(in); err != nil {
		return nil, err
	}

	m := &model.Movie{
		Title:        in.Title,
		Description:  in.Description,
		ThumbnailURL: in.ThumbnailURL,
		VideoURL:     in.VideoURL,
		ReleaseYear:  in.ReleaseYear,
	}
	if err := s.movies.CreateMovie(ctx, m); err != nil {
		return nil, fmt.Errorf("service/catalog: creating movie: %w", err)
	}

	s.logger.Info("movie created", slog.String("id", m.ID), slog.String("title", m.Title))
	return m, nil
}

func (s *CatalogService) validateMovie(in MovieInput) error {
	switch {
	case in.Title == "":
		return apperror.ValidationFailed("title", "title is required")
	case len(in.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title", fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	case in.Description == "":
		return apperror.ValidationFailed("description", "description is required")
	case len(in.Description) > MaxDescriptionLength:
		return apperror.ValidationFailed("description", fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	if err := validateHTTPURL("thumbnail_url", in.ThumbnailURL); err != nil {
		return err
	}
	if err := validateHTTPURL("video_url", in.VideoURL); err != nil {
		return err
	}

	maxYear := s.now().Year() + 5
	if in.ReleaseYear < MinReleaseYear || in.ReleaseYear > maxYear {
		return apperror.ValidationFailed("release_year",
			fmt.Sprintf("release year must be between %d and %d", MinReleaseYear, maxYear))
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.ValidationFailed(field, field+" must be an http(s) URL")
	}
	return nil
}

func (s *CatalogService) DeleteMovie(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "movie id is required")
	}
	if err := s.movies.DeleteMovie(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/catalog: deleting movie %s: %w", id, err)
	}
	s.logger.Info("movie deleted", slog.String("id", id))
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string, position int) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "category name is required")
	}
	c := &model.Category{Name: name, Position: position}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/catalog: creating category: %w", err)
	}
	return c, nil
}
