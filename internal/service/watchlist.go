package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
	"github.com/sakif/streambox/internal/watch"
)

var _ watch.WatchlistRemote = (*WatchlistService)(nil)

// WatchlistService is the store side of watch.Watchlist. Rows are keyed by
// profile id.
type WatchlistService struct {
	entries repository.WatchlistRepository
	movies  repository.MovieRepository
	logger  *slog.Logger
}

func NewWatchlistService(entries repository.WatchlistRepository, movies repository.MovieRepository, logger *slog.Logger) *WatchlistService {
	return &WatchlistService{entries: entries, movies: movies, logger: logger}
}

// ListWatchlist returns the saved movie ids, most recently added first.
func (s *WatchlistService) ListWatchlist(ctx context.Context, profileID string) ([]string, error) {
	if profileID == "" {
		return nil, watch.ErrNoProfile
	}
	rows, err := s.entries.ListWatchlist(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("service/watchlist: listing: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.MovieID)
	}
	return ids, nil
}

// Movies resolves the profile's watchlist to full movie records for the
// "My List" row. Movies deleted since are skipped.
func (s *WatchlistService) Movies(ctx context.Context, profileID string) ([]model.Movie, error) {
	ids, err := s.ListWatchlist(ctx, profileID)
	if err != nil {
		return nil, err
	}
	movies := make([]model.Movie, 0, len(ids))
	for _, id := range ids {
		m, err := s.movies.GetMovie(ctx, id)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("service/watchlist: resolving %s: %w", id, err)
		}
		movies = append(movies, *m)
	}
	return movies, nil
}

// AddToWatchlist is idempotent. An unknown movie is ErrNotFound.
func (s *WatchlistService) AddToWatchlist(ctx context.Context, profileID, movieID string) error {
	if err := requireIDs(profileID, movieID); err != nil {
		return err
	}
	if _, err := s.movies.GetMovie(ctx, movieID); err != nil {
		return err
	}
	entry := &model.WatchlistEntry{UserID: profileID, MovieID: movieID}
	if err := s.entries.AddWatchlistEntry(ctx, entry); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/watchlist: adding %s: %w", movieID, err)
	}
	s.logger.Debug("watchlist add", slog.String("profile_id", profileID), slog.String("movie_id", movieID))
	return nil
}

// RemoveFromWatchlist succeeds whether or not the pair was saved.
func (s *WatchlistService) RemoveFromWatchlist(ctx context.Context, profileID, movieID string) error {
	if err := requireIDs(profileID, movieID); err != nil {
		return err
	}
	if err := s.entries.RemoveWatchlistEntry(ctx, profileID, movieID); err != nil {
		return fmt.Errorf("service/watchlist: removing %s: %w", movieID, err)
	}
	s.logger.Debug("watchlist remove", slog.String("profile_id", profileID), slog.String("movie_id", movieID))
	return nil
}

func requireIDs(profileID, movieID string) error {
	if profileID == "" {
		return watch.ErrNoProfile
	}
	if strings.TrimSpace(movieID) == "" {
		return apperror.ValidationFailed("movie_id", "movie id is required")
	}
	return nil
}
