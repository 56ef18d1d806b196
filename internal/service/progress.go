package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
	"github.com/sakif/streambox/internal/watch"
)

var _ watch.ProgressRemote = (*ProgressService)(nil)

// ProgressService stores one progress row per (profile, movie).
type ProgressService struct {
	progress repository.ProgressRepository
	movies   repository.MovieRepository
	logger   *slog.Logger
}

func NewProgressService(progress repository.ProgressRepository, movies repository.MovieRepository, logger *slog.Logger) *ProgressService {
	return &ProgressService{progress: progress, movies: movies, logger: logger}
}

// GetProgress returns ErrNotFound when nothing was saved yet.
func (s *ProgressService) GetProgress(ctx context.Context, profileID, movieID string) (*model.WatchProgress, error) {
	if err := requireIDs(profileID, movieID); err != nil {
		return nil, err
	}
	p, err := s.progress.GetProgress(ctx, profileID, movieID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/progress: loading: %w", err)
	}
	return p, nil
}

// SaveProgress upserts the row. Out-of-range values are clamped to
// [0, 100] rather than rejected, since the player can overshoot.
func (s *ProgressService) SaveProgress(ctx context.Context, profileID, movieID string, progress int) error {
	if err := requireIDs(profileID, movieID); err != nil {
		return err
	}
	if _, err := s.movies.GetMovie(ctx, movieID); err != nil {
		return err
	}

	row := &model.WatchProgress{
		UserID:   profileID,
		MovieID:  movieID,
		Progress: model.ClampProgress(progress),
	}
	if err := s.progress.UpsertProgress(ctx, row); err != nil {
		return fmt.Errorf("service/progress: saving: %w", err)
	}
	s.logger.Debug("progress saved",
		slog.String("profile_id", profileID),
		slog.String("movie_id", movieID),
		slog.Int("progress", row.Progress),
	)
	return nil
}
