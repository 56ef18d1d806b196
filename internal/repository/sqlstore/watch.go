package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
)

var (
	_ repository.WatchlistRepository = (*DB)(nil)
	_ repository.ProgressRepository  = (*DB)(nil)
)

func (db *DB) ListWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error) {
	rows, err := db.query(ctx,
		`SELECT user_id, movie_id, created_at FROM watchlist
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing watchlist for %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []model.WatchlistEntry
	for rows.Next() {
		var e model.WatchlistEntry
		if err := rows.Scan(&e.UserID, &e.MovieID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning watchlist row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating watchlist: %w", err)
	}
	return entries, nil
}

// AddWatchlistEntry inserts the pair; adding it again is a no-op.
func (db *DB) AddWatchlistEntry(ctx context.Context, entry *model.WatchlistEntry) error {
	entry.CreatedAt = now()

	_, err := db.exec(ctx,
		`INSERT INTO watchlist (user_id, movie_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, movie_id) DO NOTHING`,
		entry.UserID, entry.MovieID, entry.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("movie", entry.MovieID)
		}
		return fmt.Errorf("sqlstore: adding %s to watchlist of %s: %w", entry.MovieID, entry.UserID, err)
	}
	return nil
}

// RemoveWatchlistEntry deletes by (user_id, movie_id). Removing a pair that is
// not there is not an error: the end state is what the caller asked for.
func (db *DB) RemoveWatchlistEntry(ctx context.Context, userID, movieID string) error {
	_, err := db.exec(ctx,
		`DELETE FROM watchlist WHERE user_id = ? AND movie_id = ?`,
		userID, movieID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: removing %s from watchlist of %s: %w", movieID, userID, err)
	}
	return nil
}

func (db *DB) GetProgress(ctx context.Context, userID, movieID string) (*model.WatchProgress, error) {
	var p model.WatchProgress
	err := db.queryRow(ctx,
		`SELECT user_id, movie_id, progress, updated_at FROM watch_history
		 WHERE user_id = ? AND movie_id = ?`,
		userID, movieID,
	).Scan(&p.UserID, &p.MovieID, &p.Progress, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("watch progress", movieID)
		}
		return nil, fmt.Errorf("sqlstore: getting progress of %s on %s: %w", userID, movieID, err)
	}
	return &p, nil
}

// UpsertProgress writes the single (user, movie) row. The value is clamped so
// the CHECK constraint never fires on input the player got slightly wrong.
func (db *DB) UpsertProgress(ctx context.Context, p *model.WatchProgress) error {
	p.Progress = model.ClampProgress(p.Progress)
	p.UpdatedAt = now()

	_, err := db.exec(ctx,
		`INSERT INTO watch_history (user_id, movie_id, progress, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, movie_id) DO UPDATE SET
			progress = excluded.progress,
			updated_at = excluded.updated_at`,
		p.UserID, p.MovieID, p.Progress, p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("movie", p.MovieID)
		}
		return fmt.Errorf("sqlstore: upserting progress of %s on %s: %w", p.UserID, p.MovieID, err)
	}
	return nil
}
