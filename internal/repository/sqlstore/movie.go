package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/repository"
)

var (
	_ repository.MovieRepository    = (*DB)(nil)
	_ repository.CategoryRepository = (*DB)(nil)
)

const movieColumns = `id, title, description, thumbnail_url, video_url, release_year, created_at`

// CreateMovie inserts a full movie record. Movies are never partially updated.
func (db *DB) CreateMovie(ctx context.Context, movie *model.Movie) error {
	movie.ID = xid.New().String()
	movie.CreatedAt = now()

	_, err := db.exec(ctx,
		`INSERT INTO movies (`+movieColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		movie.ID,
		movie.Title,
		movie.Description,
		movie.ThumbnailURL,
		movie.VideoURL,
		movie.ReleaseYear,
		movie.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating movie: %w", err)
	}
	return nil
}

func (db *DB) GetMovie(ctx context.Context, id string) (*model.Movie, error) {
	row := db.queryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)

	m, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("movie", id)
		}
		return nil, fmt.Errorf("sqlstore: getting movie %s: %w", id, err)
	}
	return m, nil
}

// ListMovies returns movies newest first.
func (db *DB) ListMovies(ctx context.Context, opts repository.ListOptions) ([]model.Movie, error) {
	limit, offset := clampList(opts)

	rows, err := db.query(ctx,
		`SELECT `+movieColumns+` FROM movies
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing movies: %w", err)
	}
	defer rows.Close()

	movies := make([]model.Movie, 0, limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning movie row: %w", err)
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating movies: %w", err)
	}
	return movies, nil
}

func (db *DB) CountMovies(ctx context.Context) (int, error) {
	var n int
	if err := db.queryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: counting movies: %w", err)
	}
	return n, nil
}

func (db *DB) DeleteMovie(ctx context.Context, id string) error {
	result, err := db.exec(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting movie %s: %w", id, err)
	}
	return checkAffected(result, "movie", id)
}

func (db *DB) CreateCategory(ctx context.Context, category *model.Category) error {
	category.ID = xid.New().String()

	_, err := db.exec(ctx,
		`INSERT INTO categories (id, name, position) VALUES (?, ?, ?)`,
		category.ID, category.Name, category.Position,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("Category %q already exists", category.Name))
		}
		return fmt.Errorf("sqlstore: creating category: %w", err)
	}
	return nil
}

// ListCategories returns every category in display order.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.query(ctx,
		`SELECT id, name, position FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Position); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating categories: %w", err)
	}
	return categories, nil
}

func scanMovie(row rowScanner) (*model.Movie, error) {
	var m model.Movie
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.ThumbnailURL,
		&m.VideoURL,
		&m.ReleaseYear,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
