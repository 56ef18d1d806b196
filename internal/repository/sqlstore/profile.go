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

var _ repository.ProfileRepository = (*DB)(nil)

const profileColumns = `id, user_id, display_name, role, created_at`

func (db *DB) CreateProfile(ctx context.Context, profile *model.Profile) error {
	profile.ID = xid.New().String()
	profile.CreatedAt = now()
	if profile.Role == "" {
		profile.Role = model.RoleMember
	}

	_, err := db.exec(ctx,
		`INSERT INTO profiles (id, user_id, display_name, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		profile.ID,
		profile.UserID,
		profile.DisplayName,
		string(profile.Role),
		profile.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Profile already exists for this user")
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("account", profile.UserID)
		}
		return fmt.Errorf("sqlstore: creating profile: %w", err)
	}
	return nil
}

func (db *DB) GetProfileByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	row := db.queryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlstore: getting profile for user %s: %w", userID, err)
	}
	return p, nil
}

// ListProfiles returns profiles newest first, as the admin users tab shows them.
func (db *DB) ListProfiles(ctx context.Context, opts repository.ListOptions) ([]model.Profile, error) {
	limit, offset := clampList(opts)

	rows, err := db.query(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating profiles: %w", err)
	}
	return profiles, nil
}

// DeleteProfile removes the profile; watchlist and progress rows go with it.
// The account stays, so the principal can still sign in without a profile.
func (db *DB) DeleteProfile(ctx context.Context, id string) error {
	result, err := db.exec(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting profile %s: %w", id, err)
	}
	return checkAffected(result, "profile", id)
}

func (db *DB) SetProfileRole(ctx context.Context, id string, role model.Role) error {
	if !role.Valid() {
		return apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", role))
	}
	result, err := db.exec(ctx, `UPDATE profiles SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return fmt.Errorf("sqlstore: setting role on profile %s: %w", id, err)
	}
	return checkAffected(result, "profile", id)
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var (
		p    model.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &role, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Role = model.Role(role)
	return &p, nil
}
