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
)

// ProfileService backs the "users" tab of the admin panel and the
// streamctl promote command.
type ProfileService struct {
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

func NewProfileService(accounts repository.AccountRepository, profiles repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{accounts: accounts, profiles: profiles, logger: logger}
}

// List returns profiles newest first.
func (s *ProfileService) List(ctx context.Context, limit, offset int) ([]model.Profile, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	profiles, err := s.profiles.ListProfiles(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing profiles: %w", err)
	}
	return profiles, nil
}

// Delete removes a profile and, through the store's cascades, its watchlist
// and progress rows. The account itself stays and can still sign in.
// actorProfileID is the admin doing the deletion; deleting yourself is
// refused so the panel cannot lock its last admin out.
func (s *ProfileService) Delete(ctx context.Context, actorProfileID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "profile id is required")
	}
	if id == actorProfileID {
		return apperror.Forbidden("you cannot delete your own profile")
	}

	if err := s.profiles.DeleteProfile(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/profile: deleting profile %s: %w", id, err)
	}

	s.logger.Info("profile deleted",
		slog.String("id", id),
		slog.String("by", actorProfileID),
	)
	return nil
}

// SetRoleByEmail changes the role of the profile owned by the account with
// this email.
func (s *ProfileService) SetRoleByEmail(ctx context.Context, email string, role model.Role) (*model.Profile, error) {
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role", fmt.Sprintf("role must be %q or %q", model.RoleMember, model.RoleAdmin))
	}

	account, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("service/profile: account %s: %w", email, err)
	}
	profile, err := s.profiles.GetProfileByUserID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: profile of %s: %w", email, err)
	}

	if err := s.profiles.SetProfileRole(ctx, profile.ID, role); err != nil {
		return nil, fmt.Errorf("service/profile: setting role: %w", err)
	}
	profile.Role = role

	s.logger.Info("profile role changed",
		slog.String("profile_id", profile.ID),
		slog.String("role", string(role)),
	)
	return profile, nil
}
