package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

// UserService maintains the local user projection.
type UserService struct {
	*engine
}

// EnsureUser records id and username, keeping the admin flag of a known user.
func (s *UserService) EnsureUser(ctx context.Context, id, username string) (*models.User, error) {
	if id == "" || username == "" {
		return nil, fmt.Errorf("user id and name are required: %w", common.ErrorValidation)
	}
	return s.repos.Repos().Users().Upsert(ctx, &models.User{ID: id, UserName: username, CreatedAt: s.now()})
}

// GetUser returns a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repos.Repos().Users().Get(ctx, id)
}

// SetAdmin grants or revokes the admin flag. The ops CLI calls it directly.
func (s *UserService) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	if err := s.repos.Repos().Users().SetAdmin(ctx, id, isAdmin); err != nil {
		return fmt.Errorf("set admin on %s: %w", id, err)
	}
	s.log.Info(ctx, "admin flag changed", "user", id, "is_admin", isAdmin)
	return nil
}

// IsAdmin reports whether id holds the admin capability.
func (s *UserService) IsAdmin(ctx context.Context, id string) (bool, error) {
	return s.admins.IsAdmin(ctx, id)
}

// GrantAdmin is SetAdmin on behalf of an admin caller.
func (s *UserService) GrantAdmin(ctx context.Context, actorID, id string, isAdmin bool) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.SetAdmin(ctx, id, isAdmin)
}
