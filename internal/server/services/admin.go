package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

// RepoAdminChecker grants admin to users on a static allowlist and to users
// flagged in the users table.
type RepoAdminChecker struct {
	repos     repomanager.RepositoryManager
	allowlist map[string]struct{}
}

// NewAdminChecker builds the admin capability check used by every service.
func NewAdminChecker(repos repomanager.RepositoryManager, allowlist []string) *RepoAdminChecker {
	set := make(map[string]struct{}, len(allowlist))
	for _, id := range allowlist {
		set[id] = struct{}{}
	}
	return &RepoAdminChecker{repos: repos, allowlist: set}
}

func (c *RepoAdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if _, ok := c.allowlist[userID]; ok {
		return true, nil
	}
	u, err := c.repos.Repos().Users().Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("admin check: %w", err)
	}
	return u.IsAdmin, nil
}
