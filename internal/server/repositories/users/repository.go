// Package users stores the local user projection used for capability checks.
// Identity itself comes from signed tokens; this table only records display
// names and the admin flag.
package users

import (
	"context"

	"github.com/dmitrijs2005/commissions/internal/server/models"
)

// Repository persists users keyed by the token subject.
type Repository interface {
	// Upsert inserts user; an existing row only gets its username refreshed.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	// Get returns common.ErrorNotFound for unknown ids.
	Get(ctx context.Context, id string) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	// SetAdmin fails with common.ErrorNotFound when id was never upserted.
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}
