// Package contracts persists contracts. Every update is gated on the row
// version read by the caller.
package contracts

import (
	"context"

	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type Repository interface {
	// Create inserts c with version 1. A second contract for the same
	// proposal fails with common.ErrDuplicateAction.
	Create(ctx context.Context, c *models.Contract) error
	Get(ctx context.Context, id string) (*models.Contract, error)
	// Update writes c when the stored version still equals c.Version and
	// bumps c.Version. A stale version returns common.ErrVersionConflict.
	Update(ctx context.Context, c *models.Contract) error
	// ListByParty returns contracts where userID is artist or client,
	// optionally narrowed to statuses.
	ListByParty(ctx context.Context, userID string, statuses []models.ContractStatus) ([]*models.Contract, error)
	// ListIDsByStatus returns the ids of every contract in one of statuses.
	ListIDsByStatus(ctx context.Context, statuses []models.ContractStatus) ([]string, error)
}
