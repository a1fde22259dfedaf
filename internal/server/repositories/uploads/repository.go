// Package uploads persists artist deliverables of every kind in one table.
package uploads

import (
	"context"

	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, u *models.Upload) error
	Get(ctx context.Context, id string) (*models.Upload, error)
	// UpdateReview stores the review outcome of a submitted upload. It
	// returns common.ErrVersionConflict when the upload left the submitted
	// state in the meantime.
	UpdateReview(ctx context.Context, u *models.Upload) error
	// FindSubmitted returns the pending upload of kind on the contract or
	// common.ErrorNotFound.
	FindSubmitted(ctx context.Context, contractID string, kind models.UploadKind) (*models.Upload, error)
	// ListByContract returns uploads oldest first; an empty kind matches all.
	ListByContract(ctx context.Context, contractID string, kind models.UploadKind) ([]*models.Upload, error)
	ListByMilestone(ctx context.Context, contractID string, milestoneIndex int) ([]*models.Upload, error)
}
