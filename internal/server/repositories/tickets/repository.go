// Package tickets persists cancel, revision, change and resolution tickets.
// Updates are gated on the status the caller read, so two concurrent
// responders cannot both win.
package tickets

import (
	"context"

	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type Repository interface {
	CreateCancel(ctx context.Context, t *models.CancelTicket) error
	GetCancel(ctx context.Context, id string) (*models.CancelTicket, error)
	UpdateCancel(ctx context.Context, t *models.CancelTicket, from models.TicketStatus) error
	ListCancel(ctx context.Context, contractID string) ([]*models.CancelTicket, error)

	CreateRevision(ctx context.Context, t *models.RevisionTicket) error
	GetRevision(ctx context.Context, id string) (*models.RevisionTicket, error)
	UpdateRevision(ctx context.Context, t *models.RevisionTicket, from models.TicketStatus) error
	ListRevision(ctx context.Context, contractID string) ([]*models.RevisionTicket, error)

	CreateChange(ctx context.Context, t *models.ChangeTicket) error
	GetChange(ctx context.Context, id string) (*models.ChangeTicket, error)
	UpdateChange(ctx context.Context, t *models.ChangeTicket, from models.TicketStatus) error
	ListChange(ctx context.Context, contractID string) ([]*models.ChangeTicket, error)

	CreateResolution(ctx context.Context, t *models.ResolutionTicket) error
	GetResolution(ctx context.Context, id string) (*models.ResolutionTicket, error)
	UpdateResolution(ctx context.Context, t *models.ResolutionTicket, from models.ResolutionStatus) error
	ListResolution(ctx context.Context, contractID string) ([]*models.ResolutionTicket, error)
}
