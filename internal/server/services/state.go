package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

func (e *engine) loadContract(ctx context.Context, r repomanager.Repositories, id string) (*models.Contract, error) {
	c, err := r.Contracts().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", id, err)
	}
	return c, nil
}

// roleOf returns the role of actorID or common.ErrorUnauthorized.
func roleOf(c *models.Contract, actorID string) (models.Role, error) {
	role, ok := c.RoleOf(actorID)
	if !ok {
		return "", fmt.Errorf("user %s is not a party of contract %s: %w", actorID, c.ID, common.ErrorUnauthorized)
	}
	return role, nil
}

func requireRole(c *models.Contract, actorID string, want models.Role) error {
	role, err := roleOf(c, actorID)
	if err != nil {
		return err
	}
	if role != want {
		return fmt.Errorf("only the %s of contract %s may do this: %w", want, c.ID, common.ErrorUnauthorized)
	}
	return nil
}

func requireStatus(c *models.Contract, allowed ...models.ContractStatus) error {
	for _, s := range allowed {
		if c.Status == s {
			return nil
		}
	}
	return fmt.Errorf("contract %s is %s: %w", c.ID, c.Status, common.ErrInvalidState)
}

// completionStatus picks the completed variant for work delivered at.
func completionStatus(c *models.Contract, deliveredAt time.Time) models.ContractStatus {
	if deliveredAt.After(c.DeadlineAt) {
		return models.StatusCompletedLate
	}
	return models.StatusCompleted
}

// cancellationStatus picks the cancelled variant charged to role.
func cancellationStatus(c *models.Contract, role models.Role, now time.Time) models.ContractStatus {
	late := now.After(c.DeadlineAt)
	switch {
	case role == models.RoleClient && late:
		return models.StatusCancelledClientLate
	case role == models.RoleClient:
		return models.StatusCancelledClient
	case late:
		return models.StatusCancelledArtistLate
	default:
		return models.StatusCancelledArtist
	}
}

func (e *engine) saveContract(ctx context.Context, r repomanager.Repositories, c *models.Contract) error {
	c.UpdatedAt = e.now()
	if err := r.Contracts().Update(ctx, c); err != nil {
		return fmt.Errorf("save contract %s: %w", c.ID, err)
	}
	return nil
}

// transition moves c to status to and persists it together with any field
// the caller changed. Terminal statuses settle the finance and close every
// ticket and upload still waiting on a party.
func (e *engine) transition(ctx context.Context, r repomanager.Repositories, c *models.Contract, to models.ContractStatus) error {
	from := c.Status
	if !models.CanTransition(from, to) {
		return fmt.Errorf("contract %s cannot move from %s to %s: %w", c.ID, from, to, common.ErrInvalidState)
	}

	switch {
	case to == models.StatusDisputed:
		c.StatusBeforeDispute = from
	case from == models.StatusDisputed:
		c.StatusBeforeDispute = ""
	}
	c.Status = to

	if to.IsTerminal() {
		settle(c)
		if err := e.closeTickets(ctx, r, c.ID); err != nil {
			return err
		}
		if err := e.closeUploads(ctx, r, c.ID); err != nil {
			return err
		}
	}
	if err := e.saveContract(ctx, r, c); err != nil {
		return err
	}

	e.log.Info(ctx, "contract transitioned", "contract_id", c.ID, "from", from, "to", to)
	return nil
}

// settle splits the total between the parties. Completion pays the artist
// everything; any other outcome leaves the artist the slices already earned.
func settle(c *models.Contract) {
	f := &c.Finance
	if c.Status.IsCompleted() {
		f.OwedArtistCents = f.TotalCents
		f.OwedClientCents = 0
		return
	}
	f.OwedClientCents = f.TotalCents - f.OwedArtistCents
}

// closeUploads rejects uploads of a finished contract that are still
// waiting for review.
func (e *engine) closeUploads(ctx context.Context, r repomanager.Repositories, contractID string) error {
	now := e.now()
	list, err := r.Uploads().ListByContract(ctx, contractID, "")
	if err != nil {
		return err
	}
	for _, u := range list {
		if u.Status != models.UploadSubmitted {
			continue
		}
		u.Status = models.UploadRejected
		u.ReviewedAt = &now
		if err := r.Uploads().UpdateReview(ctx, u); err != nil {
			return fmt.Errorf("close upload %s: %w", u.ID, err)
		}
	}
	return nil
}

func (e *engine) closeTickets(ctx context.Context, r repomanager.Repositories, contractID string) error {
	now := e.now()
	t := r.Tickets()

	cancels, err := t.ListCancel(ctx, contractID)
	if err != nil {
		return err
	}
	for _, tk := range cancels {
		if from, ok := expire(&tk.TicketBase, now); ok {
			if err := t.UpdateCancel(ctx, tk, from); err != nil {
				return fmt.Errorf("expire cancel ticket %s: %w", tk.ID, err)
			}
		}
	}

	revisions, err := t.ListRevision(ctx, contractID)
	if err != nil {
		return err
	}
	for _, tk := range revisions {
		if from, ok := expire(&tk.TicketBase, now); ok {
			if err := t.UpdateRevision(ctx, tk, from); err != nil {
				return fmt.Errorf("expire revision ticket %s: %w", tk.ID, err)
			}
		}
	}

	changes, err := t.ListChange(ctx, contractID)
	if err != nil {
		return err
	}
	for _, tk := range changes {
		if from, ok := expire(&tk.TicketBase, now); ok {
			if err := t.UpdateChange(ctx, tk, from); err != nil {
				return fmt.Errorf("expire change ticket %s: %w", tk.ID, err)
			}
		}
	}

	resolutions, err := t.ListResolution(ctx, contractID)
	if err != nil {
		return err
	}
	for _, tk := range resolutions {
		if !tk.Status.Unresolved() {
			continue
		}
		from := tk.Status
		tk.Status = models.ResolutionCancelled
		tk.UpdatedAt = now
		if err := t.UpdateResolution(ctx, tk, from); err != nil {
			return fmt.Errorf("cancel resolution ticket %s: %w", tk.ID, err)
		}
	}
	return nil
}

// expire marks a pending ticket expired and returns the status it left.
func expire(t *models.TicketBase, now time.Time) (models.TicketStatus, bool) {
	if !t.Status.Pending() {
		return "", false
	}
	from := t.Status
	t.Status = models.TicketExpired
	t.UpdatedAt = now
	return from, true
}
