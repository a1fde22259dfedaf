package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

// UploadService handles artist deliverables and their review.
type UploadService struct {
	*engine
}

// UploadInput is what an artist sends with a new upload. Images are URLs
// already hosted elsewhere; Attachments are stored before the upload is
// recorded.
type UploadInput struct {
	Kind             models.UploadKind `json:"kind" validate:"oneof=progressStandard progressMilestone revision final"`
	Description      string            `json:"description"`
	Images           []string          `json:"images" validate:"dive,required"`
	Attachments      []Attachment      `json:"attachments" validate:"dive"`
	IsFinal          bool              `json:"isFinal"`
	WorkProgress     *int              `json:"workProgress" validate:"omitempty,gte=0,lte=100"`
	RevisionTicketID string            `json:"revisionTicketId"`
}

// CreateUpload records a deliverable on a live contract. Reviewable kinds
// start submitted and wait ReviewWindow for the client.
func (s *UploadService) CreateUpload(ctx context.Context, actorID, contractID string, in UploadInput) (*models.Upload, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if len(in.Images)+len(in.Attachments) == 0 {
		return nil, fmt.Errorf("upload needs at least one image: %w", common.ErrorValidation)
	}

	c, err := s.loadContract(ctx, s.repos.Repos(), contractID)
	if err != nil {
		return nil, err
	}
	if err := requireRole(c, actorID, models.RoleArtist); err != nil {
		return nil, err
	}

	images, err := s.storeAttachments(ctx, "contracts/"+contractID+"/uploads", in.Attachments, in.Images)
	if err != nil {
		return nil, err
	}

	var u *models.Upload
	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		if err := requireRole(c, actorID, models.RoleArtist); err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive, models.StatusInRevision); err != nil {
			return err
		}

		now := s.now()
		u = &models.Upload{
			ID:          s.newID(),
			ContractID:  c.ID,
			Kind:        in.Kind,
			Images:      images,
			Description: in.Description,
			CreatedBy:   actorID,
			CreatedAt:   now,
		}
		if err := s.shapeUpload(ctx, r, c, u, in); err != nil {
			return err
		}
		if u.Kind.Reviewable() {
			expires := now.Add(s.opts.ReviewWindow)
			u.Status = models.UploadSubmitted
			u.ExpiresAt = &expires
		}
		if err := r.Uploads().Create(ctx, u); err != nil {
			return fmt.Errorf("create %s upload: %w", u.Kind, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "upload created", "contract_id", contractID, "upload_id", u.ID, "kind", u.Kind)
	return u, nil
}

// shapeUpload applies the per-kind rules to a new upload.
func (e *engine) shapeUpload(ctx context.Context, r repomanager.Repositories, c *models.Contract, u *models.Upload, in UploadInput) error {
	wrongFlow := fmt.Errorf("%s upload on a %s contract: %w", u.Kind, c.Flow, common.ErrInvalidState)

	switch u.Kind {
	case models.UploadProgressStandard:
		if c.Flow != models.FlowStandard {
			return wrongFlow
		}
	case models.UploadProgressMilestone:
		if c.Flow != models.FlowMilestone {
			return wrongFlow
		}
		if err := requireStatus(c, models.StatusActive); err != nil {
			return err
		}
		idx := c.CurrentMilestoneIndex
		if in.IsFinal != c.IsLastMilestone(idx) {
			return fmt.Errorf("isFinal=%t does not match milestone %d of %d: %w",
				in.IsFinal, idx+1, len(c.Proposal.Milestones), common.ErrorValidation)
		}
		u.MilestoneIndex = &idx
		u.IsFinal = in.IsFinal
	case models.UploadFinal:
		if c.Flow != models.FlowStandard {
			return wrongFlow
		}
		if err := requireStatus(c, models.StatusActive); err != nil {
			return err
		}
		u.WorkProgress = in.WorkProgress
	case models.UploadRevision:
		if err := requireStatus(c, models.StatusInRevision); err != nil {
			return err
		}
		id, err := e.revisionLink(ctx, r, c, in.RevisionTicketID)
		if err != nil {
			return err
		}
		u.RevisionTicketID = id
	}
	return nil
}

// revisionLink resolves the accepted revision ticket a revision upload
// answers. Without an explicit id the newest accepted ticket is used, if any.
func (e *engine) revisionLink(ctx context.Context, r repomanager.Repositories, c *models.Contract, ticketID string) (string, error) {
	if ticketID != "" {
		t, err := r.Tickets().GetRevision(ctx, ticketID)
		if err != nil {
			return "", fmt.Errorf("revision ticket %s: %w", ticketID, err)
		}
		if t.ContractID != c.ID {
			return "", fmt.Errorf("revision ticket %s: %w", ticketID, common.ErrorNotFound)
		}
		if t.Status != models.TicketAccepted {
			return "", fmt.Errorf("revision ticket %s is %s: %w", ticketID, t.Status, common.ErrInvalidState)
		}
		return t.ID, nil
	}

	tickets, err := r.Tickets().ListRevision(ctx, c.ID)
	if err != nil {
		return "", err
	}
	for i := len(tickets) - 1; i >= 0; i-- {
		if tickets[i].Status == models.TicketAccepted {
			return tickets[i].ID, nil
		}
	}
	return "", nil
}

// ReviewUpload lets the client accept or reject a submitted upload while its
// review window is open.
func (s *UploadService) ReviewUpload(ctx context.Context, actorID string, kind models.UploadKind, uploadID string, accept bool) (*models.Upload, error) {
	var u *models.Upload
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		u, err = r.Uploads().Get(ctx, uploadID)
		if err != nil {
			return fmt.Errorf("upload %s: %w", uploadID, err)
		}
		if u.Kind != kind {
			return fmt.Errorf("%s upload %s: %w", kind, uploadID, common.ErrorNotFound)
		}
		c, err := s.loadContract(ctx, r, u.ContractID)
		if err != nil {
			return err
		}
		if err := requireRole(c, actorID, models.RoleClient); err != nil {
			return err
		}
		if !u.Kind.Reviewable() || u.Status != models.UploadSubmitted {
			return fmt.Errorf("upload %s is not awaiting review: %w", u.ID, common.ErrInvalidState)
		}
		if u.Expired(s.now()) {
			return fmt.Errorf("review window of upload %s closed: %w", u.ID, common.ErrTooLate)
		}
		if !reviewable(c, u) {
			return fmt.Errorf("contract %s is %s: %w", c.ID, c.Status, common.ErrInvalidState)
		}
		return s.review(ctx, r, c, u, accept)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "upload reviewed", "upload_id", u.ID, "kind", u.Kind, "status", u.Status)
	return u, nil
}

// AutoAcceptExpired accepts a submitted upload whose review window closed.
// It reports false when there is nothing to do, including when the contract
// is not in a state that takes the upload.
func (s *UploadService) AutoAcceptExpired(ctx context.Context, uploadID string) (bool, error) {
	var done bool
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		u, err := r.Uploads().Get(ctx, uploadID)
		if err != nil {
			return fmt.Errorf("upload %s: %w", uploadID, err)
		}
		done, err = s.autoAccept(ctx, r, u)
		return err
	})
	return done, err
}

func (e *engine) autoAccept(ctx context.Context, r repomanager.Repositories, u *models.Upload) (bool, error) {
	if u.Status != models.UploadSubmitted || !u.Expired(e.now()) {
		return false, nil
	}
	c, err := e.loadContract(ctx, r, u.ContractID)
	if err != nil {
		return false, err
	}
	if !reviewable(c, u) {
		return false, nil
	}
	if err := e.review(ctx, r, c, u, true); err != nil {
		return false, err
	}
	return true, nil
}

// reviewable reports whether the contract is in the state u can be reviewed in.
func reviewable(c *models.Contract, u *models.Upload) bool {
	switch u.Kind {
	case models.UploadProgressMilestone:
		return c.Status == models.StatusActive && u.MilestoneIndex != nil && *u.MilestoneIndex == c.CurrentMilestoneIndex
	case models.UploadFinal:
		return c.Status == models.StatusActive
	case models.UploadRevision:
		return c.Status == models.StatusInRevision
	default:
		return false
	}
}

// review stores the outcome of u and applies its effect on the contract.
func (e *engine) review(ctx context.Context, r repomanager.Repositories, c *models.Contract, u *models.Upload, accept bool) error {
	now := e.now()
	u.Status = models.UploadRejected
	if accept {
		u.Status = models.UploadAccepted
	}
	u.ReviewedAt = &now
	if err := r.Uploads().UpdateReview(ctx, u); err != nil {
		return fmt.Errorf("review upload %s: %w", u.ID, err)
	}

	if !accept {
		if u.Kind == models.UploadFinal {
			return e.transition(ctx, r, c, models.StatusInRevision)
		}
		return nil
	}

	switch u.Kind {
	case models.UploadProgressMilestone:
		idx := *u.MilestoneIndex
		if err := e.releaseMilestone(ctx, r, c, milestoneSlice(c.Proposal, idx)); err != nil {
			return err
		}
		if u.IsFinal || c.IsLastMilestone(idx) {
			return e.transition(ctx, r, c, completionStatus(c, u.CreatedAt))
		}
		c.CurrentMilestoneIndex++
		return e.saveContract(ctx, r, c)
	case models.UploadFinal:
		return e.transition(ctx, r, c, completionStatus(c, u.CreatedAt))
	case models.UploadRevision:
		if err := e.completeRevisionTicket(ctx, r, u.RevisionTicketID); err != nil {
			return err
		}
		return e.transition(ctx, r, c, models.StatusActive)
	}
	return nil
}

// releaseMilestone pays an accepted milestone slice out of the client's
// escrow to the artist and records it as earned and claimed.
func (e *engine) releaseMilestone(ctx context.Context, r repomanager.Repositories, c *models.Contract, slice int64) error {
	if slice <= 0 {
		return nil
	}
	if err := e.releaseEscrow(ctx, r, c.ID, c.ClientID, c.ArtistID, slice, models.SourceRelease); err != nil {
		return fmt.Errorf("release milestone of %s: %w", c.ID, err)
	}
	f := &c.Finance
	f.OwedArtistCents += slice
	f.ArtistClaimedCents += slice
	f.EscrowedCents -= slice
	return nil
}

func (e *engine) completeRevisionTicket(ctx context.Context, r repomanager.Repositories, ticketID string) error {
	if ticketID == "" {
		return nil
	}
	t, err := r.Tickets().GetRevision(ctx, ticketID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if t.Status != models.TicketAccepted {
		return nil
	}
	t.Status = models.TicketCompleted
	t.UpdatedAt = e.now()
	if err := r.Tickets().UpdateRevision(ctx, t, models.TicketAccepted); err != nil {
		return fmt.Errorf("complete revision ticket %s: %w", t.ID, err)
	}
	return nil
}

// milestoneSlice is the share of the total released by milestone idx. The
// last milestone takes the remainder so the slices add up to the total.
func milestoneSlice(p models.Proposal, idx int) int64 {
	total := decimal.NewFromInt(p.TotalCents)
	hundred := decimal.NewFromInt(100)

	slice := func(i int) int64 {
		return total.Mul(decimal.NewFromInt(p.Milestones[i].Percent)).Div(hundred).Round(0).IntPart()
	}
	if idx < len(p.Milestones)-1 {
		return slice(idx)
	}
	rest := p.TotalCents
	for i := 0; i < len(p.Milestones)-1; i++ {
		rest -= slice(i)
	}
	return rest
}

// ListUploads returns the uploads of a contract, optionally of one kind.
func (s *UploadService) ListUploads(ctx context.Context, actorID, contractID string, kind models.UploadKind) ([]*models.Upload, error) {
	if err := s.canRead(ctx, actorID, contractID); err != nil {
		return nil, err
	}
	return s.repos.Repos().Uploads().ListByContract(ctx, contractID, kind)
}

// ListMilestoneUploads returns the uploads sent for one milestone.
func (s *UploadService) ListMilestoneUploads(ctx context.Context, actorID, contractID string, milestoneIndex int) ([]*models.Upload, error) {
	if err := s.canRead(ctx, actorID, contractID); err != nil {
		return nil, err
	}
	return s.repos.Repos().Uploads().ListByMilestone(ctx, contractID, milestoneIndex)
}

func (e *engine) canRead(ctx context.Context, actorID, contractID string) error {
	c, err := e.loadContract(ctx, e.repos.Repos(), contractID)
	if err != nil {
		return err
	}
	return e.requirePartyOrAdmin(ctx, c, actorID)
}
