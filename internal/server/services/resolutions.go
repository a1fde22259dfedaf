package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

// ResolutionService runs disputes: submission, counterproof, withdrawal and
// the admin decision.
type ResolutionService struct {
	*engine
}

// ResolutionInput opens a dispute. An empty TargetID on a contract target
// means the contract itself.
type ResolutionInput struct {
	TargetType  models.TargetType `json:"targetType" validate:"oneof=contract upload cancelTicket revisionTicket changeTicket"`
	TargetID    string            `json:"targetId"`
	Description string            `json:"description" validate:"required"`
	ProofImages []string          `json:"proofImages" validate:"dive,required"`
	Attachments []Attachment      `json:"attachments" validate:"dive"`
}

// CounterproofInput is the counterparty's answer to a dispute.
type CounterproofInput struct {
	Description string       `json:"description" validate:"required"`
	ProofImages []string     `json:"proofImages" validate:"dive,required"`
	Attachments []Attachment `json:"attachments" validate:"dive"`
}

// SubmitResolution opens a dispute on a live contract and puts the contract
// in the disputed state.
func (s *ResolutionService) SubmitResolution(ctx context.Context, actorID, contractID string, in ResolutionInput) (*models.ResolutionTicket, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	c, err := s.loadContract(ctx, s.repos.Repos(), contractID)
	if err != nil {
		return nil, err
	}
	if _, err := roleOf(c, actorID); err != nil {
		return nil, err
	}
	proofs, err := s.storeAttachments(ctx, "contracts/"+contractID+"/disputes", in.Attachments, in.ProofImages)
	if err != nil {
		return nil, err
	}

	var t *models.ResolutionTicket
	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		role, err := roleOf(c, actorID)
		if err != nil {
			return err
		}
		if c.Status.IsTerminal() || (c.Status == models.StatusDisputed && !s.opts.AllowConcurrentResolutions) {
			return fmt.Errorf("contract %s is %s: %w", c.ID, c.Status, common.ErrInvalidState)
		}
		targetID, err := s.checkTarget(ctx, r, c, in.TargetType, in.TargetID)
		if err != nil {
			return err
		}

		existing, err := r.Tickets().ListResolution(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, x := range existing {
			if !x.Status.Unresolved() {
				continue
			}
			if !s.opts.AllowConcurrentResolutions || (x.TargetType == in.TargetType && x.TargetID == targetID) {
				return fmt.Errorf("resolution ticket %s is unresolved: %w", x.ID, common.ErrDuplicateAction)
			}
		}

		now := s.now()
		t = &models.ResolutionTicket{
			ID:                 s.newID(),
			ContractID:         c.ID,
			SubmittedBy:        role,
			SubmittedByID:      actorID,
			CounterpartyID:     c.Counterpart(role),
			TargetType:         in.TargetType,
			TargetID:           targetID,
			Description:        in.Description,
			ProofImages:        proofs,
			CounterProofImages: []string{},
			CounterExpiresAt:   now.Add(s.opts.CounterWindow),
			Status:             models.ResolutionOpen,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := r.Tickets().CreateResolution(ctx, t); err != nil {
			return fmt.Errorf("create resolution ticket: %w", err)
		}
		if c.Status == models.StatusDisputed {
			return nil
		}
		return s.transition(ctx, r, c, models.StatusDisputed)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "dispute opened", "contract_id", contractID, "ticket_id", t.ID, "target", t.TargetType, "by", t.SubmittedBy)
	return t, nil
}

// checkTarget verifies the disputed record belongs to c and returns its id.
func (e *engine) checkTarget(ctx context.Context, r repomanager.Repositories, c *models.Contract, typ models.TargetType, id string) (string, error) {
	if typ == models.TargetContract {
		if id != "" && id != c.ID {
			return "", fmt.Errorf("contract target %s is not contract %s: %w", id, c.ID, common.ErrorValidation)
		}
		return c.ID, nil
	}
	if id == "" {
		return "", fmt.Errorf("%s target needs an id: %w", typ, common.ErrorValidation)
	}

	var (
		owner string
		err   error
	)
	switch typ {
	case models.TargetUpload:
		var u *models.Upload
		if u, err = r.Uploads().Get(ctx, id); err == nil {
			owner = u.ContractID
		}
	case models.TargetCancelTicket:
		var t *models.CancelTicket
		if t, err = r.Tickets().GetCancel(ctx, id); err == nil {
			owner = t.ContractID
		}
	case models.TargetRevisionTicket:
		var t *models.RevisionTicket
		if t, err = r.Tickets().GetRevision(ctx, id); err == nil {
			owner = t.ContractID
		}
	case models.TargetChangeTicket:
		var t *models.ChangeTicket
		if t, err = r.Tickets().GetChange(ctx, id); err == nil {
			owner = t.ContractID
		}
	default:
		return "", fmt.Errorf("unknown target type %q: %w", typ, common.ErrorValidation)
	}
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", typ, id, err)
	}
	if owner != c.ID {
		return "", fmt.Errorf("%s %s: %w", typ, id, common.ErrorNotFound)
	}
	return id, nil
}

// SubmitCounterproof records the counterparty's answer once, while the
// counter window is open, and hands the dispute to an admin.
func (s *ResolutionService) SubmitCounterproof(ctx context.Context, actorID, ticketID string, in CounterproofInput) (*models.ResolutionTicket, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	t, err := s.repos.Repos().Tickets().GetResolution(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("resolution ticket %s: %w", ticketID, err)
	}
	if actorID != t.CounterpartyID {
		return nil, fmt.Errorf("only the counterparty may answer ticket %s: %w", t.ID, common.ErrorUnauthorized)
	}
	proofs, err := s.storeAttachments(ctx, "contracts/"+t.ContractID+"/disputes", in.Attachments, in.ProofImages)
	if err != nil {
		return nil, err
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetResolution(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("resolution ticket %s: %w", ticketID, err)
		}
		now := s.now()
		switch {
		case t.CounteredAt != nil:
			return fmt.Errorf("ticket %s: %w", t.ID, common.ErrAlreadySubmitted)
		case t.Status != models.ResolutionOpen:
			return fmt.Errorf("ticket %s is %s: %w", t.ID, t.Status, common.ErrInvalidState)
		case now.After(t.CounterExpiresAt):
			return fmt.Errorf("counter window of ticket %s closed: %w", t.ID, common.ErrTooLate)
		}

		t.CounterDescription = in.Description
		t.CounterProofImages = proofs
		t.CounteredAt = &now
		t.Status = models.ResolutionAwaitingReview
		t.UpdatedAt = now
		return r.Tickets().UpdateResolution(ctx, t, models.ResolutionOpen)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CancelResolution withdraws an open dispute before any counterproof. The
// contract goes back to where it was once no dispute is left.
func (s *ResolutionService) CancelResolution(ctx context.Context, actorID, ticketID string) (*models.ResolutionTicket, error) {
	var t *models.ResolutionTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetResolution(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("resolution ticket %s: %w", ticketID, err)
		}
		if actorID != t.SubmittedByID {
			return fmt.Errorf("only the submitter may withdraw ticket %s: %w", t.ID, common.ErrorUnauthorized)
		}
		switch {
		case t.Status == models.ResolutionCancelled:
			return fmt.Errorf("ticket %s is already cancelled: %w", t.ID, common.ErrDuplicateAction)
		case t.Status != models.ResolutionOpen || t.CounteredAt != nil:
			return fmt.Errorf("ticket %s is %s: %w", t.ID, t.Status, common.ErrInvalidState)
		}

		t.Status = models.ResolutionCancelled
		t.UpdatedAt = s.now()
		if err := r.Tickets().UpdateResolution(ctx, t, models.ResolutionOpen); err != nil {
			return err
		}
		return s.restoreAfterDispute(ctx, r, t.ContractID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "dispute withdrawn", "contract_id", t.ContractID, "ticket_id", t.ID)
	return t, nil
}

func (e *engine) restoreAfterDispute(ctx context.Context, r repomanager.Repositories, contractID string) error {
	c, err := e.loadContract(ctx, r, contractID)
	if err != nil {
		return err
	}
	if c.Status != models.StatusDisputed {
		return nil
	}
	all, err := r.Tickets().ListResolution(ctx, contractID)
	if err != nil {
		return err
	}
	for _, x := range all {
		if x.Status.Unresolved() {
			return nil
		}
	}
	back := c.StatusBeforeDispute
	if back == "" {
		back = models.StatusActive
	}
	return e.transition(ctx, r, c, back)
}

// ResolveDispute applies an admin decision to a dispute awaiting review.
func (s *ResolutionService) ResolveDispute(ctx context.Context, ticketID, adminID string, decision models.Decision, note string) (*models.ResolutionTicket, error) {
	if decision != models.FavorClient && decision != models.FavorArtist {
		return nil, fmt.Errorf("unknown decision %q: %w", decision, common.ErrorValidation)
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var t *models.ResolutionTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetResolution(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("resolution ticket %s: %w", ticketID, err)
		}
		switch t.Status {
		case models.ResolutionResolved:
			return fmt.Errorf("ticket %s: %w", t.ID, common.ErrAlreadyResolved)
		case models.ResolutionAwaitingReview:
		default:
			return fmt.Errorf("ticket %s is %s: %w", t.ID, t.Status, common.ErrInvalidState)
		}
		return s.resolve(ctx, r, t, decision, note, adminID)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// resolve marks t resolved and applies the decision to its target and the
// contract. Other unresolved disputes on the contract end up cancelled.
func (e *engine) resolve(ctx context.Context, r repomanager.Repositories, t *models.ResolutionTicket, decision models.Decision, note, resolver string) error {
	now := e.now()
	from := t.Status
	t.Status = models.ResolutionResolved
	t.Decision = decision
	t.ResolutionNote = note
	t.ResolvedBy = resolver
	t.ResolvedAt = &now
	t.UpdatedAt = now
	if err := r.Tickets().UpdateResolution(ctx, t, from); err != nil {
		return fmt.Errorf("resolve ticket %s: %w", t.ID, err)
	}

	c, err := e.loadContract(ctx, r, t.ContractID)
	if err != nil {
		return err
	}
	deliveredAt, err := e.applyToTarget(ctx, r, t, decision)
	if err != nil {
		return err
	}

	to := cancellationStatus(c, models.RoleArtist, now)
	if decision == models.FavorArtist {
		to = completionStatus(c, deliveredAt)
	}
	if err := e.transition(ctx, r, c, to); err != nil {
		return err
	}

	e.log.Info(ctx, "dispute resolved", "contract_id", c.ID, "ticket_id", t.ID, "decision", decision, "by", resolver)
	return nil
}

// applyToTarget settles the disputed record and returns when the disputed
// work was delivered, which is now unless an upload is targeted.
func (e *engine) applyToTarget(ctx context.Context, r repomanager.Repositories, t *models.ResolutionTicket, decision models.Decision) (time.Time, error) {
	now := e.now()
	t2 := r.Tickets()

	switch t.TargetType {
	case models.TargetUpload:
		u, err := r.Uploads().Get(ctx, t.TargetID)
		if err != nil {
			return now, fmt.Errorf("upload %s: %w", t.TargetID, err)
		}
		if u.Status == models.UploadSubmitted {
			u.Status = models.UploadRejected
			if decision == models.FavorArtist {
				u.Status = models.UploadAccepted
			}
			u.ReviewedAt = &now
			if err := r.Uploads().UpdateReview(ctx, u); err != nil {
				return now, fmt.Errorf("review upload %s: %w", u.ID, err)
			}
		}
		return u.CreatedAt, nil
	case models.TargetCancelTicket:
		tk, err := t2.GetCancel(ctx, t.TargetID)
		if err != nil {
			return now, err
		}
		if from, ok := e.decideTicket(&tk.TicketBase, decision); ok {
			return now, t2.UpdateCancel(ctx, tk, from)
		}
	case models.TargetRevisionTicket:
		tk, err := t2.GetRevision(ctx, t.TargetID)
		if err != nil {
			return now, err
		}
		if from, ok := e.decideTicket(&tk.TicketBase, decision); ok {
			return now, t2.UpdateRevision(ctx, tk, from)
		}
	case models.TargetChangeTicket:
		tk, err := t2.GetChange(ctx, t.TargetID)
		if err != nil {
			return now, err
		}
		if from, ok := e.decideTicket(&tk.TicketBase, decision); ok {
			return now, t2.UpdateChange(ctx, tk, from)
		}
	}
	return now, nil
}

// decideTicket sets a disputed ticket to accepted when decision favors its
// submitter and to rejected otherwise. Completed tickets are left alone.
func (e *engine) decideTicket(t *models.TicketBase, decision models.Decision) (models.TicketStatus, bool) {
	to := models.TicketRejected
	if decision == models.Favors(t.SubmittedBy) {
		to = models.TicketAccepted
	}
	if t.Status == to || t.Status == models.TicketCompleted {
		return "", false
	}
	from := t.Status
	e.responded(t, to)
	return from, true
}

// ListResolutions returns the disputes of a contract.
func (s *ResolutionService) ListResolutions(ctx context.Context, actorID, contractID string) ([]*models.ResolutionTicket, error) {
	if err := s.canRead(ctx, actorID, contractID); err != nil {
		return nil, err
	}
	return s.repos.Repos().Tickets().ListResolution(ctx, contractID)
}

// GetResolution returns one dispute to a party or an admin.
func (s *ResolutionService) GetResolution(ctx context.Context, actorID, ticketID string) (*models.ResolutionTicket, error) {
	t, err := s.repos.Repos().Tickets().GetResolution(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("resolution ticket %s: %w", ticketID, err)
	}
	if err := s.canRead(ctx, actorID, t.ContractID); err != nil {
		return nil, err
	}
	return t, nil
}
