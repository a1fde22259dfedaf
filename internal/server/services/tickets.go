package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

// TicketService runs the cancel, revision and change ticket flows.
type TicketService struct {
	*engine
}

// RevisionInput opens a revision ticket against a delivered upload.
type RevisionInput struct {
	TargetUploadID string `json:"targetUploadId" validate:"required"`
	Description    string `json:"description" validate:"required"`
}

// ChangeInput proposes a change of scope and optionally a later deadline.
type ChangeInput struct {
	ProposedChange string     `json:"proposedChange" validate:"required"`
	NewDeadlineAt  *time.Time `json:"newDeadlineAt"`
}

func (e *engine) newBase(c *models.Contract, role models.Role, window time.Duration) models.TicketBase {
	now := e.now()
	return models.TicketBase{
		ID:            e.newID(),
		ContractID:    c.ID,
		SubmittedBy:   role,
		SubmittedByID: c.PartyID(role),
		Status:        models.TicketOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(window),
	}
}

// answerable checks that actorID is the counterpart of the ticket and that
// the ticket still waits in status want.
func answerable(c *models.Contract, t *models.TicketBase, actorID string, want models.TicketStatus, now time.Time) error {
	if _, err := roleOf(c, actorID); err != nil {
		return err
	}
	if actorID == t.SubmittedByID {
		return fmt.Errorf("ticket %s must be answered by the counterpart: %w", t.ID, common.ErrorUnauthorized)
	}
	return pending(t, want, now)
}

func pending(t *models.TicketBase, want models.TicketStatus, now time.Time) error {
	switch {
	case t.Status == models.TicketExpired:
		return fmt.Errorf("ticket %s expired: %w", t.ID, common.ErrTooLate)
	case t.Status != want:
		return fmt.Errorf("ticket %s is already %s: %w", t.ID, t.Status, common.ErrDuplicateAction)
	case now.After(t.ExpiresAt):
		return fmt.Errorf("ticket %s expired at %s: %w", t.ID, t.ExpiresAt.Format(time.RFC3339), common.ErrTooLate)
	}
	return nil
}

func (e *engine) responded(t *models.TicketBase, to models.TicketStatus) {
	now := e.now()
	t.Status = to
	t.UpdatedAt = now
	t.RespondedAt = &now
}

// CreateCancelTicket asks the other party to end a live contract early.
func (s *TicketService) CreateCancelTicket(ctx context.Context, actorID, contractID, reason string) (*models.CancelTicket, error) {
	if reason == "" {
		return nil, fmt.Errorf("cancel reason is required: %w", common.ErrorValidation)
	}
	var t *models.CancelTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		role, err := roleOf(c, actorID)
		if err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive, models.StatusInRevision); err != nil {
			return err
		}
		t = &models.CancelTicket{TicketBase: s.newBase(c, role, s.opts.TicketResponseWindow), Reason: reason}
		if err := r.Tickets().CreateCancel(ctx, t); err != nil {
			return fmt.Errorf("create cancel ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "cancel ticket opened", "contract_id", contractID, "ticket_id", t.ID, "by", t.SubmittedBy)
	return t, nil
}

// RespondCancelTicket accepts or rejects a cancel ticket. Acceptance cancels
// the contract on behalf of the submitter.
func (s *TicketService) RespondCancelTicket(ctx context.Context, actorID, ticketID string, accept bool) (*models.CancelTicket, error) {
	var t *models.CancelTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetCancel(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("cancel ticket %s: %w", ticketID, err)
		}
		c, err := s.loadContract(ctx, r, t.ContractID)
		if err != nil {
			return err
		}
		if err := answerable(c, &t.TicketBase, actorID, models.TicketOpen, s.now()); err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive, models.StatusInRevision); err != nil {
			return err
		}

		if !accept {
			s.responded(&t.TicketBase, models.TicketRejected)
			return r.Tickets().UpdateCancel(ctx, t, models.TicketOpen)
		}
		s.responded(&t.TicketBase, models.TicketAccepted)
		if err := r.Tickets().UpdateCancel(ctx, t, models.TicketOpen); err != nil {
			return err
		}
		return s.transition(ctx, r, c, cancellationStatus(c, t.SubmittedBy, s.now()))
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateRevisionTicket lets the client ask for rework of a delivered upload.
// Revisions past the included count carry the proposal's revision fee.
func (s *TicketService) CreateRevisionTicket(ctx context.Context, actorID, contractID string, in RevisionInput) (*models.RevisionTicket, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var t *models.RevisionTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		if err := requireRole(c, actorID, models.RoleClient); err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive); err != nil {
			return err
		}
		u, err := r.Uploads().Get(ctx, in.TargetUploadID)
		if err != nil {
			return fmt.Errorf("upload %s: %w", in.TargetUploadID, err)
		}
		if u.ContractID != c.ID {
			return fmt.Errorf("upload %s: %w", u.ID, common.ErrorNotFound)
		}
		if !u.Kind.Reviewable() {
			return fmt.Errorf("%s upload cannot be revised: %w", u.Kind, common.ErrorValidation)
		}

		existing, err := r.Tickets().ListRevision(ctx, c.ID)
		if err != nil {
			return err
		}
		used := 0
		for _, x := range existing {
			switch x.Status {
			case models.TicketOpen, models.TicketAwaitingPayment:
				return fmt.Errorf("revision ticket %s is still open: %w", x.ID, common.ErrDuplicateAction)
			case models.TicketAccepted:
				return fmt.Errorf("revision ticket %s is in progress: %w", x.ID, common.ErrDuplicateAction)
			case models.TicketCompleted:
				used++
			}
		}

		t = &models.RevisionTicket{
			TicketBase:     s.newBase(c, models.RoleClient, s.opts.TicketResponseWindow),
			TargetUploadID: u.ID,
			Description:    in.Description,
		}
		if used >= c.Proposal.RevisionsIncluded {
			t.FeeCents = c.Proposal.RevisionFeeCents
		}
		if err := r.Tickets().CreateRevision(ctx, t); err != nil {
			return fmt.Errorf("create revision ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "revision ticket opened", "contract_id", contractID, "ticket_id", t.ID, "fee_cents", t.FeeCents)
	return t, nil
}

// RespondRevisionTicket lets the artist answer a revision request. A free
// revision puts the contract in revision right away; a paid one waits for
// the client to pay.
func (s *TicketService) RespondRevisionTicket(ctx context.Context, actorID, ticketID string, accept bool) (*models.RevisionTicket, error) {
	var t *models.RevisionTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetRevision(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("revision ticket %s: %w", ticketID, err)
		}
		c, err := s.loadContract(ctx, r, t.ContractID)
		if err != nil {
			return err
		}
		if err := answerable(c, &t.TicketBase, actorID, models.TicketOpen, s.now()); err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive); err != nil {
			return err
		}

		switch {
		case !accept:
			s.responded(&t.TicketBase, models.TicketRejected)
			return r.Tickets().UpdateRevision(ctx, t, models.TicketOpen)
		case t.FeeCents > 0:
			s.responded(&t.TicketBase, models.TicketAwaitingPayment)
			t.ExpiresAt = s.now().Add(s.opts.PaymentWindow)
			return r.Tickets().UpdateRevision(ctx, t, models.TicketOpen)
		default:
			s.responded(&t.TicketBase, models.TicketAccepted)
			if err := r.Tickets().UpdateRevision(ctx, t, models.TicketOpen); err != nil {
				return err
			}
			return s.startRevision(ctx, r, c, t)
		}
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// PayRevisionTicket settles the fee of an accepted paid revision and puts
// the contract in revision.
func (s *TicketService) PayRevisionTicket(ctx context.Context, actorID, ticketID string, pay models.Payment) (*models.RevisionTicket, error) {
	if err := s.check(pay); err != nil {
		return nil, err
	}
	var t *models.RevisionTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetRevision(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("revision ticket %s: %w", ticketID, err)
		}
		c, err := s.loadContract(ctx, r, t.ContractID)
		if err != nil {
			return err
		}
		if err := s.payFee(ctx, r, c, &t.TicketBase, actorID, t.FeeCents, pay, models.StatusActive); err != nil {
			return err
		}
		t.FeePaid = true
		t.Status = models.TicketAccepted
		t.UpdatedAt = s.now()
		if err := r.Tickets().UpdateRevision(ctx, t, models.TicketAwaitingPayment); err != nil {
			return err
		}
		return s.startRevision(ctx, r, c, t)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "revision fee paid", "ticket_id", t.ID, "fee_cents", t.FeeCents)
	return t, nil
}

// startRevision puts the contract in revision. The revised upload, if still
// waiting for review, is rejected so it cannot be accepted later.
func (e *engine) startRevision(ctx context.Context, r repomanager.Repositories, c *models.Contract, t *models.RevisionTicket) error {
	u, err := r.Uploads().Get(ctx, t.TargetUploadID)
	if err != nil {
		return fmt.Errorf("upload %s: %w", t.TargetUploadID, err)
	}
	if u.Status == models.UploadSubmitted {
		now := e.now()
		u.Status = models.UploadRejected
		u.ReviewedAt = &now
		if err := r.Uploads().UpdateReview(ctx, u); err != nil {
			return fmt.Errorf("reject upload %s: %w", u.ID, err)
		}
	}
	return e.transition(ctx, r, c, models.StatusInRevision)
}

// payFee checks a fee payment for a ticket awaiting it and moves the fee
// from the client to the artist.
func (e *engine) payFee(ctx context.Context, r repomanager.Repositories, c *models.Contract, t *models.TicketBase,
	actorID string, fee int64, pay models.Payment, allowed ...models.ContractStatus) error {
	if err := requireRole(c, actorID, models.RoleClient); err != nil {
		return err
	}
	if t.Status != models.TicketAwaitingPayment && t.Status != models.TicketExpired {
		return fmt.Errorf("ticket %s is %s: %w", t.ID, t.Status, common.ErrInvalidState)
	}
	if err := pending(t, models.TicketAwaitingPayment, e.now()); err != nil {
		return err
	}
	if err := requireStatus(c, allowed...); err != nil {
		return err
	}
	if err := checkPayment(pay, fee); err != nil {
		return err
	}
	return e.settlePayment(ctx, r, c.ID, c.ClientID, c.ArtistID, fee, pay)
}

// CreateChangeTicket lets the client propose a change to a live contract.
func (s *TicketService) CreateChangeTicket(ctx context.Context, actorID, contractID string, in ChangeInput) (*models.ChangeTicket, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var t *models.ChangeTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		if err := requireRole(c, actorID, models.RoleClient); err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive, models.StatusInRevision); err != nil {
			return err
		}
		if in.NewDeadlineAt != nil && !in.NewDeadlineAt.After(c.DeadlineAt) {
			return fmt.Errorf("proposed deadline is not after the current one: %w", common.ErrorValidation)
		}
		t = &models.ChangeTicket{
			TicketBase:     s.newBase(c, models.RoleClient, s.opts.TicketResponseWindow),
			ProposedChange: in.ProposedChange,
			NewDeadlineAt:  in.NewDeadlineAt,
		}
		if err := r.Tickets().CreateChange(ctx, t); err != nil {
			return fmt.Errorf("create change ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "change ticket opened", "contract_id", contractID, "ticket_id", t.ID)
	return t, nil
}

// RespondChangeTicket lets the artist accept a change for feeCents, zero
// applying it immediately, or reject it.
func (s *TicketService) RespondChangeTicket(ctx context.Context, actorID, ticketID string, accept bool, feeCents int64) (*models.ChangeTicket, error) {
	if feeCents < 0 {
		return nil, fmt.Errorf("negative fee: %w", common.ErrorValidation)
	}
	var t *models.ChangeTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetChange(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("change ticket %s: %w", ticketID, err)
		}
		c, err := s.loadContract(ctx, r, t.ContractID)
		if err != nil {
			return err
		}
		if err := answerable(c, &t.TicketBase, actorID, models.TicketOpen, s.now()); err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive, models.StatusInRevision); err != nil {
			return err
		}

		switch {
		case !accept:
			s.responded(&t.TicketBase, models.TicketRejected)
			return r.Tickets().UpdateChange(ctx, t, models.TicketOpen)
		case feeCents > 0:
			t.FeeCents = feeCents
			s.responded(&t.TicketBase, models.TicketAwaitingPayment)
			t.ExpiresAt = s.now().Add(s.opts.PaymentWindow)
			return r.Tickets().UpdateChange(ctx, t, models.TicketOpen)
		default:
			s.responded(&t.TicketBase, models.TicketAccepted)
			if err := r.Tickets().UpdateChange(ctx, t, models.TicketOpen); err != nil {
				return err
			}
			return s.applyChange(ctx, r, c, t)
		}
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// PayChangeTicket settles the fee of an accepted change and applies it.
func (s *TicketService) PayChangeTicket(ctx context.Context, actorID, ticketID string, pay models.Payment) (*models.ChangeTicket, error) {
	if err := s.check(pay); err != nil {
		return nil, err
	}
	var t *models.ChangeTicket
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		t, err = r.Tickets().GetChange(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("change ticket %s: %w", ticketID, err)
		}
		c, err := s.loadContract(ctx, r, t.ContractID)
		if err != nil {
			return err
		}
		err = s.payFee(ctx, r, c, &t.TicketBase, actorID, t.FeeCents, pay, models.StatusActive, models.StatusInRevision)
		if err != nil {
			return err
		}
		t.PaidFeeCents = t.FeeCents
		t.Status = models.TicketAccepted
		t.UpdatedAt = s.now()
		if err := r.Tickets().UpdateChange(ctx, t, models.TicketAwaitingPayment); err != nil {
			return err
		}
		return s.applyChange(ctx, r, c, t)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "change fee paid", "ticket_id", t.ID, "fee_cents", t.FeeCents)
	return t, nil
}

func (e *engine) applyChange(ctx context.Context, r repomanager.Repositories, c *models.Contract, t *models.ChangeTicket) error {
	if t.NewDeadlineAt == nil || !t.NewDeadlineAt.After(c.DeadlineAt) {
		return nil
	}
	c.DeadlineAt = *t.NewDeadlineAt
	return e.saveContract(ctx, r, c)
}

// ListTickets returns every ticket of a contract.
func (s *TicketService) ListTickets(ctx context.Context, actorID, contractID string) (*models.TicketSet, error) {
	if err := s.canRead(ctx, actorID, contractID); err != nil {
		return nil, err
	}
	return s.ticketSet(ctx, s.repos.Repos(), contractID)
}

func (e *engine) ticketSet(ctx context.Context, r repomanager.Repositories, contractID string) (*models.TicketSet, error) {
	var (
		set models.TicketSet
		err error
	)
	t := r.Tickets()
	if set.Cancel, err = t.ListCancel(ctx, contractID); err != nil {
		return nil, err
	}
	if set.Revision, err = t.ListRevision(ctx, contractID); err != nil {
		return nil, err
	}
	if set.Change, err = t.ListChange(ctx, contractID); err != nil {
		return nil, err
	}
	if set.Resolution, err = t.ListResolution(ctx, contractID); err != nil {
		return nil, err
	}
	return &set, nil
}
