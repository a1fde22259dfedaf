package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

// ContractService creates contracts from accepted proposals and owns their
// money once they end.
type ContractService struct {
	*engine
}

func checkMilestones(p models.Proposal) error {
	switch p.Flow {
	case models.FlowStandard:
		if len(p.Milestones) > 0 {
			return fmt.Errorf("standard flow takes no milestones: %w", common.ErrorValidation)
		}
	case models.FlowMilestone:
		if len(p.Milestones) == 0 {
			return fmt.Errorf("milestone flow needs at least one milestone: %w", common.ErrorValidation)
		}
		var sum int64
		for _, m := range p.Milestones {
			sum += m.Percent
		}
		if sum != 100 {
			return fmt.Errorf("milestone percents sum to %d, want 100: %w", sum, common.ErrorValidation)
		}
	}
	return nil
}

// CreateFromProposal turns an accepted proposal into an active contract and
// funds its escrow from the client. The external part of the payment is
// credited to the client first.
func (s *ContractService) CreateFromProposal(ctx context.Context, actorID string, p models.Proposal, pay models.Payment) (*models.Contract, error) {
	if err := s.check(p); err != nil {
		return nil, err
	}
	if err := s.check(pay); err != nil {
		return nil, err
	}
	if err := checkMilestones(p); err != nil {
		return nil, err
	}
	if actorID != p.ClientID {
		return nil, fmt.Errorf("only the client may finalize proposal %s: %w", p.ID, common.ErrorUnauthorized)
	}
	if err := checkPayment(pay, p.TotalCents); err != nil {
		return nil, err
	}

	now := s.now()
	c := &models.Contract{
		ID:         s.newID(),
		ProposalID: p.ID,
		ArtistID:   p.ArtistID,
		ClientID:   p.ClientID,
		Proposal:   p,
		Flow:       p.Flow,
		Status:     models.StatusActive,
		Finance:    models.Finance{TotalCents: p.TotalCents, EscrowedCents: p.TotalCents},
		DeadlineAt: p.DeadlineAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if err := r.Contracts().Create(ctx, c); err != nil {
			return fmt.Errorf("create contract: %w", err)
		}
		if pay.ExternalCents > 0 {
			err := s.credit(ctx, r, entry{
				owner: c.ClientID, target: models.TargetAvailable, amount: pay.ExternalCents,
				source: models.SourcePayment, note: pay.ExternalRef, contractID: c.ID,
			})
			if err != nil {
				return err
			}
		}
		return s.escrowFunds(ctx, r, c.ID, c.ClientID, c.Finance.TotalCents)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "contract created", "contract_id", c.ID, "proposal_id", p.ID, "total_cents", p.TotalCents)
	return c, nil
}

// GetContract returns a contract to one of its parties or an admin.
func (s *ContractService) GetContract(ctx context.Context, actorID, id string) (*models.Contract, error) {
	c, err := s.loadContract(ctx, s.repos.Repos(), id)
	if err != nil {
		return nil, err
	}
	if err := s.requirePartyOrAdmin(ctx, c, actorID); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *engine) requirePartyOrAdmin(ctx context.Context, c *models.Contract, actorID string) error {
	if _, ok := c.RoleOf(actorID); ok {
		return nil
	}
	return e.requireAdmin(ctx, actorID)
}

// ListContracts returns the contracts of actorID, optionally narrowed to
// statuses.
func (s *ContractService) ListContracts(ctx context.Context, actorID string, statuses []models.ContractStatus) ([]*models.Contract, error) {
	return s.repos.Repos().Contracts().ListByParty(ctx, actorID, statuses)
}

// ClaimFunds pays the caller's unclaimed share of a terminal contract out of
// escrow and returns the amount paid.
func (s *ContractService) ClaimFunds(ctx context.Context, contractID, actorID string) (int64, error) {
	var paid int64
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		role, err := roleOf(c, actorID)
		if err != nil {
			return err
		}
		if !c.Status.IsTerminal() {
			return fmt.Errorf("contract %s is still %s: %w", c.ID, c.Status, common.ErrInvalidState)
		}
		paid, err = s.payOut(ctx, r, c, role)
		if err != nil {
			return err
		}
		if paid == 0 {
			return fmt.Errorf("contract %s: %w", c.ID, common.ErrNothingToClaim)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info(ctx, "funds claimed", "contract_id", contractID, "user", actorID, "amount_cents", paid)
	return paid, nil
}

// payOut releases whatever role is owed and has not claimed yet.
func (e *engine) payOut(ctx context.Context, r repomanager.Repositories, c *models.Contract, role models.Role) (int64, error) {
	f := &c.Finance
	owed, claimed, source := f.OwedClientCents, &f.ClientClaimedCents, models.SourceRefund
	if role == models.RoleArtist {
		owed, claimed, source = f.OwedArtistCents, &f.ArtistClaimedCents, models.SourceRelease
	}

	amount := owed - *claimed
	if amount <= 0 {
		return 0, nil
	}
	if err := e.releaseEscrow(ctx, r, c.ID, c.ClientID, c.PartyID(role), amount, source); err != nil {
		return 0, err
	}
	*claimed += amount
	f.EscrowedCents -= amount
	if err := e.saveContract(ctx, r, c); err != nil {
		return 0, err
	}
	return amount, nil
}

// ExtendContractDeadline moves the deadline of a live contract later.
func (s *ContractService) ExtendContractDeadline(ctx context.Context, contractID, clientID string, newDeadline time.Time) (*models.Contract, error) {
	var c *models.Contract
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		c, err = s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		if err := requireRole(c, clientID, models.RoleClient); err != nil {
			return err
		}
		if err := requireStatus(c, models.StatusActive, models.StatusInRevision); err != nil {
			return err
		}
		if !newDeadline.After(c.DeadlineAt) {
			return fmt.Errorf("new deadline %s is not after %s: %w",
				newDeadline.Format(time.RFC3339), c.DeadlineAt.Format(time.RFC3339), common.ErrorValidation)
		}
		c.DeadlineAt = newDeadline
		return s.saveContract(ctx, r, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ProcessGracePeriod marks a live contract notCompleted once its deadline
// plus the grace window passed and refunds the client's share right away.
// It reports whether anything changed.
func (s *ContractService) ProcessGracePeriod(ctx context.Context, contractID string) (bool, error) {
	var done bool
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		done, err = s.processGrace(ctx, r, c)
		return err
	})
	return done, err
}

func (e *engine) processGrace(ctx context.Context, r repomanager.Repositories, c *models.Contract) (bool, error) {
	if !c.Status.IsOpenForWork() {
		return false, nil
	}
	if !e.now().After(c.DeadlineAt.Add(e.opts.GraceWindow)) {
		return false, nil
	}
	if err := e.transition(ctx, r, c, models.StatusNotCompleted); err != nil {
		return false, err
	}
	if _, err := e.payOut(ctx, r, c, models.RoleClient); err != nil {
		return false, err
	}
	return true, nil
}
