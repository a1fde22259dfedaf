package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/config"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

// LapseAction is what happens to a dispute whose counterparty stayed silent.
type LapseAction struct {
	Escalate bool
	Decision models.Decision
}

// LapsePolicy decides the fate of a lapsed dispute.
type LapsePolicy func(t *models.ResolutionTicket) LapseAction

// FavorSubmitter resolves a lapsed dispute for the party that opened it.
func FavorSubmitter(t *models.ResolutionTicket) LapseAction {
	return LapseAction{Decision: models.Favors(t.SubmittedBy)}
}

// Escalate leaves the decision to an admin.
func Escalate(*models.ResolutionTicket) LapseAction {
	return LapseAction{Escalate: true}
}

// LapsePolicyByName maps a configured policy name to its function.
func LapsePolicyByName(name string) (LapsePolicy, error) {
	switch name {
	case "", config.LapseFavorSubmitter:
		return FavorSubmitter, nil
	case config.LapseEscalate:
		return Escalate, nil
	default:
		return nil, fmt.Errorf("unknown lapse policy %q: %w", name, common.ErrorValidation)
	}
}

const lapseNote = "counterproof window lapsed"

// lapse applies the policy to t when its counter window closed unanswered.
// It reports whether t was escalated and whether it was resolved.
func (e *engine) lapse(ctx context.Context, r repomanager.Repositories, t *models.ResolutionTicket) (escalated, resolved bool, err error) {
	if !t.Lapsed(e.now()) {
		return false, false, nil
	}

	action := e.opts.LapsePolicy(t)
	if !action.Escalate {
		if err := e.resolve(ctx, r, t, action.Decision, lapseNote, common.SystemActorID); err != nil {
			return false, false, err
		}
		return false, true, nil
	}

	t.Status = models.ResolutionAwaitingReview
	t.Escalated = true
	t.UpdatedAt = e.now()
	if err := r.Tickets().UpdateResolution(ctx, t, models.ResolutionOpen); err != nil {
		return false, false, fmt.Errorf("escalate ticket %s: %w", t.ID, err)
	}
	e.log.Info(ctx, "dispute escalated", "contract_id", t.ContractID, "ticket_id", t.ID)
	return true, false, nil
}
