package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/server/locks"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

// ItemError is a failure of one swept item. The sweep carries on past it.
type ItemError struct {
	ContractID string `json:"contractId"`
	Item       string `json:"item"`
	ID         string `json:"id"`
	Error      string `json:"error"`
}

// ExpirationSummary counts what one sweep changed.
type ExpirationSummary struct {
	ContractsScanned        int         `json:"contractsScanned"`
	UploadsAutoAccepted     int         `json:"uploadsAutoAccepted"`
	TicketsExpired          int         `json:"ticketsExpired"`
	ResolutionsAutoResolved int         `json:"resolutionsAutoResolved"`
	ResolutionsEscalated    int         `json:"resolutionsEscalated"`
	ContractsNotCompleted   int         `json:"contractsNotCompleted"`
	Skipped                 int         `json:"skipped"`
	Errors                  []ItemError `json:"errors"`
}

// Processed is the number of items the sweep changed.
func (s *ExpirationSummary) Processed() int {
	return s.UploadsAutoAccepted + s.TicketsExpired + s.ResolutionsAutoResolved +
		s.ResolutionsEscalated + s.ContractsNotCompleted
}

// ReconcileService applies every time based transition that is due. Nothing
// runs on its own: deadlines are compared with the clock whenever a caller
// invokes the sweep, and an overdue item waits until then.
type ReconcileService struct {
	*engine
}

// ProcessContractExpirations sweeps one contract on behalf of a party or an
// admin.
func (s *ReconcileService) ProcessContractExpirations(ctx context.Context, contractID, userID string) (*ExpirationSummary, error) {
	if err := s.canRead(ctx, userID, contractID); err != nil {
		return nil, err
	}
	sum := &ExpirationSummary{Errors: []ItemError{}}
	s.sweep(ctx, contractID, sum)
	return sum, nil
}

// ProcessAllUserExpirations sweeps every live contract of userID.
func (s *ReconcileService) ProcessAllUserExpirations(ctx context.Context, userID string) (*ExpirationSummary, error) {
	list, err := s.repos.Repos().Contracts().ListByParty(ctx, userID, models.LiveStatuses)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return s.sweepAll(ctx, ids), nil
}

// ProcessAll sweeps every live contract. The ops CLI uses it.
func (s *ReconcileService) ProcessAll(ctx context.Context) (*ExpirationSummary, error) {
	ids, err := s.repos.Repos().Contracts().ListIDsByStatus(ctx, models.LiveStatuses)
	if err != nil {
		return nil, err
	}
	return s.sweepAll(ctx, ids), nil
}

func (s *ReconcileService) sweepAll(ctx context.Context, ids []string) *ExpirationSummary {
	sum := &ExpirationSummary{Errors: []ItemError{}}
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		s.sweep(ctx, id, sum)
	}
	return sum
}

func (s *ReconcileService) sweep(ctx context.Context, contractID string, sum *ExpirationSummary) {
	release, err := s.locker.TryLock(ctx, "contract:"+contractID)
	switch {
	case errors.Is(err, locks.ErrHeld):
		sum.Skipped++
		return
	case err != nil:
		s.log.Warn(ctx, "sweep lock unavailable, continuing unlocked", "contract_id", contractID, "error", err)
	default:
		defer func() {
			if err := release(ctx); err != nil {
				s.log.Warn(ctx, "sweep lock release failed", "contract_id", contractID, "error", err)
			}
		}()
	}

	sum.ContractsScanned++
	fail := func(item, id string, err error) {
		s.log.Warn(ctx, "sweep item failed", "contract_id", contractID, "item", item, "id", id, "error", err)
		sum.Errors = append(sum.Errors, ItemError{ContractID: contractID, Item: item, ID: id, Error: err.Error()})
	}

	s.sweepUploads(ctx, contractID, sum, fail)
	s.sweepTickets(ctx, contractID, sum, fail)
	s.sweepResolutions(ctx, contractID, sum, fail)

	var done bool
	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		c, err := s.loadContract(ctx, r, contractID)
		if err != nil {
			return err
		}
		done, err = s.processGrace(ctx, r, c)
		return err
	})
	switch {
	case err != nil:
		fail("contract", contractID, err)
	case done:
		sum.ContractsNotCompleted++
	}
}

func (s *ReconcileService) sweepUploads(ctx context.Context, contractID string, sum *ExpirationSummary, fail func(string, string, error)) {
	list, err := s.repos.Repos().Uploads().ListByContract(ctx, contractID, "")
	if err != nil {
		fail("uploads", contractID, err)
		return
	}
	now := s.now()
	for _, u := range list {
		if u.Status != models.UploadSubmitted || !u.Expired(now) {
			continue
		}
		var done bool
		err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
			fresh, err := r.Uploads().Get(ctx, u.ID)
			if err != nil {
				return err
			}
			done, err = s.autoAccept(ctx, r, fresh)
			return err
		})
		switch {
		case err != nil:
			fail("upload", u.ID, err)
		case done:
			sum.UploadsAutoAccepted++
		}
	}
}

// sweepTickets expires overdue cancel, revision and change tickets. A ticket
// under an unresolved dispute stays as it is until the dispute ends.
func (s *ReconcileService) sweepTickets(ctx context.Context, contractID string, sum *ExpirationSummary, fail func(string, string, error)) {
	set, err := s.ticketSet(ctx, s.repos.Repos(), contractID)
	if err != nil {
		fail("tickets", contractID, err)
		return
	}
	disputed := map[string]bool{}
	for _, t := range set.Resolution {
		if t.Status.Unresolved() {
			disputed[t.TargetID] = true
		}
	}

	now := s.now()
	type due struct {
		kind models.TicketKind
		id   string
	}
	var list []due
	for _, t := range set.Cancel {
		if t.Overdue(now) && !disputed[t.ID] {
			list = append(list, due{models.TicketCancel, t.ID})
		}
	}
	for _, t := range set.Revision {
		if t.Overdue(now) && !disputed[t.ID] {
			list = append(list, due{models.TicketRevision, t.ID})
		}
	}
	for _, t := range set.Change {
		if t.Overdue(now) && !disputed[t.ID] {
			list = append(list, due{models.TicketChange, t.ID})
		}
	}

	for _, d := range list {
		var done bool
		err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
			var err error
			done, err = s.expireTicket(ctx, r, d.kind, d.id)
			return err
		})
		switch {
		case err != nil:
			fail(string(d.kind)+" ticket", d.id, err)
		case done:
			sum.TicketsExpired++
		}
	}
}

// expireTicket rereads a ticket and expires it if it is still overdue.
func (e *engine) expireTicket(ctx context.Context, r repomanager.Repositories, kind models.TicketKind, id string) (bool, error) {
	now := e.now()
	t := r.Tickets()
	switch kind {
	case models.TicketCancel:
		tk, err := t.GetCancel(ctx, id)
		if err != nil || !tk.Overdue(now) {
			return false, err
		}
		from, _ := expire(&tk.TicketBase, now)
		return true, t.UpdateCancel(ctx, tk, from)
	case models.TicketRevision:
		tk, err := t.GetRevision(ctx, id)
		if err != nil || !tk.Overdue(now) {
			return false, err
		}
		from, _ := expire(&tk.TicketBase, now)
		return true, t.UpdateRevision(ctx, tk, from)
	case models.TicketChange:
		tk, err := t.GetChange(ctx, id)
		if err != nil || !tk.Overdue(now) {
			return false, err
		}
		from, _ := expire(&tk.TicketBase, now)
		return true, t.UpdateChange(ctx, tk, from)
	}
	return false, fmt.Errorf("unknown ticket kind %q", kind)
}

func (s *ReconcileService) sweepResolutions(ctx context.Context, contractID string, sum *ExpirationSummary, fail func(string, string, error)) {
	list, err := s.repos.Repos().Tickets().ListResolution(ctx, contractID)
	if err != nil {
		fail("resolutions", contractID, err)
		return
	}
	now := s.now()
	for _, t := range list {
		if !t.Lapsed(now) {
			continue
		}
		var escalated, resolved bool
		err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
			fresh, err := r.Tickets().GetResolution(ctx, t.ID)
			if err != nil {
				return err
			}
			escalated, resolved, err = s.lapse(ctx, r, fresh)
			return err
		})
		switch {
		case err != nil:
			fail("resolution ticket", t.ID, err)
		case escalated:
			sum.ResolutionsEscalated++
		case resolved:
			sum.ResolutionsAutoResolved++
		}
	}
}
