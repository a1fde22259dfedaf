package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type ticketRepo repositories

func getTicket[T any](s store, pick func(st *state) map[string]T, id string) (*T, error) {
	var out *T
	err := s.do(func(st *state) error {
		t, ok := pick(st)[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func listTickets[T any](s store, pick func(st *state) map[string]T, contractID string, key func(*T) (time.Time, string, string)) ([]*T, error) {
	var out []*T
	err := s.do(func(st *state) error {
		for _, t := range pick(st) {
			t := t
			if _, _, c := key(&t); c == contractID {
				out = append(out, &t)
			}
		}
		return nil
	})
	sortByCreated(out, func(t *T) (time.Time, string) {
		at, id, _ := key(t)
		return at, id
	})
	return out, err
}

// updateTicket replaces the stored ticket when its status still equals from.
func updateTicket[T any, S comparable](s store, pick func(st *state) map[string]T, id string, t T, status func(T) S, from S) error {
	return s.do(func(st *state) error {
		m := pick(st)
		stored, ok := m[id]
		if !ok || status(stored) != from {
			return common.ErrVersionConflict
		}
		m[id] = t
		return nil
	})
}

func baseKey(b *models.TicketBase) (time.Time, string, string) {
	return b.CreatedAt, b.ID, b.ContractID
}

func pickCancel(st *state) map[string]models.CancelTicket         { return st.cancel }
func pickRevision(st *state) map[string]models.RevisionTicket     { return st.revision }
func pickChange(st *state) map[string]models.ChangeTicket         { return st.change }
func pickResolution(st *state) map[string]models.ResolutionTicket { return st.resolutions }

func (r ticketRepo) CreateCancel(ctx context.Context, t *models.CancelTicket) error {
	return r.s.do(func(st *state) error {
		for _, existing := range st.cancel {
			if existing.ContractID == t.ContractID && existing.Status == models.TicketOpen {
				return fmt.Errorf("ticket already open: %w", common.ErrDuplicateAction)
			}
		}
		st.cancel[t.ID] = *t
		return nil
	})
}

func (r ticketRepo) GetCancel(ctx context.Context, id string) (*models.CancelTicket, error) {
	return getTicket(r.s, pickCancel, id)
}

func (r ticketRepo) UpdateCancel(ctx context.Context, t *models.CancelTicket, from models.TicketStatus) error {
	return updateTicket(r.s, pickCancel, t.ID, *t, func(c models.CancelTicket) models.TicketStatus { return c.Status }, from)
}

func (r ticketRepo) ListCancel(ctx context.Context, contractID string) ([]*models.CancelTicket, error) {
	return listTickets(r.s, pickCancel, contractID, func(t *models.CancelTicket) (time.Time, string, string) { return baseKey(&t.TicketBase) })
}

func (r ticketRepo) CreateRevision(ctx context.Context, t *models.RevisionTicket) error {
	return r.s.do(func(st *state) error {
		st.revision[t.ID] = *t
		return nil
	})
}

func (r ticketRepo) GetRevision(ctx context.Context, id string) (*models.RevisionTicket, error) {
	return getTicket(r.s, pickRevision, id)
}

func (r ticketRepo) UpdateRevision(ctx context.Context, t *models.RevisionTicket, from models.TicketStatus) error {
	return updateTicket(r.s, pickRevision, t.ID, *t, func(c models.RevisionTicket) models.TicketStatus { return c.Status }, from)
}

func (r ticketRepo) ListRevision(ctx context.Context, contractID string) ([]*models.RevisionTicket, error) {
	return listTickets(r.s, pickRevision, contractID, func(t *models.RevisionTicket) (time.Time, string, string) { return baseKey(&t.TicketBase) })
}

func (r ticketRepo) CreateChange(ctx context.Context, t *models.ChangeTicket) error {
	return r.s.do(func(st *state) error {
		st.change[t.ID] = *t
		return nil
	})
}

func (r ticketRepo) GetChange(ctx context.Context, id string) (*models.ChangeTicket, error) {
	return getTicket(r.s, pickChange, id)
}

func (r ticketRepo) UpdateChange(ctx context.Context, t *models.ChangeTicket, from models.TicketStatus) error {
	return updateTicket(r.s, pickChange, t.ID, *t, func(c models.ChangeTicket) models.TicketStatus { return c.Status }, from)
}

func (r ticketRepo) ListChange(ctx context.Context, contractID string) ([]*models.ChangeTicket, error) {
	return listTickets(r.s, pickChange, contractID, func(t *models.ChangeTicket) (time.Time, string, string) { return baseKey(&t.TicketBase) })
}

func (r ticketRepo) CreateResolution(ctx context.Context, t *models.ResolutionTicket) error {
	return r.s.do(func(st *state) error {
		st.resolutions[t.ID] = *t
		return nil
	})
}

func (r ticketRepo) GetResolution(ctx context.Context, id string) (*models.ResolutionTicket, error) {
	return getTicket(r.s, pickResolution, id)
}

func (r ticketRepo) UpdateResolution(ctx context.Context, t *models.ResolutionTicket, from models.ResolutionStatus) error {
	return updateTicket(r.s, pickResolution, t.ID, *t, func(c models.ResolutionTicket) models.ResolutionStatus { return c.Status }, from)
}

func (r ticketRepo) ListResolution(ctx context.Context, contractID string) ([]*models.ResolutionTicket, error) {
	return listTickets(r.s, pickResolution, contractID, func(t *models.ResolutionTicket) (time.Time, string, string) {
		return t.CreatedAt, t.ID, t.ContractID
	})
}
