package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type contractRepo repositories

func (r contractRepo) Create(ctx context.Context, c *models.Contract) error {
	return r.s.do(func(st *state) error {
		for _, existing := range st.contracts {
			if existing.ProposalID == c.ProposalID {
				return fmt.Errorf("proposal %s already finalized: %w", c.ProposalID, common.ErrDuplicateAction)
			}
		}
		c.Version = 1
		st.contracts[c.ID] = *c
		return nil
	})
}

func (r contractRepo) Get(ctx context.Context, id string) (*models.Contract, error) {
	var out *models.Contract
	err := r.s.do(func(st *state) error {
		c, ok := st.contracts[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r contractRepo) Update(ctx context.Context, c *models.Contract) error {
	return r.s.do(func(st *state) error {
		stored, ok := st.contracts[c.ID]
		if !ok || stored.Version != c.Version {
			return common.ErrVersionConflict
		}
		c.Version++
		next := *c
		next.Proposal = stored.Proposal
		next.ProposalID = stored.ProposalID
		st.contracts[c.ID] = next
		return nil
	})
}

func (r contractRepo) ListByParty(ctx context.Context, userID string, statuses []models.ContractStatus) ([]*models.Contract, error) {
	want := map[models.ContractStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}

	var out []*models.Contract
	err := r.s.do(func(st *state) error {
		for _, c := range st.contracts {
			if c.ArtistID != userID && c.ClientID != userID {
				continue
			}
			if len(want) > 0 && !want[c.Status] {
				continue
			}
			c := c
			out = append(out, &c)
		}
		return nil
	})
	sortByCreated(out, func(c *models.Contract) (time.Time, string) { return c.CreatedAt, c.ID })
	return out, err
}

func (r contractRepo) ListIDsByStatus(ctx context.Context, statuses []models.ContractStatus) ([]string, error) {
	var all []*models.Contract
	err := r.s.do(func(st *state) error {
		for _, c := range st.contracts {
			for _, s := range statuses {
				if c.Status == s {
					c := c
					all = append(all, &c)
					break
				}
			}
		}
		return nil
	})
	sortByCreated(all, func(c *models.Contract) (time.Time, string) { return c.CreatedAt, c.ID })

	ids := make([]string, 0, len(all))
	for _, c := range all {
		ids = append(ids, c.ID)
	}
	return ids, err
}
