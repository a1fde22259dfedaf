package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type uploadRepo repositories

func (r uploadRepo) Create(ctx context.Context, u *models.Upload) error {
	return r.s.do(func(st *state) error {
		if u.Status == models.UploadSubmitted {
			for _, existing := range st.uploads {
				if existing.ContractID == u.ContractID && existing.Kind == u.Kind && existing.Status == models.UploadSubmitted {
					return fmt.Errorf("a %s upload is already awaiting review: %w", u.Kind, common.ErrInvalidState)
				}
			}
		}
		st.uploads[u.ID] = *u
		return nil
	})
}

func (r uploadRepo) Get(ctx context.Context, id string) (*models.Upload, error) {
	var out *models.Upload
	err := r.s.do(func(st *state) error {
		u, ok := st.uploads[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r uploadRepo) UpdateReview(ctx context.Context, u *models.Upload) error {
	return r.s.do(func(st *state) error {
		stored, ok := st.uploads[u.ID]
		if !ok || stored.Status != models.UploadSubmitted {
			return common.ErrVersionConflict
		}
		stored.Status = u.Status
		stored.ReviewedAt = u.ReviewedAt
		st.uploads[u.ID] = stored
		return nil
	})
}

func (r uploadRepo) FindSubmitted(ctx context.Context, contractID string, kind models.UploadKind) (*models.Upload, error) {
	var out *models.Upload
	err := r.s.do(func(st *state) error {
		for _, u := range st.uploads {
			if u.ContractID == contractID && u.Kind == kind && u.Status == models.UploadSubmitted {
				out = &u
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (r uploadRepo) list(match func(u *models.Upload) bool) ([]*models.Upload, error) {
	var out []*models.Upload
	err := r.s.do(func(st *state) error {
		for _, u := range st.uploads {
			u := u
			if match(&u) {
				out = append(out, &u)
			}
		}
		return nil
	})
	sortByCreated(out, func(u *models.Upload) (time.Time, string) { return u.CreatedAt, u.ID })
	return out, err
}

func (r uploadRepo) ListByContract(ctx context.Context, contractID string, kind models.UploadKind) ([]*models.Upload, error) {
	return r.list(func(u *models.Upload) bool {
		return u.ContractID == contractID && (kind == "" || u.Kind == kind)
	})
}

func (r uploadRepo) ListByMilestone(ctx context.Context, contractID string, milestoneIndex int) ([]*models.Upload, error) {
	return r.list(func(u *models.Upload) bool {
		return u.ContractID == contractID && u.Kind == models.UploadProgressMilestone &&
			u.MilestoneIndex != nil && *u.MilestoneIndex == milestoneIndex
	})
}
