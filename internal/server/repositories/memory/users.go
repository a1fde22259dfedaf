package memory

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type userRepo repositories

func (r userRepo) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.s.do(func(st *state) error {
		for id, u := range st.users {
			if id != user.ID && u.UserName == user.UserName {
				return fmt.Errorf("username %q taken: %w", user.UserName, common.ErrDuplicateAction)
			}
		}
		if existing, ok := st.users[user.ID]; ok {
			user.IsAdmin = existing.IsAdmin
			user.CreatedAt = existing.CreatedAt
		}
		st.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r userRepo) Get(ctx context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.s.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	var out *models.User
	err := r.s.do(func(st *state) error {
		for _, u := range st.users {
			if u.UserName == userName {
				out = &u
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (r userRepo) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return r.s.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return common.ErrorNotFound
		}
		u.IsAdmin = isAdmin
		st.users[id] = u
		return nil
	})
}
