package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

type walletRepo repositories

func (r walletRepo) Get(ctx context.Context, ownerID string) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.s.do(func(st *state) error {
		w, ok := st.wallets[ownerID]
		if !ok {
			return common.ErrorNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r walletRepo) Credit(ctx context.Context, ownerID string, target models.BalanceTarget, amount int64, at time.Time) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.s.do(func(st *state) error {
		w := st.wallets[ownerID]
		w.OwnerID = ownerID
		if target == models.TargetEscrowed {
			w.EscrowedCents += amount
		} else {
			w.AvailableCents += amount
		}
		w.UpdatedAt = at
		st.wallets[ownerID] = w
		out = &w
		return nil
	})
	return out, err
}

func (r walletRepo) Debit(ctx context.Context, ownerID string, target models.BalanceTarget, amount int64, at time.Time) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.s.do(func(st *state) error {
		w, ok := st.wallets[ownerID]
		if !ok || w.Balance(target)-amount < 0 {
			return common.ErrInsufficientFunds
		}
		if target == models.TargetEscrowed {
			w.EscrowedCents -= amount
		} else {
			w.AvailableCents -= amount
		}
		w.UpdatedAt = at
		st.wallets[ownerID] = w
		out = &w
		return nil
	})
	return out, err
}

func (r walletRepo) AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	return r.s.do(func(st *state) error {
		st.txs = append(st.txs, *tx)
		return nil
	})
}

func (r walletRepo) ListTransactions(ctx context.Context, ownerID string, limit int) ([]*models.WalletTransaction, error) {
	var out []*models.WalletTransaction
	err := r.s.do(func(st *state) error {
		for i := len(st.txs) - 1; i >= 0; i-- {
			if st.txs[i].OwnerID == ownerID {
				tx := st.txs[i]
				out = append(out, &tx)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
