// Package wallets persists wallet balances and their transaction log.
package wallets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/commissions/internal/server/models"
)

// Repository is the storage behind the wallet ledger. Credit and Debit are
// single-row conditional updates; a debit that would take a balance below
// zero returns common.ErrInsufficientFunds and changes nothing.
type Repository interface {
	Get(ctx context.Context, ownerID string) (*models.Wallet, error)
	Credit(ctx context.Context, ownerID string, target models.BalanceTarget, amount int64, at time.Time) (*models.Wallet, error)
	Debit(ctx context.Context, ownerID string, target models.BalanceTarget, amount int64, at time.Time) (*models.Wallet, error)
	AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error
	ListTransactions(ctx context.Context, ownerID string, limit int) ([]*models.WalletTransaction, error)
}
