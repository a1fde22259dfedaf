// Package models defines the records persisted by the commission engine.
package models

import "time"

// BalanceTarget names one of the two balances held by a wallet.
type BalanceTarget string

const (
	TargetAvailable BalanceTarget = "available"
	TargetEscrowed  BalanceTarget = "escrowed"
)

// TransactionType is the direction of a wallet mutation.
type TransactionType string

const (
	TxCredit TransactionType = "credit"
	TxDebit  TransactionType = "debit"
)

// TransactionSource tags why money moved.
type TransactionSource string

const (
	SourceCommission TransactionSource = "commission"
	SourceRefund     TransactionSource = "refund"
	SourcePayment    TransactionSource = "payment"
	SourceManual     TransactionSource = "manual"
	SourceRelease    TransactionSource = "release"
)

// Wallet holds the balances of one user. Both balances are never negative.
type Wallet struct {
	OwnerID        string    `json:"ownerId"`
	AvailableCents int64     `json:"availableCents"`
	EscrowedCents  int64     `json:"escrowedCents"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Balance returns the balance named by target.
func (w *Wallet) Balance(target BalanceTarget) int64 {
	if target == TargetEscrowed {
		return w.EscrowedCents
	}
	return w.AvailableCents
}

// WalletTransaction is the ledger record written for every wallet mutation.
type WalletTransaction struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"ownerId"`
	Type        TransactionType   `json:"type"`
	AmountCents int64             `json:"amountCents"`
	Target      BalanceTarget     `json:"target"`
	Source      TransactionSource `json:"source"`
	Note        string            `json:"note,omitempty"`
	ContractID  string            `json:"contractId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Signed returns the amount with the sign of its effect on the balance.
func (t *WalletTransaction) Signed() int64 {
	if t.Type == TxDebit {
		return -t.AmountCents
	}
	return t.AmountCents
}
