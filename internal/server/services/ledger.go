package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
)

// entry describes one side of a wallet mutation.
type entry struct {
	owner      string
	target     models.BalanceTarget
	amount     int64
	source     models.TransactionSource
	note       string
	contractID string
}

func (e *engine) apply(ctx context.Context, r repomanager.Repositories, typ models.TransactionType, en entry) error {
	if en.amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d: %w", en.amount, common.ErrorValidation)
	}
	if en.owner == "" {
		return fmt.Errorf("wallet owner is empty: %w", common.ErrorValidation)
	}

	now := e.now()
	var err error
	if typ == models.TxDebit {
		_, err = r.Wallets().Debit(ctx, en.owner, en.target, en.amount, now)
	} else {
		_, err = r.Wallets().Credit(ctx, en.owner, en.target, en.amount, now)
	}
	if err != nil {
		return fmt.Errorf("%s %s of %s: %w", typ, en.target, en.owner, err)
	}

	return r.Wallets().AppendTransaction(ctx, &models.WalletTransaction{
		ID:          e.newID(),
		OwnerID:     en.owner,
		Type:        typ,
		AmountCents: en.amount,
		Target:      en.target,
		Source:      en.source,
		Note:        en.note,
		ContractID:  en.contractID,
		CreatedAt:   now,
	})
}

func (e *engine) credit(ctx context.Context, r repomanager.Repositories, en entry) error {
	return e.apply(ctx, r, models.TxCredit, en)
}

func (e *engine) debit(ctx context.Context, r repomanager.Repositories, en entry) error {
	return e.apply(ctx, r, models.TxDebit, en)
}

// move debits from and credits to with the same amount, source and note.
func (e *engine) move(ctx context.Context, r repomanager.Repositories, from, to entry) error {
	if err := e.debit(ctx, r, from); err != nil {
		return err
	}
	return e.credit(ctx, r, to)
}

func (e *engine) escrowFunds(ctx context.Context, r repomanager.Repositories, contractID, clientID string, amount int64) error {
	from := entry{owner: clientID, target: models.TargetAvailable, amount: amount, source: models.SourceCommission, contractID: contractID}
	to := from
	to.target = models.TargetEscrowed
	return e.move(ctx, r, from, to)
}

func (e *engine) releaseEscrow(ctx context.Context, r repomanager.Repositories, contractID, holderID, toUserID string, amount int64, source models.TransactionSource) error {
	from := entry{owner: holderID, target: models.TargetEscrowed, amount: amount, source: source, contractID: contractID}
	to := entry{owner: toUserID, target: models.TargetAvailable, amount: amount, source: source, contractID: contractID}
	return e.move(ctx, r, from, to)
}

func (e *engine) transfer(ctx context.Context, r repomanager.Repositories, fromID, toID string, amount int64, source models.TransactionSource, note, contractID string) error {
	from := entry{owner: fromID, target: models.TargetAvailable, amount: amount, source: source, note: note, contractID: contractID}
	to := from
	to.owner = toID
	return e.move(ctx, r, from, to)
}

// settlePayment credits the external part of p to payerID and moves amount
// from the payer to payeeID. The external reference is kept as the note.
func (e *engine) settlePayment(ctx context.Context, r repomanager.Repositories, contractID, payerID, payeeID string, amount int64, p models.Payment) error {
	if p.ExternalCents > 0 {
		err := e.credit(ctx, r, entry{
			owner: payerID, target: models.TargetAvailable, amount: p.ExternalCents,
			source: models.SourcePayment, note: p.ExternalRef, contractID: contractID,
		})
		if err != nil {
			return err
		}
	}
	return e.transfer(ctx, r, payerID, payeeID, amount, models.SourcePayment, "", contractID)
}

func checkPayment(p models.Payment, want int64) error {
	if p.WalletCents < 0 || p.ExternalCents < 0 {
		return fmt.Errorf("negative payment part: %w", common.ErrorValidation)
	}
	if p.Total() != want {
		return fmt.Errorf("payment %d does not match amount %d: %w", p.Total(), want, common.ErrPaymentMismatch)
	}
	return nil
}

// LedgerService exposes the wallet primitives. It never reads contracts.
type LedgerService struct {
	*engine
}

// Credit adds amount to the target balance of userID.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64, target models.BalanceTarget, source models.TransactionSource, note string) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return s.credit(ctx, r, entry{owner: userID, target: target, amount: amount, source: source, note: note})
	})
}

// Debit removes amount from the target balance of userID. It fails with
// common.ErrInsufficientFunds when the balance would go negative.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64, target models.BalanceTarget, source models.TransactionSource, note string) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return s.debit(ctx, r, entry{owner: userID, target: target, amount: amount, source: source, note: note})
	})
}

// TransferBetweenUsers moves available funds between two wallets on behalf
// of an admin.
func (s *LedgerService) TransferBetweenUsers(ctx context.Context, fromID, toID string, amount int64, actingAdminID, reason string) error {
	if fromID == toID {
		return fmt.Errorf("transfer to the same wallet: %w", common.ErrorValidation)
	}
	if err := s.requireAdmin(ctx, actingAdminID); err != nil {
		return err
	}
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return s.transfer(ctx, r, fromID, toID, amount, models.SourceManual, reason, "")
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "manual transfer", "from", fromID, "to", toID, "amount_cents", amount, "admin", actingAdminID)
	return nil
}

// EscrowFunds locks amount of the client's available balance.
func (s *LedgerService) EscrowFunds(ctx context.Context, contractID, clientID string, amount int64) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return s.escrowFunds(ctx, r, contractID, clientID, amount)
	})
}

// ReleaseEscrow pays amount out of the holder's escrow into toUserID.
func (s *LedgerService) ReleaseEscrow(ctx context.Context, contractID, holderID, toUserID string, amount int64, source models.TransactionSource) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return s.releaseEscrow(ctx, r, contractID, holderID, toUserID, amount, source)
	})
}

// Deposit credits a wallet manually. Admin only.
func (s *LedgerService) Deposit(ctx context.Context, adminID, userID string, amount int64, note string) (*models.Wallet, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return s.credit(ctx, r, entry{owner: userID, target: models.TargetAvailable, amount: amount, source: models.SourceManual, note: note})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "manual deposit", "user", userID, "amount_cents", amount, "admin", adminID)
	return s.GetWallet(ctx, userID)
}

// GetWallet returns the wallet of userID, or an empty one when nothing was
// ever credited.
func (s *LedgerService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	w, err := s.repos.Repos().Wallets().Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return &models.Wallet{OwnerID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListTransactions returns the newest transactions of userID first. A zero
// limit returns all of them.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error) {
	if limit < 0 {
		return nil, fmt.Errorf("negative limit: %w", common.ErrorValidation)
	}
	return s.repos.Repos().Wallets().ListTransactions(ctx, userID, limit)
}
