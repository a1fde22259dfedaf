package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

const walletColumns = `owner_id, available_cents, escrowed_cents, updated_at`

const (
	creditAvailableQuery = `INSERT INTO wallets (owner_id, available_cents, escrowed_cents, updated_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (owner_id) DO UPDATE
		SET available_cents = wallets.available_cents + EXCLUDED.available_cents, updated_at = EXCLUDED.updated_at
		RETURNING ` + walletColumns

	creditEscrowedQuery = `INSERT INTO wallets (owner_id, available_cents, escrowed_cents, updated_at)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE
		SET escrowed_cents = wallets.escrowed_cents + EXCLUDED.escrowed_cents, updated_at = EXCLUDED.updated_at
		RETURNING ` + walletColumns

	debitAvailableQuery = `UPDATE wallets SET available_cents = available_cents - $2, updated_at = $3
		WHERE owner_id = $1 AND available_cents - $2 >= 0
		RETURNING ` + walletColumns

	debitEscrowedQuery = `UPDATE wallets SET escrowed_cents = escrowed_cents - $2, updated_at = $3
		WHERE owner_id = $1 AND escrowed_cents - $2 >= 0
		RETURNING ` + walletColumns
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanWallet(row *sql.Row) (*models.Wallet, error) {
	w := &models.Wallet{}
	if err := row.Scan(&w.OwnerID, &w.AvailableCents, &w.EscrowedCents, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns the wallet of ownerID or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1`

	w, err := scanWallet(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return w, nil
}

// Credit adds amount to the target balance, creating the wallet on first use.
func (r *PostgresRepository) Credit(ctx context.Context, ownerID string, target models.BalanceTarget, amount int64, at time.Time) (*models.Wallet, error) {
	query := creditAvailableQuery
	if target == models.TargetEscrowed {
		query = creditEscrowedQuery
	}

	w, err := scanWallet(r.db.QueryRowContext(ctx, query, ownerID, amount, at))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return w, nil
}

// Debit subtracts amount from the target balance. No row is touched when the
// balance would go negative or the wallet does not exist.
func (r *PostgresRepository) Debit(ctx context.Context, ownerID string, target models.BalanceTarget, amount int64, at time.Time) (*models.Wallet, error) {
	query := debitAvailableQuery
	if target == models.TargetEscrowed {
		query = debitEscrowedQuery
	}

	w, err := scanWallet(r.db.QueryRowContext(ctx, query, ownerID, amount, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return w, nil
}

// AppendTransaction writes one ledger record.
func (r *PostgresRepository) AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions
		(id, owner_id, type, amount_cents, target, source, note, contract_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var contractID sql.NullString
	if tx.ContractID != "" {
		contractID = sql.NullString{String: tx.ContractID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.OwnerID, tx.Type, tx.AmountCents, tx.Target, tx.Source, tx.Note, contractID, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListTransactions returns the newest transactions of ownerID first. A
// non-positive limit returns everything.
func (r *PostgresRepository) ListTransactions(ctx context.Context, ownerID string, limit int) ([]*models.WalletTransaction, error) {
	query := `SELECT id, owner_id, type, amount_cents, target, source, note, contract_id, created_at
		FROM wallet_transactions WHERE owner_id = $1
		ORDER BY created_at DESC, id
		LIMIT NULLIF($2, 0)`

	if limit < 0 {
		limit = 0
	}

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	var result []*models.WalletTransaction
	for rows.Next() {
		var (
			item       models.WalletTransaction
			contractID sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Type, &item.AmountCents, &item.Target,
			&item.Source, &item.Note, &contractID, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.ContractID = contractID.String
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
