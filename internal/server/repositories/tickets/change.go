package tickets

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

const changeColumns = `id, contract_id, submitted_by, submitted_by_id, status, proposed_change, new_deadline_at,
	fee_cents, paid_fee_cents, created_at, updated_at, expires_at, responded_at`

func scanChange(s scanner) (*models.ChangeTicket, error) {
	var (
		t           models.ChangeTicket
		newDeadline sql.NullTime
		responded   sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.ContractID, &t.SubmittedBy, &t.SubmittedByID, &t.Status, &t.ProposedChange, &newDeadline,
		&t.FeeCents, &t.PaidFeeCents, &t.CreatedAt, &t.UpdatedAt, &t.ExpiresAt, &responded); err != nil {
		return nil, err
	}
	t.NewDeadlineAt = dbx.TimePtr(newDeadline)
	t.RespondedAt = dbx.TimePtr(responded)
	return &t, nil
}

func (r *PostgresRepository) CreateChange(ctx context.Context, t *models.ChangeTicket) error {
	query := `INSERT INTO change_tickets (` + changeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	return r.insert(ctx, query, t.ID, t.ContractID, t.SubmittedBy, t.SubmittedByID, t.Status, t.ProposedChange,
		dbx.NullTime(t.NewDeadlineAt), t.FeeCents, t.PaidFeeCents, t.CreatedAt, t.UpdatedAt, t.ExpiresAt,
		dbx.NullTime(t.RespondedAt))
}

func (r *PostgresRepository) GetChange(ctx context.Context, id string) (*models.ChangeTicket, error) {
	return getOne(ctx, r.db, `SELECT `+changeColumns+` FROM change_tickets WHERE id = $1`, id, scanChange)
}

func (r *PostgresRepository) UpdateChange(ctx context.Context, t *models.ChangeTicket, from models.TicketStatus) error {
	query := `UPDATE change_tickets SET status = $3, fee_cents = $4, paid_fee_cents = $5, updated_at = $6, responded_at = $7
		WHERE id = $1 AND status = $2`
	return r.gatedUpdate(ctx, query, t.ID, from, t.Status, t.FeeCents, t.PaidFeeCents, t.UpdatedAt, dbx.NullTime(t.RespondedAt))
}

func (r *PostgresRepository) ListChange(ctx context.Context, contractID string) ([]*models.ChangeTicket, error) {
	query := `SELECT ` + changeColumns + ` FROM change_tickets WHERE contract_id = $1 ORDER BY created_at, id`
	return list(ctx, r.db, query, contractID, scanChange)
}
