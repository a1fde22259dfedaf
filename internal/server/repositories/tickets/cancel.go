package tickets

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

const cancelColumns = `id, contract_id, submitted_by, submitted_by_id, status, reason,
	created_at, updated_at, expires_at, responded_at`

func scanCancel(s scanner) (*models.CancelTicket, error) {
	var (
		t         models.CancelTicket
		responded sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.ContractID, &t.SubmittedBy, &t.SubmittedByID, &t.Status, &t.Reason,
		&t.CreatedAt, &t.UpdatedAt, &t.ExpiresAt, &responded); err != nil {
		return nil, err
	}
	t.RespondedAt = dbx.TimePtr(responded)
	return &t, nil
}

func (r *PostgresRepository) CreateCancel(ctx context.Context, t *models.CancelTicket) error {
	query := `INSERT INTO cancel_tickets (` + cancelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	return r.insert(ctx, query, t.ID, t.ContractID, t.SubmittedBy, t.SubmittedByID, t.Status, t.Reason,
		t.CreatedAt, t.UpdatedAt, t.ExpiresAt, dbx.NullTime(t.RespondedAt))
}

func (r *PostgresRepository) GetCancel(ctx context.Context, id string) (*models.CancelTicket, error) {
	return getOne(ctx, r.db, `SELECT `+cancelColumns+` FROM cancel_tickets WHERE id = $1`, id, scanCancel)
}

func (r *PostgresRepository) UpdateCancel(ctx context.Context, t *models.CancelTicket, from models.TicketStatus) error {
	query := `UPDATE cancel_tickets SET status = $3, updated_at = $4, responded_at = $5
		WHERE id = $1 AND status = $2`
	return r.gatedUpdate(ctx, query, t.ID, from, t.Status, t.UpdatedAt, dbx.NullTime(t.RespondedAt))
}

func (r *PostgresRepository) ListCancel(ctx context.Context, contractID string) ([]*models.CancelTicket, error) {
	query := `SELECT ` + cancelColumns + ` FROM cancel_tickets WHERE contract_id = $1 ORDER BY created_at, id`
	return list(ctx, r.db, query, contractID, scanCancel)
}
