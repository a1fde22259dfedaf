package tickets

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

const revisionColumns = `id, contract_id, submitted_by, submitted_by_id, status, target_upload_id, description,
	fee_cents, fee_paid, created_at, updated_at, expires_at, responded_at`

func scanRevision(s scanner) (*models.RevisionTicket, error) {
	var (
		t         models.RevisionTicket
		responded sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.ContractID, &t.SubmittedBy, &t.SubmittedByID, &t.Status, &t.TargetUploadID, &t.Description,
		&t.FeeCents, &t.FeePaid, &t.CreatedAt, &t.UpdatedAt, &t.ExpiresAt, &responded); err != nil {
		return nil, err
	}
	t.RespondedAt = dbx.TimePtr(responded)
	return &t, nil
}

func (r *PostgresRepository) CreateRevision(ctx context.Context, t *models.RevisionTicket) error {
	query := `INSERT INTO revision_tickets (` + revisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	return r.insert(ctx, query, t.ID, t.ContractID, t.SubmittedBy, t.SubmittedByID, t.Status, t.TargetUploadID,
		t.Description, t.FeeCents, t.FeePaid, t.CreatedAt, t.UpdatedAt, t.ExpiresAt, dbx.NullTime(t.RespondedAt))
}

func (r *PostgresRepository) GetRevision(ctx context.Context, id string) (*models.RevisionTicket, error) {
	return getOne(ctx, r.db, `SELECT `+revisionColumns+` FROM revision_tickets WHERE id = $1`, id, scanRevision)
}

func (r *PostgresRepository) UpdateRevision(ctx context.Context, t *models.RevisionTicket, from models.TicketStatus) error {
	query := `UPDATE revision_tickets SET status = $3, fee_cents = $4, fee_paid = $5, updated_at = $6, responded_at = $7
		WHERE id = $1 AND status = $2`
	return r.gatedUpdate(ctx, query, t.ID, from, t.Status, t.FeeCents, t.FeePaid, t.UpdatedAt, dbx.NullTime(t.RespondedAt))
}

func (r *PostgresRepository) ListRevision(ctx context.Context, contractID string) ([]*models.RevisionTicket, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision_tickets WHERE contract_id = $1 ORDER BY created_at, id`
	return list(ctx, r.db, query, contractID, scanRevision)
}
