package tickets

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

const resolutionColumns = `id, contract_id, submitted_by, submitted_by_id, counterparty_id, target_type, target_id,
	description, proof_images, counter_description, counter_proof_images, counter_expires_at, countered_at,
	status, decision, resolution_note, resolved_by, resolved_at, escalated, created_at, updated_at`

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	return string(b), nil
}

func scanResolution(s scanner) (*models.ResolutionTicket, error) {
	var (
		t                   models.ResolutionTicket
		proof, counterProof []byte
		counteredAt         sql.NullTime
		resolvedAt          sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.ContractID, &t.SubmittedBy, &t.SubmittedByID, &t.CounterpartyID, &t.TargetType, &t.TargetID,
		&t.Description, &proof, &t.CounterDescription, &counterProof, &t.CounterExpiresAt, &counteredAt,
		&t.Status, &t.Decision, &t.ResolutionNote, &t.ResolvedBy, &resolvedAt, &t.Escalated, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(proof, &t.ProofImages); err != nil {
		return nil, fmt.Errorf("decode proof images: %w", err)
	}
	if err := json.Unmarshal(counterProof, &t.CounterProofImages); err != nil {
		return nil, fmt.Errorf("decode counter proof images: %w", err)
	}
	t.CounteredAt = dbx.TimePtr(counteredAt)
	t.ResolvedAt = dbx.TimePtr(resolvedAt)
	return &t, nil
}

func (r *PostgresRepository) CreateResolution(ctx context.Context, t *models.ResolutionTicket) error {
	proof, err := encodeImages(t.ProofImages)
	if err != nil {
		return err
	}
	counterProof, err := encodeImages(t.CounterProofImages)
	if err != nil {
		return err
	}

	query := `INSERT INTO resolution_tickets (` + resolutionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	return r.insert(ctx, query, t.ID, t.ContractID, t.SubmittedBy, t.SubmittedByID, t.CounterpartyID, t.TargetType, t.TargetID,
		t.Description, proof, t.CounterDescription, counterProof, t.CounterExpiresAt, dbx.NullTime(t.CounteredAt),
		t.Status, t.Decision, t.ResolutionNote, t.ResolvedBy, dbx.NullTime(t.ResolvedAt), t.Escalated, t.CreatedAt, t.UpdatedAt)
}

func (r *PostgresRepository) GetResolution(ctx context.Context, id string) (*models.ResolutionTicket, error) {
	return getOne(ctx, r.db, `SELECT `+resolutionColumns+` FROM resolution_tickets WHERE id = $1`, id, scanResolution)
}

func (r *PostgresRepository) UpdateResolution(ctx context.Context, t *models.ResolutionTicket, from models.ResolutionStatus) error {
	counterProof, err := encodeImages(t.CounterProofImages)
	if err != nil {
		return err
	}

	query := `UPDATE resolution_tickets SET status = $3, counter_description = $4, counter_proof_images = $5,
		countered_at = $6, decision = $7, resolution_note = $8, resolved_by = $9, resolved_at = $10,
		escalated = $11, updated_at = $12
		WHERE id = $1 AND status = $2`
	return r.gatedUpdate(ctx, query, t.ID, from, t.Status, t.CounterDescription, counterProof,
		dbx.NullTime(t.CounteredAt), t.Decision, t.ResolutionNote, t.ResolvedBy, dbx.NullTime(t.ResolvedAt),
		t.Escalated, t.UpdatedAt)
}

func (r *PostgresRepository) ListResolution(ctx context.Context, contractID string) ([]*models.ResolutionTicket, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolution_tickets WHERE contract_id = $1 ORDER BY created_at, id`
	return list(ctx, r.db, query, contractID, scanResolution)
}
