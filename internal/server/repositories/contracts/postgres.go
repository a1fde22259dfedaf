package contracts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

const contractColumns = `id, proposal_id, artist_id, client_id, proposal, flow, status, status_before_dispute,
	total_cents, owed_artist_cents, owed_client_cents, escrowed_cents, artist_claimed_cents, client_claimed_cents,
	current_milestone_index, deadline_at, version, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContract(s scanner) (*models.Contract, error) {
	var (
		c        models.Contract
		proposal []byte
	)
	err := s.Scan(&c.ID, &c.ProposalID, &c.ArtistID, &c.ClientID, &proposal, &c.Flow, &c.Status, &c.StatusBeforeDispute,
		&c.Finance.TotalCents, &c.Finance.OwedArtistCents, &c.Finance.OwedClientCents, &c.Finance.EscrowedCents,
		&c.Finance.ArtistClaimedCents, &c.Finance.ClientClaimedCents,
		&c.CurrentMilestoneIndex, &c.DeadlineAt, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(proposal, &c.Proposal); err != nil {
		return nil, fmt.Errorf("decode proposal snapshot: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Contract) error {
	query := `INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17, $18)`

	proposal, err := json.Marshal(c.Proposal)
	if err != nil {
		return fmt.Errorf("encode proposal snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.ProposalID, c.ArtistID, c.ClientID, string(proposal), c.Flow, c.Status, c.StatusBeforeDispute,
		c.Finance.TotalCents, c.Finance.OwedArtistCents, c.Finance.OwedClientCents, c.Finance.EscrowedCents,
		c.Finance.ArtistClaimedCents, c.Finance.ClientClaimedCents,
		c.CurrentMilestoneIndex, c.DeadlineAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("proposal %s already finalized: %w", c.ProposalID, common.ErrDuplicateAction)
		}
		return fmt.Errorf("db error: %w", err)
	}
	c.Version = 1
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`

	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Contract) error {
	query := `UPDATE contracts SET
		status = $3, status_before_dispute = $4,
		owed_artist_cents = $5, owed_client_cents = $6, escrowed_cents = $7,
		artist_claimed_cents = $8, client_claimed_cents = $9,
		current_milestone_index = $10, deadline_at = $11, updated_at = $12,
		version = version + 1
		WHERE id = $1 AND version = $2`

	res, err := r.db.ExecContext(ctx, query, c.ID, c.Version,
		c.Status, c.StatusBeforeDispute,
		c.Finance.OwedArtistCents, c.Finance.OwedClientCents, c.Finance.EscrowedCents,
		c.Finance.ArtistClaimedCents, c.Finance.ClientClaimedCents,
		c.CurrentMilestoneIndex, c.DeadlineAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		c.Version++
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) ListByParty(ctx context.Context, userID string, statuses []models.ContractStatus) ([]*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE (artist_id = $1 OR client_id = $1)
		AND ($2 = '' OR status = ANY(string_to_array($2, ',')))
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID, joinStatuses(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to select contracts: %w", err)
	}
	defer rows.Close()

	var result []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListIDsByStatus(ctx context.Context, statuses []models.ContractStatus) ([]string, error) {
	query := `SELECT id FROM contracts WHERE status = ANY(string_to_array($1, ',')) ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, joinStatuses(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to select contracts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func joinStatuses(statuses []models.ContractStatus) string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ",")
}
