package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/models"
)

const uploadColumns = `id, contract_id, kind, images, description, created_by, created_at, status,
	expires_at, milestone_index, is_final, work_progress, revision_ticket_id, reviewed_at`

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

func scanUpload(s scanner) (*models.Upload, error) {
	var (
		u              models.Upload
		images         []byte
		expiresAt      sql.NullTime
		milestoneIndex sql.NullInt64
		workProgress   sql.NullInt64
		reviewedAt     sql.NullTime
	)
	err := s.Scan(&u.ID, &u.ContractID, &u.Kind, &images, &u.Description, &u.CreatedBy, &u.CreatedAt, &u.Status,
		&expiresAt, &milestoneIndex, &u.IsFinal, &workProgress, &u.RevisionTicketID, &reviewedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(images, &u.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	u.ExpiresAt = dbx.TimePtr(expiresAt)
	u.MilestoneIndex = dbx.IntPtr(milestoneIndex)
	u.WorkProgress = dbx.IntPtr(workProgress)
	u.ReviewedAt = dbx.TimePtr(reviewedAt)
	return &u, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Upload, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploads: %w", err)
	}
	defer rows.Close()

	var result []*models.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.Upload) error {
	query := `INSERT INTO uploads (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	images := u.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		u.ID, u.ContractID, u.Kind, string(encoded), u.Description, u.CreatedBy, u.CreatedAt, u.Status,
		dbx.NullTime(u.ExpiresAt), dbx.NullInt(u.MilestoneIndex), u.IsFinal, dbx.NullInt(u.WorkProgress),
		u.RevisionTicketID, dbx.NullTime(u.ReviewedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("a %s upload is already awaiting review: %w", u.Kind, common.ErrInvalidState)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1`

	u, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UpdateReview(ctx context.Context, u *models.Upload) error {
	query := `UPDATE uploads SET status = $2, reviewed_at = $3
		WHERE id = $1 AND status = 'submitted'`

	res, err := r.db.ExecContext(ctx, query, u.ID, u.Status, dbx.NullTime(u.ReviewedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return common.ErrVersionConflict
	}
	return nil
}

func (r *PostgresRepository) FindSubmitted(ctx context.Context, contractID string, kind models.UploadKind) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads
		WHERE contract_id = $1 AND kind = $2 AND status = 'submitted'`

	u, err := scanUpload(r.db.QueryRowContext(ctx, query, contractID, kind))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ListByContract(ctx context.Context, contractID string, kind models.UploadKind) ([]*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads
		WHERE contract_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at, id`
	return r.query(ctx, query, contractID, kind)
}

func (r *PostgresRepository) ListByMilestone(ctx context.Context, contractID string, milestoneIndex int) ([]*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads
		WHERE contract_id = $1 AND kind = 'progressMilestone' AND milestone_index = $2
		ORDER BY created_at, id`
	return r.query(ctx, query, contractID, milestoneIndex)
}
