package uploads

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

var columns = []string{"id", "contract_id", "kind", "images", "description", "created_by", "created_at", "status",
	"expires_at", "milestone_index", "is_final", "work_progress", "revision_ticket_id", "reviewed_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_MilestoneUpload(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	idx := 1
	exp := now.Add(72 * time.Hour)

	mock.ExpectExec(`(?s)^INSERT INTO uploads \(id, contract_id, kind,.*\$14\)$`).
		WithArgs("u1", "k1", "progressMilestone", `["https://cdn/x.png"]`, "sketch", "a1", now, "submitted",
			exp, int64(1), true, nil, "", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Upload{
		ID: "u1", ContractID: "k1", Kind: models.UploadProgressMilestone, Images: []string{"https://cdn/x.png"},
		Description: "sketch", CreatedBy: "a1", CreatedAt: now, Status: models.UploadSubmitted,
		ExpiresAt: &exp, MilestoneIndex: &idx, IsFinal: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_SecondSubmittedIsInvalidState(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO uploads`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.Upload{ID: "u2", Kind: models.UploadFinal})
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).
		AddRow("u1", "k1", "final", []byte(`["a","b"]`), "", "a1", now, "accepted", now, nil, false, 80, "", now)
	mock.ExpectQuery(`(?s)^SELECT id, contract_id,.* FROM uploads WHERE id = \$1$`).WithArgs("u1").WillReturnRows(rows)

	u, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.UploadFinal, u.Kind)
	assert.Equal(t, []string{"a", "b"}, u.Images)
	assert.Nil(t, u.MilestoneIndex)
	require.NotNil(t, u.WorkProgress)
	assert.Equal(t, 80, *u.WorkProgress)
	require.NotNil(t, u.ReviewedAt)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM uploads WHERE id`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateReview(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^UPDATE uploads SET status = \$2, reviewed_at = \$3\s+WHERE id = \$1 AND status = 'submitted'$`

	mock.ExpectExec(q).WithArgs("u1", "accepted", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u1", "accepted", now).WillReturnResult(sqlmock.NewResult(0, 0))

	u := &models.Upload{ID: "u1", Status: models.UploadAccepted, ReviewedAt: &now}
	require.NoError(t, repo.UpdateReview(context.Background(), u))
	assert.ErrorIs(t, repo.UpdateReview(context.Background(), u), common.ErrVersionConflict)
}

func TestFindSubmitted(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)WHERE contract_id = \$1 AND kind = \$2 AND status = 'submitted'`

	mock.ExpectQuery(q).WithArgs("k1", "revision").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("u3", "k1", "revision", []byte(`[]`), "", "a1", now, "submitted", now, nil, false, nil, "t1", nil))
	mock.ExpectQuery(q).WithArgs("k1", "final").WillReturnError(sql.ErrNoRows)

	u, err := repo.FindSubmitted(context.Background(), "k1", models.UploadRevision)
	require.NoError(t, err)
	assert.Equal(t, "t1", u.RevisionTicketID)

	_, err = repo.FindSubmitted(context.Background(), "k1", models.UploadFinal)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByContractAndMilestone(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)WHERE contract_id = \$1 AND \(\$2 = '' OR kind = \$2\)`).
		WithArgs("k1", "").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("u1", "k1", "progressStandard", []byte(`["p"]`), "wip", "a1", now, "", nil, nil, false, nil, "", nil))
	mock.ExpectQuery(`(?s)kind = 'progressMilestone' AND milestone_index = \$2`).
		WithArgs("k1", 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("u2", "k1", "progressMilestone", []byte(`[]`), "", "a1", now, "rejected", now, 0, false, nil, "", now))

	all, err := repo.ListByContract(context.Background(), "k1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].ExpiresAt)

	ms, err := repo.ListByMilestone(context.Background(), "k1", 0)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	require.NotNil(t, ms[0].MilestoneIndex)
	assert.Equal(t, 0, *ms[0].MilestoneIndex)
}
