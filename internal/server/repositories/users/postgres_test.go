package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const upsertQuery = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*is_admin\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(id\)\s*DO\s+UPDATE\s+SET\s+username\s*=\s*EXCLUDED\.username\s*RETURNING\s+is_admin,\s*created_at\s*$`

func TestUpsert_KeepsAdminFlag(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(upsertQuery).
		WithArgs("u-1", "alice", false).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin", "created_at"}).AddRow(true, created))

	got, err := repo.Upsert(context.Background(), &models.User{ID: "u-1", UserName: "alice"})
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if !got.IsAdmin || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestUpsert_UsernameTaken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(upsertQuery).
		WithArgs("u-2", "alice", false).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Upsert(context.Background(), &models.User{ID: "u-2", UserName: "alice"})
	if !errors.Is(err, common.ErrDuplicateAction) {
		t.Fatalf("want ErrDuplicateAction, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*username,\s*is_admin,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	rows := sqlmock.NewRows([]string{"id", "username", "is_admin", "created_at"}).
		AddRow("u-1", "alice", false, time.Now())
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != "u-1" || got.UserName != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByUserName_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+username\s*=\s*\$1$`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserName(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users`).WithArgs("u-1").WillReturnError(errors.New("db err"))

	_, err := repo.Get(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSetAdmin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^UPDATE users SET is_admin = \$2 WHERE id = \$1$`
	mock.ExpectExec(q).WithArgs("u-1", true).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("ghost", true).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetAdmin(context.Background(), "u-1", true); err != nil {
		t.Fatalf("SetAdmin error: %v", err)
	}
	if err := repo.SetAdmin(context.Background(), "ghost", true); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
