// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/commissions/internal/dbx"
	"github.com/dmitrijs2005/commissions/internal/server/migrations"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/users"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/wallets"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type postgresRepositories struct {
	db dbx.DBTX
}

func (r postgresRepositories) Wallets() wallets.Repository {
	return wallets.NewPostgresRepository(r.db)
}

func (r postgresRepositories) Contracts() contracts.Repository {
	return contracts.NewPostgresRepository(r.db)
}

func (r postgresRepositories) Uploads() uploads.Repository {
	return uploads.NewPostgresRepository(r.db)
}

func (r postgresRepositories) Tickets() tickets.Repository {
	return tickets.NewPostgresRepository(r.db)
}

func (r postgresRepositories) Users() users.Repository {
	return users.NewPostgresRepository(r.db)
}

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// Repos returns repositories bound to the pool.
func (m *PostgresRepositoryManager) Repos() Repositories {
	return postgresRepositories{db: m.db}
}

// WithTx binds every repository handed to fn to the same *sql.Tx.
func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, postgresRepositories{db: tx})
	})
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the manager's database.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

// Open opens a pgx-backed *sql.DB for dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
