package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/commissions/internal/logging"
	"github.com/dmitrijs2005/commissions/internal/server/config"
	"github.com/dmitrijs2005/commissions/internal/server/locks"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/memory"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/commissions/internal/server/services"
	"github.com/dmitrijs2005/commissions/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = ""
	cfg.S3Bucket = ""
	return cfg
}

func stubBackendSeams(t *testing.T) {
	t.Helper()
	origDB, origS3 := openDatabase, newS3Store
	t.Cleanup(func() { openDatabase, newS3Store = origDB, origS3 })
}

func TestOpenBackend_InMemory(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.AdminUserIDs = []string{"root"}

	b, err := OpenBackend(ctx, cfg, logging.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &memory.Manager{}, b.Repos)
	assert.IsType(t, &storage.MemoryStore{}, b.Files)
	assert.Equal(t, locks.Noop{}, b.Locker)
	assert.NoError(t, b.Migrate(ctx))

	ok, err := b.Admins.IsAdmin(ctx, "root")
	require.NoError(t, err)
	assert.True(t, ok)

	svc, err := b.Services(cfg, logging.Nop())
	require.NoError(t, err)
	w, err := svc.Ledger.Deposit(ctx, "root", "u1", 500, "")
	require.NoError(t, err)
	assert.Equal(t, int64(500), w.AvailableCents)
}

func TestOpenBackend_Postgres(t *testing.T) {
	stubBackendSeams(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	var gotDSN string
	openDatabase = func(_ context.Context, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return db, nil
	}

	cfg := memoryConfig()
	cfg.DatabaseDSN = "postgres://db/commissions"
	b, err := OpenBackend(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)

	assert.Equal(t, "postgres://db/commissions", gotDSN)
	assert.IsType(t, &repomanager.PostgresRepositoryManager{}, b.Repos)
	require.NoError(t, b.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenBackend_Errors(t *testing.T) {
	stubBackendSeams(t)
	openDatabase = func(context.Context, string) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}

	cfg := memoryConfig()
	cfg.DatabaseDSN = "postgres://db/commissions"
	_, err := OpenBackend(context.Background(), cfg, logging.Nop())
	assert.ErrorContains(t, err, "db init error")

	newS3Store = func(context.Context, storage.S3Config) (services.FileStore, error) {
		return nil, errors.New("bad region")
	}
	cfg = memoryConfig()
	cfg.S3Bucket = "uploads"
	_, err = OpenBackend(context.Background(), cfg, logging.Nop())
	assert.ErrorContains(t, err, "object storage init error")
}

func TestBackend_ServicesRejectsBadConfig(t *testing.T) {
	cfg := memoryConfig()
	b, err := OpenBackend(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)

	cfg.LapsePolicy = "coinflip"
	_, err = b.Services(cfg, logging.Nop())
	assert.Error(t, err)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.GraceWindow = 0
	_, err := NewApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "config")
}
