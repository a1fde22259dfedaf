package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/commissions/internal/logging"
	"github.com/dmitrijs2005/commissions/internal/server/config"
	"github.com/dmitrijs2005/commissions/internal/server/locks"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/memory"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/commissions/internal/server/services"
	"github.com/dmitrijs2005/commissions/internal/server/storage"
	"github.com/redis/go-redis/v9"
)

// sweepLockTTL bounds how long a crashed sweeper can hold a contract.
const sweepLockTTL = 30 * time.Second

// seams for tests
var (
	openDatabase = repomanager.Open
	newS3Store   = func(ctx context.Context, cfg storage.S3Config) (services.FileStore, error) {
		return storage.NewS3Store(ctx, cfg)
	}
)

// Backend is the storage side of the process: repositories, object storage,
// the sweep locker and the admin checker, built from one Config.
type Backend struct {
	Repos  repomanager.RepositoryManager
	Files  services.FileStore
	Locker locks.Locker
	Admins services.AdminChecker

	migrate func(ctx context.Context) error
	closers []func() error
}

// OpenBackend connects to whatever cfg configures. An empty DatabaseDSN
// selects the in-memory repositories, an empty S3Bucket the in-memory object
// store and an empty RedisAddr disables sweep locking.
func OpenBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Backend, error) {
	b := &Backend{Locker: locks.Noop{}}

	if cfg.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, using in-memory repositories")
		b.Repos = memory.NewManager()
	} else {
		db, err := openDatabase(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		pm := repomanager.NewPostgresRepositoryManager(db)
		b.Repos = pm
		b.migrate = pm.RunMigrations
		b.closers = append(b.closers, db.Close)
	}

	if cfg.S3Bucket == "" {
		b.Files = storage.NewMemoryStore()
	} else {
		files, err := newS3Store(ctx, storage.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("object storage init error: %w", err)
		}
		b.Files = files
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable, sweeps will run unlocked until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		b.Locker = locks.NewRedisLocker(rdb, "commissions:sweep:", sweepLockTTL)
		b.closers = append(b.closers, rdb.Close)
	}

	b.Admins = services.NewAdminChecker(b.Repos, cfg.AdminUserIDs)
	return b, nil
}

// Migrate applies the embedded schema migrations. It is a no-op for the
// in-memory repositories.
func (b *Backend) Migrate(ctx context.Context) error {
	if b.migrate == nil {
		return nil
	}
	return b.migrate(ctx)
}

// Services wires the engine on top of the backend.
func (b *Backend) Services(cfg *config.Config, logger logging.Logger) (*services.Services, error) {
	opts, err := services.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return services.New(services.Deps{
		Repos:   b.Repos,
		Files:   b.Files,
		Admins:  b.Admins,
		Locker:  b.Locker,
		Logger:  logger.With("module", "engine"),
		Options: opts,
	}), nil
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
