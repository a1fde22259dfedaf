// Package server initializes and runs the commission engine server: it opens
// the configured storage backends, applies migrations and serves the gRPC API
// until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/commissions/internal/logging"
	"github.com/dmitrijs2005/commissions/internal/server/config"
	"github.com/dmitrijs2005/commissions/internal/server/services"

	gs "github.com/dmitrijs2005/commissions/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	backend  *Backend
	services *services.Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, os.Stdout)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	b, err := OpenBackend(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	if err := b.Migrate(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	svc, err := b.Services(c, logger)
	if err != nil {
		b.Close()
		return nil, err
	}

	return &App{config: c, logger: logger, backend: b, services: svc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.backend.Close(); err != nil {
		app.logger.Error(ctx, "closing backend", "error", err)
	}
}
