// Package server wires the taskhub server together: configuration, logging,
// the database and its migrations, services, and the HTTP and gRPC health
// listeners, with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	gs "github.com/dmitrijs2005/taskhub/internal/server/grpc"
	"github.com/dmitrijs2005/taskhub/internal/server/httpapi"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskhub/internal/server/services"
	"github.com/dmitrijs2005/taskhub/internal/server/throttle"
	"golang.org/x/sync/errgroup"
)

// Runner is a long-lived listener stopped by cancelling its context.
type Runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	runners []Runner
}

// openDB is a seam for tests.
var openDB = repomanager.Open

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, _ := logging.ParseLevel(c.LogLevel)
	logger := logging.NewJSONLogger(os.Stdout, level)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if c.RunMigrations {
		if err := rm.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
		logger.Info(ctx, "migrations applied")
	}

	return newApp(c, logger, db, rm), nil
}

// newApp builds the services and listeners on top of an open database.
func newApp(c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) *App {
	// Validate has already vetted both rates.
	anonRate, _ := throttle.ParseRate(c.AnonThrottleRate)
	userRate, _ := throttle.ParseRate(c.UserThrottleRate)

	us := services.NewUserService(db, rm, c)
	ts := services.NewTaskService(db, rm)

	api := httpapi.NewAPI(logger, us, ts, httpapi.Options{
		AnonLimiter: throttle.NewLimiter(anonRate),
		UserLimiter: throttle.NewLimiter(userRate),
		HealthCheck: db.PingContext,
	})

	return &App{
		config: c,
		logger: logger,
		db:     db,
		runners: []Runner{
			httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, api.Routes()),
			gs.NewHealthServer(c.EndpointAddrGRPC, logger, db.PingContext),
		},
	}
}

// Run serves until ctx is cancelled, a signal arrives, or a listener fails.
// The database is closed once every listener has stopped.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range app.runners {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err.Error())
	}

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "closing database", "error", cerr.Error())
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
