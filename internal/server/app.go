// Package server wires the storage backends, the identity service and the
// gRPC and metrics endpoints, and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/idalloc"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gatekeeper/internal/server/grpc"
)

const (
	shutdownTimeout = 5 * time.Second
	// sessionSweepInterval bounds how long expired in-memory sessions linger.
	sessionSweepInterval = time.Minute
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	metrics  *metrics.Metrics
	identity *services.IdentityService
	avatars  *services.AvatarService
	db       *sql.DB
	rdb      *redis.Client
	// memSessions is set when sessions are kept in process memory.
	memSessions *sessions.MemoryStore
}

// openDB is replaced in tests.
var openDB = repomanager.Open

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	reg := prometheus.NewRegistry()
	app.metrics = metrics.New(reg, reg)

	repo, err := app.initAccounts(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	store, err := app.initSessions(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	opts := []idalloc.Option{idalloc.WithMachineID(c.MachineID)}
	if c.MachineID < 0 {
		opts = []idalloc.Option{idalloc.WithHostIdentity(idalloc.LocalHostIdentity)}
	}
	ids, err := idalloc.New(opts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("id allocator init error: %w", err)
	}
	logger.Info(ctx, "id allocator ready", "machine_id", ids.MachineID())

	app.identity = services.NewIdentityService(repo, store, ids, c, app.metrics)
	app.avatars = services.NewAvatarService(c)

	return app, nil
}

func (app *App) initAccounts(ctx context.Context) (accounts.Repository, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, accounts are kept in memory")
		return accounts.NewMemoryRepository(), nil
	}

	db, err := openDB(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return rm.Accounts(db), nil
}

func (app *App) initSessions(ctx context.Context) (sessions.Store, error) {
	if app.config.RedisAddr == "" {
		app.memSessions = sessions.NewMemoryStore(app.config.SessionTTL)
		return app.memSessions, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.rdb = rdb

	return sessions.NewRedisStore(rdb, app.config.SessionTTL), nil
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.db != nil {
		_ = app.db.Close()
	}
	if app.rdb != nil {
		_ = app.rdb.Close()
	}
}

// bootstrapAdmin makes sure the configured administrator exists.
func (app *App) bootstrapAdmin(ctx context.Context) error {
	if app.config.AdminHandle == "" {
		return nil
	}

	id, created, err := app.identity.EnsureAdmin(ctx, app.config.AdminHandle, app.config.AdminCredential)
	if err != nil {
		return fmt.Errorf("admin bootstrap error: %w", err)
	}
	if created {
		app.logger.Info(ctx, "admin account created", "handle", app.config.AdminHandle, "id", id)
	}
	return nil
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

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.identity, app.avatars, app.metrics,
		app.config.SecretKey, app.config.SessionTTL)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())

	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.bootstrapAdmin(ctx); err != nil {
		return err
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.memSessions != nil && app.config.SessionTTL > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.memSessions.RunSweeper(ctx, sessionSweepInterval)
		}()
	}

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.logger.Info(ctx, "Stopped")
	return nil
}
