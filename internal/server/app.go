// Package server initializes and runs the story server: it wires the
// record store, blob store, broker, lifecycle service, and sweeper, and
// serves the HTTP/WebSocket endpoint until the process is signalled.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/logging"
	"github.com/syqdur/wedpxres-sub001/internal/server/blob"
	"github.com/syqdur/wedpxres-sub001/internal/server/broker"
	"github.com/syqdur/wedpxres-sub001/internal/server/config"
	"github.com/syqdur/wedpxres-sub001/internal/server/httpapi"
	"github.com/syqdur/wedpxres-sub001/internal/server/shared/db"
	"github.com/syqdur/wedpxres-sub001/internal/server/stories"
	"github.com/syqdur/wedpxres-sub001/internal/server/sweeper"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler *httpapi.Handler
	sweeper *sweeper.Sweeper
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	rm, err := newRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	b := broker.New(rm.Stories(), logger)
	service := stories.NewService(rm.Stories(), blob.NewS3Store(cfg), b, logger)
	sw := sweeper.New(rm.Stories(), service, logger, cfg.SweepInterval)

	return &App{
		config:  cfg,
		logger:  logger,
		handler: httpapi.NewHandler(service, b, cfg, logger),
		sweeper: sw,
	}, nil
}

// newRepositoryManager picks the storage backend. The "inmemory" DSN runs
// the server without a database, for local development.
func newRepositoryManager(dsn string) (db.RepositoryManager, error) {
	if dsn == "inmemory" {
		return db.NewInMemoryRepositoryManager(), nil
	}
	return db.NewPostgresRepositoryManager(dsn)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: httpapi.SetupRouter(app.handler),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()
}
