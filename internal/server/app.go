// Package server initializes and runs the media backend. It wires the
// repository manager, the presigner, the media service and the HTTP API,
// and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pairwave/mediaflow/internal/logging"
	"github.com/pairwave/mediaflow/internal/server/config"
	mh "github.com/pairwave/mediaflow/internal/server/http"
	"github.com/pairwave/mediaflow/internal/server/presign"
	"github.com/pairwave/mediaflow/internal/server/services"
	"github.com/pairwave/mediaflow/internal/server/shared/db"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	repoManager  db.RepositoryManager
	mediaService *services.MediaService
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var rm db.RepositoryManager
	if c.DatabaseDSN == "" {
		rm = db.NewInMemoryRepositoryManager()
	} else {
		var err error
		rm, err = db.NewPostgresRepositoryManager(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
	}

	ms := services.NewMediaService(rm.Media(), presign.NewS3Presigner(c), c, logger)

	return &App{config: c, logger: logger, repoManager: rm, mediaService: ms}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	handler := mh.NewHandler(app.mediaService, app.config, app.logger)
	srv := &http.Server{Addr: app.config.EndpointAddr, Handler: handler.Router()}

	go func() {
		app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server", "err", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown", "err", err)
	}

	app.mediaService.Close()

	if conn := app.repoManager.Conn(); conn != nil {
		if err := conn.Close(); err != nil {
			app.logger.Error(shutdownCtx, "db close", "err", err)
		}
	}
}
