// Package server wires the registries, the session server, the registration
// service and the metrics endpoint together and runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/turing/internal/logging"
	"github.com/dmitrijs2005/turing/internal/server/chataddr"
	"github.com/dmitrijs2005/turing/internal/server/config"
	"github.com/dmitrijs2005/turing/internal/server/documents"
	"github.com/dmitrijs2005/turing/internal/server/metrics"
	"github.com/dmitrijs2005/turing/internal/server/sections"
	"github.com/dmitrijs2005/turing/internal/server/session"
	"github.com/dmitrijs2005/turing/internal/server/store"
	"github.com/dmitrijs2005/turing/internal/server/tcp"
	"github.com/dmitrijs2005/turing/internal/server/users"

	gs "github.com/dmitrijs2005/turing/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	users    *users.Service
	services *session.Services
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	storage, err := newStorage(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	userService := users.NewService(store.WithConflictHook(m.ConflictHook(metrics.RegistryUsers)))
	services := &session.Services{
		Users:          userService,
		Documents:      documents.NewService(storage, store.WithConflictHook(m.ConflictHook(metrics.RegistryDocuments))),
		Addresses:      chataddr.NewAllocator(m.ChatAddressAllocated),
		Metrics:        m,
		MaxSectionSize: c.MaxSectionSize,
	}

	return &App{config: c, logger: logger, registry: registry, users: userService, services: services}, nil
}

func newStorage(ctx context.Context, c *config.Config) (sections.Store, error) {
	switch c.StorageBackend {
	case config.StorageFS:
		return sections.NewFSStore(c.StorageRoot)
	case config.StorageS3:
		return sections.NewS3Store(ctx, sections.S3Options{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Prefix:       c.StorageRoot,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newSession(conn net.Conn) tcp.ConnectionHandler {
	return session.NewHandler(conn, conn.RemoteAddr(), app.services, app.logger)
}

func (app *App) runMetrics(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrMetrics,
		Handler:           promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.EndpointAddrMetrics)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails. The others are then stopped as well.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	sessions := tcp.NewServer(tcp.Config{
		Address:         app.config.EndpointAddrTCP,
		MaxSessions:     app.config.MaxSessions,
		IdleTimeout:     app.config.SessionIdleTimeout,
		ShutdownTimeout: app.config.ShutdownTimeout,
	}, app.newSession, app.logger)
	g.Go(func() error {
		return sessions.Run(ctx)
	})

	registrar := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.users)
	g.Go(func() error {
		return registrar.Run(ctx)
	})

	if app.config.EndpointAddrMetrics != "" {
		g.Go(func() error {
			return app.runMetrics(ctx)
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "App stopped with error", "error", err)
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
