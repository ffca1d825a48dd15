package server

import (
	"context"
	"os/signal"
	"syscall"

	"CryptoEdge/internal/services/learning"
	"CryptoEdge/internal/usecase"
	"CryptoEdge/pkg/config"
	xhttp "CryptoEdge/pkg/http"
	pkgkafka "CryptoEdge/pkg/kafka"
	applogger "CryptoEdge/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scheduler  *usecase.Scheduler
	memory     *learning.Memory
	consumer   *pkgkafka.Consumer
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. consumer may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scheduler *usecase.Scheduler,
	memory *learning.Memory,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		scheduler:  scheduler,
		memory:     memory,
		consumer:   consumer,
		httpServer: httpServer,
	}
}

// Run starts every component and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	go a.memory.Run(ctx, a.cfg.Learning.RebuildInterval)
	a.log.Info("learning memory started", applogger.Duration("rebuild_interval", a.cfg.Learning.RebuildInterval))

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.scheduler.Start(ctx)
	}()

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	<-done
	return a.shutdown()
}

// shutdown gracefully stops the transport and consumer. Storage, cache and
// producer are released by the injector's cleanup.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
