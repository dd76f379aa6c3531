package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/askroom/internal/backend/httpbackend"
	"github.com/vovakirdan/askroom/internal/config"
	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/events"
	applog "github.com/vovakirdan/askroom/internal/log"
	transporthttp "github.com/vovakirdan/askroom/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	bus             *events.Bus
	sink            *events.Sink
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.Backend.URL == "" {
		return nil, errors.New("backend url is required")
	}

	backend := httpbackend.New(cfg.Backend.URL, cfg.Backend.RequestTimeout, applog.Component(logger, "backend"))
	bus := events.NewBus(cfg.EventBuffer, logger)
	sink := events.NewSink(bus.Publisher(), events.Topic, cfg.EventBuffer, applog.Component(logger, "events"))

	opts := core.DefaultOptions()
	opts.PollInterval = cfg.PollInterval
	opts.AnswerTimeout = cfg.AnswerTimeout
	if cfg.EventBuffer > 0 {
		opts.EventBuffer = cfg.EventBuffer
	}
	hub := core.NewHub(backend, logger, opts, sink)

	server := transporthttp.NewServer(hub, bus, cfg, applog.Component(logger, "http"))

	logger.Info().
		Str("backend", cfg.Backend.URL).
		Dur("poll_interval", opts.PollInterval).
		Dur("answer_timeout", opts.AnswerTimeout).
		Msg("hub configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		bus:             bus,
		sink:            sink,
		log:             logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the hub and the HTTP server and blocks until context cancellation or fatal error.
// The server is drained before the hub stops so in-flight requests still reach it.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	stopHub()
	<-hubDone
	a.cleanup()
	return err
}

// cleanup closes the event bus, which releases a publish waiting on acks, then the sink.
func (a *App) cleanup() {
	if err := a.bus.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close event bus")
	} else {
		a.log.Info().Msg("event bus closed")
	}
	a.sink.Close()
}
