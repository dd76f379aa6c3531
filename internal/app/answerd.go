package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/askroom/internal/answerd"
	"github.com/vovakirdan/askroom/internal/config"
	applog "github.com/vovakirdan/askroom/internal/log"
)

// Answerd wires the reference answering backend: queue, answerer, worker and HTTP server.
type Answerd struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	worker          *answerd.Worker
	queue           answerd.Queue
	log             *zerolog.Logger
}

// NewAnswerd constructs the backend with provided configuration.
func NewAnswerd(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Answerd, error) {
	queue, err := openQueue(ctx, cfg.Answerd)
	if err != nil {
		return nil, fmt.Errorf("init queue: %w", err)
	}
	logger.Info().Str("queue", cfg.Answerd.Queue).Msg("queue initialized")

	answerer, err := newAnswerer(cfg.Answerd)
	if err != nil {
		_ = queue.Close()
		return nil, err
	}
	logger.Info().Str("answerer", cfg.Answerd.Answerer).Msg("answerer initialized")

	worker := answerd.NewWorker(queue, answerer, cfg.Answerd.WorkInterval, logger)
	server := answerd.NewServer(worker, cfg.Answerd.Addr, cfg.ReadHeaderTimeout, applog.Component(logger, "answerd.http"))

	return &Answerd{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		worker:          worker,
		queue:           queue,
		log:             logger,
	}, nil
}

func openQueue(ctx context.Context, cfg config.AnswerdConfig) (answerd.Queue, error) {
	switch cfg.Queue {
	case config.QueueMemory, "":
		return answerd.NewMemoryQueue(), nil
	case config.QueueSQLite:
		return answerd.NewSQLiteQueue(cfg.SQLitePath)
	case config.QueueRedis:
		return answerd.DialRedisQueue(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown queue %q", cfg.Queue)
	}
}

func newAnswerer(cfg config.AnswerdConfig) (answerd.Answerer, error) {
	switch cfg.Answerer {
	case config.AnswererEcho, "":
		return answerd.EchoAnswerer{}, nil
	case config.AnswererOpenAI:
		if cfg.OpenAI.APIKey == "" && cfg.OpenAI.BaseURL == "" {
			return nil, errors.New("openai answerer needs answerd.openai.api_key or answerd.openai.base_url")
		}
		return answerd.NewOpenAIAnswerer(answerd.OpenAIOptions{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			SystemPrompt: cfg.OpenAI.SystemPrompt,
			MaxTokens:    cfg.OpenAI.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown answerer %q", cfg.Answerer)
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Answerd) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the worker and the HTTP server and blocks until context cancellation or fatal error.
func (a *Answerd) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.worker.Run(gctx)
	})
	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("answerd listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down answerd")
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if closeErr := a.queue.Close(); closeErr != nil {
		a.log.Warn().Err(closeErr).Msg("failed to close queue")
	}
	return err
}
