package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/askroom/internal/app"
	"github.com/vovakirdan/askroom/internal/config"
	applog "github.com/vovakirdan/askroom/internal/log"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "askroom",
		Short:         "Question rooms backed by a polled answering service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newServeCmd(flags), newAnswerdCmd(flags))
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	overrides := config.Config{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the room hub with its HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting askroom server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.Backend.URL, "backend-url", "", "answering backend base URL")
	return cmd
}

func newAnswerdCmd(flags *rootFlags) *cobra.Command {
	overrides := config.Config{}

	cmd := &cobra.Command{
		Use:   "answerd",
		Short: "Run the reference answering backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, err := app.NewAnswerd(ctx, &cfg, logger)
			if err != nil {
				return fmt.Errorf("init answerd: %w", err)
			}

			logger.Info().Str("addr", cfg.Answerd.Addr).Str("queue", cfg.Answerd.Queue).Msg("starting answerd")
			if err := backend.Run(ctx); err != nil {
				return fmt.Errorf("answerd exited with error: %w", err)
			}
			logger.Info().Msg("answerd stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&overrides.Answerd.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.Answerd.Queue, "queue", "", "queue backend (memory, sqlite, redis)")
	return cmd
}

func loadConfig(flags *rootFlags, overrides config.Config) (config.Config, *zerolog.Logger, error) {
	bootstrap := applog.New(flags.logLevel, applog.FormatConsole)

	cfg, path, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	overrides.LogLevel = flags.logLevel
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("path", path).Msg("config loaded")
	return cfg, logger, nil
}
