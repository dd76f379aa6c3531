package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "ASKROOM"
	envConfigDefaultPath = "ASKROOM_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
// A .env file in the working directory is loaded into the environment first.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) && logger != nil {
		logger.Warn().Err(err).Msg("failed to load .env")
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

// setDefaults registers every key so AutomaticEnv can override nested values.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("answer_timeout", cfg.AnswerTimeout)
	v.SetDefault("event_buffer", cfg.EventBuffer)
	v.SetDefault("submit_rate_limit", cfg.SubmitRateLimit)
	v.SetDefault("max_message_bytes", cfg.MaxMessageBytes)

	v.SetDefault("backend.url", cfg.Backend.URL)
	v.SetDefault("backend.request_timeout", cfg.Backend.RequestTimeout)

	v.SetDefault("answerd.addr", cfg.Answerd.Addr)
	v.SetDefault("answerd.queue", cfg.Answerd.Queue)
	v.SetDefault("answerd.sqlite_path", cfg.Answerd.SQLitePath)
	v.SetDefault("answerd.redis_addr", cfg.Answerd.RedisAddr)
	v.SetDefault("answerd.redis_password", cfg.Answerd.RedisPassword)
	v.SetDefault("answerd.redis_db", cfg.Answerd.RedisDB)
	v.SetDefault("answerd.work_interval", cfg.Answerd.WorkInterval)
	v.SetDefault("answerd.answerer", cfg.Answerd.Answerer)
	v.SetDefault("answerd.openai.api_key", cfg.Answerd.OpenAI.APIKey)
	v.SetDefault("answerd.openai.base_url", cfg.Answerd.OpenAI.BaseURL)
	v.SetDefault("answerd.openai.model", cfg.Answerd.OpenAI.Model)
	v.SetDefault("answerd.openai.system_prompt", cfg.Answerd.OpenAI.SystemPrompt)
	v.SetDefault("answerd.openai.max_tokens", cfg.Answerd.OpenAI.MaxTokens)
}

// Validate rejects values the services cannot run with.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.AnswerTimeout < 0 {
		return fmt.Errorf("answer_timeout must not be negative, got %s", c.AnswerTimeout)
	}
	switch c.Answerd.Queue {
	case QueueMemory, QueueSQLite, QueueRedis:
	default:
		return fmt.Errorf("answerd.queue: unknown queue %q", c.Answerd.Queue)
	}
	switch c.Answerd.Answerer {
	case AnswererEcho, AnswererOpenAI:
	default:
		return fmt.Errorf("answerd.answerer: unknown answerer %q", c.Answerd.Answerer)
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
