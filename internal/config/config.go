package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"` // console or json

	// Hub
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	AnswerTimeout time.Duration `mapstructure:"answer_timeout" yaml:"answer_timeout"`
	EventBuffer   int           `mapstructure:"event_buffer" yaml:"event_buffer"`

	// Transport
	SubmitRateLimit int   `mapstructure:"submit_rate_limit" yaml:"submit_rate_limit"` // questions per client per minute, 0 disables
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Answerd AnswerdConfig `mapstructure:"answerd" yaml:"answerd"`
}

// BackendConfig points the hub at the answering backend.
type BackendConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// AnswerdConfig configures the reference answering backend.
type AnswerdConfig struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	Queue         string        `mapstructure:"queue" yaml:"queue"` // memory, sqlite or redis
	SQLitePath    string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	WorkInterval  time.Duration `mapstructure:"work_interval" yaml:"work_interval"`
	Answerer      string        `mapstructure:"answerer" yaml:"answerer"` // echo or openai
	OpenAI        OpenAIConfig  `mapstructure:"openai" yaml:"openai"`
}

// OpenAIConfig configures the chat completion answerer.
type OpenAIConfig struct {
	APIKey       string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	Model        string `mapstructure:"model" yaml:"model"`
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt"`
	MaxTokens    int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// Queue kinds.
const (
	QueueMemory = "memory"
	QueueSQLite = "sqlite"
	QueueRedis  = "redis"
)

// Answerer kinds.
const (
	AnswererEcho   = "echo"
	AnswererOpenAI = "openai"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		PollInterval:      time.Second,
		AnswerTimeout:     0,
		EventBuffer:       32,
		SubmitRateLimit:   0,
		MaxMessageBytes:   1 << 20,
		Backend: BackendConfig{
			URL:            "http://127.0.0.1:8081",
			RequestTimeout: 10 * time.Second,
		},
		Answerd: AnswerdConfig{
			Addr:         ":8081",
			Queue:        QueueMemory,
			SQLitePath:   "answerd.db",
			RedisAddr:    "127.0.0.1:6379",
			WorkInterval: 3 * time.Second,
			Answerer:     AnswererEcho,
			OpenAI: OpenAIConfig{
				Model:     "gpt-4o-mini",
				MaxTokens: 500,
			},
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Used for command line overrides.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Backend.URL != "" {
		c.Backend.URL = other.Backend.URL
	}
	if other.Answerd.Addr != "" {
		c.Answerd.Addr = other.Answerd.Addr
	}
	if other.Answerd.Queue != "" {
		c.Answerd.Queue = other.Answerd.Queue
	}
}
