package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the FinSight server and worker.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Documents DocumentsConfig
	Analysis  AnalysisConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type QueueConfig struct {
	Concurrency  int
	ProbeTimeout time.Duration
	TaskTimeout  time.Duration
	StatusTTL    time.Duration
}

type DocumentsConfig struct {
	Dir string
}

type AnalysisConfig struct {
	Engine  string
	Timeout time.Duration
	OpenAI  OpenAIConfig
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

var validEngines = map[string]bool{
	"keyword": true,
	"openai":  true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FINSIGHT_PORT", 8080),
			Env:  envString("FINSIGHT_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			Concurrency:  envInt("QUEUE_CONCURRENCY", 4),
			ProbeTimeout: envDuration("QUEUE_PROBE_TIMEOUT", time.Second),
			TaskTimeout:  envDuration("QUEUE_TASK_TIMEOUT", 10*time.Minute),
			StatusTTL:    envDuration("QUEUE_STATUS_TTL", 30*time.Minute),
		},
		Documents: DocumentsConfig{
			Dir: envString("DOCUMENTS_DIR", "data"),
		},
		Analysis: AnalysisConfig{
			Engine:  envString("ANALYSIS_ENGINE", "keyword"),
			Timeout: envDurationSecs("ANALYSIS_TIMEOUT_SECS", 60*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Documents.Dir == "" {
		return fmt.Errorf("DOCUMENTS_DIR is required")
	}

	if !validEngines[c.Analysis.Engine] {
		return fmt.Errorf("ANALYSIS_ENGINE must be one of keyword, openai; got %q", c.Analysis.Engine)
	}
	if c.Analysis.Engine == "openai" && c.Analysis.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when ANALYSIS_ENGINE is openai")
	}

	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be positive, got %d", c.Queue.Concurrency)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
