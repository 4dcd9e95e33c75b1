package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "KINDERWISE_CONFIG"
	ingestSecretEnv = "INGEST_API_SECRET"
	databaseURLEnv  = "DATABASE_URL"
	redisAddrEnv    = "REDIS_ADDR"
	badgerPathEnv   = "BADGER_PATH"
	openAIKeyEnv    = "OPENAI_API_KEY"
	logLevelEnv     = "LOG_LEVEL"
	listenAddrEnv   = "LISTEN_ADDR"

	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Chat    ChatConfig    `yaml:"chat"`
	Scraper ScraperConfig `yaml:"scraper"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	BaseURL         string `yaml:"base_url"`
	SiteTitle       string `yaml:"site_title"`
	SiteDescription string `yaml:"site_description"`
	FeedLimit       int    `yaml:"feed_limit"`
}

// IngestConfig bounds the batch ingestion endpoint.
type IngestConfig struct {
	Secret       string `yaml:"secret"`
	MaxBatchSize int    `yaml:"max_batch_size"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
	BadgerPath  string `yaml:"badger_path"`
	GCInterval  string `yaml:"gc_interval"`
}

// GCDuration parses GCInterval, defaulting to five minutes.
func (s StorageConfig) GCDuration() time.Duration {
	d, err := time.ParseDuration(s.GCInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// RedisConfig enables the Redis audit queue when Addr is set.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ChatConfig describes the OpenAI-compatible fallback for the chat endpoint.
type ChatConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	SystemPrompt string `yaml:"system_prompt"`
}

// LLMEnabled reports whether the chat fallback can call a model.
func (c ChatConfig) LLMEnabled() bool {
	return c.APIKey != "" && c.Endpoint != "" && c.Model != ""
}

type ScraperConfig struct {
	Timeout   string         `yaml:"timeout"`
	UserAgent string         `yaml:"user_agent"`
	Sources   []SourceConfig `yaml:"sources"`
}

func (s ScraperConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SourceConfig is one health authority feed to scrape.
type SourceConfig struct {
	Name     string `yaml:"name"`
	FeedURL  string `yaml:"feed_url"`
	Hub      string `yaml:"hub"`
	Type     string `yaml:"type"`
	MaxItems int    `yaml:"max_items"`
}

func DefaultBadgerPath() string {
	return filepath.Join(xdg.DataHome, "kinderwise", "badger")
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			BaseURL:         "http://localhost:3000",
			SiteTitle:       "Kinderwise",
			SiteDescription: "Evidence-based answers for parents, reviewed and kept current.",
			FeedLimit:       500,
		},
		Ingest:  IngestConfig{MaxBatchSize: 500},
		Storage: StorageConfig{Backend: BackendBadger, BadgerPath: DefaultBadgerPath(), GCInterval: "5m"},
		Logging: LoggingConfig{Level: "info"},
		Chat: ChatConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You answer parenting and child health questions using only the articles provided. Recommend a clinician for anything urgent.",
		},
		Scraper: ScraperConfig{
			Timeout:   "30s",
			UserAgent: "kinderwise-scraper/1.0",
		},
	}
}

// Load layers the YAML file at path (or $KINDERWISE_CONFIG) over the
// defaults, then applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if cfg.Storage.Backend == BackendBadger && cfg.Storage.BadgerPath == "" {
		cfg.Storage.BadgerPath = DefaultBadgerPath()
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(ingestSecretEnv); v != "" {
		c.Ingest.Secret = v
	}
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Storage.DatabaseURL = v
		c.Storage.Backend = BackendPostgres
	}
	if v := os.Getenv(badgerPathEnv); v != "" {
		c.Storage.BadgerPath = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Chat.APIKey = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var result *multierror.Error

	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			result = multierror.Append(result, errors.New("storage: database_url is required for the postgres backend"))
		}
	case BackendBadger:
		if c.Storage.BadgerPath == "" {
			result = multierror.Append(result, errors.New("storage: badger_path is required for the badger backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage: unknown backend %q (valid: postgres, badger)", c.Storage.Backend))
	}

	if c.Ingest.MaxBatchSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("ingest: max_batch_size must be positive, got %d", c.Ingest.MaxBatchSize))
	}

	if _, err := url.ParseRequestURI(c.Server.BaseURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("server: invalid base_url: %w", err))
	}

	for i, s := range c.Scraper.Sources {
		if s.Name == "" {
			result = multierror.Append(result, fmt.Errorf("scraper source %d: name is required", i))
			continue
		}
		u, err := url.Parse(s.FeedURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			result = multierror.Append(result, fmt.Errorf("scraper source %q: feed_url must be an http(s) url", s.Name))
		}
		if s.Hub == "" || s.Type == "" {
			result = multierror.Append(result, fmt.Errorf("scraper source %q: hub and type are required", s.Name))
		}
	}

	return result.ErrorOrNil()
}

// Source finds a configured scraper source by name.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Scraper.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}
