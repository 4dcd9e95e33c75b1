package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kinderwise.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 500, cfg.Ingest.MaxBatchSize)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: https://kinderwise.example
ingest:
  max_batch_size: 50
scraper:
  timeout: 10s
  sources:
    - name: nhs
      feed_url: https://www.nhs.uk/feeds/baby.xml
      hub: feeding
      type: explainer
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://kinderwise.example", cfg.Server.BaseURL)
	assert.Equal(t, ":3000", cfg.Server.Addr, "unset keys keep their defaults")
	assert.Equal(t, 50, cfg.Ingest.MaxBatchSize)
	assert.Equal(t, "10s", cfg.Scraper.Timeout)
	assert.Equal(t, 10.0, cfg.Scraper.TimeoutDuration().Seconds())

	src, ok := cfg.Source("nhs")
	require.True(t, ok)
	assert.Equal(t, "feeding", src.Hub)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ingestSecretEnv, "from-env")
	t.Setenv(databaseURLEnv, "postgres://localhost/kinderwise")
	t.Setenv(redisAddrEnv, "localhost:6380")

	cfg, err := Load(writeConfig(t, "ingest:\n  secret: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Ingest.Secret)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv(databaseURLEnv, "")
	t.Setenv(badgerPathEnv, "")

	cfg, err := Load("../../kinderwise.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, DefaultBadgerPath(), cfg.Storage.BadgerPath)
	assert.Len(t, cfg.Scraper.Sources, 2)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyBadgerPathFallsBackToDefault(t *testing.T) {
	t.Setenv(databaseURLEnv, "")
	t.Setenv(badgerPathEnv, "")

	cfg, err := Load(writeConfig(t, "storage:\n  backend: badger\n  badger_path: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBadgerPath(), cfg.Storage.BadgerPath)
}

func TestValidate_EmptyBadgerPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.BadgerPath = ""
	assert.ErrorContains(t, cfg.Validate(), "badger_path is required")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = BackendPostgres
	cfg.Ingest.MaxBatchSize = 0
	cfg.Scraper.Sources = []SourceConfig{{Name: "cdc", FeedURL: "ftp://cdc.gov/feed"}}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "database_url is required")
	assert.Contains(t, msg, "max_batch_size must be positive")
	assert.Contains(t, msg, "feed_url must be an http(s) url")
	assert.Contains(t, msg, "hub and type are required")
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), `unknown backend "sqlite"`)
}

func TestDurations_FallBack(t *testing.T) {
	assert.Equal(t, 30.0, ScraperConfig{Timeout: "soon"}.TimeoutDuration().Seconds())
	assert.Equal(t, 5.0, StorageConfig{}.GCDuration().Minutes())
}

func TestChatConfig_LLMEnabled(t *testing.T) {
	c := Default().Chat
	assert.False(t, c.LLMEnabled())
	c.APIKey = "sk-test"
	assert.True(t, c.LLMEnabled())
}
