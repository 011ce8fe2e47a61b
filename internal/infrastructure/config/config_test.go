package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  name: placefeeds
  fetch_timeout: 5
  processing_interval: 900
http:
  host: 127.0.0.1
  port: 9090
logging:
  level: debug
  format: json
db:
  host: db
  port: 5433
  username: feeds
  password: ${PLACEFEEDS_TEST_DB_PASSWORD}
  db_name: feeds
kafka:
  brokers: ["kafka:9093"]
  topics:
    items_updated: feed-items
`

func TestParse(t *testing.T) {
	t.Setenv("PLACEFEEDS_TEST_DB_PASSWORD", "s3cr:t")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "placefeeds", cfg.GetAppName())
	assert.Equal(t, 5*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, 15*time.Minute, cfg.GetAppProcessingInterval())
	assert.Equal(t, "127.0.0.1:9090", cfg.GetHTTPAddr())
	assert.Equal(t, "s3cr:t", cfg.DB.Password)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, "postgres://feeds:s3cr%3At@db:5433/feeds?sslmode=disable", cfg.DB.DSN())
	assert.Equal(t, "pgx5://feeds:s3cr%3At@db:5433/feeds?sslmode=disable", cfg.DB.MigrateURL())
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, int64(10<<20), cfg.App.MaxBodyBytes)
	assert.Equal(t, "placefeeds", cfg.App.UserAgent)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("db:\n  username: u\n  db_name: d\n"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, time.Hour, cfg.GetAppProcessingInterval())
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.KafkaEnabled())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "bad yaml", raw: "app: [\n"},
		{name: "missing db", raw: "app:\n  name: x\n"},
		{name: "bad log format", raw: "db:\n  username: u\n  db_name: d\nlogging:\n  format: xml\n"},
		{name: "brokers without topic", raw: "db:\n  username: u\n  db_name: d\nkafka:\n  brokers: [k:9092]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db:\n  username: u\n  db_name: d\n"), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "d", cfg.DB.DBName)
}
