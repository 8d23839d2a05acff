package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatYAML = `
port: "8082"
jwt_secret: ${CHAT_TEST_SECRET}
mongo:
  host: localhost
  port: 27017
  database: campus
  retry_count: 3
chat:
  room: community-chat
  history_limit: 20
  http_rate_window: 1m
report_events:
  driver: kafka
  brokers: ["k1:9092", "k2:9092"]
  topic: reports
`

func TestReadConfigExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_service.yaml"), []byte(chatYAML), 0o644))
	t.Setenv("CHAT_TEST_SECRET", "s3cret")

	cfg, err := ReadConfig[Chat]("chat_service", dir)
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "localhost", cfg.MongoSQL.Host)
	assert.True(t, cfg.MongoSQL.Enabled())
	assert.False(t, cfg.Postgres.Enabled())
	assert.Equal(t, 20, cfg.Room.HistoryLimit)
	assert.Equal(t, time.Minute, cfg.Room.HTTPRateWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Reports.Brokers)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig[Chat]("nope", t.TempDir())
	assert.Error(t, err)
}

func TestRoomConfigApplyDefaults(t *testing.T) {
	r := RoomConfig{HistoryLimit: 10}
	r.ApplyDefaults()

	assert.Equal(t, "community-chat", r.Name)
	assert.Equal(t, 10, r.HistoryLimit)
	assert.Equal(t, 500, r.MaxTextLength)
	assert.Equal(t, 100, r.HTTPRateMax)
	assert.Equal(t, 15*time.Minute, r.HTTPRateWindow)
	assert.Equal(t, "system", r.SystemUserID)
}
