package config

import (
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SEED_SOURCE", "SEED_DB_PATH", "APP_DATA_PATH", "LEXICON_BACKEND", "LEXICON_PATH",
		"LEXICON_TIMEOUT", "LEXICON_MODEL", "COMPLETIONS_API_URL", "COMPLETIONS_API_KEY",
		"NATS_URL", "EVENT_SUBJECT_PREFIX", "SESSION_IDLE_TTL", "SESSION_SWEEP_INTERVAL", "HTTP_PORT",
		"LOG_LEVEL", "COMPONENT_LOG_LEVELS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	conf, err := LoadConfig(false)
	require.NoError(t, err)

	assert.Equal(t, SeedSourceBuiltin, conf.SeedSource)
	assert.Equal(t, LexiconBackendKeyword, conf.LexiconBackend)
	assert.Equal(t, 2*time.Second, conf.LexiconTimeout)
	assert.Equal(t, 7*24*time.Hour, conf.SessionIdleTTL)
	assert.Equal(t, time.Hour, conf.SessionSweep)
	assert.Equal(t, "44998", conf.HTTPPort)
	assert.Equal(t, log.InfoLevel, conf.LogLevel)
	assert.Equal(t, "output/seeds.db", conf.SeedDBPath)
	assert.Equal(t, "persona.session", conf.EventSubjectPrefix)
	assert.Empty(t, conf.ComponentLogLevels)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEED_SOURCE", "sqlite")
	t.Setenv("SEED_DB_PATH", "/tmp/s.db")
	t.Setenv("LEXICON_TIMEOUT", "150ms")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("COMPONENT_LOG_LEVELS", "session=debug, lexicon=warn,junk")
	t.Setenv("SESSION_SWEEP_INTERVAL", "5m")
	t.Setenv("HTTP_PORT", "8088")

	conf, err := LoadConfig(false)
	require.NoError(t, err)

	assert.Equal(t, SeedSourceSQLite, conf.SeedSource)
	assert.Equal(t, "/tmp/s.db", conf.SeedDBPath)
	assert.Equal(t, 150*time.Millisecond, conf.LexiconTimeout)
	assert.Equal(t, log.DebugLevel, conf.LogLevel)
	assert.Equal(t, map[string]string{"session": "debug", "lexicon": "warn"}, conf.ComponentLogLevels)
	assert.Equal(t, 5*time.Minute, conf.SessionSweep)
	assert.Equal(t, "8088", conf.HTTPPort)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad timeout", map[string]string{"LEXICON_TIMEOUT": "soon"}},
		{"negative ttl", map[string]string{"SESSION_IDLE_TTL": "-1h"}},
		{"zero sweep interval", map[string]string{"SESSION_SWEEP_INTERVAL": "0s"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"unknown seed source", map[string]string{"SEED_SOURCE": "redis"}},
		{"unknown lexicon backend", map[string]string{"LEXICON_BACKEND": "magic"}},
		{"llm without key", map[string]string{"LEXICON_BACKEND": "llm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(false)
			assert.Error(t, err)
		})
	}
}
