package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	SeedSourceBuiltin = "builtin"
	SeedSourceSQLite  = "sqlite"

	LexiconBackendKeyword = "keyword"
	LexiconBackendLLM     = "llm"
)

type Config struct {
	SeedSource         string
	SeedDBPath         string
	LexiconBackend     string
	LexiconPath        string
	LexiconTimeout     time.Duration
	LexiconModel       string
	CompletionsAPIURL  string
	CompletionsAPIKey  string
	NatsURL            string
	EventSubjectPrefix string
	SessionIdleTTL     time.Duration
	SessionSweep       time.Duration
	HTTPPort           string
	LogLevel           log.Level
	ComponentLogLevels map[string]string
}

func getEnv(key, defaultValue string, printEnv bool) string {
	logger := log.Default()
	value := os.Getenv(key)
	if printEnv {
		if strings.HasSuffix(key, "_KEY") && value != "" {
			logger.Info("Env", "key", key, "value", "<redacted>")
		} else {
			logger.Info("Env", "key", key, "value", value)
		}
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration, printEnv bool) (time.Duration, error) {
	raw := getEnv(key, "", printEnv)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration in %s", key)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must not be negative, got %s", key, raw)
	}
	return d, nil
}

// parseComponentLevels reads "session=debug,lexicon=warn".
func parseComponentLevels(raw string) map[string]string {
	levels := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, level, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		levels[strings.TrimSpace(name)] = strings.TrimSpace(level)
	}
	return levels
}

func LoadConfig(printEnv bool) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{
		SeedSource:         getEnv("SEED_SOURCE", SeedSourceBuiltin, printEnv),
		LexiconBackend:     getEnv("LEXICON_BACKEND", LexiconBackendKeyword, printEnv),
		LexiconPath:        getEnv("LEXICON_PATH", "", printEnv),
		LexiconModel:       getEnv("LEXICON_MODEL", "gpt-4.1-mini", printEnv),
		CompletionsAPIURL:  getEnv("COMPLETIONS_API_URL", "https://api.openai.com/v1", printEnv),
		CompletionsAPIKey:  getEnv("COMPLETIONS_API_KEY", "", printEnv),
		NatsURL:            getEnv("NATS_URL", "", printEnv),
		EventSubjectPrefix: getEnv("EVENT_SUBJECT_PREFIX", "persona.session", printEnv),
		HTTPPort:           getEnv("HTTP_PORT", "44998", printEnv),
		ComponentLogLevels: parseComponentLevels(getEnv("COMPONENT_LOG_LEVELS", "", printEnv)),
	}

	appData := getEnv("APP_DATA_PATH", "./output", printEnv)
	conf.SeedDBPath = getEnv("SEED_DB_PATH", filepath.Join(appData, "seeds.db"), printEnv)

	var err error
	if conf.LexiconTimeout, err = getDuration("LEXICON_TIMEOUT", 2*time.Second, printEnv); err != nil {
		return nil, err
	}
	if conf.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 7*24*time.Hour, printEnv); err != nil {
		return nil, err
	}
	if conf.SessionSweep, err = getDuration("SESSION_SWEEP_INTERVAL", time.Hour, printEnv); err != nil {
		return nil, err
	}
	if conf.SessionSweep == 0 {
		return nil, errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}

	level, err := log.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info", printEnv)))
	if err != nil {
		return nil, errors.Wrap(err, "invalid LOG_LEVEL")
	}
	conf.LogLevel = level

	switch conf.SeedSource {
	case SeedSourceBuiltin, SeedSourceSQLite:
	default:
		return nil, errors.Errorf("unknown SEED_SOURCE %q", conf.SeedSource)
	}

	switch conf.LexiconBackend {
	case LexiconBackendKeyword:
	case LexiconBackendLLM:
		if conf.CompletionsAPIKey == "" {
			return nil, errors.New("COMPLETIONS_API_KEY is required for the llm lexicon backend")
		}
	default:
		return nil, errors.Errorf("unknown LEXICON_BACKEND %q", conf.LexiconBackend)
	}

	return conf, nil
}
