package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/termbase-backend/internal/data/db"
	"github.com/yungbote/termbase-backend/internal/platform/envutil"
)

const ConfigFileEnv = "TERMBASE_CONFIG"

type Config struct {
	LogMode     string
	Environment string
	Version     string

	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	DB db.Config

	LockWait time.Duration
}

// ApplyConfigFile loads a flat YAML map of environment keys and exports the
// ones not already set, so real environment variables always win. An empty
// path is a no-op.
func ApplyConfigFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	for key, v := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" || v == nil {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, configValue(v)); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
	}
	return nil
}

func configValue(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func LoadConfig() Config {
	return Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", Version),

		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080"),
		ReadTimeout:     envutil.Duration("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    envutil.Duration("HTTP_WRITE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
		CORSOrigins:     splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		DB: db.Config{
			Driver:       envutil.String("DB_DRIVER", "postgres"),
			DSN:          envutil.String("DB_DSN", ""),
			Host:         envutil.String("POSTGRES_HOST", "localhost"),
			Port:         envutil.String("POSTGRES_PORT", "5432"),
			User:         envutil.String("POSTGRES_USER", "postgres"),
			Password:     envutil.String("POSTGRES_PASSWORD", ""),
			Name:         envutil.String("POSTGRES_NAME", "termbase"),
			MaxOpenConns: envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envutil.Int("DB_MAX_IDLE_CONNS", 10),
			SlowQuery:    envutil.Duration("DB_SLOW_QUERY", time.Second),
		},

		LockWait: envutil.Duration("LOCK_WAIT", 10*time.Second),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
