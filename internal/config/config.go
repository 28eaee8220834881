package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Scrape   ScrapeConfig
	JWT      JWTConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

// SourceConfig holds the per-source polling knobs. Token is optional; an
// empty token puts the adapter in unauthenticated mode.
type SourceConfig struct {
	Interval time.Duration
	MaxItems int
	Token    string
}

type ScrapeConfig struct {
	GitHub      SourceConfig
	NPM         SourceConfig
	PyPI        SourceConfig
	HuggingFace SourceConfig

	PyPIHeadlessFallback bool
}

// JWTConfig guards the manual-trigger endpoint. An empty secret disables the
// guard rather than failing startup.
type JWTConfig struct {
	Secret          string
	AccessExpiresIn time.Duration
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}
	optDuration := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return def
		}
		return d
	}
	optInt := func(key string, def int) int {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return def
		}
		return v
	}
	optBool := func(key string) bool {
		raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		return raw == "1" || raw == "true" || raw == "yes"
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:     opt("DB_HOST"),
		DBPort:     opt("DB_PORT"),
		DBName:     opt("DB_NAME"),
		DBUser:     opt("DB_USER"),
		DBPassword: opt("DB_PASSWORD"),
		DBSSLMode:  opt("DB_SSL_MODE"),

		ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(optInt("DB_POOL_MAX_CONNS", 8)),
		PoolMinConns:          int32(optInt("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   optDuration("DB_POOL_MAX_CONN_LIFETIME", time.Hour),
		PoolMaxConnIdleTime:   optDuration("DB_POOL_MAX_CONN_IDLE_TIME", 30*time.Minute),
		PoolHealthCheckPeriod: optDuration("DB_POOL_HEALTH_CHECK_PERIOD", time.Minute),
	}

	cfg.Scrape = ScrapeConfig{
		GitHub: SourceConfig{
			Interval: optDuration("GITHUB_SCRAPE_INTERVAL", 60*time.Minute),
			MaxItems: optInt("GITHUB_MAX_ITEMS", 100),
			Token:    opt("GITHUB_TOKEN"),
		},
		NPM: SourceConfig{
			Interval: optDuration("NPM_SCRAPE_INTERVAL", 24*time.Hour),
			MaxItems: optInt("NPM_MAX_ITEMS", 50),
			Token:    opt("NPM_TOKEN"),
		},
		PyPI: SourceConfig{
			Interval: optDuration("PYPI_SCRAPE_INTERVAL", 24*time.Hour),
			MaxItems: optInt("PYPI_MAX_ITEMS", 50),
		},
		HuggingFace: SourceConfig{
			Interval: optDuration("HUGGINGFACE_SCRAPE_INTERVAL", 60*time.Minute),
			MaxItems: optInt("HUGGINGFACE_MAX_ITEMS", 60),
		},
		PyPIHeadlessFallback: optBool("PYPI_HEADLESS_FALLBACK"),
	}

	cfg.JWT = JWTConfig{
		Secret:          opt("JWT_SECRET"),
		AccessExpiresIn: optDuration("JWT_ACCESS_EXPIRES_IN", 30*time.Minute),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}
