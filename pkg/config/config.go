package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Selection SelectionConfig
	Feedback  FeedbackConfig
	Alerts    AlertsConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
	// RequireRedisToken additionally checks each bearer token against the
	// Redis session store, so issued tokens can be revoked before expiry.
	RequireRedisToken bool
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// SelectionConfig holds the engine tunables that ops may override per
// environment. Per-segment overrides live in the selection_configs table.
type SelectionConfig struct {
	CooldownDays    int
	ExplorationRate float64
	ConfidenceLevel float64
	ExpiryDays      int
}

type FeedbackConfig struct {
	IntervalHours  int
	LookbackHours  int
	HalfLifeDays   float64
	UpdatesPerDay  float64
	CountCap       float64
	SweepHourLocal int
}

type AlertsConfig struct {
	WebhookURL        string
	BasicAuthUsername string
	BasicAuthPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Caption Selection Engine"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "eros_scheduling"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:         getEnv("JWT_SECRET", ""),
			RequireRedisToken: getEnv("AUTH_REQUIRE_REDIS_TOKEN", "false") == "true",
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Selection: SelectionConfig{
			CooldownDays:    getEnvInt("SELECTION_COOLDOWN_DAYS", 7),
			ExplorationRate: getEnvFloat("SELECTION_EXPLORATION_RATE", 0.2),
			ConfidenceLevel: getEnvFloat("SELECTION_CONFIDENCE_LEVEL", 0.95),
			ExpiryDays:      getEnvInt("ASSIGNMENT_EXPIRY_DAYS", 7),
		},
		Feedback: FeedbackConfig{
			IntervalHours:  getEnvInt("FEEDBACK_INTERVAL_HOURS", 6),
			LookbackHours:  getEnvInt("FEEDBACK_LOOKBACK_HOURS", 48),
			HalfLifeDays:   getEnvFloat("FEEDBACK_HALF_LIFE_DAYS", 14),
			UpdatesPerDay:  getEnvFloat("FEEDBACK_UPDATES_PER_DAY", 4),
			CountCap:       getEnvFloat("FEEDBACK_COUNT_CAP", 100),
			SweepHourLocal: getEnvInt("ASSIGNMENT_SWEEP_HOUR", 3),
		},
		Alerts: AlertsConfig{
			WebhookURL:        getEnv("ALERT_WEBHOOK_URL", ""),
			BasicAuthUsername: getEnv("ALERT_BASIC_AUTH_USERNAME", ""),
			BasicAuthPassword: getEnv("ALERT_BASIC_AUTH_PASSWORD", ""),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}

	return defaultVal
}
