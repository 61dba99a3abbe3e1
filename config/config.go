package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/subosito/gotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverInMemory = "inmemory"
)

type Config struct {
	AppEnv   string
	Port     string
	Log      LogConfig
	Database DatabaseConfig
	Session  SessionConfig
	AMQP     AMQPConfig
	CORS     CORSConfig
}

type LogConfig struct {
	Level string
	Dir   string
}

type DatabaseConfig struct {
	Driver  string
	Path    string
	FullDSN string
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
}

type SessionConfig struct {
	SecureCookie bool
}

type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads the configuration from the environment. Variables from a .env
// file in the working directory are applied first, without overriding ones
// already set; a missing .env file is not an error.
func Load() (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	secureCookie, err := getBoolEnv("SESSION_SECURE_COOKIE", false)
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverSQLite))
	switch driver {
	case DriverSQLite, DriverMySQL, DriverPostgres, DriverInMemory:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER: %q", driver)
	}

	port := getEnv("APP_PORT", "8080")
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	cfg := &Config{
		AppEnv: strings.ToLower(getEnv("APP_ENV", "development")),
		Port:   port,
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Dir:   getEnv("LOG_DIR", ""),
		},
		Database: DatabaseConfig{
			Driver:  driver,
			Path:    getEnv("DB_PATH", "database.db"),
			FullDSN: getEnv("FULL_DSN", ""),
			User:    getEnv("DB_USER", ""),
			Pass:    getEnv("DB_PASS", ""),
			Host:    getEnv("DB_HOST", "localhost"),
			Port:    getEnv("DB_PORT", ""),
			Name:    getEnv("DB_NAME", "expense_tracker"),
		},
		Session: SessionConfig{
			SecureCookie: secureCookie,
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "budget"),
			Queue:    getEnv("AMQP_QUEUE", "budget_alerts"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
	}

	if (driver == DriverMySQL || driver == DriverPostgres) && cfg.Database.FullDSN == "" {
		if cfg.Database.User == "" || cfg.Database.Pass == "" {
			return nil, fmt.Errorf("missing required DB environment variables for driver %s", driver)
		}
	}

	return cfg, nil
}

// DSN builds the data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.FullDSN != "" {
		return d.FullDSN
	}
	switch d.Driver {
	case DriverMySQL:
		port := d.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", d.User, d.Pass, d.Host, port, d.Name)
	case DriverPostgres:
		port := d.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Pass, d.Host, port, d.Name)
	default:
		return d.Path
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var result []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
