// Package config loads settings from the environment and .env files.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
)

var ErrMissingDatabaseURL = xerrors.Message("DATABASE_URL is required")

type Config struct {
	Database DatabaseConfig
	Admin    AdminConfig
	Server   ServerConfig
	CORS     CORSConfig
	Log      LogConfig

	// BcryptCost is the work factor for password hashes.
	BcryptCost int
}

type DatabaseConfig struct {
	URL         string
	MaxConns    int32
	MinConns    int32
	MaxLifetime time.Duration
}

type AdminConfig struct {
	Name     string
	Addr     string
	PageSize int
}

type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (then ../.env) when present and builds the config from
// the environment. A missing file is not an error.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			slog.Debug("no .env file loaded", "error", err)
		}
	}
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			MaxConns:    getInt32Env("DB_MAX_CONNS", 10),
			MinConns:    getInt32Env("DB_MIN_CONNS", 2),
			MaxLifetime: getDurationEnv("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Admin: AdminConfig{
			Name:     getEnv("ADMIN_NAME", "4Geeks Admin"),
			Addr:     getEnv("ADMIN_ADDR", ":3000"),
			PageSize: getIntEnv("ADMIN_PAGE_SIZE", 20),
		},
		Server: ServerConfig{
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", time.Minute),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", nil),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "dev"),
		},
		BcryptCost: getIntEnv("BCRYPT_COST", 12),
	}
}

// Validate reports settings that make the config unusable for commands that
// need a database.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return xerrors.New(ErrMissingDatabaseURL)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return xerrors.Newf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Admin.PageSize <= 0 {
		return xerrors.Newf("ADMIN_PAGE_SIZE must be positive, got %d", c.Admin.PageSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt32Env(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intValue)
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}
