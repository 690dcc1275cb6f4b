// Package config provides server configuration loaded from environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds dependency-analysis server configuration.
type Config struct {
	// HTTP surface: JSON-RPC over WebSocket plus health endpoints.
	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:":8080"`
	WSPath         string        `envconfig:"WS_PATH" default:"/ws"`
	WSReadLimit    int64         `envconfig:"WS_READ_LIMIT" default:"1048576"`
	WSWriteTimeout time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s"`

	// COMMS: optional JSON-RPC request/reply subject and change events on NATS.
	COMMSEnabled       bool   `envconfig:"COMMS_ENABLED" default:"false"`
	COMMSURL           string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName          string `envconfig:"SERVICE_NAME" default:"dependency-analysis"`
	RPCSubject         string `envconfig:"RPC_SUBJECT" default:"da.rpc.v1"`
	ChangeEventSubject string `envconfig:"CHANGE_EVENT_SUBJECT" default:"da.whitelist.changed"`

	// Zero disables the per-request deadline.
	RequestTimeout time.Duration `envconfig:"RPC_REQUEST_TIMEOUT" default:"0s"`

	// Database; empty DATABASE_URL runs without storage.
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	// Empty MIGRATION_PATH uses the migrations compiled into the binary.
	MigrationPath string `envconfig:"MIGRATION_PATH"`
	SeedFile      string `envconfig:"SEED_FILE"`

	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// POM analysis
	SCMCloneTimeout   time.Duration `envconfig:"SCM_CLONE_TIMEOUT" default:"2m"`
	MavenRepositories []string      `envconfig:"MAVEN_REPOSITORIES" default:"https://repo1.maven.org/maven2/"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads the .env file named by DOTENV_FILE (default ".env") when present, then
// reads configuration from environment variables. Variables already set win over the file.
func LoadConfig() (*Config, error) {
	dotenv := os.Getenv("DOTENV_FILE")
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s - failed to load %s: %w", logPrefix, dotenv, err)
		}
	} else {
		slog.Debug(fmt.Sprintf("%s - Loaded environment from %s", logPrefix, dotenv))
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateForServe checks required config when running the server.
func (c *Config) ValidateForServe() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("%s - HTTP_ADDR is required for serve", logPrefix)
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("%s - WS_PATH must start with /", logPrefix)
	}
	if c.WSReadLimit <= 0 {
		return fmt.Errorf("%s - WS_READ_LIMIT must be positive", logPrefix)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%s - RPC_REQUEST_TIMEOUT must not be negative", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.COMMSEnabled && (c.COMMSURL == "" || c.RPCSubject == "") {
		return fmt.Errorf("%s - COMMS_URL and RPC_SUBJECT are required when COMMS_ENABLED", logPrefix)
	}
	if c.RunMigrations && c.DatabaseURL == "" {
		return fmt.Errorf("%s - RUN_MIGRATIONS requires DATABASE_URL", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, seed).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
