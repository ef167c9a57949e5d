package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SYSMANAGER_"

// Config holds all configuration read from the environment
type Config struct {
	// API Configuration
	API APIConfig

	// Sandbox server configuration
	Sandbox SandboxConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds the System Manager connection settings
type APIConfig struct {
	URI       string
	AuthType  string // apikey, userpassword or empty
	Username  string
	Password  string
	APIKey    string
	Timeout   time.Duration
	Retry     RetryConfig
	LogOK     bool
	LogErrors bool
}

// RetryConfig holds the retry settings
type RetryConfig struct {
	Attempts int
	Statuses []int
}

// SandboxConfig holds the local sandbox server settings
type SandboxConfig struct {
	ListenAddress string
	DatabaseURL   string
	JWTSecret     string
	APIKey        string // seeded super user key

	// CleanupSchedule is a 5-field cron expression for the session janitor
	CleanupSchedule string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load reads .env files, then SYSMANAGER_* environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	timeout, err := durationEnv("TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	attempts, err := intEnv("RETRY_ATTEMPTS", 0)
	if err != nil {
		return nil, err
	}

	statuses, err := intListEnv("RETRY_STATUSES")
	if err != nil {
		return nil, err
	}

	logOK, err := boolEnv("DEBUG_SUCCESS")
	if err != nil {
		return nil, err
	}

	logErrors, err := boolEnv("DEBUG_ERROR")
	if err != nil {
		return nil, err
	}

	return &Config{
		API: APIConfig{
			URI:       stringEnv("URI", "http://localhost:8080"),
			AuthType:  strings.ToLower(stringEnv("AUTH_TYPE", "")),
			Username:  stringEnv("USERNAME", ""),
			Password:  stringEnv("PASSWORD", ""),
			APIKey:    stringEnv("API_KEY", ""),
			Timeout:   timeout,
			Retry:     RetryConfig{Attempts: attempts, Statuses: statuses},
			LogOK:     logOK,
			LogErrors: logErrors,
		},
		Sandbox: SandboxConfig{
			ListenAddress: stringEnv("SANDBOX_ADDRESS", ":8080"),
			DatabaseURL:   stringEnv("SANDBOX_DATABASE_URL", "sysmanager-sandbox.sqlite"),
			JWTSecret:     stringEnv("SANDBOX_JWT_SECRET", ""),
			APIKey:        stringEnv("SANDBOX_API_KEY", ""),

			CleanupSchedule: stringEnv("SANDBOX_CLEANUP_SCHEDULE", ""),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "console"),
		},
	}, nil
}

func stringEnv(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
		return v
	}
	return fallback
}

func intEnv(name string, fallback int) (int, error) {
	raw := stringEnv(name, "")
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
	}
	return v, nil
}

func boolEnv(name string) (bool, error) {
	raw := stringEnv(name, "")
	if raw == "" {
		return false, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
	}
	return v, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := stringEnv(name, "")
	if raw == "" {
		return fallback, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
	}
	return v, nil
}

// intListEnv parses a comma separated list such as "429,502,503"
func intListEnv(name string) ([]int, error) {
	raw := stringEnv(name, "")
	if raw == "" {
		return nil, nil
	}

	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s%s entry %q: %w", envPrefix, name, part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
