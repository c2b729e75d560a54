package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultSnapshotTTL = 5 * time.Minute

// Config represents the application configuration
type Config struct {
	DBPath      string        `yaml:"db_path"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	Output      string        `yaml:"output"`
	RedisURL    string        `yaml:"redis_url"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/clara/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Output:      "table",
		SnapshotTTL: defaultSnapshotTTL,
	}

	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// The YAML file is optional, but a broken one is reported
	if err := loadYAMLConfig(cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		if _, err := os.Stat(".clara/clara.db"); err == nil {
			cfg.DBPath = ".clara/clara.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "clara", "clara.db")
		}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if dbPath := getEnvOrFile("CLARA_DB_PATH", "CLARA_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel := os.Getenv("CLARA_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("CLARA_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if output := os.Getenv("CLARA_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if redisURL := getEnvOrFile("CLARA_REDIS_URL", "CLARA_REDIS_URL_FILE"); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if ttl := os.Getenv("CLARA_SNAPSHOT_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid CLARA_SNAPSHOT_TTL %q: %w", ttl, err)
		}
		cfg.SnapshotTTL = d
	}
	return nil
}

// loadYAMLConfig loads configuration from ~/.config/clara/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	path := filepath.Join(homeDir, ".config", "clara", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// decode into a copy so a bad file leaves cfg untouched
	parsed := *cfg
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	*cfg = parsed
	return nil
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		if dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
