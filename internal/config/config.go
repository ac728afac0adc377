package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds user preferences
type Config struct {
	ServerURL     string `yaml:"server_url" json:"server_url"`         // Remote persistence service
	DBPath        string `yaml:"db_path" json:"db_path"`               // Local sqlite cache and outbox
	ConfirmDelete bool   `yaml:"confirm_delete" json:"confirm_delete"` // Require confirmation for delete

	// Sync tuning
	SyncDebounce    time.Duration `yaml:"sync_debounce" json:"sync_debounce"`       // Wait after last change before pushing
	RetryInterval   time.Duration `yaml:"retry_interval" json:"retry_interval"`     // How often failed writes are retried
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts"`         // Outbox entries give up after this many failures
	CheckpointTicks int           `yaml:"checkpoint_ticks" json:"checkpoint_ticks"` // Timer ticks between checkpoints

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// Dir returns the tasko home directory (~/.tasko), overridable with TASKO_HOME
func Dir() (string, error) {
	if dir := os.Getenv("TASKO_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tasko"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir, _ := Dir()
	logPath, dbPath := "", ""
	if dir != "" {
		logPath = filepath.Join(dir, "logs", "tasko.log")
		dbPath = filepath.Join(dir, "tasko.db")
	}

	return &Config{
		ServerURL:       getEnv("TASKO_SERVER_URL", "http://localhost:8080"),
		DBPath:          getEnv("TASKO_DB_PATH", dbPath),
		ConfirmDelete:   true,
		SyncDebounce:    getDuration("TASKO_SYNC_DEBOUNCE", 2*time.Second),
		RetryInterval:   getDuration("TASKO_RETRY_INTERVAL", 30*time.Second),
		MaxAttempts:     getInt("TASKO_MAX_ATTEMPTS", 10),
		CheckpointTicks: getInt("TASKO_CHECKPOINT_TICKS", 60),
		LogLevel:        getEnv("TASKO_LOG_LEVEL", "INFO"),
		LogFile:         getEnv("TASKO_LOG_FILE", logPath),
		LogConsole:      getEnv("TASKO_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

// Path returns the config file location
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads config from ~/.tasko/config.yaml
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile loads config from path, returning defaults if it does not exist
func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves config to ~/.tasko/config.yaml
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return c.SaveFile(configPath)
}

// SaveFile writes config to path
func (c *Config) SaveFile(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
