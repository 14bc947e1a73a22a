package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Server
	ServerPort string

	// Database: postgres:// URL or a sqlite file path
	DatabaseURL string

	// Uploaded dataset files
	DataDir string

	// Simulation
	TickInterval time.Duration
	FlushEvery   int
}

// fileConfig mirrors Config for the optional YAML config file.
type fileConfig struct {
	ServerPort   string `yaml:"server_port"`
	DatabaseURL  string `yaml:"database_url"`
	DataDir      string `yaml:"data_dir"`
	TickInterval string `yaml:"tick_interval"`
	FlushEvery   int    `yaml:"flush_every"`
}

// Load builds the configuration from defaults, the optional YAML file
// named by MLSTUDIO_CONFIG, and environment variable overrides, in
// that order.
func Load() *Config {
	cfg := &Config{
		ServerPort:   "8080",
		DatabaseURL:  "mlstudio.db",
		DataDir:      "data/uploads",
		TickInterval: 500 * time.Millisecond,
		FlushEvery:   2,
	}

	if path := os.Getenv("MLSTUDIO_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read config file %s: %v", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			log.Fatalf("Failed to parse config file %s: %v", path, err)
		}
		applyFile(cfg, &fc)
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid TICK_INTERVAL %q: %v", v, err)
		}
		cfg.TickInterval = d
	}
	if v := os.Getenv("FLUSH_EVERY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			log.Fatalf("Invalid FLUSH_EVERY %q", v)
		}
		cfg.FlushEvery = n
	}
	return cfg
}

func applyFile(cfg *Config, fc *fileConfig) {
	if fc.ServerPort != "" {
		cfg.ServerPort = fc.ServerPort
	}
	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.TickInterval != "" {
		d, err := time.ParseDuration(fc.TickInterval)
		if err != nil {
			log.Fatalf("Invalid tick_interval %q: %v", fc.TickInterval, err)
		}
		cfg.TickInterval = d
	}
	if fc.FlushEvery > 0 {
		cfg.FlushEvery = fc.FlushEvery
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
