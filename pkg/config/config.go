package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const Version = "0.4.0"

// Config holds application configuration
type Config struct {
	// Server configuration
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Storage configuration
	DBPath string `yaml:"db_path"`

	// Cache configuration
	CacheType string `yaml:"cache_type"` // "memory" or "redis"
	CacheSize int    `yaml:"cache_size"`
	CacheTTL  int    `yaml:"cache_ttl"` // seconds
	RedisHost string `yaml:"redis_host"`
	RedisPort int    `yaml:"redis_port"`

	// Search configuration
	SearchLimit int `yaml:"search_limit"`

	// Debug
	Debug bool `yaml:"debug"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        8765,
		DBPath:      "vocab.db",
		CacheType:   "memory",
		CacheSize:   256,
		CacheTTL:    300,
		RedisHost:   "localhost",
		RedisPort:   6379,
		SearchLimit: 10,
		Debug:       false,
	}
}

// LoadFromFile overlays configuration from a YAML file. A missing file
// is not an error so a plain default setup needs no config at all.
func LoadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv overlays configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if val := os.Getenv("HOST"); val != "" {
		cfg.Host = val
	}
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Port = port
		}
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("CACHE_TYPE"); val != "" {
		cfg.CacheType = val
	}
	if val := os.Getenv("CACHE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.CacheSize = size
		}
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if ttl, err := strconv.Atoi(val); err == nil {
			cfg.CacheTTL = ttl
		}
	}
	if val := os.Getenv("REDIS_HOST"); val != "" {
		cfg.RedisHost = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.RedisPort = port
		}
	}
	if val := os.Getenv("SEARCH_LIMIT"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			cfg.SearchLimit = limit
		}
	}
	if val := os.Getenv("DEBUG"); val != "" {
		cfg.Debug = parseBool(val)
	}
}

func parseBool(val string) bool {
	val = strings.ToLower(val)
	return val == "true" || val == "1" || val == "yes"
}
