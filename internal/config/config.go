package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	envPrefix = "KVSERVER_"
)

type Config struct {
	RespAddr    string        `yaml:"resp_addr"`
	HTTPAddr    string        `yaml:"http_addr"`
	Backend     string        `yaml:"backend"`
	SQLitePath  string        `yaml:"sqlite_path"`
	AofPath     string        `yaml:"aof_path"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	LogLevel    string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		RespAddr:   ":6379",
		HTTPAddr:   ":8080",
		Backend:    BackendMemory,
		SQLitePath: "kv.db",
		LogLevel:   "info",
	}
}

// CreateConfig reads path on top of the defaults. An empty path returns the
// defaults.
func CreateConfig(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment. A missing file
// is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from KVSERVER_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	fields := map[string]*string{
		"RESP_ADDR":   &c.RespAddr,
		"HTTP_ADDR":   &c.HTTPAddr,
		"BACKEND":     &c.Backend,
		"SQLITE_PATH": &c.SQLitePath,
		"AOF_PATH":    &c.AofPath,
		"LOG_LEVEL":   &c.LogLevel,
	}
	for name, field := range fields {
		if v, ok := lookup(envPrefix + name); ok {
			*field = v
		}
	}

	if v, ok := lookup(envPrefix + "IDLE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sIDLE_TIMEOUT: %w", envPrefix, err)
		}
		c.IdleTimeout = d
	}

	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.RespAddr == "" && c.HTTPAddr == "" {
		return errors.New("at least one of resp_addr or http_addr must be set")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle_timeout must not be negative")
	}

	return nil
}
