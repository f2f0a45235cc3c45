// Package config loads player and server settings. Values come from
// built-in defaults, then an optional YAML file, then a .env file, then the
// process environment, each layer overriding the one before.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transports for reaching a remote story server.
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

type PlayerConfig struct {
	Story        string        `yaml:"story" env:"VN_STORY"`
	IntroFile    string        `yaml:"intro_file" env:"VN_INTRO_FILE"`
	ChunkSize    int           `yaml:"chunk_size" env:"VN_CHUNK_SIZE"`
	ChunkSeed    int64         `yaml:"chunk_seed" env:"VN_CHUNK_SEED"`
	TypeDelay    time.Duration `yaml:"type_delay" env:"VN_TYPE_DELAY"`
	FallbackTail int           `yaml:"fallback_tail" env:"VN_FALLBACK_TAIL"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" env:"VN_SERVER_ADDR"`
	URL       string `yaml:"url" env:"VN_SERVER_URL"`
	Transport string `yaml:"transport" env:"VN_TRANSPORT"`
}

type DBConfig struct {
	Driver string `yaml:"driver" env:"VN_DB_DRIVER"`
	DSN    string `yaml:"dsn" env:"VN_DB_DSN"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"VN_LOG_LEVEL"`
	Format string `yaml:"format" env:"VN_LOG_FORMAT"`
	File   string `yaml:"file" env:"VN_LOG_FILE"`
}

// Config is the merged configuration.
type Config struct {
	DataDir string       `yaml:"data_dir" env:"VN_DATA_DIR"`
	Player  PlayerConfig `yaml:"player"`
	Server  ServerConfig `yaml:"server"`
	DB      DBConfig     `yaml:"db"`
	Log     LogConfig    `yaml:"log"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir: defaultDataDir(),
		Player: PlayerConfig{
			ChunkSize:    24,
			ChunkSeed:    1,
			TypeDelay:    15 * time.Millisecond,
			FallbackTail: 50,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			Transport: TransportHTTP,
		},
		DB:  DBConfig{Driver: "sqlite"},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vnplayer")
	}
	return ".vnplayer"
}

// Load builds the configuration. path names an optional YAML file; an
// empty path skips that layer, a missing named file is an error. A .env
// file in the working directory is read when present and never overrides
// variables already set.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	// Hosted deployments hand over a bare postgres URL.
	if cfg.DB.DSN == "" {
		for _, key := range []string{"DATABASE_URL", "POSTGRES_URL"} {
			if v := os.Getenv(key); v != "" {
				cfg.DB.DSN = v
				if os.Getenv("VN_DB_DRIVER") == "" {
					cfg.DB.Driver = "postgres"
				}
				break
			}
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Server.Transport = strings.ToLower(strings.TrimSpace(c.Server.Transport))
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Player.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("player.chunk_size must not be negative, got %d", c.Player.ChunkSize))
	}
	if c.Player.TypeDelay < 0 {
		errs = append(errs, fmt.Errorf("player.type_delay must not be negative, got %s", c.Player.TypeDelay))
	}
	if c.Player.FallbackTail < 0 {
		errs = append(errs, fmt.Errorf("player.fallback_tail must not be negative, got %d", c.Player.FallbackTail))
	}
	switch c.Server.Transport {
	case TransportHTTP, TransportWS:
	default:
		errs = append(errs, fmt.Errorf("server.transport must be %q or %q, got %q", TransportHTTP, TransportWS, c.Server.Transport))
	}
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver))
	}
	return errors.Join(errs...)
}

// DatabaseDSN returns the configured DSN, defaulting sqlite to a file in
// the data directory.
func (c Config) DatabaseDSN() string {
	if c.DB.DSN != "" || c.DB.Driver != "sqlite" {
		return c.DB.DSN
	}
	return filepath.Join(c.DataDir, "conversations.db")
}
