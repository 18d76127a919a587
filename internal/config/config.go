// Package config loads server and client settings from a YAML file with
// WARPFRONT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WARPFRONT_SERVER_HTTP_ADDRESS.
const EnvPrefix = "WARPFRONT"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
	Client  ClientConfig  `mapstructure:"client"`
}

type ServerConfig struct {
	HTTP            HTTPConfig    `mapstructure:"http"`
	GRPC            GRPCConfig    `mapstructure:"grpc"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type HTTPConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GRPCConfig struct {
	// Address is left empty to disable the gRPC listener.
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// GameConfig is applied to every new game. A zero seed draws a random one.
type GameConfig struct {
	Players  int   `mapstructure:"players"`
	GridSize int   `mapstructure:"grid_size"`
	Seed     int64 `mapstructure:"seed"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables a rotated JSON log file next to the console output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type StorageConfig struct {
	Driver         string        `mapstructure:"driver"`
	DSN            string        `mapstructure:"dsn"`
	ReplayDir      string        `mapstructure:"replay_dir"`
	ArchiveTimeout time.Duration `mapstructure:"archive_timeout"`
}

type ClientConfig struct {
	ServerURL     string        `mapstructure:"server_url"`
	GRPCAddress   string        `mapstructure:"grpc_address"`
	Transport     string        `mapstructure:"transport"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	GameID        string        `mapstructure:"game_id"`
	Opponent      string        `mapstructure:"opponent"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	Workers       int           `mapstructure:"workers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.write_timeout", 10*time.Second)
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 1000)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("game.players", 2)
	v.SetDefault("game.grid_size", 5)
	v.SetDefault("game.seed", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.replay_dir", "")
	v.SetDefault("storage.archive_timeout", 10*time.Second)

	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.grpc_address", "localhost:9090")
	v.SetDefault("client.transport", "http")
	v.SetDefault("client.username", "")
	v.SetDefault("client.password", "")
	v.SetDefault("client.game_id", "")
	v.SetDefault("client.opponent", "")
	v.SetDefault("client.poll_interval", 500*time.Millisecond)
	v.SetDefault("client.submit_timeout", 5*time.Second)
	v.SetDefault("client.frame_interval", 16*time.Millisecond)
	v.SetDefault("client.workers", 4)
}

// Loader owns the viper instance behind a loaded configuration.
type Loader struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg *Config
}

// Load reads path, applies environment overrides and validates the result.
// An empty path, or a path that does not exist, yields the defaults plus
// environment overrides.
func Load(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Loader{v: v, cfg: cfg}, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Watch reloads the file whenever it changes and passes every valid result
// to fn. Invalid edits are reported through onError and otherwise ignored.
func (l *Loader) Watch(fn func(*Config), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(l.v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		l.mu.Lock()
		l.cfg = cfg
		l.mu.Unlock()
		fn(cfg)
	})
	l.v.WatchConfig()
}

// Validate checks ranges that would otherwise fail deep inside the server.
func (c *Config) Validate() error {
	if c.Game.Players < 2 || c.Game.Players > 4 {
		return fmt.Errorf("game.players must be between 2 and 4, got %d", c.Game.Players)
	}
	if c.Game.GridSize < 2 {
		return fmt.Errorf("game.grid_size must be at least 2, got %d", c.Game.GridSize)
	}
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be memory, sqlite or postgres, got %q", c.Storage.Driver)
	}
	if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for driver %s", c.Storage.Driver)
	}
	switch c.Client.Transport {
	case "http", "grpc":
	default:
		return fmt.Errorf("client.transport must be http or grpc, got %q", c.Client.Transport)
	}
	return nil
}
