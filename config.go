package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration, loaded from TOML with
// environment overrides for the deployment surface (PORT, ALLOWED_ORIGINS)
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Network  NetworkConfig  `toml:"network"`
	Game     GameConfig     `toml:"game"`
	Match    MatchConfig    `toml:"match"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name       string `toml:"name"`
	ListenAddr string `toml:"listen_addr"`
	PublicURL  string `toml:"public_url"` // base URL used in join QR codes
}

type NetworkConfig struct {
	AllowedOrigins    []string      `toml:"allowed_origins"` // empty = same-host only
	MaxConnsPerIP     int           `toml:"max_conns_per_ip"`
	MaxTotalConns     int           `toml:"max_total_conns"`
	MaxMessagesPerSec int           `toml:"max_messages_per_sec"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	PongWait          time.Duration `toml:"pong_wait"`
	StaleAfter        time.Duration `toml:"stale_after"`    // app-level liveness window
	SweepInterval     time.Duration `toml:"sweep_interval"` // heartbeat eviction sweep
}

type GameConfig struct {
	TickRate           int           `toml:"tick_rate"` // simulation steps per second
	ContentPath        string        `toml:"content_path"`
	LayoutPath         string        `toml:"layout_path"`
	MaxPlayers         int           `toml:"max_players"` // per world
	IncludeDeadPlayers bool          `toml:"include_dead_players"`
	PassiveHealAmount  float64       `toml:"passive_heal_amount"`
	PassiveHealEvery   time.Duration `toml:"passive_heal_every"`
	DefaultClass       string        `toml:"default_class"`
}

type MatchConfig struct {
	MinPlayers    int           `toml:"min_players"`
	Capacity      int           `toml:"capacity"`
	Countdown     time.Duration `toml:"countdown"`
	Duration      time.Duration `toml:"duration"`
	FinishedGrace time.Duration `toml:"finished_grace"`
}

type DatabaseConfig struct {
	Path string `toml:"path"` // empty disables recording
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// LoadConfig reads the TOML file (when given) over defaults, then applies
// environment overrides
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.ListenAddr = ":" + port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Network.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Network.AllowedOrigins = append(cfg.Network.AllowedOrigins, o)
			}
		}
	}
	if cfg.Game.TickRate <= 0 {
		return nil, fmt.Errorf("tick_rate must be positive")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:       "arena",
			ListenAddr: ":8080",
		},
		Network: NetworkConfig{
			MaxConnsPerIP:     5,
			MaxTotalConns:     1000,
			MaxMessagesPerSec: 60,
			WriteTimeout:      10 * time.Second,
			PongWait:          60 * time.Second,
			StaleAfter:        15 * time.Second,
			SweepInterval:     5 * time.Second,
		},
		Game: GameConfig{
			TickRate:           20,
			MaxPlayers:         32,
			IncludeDeadPlayers: true,
			PassiveHealAmount:  2,
			PassiveHealEvery:   2 * time.Second,
			DefaultClass:       "warrior",
		},
		Match: MatchConfig{
			MinPlayers:    2,
			Capacity:      8,
			Countdown:     10 * time.Second,
			Duration:      5 * time.Minute,
			FinishedGrace: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
