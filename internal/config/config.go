package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultAddr              = ":3001"
	DefaultDataDir           = "data"
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultStorage           = StorageFile
	DefaultRedisPrefix       = "mira:"
	DefaultServerURL         = "ws://localhost:3001/ws"
	DefaultSTUN              = "stun:stun.l.google.com:19302"

	StorageFile  = "file"
	StorageRedis = "redis"

	envPrefix = "MIRA"
)

// Lobby is a pre-declared ad-hoc room.
type Lobby struct {
	ID          string `mapstructure:"id"`
	DisplayName string `mapstructure:"display_name"`
}

// Channel is a pre-declared text chat channel.
type Channel struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// Config holds application configuration
type Config struct {
	// Server side
	Addr              string
	DataDir           string
	HeartbeatInterval time.Duration
	Storage           string
	RedisURL          string
	RedisPrefix       string
	Timezone          string
	Location          *time.Location
	ClientLogFile     string
	LogLevel          string
	Lobbies           []Lobby
	Channels          []Channel

	// Client side
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	DeviceID   string
	Token      string
}

// Options for loading config with CLI flag overrides
type Options struct {
	ConfigFile string
	EnvFile    string

	Addr          string
	DataDir       string
	Storage       string
	RedisURL      string
	Timezone      string
	ClientLogFile string
	LogLevel      string

	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	DeviceID   string
	Token      string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("heartbeat_interval", DefaultHeartbeatInterval)
	v.SetDefault("storage", DefaultStorage)
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_prefix", DefaultRedisPrefix)
	v.SetDefault("timezone", "")
	v.SetDefault("client_log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("lobbies", []map[string]any{
		{"id": "l1", "display_name": "TTT daily"},
		{"id": "l2", "display_name": "Mascot daily"},
	})
	v.SetDefault("channels", []map[string]any{
		{"id": "general", "name": "General"},
		{"id": "random", "name": "Random"},
	})

	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("stun_server", DefaultSTUN)
	v.SetDefault("turn_server", "")
	v.SetDefault("turn_user", "")
	v.SetDefault("turn_pass", "")
	v.SetDefault("force_relay", false)
	v.SetDefault("device_id", "")
	v.SetDefault("token", "")
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (MIRA_*, .env included)
// 3. Config file (--config)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	overrides := map[string]string{
		"addr":            opts.Addr,
		"data_dir":        opts.DataDir,
		"storage":         opts.Storage,
		"redis_url":       opts.RedisURL,
		"timezone":        opts.Timezone,
		"client_log_file": opts.ClientLogFile,
		"log_level":       opts.LogLevel,
		"server_url":      opts.ServerURL,
		"stun_server":     opts.STUNServer,
		"turn_server":     opts.TURNServer,
		"turn_user":       opts.TURNUser,
		"turn_pass":       opts.TURNPass,
		"device_id":       opts.DeviceID,
		"token":           opts.Token,
	}
	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}
	if opts.ForceRelay {
		v.Set("force_relay", true)
	}

	cfg := &Config{
		Addr:              v.GetString("addr"),
		DataDir:           v.GetString("data_dir"),
		HeartbeatInterval: v.GetDuration("heartbeat_interval"),
		Storage:           strings.ToLower(v.GetString("storage")),
		RedisURL:          v.GetString("redis_url"),
		RedisPrefix:       v.GetString("redis_prefix"),
		Timezone:          v.GetString("timezone"),
		ClientLogFile:     v.GetString("client_log_file"),
		LogLevel:          v.GetString("log_level"),
		ServerURL:         v.GetString("server_url"),
		STUNServer:        v.GetString("stun_server"),
		TURNServer:        v.GetString("turn_server"),
		TURNUser:          v.GetString("turn_user"),
		TURNPass:          v.GetString("turn_pass"),
		ForceRelay:        v.GetBool("force_relay"),
		DeviceID:          v.GetString("device_id"),
		Token:             v.GetString("token"),
	}

	if err := v.UnmarshalKey("lobbies", &cfg.Lobbies); err != nil {
		return nil, fmt.Errorf("parse lobbies: %w", err)
	}
	if err := v.UnmarshalKey("channels", &cfg.Channels); err != nil {
		return nil, fmt.Errorf("parse channels: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %s", c.HeartbeatInterval)
	}

	switch c.Storage {
	case StorageFile:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("storage %q requires redis_url", StorageRedis)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}

	c.Location = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		c.Location = loc
	}

	seen := make(map[string]bool, len(c.Lobbies))
	for _, l := range c.Lobbies {
		if l.ID == "" {
			return errors.New("lobby with empty id")
		}
		if seen[l.ID] {
			return fmt.Errorf("duplicate lobby id %q", l.ID)
		}
		seen[l.ID] = true
	}

	if c.ForceRelay && c.TURNServer == "" {
		return errors.New("cannot force relay mode without TURN server configured")
	}
	return nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured. A bare host expands
// to the udp, tcp and tls variants.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	if strings.Contains(c.TURNServer, "?transport=") {
		return []string{c.TURNServer}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turns:"), "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
