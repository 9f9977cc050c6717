package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Local struct {
		// Path of the SQLite file; empty keeps everything in memory.
		Path string `yaml:"path"`
	} `yaml:"local"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Sync struct {
		OnStart    *bool  `yaml:"on_start"`
		Timeout    string `yaml:"timeout"`
		VersionTTL string `yaml:"version_ttl"`
	} `yaml:"sync"`
	Quiz struct {
		DefaultCount int `yaml:"default_count"`
	} `yaml:"quiz"`
	Results struct {
		// Mirror selects the remote result store: "postgres", "redis" or "none".
		Mirror  string `yaml:"mirror"`
		Timeout string `yaml:"timeout"`
	} `yaml:"results"`
	Identity struct {
		// UserID pins a static signed-in user; empty enables account sign-up/sign-in.
		UserID string `yaml:"user_id"`
	} `yaml:"identity"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the zero Config.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// SyncOnStart reports whether the server syncs questions before serving (default true).
func (c Config) SyncOnStart() bool {
	if c.Sync.OnStart == nil {
		return true
	}
	return *c.Sync.OnStart
}

// MirrorKind resolves the remote result store, defaulting to whatever backend is configured.
func (c Config) MirrorKind() string {
	if c.Results.Mirror != "" {
		return c.Results.Mirror
	}
	switch {
	case c.Postgres.URL != "":
		return "postgres"
	case c.Redis.Addr != "":
		return "redis"
	default:
		return "none"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
