// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Articles ArticlesConfig `toml:"articles"`
	Account  AccountConfig  `toml:"account"`
	Server   ServerConfig   `toml:"server"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Mode          *string  `toml:"mode"`
	Duration      *int     `toml:"duration"`
	FallbackWords *int     `toml:"fallback-words"`
	CapsPct       *float64 `toml:"caps"`
	PunctPct      *float64 `toml:"punct"`
	PunctSet      *string  `toml:"punct-set"`
	Seed          *int64   `toml:"seed"`
}

// ArticlesConfig maps article provider settings.
type ArticlesConfig struct {
	GuardianKey     *string `toml:"guardian-key"`
	Endpoint        *string `toml:"endpoint"`
	PageSize        *int    `toml:"page-size"`
	MaxWords        *int    `toml:"max-words"`
	MinChars        *int    `toml:"min-chars"`
	TTL             *string `toml:"ttl"`
	OfflineWordlist *string `toml:"offline-wordlist"`
}

// AccountConfig maps account settings.
type AccountConfig struct {
	ServerURL *string `toml:"server-url"`
}

// ServerConfig maps API server settings.
type ServerConfig struct {
	Addr      *string `toml:"addr"`
	JWTSecret *string `toml:"jwt-secret"`
	TokenTTL  *string `toml:"token-ttl"`
	RateLimit *int    `toml:"rate-limit"`
	RateBurst *int    `toml:"rate-burst"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Duration parses an optional duration value, returning def when unset.
func Duration(value *string, def time.Duration) (time.Duration, error) {
	if value == nil || *value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", *value, err)
	}
	return d, nil
}
