package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvGuardianKey = "GUARDIAN_API_KEY"
	EnvJWTSecret   = "NEWSTYPE_JWT_SECRET"
	EnvServerURL   = "NEWSTYPE_SERVER_URL"
	EnvAddr        = "NEWSTYPE_ADDR"
	EnvRateLimit   = "NEWSTYPE_RATE_LIMIT"
)

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat env file: %w", err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with environment variables.
func ApplyEnv(cfg *FileConfig) {
	overrideString(EnvGuardianKey, &cfg.Articles.GuardianKey)
	overrideString(EnvJWTSecret, &cfg.Server.JWTSecret)
	overrideString(EnvServerURL, &cfg.Account.ServerURL)
	overrideString(EnvAddr, &cfg.Server.Addr)
	if v, ok := os.LookupEnv(EnvRateLimit); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = &n
		}
	}
}

func overrideString(key string, target **string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	*target = &v
}
