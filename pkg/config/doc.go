// Package config loads typed configuration from environment variables.
//
// Load parses a struct annotated with caarlos0/env tags and caches the
// result per type, so every package can ask for its own Config without
// re-parsing. A .env file in the working directory is read on first use
// through godotenv; LoadEnv reads explicit files.
//
//	type Config struct {
//		Backend string `env:"WALLET_BACKEND" envDefault:"memory"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// ResetCache clears the cache between tests.
package config
