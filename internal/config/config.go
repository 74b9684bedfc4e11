// Package config reads the settings shared by the bgengine binaries from
// the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/pkg/engine"
	"github.com/yourusername/bgengine/pkg/rescore"
)

// Environment variables
const (
	EnvHost           = "BG_HOST"
	EnvPort           = "BG_PORT"
	EnvTier           = "BG_TIER"
	EnvExternalAddr   = "BG_EXTERNAL_ADDR"
	EnvRescoreURL     = "BG_RESCORE_URL"
	EnvRescoreModel   = "BG_RESCORE_MODEL"
	EnvRescoreTimeout = "BG_RESCORE_TIMEOUT"
	EnvLogLevel       = "BG_LOG_LEVEL"
)

// Config holds the settings. Flags in the binaries use these values as
// their defaults.
type Config struct {
	Host         string
	Port         int
	Tier         engine.Tier
	ExternalAddr string

	RescoreURL     string // empty = no rescorer
	RescoreModel   string
	RescoreTimeout time.Duration

	LogLevel zerolog.Level
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		Tier:           engine.TierBasic,
		ExternalAddr:   ":1234",
		RescoreModel:   rescore.DefaultModel,
		RescoreTimeout: engine.DefaultRescoreTimeout,
		LogLevel:       zerolog.InfoLevel,
	}
}

// Load reads the named .env files (".env" when none are given) into the
// process environment and returns the resulting settings. Missing files
// are ignored; variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the settings from getenv, starting from Default
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()
	var err error

	if v := getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := getenv(EnvPort); v != "" {
		if c.Port, err = strconv.Atoi(v); err != nil || c.Port < 0 || c.Port > 65535 {
			return Config{}, fmt.Errorf("%s: bad port %q", EnvPort, v)
		}
	}
	if v := getenv(EnvTier); v != "" {
		if c.Tier, err = engine.ParseTier(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvTier, err)
		}
	}
	if v := getenv(EnvExternalAddr); v != "" {
		c.ExternalAddr = v
	}
	c.RescoreURL = strings.TrimSpace(getenv(EnvRescoreURL))
	if v := getenv(EnvRescoreModel); v != "" {
		c.RescoreModel = v
	}
	if v := getenv(EnvRescoreTimeout); v != "" {
		if c.RescoreTimeout, err = time.ParseDuration(v); err != nil || c.RescoreTimeout <= 0 {
			return Config{}, fmt.Errorf("%s: bad duration %q", EnvRescoreTimeout, v)
		}
	}
	if v := getenv(EnvLogLevel); v != "" {
		if c.LogLevel, err = zerolog.ParseLevel(strings.ToLower(v)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}
	return c, nil
}

// NewLogger returns a console logger at the configured level
func (c Config) NewLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(c.LogLevel).
		With().Timestamp().Logger()
}

// Rescorer returns a rescore client, or nil when no URL is configured
func (c Config) Rescorer(logger *zerolog.Logger) *rescore.Client {
	if c.RescoreURL == "" {
		return nil
	}
	return rescore.New(rescore.Config{
		BaseURL: c.RescoreURL,
		Model:   c.RescoreModel,
		Logger:  logger,
	})
}

// EngineOptions returns the engine options for the configured tier
func (c Config) EngineOptions(logger *zerolog.Logger) engine.EngineOptions {
	opts := engine.EngineOptions{
		Tier:           c.Tier,
		RescoreTimeout: c.RescoreTimeout,
		Logger:         logger,
	}
	if r := c.Rescorer(logger); r != nil {
		opts.Rescorer = r
	}
	return opts
}
