// Command bgserver runs the bgengine REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/internal/config"
	"github.com/yourusername/bgengine/pkg/api"
	"github.com/yourusername/bgengine/pkg/engine"
)

const version = "0.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Command line flags override the environment
	host := flag.String("host", cfg.Host, "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", cfg.Port, "Port to listen on")
	tier := flag.String("tier", cfg.Tier.String(), "Engine tier: basic, advanced or superior")
	rescoreURL := flag.String("rescore-url", cfg.RescoreURL, "Base URL of the rescoring service (empty = disabled)")
	rescoreModel := flag.String("rescore-model", cfg.RescoreModel, "Model name sent to the rescoring service")
	rescoreTimeout := flag.Duration("rescore-timeout", cfg.RescoreTimeout, "Rescoring request timeout")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 0, "HTTP write timeout (0 = none, needed for long streams)")
	slowWorkers := flag.Int("slow-workers", 4, "Concurrent deep analyses")
	verbose := flag.Bool("v", false, "Debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("bgserver v%s\n", version)
		os.Exit(0)
	}

	if cfg.Tier, err = engine.ParseTier(*tier); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.RescoreURL = *rescoreURL
	cfg.RescoreModel = *rescoreModel
	cfg.RescoreTimeout = *rescoreTimeout
	if *verbose {
		cfg.LogLevel = zerolog.DebugLevel
	}

	logger := cfg.NewLogger(os.Stderr)
	logger.Info().Str("version", version).Str("tier", cfg.Tier.String()).Msg("bgserver starting")

	eng, err := engine.NewEngine(cfg.EngineOptions(&logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create engine")
	}

	if r := cfg.Rescorer(&logger); r != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ok := r.Available(ctx)
		cancel()
		if ok {
			logger.Info().Str("url", cfg.RescoreURL).Str("model", r.Model()).Msg("rescorer available")
		} else {
			logger.Warn().Str("url", cfg.RescoreURL).Msg("rescorer not reachable, requests will fall back to the heuristic")
		}
	}

	server := api.NewServer(eng, api.ServerConfig{
		Host:           *host,
		Port:           *port,
		ReadTimeout:    *readTimeout,
		WriteTimeout:   *writeTimeout,
		IdleTimeout:    60 * time.Second,
		MaxSlowWorkers: *slowWorkers,
		Logger:         &logger,
	}, version)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
