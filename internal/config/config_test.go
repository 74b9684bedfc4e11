package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/pkg/engine"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if c != Default() {
		t.Errorf("FromEnv(empty) = %+v, want defaults", c)
	}
	if c.Rescorer(nil) != nil {
		t.Error("no URL should mean no rescorer")
	}
	if opts := c.EngineOptions(nil); opts.Rescorer != nil {
		t.Error("engine options should carry a nil Rescorer interface")
	}
}

func TestFromEnv(t *testing.T) {
	c, err := FromEnv(envMap(map[string]string{
		EnvHost:           "0.0.0.0",
		EnvPort:           "9000",
		EnvTier:           "Superior",
		EnvExternalAddr:   "127.0.0.1:4321",
		EnvRescoreURL:     " http://ollama:11434 ",
		EnvRescoreModel:   "llama3",
		EnvRescoreTimeout: "5s",
		EnvLogLevel:       "DEBUG",
	}))
	if err != nil {
		t.Fatal(err)
	}

	want := Config{
		Host:           "0.0.0.0",
		Port:           9000,
		Tier:           engine.TierSuperior,
		ExternalAddr:   "127.0.0.1:4321",
		RescoreURL:     "http://ollama:11434",
		RescoreModel:   "llama3",
		RescoreTimeout: 5 * time.Second,
		LogLevel:       zerolog.DebugLevel,
	}
	if c != want {
		t.Errorf("FromEnv = %+v\nwant %+v", c, want)
	}

	r := c.Rescorer(nil)
	if r == nil || r.Model() != "llama3" {
		t.Fatalf("Rescorer = %v", r)
	}
	opts := c.EngineOptions(nil)
	if opts.Tier != engine.TierSuperior || opts.RescoreTimeout != 5*time.Second || opts.Rescorer == nil {
		t.Errorf("EngineOptions = %+v", opts)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{EnvPort, "eighty"},
		{EnvPort, "70000"},
		{EnvTier, "grandmaster"},
		{EnvRescoreTimeout, "soon"},
		{EnvRescoreTimeout, "-1s"},
		{EnvLogLevel, "loud"},
	}
	for _, tc := range tests {
		if _, err := FromEnv(envMap(map[string]string{tc.key: tc.value})); err == nil || !strings.Contains(err.Error(), tc.key) {
			t.Errorf("%s=%q: err = %v", tc.key, tc.value, err)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("BG_TIER=advanced\nBG_PORT=8181\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// godotenv does not override variables that are already set
	t.Setenv(EnvPort, "8282")
	t.Setenv(EnvTier, "")
	os.Unsetenv(EnvTier)

	c, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Tier != engine.TierAdvanced {
		t.Errorf("Tier = %v, want advanced from the file", c.Tier)
	}
	if c.Port != 8282 {
		t.Errorf("Port = %d, want the environment value 8282", c.Port)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := Default()
	c.LogLevel = zerolog.WarnLevel
	logger := c.NewLogger(&buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("log output = %q", out)
	}
}
