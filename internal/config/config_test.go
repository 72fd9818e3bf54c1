package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `version: 1
server:
  port: 9000
assets:
  dir: /var/lib/lorecrafter/assets
  size: 1024
  s3:
    endpoint: minio:9000
    bucket: lore
llm:
  provider: gemini
  model: gemini-2.0-flash
  attempts: 2
  timeout: 30s
cache:
  ttl: 1h
playthroughs:
  store: sqlite
  path: /var/lib/lorecrafter/state.db
  asset_load_timeout: 2s
events:
  instance: hall-a
  mqtt:
    enabled: true
    broker: tcp://broker:1883
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lorecrafter.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != ":9000" {
		t.Errorf("addr = %s", cfg.Addr())
	}
	if cfg.Assets.Size != 1024 || !cfg.Assets.S3.Enabled() {
		t.Errorf("unexpected assets %+v", cfg.Assets)
	}
	if cfg.LLM.Provider != ProviderGemini || cfg.LLM.Attempts != 2 || cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("unexpected llm %+v", cfg.LLM)
	}
	if cfg.Cache.TTL != time.Hour || cfg.Cache.Size != 256 {
		t.Errorf("unexpected cache %+v", cfg.Cache)
	}
	if cfg.Playthroughs.Store != StoreSQLite || cfg.Playthroughs.AssetLoadTimeout != 2*time.Second {
		t.Errorf("unexpected playthroughs %+v", cfg.Playthroughs)
	}
	if !cfg.Events.MQTT.Enabled || cfg.Events.MQTT.Prefix != "lorecrafter" {
		t.Errorf("unexpected mqtt %+v", cfg.Events.MQTT)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("LORECRAFTER_PORT", "7000")
	t.Setenv("LORECRAFTER_LLM_PROVIDER", "offline")
	t.Setenv("LORECRAFTER_ASSET_LOAD_TIMEOUT", "750ms")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.LLM.Provider != ProviderOffline {
		t.Errorf("env did not override: %+v %+v", cfg.Server, cfg.LLM)
	}
	if cfg.Playthroughs.AssetLoadTimeout != 750*time.Millisecond {
		t.Errorf("asset timeout = %s", cfg.Playthroughs.AssetLoadTimeout)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Assets.Size != 512 || cfg.Playthroughs.Store != StoreMemory {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Playthroughs.MaxSessions != 10000 || cfg.Playthroughs.SessionIdle != 2*time.Hour {
		t.Errorf("unexpected session limits %+v", cfg.Playthroughs)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	if _, err := Load(writeConfig(t, "version: 2\n")); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("expected version error, got %v", err)
	}
	if _, err := Load(writeConfig(t, "version: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Assets.Size = 64
	cfg.LLM.Provider = "openai"
	cfg.Playthroughs.Store = "redis"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"assets.size", "llm.provider", "playthroughs.store"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
