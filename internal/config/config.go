package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is lorecrafter.yaml. Environment variables (optionally from .env)
// override file values; API keys come only from the environment.
type Config struct {
	Version      int                `yaml:"version"`
	Server       ServerConfig       `yaml:"server"`
	Assets       AssetsConfig       `yaml:"assets"`
	LLM          LLMConfig          `yaml:"llm"`
	Cache        CacheConfig        `yaml:"cache"`
	Playthroughs PlaythroughsConfig `yaml:"playthroughs"`
	Events       EventsConfig       `yaml:"events"`
}

type ServerConfig struct {
	Port       int    `yaml:"port" env:"LORECRAFTER_PORT"`
	CORSOrigin string `yaml:"cors_origin" env:"LORECRAFTER_CORS_ORIGIN"`
}

type AssetsConfig struct {
	Dir  string   `yaml:"dir" env:"LORECRAFTER_ASSETS_DIR"`
	Size int      `yaml:"size" env:"LORECRAFTER_ASSET_SIZE"`
	S3   S3Config `yaml:"s3"`
}

// S3Config enables the object-storage mirror when Bucket is set.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" env:"LORECRAFTER_S3_ENDPOINT"`
	Region    string `yaml:"region" env:"LORECRAFTER_S3_REGION"`
	Bucket    string `yaml:"bucket" env:"LORECRAFTER_S3_BUCKET"`
	Prefix    string `yaml:"prefix" env:"LORECRAFTER_S3_PREFIX"`
	UseSSL    bool   `yaml:"use_ssl" env:"LORECRAFTER_S3_USE_SSL"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"LORECRAFTER_LLM_PROVIDER"`
	Model       string        `yaml:"model" env:"LORECRAFTER_LLM_MODEL"`
	Attempts    int           `yaml:"attempts" env:"LORECRAFTER_LLM_ATTEMPTS"`
	Temperature float32       `yaml:"temperature" env:"LORECRAFTER_LLM_TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"LORECRAFTER_LLM_TIMEOUT"`
	GroqAPIKey  string        `yaml:"-"`
	GeminiKey   string        `yaml:"-"`
}

type CacheConfig struct {
	Size int           `yaml:"size" env:"LORECRAFTER_CACHE_SIZE"`
	TTL  time.Duration `yaml:"ttl" env:"LORECRAFTER_CACHE_TTL"`
}

type PlaythroughsConfig struct {
	Store            string        `yaml:"store" env:"LORECRAFTER_PLAYTHROUGH_STORE"`
	Path             string        `yaml:"path" env:"LORECRAFTER_PLAYTHROUGH_DB"`
	AssetLoadTimeout time.Duration `yaml:"asset_load_timeout" env:"LORECRAFTER_ASSET_LOAD_TIMEOUT"`
	MaxSessions      int           `yaml:"max_sessions" env:"LORECRAFTER_MAX_SESSIONS"`
	SessionIdle      time.Duration `yaml:"session_idle" env:"LORECRAFTER_SESSION_IDLE"`
}

type EventsConfig struct {
	Instance     string     `yaml:"instance" env:"LORECRAFTER_INSTANCE"`
	Postgres     bool       `yaml:"postgres" env:"LORECRAFTER_EVENTS_POSTGRES"`
	AlertWebhook string     `yaml:"alert_webhook" env:"LORECRAFTER_ALERT_WEBHOOK"`
	MQTT         MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled" env:"LORECRAFTER_MQTT_ENABLED"`
	Broker   string `yaml:"broker" env:"MQTT_URL"`
	ClientID string `yaml:"client_id" env:"LORECRAFTER_MQTT_CLIENT_ID"`
	Prefix   string `yaml:"prefix" env:"LORECRAFTER_MQTT_PREFIX"`
	Username string `yaml:"username" env:"LORECRAFTER_MQTT_USER"`
	Password string `yaml:"-"`
}

const (
	ProviderGroq    = "groq"
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version: 1,
		Server:  ServerConfig{Port: 8000, CORSOrigin: "*"},
		Assets:  AssetsConfig{Dir: "assets", Size: 512},
		LLM: LLMConfig{
			Provider:    ProviderGroq,
			Attempts:    3,
			Temperature: 0.8,
			Timeout:     60 * time.Second,
		},
		Cache: CacheConfig{Size: 256, TTL: 24 * time.Hour},
		Playthroughs: PlaythroughsConfig{
			Store:            StoreMemory,
			Path:             "lorecrafter.db",
			AssetLoadTimeout: 5 * time.Second,
			MaxSessions:      10000,
			SessionIdle:      2 * time.Hour,
		},
		Events: EventsConfig{
			Instance: "lorecrafter",
			MQTT:     MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "lorecrafter", Prefix: "lorecrafter"},
		},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies .env,
// environment overrides and secrets.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.Version != 1 {
			return nil, fmt.Errorf("unsupported lorecrafter.yaml version: %d", cfg.Version)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var problems []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Assets.Dir == "" {
		problems = append(problems, errors.New("assets.dir is required"))
	}
	if c.Assets.Size < 256 {
		problems = append(problems, fmt.Errorf("assets.size %d below 256", c.Assets.Size))
	}
	switch c.LLM.Provider {
	case ProviderGroq, ProviderGemini, ProviderOffline:
	default:
		problems = append(problems, fmt.Errorf("llm.provider %q unknown", c.LLM.Provider))
	}
	if c.LLM.Attempts < 1 {
		problems = append(problems, errors.New("llm.attempts must be at least 1"))
	}
	switch c.Playthroughs.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.Playthroughs.Path == "" {
			problems = append(problems, errors.New("playthroughs.path is required for sqlite"))
		}
	default:
		problems = append(problems, fmt.Errorf("playthroughs.store %q unknown", c.Playthroughs.Store))
	}
	if c.Playthroughs.AssetLoadTimeout <= 0 {
		problems = append(problems, errors.New("playthroughs.asset_load_timeout must be positive"))
	}
	if c.Events.MQTT.Enabled && c.Events.MQTT.Broker == "" {
		problems = append(problems, errors.New("events.mqtt.broker is required when mqtt is enabled"))
	}
	return errors.Join(problems...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
