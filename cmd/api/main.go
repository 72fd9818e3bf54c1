package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AaronLay10/lorecrafter/internal/api"
	"github.com/AaronLay10/lorecrafter/internal/assets"
	"github.com/AaronLay10/lorecrafter/internal/config"
	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/imagegen"
	"github.com/AaronLay10/lorecrafter/internal/mqtt"
	"github.com/AaronLay10/lorecrafter/internal/orchestrator"
	"github.com/AaronLay10/lorecrafter/internal/pixelart"
	"github.com/AaronLay10/lorecrafter/internal/storage/postgres"
	"github.com/AaronLay10/lorecrafter/internal/storage/sqlite"
	"github.com/AaronLay10/lorecrafter/internal/story"
	"github.com/AaronLay10/lorecrafter/internal/version"
)

func main() {
	configPath := flag.String("config", os.Getenv("LORECRAFTER_CONFIG"), "path to lorecrafter.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events.SetOutput(os.Stdout)
	api.InitMetrics(cfg.Events.Instance)
	api.InitAlerts(cfg.Events.AlertWebhook)

	if cfg.Events.Postgres {
		pg, err := postgres.New(postgres.ConnString(), cfg.Events.Instance)
		if err != nil {
			log.Printf("postgres unavailable, events stay in memory: %v", err)
			api.SetPostgresStatus(false, false)
		} else {
			defer pg.Close()
			events.SetPostgresClient(pg)
			api.SetPostgresStatus(true, false)
			go watchPostgres(ctx, pg)
		}
	} else {
		api.SetPostgresStatus(false, true)
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		log.Fatalf("failed to set up assets: %v", err)
	}
	images := imagegen.New(pixelart.DefaultCatalog(), exporter)

	llm, err := newLLM(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up story backend: %v", err)
	}
	stories := story.NewService(llm,
		story.WithAttempts(cfg.LLM.Attempts),
		story.WithCache(story.NewCache(cfg.Cache.Size, cfg.Cache.TTL)),
	)

	if err := images.Prewarm(ctx); err != nil {
		log.Printf("fallback images not written: %v", err)
		api.SetGeneratorReady(false, stories.Backend())
	} else {
		api.SetGeneratorReady(true, stories.Backend())
	}

	var store orchestrator.Store = orchestrator.NewMemoryStore()
	if cfg.Playthroughs.Store == config.StoreSQLite {
		db, err := sqlite.Open(cfg.Playthroughs.Path)
		if err != nil {
			log.Fatalf("failed to open playthrough store: %v", err)
		}
		defer db.Close()
		store = db
	}
	sessions := orchestrator.NewSessions(store,
		orchestrator.WithAssetResolver(exporter, cfg.Playthroughs.AssetLoadTimeout)).
		WithLimits(cfg.Playthroughs.MaxSessions, cfg.Playthroughs.SessionIdle)
	if n, err := sessions.RestoreAll(ctx); err != nil {
		log.Printf("restored %d sessions, some failed: %v", n, err)
	} else if n > 0 {
		log.Printf("restored %d sessions", n)
	}

	if cfg.Events.MQTT.Enabled {
		client := startMQTT(cfg.Events.MQTT, sessions)
		defer client.Disconnect()
		events.AddSink("mqtt", mqtt.NewEventSink(client, client.Prefix()))
	} else {
		api.SetMQTTStatus(false, true)
	}
	api.StartAlertMonitor(ctx, 10*time.Second)

	auth, err := api.AuthFromEnv()
	if err != nil {
		log.Fatalf("failed to resolve credentials: %v", err)
	}

	server := api.NewServer(api.Options{
		Stories:    stories,
		Images:     images,
		Sessions:   sessions,
		AssetsDir:  cfg.Assets.Dir,
		CORSOrigin: cfg.Server.CORSOrigin,
		Auth:       auth,
		TLS:        api.TLSFromEnv(),
	})

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "lorecrafter starting", map[string]interface{}{
		"service":       "api",
		"version":       version.Version,
		"hostname":      hostname,
		"pid":           os.Getpid(),
		"story_backend": stories.Backend(),
		"store":         cfg.Playthroughs.Store,
		"auth":          auth.Enabled(),
	})

	err = server.ListenAndServe(ctx, cfg.Addr())
	events.Emit("info", "system.shutdown", "lorecrafter stopping", nil)
	if err != nil {
		log.Fatalf("api server failed: %v", err)
	}
}

func newExporter(cfg *config.Config) (*assets.Exporter, error) {
	dir, err := assets.NewDirStore(cfg.Assets.Dir)
	if err != nil {
		return nil, err
	}
	var store assets.Store = dir

	if s3cfg := cfg.Assets.S3; s3cfg.Enabled() {
		s3, err := assets.NewS3Store(assets.S3Config{
			Endpoint:  s3cfg.Endpoint,
			Region:    s3cfg.Region,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Bucket:    s3cfg.Bucket,
			Prefix:    s3cfg.Prefix,
			UseSSL:    s3cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		store = assets.NewMirrorStore(dir, s3, func(name string, err error) {
			events.Emit("warn", "system.error", "asset mirror failed", map[string]interface{}{
				"source": "s3",
				"name":   name,
				"error":  err.Error(),
			})
		})
		log.Printf("assets mirrored to s3://%s/%s", s3cfg.Bucket, s3cfg.Prefix)
	}
	return assets.NewExporter(store, cfg.Assets.Size), nil
}

func newLLM(ctx context.Context, cfg *config.Config) (story.LLM, error) {
	if !cfg.HasLLMKey() {
		log.Printf("llm.provider %s has no API key, using the offline storyteller", cfg.LLM.Provider)
		return story.OfflineLLM{}, nil
	}
	switch cfg.LLM.Provider {
	case config.ProviderGroq:
		return story.NewGroqClient(cfg.LLM.GroqAPIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.Timeout)
	case config.ProviderGemini:
		return story.NewGeminiClient(ctx, cfg.LLM.GeminiKey, cfg.LLM.Model, cfg.LLM.Temperature)
	default:
		return story.OfflineLLM{}, nil
	}
}

// startMQTT connects the event fan-out and command client. Readiness and
// command subscriptions follow the connection through paho's callbacks.
func startMQTT(cfg config.MQTTConfig, sessions *orchestrator.Sessions) *mqtt.Client {
	var cmds *mqtt.Commands
	client := mqtt.NewClient(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
		Prefix:   cfg.Prefix,
		OnConnect: func() {
			api.SetMQTTStatus(true, false)
			if err := cmds.Subscribe(); err != nil {
				log.Printf("mqtt: command subscribe failed: %v", err)
			}
		},
		OnConnectionLost: func(error) {
			api.SetMQTTStatus(false, false)
			cmds.ClearSubscriptions()
		},
	})
	cmds = mqtt.NewCommands(client, sessions, client.Prefix())
	api.SetMQTTStatus(false, false)
	client.StartWithRetry()
	return client
}

// watchPostgres keeps readiness (and so outage alerts) in step with the
// event database.
func watchPostgres(ctx context.Context, pg *postgres.Client) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		api.SetPostgresStatus(pg.Ping() == nil, false)
	}
}
