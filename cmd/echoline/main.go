// Echoline is a voice turn daemon: it transcribes a recorded capture, asks a
// language model for a short reply, and speaks the reply back as MP3.
//
// Usage:
//
//	echoline [flags]
//	echoline --config /path/to/echoline.yaml
//
//	@title			echoline API
//	@version		1.0
//	@description	Voice turn pipeline: speech-to-text, reply generation, and text-to-speech.
//	@BasePath		/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/nadzzz/echoline/docs"
	"github.com/nadzzz/echoline/internal/config"
	"github.com/nadzzz/echoline/internal/health"
	"github.com/nadzzz/echoline/internal/llm/gemini"
	"github.com/nadzzz/echoline/internal/message"
	"github.com/nadzzz/echoline/internal/pipeline"
	"github.com/nadzzz/echoline/internal/stt/deepgram"
	"github.com/nadzzz/echoline/internal/transport"
	grpctransport "github.com/nadzzz/echoline/internal/transport/grpc"
	httptransport "github.com/nadzzz/echoline/internal/transport/http"
	"github.com/nadzzz/echoline/internal/tts/cartesia"
	"github.com/nadzzz/echoline/internal/voices"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/echoline.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("echoline %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("echoline starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Provider clients. Missing credentials are reported per call.
	transcriber := deepgram.New(cfg.Deepgram)
	generator := gemini.New(cfg.Gemini)
	synthesizer := cartesia.New(cfg.Cartesia)
	defaultVoice := synthesizer.DefaultVoiceID()
	slog.Info("providers configured",
		"stt_model", cfg.Deepgram.Model,
		"llm_model", cfg.Gemini.Model,
		"tts_model", cfg.Cartesia.ModelID,
		"default_voice_set", defaultVoice != "")

	healthServer := health.New(cfg.Server.HealthPort)

	// Voice catalog cache.
	var store voices.Store
	switch cfg.Voices.Cache {
	case "redis":
		rs, err := voices.NewRedisStore(ctx, cfg.Voices.Redis)
		if err != nil {
			slog.Error("failed to connect voice cache", "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		healthServer.AddCheck("redis", rs.Ping)
		store = rs
		slog.Info("using redis voice cache", "addr", cfg.Voices.Redis.Addr)
	default:
		store = voices.NewMemoryStore(nil)
	}
	catalog := voices.NewCatalog(synthesizer, store, cfg.Voices.TTL, synthesizer.APIKey(), synthesizer.Version())

	p := pipeline.New(transcriber, generator, synthesizer,
		pipeline.WithDefaultVoice(defaultVoice),
		pipeline.WithDefaultLanguage(cfg.Pipeline.DefaultLanguage),
		pipeline.WithPreviewText(cfg.Pipeline.PreviewText),
		pipeline.WithObserver(func(turn *pipeline.Turn, from, to pipeline.State) {
			slog.Debug("turn transition", "turn_id", turn.ID, "from", from, "to", to)
		}),
	)

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port, map[string]bool{
			grpctransport.ServiceSTT: cfg.Deepgram.APIKey != "",
			grpctransport.ServiceLLM: cfg.Gemini.APIKey != "",
			grpctransport.ServiceTTS: cfg.Cartesia.APIKey != "",
		}))
	}
	if cfg.Transports.HTTP.Enabled {
		status := message.Status{
			Deepgram:       cfg.Deepgram.APIKey != "",
			Gemini:         cfg.Gemini.APIKey != "",
			Cartesia:       cfg.Cartesia.APIKey != "",
			DefaultVoiceID: defaultVoice,
			Languages:      cfg.Pipeline.Languages,
		}
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, p, catalog, status))
	}

	if len(transports) == 0 {
		slog.Error("no transports enabled, enable at least one in config")
		os.Exit(1)
	}

	// Start health check server.
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("echoline ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("echoline stopped")
}
