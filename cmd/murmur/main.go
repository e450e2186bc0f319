// Murmur is a meeting transcription and dictation daemon. It records the
// microphone, transcribes it in chunks, keeps recordings and transcripts in
// a local history and supervises a local speech-synthesis service.
//
// Usage:
//
//	murmur [flags]
//	murmur --config /path/to/murmur.yaml
package main

//go:generate swag init -g cmd/murmur/main.go -d ../../ -o ../../docs

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/murmur/internal/capture"
	"github.com/nadzzz/murmur/internal/capture/portaudio"
	"github.com/nadzzz/murmur/internal/config"
	"github.com/nadzzz/murmur/internal/events"
	"github.com/nadzzz/murmur/internal/health"
	"github.com/nadzzz/murmur/internal/meeting"
	"github.com/nadzzz/murmur/internal/store"
	"github.com/nadzzz/murmur/internal/supervisor"
	"github.com/nadzzz/murmur/internal/transcribe"
	localtr "github.com/nadzzz/murmur/internal/transcribe/local"
	openaitr "github.com/nadzzz/murmur/internal/transcribe/openai"
	"github.com/nadzzz/murmur/internal/translate"
	"github.com/nadzzz/murmur/internal/transport"
	grpctransport "github.com/nadzzz/murmur/internal/transport/grpc"
	httptransport "github.com/nadzzz/murmur/internal/transport/http"
	mqtttransport "github.com/nadzzz/murmur/internal/transport/mqtt"
	"github.com/nadzzz/murmur/internal/tts"
	"github.com/nadzzz/murmur/internal/tts/service"
)

// version is set at build time via ldflags.
var version = "dev"

// @title       murmur API
// @version     1.0
// @description Meeting transcription, dictation history and speech synthesis daemon.
// @BasePath    /
func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/murmur.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	if err := run(*configFile); err != nil {
		slog.Error("murmur failed", "error", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	// Load configuration; the file is watched for changes.
	live, err := config.LoadLive(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := live.Current()

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("murmur starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bus := events.New()
	defer bus.Close()

	st, err := store.Open(cfg.Storage.DataDir, storeOptions(cfg))
	if err != nil {
		return err
	}
	defer st.Close()
	st.SetEmitter(bus)
	slog.Info("history store opened", "data_dir", cfg.Storage.DataDir, "retention", cfg.Storage.Retention)

	// Initialize the transcription backend.
	var engine transcribe.Engine
	switch cfg.Transcription.Backend {
	case "openai":
		engine = openaitr.New(cfg.Transcription.OpenAI, cfg.Transcription.Language)
		slog.Info("using OpenAI transcription", "model", cfg.Transcription.OpenAI.Model)
	case "local":
		engine = localtr.New(cfg.Transcription.Local, cfg.Transcription.Language)
		slog.Info("using local transcription",
			"endpoint", cfg.Transcription.Local.Endpoint,
			"type", cfg.Transcription.Local.Type)
	default:
		return fmt.Errorf("unknown transcription backend %q", cfg.Transcription.Backend)
	}
	defer engine.Close()

	recorder := capture.NewRecorder(portaudio.New(cfg.Audio.FramesPerBuffer), cfg.Audio.SampleRate)
	defer func() {
		if err := recorder.StopStream(); err != nil {
			slog.Warn("closing capture stream", "error", err)
		}
	}()

	meetings := meeting.New(recorder, engine, st, bus, meeting.Options{
		ChunkInterval: cfg.Meetings.ChunkInterval,
		SpeakerLabel:  cfg.Meetings.SpeakerLabel,
		Language:      cfg.Transcription.Language,
	})

	sup := supervisor.New(supervisor.Config{
		Interpreter:    cfg.TTS.Interpreter,
		Script:         cfg.TTS.Script,
		ResourceDir:    cfg.TTS.ResourceDir,
		Port:           cfg.TTS.Port,
		HealthInterval: cfg.TTS.HealthInterval,
		Enabled:        func() bool { return live.Current().TTS.Enabled },
	}, bus)
	defer sup.Close()
	if cfg.TTS.Enabled {
		sup.Start()
	}

	speaker := tts.NewSpeaker(service.New(cfg.TTS.Endpoint), sup, st,
		func() tts.SynthesizeOpts {
			c := live.Current().TTS
			return tts.SynthesizeOpts{Voice: c.Voice, Speed: c.Speed, ModelID: c.ModelID}
		},
		func() []string { return live.Current().TTS.Voices },
	)
	translator := translate.New(recorder, engine)

	live.OnChange(func(c *config.Config) {
		config.SetupLogging(c.Logging)
		st.SetOptions(storeOptions(c))
		if c.TTS.Enabled {
			sup.Start()
		} else if sup.IsRunning() {
			slog.Info("tts disabled in configuration, stopping service")
			sup.Stop()
		}
	})

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, httptransport.Deps{
			Meetings:   meetings,
			History:    st,
			Speaker:    speaker,
			Service:    sup,
			Translator: translator,
			Events:     bus,
		}))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port, cfg.TTS.HealthInterval,
			map[string]grpctransport.Check{"tts": sup.IsRunning}))
	}
	if cfg.Transports.MQTT.Enabled {
		m := mqtttransport.New(cfg.Transports.MQTT.Broker, cfg.Transports.MQTT.Topic, cfg.Transports.MQTT.ClientID)
		bus.AddSink(m)
		transports = append(transports, m)
	}

	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort)
	healthServer.AddCheck("meeting_active", meetings.IsActive)
	healthServer.AddCheck("tts_running", sup.IsRunning)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.ListenAndServe(gctx) })

	// Start all transports.
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx); err != nil {
				return fmt.Errorf("transport %s: %w", t.Name(), err)
			}
			return nil
		})
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("murmur ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal or a server failure.
	<-gctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// A running meeting is finalized so its record gets an end timestamp.
	if err := meetings.Stop(context.Background()); err != nil {
		slog.Error("stopping active meeting", "error", err)
	}
	meetings.Wait()

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	err = g.Wait()
	slog.Info("murmur stopped")
	return err
}

func storeOptions(c *config.Config) store.Options {
	return store.Options{Retention: c.Storage.Retention, HistoryLimit: c.Storage.HistoryLimit}
}
