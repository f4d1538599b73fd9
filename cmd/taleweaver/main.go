package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"taleweaver/internal/config"
	"taleweaver/internal/pipeline"
	"taleweaver/internal/speech"
	"taleweaver/internal/storage"
	"taleweaver/internal/story"
	"taleweaver/internal/transcribe"
	"taleweaver/internal/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		slog.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		slog.Error("failed to build story generator", "error", err)
		os.Exit(1)
	}

	synth, err := newSynthesizer(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to build synthesizer", "error", err)
		os.Exit(1)
	}

	store := storage.NewS3Store(awsCfg)
	runner := transcribe.NewRunner(transcribe.NewAWSService(awsCfg), transcribe.RunnerConfig{
		PollInterval: cfg.Transcribe.PollInterval,
		MaxInterval:  cfg.Transcribe.MaxInterval,
		MaxWait:      cfg.Transcribe.MaxWait,
	})

	p := pipeline.New(store, runner, gen, synth, pipeline.Config{
		Bucket:           cfg.Storage.Bucket,
		AudioPrefix:      cfg.Storage.AudioPrefix,
		TranscriptPrefix: cfg.Storage.TranscriptPrefix,
		MediaFormat:      cfg.Transcribe.MediaFormat,
		LanguageCode:     cfg.Transcribe.LanguageCode,
	})

	app := web.NewApp(logger, p, cfg.Server.ScratchDir)
	app.StartCleanupLoop(ctx, 30*time.Minute, cfg.Server.SessionTTL)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", cfg.Addr(), "story_backend", gen.Name(), "speech_backend", synth.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	slog.Info("server stopped")
}

func newGenerator(cfg *config.Config) (story.Generator, error) {
	switch cfg.Story.Backend {
	case "anthropic":
		return story.NewAnthropicGenerator(cfg.Story.AnthropicKey, cfg.Story.Model, cfg.Story.MaxTokens), nil
	case "openai":
		return story.NewOpenAIGenerator(cfg.Story.OpenAIKey, cfg.Story.OpenAIModel, cfg.Story.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown STORY_BACKEND %q", cfg.Story.Backend)
	}
}

func newSynthesizer(cfg *config.Config, awsCfg aws.Config) (speech.Synthesizer, error) {
	switch cfg.Speech.Backend {
	case "polly":
		return speech.NewPollySynthesizer(awsCfg, cfg.Speech.Voice, cfg.Speech.Engine), nil
	case "openai":
		return speech.NewOpenAISynthesizer(cfg.Speech.OpenAIKey, cfg.Speech.OpenAIModel, cfg.Speech.OpenAIVoice), nil
	default:
		return nil, fmt.Errorf("unknown SPEECH_BACKEND %q", cfg.Speech.Backend)
	}
}
