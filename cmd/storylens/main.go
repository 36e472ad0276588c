package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/soochol/storylens/internal/api"
	"github.com/soochol/storylens/internal/config"
	"github.com/soochol/storylens/internal/narrative"
	"github.com/soochol/storylens/internal/services"
	"github.com/soochol/storylens/internal/speech"
	"github.com/soochol/storylens/internal/storage"
	"github.com/soochol/storylens/internal/vision"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		if err := serve(); err != nil {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println("storylens v" + version)
	fmt.Println("Usage: storylens serve")
}

func serve() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "err", err)
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewLocalStorage(cfg.Storage.UploadDir, storage.Options{
		MaxFileSize:       cfg.Storage.MaxFileSize,
		AllowedExtensions: cfg.Storage.AllowedExtensions,
		AudioFormat:       cfg.AI.AudioFormat,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	// Backend probes run concurrently; each falls back on its own.
	var (
		captioner *vision.Captioner
		synth     *speech.Synthesizer
	)
	var g errgroup.Group
	g.Go(func() error {
		captioner = vision.FromConfig(ctx, cfg.Caption, cfg.AI.MaxStoryLength)
		return nil
	})
	g.Go(func() error {
		synth = speech.FromConfig(ctx, cfg.Speech, cfg.AI)
		return nil
	})
	g.Wait()
	slog.Info("models ready",
		"captioner", captioner.ModelUsed(),
		"speech", synth.ModelName(),
		"device", cfg.AI.Device)

	srv := api.NewServer(cfg, store,
		services.NewStoryService(store, captioner, narrative.New()),
		services.NewAudioService(store, synth, cfg.AI.AudioFormat))
	if cfg.Metrics.Enabled {
		srv.SetMetricsEndpoint(cfg.Metrics.Endpoint)
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	if cfg.Storage.AudioRetention > 0 {
		janitor, err := services.NewAudioJanitor(store, cfg.Storage.AudioRetention, cfg.Storage.CleanupSchedule)
		if err != nil {
			return err
		}
		group.Go(func() error {
			janitor.Start(gctx)
			return nil
		})
	}
	group.Go(func() error {
		slog.Info("starting storylens server", "addr", httpSrv.Addr, "upload_dir", store.BaseDir())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
