package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/josh0272/lylov2/internal/api"
	"github.com/josh0272/lylov2/internal/config"
	"github.com/josh0272/lylov2/internal/mailer"
	"github.com/josh0272/lylov2/internal/transcribe"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevels[cfg.Server.LogLevel],
	})))

	// The model is loaded once here and shared by every request.
	transcriber, err := transcribe.New(cfg.Whisper.ModelPath(), transcribe.Options{
		Language:    cfg.Whisper.Language,
		BeamSize:    cfg.Whisper.BeamSize,
		Concurrency: cfg.Whisper.Concurrency,
	})
	if err != nil {
		slog.Error("load whisper model", "path", cfg.Whisper.ModelPath(), "err", err)
		os.Exit(1)
	}
	defer transcriber.Close()
	slog.Info("model loaded", "size", cfg.Whisper.ModelSize, "compute", cfg.Whisper.Compute)

	dispatcher := mailer.New(cfg.Email)
	if !dispatcher.Configured() {
		slog.Warn("email not configured, /api/submit will fail closed")
	}

	handlers := api.NewHandler(transcriber, dispatcher, cfg)

	router := gin.Default()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	handlers.RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
