package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/fractal-go/fractal"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	r, err := fractal.NewRenderer(
		fractal.WithImageSize(fractal.DefaultImageWidth, fractal.DefaultImageHeight),
		fractal.WithViewport(fractal.DefaultViewportWidth, fractal.DefaultViewportHeight),
		fractal.WithOutputPath(fractal.DefaultOutputPath),
		fractal.WithCPUFallback(true),
		fractal.WithLogger(logger),
	)
	if err != nil {
		logger.Error("invalid render configuration", "error", err)
		os.Exit(1)
	}

	if err := r.RenderToFile(); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

// logLevel reads FRACTAL_LOG_LEVEL from the environment, defaulting to info.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("FRACTAL_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
