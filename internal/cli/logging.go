package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"github.com/vietddude/stylelog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vietddude/luna/internal/core/config"
)

// logCloser closes the rotating log file, if any.
var logCloser io.Closer

func parseLevel(level string) slog.Level {
	switch level {
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

// setupLogging installs the default logger: colored output on stderr and,
// when configured, a rotating plain-text file.
func setupLogging(cfg config.LoggingConfig, debug bool) (io.Closer, error) {
	level := parseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})

	if cfg.File == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    5, // MB
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}
	fileHandler := tint.NewHandler(file, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	})
	slog.SetDefault(slog.New(slogmulti.Fanout(slog.Default().Handler(), fileHandler)))
	return file, nil
}
