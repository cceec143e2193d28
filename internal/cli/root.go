package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/luna/internal/control"
	"github.com/vietddude/luna/internal/core/config"
)

var (
	cfgPath   string
	isDebug   bool
	assumeYes bool
)

var rootCmd = &cobra.Command{
	Use:           "luna",
	Short:         "Luna setup",
	Long:          `Luna sets up GreenLuma and Koalageddon side by side and migrates existing installs into it.`,
	RunE:          runInstall,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "luna.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// closeApp releases the store and the log file.
func closeApp(app *control.App) {
	if err := app.Close(); err != nil {
		slog.Warn("Failed to close store", "error", err)
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

// loadApp reads the config, sets up logging and opens the run store.
func loadApp(ctx context.Context) (*control.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return nil, &reportedError{err: err}
	}

	closeLog, err := setupLogging(cfg.Logging, isDebug)
	if err != nil {
		slog.Warn("File logging disabled", "error", err)
	}
	logCloser = closeLog

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize Luna", "error", err)
		return nil, &reportedError{err: err}
	}
	return app, nil
}

// reportedError has already been logged and only needs an exit code.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
