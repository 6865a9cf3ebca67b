package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"github.com/rewired-gh/vietoracle/internal/config"
	"github.com/rewired-gh/vietoracle/internal/logger"
	"github.com/rewired-gh/vietoracle/internal/pipeline"
	"github.com/rewired-gh/vietoracle/internal/storage"
	"github.com/rewired-gh/vietoracle/internal/telegram"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("vietoracle", pflag.ExitOnError)
	configPath := flags.String("config", defaultConfigPath, "Path to configuration file")
	envFile := flags.String("env-file", ".env", "Environment file loaded before the configuration")
	flags.StringSlice("game", nil, "Game to run (vietlot45, vietlot55); repeatable")
	flags.String("schedule", "", "Cron expression for scheduled runs")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	once := flags.Bool("once", false, "Run once and exit even when a schedule is configured")
	importDraws := flags.Bool("import", false, "Copy the JSON draw history into the SQLite store and exit")
	_ = flags.Parse(os.Args[1:])

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Init("info", "text")
		logger.Error("Failed to load %s: %v", *envFile, err)
		return 1
	}

	// A missing default config file falls back to defaults and environment.
	path := *configPath
	if !flags.Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadWithFlags(path, flags)
	if err != nil {
		logger.Init("info", "text")
		logger.Error("Failed to load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		logger.Init("info", "text")
		logger.Error("Invalid configuration: %v", err)
		return 1
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()
	if path != "" {
		logger.Info("Configuration loaded from %s", path)
	} else {
		logger.Info("No configuration file, using defaults and environment")
	}

	games, err := cfg.GameList()
	if err != nil {
		logger.Error("Invalid games: %v", err)
		return 1
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	store := storage.New(cfg.Storage.DataDir, cfg.Storage.OutputDir, 0, 0, cfg.Storage.LockTimeout)

	var source storage.DrawSource = store
	if cfg.Storage.Backend == config.BackendSQLite || *importDraws {
		db, err := openSQLite(cfg.Storage.DBPath)
		if err != nil {
			logger.Error("Failed to open draw database: %v", err)
			return 1
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close draw database: %v", err)
			}
		}()

		if *importDraws {
			if _, err := pipeline.Import(ctx, store, db, games); err != nil {
				logger.Error("Import failed: %v", err)
				return 1
			}
			return 0
		}
		source = db
		logger.Debug("Reading draws from %s", cfg.Storage.DBPath)
	}

	var notifier pipeline.Notifier
	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelay)
		if err != nil {
			logger.Error("Failed to initialize Telegram client: %v", err)
			return 1
		}
		notifier = client
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	pipe, err := pipeline.New(store, source, pipeline.Config{
		Games:           games,
		Forecast:        cfg.Forecast,
		Predictor:       cfg.Predictor,
		Report:          cfg.Report,
		MetricsTextfile: cfg.Metrics.TextfilePath,
	}, notifier)
	if err != nil {
		logger.Error("Failed to initialize pipeline: %v", err)
		return 1
	}

	runPipeline := func() error {
		if _, err := pipe.RunAll(ctx); err != nil {
			logger.Error("Run failed: %v", err)
			return err
		}
		return nil
	}

	if *once || cfg.Schedule == "" {
		if runPipeline() != nil {
			return 1
		}
		return 0
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})), cron.WithLogger(cronLogger{}))
	if _, err := scheduler.AddFunc(cfg.Schedule, func() { _ = runPipeline() }); err != nil {
		logger.Error("Invalid schedule %q: %v", cfg.Schedule, err)
		return 1
	}

	logger.Info("Starting scheduled runs (%s) for %v", cfg.Schedule, games)

	// Run immediately, then on schedule
	_ = runPipeline()
	scheduler.Start()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("Service stopped")
	return 0
}

func openSQLite(path string) (*storage.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return storage.OpenSQLite(path)
}

// cronLogger routes scheduler messages to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
