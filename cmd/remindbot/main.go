package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/constants"
	"remindbot/internal/models"
	"remindbot/internal/scheduler"
	"remindbot/internal/service"
	"remindbot/internal/store"
	"remindbot/internal/timeparse"
	"remindbot/internal/tracing"
	"remindbot/pkg/media"
	"remindbot/pkg/telegram"
	teletypes "remindbot/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("remindbot %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting remindbot")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogLevel(logger, cfg)

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	tracingManager := tracing.NewManager(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load display timezone: %w", err)
	}
	logger.WithField("timezone", cfg.Timezone).Info("Using display timezone")

	st := store.New(cfg.Store.Path, logger)
	if err := st.Load(); err != nil {
		return fmt.Errorf("failed to load reminder store: %w", err)
	}

	stager, err := media.NewStager(cfg.Media.StagingDir, cfg.Media.MaxSizeMB, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize media staging: %w", err)
	}
	if err := stager.CleanupOldFiles(constants.DefaultStagedFileMaxAgeHrs*time.Hour, st.AttachmentPaths()); err != nil {
		logger.Warnf("Failed to sweep staged attachments: %v", err)
	}

	tgClient := telegram.NewClient(teletypes.ClientConfig{
		BaseURL: cfg.Telegram.APIBaseURL,
		Token:   token,
		Timeout: time.Duration(cfg.Telegram.TimeoutMs) * time.Millisecond,
	}, logger)

	parser := timeparse.New(loc, cfg.DefaultHour)

	reminderService := service.NewReminderService(
		st, parser, stager, tgClient,
		time.Duration(cfg.Scheduler.MinLeadTimeSec)*time.Second,
		logger,
	)

	notifier := service.NewTelegramNotifier(tgClient, logger)
	deliveryScheduler := scheduler.New(
		st, notifier, stager,
		time.Duration(cfg.Scheduler.TickIntervalSec)*time.Second,
		time.Duration(cfg.Scheduler.SendTimeoutSec)*time.Second,
		logger,
	)
	if err := deliveryScheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start delivery scheduler: %w", err)
	}
	defer deliveryScheduler.Stop()

	commandHandler := service.NewCommandHandler(reminderService, tgClient, loc, cfg.Telegram.AllowedChats, logger)

	updatePoller := service.NewUpdatePoller(tgClient, commandHandler, cfg.Telegram, cfg.Retry, logger)
	if err := updatePoller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start update poller: %w", err)
	}
	defer updatePoller.Stop()

	server := NewServer(cfg.Server, reminderService, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Shutdown completed")
	return nil
}

func configureLogLevel(logger *logrus.Logger, cfg *models.Config) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled")
		return
	}
	if cfg.LogLevel == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}
