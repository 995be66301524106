package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"readwise_digest/internal/config"
	"readwise_digest/internal/publisher"
	"readwise_digest/internal/retry"
	"readwise_digest/internal/service"
	"readwise_digest/internal/source/readwise"
	"readwise_digest/internal/trigger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single digest immediately and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	// All required options must resolve before any client is built.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Initialize Readwise source
	source := readwise.New(readwise.Config{
		Token:             cfg.Readwise.Token,
		ReaderBaseURL:     cfg.Readwise.ReaderBaseURL,
		HighlightsBaseURL: cfg.Readwise.HighlightsBaseURL,
		PageSize:          cfg.Readwise.PageSize,
		Timeout:           cfg.Readwise.Timeout,
		Retry:             policy(cfg.Readwise.Retry),
		RateLimitRetry:    policy(cfg.Readwise.RateLimitRetry),
	}, logger)

	// Initialize GitHub publisher
	gh, err := publisher.NewGitHub(publisher.Config{
		Token:   cfg.GitHub.Token,
		Owner:   cfg.GitHub.Owner,
		Repo:    cfg.GitHub.Repo,
		BaseURL: cfg.GitHub.BaseURL,
		Timeout: cfg.GitHub.Timeout,
		Retry:   policy(cfg.GitHub.Retry),
	}, logger)
	if err != nil {
		logger.Error("failed to create github publisher", "error", err)
		os.Exit(1)
	}

	digestService := service.NewDigestService(source, gh, logger, cfg.Digest)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		if _, err := digestService.Run(ctx); err != nil {
			logger.Error("digest run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	rabbit, err := trigger.NewRabbitMQ(trigger.Config{
		URL:   cfg.RabbitMQ.URL,
		Queue: cfg.RabbitMQ.Queue,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbit.Close()

	logger.Info("starting digester",
		"repo", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo,
		"branch", cfg.Digest.TargetBranch,
		"window_days", cfg.Digest.WindowDays,
	)

	if err := rabbit.Listen(ctx, digestService); err != nil && err != context.Canceled {
		logger.Error("trigger listener error", "error", err)
		os.Exit(1)
	}
}

func policy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
