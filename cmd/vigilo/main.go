// Package main is the entry point for the Vigilo monitoring agent.
// It loads configuration, sets up logging, wires the monitors and delivery
// clients together, and runs the agent loop until a termination signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/natanael-melo/vigilo/internal/agent"
	"github.com/natanael-melo/vigilo/internal/config"
	"github.com/natanael-melo/vigilo/internal/dockermon"
	"github.com/natanael-melo/vigilo/internal/heartbeat"
	"github.com/natanael-melo/vigilo/internal/notifier"
	"github.com/natanael-melo/vigilo/internal/sysmon"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("vigilo %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Vigilo Agent", zap.String("version", version))

	// Missing mandatory configuration is a startup failure: exit non-zero
	// before entering the loop.
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	runAgent(ctx, cfg, logger)
	logger.Info("Agent stopped")
}

// runAgent wires all components and runs the loop. It blocks until the
// context is cancelled and the shutdown sequence has completed.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	system := sysmon.New(sysmon.Thresholds{
		CPU:  cfg.Monitoring.CPUThreshold,
		RAM:  cfg.Monitoring.RAMThreshold,
		Disk: cfg.Monitoring.DiskThreshold,
	}, logger.Named("sysmon"))

	containers := dockermon.New(
		dockermon.NewClient(cfg.Docker.Socket),
		cfg.Monitoring.WatchContainers,
		logger.Named("docker"))

	channel := notifier.New(cfg.Notify, logger.Named("notifier"))
	sink := heartbeat.New(cfg.Heartbeat, logger.Named("heartbeat"))

	gate := notifier.NewCooldown(cfg.Monitoring.AlertCooldown.Duration)
	dispatcher := notifier.NewDispatcher(gate, channel, sink, logger.Named("dispatch"))

	a := agent.New(cfg, system, containers, channel, sink, dispatcher, logger.Named("agent"))
	a.Run(ctx)
}

// initLogger creates a zap logger based on the configuration.
// It outputs to console (human-readable) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
