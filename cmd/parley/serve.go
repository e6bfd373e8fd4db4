package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/parley"
	"github.com/loykin/parley/internal/logger"
)

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=parley.toml or provide as argument")
	}

	cfg, err := parley.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if flags.Daemonize {
		return daemonize(flags.PidFile, flags.LogFile)
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.File)

	if err := parley.RegisterMetricsDefault(); err != nil {
		log.Warn("failed to register metrics", "error", err)
	}

	orc, err := parley.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}
	defer func() { _ = orc.Close() }()

	server, err := parley.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, orc)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	log.Info("parley daemon started", "listen", cfg.Server.Listen, "base_path", cfg.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if err := server.Close(); err != nil {
		return err
	}
	return removePidFile(flags.PidFile)
}
