// Package main is the entry point for the paduid soundboard daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/padui/internal/config"
	"github.com/jmylchreest/padui/internal/daemon"
	"github.com/jmylchreest/padui/internal/dbus"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/padui/config.toml)")
	noWatch := flag.Bool("no-watch", false, "Do not follow changes to the sound directories")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		println("paduid version", version)
		os.Exit(0)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, *noWatch, logger); err != nil {
		logger.Error("paduid failed", "error", err)
		os.Exit(1)
	}
}

// run serves the board until SIGINT or SIGTERM.
func run(configPath string, noWatch bool, logger *slog.Logger) error {
	logger.Info("starting paduid", "version", version)

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if noWatch {
		cfg.Daemon.Watch = false
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Claim the bus name before loading so a second daemon exits early
	server := dbus.NewServer(rt.Board, logger)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("error stopping D-Bus server", "error", err)
		}
	}()

	if err := rt.Load(ctx); err != nil {
		logger.Warn("some tabs failed to load; they can be reloaded later", "error", err)
	}
	tabs, _ := rt.Board.Tabs()
	logger.Info("library loaded", "dir", cfg.SoundsDir(), "tabs", len(tabs))

	if err := rt.StartWatching(ctx); err != nil {
		logger.Warn("failed to start watching the library", "error", err)
	}

	// Hot reload of the daemon section
	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(func(newConfig *config.Config) {
		if noWatch {
			newConfig.Daemon.Watch = false
		}
		rt.ApplyConfig(newConfig)
	})
	configWatcher.SetErrorCallback(func(err error) {
		logger.Warn("keeping previous config", "error", err)
	})
	if err := configWatcher.Start(ctx, cfg); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}
	defer configWatcher.Stop()

	logger.Info("paduid ready", "bus_name", dbus.BusName)

	// Tick until a shutdown signal
	rt.Run(ctx)

	logger.Info("received signal, shutting down")
	return nil
}
