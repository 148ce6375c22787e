// Package main provides the CLI entrypoint for padui.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/config"
	"github.com/jmylchreest/padui/internal/core"
	"github.com/jmylchreest/padui/internal/daemon"
	"github.com/jmylchreest/padui/internal/dbus"
	"github.com/jmylchreest/padui/internal/model"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		soundsDir  string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "padui",
	Short: "Soundboard for the terminal",
	Long: `padui is a soundboard: tabs of short sounds you trigger by position,
name or hotkey (1-9, F1-F12).

Sounds live in one directory per tab under the sounds directory. Favorites
and hotkeys are kept per tab and follow a sound across renames.

Commands that control playback (toggle, key, stop, volume, status) talk to
a running paduid over D-Bus. Running padui without a subcommand launches
the interactive board.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logging
		setupLogger()

		// Load configuration
		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if globalOpts.soundsDir != "" {
			cfg.Library.SoundsDir = globalOpts.soundsDir
		}
		return nil
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/padui/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.soundsDir, "sounds-dir", "",
		"Sounds directory (default: ~/.local/share/padui/sounds)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// openBoard builds a local runtime. Commands that never play sound pass
// silent so no output device is opened.
func openBoard(silent bool) (*daemon.Runtime, error) {
	c := *cfg
	if silent {
		c.Audio.Enabled = false
	}
	return daemon.New(&c, logger)
}

// resolveTab maps user input to an existing tab name: exact match first,
// then case-insensitive. Empty input selects the board's current tab.
func resolveTab(rt *daemon.Runtime, input string) (string, error) {
	tabs, err := rt.Board.Tabs()
	if err != nil {
		return "", err
	}
	if input == "" {
		if len(tabs) == 0 {
			return model.DefaultTab, nil
		}
		pos := rt.Board.CurrentTab()
		if pos < 0 || pos >= len(tabs) {
			pos = 0
		}
		return tabs[pos], nil
	}
	for _, t := range tabs {
		if t == input {
			return t, nil
		}
	}
	for _, t := range tabs {
		if strings.EqualFold(t, input) {
			return t, nil
		}
	}
	return "", fmt.Errorf("tab %q not found", input)
}

// loadTab resolves and loads one tab, returning its name and rows.
func loadTab(ctx context.Context, rt *daemon.Runtime, input string) (string, []model.Row, error) {
	if _, err := rt.Board.Library().EnsureDefaultTab(); err != nil {
		return "", nil, err
	}
	tab, err := resolveTab(rt, input)
	if err != nil {
		return "", nil, err
	}
	rows, err := rt.Board.LoadTab(ctx, tab)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load tab %s: %w", tab, err)
	}
	return tab, rows, nil
}

// resolveSound finds a row by 1-based position, exact name or unique
// name prefix. A full dmenu line selects by its leading position.
func resolveSound(rows []model.Row, input string) (model.Row, error) {
	r := core.Lookup(rows, parseDmenuSelection(input))
	if r == nil {
		return model.Row{}, fmt.Errorf("no sound matches %q", input)
	}
	return *r, nil
}

// notifyDaemon asks a running daemon to reload tab. A missing daemon is
// not an error; it reads the files on its next start.
func notifyDaemon(ctx context.Context, tab string) {
	client, err := dbus.Connect()
	if err != nil {
		if !errors.Is(err, dbus.ErrDaemonNotRunning) {
			logger.Debug("daemon not reachable", "error", err)
		}
		return
	}
	if err := client.Reload(ctx, tab); err != nil {
		logger.Warn("daemon reload failed", "tab", tab, "error", err)
	}
}

// connectDaemon returns a client or a user-facing error.
func connectDaemon() (*dbus.Client, error) {
	client, err := dbus.Connect()
	if errors.Is(err, dbus.ErrDaemonNotRunning) {
		return nil, fmt.Errorf("%w (start it with: paduid)", err)
	}
	return client, err
}

// parseDmenuSelection extracts the position from a dmenu line such as
// "3 | airhorn | 0:02 | F1". Anything else is returned trimmed.
func parseDmenuSelection(selection string) string {
	selection = strings.TrimSpace(selection)
	if !strings.Contains(selection, "|") {
		return selection
	}

	first := strings.TrimSpace(strings.SplitN(selection, "|", 2)[0])
	if n, err := strconv.Atoi(first); err == nil && n > 0 {
		return first
	}
	return selection
}
