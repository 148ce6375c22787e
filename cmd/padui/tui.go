package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/tui"
)

var tuiOpts struct {
	clipboard string
	noWatch   bool
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive board",
	Long: `Launch the interactive terminal soundboard. It plays through this
process; paduid does not need to be running.

Key bindings:
  j/k, ↑/↓         Navigate list
  enter            Start or stop the selected sound
  1-9, F1-F12      Press a hotkey
  space            Stop all sounds
  tab/shift+tab    Switch tabs
  f                Toggle favorite
  b                Bind a hotkey to the selected sound
  +/-              Volume up/down
  y                Copy the sound's path to clipboard
  /                Search sounds
  r                Rescan the tab
  ?                Show help
  q                Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiOpts.clipboard, "clipboard", "",
		"Clipboard command (default: wl-copy, xclip or xsel)")
	tuiCmd.Flags().BoolVar(&tuiOpts.noWatch, "no-watch", false,
		"Do not follow changes to the sound directories")
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Ctrl+C is a key on the board; only SIGTERM ends it from outside
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	c := *cfg
	if tuiOpts.noWatch {
		c.Daemon.Watch = false
	}
	cfg = &c

	rt, err := openBoard(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Load(ctx); err != nil {
		// Per-tab failures show up on the board
		logger.Debug("loaded with errors", "error", err)
	}
	if err := rt.StartWatching(ctx); err != nil {
		logger.Warn("file watching disabled", "error", err)
	}

	return tui.Run(ctx, rt.Board, tui.Options{
		TickInterval:     c.Playback.TickInterval.Duration(),
		ClipboardCommand: tuiOpts.clipboard,
	})
}
