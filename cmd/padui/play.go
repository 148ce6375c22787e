package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/pad"
)

var playCmd = &cobra.Command{
	Use:   "play <tab> <sound>",
	Short: "Play a sound locally and wait for it to finish",
	Long: `Play a sound through this process, without the daemon, and return when
it ends. Ctrl+C stops it early.

Examples:
  padui play Default 1
  padui play Memes airhorn`,
	Args: cobra.ExactArgs(2),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openBoard(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	tab, rows, err := loadTab(ctx, rt, args[0])
	if err != nil {
		return err
	}
	row, err := resolveSound(rows, args[1])
	if err != nil {
		return err
	}

	events := rt.Board.Subscribe()
	defer rt.Board.Unsubscribe(events)

	res, err := rt.Board.RequestToggle(tab, row.Index)
	if err != nil {
		return err
	}
	logger.Debug("playing", "tab", tab, "index", row.Index, "channel", res.Slot.Channel)
	fmt.Printf("Playing %s (%s)\n", row.Name, row.DurationLabel())

	go rt.Run(ctx)
	return waitForEnd(ctx, events, tab, row)
}

// waitForEnd blocks until the sound stops or ctx is done.
func waitForEnd(ctx context.Context, events <-chan pad.Event, tab string, row model.Row) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if e.Tab != tab || e.Index != row.Index {
				continue
			}
			switch e.Type {
			case pad.EventSoundEnded, pad.EventSoundStopped, pad.EventSoundEvicted:
				return nil
			case pad.EventError:
				return e.Err
			}
		}
	}
}
