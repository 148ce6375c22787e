package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/model"
)

// remoteTimeout bounds one D-Bus round trip.
const remoteTimeout = 10 * time.Second

var toggleCmd = &cobra.Command{
	Use:   "toggle <tab> <sound>",
	Short: "Start or stop a sound on the daemon",
	Long: `Start a sound on the running paduid, or stop it if it is already playing.
The sound is a 1-based position, a name, a unique name prefix, or a line
of dmenu output.

Examples:
  padui toggle Default 2
  padui toggle Memes airhorn`,
	Args: cobra.ExactArgs(2),
	RunE: runToggle,
}

var keyCmd = &cobra.Command{
	Use:   "key <tab> <key>",
	Short: "Press a hotkey (1-9, F1-F12) on the daemon",
	Long: `Press a hotkey on the running paduid, as if it were pressed on the board.
Suitable for binding in a window manager:

  bindsym $mod+F1 exec padui key Default F1`,
	Args: cobra.ExactArgs(2),
	RunE: runKey,
}

var stopCmd = &cobra.Command{
	Use:   "stop [tab]",
	Short: "Stop every sound, or the sounds of one tab",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStop,
}

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Show or set the daemon volume",
	Long: `Show the volume of the running paduid, or set it. The level is 0-100,
or a relative change such as +10 or -5.

Examples:
  padui volume
  padui volume 60
  padui volume -- -10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVolume,
}

var reloadCmd = &cobra.Command{
	Use:   "reload [tab]",
	Short: "Ask the daemon to rescan a tab, or every tab",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReload,
}

func init() {
	rootCmd.AddCommand(toggleCmd, keyCmd, stopCmd, volumeCmd, reloadCmd)
}

func runToggle(cmd *cobra.Command, args []string) error {
	client, err := connectDaemon()
	if err != nil {
		return err
	}

	// Positions and names are resolved against the files on disk, the same
	// catalog the daemon loads
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := openBoard(true)
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

	callCtx, callCancel := context.WithTimeout(ctx, remoteTimeout)
	defer callCancel()
	action, err := client.Toggle(callCtx, tab, row.Index)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", action, row.Name)
	return nil
}

func runKey(cmd *cobra.Command, args []string) error {
	slot, err := model.ParseSlot(args[1])
	if err != nil {
		return err
	}
	client, err := connectDaemon()
	if err != nil {
		return err
	}

	tab := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	action, err := client.Shortcut(ctx, tab, slot)
	if err != nil {
		return err
	}
	logger.Debug("shortcut pressed", "tab", tab, "slot", slot.Label(), "action", action)
	fmt.Println(action)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	client, err := connectDaemon()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	var n int
	if len(args) > 0 {
		n, err = client.StopTab(ctx, args[0])
	} else {
		n, err = client.StopAll(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Stopped %d sound(s)\n", n)
	return nil
}

func runVolume(cmd *cobra.Command, args []string) error {
	client, err := connectDaemon()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	if len(args) == 0 {
		v, err := client.GetVolume(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d\n", v)
		return nil
	}

	level, relative, err := parseVolume(args[0])
	if err != nil {
		return err
	}
	if relative {
		current, err := client.GetVolume(ctx)
		if err != nil {
			return err
		}
		level += current
	}
	applied, err := client.SetVolume(ctx, level)
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", applied)
	return nil
}

// parseVolume parses "60", "+10" or "-5". relative is set for signed input.
func parseVolume(s string) (level int, relative bool, err error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	relative = strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
	level, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid volume %q: want 0-100, +N or -N", s)
	}
	return level, relative, nil
}

func runReload(cmd *cobra.Command, args []string) error {
	client, err := connectDaemon()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var tab string
	if len(args) > 0 {
		tab = args[0]
	}
	return client.Reload(ctx, tab)
}
