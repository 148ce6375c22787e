package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/adapter/output"
	"github.com/jmylchreest/padui/internal/daemon"
	"github.com/jmylchreest/padui/internal/library"
	"github.com/jmylchreest/padui/internal/model"
)

var addOpts struct {
	stdin     bool
	overwrite bool
	format    string
}

var favCmd = &cobra.Command{
	Use:   "fav <tab> <sound>",
	Short: "Toggle a sound's favorite mark",
	Long: `Toggle the favorite mark of a sound. The sound is a 1-based position,
a name, or a unique name prefix.

Examples:
  padui fav Default 3
  padui fav Memes airhorn`,
	Args: cobra.ExactArgs(2),
	RunE: runFav,
}

var hotkeyCmd = &cobra.Command{
	Use:   "hotkey",
	Short: "Bind or clear hotkeys (1-9, F1-F12)",
	Long: `Bind a hotkey to a sound or clear it. Each key selects at most one sound
per tab and each sound has at most one key; binding moves a key that was
already used.

Examples:
  padui hotkey set Default 3 F1
  padui hotkey clear Default 3`,
}

var hotkeySetCmd = &cobra.Command{
	Use:   "set <tab> <sound> <key>",
	Short: "Bind key to a sound",
	Args:  cobra.ExactArgs(3),
	RunE:  runHotkeySet,
}

var hotkeyClearCmd = &cobra.Command{
	Use:   "clear <tab> <sound>",
	Short: "Clear the key bound to a sound",
	Args:  cobra.ExactArgs(2),
	RunE:  runHotkeyClear,
}

var addCmd = &cobra.Command{
	Use:   "add <tab> [files...]",
	Short: "Copy sound files into a tab",
	Long: `Copy WAV, MP3 or OGG files into a tab. Files whose name already exists
in the tab are skipped unless --overwrite is given.

Examples:
  padui add Memes ~/Downloads/airhorn.mp3
  find ~/sfx -name '*.wav' | padui add Effects --stdin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var importCmd = &cobra.Command{
	Use:   "import <tab> <dir>",
	Short: "Copy every sound below a directory into a tab",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

var renameCmd = &cobra.Command{
	Use:   "rename <tab> <sound> <new-name>",
	Short: "Rename a sound, keeping its favorite and hotkey",
	Args:  cobra.ExactArgs(3),
	RunE:  runRename,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <tab> <sound>",
	Aliases: []string{"rm"},
	Short:   "Delete a sound file and its favorite and hotkey",
	Args:    cobra.ExactArgs(2),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(favCmd, hotkeyCmd, addCmd, importCmd, renameCmd, deleteCmd)
	hotkeyCmd.AddCommand(hotkeySetCmd, hotkeyClearCmd)

	for _, c := range []*cobra.Command{addCmd, importCmd} {
		c.Flags().BoolVar(&addOpts.overwrite, "overwrite", false,
			"Replace sounds that already exist")
		c.Flags().StringVarP(&addOpts.format, "format", "f", "plain",
			"Output format (plain, json)")
	}
	addCmd.Flags().BoolVar(&addOpts.stdin, "stdin", false,
		"Read file paths from stdin (one per line)")
}

// withSound loads tab on a local board, resolves the sound and hands both
// to fn. A running daemon is told to reload the tab afterwards.
func withSound(tabArg, soundArg string, fn func(ctx context.Context, rt *daemon.Runtime, tab string, row model.Row) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := openBoard(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	tab, rows, err := loadTab(ctx, rt, tabArg)
	if err != nil {
		return err
	}
	row, err := resolveSound(rows, soundArg)
	if err != nil {
		return err
	}
	if err := fn(ctx, rt, tab, row); err != nil {
		return err
	}
	notifyDaemon(ctx, tab)
	return nil
}

// withTab loads tab on a local board and prints the results of fn.
func withTab(tabArg string, fn func(ctx context.Context, rt *daemon.Runtime, tab string) ([]library.AddResult, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rt, err := openBoard(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	tab, _, err := loadTab(ctx, rt, tabArg)
	if err != nil {
		return err
	}
	results, err := fn(ctx, rt, tab)
	if results == nil && err != nil {
		return err
	}
	if err != nil {
		logger.Warn("files copied but tab reload failed", "tab", tab, "error", err)
	}
	notifyDaemon(ctx, tab)
	return printAddResults(os.Stdout, results)
}

func runFav(cmd *cobra.Command, args []string) error {
	return withSound(args[0], args[1], func(ctx context.Context, rt *daemon.Runtime, tab string, row model.Row) error {
		on, err := rt.Board.ToggleFavorite(tab, row.Index)
		if err != nil {
			return err
		}
		if on {
			fmt.Printf("%s is now a favorite\n", row.Name)
		} else {
			fmt.Printf("%s is no longer a favorite\n", row.Name)
		}
		return nil
	})
}

func runHotkeySet(cmd *cobra.Command, args []string) error {
	slot, err := model.ParseSlot(args[2])
	if err != nil {
		return err
	}

	return withSound(args[0], args[1], func(ctx context.Context, rt *daemon.Runtime, tab string, row model.Row) error {
		if err := rt.Board.AssignHotkey(tab, row.Index, slot); err != nil {
			return err
		}
		fmt.Printf("%s bound to %s\n", row.Name, slot.Label())
		return nil
	})
}

func runHotkeyClear(cmd *cobra.Command, args []string) error {
	return withSound(args[0], args[1], func(ctx context.Context, rt *daemon.Runtime, tab string, row model.Row) error {
		if row.HotkeyLabel == "" {
			fmt.Printf("%s has no hotkey\n", row.Name)
			return nil
		}
		if err := rt.Board.ClearHotkey(tab, row.Index); err != nil {
			return err
		}
		fmt.Printf("Cleared %s from %s\n", row.HotkeyLabel, row.Name)
		return nil
	})
}

func runRename(cmd *cobra.Command, args []string) error {
	return withSound(args[0], args[1], func(ctx context.Context, rt *daemon.Runtime, tab string, row model.Row) error {
		rows, err := rt.Board.RenameSound(ctx, tab, row.Index, args[2])
		if err != nil && rows == nil {
			return err
		}
		if err != nil {
			logger.Warn("sound renamed but bindings not saved", "error", err)
		}
		fmt.Printf("Renamed %s to %s\n", row.Name, model.SafeFileName(args[2]))
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withSound(args[0], args[1], func(ctx context.Context, rt *daemon.Runtime, tab string, row model.Row) error {
		rows, err := rt.Board.DeleteSound(ctx, tab, row.Index)
		if err != nil && rows == nil {
			return err
		}
		if err != nil {
			logger.Warn("sound deleted but bindings not saved", "error", err)
		}
		fmt.Printf("Deleted %s\n", row.Name)
		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string) error {
	paths := args[1:]
	if addOpts.stdin {
		fromStdin, err := readPaths(os.Stdin)
		if err != nil {
			return err
		}
		paths = append(paths, fromStdin...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files given; pass paths or use --stdin")
	}

	return withTab(args[0], func(ctx context.Context, rt *daemon.Runtime, tab string) ([]library.AddResult, error) {
		return rt.Board.AddSounds(ctx, tab, paths, addOpts.overwrite)
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	return withTab(args[0], func(ctx context.Context, rt *daemon.Runtime, tab string) ([]library.AddResult, error) {
		return rt.Board.ImportFolder(ctx, tab, args[1], addOpts.overwrite)
	})
}

// readPaths reads one path per line, skipping blank lines.
func readPaths(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return paths, nil
}

// printAddResults reports one line per source file.
func printAddResults(w io.Writer, results []library.AddResult) error {
	if addOpts.format == "json" {
		return output.FormatValue(w, results)
	}

	counts := make(map[library.AddStatus]int)
	for _, r := range results {
		counts[r.Status]++
		line := fmt.Sprintf("%-11s %s", r.Status, r.Source)
		if r.Err != nil {
			line += ": " + r.Err.Error()
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d added, %d replaced, %d skipped, %d failed\n",
		counts[library.AddStatusAdded], counts[library.AddStatusReplaced], counts[library.AddStatusSkipped],
		counts[library.AddStatusFailed]+counts[library.AddStatusUnsupported])
	return err
}
