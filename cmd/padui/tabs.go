package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/adapter/output"
)

var tabsOpts struct {
	format      string
	removeFiles bool
}

// tabInfo is one line of `padui tabs` output.
type tabInfo struct {
	Position int    `json:"position" yaml:"position"`
	Name     string `json:"name" yaml:"name"`
	Sounds   int    `json:"sounds" yaml:"sounds"`
	Current  bool   `json:"current" yaml:"current"`
}

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List and manage tabs",
	Long: `List tabs, or add, rename and delete them.

A tab is a directory under the sounds directory. Deleting a tab that still
contains files requires --remove-files.

Examples:
  padui tabs
  padui tabs add Memes
  padui tabs rename Memes "Old Memes"
  padui tabs delete "Old Memes" --remove-files`,
	Args: cobra.NoArgs,
	RunE: runTabsList,
}

var tabsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a tab",
	Args:  cobra.ExactArgs(1),
	RunE:  runTabsAdd,
}

var tabsRenameCmd = &cobra.Command{
	Use:   "rename <tab> <new-name>",
	Short: "Rename a tab, keeping its favorites and hotkeys",
	Args:  cobra.ExactArgs(2),
	RunE:  runTabsRename,
}

var tabsDeleteCmd = &cobra.Command{
	Use:   "delete <tab>",
	Short: "Delete a tab and its favorites and hotkeys",
	Args:  cobra.ExactArgs(1),
	RunE:  runTabsDelete,
}

func init() {
	rootCmd.AddCommand(tabsCmd)
	tabsCmd.AddCommand(tabsAddCmd, tabsRenameCmd, tabsDeleteCmd)

	tabsCmd.Flags().StringVarP(&tabsOpts.format, "format", "f", "plain",
		"Output format (plain, json)")
	tabsDeleteCmd.Flags().BoolVar(&tabsOpts.removeFiles, "remove-files", false,
		"Delete the sound files too")
}

func runTabsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := openBoard(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Load(ctx); err != nil {
		logger.Warn("some tabs failed to load", "error", err)
	}
	tabs, err := rt.Board.Tabs()
	if err != nil {
		return err
	}

	current := rt.Board.CurrentTab()
	infos := make([]tabInfo, 0, len(tabs))
	for i, tab := range tabs {
		rows, _ := rt.Board.Rows(tab)
		infos = append(infos, tabInfo{
			Position: i + 1,
			Name:     tab,
			Sounds:   len(rows),
			Current:  i == current,
		})
	}

	if tabsOpts.format == "json" {
		return output.FormatValue(os.Stdout, infos)
	}
	for _, info := range infos {
		marker := " "
		if info.Current {
			marker = "*"
		}
		fmt.Printf("%s %d. %s (%d)\n", marker, info.Position, info.Name, info.Sounds)
	}
	return nil
}

func runTabsAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := openBoard(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	tab, err := rt.Board.AddTab(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Created tab %s\n", tab)
	notifyDaemon(ctx, "")
	return nil
}

func runTabsRename(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := openBoard(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	oldName, err := resolveTab(rt, args[0])
	if err != nil {
		return err
	}
	tab, err := rt.Board.RenameTab(ctx, oldName, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Renamed tab %s to %s\n", oldName, tab)
	notifyDaemon(ctx, "")
	return nil
}

func runTabsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := openBoard(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	tab, err := resolveTab(rt, args[0])
	if err != nil {
		return err
	}
	if err := rt.Board.DeleteTab(ctx, tab, tabsOpts.removeFiles); err != nil {
		return err
	}
	fmt.Printf("Deleted tab %s\n", tab)
	notifyDaemon(ctx, "")
	return nil
}
