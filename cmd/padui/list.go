package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/adapter/output"
	"github.com/jmylchreest/padui/internal/core"
	"github.com/jmylchreest/padui/internal/model"
)

var listOpts struct {
	// Filter options
	filter    string
	search    string
	favorites bool
	hotkeyed  bool
	playing   bool
	limit     int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	field    string
	template string
	size     bool
}

var listCmd = &cobra.Command{
	Use:     "list [tab] [sound]",
	Aliases: []string{"ls", "get"},
	Short:   "List the sounds of a tab",
	Long: `List the sounds of a tab in various formats.

Without a tab the current tab is used. With a sound (1-based position,
name, or a line of dmenu output) only that sound is printed.

Filter expressions combine conditions with commas:
  name~horn, duration<5s, size>100KB, added<7d, favorite=true, hotkey=F1

Examples:
  # List the current tab
  padui list

  # Favorites of the Memes tab as JSON
  padui list Memes --favorites --format json

  # Short sounds, longest first
  padui list --filter "duration<3s" --sort duration --order desc

  # Pick a sound with fuzzel and play it on the daemon
  padui list Memes --format dmenu | fuzzel -d | xargs -I{} padui toggle Memes "{}"`,
	Args: cobra.MaximumNArgs(2),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	// Filter flags
	listCmd.Flags().StringVar(&listOpts.filter, "filter", "",
		"Filter expression (e.g. \"duration<5s,favorite=true\")")
	listCmd.Flags().StringVarP(&listOpts.search, "search", "s", "",
		"Only sounds whose name contains this text")
	listCmd.Flags().BoolVar(&listOpts.favorites, "favorites", false,
		"Only favorite sounds")
	listCmd.Flags().BoolVar(&listOpts.hotkeyed, "hotkeyed", false,
		"Only sounds bound to a hotkey")
	listCmd.Flags().BoolVar(&listOpts.playing, "playing", false,
		"Only sounds the daemon is playing")
	listCmd.Flags().IntVarP(&listOpts.limit, "limit", "n", 0,
		"Maximum number of sounds to show (0=unlimited)")

	// Sort flags
	listCmd.Flags().StringVar(&listOpts.sortBy, "sort", "position",
		"Sort by field (position, name, duration, size, added)")
	listCmd.Flags().StringVar(&listOpts.sortOrder, "order", "asc",
		"Sort order (asc, desc)")

	// Output flags
	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml, dmenu, paths)")
	listCmd.Flags().StringVar(&listOpts.field, "field", "",
		"Output a single field (position, name, path, duration, size, hotkey, favorite, added)")
	listCmd.Flags().StringVar(&listOpts.template, "template", "",
		"Custom Go template for dmenu/plain output")
	listCmd.Flags().BoolVar(&listOpts.size, "size", false,
		"Show file sizes")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := openBoard(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	var tabArg string
	if len(args) > 0 {
		tabArg = args[0]
	}
	tab, rows, err := loadTab(ctx, rt, tabArg)
	if err != nil {
		return err
	}
	markPlaying(ctx, tab, rows)

	// Single sound lookup
	if len(args) > 1 {
		row, err := resolveSound(rows, args[1])
		if err != nil {
			return err
		}
		if listOpts.field != "" {
			fmt.Println(output.FormatField(&row, listOpts.field))
			return nil
		}
		return createFormatter().Format(os.Stdout, []model.Row{row})
	}

	rows, err = applyFilters(rows)
	if err != nil {
		return err
	}
	applySort(rows)
	if listOpts.limit > 0 && len(rows) > listOpts.limit {
		rows = rows[:listOpts.limit]
	}

	if listOpts.field != "" {
		for i := range rows {
			fmt.Println(output.FormatField(&rows[i], listOpts.field))
		}
		return nil
	}

	if len(rows) == 0 {
		logger.Debug("no sounds to output", "tab", tab)
		if listOpts.format != "json" && listOpts.format != "yaml" {
			return nil
		}
	}
	return createFormatter().Format(os.Stdout, rows)
}

// markPlaying flags rows the daemon is currently playing. Without a daemon
// nothing is playing.
func markPlaying(ctx context.Context, tab string, rows []model.Row) {
	client, err := connectDaemon()
	if err != nil {
		return
	}
	playing, err := client.Playing(ctx)
	if err != nil {
		logger.Debug("failed to query playing sounds", "error", err)
		return
	}
	for _, p := range playing {
		if p.Tab != tab {
			continue
		}
		if i := int(p.Index); i >= 0 && i < len(rows) && rows[i].Index == i {
			rows[i].Playing = true
		}
	}
}

// applyFilters applies the filter flags to rows.
func applyFilters(rows []model.Row) ([]model.Row, error) {
	if listOpts.filter != "" {
		expr, err := core.ParseFilter(listOpts.filter)
		if err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
		rows = core.FilterWithExpr(rows, expr)
	}

	return core.Filter(rows, core.FilterOptions{
		FavoritesOnly: listOpts.favorites,
		HotkeyedOnly:  listOpts.hotkeyed,
		PlayingOnly:   listOpts.playing,
		Search:        listOpts.search,
	}), nil
}

// applySort sorts rows based on options.
func applySort(rows []model.Row) {
	field, _ := core.ParseSortField(listOpts.sortBy)
	order, _ := core.ParseSortOrder(listOpts.sortOrder)

	core.Sort(rows, core.SortOptions{
		Field: field,
		Order: order,
	})
}

// createFormatter creates the output formatter based on options.
func createFormatter() output.Formatter {
	var format output.FormatType
	switch strings.ToLower(listOpts.format) {
	case "json":
		format = output.FormatJSON
	case "yaml", "yml":
		format = output.FormatYAML
	case "dmenu":
		format = output.FormatDmenu
	case "paths":
		format = output.FormatPaths
	default:
		format = output.FormatPlain
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = listOpts.template
	opts.ShowSize = listOpts.size

	return output.NewFormatter(format, opts)
}
