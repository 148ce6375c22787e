package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/padui/internal/dbus"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the daemon's playback state in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/padui": {
    "exec": "padui status",
    "interval": 1,
    "return-type": "json",
    "on-click": "padui stop",
    "on-scroll-up": "padui volume +5",
    "on-scroll-down": "padui volume -- -5"
  }

The output includes:
  - text: Number of sounds playing (empty when idle)
  - alt/class: playing, idle or offline
  - tooltip: The playing sounds and the volume
  - percentage: The volume`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	client, err := dbus.Connect()
	if err != nil {
		logger.Debug("daemon not reachable", "error", err)
		return outputStatus(WaybarStatus{Alt: "offline", Class: "offline", Tooltip: "paduid is not running"})
	}

	volume, err := client.GetVolume(ctx)
	if err != nil {
		return outputStatus(WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
	}
	playing, err := client.Playing(ctx)
	if err != nil {
		return outputStatus(WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
	}

	return outputStatus(generateStatus(playing, volume))
}

// generateStatus creates a WaybarStatus from the playing sounds.
func generateStatus(playing []dbus.PlayingSound, volume int) WaybarStatus {
	if len(playing) == 0 {
		return WaybarStatus{
			Alt:        "idle",
			Class:      "idle",
			Tooltip:    fmt.Sprintf("Nothing playing\nVolume: %d%%", volume),
			Percentage: volume,
		}
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", len(playing)),
		Alt:        "playing",
		Class:      "playing",
		Tooltip:    buildTooltip(playing, volume),
		Percentage: volume,
	}
}

// buildTooltip lists the playing sounds, one per line.
func buildTooltip(playing []dbus.PlayingSound, volume int) string {
	lines := make([]string, 0, len(playing)+1)
	for _, p := range playing {
		lines = append(lines, fmt.Sprintf("%s / %s", p.Tab, p.Name))
	}
	lines = append(lines, fmt.Sprintf("Volume: %d%%", volume))
	return strings.Join(lines, "\n")
}

// outputStatus writes the status as JSON.
func outputStatus(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}
