package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// clipboardTools are tried in order when no command is configured.
var clipboardTools = [][]string{
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
}

var errNoClipboard = errors.New("no clipboard command available")

// copyText pipes text into command, or into the first available tool.
func copyText(text, command string) error {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		argv = detectClipboardCommand()
	}
	if len(argv) == 0 {
		return errNoClipboard
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = strings.NewReader(text)
	return c.Run()
}

func detectClipboardCommand() []string {
	for _, tool := range clipboardTools {
		if _, err := exec.LookPath(tool[0]); err == nil {
			return tool
		}
	}
	return nil
}
