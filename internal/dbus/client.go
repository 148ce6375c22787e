package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/padui/internal/model"
)

// ErrDaemonNotRunning is returned when no process owns BusName.
var ErrDaemonNotRunning = errors.New("paduid is not running")

// Client calls a running paduid over the session bus.
type Client struct {
	obj dbus.BusObject
}

// Connect returns a client for the daemon, or ErrDaemonNotRunning.
func Connect() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var owned bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&owned); err != nil {
		return nil, fmt.Errorf("failed to query bus name: %w", err)
	}
	if !owned {
		return nil, ErrDaemonNotRunning
	}

	return &Client{obj: conn.Object(BusName, ObjectPath)}, nil
}

func (c *Client) call(ctx context.Context, method string, out []any, args ...any) error {
	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
	if call.Err != nil {
		return fromDBusError(call.Err)
	}
	if len(out) == 0 {
		return nil
	}
	return call.Store(out...)
}

// Toggle starts or stops the sound at index and returns "started" or "stopped".
func (c *Client) Toggle(ctx context.Context, tab string, index int) (string, error) {
	var action string
	err := c.call(ctx, "Toggle", []any{&action}, tab, int32(index))
	return action, err
}

// Shortcut presses slot in tab.
func (c *Client) Shortcut(ctx context.Context, tab string, slot model.Slot) (string, error) {
	var action string
	err := c.call(ctx, "Shortcut", []any{&action}, tab, int32(slot))
	return action, err
}

// StopAll stops every sound and returns how many were playing.
func (c *Client) StopAll(ctx context.Context) (int, error) {
	var n int32
	err := c.call(ctx, "StopAll", []any{&n})
	return int(n), err
}

// StopTab stops tab's sounds and returns how many were playing.
func (c *Client) StopTab(ctx context.Context, tab string) (int, error) {
	var n int32
	err := c.call(ctx, "StopTab", []any{&n}, tab)
	return int(n), err
}

// SetVolume sets the global volume and returns the applied value.
func (c *Client) SetVolume(ctx context.Context, volume int) (int, error) {
	var applied int32
	err := c.call(ctx, "SetVolume", []any{&applied}, int32(volume))
	return int(applied), err
}

// GetVolume returns the global volume.
func (c *Client) GetVolume(ctx context.Context) (int, error) {
	var v int32
	err := c.call(ctx, "GetVolume", []any{&v})
	return int(v), err
}

// Playing lists the occupied channels.
func (c *Client) Playing(ctx context.Context) ([]PlayingSound, error) {
	var sounds []PlayingSound
	err := c.call(ctx, "Playing", []any{&sounds})
	return sounds, err
}

// Reload asks the daemon to rescan tab, or every tab when tab is empty.
func (c *Client) Reload(ctx context.Context, tab string) error {
	return c.call(ctx, "Reload", nil, tab)
}
