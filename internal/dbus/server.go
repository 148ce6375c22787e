package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/pad"
	"github.com/jmylchreest/padui/internal/scheduler"
	"github.com/jmylchreest/padui/internal/store"
)

// reloadTimeout bounds a Reload call.
const reloadTimeout = 30 * time.Second

// Board is the part of *pad.Coordinator exported on the bus.
type Board interface {
	RequestToggle(tab string, index int) (scheduler.Result, error)
	PressShortcut(tab string, slot model.Slot) (scheduler.Result, error)
	StopAll(tab string) int
	SetVolume(volume int) (int, error)
	Volume() int
	Playing() []scheduler.Slot
	LoadTab(ctx context.Context, tab string) ([]model.Row, error)
	SyncTabs(ctx context.Context) error
	Subscribe() <-chan pad.Event
	Unsubscribe(ch <-chan pad.Event)
}

// emitFunc matches (*dbus.Conn).Emit.
type emitFunc func(path dbus.ObjectPath, name string, values ...any) error

// Server implements the io.github.jmylchreest.padui.Board interface.
type Server struct {
	board  Board
	logger *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	emit    emitFunc
	events  <-chan pad.Event
	done    chan struct{}
	running bool
}

// NewServer creates a server for board.
func NewServer(board Board, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		board:  board,
		logger: logger,
	}
}

// Start connects to the session bus, exports the board and claims BusName.
// Board events are forwarded as signals until Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	// Export the board object
	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	// Export introspection data
	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: boardMethods(),
				Signals: boardSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	// Request the bus name
	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken; is paduid already running?", BusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.forward(conn.Emit)

	s.logger.Info("D-Bus board server started", "name", BusName, "path", ObjectPath)
	return nil
}

// forward starts relaying board events through emit.
func (s *Server) forward(emit emitFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emit = emit
	s.events = s.board.Subscribe()
	s.done = make(chan struct{})
	s.running = true

	go func(events <-chan pad.Event, done chan struct{}) {
		defer close(done)
		for e := range events {
			s.emitEvent(e)
		}
	}(s.events, s.done)
}

// Stop releases the bus name and stops forwarding signals.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	events, done, conn := s.events, s.done, s.conn
	s.mu.Unlock()

	s.board.Unsubscribe(events)
	<-done

	if conn != nil {
		if _, err := conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus board server stopped")
	return nil
}

// Toggle starts or stops the sound at index in tab.
// D-Bus method: Toggle(si) -> s
func (s *Server) Toggle(tab string, index int32) (string, *dbus.Error) {
	s.logger.Debug("Toggle called", "tab", tab, "index", index)
	res, err := s.board.RequestToggle(tab, int(index))
	if err != nil {
		return "", toDBusError(err)
	}
	return res.Action.String(), nil
}

// Shortcut presses hotkey slot (0-8 are 1-9, 9-20 are F1-F12) in tab.
// D-Bus method: Shortcut(si) -> s
func (s *Server) Shortcut(tab string, slot int32) (string, *dbus.Error) {
	s.logger.Debug("Shortcut called", "tab", tab, "slot", slot)
	sl := model.Slot(slot)
	if !sl.Valid() {
		return "", toDBusError(model.ErrInvalidSlot)
	}
	res, err := s.board.PressShortcut(tab, sl)
	if err != nil {
		return "", toDBusError(err)
	}
	return res.Action.String(), nil
}

// StopAll stops every playing sound.
// D-Bus method: StopAll() -> i
func (s *Server) StopAll() (int32, *dbus.Error) {
	s.logger.Debug("StopAll called")
	return int32(s.board.StopAll("")), nil
}

// StopTab stops the sounds playing from tab.
// D-Bus method: StopTab(s) -> i
func (s *Server) StopTab(tab string) (int32, *dbus.Error) {
	s.logger.Debug("StopTab called", "tab", tab)
	if tab == "" {
		return 0, nil
	}
	return int32(s.board.StopAll(tab)), nil
}

// SetVolume sets the global volume and returns the applied value.
// A failure to save the setting is logged; the new volume still applies.
// D-Bus method: SetVolume(i) -> i
func (s *Server) SetVolume(volume int32) (int32, *dbus.Error) {
	s.logger.Debug("SetVolume called", "volume", volume)
	applied, err := s.board.SetVolume(int(volume))
	if err != nil {
		var perr *store.PersistError
		if !errors.As(err, &perr) {
			return 0, toDBusError(err)
		}
		s.logger.Warn("volume not saved", "error", err)
	}
	return int32(applied), nil
}

// GetVolume returns the global volume.
// D-Bus method: GetVolume() -> i
func (s *Server) GetVolume() (int32, *dbus.Error) {
	return int32(s.board.Volume()), nil
}

// Playing lists the occupied channels.
// D-Bus method: Playing() -> a(isis)
func (s *Server) Playing() ([]PlayingSound, *dbus.Error) {
	return playingFromSlots(s.board.Playing()), nil
}

// Reload rescans tab, or resynchronizes every tab when tab is empty.
// D-Bus method: Reload(s)
func (s *Server) Reload(tab string) *dbus.Error {
	s.logger.Debug("Reload called", "tab", tab)
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	var err error
	if tab == "" {
		err = s.board.SyncTabs(ctx)
	} else {
		_, err = s.board.LoadTab(ctx, tab)
	}
	if err != nil && !errors.Is(err, pad.ErrSuperseded) {
		return toDBusError(err)
	}
	return nil
}

// boardMethods returns the D-Bus method introspection data.
func boardMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Toggle",
			Args: []introspect.Arg{
				{Name: "tab", Type: "s", Direction: "in"},
				{Name: "index", Type: "i", Direction: "in"},
				{Name: "action", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Shortcut",
			Args: []introspect.Arg{
				{Name: "tab", Type: "s", Direction: "in"},
				{Name: "slot", Type: "i", Direction: "in"},
				{Name: "action", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "StopAll",
			Args: []introspect.Arg{
				{Name: "stopped", Type: "i", Direction: "out"},
			},
		},
		{
			Name: "StopTab",
			Args: []introspect.Arg{
				{Name: "tab", Type: "s", Direction: "in"},
				{Name: "stopped", Type: "i", Direction: "out"},
			},
		},
		{
			Name: "SetVolume",
			Args: []introspect.Arg{
				{Name: "volume", Type: "i", Direction: "in"},
				{Name: "applied", Type: "i", Direction: "out"},
			},
		},
		{
			Name: "GetVolume",
			Args: []introspect.Arg{
				{Name: "volume", Type: "i", Direction: "out"},
			},
		},
		{
			Name: "Playing",
			Args: []introspect.Arg{
				{Name: "sounds", Type: "a(isis)", Direction: "out"},
			},
		},
		{
			Name: "Reload",
			Args: []introspect.Arg{
				{Name: "tab", Type: "s", Direction: "in"},
			},
		},
	}
}

// boardSignals returns the D-Bus signal introspection data.
func boardSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "SoundStarted",
			Args: []introspect.Arg{
				{Name: "tab", Type: "s"},
				{Name: "index", Type: "i"},
			},
		},
		{
			Name: "SoundEnded",
			Args: []introspect.Arg{
				{Name: "tab", Type: "s"},
				{Name: "index", Type: "i"},
			},
		},
		{
			Name: "VolumeChanged",
			Args: []introspect.Arg{
				{Name: "volume", Type: "i"},
			},
		},
	}
}
