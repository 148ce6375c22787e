package dbus

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/padui/internal/model"
	"github.com/jmylchreest/padui/internal/pad"
	"github.com/jmylchreest/padui/internal/scheduler"
)

const (
	// BusName is the well-known name paduid claims.
	BusName = "io.github.jmylchreest.padui"
	// ObjectPath is where the board object is exported.
	ObjectPath = dbus.ObjectPath("/io/github/jmylchreest/padui")
	// Interface is the board interface name.
	Interface = "io.github.jmylchreest.padui.Board"
)

// D-Bus error names returned by the board methods.
const (
	ErrNameTabNotLoaded = Interface + ".Error.TabNotLoaded"
	ErrNameOutOfRange   = Interface + ".Error.OutOfRange"
	ErrNameNotBound     = Interface + ".Error.NotBound"
	ErrNameInvalidSlot  = Interface + ".Error.InvalidSlot"
	ErrNameNoChannel    = Interface + ".Error.NoChannel"
	ErrNamePlayback     = Interface + ".Error.Playback"
	ErrNameFailed       = Interface + ".Error.Failed"
)

// errorNames pairs board errors with their D-Bus names, most specific first.
var errorNames = []struct {
	err  error
	name string
}{
	{pad.ErrTabNotLoaded, ErrNameTabNotLoaded},
	{pad.ErrIndexOutOfRange, ErrNameOutOfRange},
	{pad.ErrNotBound, ErrNameNotBound},
	{model.ErrInvalidSlot, ErrNameInvalidSlot},
	{scheduler.ErrNoChannel, ErrNameNoChannel},
	{scheduler.ErrPlayback, ErrNamePlayback},
}

// toDBusError maps a board error onto a named D-Bus error.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return dbus.NewError(e.name, []any{err.Error()})
		}
	}
	return dbus.NewError(ErrNameFailed, []any{err.Error()})
}

// fromDBusError turns a D-Bus error reply back into an error that matches
// the board's sentinel errors with errors.Is.
func fromDBusError(err error) error {
	var derr dbus.Error
	var pderr *dbus.Error
	switch {
	case errors.As(err, &pderr):
		derr = *pderr
	case errors.As(err, &derr):
	default:
		return err
	}
	if !strings.HasPrefix(derr.Name, Interface+".Error.") {
		return err
	}
	for _, e := range errorNames {
		if derr.Name == e.name {
			return &RemoteError{Name: derr.Name, Message: derr.Error(), sentinel: e.err}
		}
	}
	return &RemoteError{Name: derr.Name, Message: derr.Error()}
}

// RemoteError is a board error reported by paduid.
type RemoteError struct {
	Name     string
	Message  string
	sentinel error
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap returns the matching board sentinel, if any.
func (e *RemoteError) Unwrap() error {
	return e.sentinel
}

// PlayingSound is one occupied channel, marshalled as (isis).
type PlayingSound struct {
	Channel int32
	Tab     string
	Index   int32
	Name    string
}

func playingFromSlots(slots []scheduler.Slot) []PlayingSound {
	out := make([]PlayingSound, len(slots))
	for i, s := range slots {
		out[i] = PlayingSound{
			Channel: int32(s.Channel),
			Tab:     s.Tab,
			Index:   int32(s.Index),
			Name:    model.DisplayName(s.Path),
		}
	}
	return out
}
