package dbus

import (
	"fmt"

	"github.com/jmylchreest/padui/internal/pad"
)

// emitEvent relays one board event as a signal. Events without a signal
// are ignored.
func (s *Server) emitEvent(e pad.Event) {
	var err error
	switch e.Type {
	case pad.EventSoundStarted:
		err = s.EmitSoundStarted(e.Tab, e.Index)
	case pad.EventSoundEnded, pad.EventSoundStopped, pad.EventSoundEvicted:
		err = s.EmitSoundEnded(e.Tab, e.Index)
	case pad.EventVolumeChanged:
		err = s.EmitVolumeChanged(e.Volume)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("failed to emit signal", "event", e.Type.String(), "error", err)
	}
}

// EmitSoundStarted emits the SoundStarted signal.
func (s *Server) EmitSoundStarted(tab string, index int) error {
	return s.signal("SoundStarted", tab, int32(index))
}

// EmitSoundEnded emits the SoundEnded signal. It is sent whenever a sound
// stops playing: finished, stopped, or evicted for a newer sound.
func (s *Server) EmitSoundEnded(tab string, index int) error {
	return s.signal("SoundEnded", tab, int32(index))
}

// EmitVolumeChanged emits the VolumeChanged signal.
func (s *Server) EmitVolumeChanged(volume int) error {
	return s.signal("VolumeChanged", int32(volume))
}

func (s *Server) signal(name string, values ...any) error {
	s.mu.Lock()
	emit := s.emit
	s.mu.Unlock()

	if emit == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := emit(ObjectPath, Interface+"."+name, values...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", name, err)
	}

	s.logger.Debug("emitted signal", "signal", name)
	return nil
}
