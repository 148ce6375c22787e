package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/jmylchreest/padui/internal/config"
)

// Engine errors.
var (
	ErrNotLoaded   = errors.New("sound is not loaded")
	ErrUnsupported = errors.New("unsupported audio format")
)

// Sound is a decoded sound ready to play on any channel.
type Sound struct {
	Path     string
	Duration time.Duration

	buffer *beep.Buffer
}

// Engine plays sounds on numbered channels. A channel is busy from Play
// until the sound finishes or Stop is called. Volumes are 0-100.
type Engine interface {
	Load(path string) (Sound, error)
	Play(s Sound, channel, volume int) error
	Stop(channel int)
	IsBusy(channel int) bool
	SetVolume(channel, volume int)
	Close()
}

// NewEngine returns a speaker-backed engine, or a silent one when audio
// output is disabled.
func NewEngine(cfg config.AudioConfig, logger *slog.Logger) Engine {
	if !cfg.Enabled {
		return NewSilentEngine(logger)
	}
	return NewBeepEngine(cfg, logger)
}

// decodeFile decodes a whole sound file into memory.
func decodeFile(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(path))

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)

	return buffer, nil
}

// newSound wraps a decoded buffer.
func newSound(path string, buffer *beep.Buffer) Sound {
	return Sound{
		Path:     path,
		Duration: buffer.Format().SampleRate.D(buffer.Len()),
		buffer:   buffer,
	}
}
