package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"

	"github.com/jmylchreest/padui/internal/model"
)

// ErrUnsupportedFormat is returned when a file's extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ProbeDuration returns the playing time of a sound file without decoding
// its samples. WAV files are read from the header; MP3 and OGG streams are
// opened and their length converted at the stream's sample rate.
func ProbeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case model.ExtWAV:
		dec := wav.NewDecoder(f)
		if !dec.IsValidFile() {
			return 0, fmt.Errorf("invalid wav file: %s", filepath.Base(path))
		}
		d, err := dec.Duration()
		if err != nil {
			return 0, fmt.Errorf("failed to read wav duration: %w", err)
		}
		return d, nil
	case model.ExtMP3, model.ExtOGG:
		var streamer beep.StreamSeekCloser
		var format beep.Format
		if ext == model.ExtMP3 {
			streamer, format, err = mp3.Decode(f)
		} else {
			streamer, format, err = vorbis.Decode(f)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to decode sound: %w", err)
		}
		defer func() { _ = streamer.Close() }()
		return format.SampleRate.D(streamer.Len()), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}
