package scheduler

import (
	"errors"
	"fmt"
)

// ErrNoChannel is returned when the pool has no channels at all.
var ErrNoChannel = errors.New("no playback channel available")

// ErrPlayback matches any *PlaybackError via errors.Is.
var ErrPlayback = errors.New("playback failed")

// PlaybackError reports a sound that could not be loaded or started.
type PlaybackError struct {
	Path string
	Err  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("failed to play %s: %v", e.Path, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPlayback.
func (e *PlaybackError) Is(target error) bool {
	return target == ErrPlayback
}
