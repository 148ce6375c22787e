package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a config duration written as "100ms", "5s", "10m" or a bare
// number of milliseconds. Negative values are rejected.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))

	var dur time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		dur = time.Duration(ms) * time.Millisecond
	} else if dur, err = time.ParseDuration(s); err != nil {
		return fmt.Errorf("invalid duration %q: want e.g. 100ms, 5s or milliseconds: %w", s, err)
	}
	if dur < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
