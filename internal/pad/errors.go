package pad

import "errors"

// Coordinator errors.
var (
	ErrSuperseded      = errors.New("load superseded by a newer load of the same tab")
	ErrTabNotLoaded    = errors.New("tab is not loaded")
	ErrIndexOutOfRange = errors.New("sound index out of range")
	ErrNotBound        = errors.New("no sound bound to that key")
)
