package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Hotkey slot layout: slots 0-8 are the number keys 1-9, slots 9-20 are F1-F12.
const (
	NumberSlots   = 9
	FunctionSlots = 12
	SlotCount     = NumberSlots + FunctionSlots
)

// ErrInvalidSlot is returned for slot numbers or labels outside 0..20.
var ErrInvalidSlot = errors.New("hotkey slot must be 1-9 or F1-F12")

// Slot identifies one of the fixed keyboard shortcut positions.
type Slot int

// Valid reports whether the slot is within 0..20.
func (s Slot) Valid() bool {
	return s >= 0 && s < SlotCount
}

// Label returns the key name for the slot ("1".."9", "F1".."F12").
func (s Slot) Label() string {
	switch {
	case s >= 0 && s < NumberSlots:
		return strconv.Itoa(int(s) + 1)
	case s >= NumberSlots && s < SlotCount:
		return fmt.Sprintf("F%d", int(s)-NumberSlots+1)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (s Slot) String() string {
	if l := s.Label(); l != "" {
		return l
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// ParseSlot converts a key label ("3", "F4", "f12") into a slot.
func ParseSlot(label string) (Slot, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, ErrInvalidSlot
	}

	if label[0] == 'F' || label[0] == 'f' {
		n, ok := labelNumber(label[1:])
		if !ok || n < 1 || n > FunctionSlots {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
		}
		return Slot(NumberSlots + n - 1), nil
	}

	n, ok := labelNumber(label)
	if !ok || n < 1 || n > NumberSlots {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	return Slot(n - 1), nil
}

// labelNumber parses the digits of a key label. Signs and leading zeros
// are not part of any label.
func labelNumber(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}

// AllSlots returns every slot in order.
func AllSlots() []Slot {
	slots := make([]Slot, SlotCount)
	for i := range slots {
		slots[i] = Slot(i)
	}
	return slots
}
