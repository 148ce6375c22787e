package pad

// EventType identifies what happened on the board.
type EventType int

const (
	EventTabLoaded EventType = iota
	EventLoadProgress
	EventTabsChanged
	EventSoundStarted
	EventSoundStopped
	EventSoundEvicted
	EventSoundEnded
	EventVolumeChanged
	EventWarning
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTabLoaded:
		return "tab_loaded"
	case EventLoadProgress:
		return "load_progress"
	case EventTabsChanged:
		return "tabs_changed"
	case EventSoundStarted:
		return "sound_started"
	case EventSoundStopped:
		return "sound_stopped"
	case EventSoundEvicted:
		return "sound_evicted"
	case EventSoundEnded:
		return "sound_ended"
	case EventVolumeChanged:
		return "volume_changed"
	case EventWarning:
		return "warning"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers. Fields not relevant to Type are zero.
type Event struct {
	Type  EventType
	Tab   string
	Index int
	Name  string

	// Channel is set for sound events.
	Channel int

	// Generation, Completed and Total are set for load events.
	Generation uint64
	Completed  int
	Total      int

	Volume int
	Err    error
}

// Subscribe returns a channel that receives board events. Delivery is
// non-blocking; a subscriber that falls behind misses events.
func (c *Coordinator) Subscribe() <-chan Event {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	ch := make(chan Event, 64)
	if c.closed {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (c *Coordinator) Unsubscribe(ch <-chan Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for i, sub := range c.subscribers {
		if sub == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// notify sends an event to all subscribers (non-blocking).
func (c *Coordinator) notify(event Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for _, ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}
