package scheduler

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestSchedulerInvariants drives random toggles, ticks and stops and checks
// the pool never double-books a channel or a sound.
func TestSchedulerInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 6).Draw(t, "capacity")
		s, engine, c := newTestScheduler(capacity)

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := range steps {
			switch rapid.IntRange(0, 9).Draw(t, fmt.Sprintf("op-%d", i)) {
			case 0:
				s.StopAll()
			case 1:
				ch := rapid.IntRange(0, capacity-1).Draw(t, fmt.Sprintf("finish-%d", i))
				engine.finish(ch)
				s.Tick()
			case 2:
				c.Advance(time.Duration(rapid.IntRange(0, 5000).Draw(t, fmt.Sprintf("advance-%d", i))) * time.Millisecond)
			default:
				tab := rapid.SampledFrom([]string{"A", "B"}).Draw(t, fmt.Sprintf("tab-%d", i))
				index := rapid.IntRange(0, 8).Draw(t, fmt.Sprintf("index-%d", i))
				var d *time.Duration
				if rapid.Bool().Draw(t, fmt.Sprintf("known-%d", i)) {
					v := time.Duration(rapid.IntRange(1, 10).Draw(t, fmt.Sprintf("dur-%d", i))) * time.Second
					d = &v
				}

				before := s.IsPlaying(tab, index)
				res, err := s.TogglePlay(req(tab, index, d))
				if err != nil {
					t.Fatalf("toggle failed: %v", err)
				}
				if before && res.Action != Stopped {
					t.Fatalf("toggle of active sound should stop it")
				}
				if !before && res.Action != Started {
					t.Fatalf("toggle of idle sound should start it")
				}
				if s.IsPlaying(tab, index) == before {
					t.Fatalf("toggle did not change state of %s/%d", tab, index)
				}
			}

			playing := s.Playing()
			if len(playing) > capacity {
				t.Fatalf("%d slots active with capacity %d", len(playing), capacity)
			}
			channels := make(map[int]bool)
			sounds := make(map[string]bool)
			for _, slot := range playing {
				if slot.Channel < 0 || slot.Channel >= capacity {
					t.Fatalf("channel %d out of range", slot.Channel)
				}
				if channels[slot.Channel] {
					t.Fatalf("channel %d used twice", slot.Channel)
				}
				channels[slot.Channel] = true

				key := fmt.Sprintf("%s/%d", slot.Tab, slot.Index)
				if sounds[key] {
					t.Fatalf("sound %s active twice", key)
				}
				sounds[key] = true
			}
		}
	})
}

// TestEvictionChoosesLeastRemaining checks the evicted slot never has more
// time left than any surviving slot with a known duration.
func TestEvictionChoosesLeastRemaining(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 5).Draw(t, "capacity")
		s, _, c := newTestScheduler(capacity)

		for i := range capacity {
			d := time.Duration(rapid.IntRange(1, 20).Draw(t, fmt.Sprintf("dur-%d", i))) * time.Second
			if _, err := s.TogglePlay(req("T", i, &d)); err != nil {
				t.Fatalf("fill failed: %v", err)
			}
			c.Advance(time.Duration(rapid.IntRange(0, 3000).Draw(t, fmt.Sprintf("gap-%d", i))) * time.Millisecond)
		}

		now := c.Now()
		before := s.Playing()

		res, err := s.TogglePlay(req("T", 100, nil))
		if err != nil {
			t.Fatalf("toggle failed: %v", err)
		}
		if res.Evicted == nil {
			t.Fatalf("full pool did not evict")
		}

		evictedRem, _ := res.Evicted.Remaining(now)
		for _, slot := range before {
			rem, _ := slot.Remaining(now)
			if rem < evictedRem {
				t.Fatalf("evicted %s left but %s had %s", evictedRem, slot.Path, rem)
			}
			if rem == evictedRem && slot.Channel < res.Evicted.Channel {
				t.Fatalf("tie not broken by lowest channel")
			}
		}
	})
}
