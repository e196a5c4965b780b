// Package timer keeps the frame-rate independent animation clock shared by the
// examples.
package timer

import (
	"math"
	"time"

	"github.com/loov/hrtime"
)

const DefaultSpeed float32 = 0.25

// Timer is a normalized animation clock. Value always stays within [0, 1] and
// wraps back toward zero once it passes 1, even after a long frame.
type Timer struct {
	Value float32
	// Speed multiplies the wall-clock time fed into Advance
	Speed float32
	// FrameTime is the duration of the last frame in seconds
	FrameTime float32
	Paused    bool
}

func New() *Timer {
	return &Timer{
		Speed:     DefaultSpeed,
		FrameTime: 1.0,
	}
}

// Advance records the last frame's duration and moves the clock forward unless
// it is paused.
func (t *Timer) Advance(frameSeconds float32) {
	t.FrameTime = frameSeconds
	if t.Paused {
		return
	}

	t.Value += t.Speed * frameSeconds
	if t.Value > 1.0 {
		t.Value = float32(math.Mod(float64(t.Value), 1.0))
	}
}

func (t *Timer) TogglePause() {
	t.Paused = !t.Paused
}

// Stopwatch measures frame durations with the high resolution timer.
type Stopwatch struct {
	start time.Duration
}

func (s *Stopwatch) Start() {
	s.start = hrtime.Now()
}

// Lap returns the seconds elapsed since the last Start or Lap and restarts the
// measurement.
func (s *Stopwatch) Lap() float32 {
	now := hrtime.Now()
	elapsed := now - s.start
	s.start = now
	return float32(elapsed.Seconds())
}
