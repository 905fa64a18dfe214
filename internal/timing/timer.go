// Package timing provides small helpers for measuring evaluation phases.
package timing

import (
	"fmt"
	"time"
)

// Stopwatch measures named phases of a larger operation.
type Stopwatch struct {
	start time.Time
	last  time.Time
	laps  []Lap
}

// Lap is one measured phase.
type Lap struct {
	Name     string
	Duration time.Duration
}

// Start begins a stopwatch.
func Start() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now}
}

// Lap records the time since the previous lap (or the start) under name
// and returns it.
func (s *Stopwatch) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.laps = append(s.laps, Lap{Name: name, Duration: d})
	return d
}

// Total returns the time since the stopwatch started.
func (s *Stopwatch) Total() time.Duration {
	return time.Since(s.start)
}

// Laps returns the recorded laps in order.
func (s *Stopwatch) Laps() []Lap {
	return s.laps
}

// String lists the laps and the total.
func (s *Stopwatch) String() string {
	out := ""
	for _, lap := range s.laps {
		out += fmt.Sprintf("%s=%v ", lap.Name, lap.Duration)
	}
	return out + fmt.Sprintf("total=%v", s.Total())
}
