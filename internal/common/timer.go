// Package common provides stage timing and repeated-run measurement shared
// by the scanner, the CLI and the server.
package common

import (
	"fmt"
	"log/slog"
	"time"
)

// Timer measures one stage.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer that reports under name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the duration recorded by the last Stop.
func (t *Timer) Duration() time.Duration { return t.duration }

// Elapsed returns the time since the timer started without stopping it.
func (t *Timer) Elapsed() time.Duration { return time.Since(t.start) }

// Name returns the timer name, empty for unnamed timers.
func (t *Timer) Name() string { return t.name }

// Attr returns the recorded duration as a log attribute keyed by name.
func (t *Timer) Attr() slog.Attr {
	key := t.name
	if key == "" {
		key = "duration"
	}
	return slog.Duration(key, t.duration)
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}
