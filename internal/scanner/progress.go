package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress while many images are scanned.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback discards every event.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)        {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()        {}
func (NoOpProgressCallback) OnError(int, error) {}

// ConsoleProgressCallback draws a progress bar with rate and ETA.
type ConsoleProgressCallback struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration

	mu         sync.Mutex
	startTime  time.Time
	lastUpdate time.Time
	failed     int
}

// NewConsoleProgressCallback writes to w, or stderr when w is nil.
func NewConsoleProgressCallback(w io.Writer, prefix string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{
		writer:         w,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

// WithWidth sets the bar width in characters.
func (c *ConsoleProgressCallback) WithWidth(width int) *ConsoleProgressCallback {
	c.width = max(width, 1)
	return c
}

// WithInterval sets the minimum time between redraws.
func (c *ConsoleProgressCallback) WithInterval(d time.Duration) *ConsoleProgressCallback {
	if d > 0 {
		c.updateInterval = d
	}
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	c.failed = 0
	_, _ = fmt.Fprintf(c.writer, "%sscanning %d images\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if current < total && now.Sub(c.lastUpdate) < c.updateInterval {
		return
	}
	c.lastUpdate = now
	if total <= 0 {
		return
	}

	filled := c.width * current / total
	line := fmt.Sprintf("\r%s[%s%s] %d/%d", c.prefix,
		strings.Repeat("#", filled), strings.Repeat(".", c.width-filled), current, total)
	if elapsed := now.Sub(c.startTime); elapsed > 0 && current > 0 {
		rate := float64(current) / elapsed.Seconds()
		line += fmt.Sprintf(" %.1f/s", rate)
		if current < total {
			eta := time.Duration(float64(total-current) / rate * float64(time.Second))
			line += fmt.Sprintf(" ETA %v", eta.Round(time.Second))
		}
	}
	_, _ = fmt.Fprint(c.writer, line)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%sdone in %v", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
	if c.failed > 0 {
		_, _ = fmt.Fprintf(c.writer, ", %d failed", c.failed)
	}
	_, _ = fmt.Fprintln(c.writer)
}

func (c *ConsoleProgressCallback) OnError(int, error) {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}

// LogProgressCallback reports progress through slog every interval items.
type LogProgressCallback struct {
	logger   *slog.Logger
	level    slog.Level
	interval int

	mu        sync.Mutex
	lastLog   int
	startTime time.Time
}

// NewLogProgressCallback logs to logger, or slog.Default() when nil.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, interval: 10}
}

// WithInterval logs every n items.
func (l *LogProgressCallback) WithInterval(n int) *LogProgressCallback {
	l.interval = max(n, 1)
	return l
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Log(context.Background(), l.level, "Scan started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current-l.lastLog < l.interval && current != total {
		return
	}
	l.lastLog = current
	l.logger.Log(context.Background(), l.level, "Scan progress",
		"current", current,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Log(context.Background(), l.level, "Scan completed",
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Warn("Scan failed", "current", current, "error", err)
}

// MultiProgressCallback fans events out to several callbacks.
type MultiProgressCallback []ProgressCallback

func (m MultiProgressCallback) OnStart(total int) {
	for _, cb := range m {
		cb.OnStart(total)
	}
}

func (m MultiProgressCallback) OnProgress(current, total int) {
	for _, cb := range m {
		cb.OnProgress(current, total)
	}
}

func (m MultiProgressCallback) OnComplete() {
	for _, cb := range m {
		cb.OnComplete()
	}
}

func (m MultiProgressCallback) OnError(current int, err error) {
	for _, cb := range m {
		cb.OnError(current, err)
	}
}
