package common

import (
	"log/slog"
	"strings"
	"time"
)

// Lap is the time spent in one named stage.
type Lap struct {
	Stage    string
	Duration time.Duration
}

// Timer measures a run and, optionally, the consecutive stages inside it.
type Timer struct {
	name     string
	start    time.Time
	mark     time.Time
	laps     []Lap
	duration time.Duration
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return NewNamedTimer("")
}

// NewNamedTimer starts a timer labelled with the run name.
func NewNamedTimer(name string) *Timer {
	now := time.Now()
	return &Timer{name: name, start: now, mark: now}
}

// Lap closes the current stage under the given name and starts the next one.
func (t *Timer) Lap(stage string) time.Duration {
	now := time.Now()
	d := now.Sub(t.mark)
	t.mark = now
	t.laps = append(t.laps, Lap{Stage: stage, Duration: d})
	return d
}

// Laps returns the recorded stages in order.
func (t *Timer) Laps() []Lap { return t.laps }

// LapDuration returns the duration of the named stage, zero if unrecorded.
func (t *Timer) LapDuration(stage string) time.Duration {
	for _, l := range t.laps {
		if l.Stage == stage {
			return l.Duration
		}
	}
	return 0
}

// Stop records and returns the time since the timer started.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration is zero until Stop has been called.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) Name() string {
	return t.name
}

// String renders "name: total (stage=d, ...)".
func (t *Timer) String() string {
	var b strings.Builder
	if t.name != "" {
		b.WriteString(t.name)
		b.WriteString(": ")
	}
	b.WriteString(t.duration.String())
	if len(t.laps) > 0 {
		b.WriteString(" (")
		for i, l := range t.laps {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(l.Stage)
			b.WriteByte('=')
			b.WriteString(l.Duration.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

// LogValue groups the total and every lap under the timer in slog output.
func (t *Timer) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(t.laps)+1)
	attrs = append(attrs, slog.Duration("total", t.duration))
	for _, l := range t.laps {
		attrs = append(attrs, slog.Duration(l.Stage, l.Duration))
	}
	return slog.GroupValue(attrs...)
}
