package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/geo"
)

// Fix builds a valid gps sample.
func Fix(t *testing.T, lat, lon, accuracy float64, capturedAt time.Time) geo.Sample {
	s, err := geo.NewSample(lat, lon, geo.Float(accuracy), geo.SourceGPS, capturedAt)
	if err != nil {
		t.Fatalf("Fix() failed: %v", err)
	}
	return s
}

// Step is one scripted Acquire outcome. Block waits for the context to end instead.
type Step struct {
	Sample geo.Sample
	Err    error
	Block  bool
}

// Source replays its steps in order; the last one repeats.
type Source struct {
	mu    sync.Mutex
	steps []Step
	calls []geo.Options
}

var _ geo.Source = (*Source)(nil)

func NewSource(steps ...Step) *Source {
	return &Source{steps: steps}
}

func (s *Source) Acquire(ctx context.Context, opts geo.Options) (geo.Sample, error) {
	s.mu.Lock()
	s.calls = append(s.calls, opts)
	var step Step
	if n := len(s.calls); len(s.steps) > 0 {
		if n > len(s.steps) {
			n = len(s.steps)
		}
		step = s.steps[n-1]
	} else {
		step.Err = geo.ErrPositionUnavailable
	}
	s.mu.Unlock()

	if step.Block {
		<-ctx.Done()
		return geo.Sample{}, ctx.Err()
	}
	return step.Sample, step.Err
}

// Calls returns the options of every Acquire call so far.
func (s *Source) Calls() []geo.Options {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]geo.Options, len(s.calls))
	copy(out, s.calls)
	return out
}

// Geocoder returns Address for every lookup and counts them.
type Geocoder struct {
	mu      sync.Mutex
	Address geo.Address
	calls   int
}

var _ geo.Geocoder = (*Geocoder)(nil)

func (g *Geocoder) Resolve(_ context.Context, _, _ float64) geo.Address {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	return g.Address
}

func (g *Geocoder) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger keeps every entry in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { panic(fmt.Sprintf("fatal: %s", msg)) }

// Entries returns the logged entries of the given level (all of them when level is empty).
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
