package logging

import (
	"time"

	"github.com/eunmann/wadtik/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// Event names shared by the packing, catalog and fetch phases.
const (
	EventPhaseCompleted = "phase_completed"
	EventFileCreated    = "file_created"
	EventFileScanned    = "file_scanned"
)

// Event builds one structured log line for something that finished. Fields
// are written in the order they were added, after event, phase and
// duration_ms. In pretty mode sizes, counts and durations gain "_h"
// companions.
type Event struct {
	log     zerolog.Logger
	name    string
	phase   string
	elapsed time.Duration
	fields  []func(*zerolog.Event)
}

func newEvent(log zerolog.Logger, name, phase string, elapsed time.Duration) *Event {
	return &Event{log: log, name: name, phase: phase, elapsed: elapsed}
}

// PhaseComplete starts the summary line of a phase (unpack, pack, catalog).
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *Event {
	return newEvent(log, EventPhaseCompleted, phase, elapsed)
}

// FileCreated starts the line for a written section, package or report.
func FileCreated(log zerolog.Logger, phase string, elapsed time.Duration) *Event {
	return newEvent(log, EventFileCreated, phase, elapsed)
}

func (e *Event) add(f func(*zerolog.Event)) *Event {
	e.fields = append(e.fields, f)
	return e
}

// Str adds a string field.
func (e *Event) Str(key, val string) *Event {
	return e.add(func(z *zerolog.Event) { z.Str(key, val) })
}

// Bool adds a bool field.
func (e *Event) Bool(key string, val bool) *Event {
	return e.add(func(z *zerolog.Event) { z.Bool(key, val) })
}

// Bytes adds a byte size.
func (e *Event) Bytes(key string, n int64) *Event {
	return e.add(func(z *zerolog.Event) {
		z.Int64(key, n)
		if IsPrettyMode() {
			z.Str(key+"_h", humanfmt.Bytes(n))
		}
	})
}

// Count adds a number of files, tickets or records.
func (e *Event) Count(key string, n int64) *Event {
	return e.add(func(z *zerolog.Event) {
		z.Int64(key, n)
		if IsPrettyMode() {
			z.Str(key+"_h", humanfmt.Count(n))
		}
	})
}

// Throughput adds the rate at which n bytes moved over the event's duration.
// It adds nothing for a zero duration.
func (e *Event) Throughput(n int64) *Event {
	if e.elapsed <= 0 {
		return e
	}
	return e.add(func(z *zerolog.Event) {
		z.Float64("throughput_bps", float64(n)/e.elapsed.Seconds())
		if IsPrettyMode() {
			z.Str("throughput_h", humanfmt.Throughput(n, e.elapsed))
		}
	})
}

// Log writes the event at info level.
func (e *Event) Log(msg string) {
	e.emit(e.log.Info(), msg)
}

// LogDebug writes the event at debug level.
func (e *Event) LogDebug(msg string) {
	e.emit(e.log.Debug(), msg)
}

func (e *Event) emit(z *zerolog.Event, msg string) {
	if z == nil {
		return
	}
	z.Str("event", e.name).
		Str("phase", e.phase).
		Int64("duration_ms", e.elapsed.Milliseconds())
	if IsPrettyMode() {
		z.Str("duration_h", humanfmt.Duration(e.elapsed))
	}
	for _, f := range e.fields {
		f(z)
	}
	z.Msg(msg)
}
