// Package logging wires the event-emission points named throughout the
// spec (skip, warning, error, debug, info) onto a single zerolog.Logger,
// so every component logs through the same small surface instead of
// inventing its own facade.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the event sink shared by the accept loop, pool, workers, and
// WebSocket manager.
type Logger struct {
	z zerolog.Logger
}

// New returns a Logger writing to w in zerolog's console format. A nil w
// defaults to os.Stderr.
func New(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	z := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	return Logger{z: z}
}

// Nop returns a Logger that discards every event.
func Nop() Logger {
	return Logger{z: zerolog.Nop()}
}

// With returns a Logger with component added as a field, used by each
// subsystem to tag its own events ("worker", "pool", "accept", "ws").
func (l Logger) With(component string) Logger {
	return Logger{z: l.z.With().Str("component", component).Logger()}
}

// Skip records a connection abandoned before or during assembly (spec's
// "skip" event: parse failure, zero-read, I/O error pre-dispatch).
func (l Logger) Skip(reason string, kv ...any) {
	ev := l.z.Info().Str("event", "skip")
	appendFields(ev, kv).Msg(reason)
}

// Warning records a recoverable anomaly: parse error, queue overflow,
// dead worker, WebSocket protocol error on a single connection.
func (l Logger) Warning(reason string, kv ...any) {
	ev := l.z.Warn().Str("event", "warning")
	appendFields(ev, kv).Msg(reason)
}

// Error records a handler error, exception-handler failure, or a fatal
// condition inside a long-running loop.
func (l Logger) Error(err error, reason string, kv ...any) {
	ev := l.z.Error().Str("event", "error").Err(err)
	appendFields(ev, kv).Msg(reason)
}

// Debug records periodic internal state, e.g. the health manager's
// {busy, waiting, dead} summary.
func (l Logger) Debug(reason string, kv ...any) {
	ev := l.z.Debug().Str("event", "debug")
	appendFields(ev, kv).Msg(reason)
}

// Info records routine lifecycle transitions (bind succeeded, shutdown
// complete).
func (l Logger) Info(reason string, kv ...any) {
	ev := l.z.Info().Str("event", "info")
	appendFields(ev, kv).Msg(reason)
}

// appendFields folds alternating key/value pairs onto ev as Interface
// fields; an odd trailing key is ignored.
func appendFields(ev *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
