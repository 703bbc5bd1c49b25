// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — Structured log sink shared by both cores
//
// Purpose:
//   - Implements the "log sink" capability (format string + arguments) on
//     top of zerolog, one child logger per core and per task.
//   - Keeps the DropMessage / DropError breadcrumb helpers for cold paths.
//   - Throttles high-rate telemetry (heap free counters) per category.
//
// Notes:
//   - NewNonBlocking puts a diode ring between the cores and the writer, so a
//     slow terminal can only drop records, never stall an executor.
//   - A nil *Logger is valid and discards everything.
//
// ⚠️ Never log from inside a critical section.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// Sink accepts one formatted record per call, fire-and-forget.
type Sink interface {
	Logf(format string, args ...any)
}

// Logger is the zerolog-backed Sink used throughout the runtime.
type Logger struct {
	z       zerolog.Logger
	limiter *catrate.Limiter
}

var _ Sink = (*Logger)(nil)

// New builds a logger writing JSON records to w at the given level.
func New(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{
		z: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// NewNonBlocking is New behind a diode writer holding size records. Records
// that do not fit are dropped and counted. The returned closer flushes and
// stops the diode poller.
func NewNonBlocking(w io.Writer, size int, level zerolog.Level) (*Logger, io.Closer) {
	var missed atomic.Int64
	dw := diode.NewWriter(w, size, 10*time.Millisecond, func(n int) {
		total := missed.Add(int64(n))
		_, _ = fmt.Fprintf(w, "{\"level\":\"warn\",\"message\":\"log records dropped\",\"missed\":%d}\n", total)
	})
	return New(dw, level), dw
}

// Nop returns a logger that discards every record.
func Nop() *Logger {
	return &Logger{z: zerolog.Nop()}
}

var std atomic.Pointer[Logger]

// Default returns the package-level logger (stderr, info) unless replaced.
func Default() *Logger {
	if l := std.Load(); l != nil {
		return l
	}
	l := New(os.Stderr, zerolog.InfoLevel)
	if std.CompareAndSwap(nil, l) {
		return l
	}
	return std.Load()
}

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) {
	std.Store(l)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(name)
}

// With returns a child logger carrying key=val on every record.
func (l *Logger) With(key, val string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		z:       l.z.With().Str(key, val).Logger(),
		limiter: l.limiter,
	}
}

// ForCore tags records with the emitting core.
func (l *Logger) ForCore(name string) *Logger { return l.With("core", name) }

// ForTask tags records with the emitting task.
func (l *Logger) ForTask(name string) *Logger { return l.With("task", name) }

// WithRate returns a logger whose Throttled records are capped at perSecond
// per category. Children share the limiter.
func (l *Logger) WithRate(perSecond int) *Logger {
	if l == nil {
		return nil
	}
	c := *l
	if perSecond > 0 {
		c.limiter = catrate.NewLimiter(map[time.Duration]int{time.Second: perSecond})
	} else {
		c.limiter = nil
	}
	return &c
}

// Zerolog exposes the underlying logger for callers needing typed fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &l.z
}

// Logf writes an info record.
func (l *Logger) Logf(format string, args ...any) {
	if l == nil {
		return
	}
	l.z.Info().Msgf(format, args...)
}

// Debugf writes a debug record.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.z.Debug().Msgf(format, args...)
}

// Warnf writes a warning record.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.z.Warn().Msgf(format, args...)
}

// Throttled writes an info record unless category already reached its rate,
// and reports whether the record was emitted. Without a limiter every record
// is emitted.
func (l *Logger) Throttled(category string, format string, args ...any) bool {
	if l == nil {
		return false
	}
	if l.limiter != nil {
		if _, ok := l.limiter.Allow(category); !ok {
			return false
		}
	}
	l.z.Info().Str("category", category).Msgf(format, args...)
	return true
}

// DropMessage logs a cold-path breadcrumb: "<prefix>: <message>".
func (l *Logger) DropMessage(prefix, message string) {
	if l == nil {
		return
	}
	l.z.Info().Str("tag", prefix).Msg(message)
}

// DropError logs err under prefix, or just the prefix as a warning tag when
// err is nil.
func (l *Logger) DropError(prefix string, err error) {
	if l == nil {
		return
	}
	if err != nil {
		l.z.Error().Err(err).Msg(prefix)
		return
	}
	l.z.Warn().Msg(prefix)
}

// Fatal records a fatal condition without exiting; the caller decides how to
// stop.
func (l *Logger) Fatal(err error, msg string) {
	if l == nil {
		return
	}
	l.z.WithLevel(zerolog.FatalLevel).Err(err).Msg(msg)
}
