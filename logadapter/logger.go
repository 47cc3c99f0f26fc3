// Package logadapter adapts actorsched.Logger onto the corpus's own
// structured-logging stack: github.com/joeycumines/logiface as the
// generic façade, writing through github.com/joeycumines/stumpy's
// zero-indirection JSON event writer. A repeated bug category (the same
// machine hitting the same assertion across many exploration iterations)
// is throttled via github.com/joeycumines/go-catrate so a long run doesn't
// drown stderr in near-identical lines.
package logadapter

import (
	"io"
	"os"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/driftlock/actorsched"
)

// Logger adapts a logiface logger (backed by stumpy) to actorsched.Logger.
type Logger struct {
	inner   *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter
}

// New builds a Logger writing newline-delimited JSON to w. If w is nil,
// it writes to os.Stderr. Repeated log categories are capped at 20 events
// per second and 200 per minute; entries beyond that are dropped rather
// than queued, since they are reporting duplicate information.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	typed := logiface.New[*stumpy.Event](
		stumpy.WithStumpy(stumpy.WithWriter(w)),
	)
	return &Logger{
		inner: typed.Logger(),
		limiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 20,
			time.Minute: 200,
		}),
	}
}

func toLevel(l actorsched.LogLevel) logiface.Level {
	switch l {
	case actorsched.LevelDebug:
		return logiface.LevelDebug
	case actorsched.LevelInfo:
		return logiface.LevelInformational
	case actorsched.LevelWarn:
		return logiface.LevelWarning
	case actorsched.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// IsEnabled implements actorsched.Logger. logiface levels are syslog-style:
// lower values are more severe, so a level is enabled when it is at least
// as severe as the logger's configured floor.
func (l *Logger) IsEnabled(level actorsched.LogLevel) bool {
	return toLevel(level) <= l.inner.Level()
}

// Log implements actorsched.Logger. Entries are keyed for throttling by
// category plus message, so distinct bugs always get through while a
// single bug repeated across iterations is rate-limited.
func (l *Logger) Log(entry actorsched.LogEntry) {
	b := l.inner.Build(toLevel(entry.Level))
	if b == nil {
		return
	}
	if _, ok := l.limiter.Allow(entry.Category + "|" + entry.Message); !ok {
		return
	}
	b.Int("iteration", entry.Iteration)
	if entry.Category != "" {
		b.Str("category", entry.Category)
	}
	for k, v := range entry.Fields {
		b.Any(k, v)
	}
	if entry.Err != nil {
		b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
