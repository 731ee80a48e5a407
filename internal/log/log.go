// Package log is the structured logger the core thread, discovery engine
// and RTPS reliability state machines share, modeled on golib's
// logrus-backed logger/fields.go convention: entries always carry the
// GuidPrefix/EntityId/sequence-number context of whatever they describe
// instead of freeform strings.
package log

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tdds/tdds-core/pkg/guid"
)

// Logger is the shared entry point; components hold one injected at
// construction rather than reaching for a package-level global, so tests
// can substitute a buffer-backed instance.
type Logger struct {
	*logrus.Entry
}

// New builds a Logger at the given level ("debug", "info", "warn", "error"),
// writing JSON-formatted entries to stderr the way a production dispatcher
// would pipe them to a log aggregator.
func New(level string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	if lv, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lv)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logger{Entry: logrus.NewEntry(l)}
}

// Discard returns a Logger whose output is dropped, for tests and for
// components running with tracing disabled.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(nil)
	l.Out = discardWriter{}
	return &Logger{Entry: logrus.NewEntry(l)}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// WithGuid attaches an entity's full Guid as structured fields, the
// equivalent of golib's logger.WithField chain keyed by request id.
func (l *Logger) WithGuid(g guid.Guid) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields{
		"guid_prefix": g.Prefix.String(),
		"entity_id":   g.Entity.String(),
	})}
}

// WithSeqNum attaches an RTPS sequence number field.
func (l *Logger) WithSeqNum(seq uint64) *Logger {
	return &Logger{Entry: l.Entry.WithField("seqnum", seq)}
}

// With is a passthrough to logrus.Entry.WithField, re-wrapped so callers
// stay on this package's type.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}
