// Package trace wraps logrus behind a small interface so the core decoder
// and interpreter packages stay silent unless a caller hands one in.
package trace

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Tracer is the structured-logging handle threaded through archive and vm
// construction (classfile decoding takes none). The zero value (nil) is
// valid and silent.
type Tracer interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New builds a Tracer backed by logrus, writing to w at the given level.
func New(w io.Writer, level logrus.Level) Tracer {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusTracer{entry: logrus.NewEntry(l)}
}

// NewNop returns a Tracer that discards everything, used when callers don't
// want a default io.Discard logrus.Logger allocated per call.
func NewNop() Tracer {
	return nopTracer{}
}

type logrusTracer struct {
	entry *logrus.Entry
}

func (t *logrusTracer) Debugf(format string, args ...interface{}) { t.entry.Debugf(format, args...) }
func (t *logrusTracer) Infof(format string, args ...interface{})  { t.entry.Infof(format, args...) }
func (t *logrusTracer) Warnf(format string, args ...interface{})  { t.entry.Warnf(format, args...) }
func (t *logrusTracer) Errorf(format string, args ...interface{}) { t.entry.Errorf(format, args...) }

type nopTracer struct{}

func (nopTracer) Debugf(string, ...interface{}) {}
func (nopTracer) Infof(string, ...interface{})  {}
func (nopTracer) Warnf(string, ...interface{})  {}
func (nopTracer) Errorf(string, ...interface{}) {}

// Safe returns t if non-nil, otherwise a no-op Tracer. Every package that
// accepts a Tracer at construction should route it through Safe once so call
// sites never need a nil check.
func Safe(t Tracer) Tracer {
	if t == nil {
		return NewNop()
	}
	return t
}
