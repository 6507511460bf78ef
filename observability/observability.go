package observability

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type int64Field struct {
	key string
	val int64
}

func (f int64Field) Key() string        { return f.key }
func (f int64Field) Value() interface{} { return f.val }

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type boolField struct {
	key string
	val bool
}

func (f boolField) Key() string        { return f.key }
func (f boolField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field          { return stringField{key, value} }
func Int(key string, value int) Field         { return intField{key, value} }
func Int64(key string, value int64) Field     { return int64Field{key, value} }
func Float64(key string, value float64) Field { return float64Field{key, value} }
func Bool(key string, value bool) Field       { return boolField{key, value} }
func Error(key string, err error) Field       { return errorField{key, err} }

// Duration records d in milliseconds.
func Duration(key string, d time.Duration) Field {
	return float64Field{key, float64(d.Microseconds()) / 1000}
}

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// charmLogger adapts a charmbracelet logger to Logger.
type charmLogger struct{ l *log.Logger }

// NewCharmLogger returns a Logger writing timestamped lines to w. Unknown
// level names fall back to info.
func NewCharmLogger(w io.Writer, level string) Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return charmLogger{log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
	})}
}

func keyvals(fields []Field) []interface{} {
	kv := make([]interface{}, 0, 2*len(fields))
	for _, f := range fields {
		kv = append(kv, f.Key(), f.Value())
	}
	return kv
}

func (c charmLogger) Debug(msg string, fields ...Field) { c.l.Debug(msg, keyvals(fields)...) }
func (c charmLogger) Info(msg string, fields ...Field)  { c.l.Info(msg, keyvals(fields)...) }
func (c charmLogger) Warn(msg string, fields ...Field)  { c.l.Warn(msg, keyvals(fields)...) }
func (c charmLogger) Error(msg string, fields ...Field) { c.l.Error(msg, keyvals(fields)...) }

func (c charmLogger) With(fields ...Field) Logger {
	return charmLogger{c.l.With(keyvals(fields)...)}
}

// Tracer provides tracing hooks for library operations.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a tracing span.
type Span interface {
	SetTag(key string, value interface{})
	SetError(err error)
	Finish()
}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// NopTracer returns a tracer that does nothing.
func NopTracer() Tracer { return nopTracer{} }

type nopSpan struct{}

func (nopSpan) SetTag(string, interface{}) {}
func (nopSpan) SetError(error)             {}
func (nopSpan) Finish()                    {}

// Standard span names emitted by the color engine.
const (
	SpanTransformCreate = "cms.transform.create"
	SpanProofCreate     = "cms.proof.create"
	SpanBitmapTransform = "cms.bitmap.transform"
	SpanEmbeddedAdjust  = "cms.bitmap.adjust_embedded"
)
