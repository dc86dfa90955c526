// Package observability decouples the engine from any particular
// logging backend. Library packages accept a Logger and default to the
// no-op implementation; binaries install the zap-backed one.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used across the module.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Float64(key string, v float64) Field { return Field{Key: key, Value: v} }
func Error(err error) Field               { return Field{Key: "error", Value: err} }

// NopLogger discards everything. The default for library use.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Zap adapts a zap logger to the Logger interface.
func Zap(l *zap.Logger) Logger { return zapLogger{l} }

// NewProduction builds a zap-backed production logger. Errors fall
// back to the no-op logger rather than failing the caller.
func NewProduction() Logger {
	zl, err := zap.NewProduction()
	if err != nil {
		return NopLogger{}
	}
	return zapLogger{zl}
}

// NewDevelopment builds a human-readable zap-backed logger.
func NewDevelopment() Logger {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return NopLogger{}
	}
	return zapLogger{zl}
}

type zapLogger struct {
	l *zap.Logger
}

func (z zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, zapFields(fields)...) }
func (z zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, zapFields(fields)...) }
func (z zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, zapFields(fields)...) }
func (z zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, zapFields(fields)...) }
func (z zapLogger) With(fields ...Field) Logger       { return zapLogger{z.l.With(zapFields(fields)...)} }

func zapFields(fields []Field) []zapcore.Field {
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
