// Package rtlog is the logging seam every other package depends on. It
// mirrors the shape of the teacher's own pe/log package (a Logger
// interface, a Level type, NewStdLogger/NewFilter constructors) so
// call sites read the same way, but the concrete implementation is backed
// by go.uber.org/zap instead of a hand-rolled *log.Logger wrapper.
package rtlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zapcore.Level but keeps callers from importing zapcore
// directly, the same insulation the teacher's log package gives pe.go.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the interface every component accepts. Components never see a
// concrete *zap.Logger.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	With(fields ...Field) Logger
}

// Field is a structured key/value pair attached to a logger or a single
// call. Kept as a thin alias over zap.Field so callers never import zap.
type Field = zap.Field

func String(key, value string) Field   { return zap.String(key, value) }
func Int(key string, value int) Field  { return zap.Int(key, value) }
func Uint32(key string, v uint32) Field { return zap.Uint32(key, v) }
func Err(err error) Field              { return zap.Error(err) }

type zapLogger struct {
	s *zap.SugaredLogger
}

func (z *zapLogger) Debugf(format string, args ...any) { z.s.Debugf(format, args...) }
func (z *zapLogger) Infof(format string, args ...any)  { z.s.Infof(format, args...) }
func (z *zapLogger) Warnf(format string, args ...any)  { z.s.Warnf(format, args...) }
func (z *zapLogger) Errorf(format string, args ...any) { z.s.Errorf(format, args...) }
func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{s: z.s.Desugar().With(fields...).Sugar()}
}

// NewStdLogger builds a Logger writing console-encoded lines to stdout, at
// the given minimum level.
func NewStdLogger(level Level) Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stdout),
		level.zapLevel(),
	)
	return &zapLogger{s: zap.New(core).Sugar()}
}

// NewFilter returns a std logger at the given minimum level. It does not
// wrap base: base's fields and output are not carried over. Named after the teacher's log.NewFilter(logger, log.FilterLevel(...)).
func NewFilter(base Logger, min Level) Logger {
	// The zap-backed implementation has no cheap way to re-filter an
	// already-built core, so NewFilter rebuilds a fresh std logger at the
	// requested level; component code never depends on this detail.
	_ = base
	return NewStdLogger(min)
}

// Nop discards everything, used by default in tests and library embeddings
// that have not supplied a Logger.
func Nop() Logger { return &zapLogger{s: zap.NewNop().Sugar()} }
