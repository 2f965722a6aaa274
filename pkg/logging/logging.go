// Package logging provides the engine's process-wide structured logger.
// Every service receives a *Logger at construction; the package keeps
// no package-global logger.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zap's level names with the vocabulary the rest of the
// module already uses (Debug/Info/Warn/Error).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelNone:
		return zapcore.FatalLevel + 1
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel parses a level name, defaulting to LevelInfo on no match.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "none", "off", "silent":
		return LevelNone
	default:
		return LevelInfo
	}
}

// Logger wraps a zap.SugaredLogger. All output goes to stderr by
// default: the engine's stdin/stdout pair is reserved for the
// line-delimited protocol stream in cmd/automationd, so diagnostics
// must never share that pipe.
type Logger struct {
	mu     sync.Mutex
	level  *zap.AtomicLevel
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	prefix string
}

// New builds a Logger writing JSON lines to stderr at the given level.
func New(level Level) *Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stderr), atom)
	base := zap.New(core)
	return &Logger{level: &atom, base: base, sugar: base.Sugar()}
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{base: zap.NewNop(), sugar: zap.NewNop().Sugar()}
}

// WithPrefix returns a derived logger that tags every entry with a
// "component" field, the structured equivalent of the reference
// logger's string prefix.
func (l *Logger) WithPrefix(component string) *Logger {
	return &Logger{
		level:  l.level,
		base:   l.base.With(zap.String("component", component)),
		sugar:  l.sugar.With("component", component),
		prefix: component,
	}
}

// SetLevel adjusts the minimum emitted level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level != nil {
		l.level.SetLevel(level.zapLevel())
	}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// Sync flushes any buffered log entries; call on shutdown.
func (l *Logger) Sync() error { return l.base.Sync() }

// ToolLogger records start/success/failure for a single named
// operation, matching the reference's per-tool logger shape.
type ToolLogger struct {
	*Logger
	toolName string
}

// NewToolLogger derives a ToolLogger for a single operation name.
func (l *Logger) NewToolLogger(toolName string) *ToolLogger {
	return &ToolLogger{Logger: l.WithPrefix(toolName), toolName: toolName}
}

func (t *ToolLogger) Start(kv ...interface{}) { t.Info("start", append([]interface{}{"tool", t.toolName}, kv...)...) }
func (t *ToolLogger) Success(kv ...interface{}) {
	t.Info("success", append([]interface{}{"tool", t.toolName}, kv...)...)
}
func (t *ToolLogger) Failure(err error, kv ...interface{}) {
	t.Error("failure", append([]interface{}{"tool", t.toolName, "error", err}, kv...)...)
}
