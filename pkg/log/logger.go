package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

// SetupLogger configures the process-wide logger to write JSON lines at the
// given level ("debug", "info", "warn", "error") and routes warnings raised
// through pkg/errors.Warn into it.
func SetupLogger(level string, w io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}
	SetProvider(NewZerologProvider(w, lvl))
	return nil
}

// SetProvider replaces the process-wide provider. Tests use it with a
// TestLoggerProvider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defaultProvider = p
	providerMu.Unlock()

	warnLogger := p.GetLoggerWithName("warnings")
	scierrors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), ErrorKey, w)
	})
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// ParseLevel converts a textual level into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, scierrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}

func toZerologLevel(l Level) zerolog.Level {
	switch {
	case l <= LevelDebug:
		return zerolog.DebugLevel
	case l <= LevelInfo:
		return zerolog.InfoLevel
	case l <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider implements LoggerProvider on top of zerolog.
type ZerologProvider struct {
	mu   sync.Mutex
	root zerolog.Logger
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	root := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologProvider{root: root}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &zerologLogger{zl: p.root}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel. Loggers already handed out
// keep their level.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = p.root.Level(toZerologLevel(level))
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for _, kv := range pairs(fields) {
		switch v := kv.value.(type) {
		case error:
			ctx = ctx.Str(kv.key, v.Error())
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(kv.key, v)
		default:
			ctx = ctx.Interface(kv.key, v)
		}
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for _, kv := range pairs(fields) {
		switch v := kv.value.(type) {
		case error:
			e = e.Str(kv.key, v.Error())
			if obj, ok := v.(zerolog.LogObjectMarshaler); ok {
				e = e.Object(kv.key+".detail", obj)
			}
			if st := extractStacktrace(v); st != "" {
				e = e.Str(StacktraceKey, st)
			}
		case time.Duration:
			e = e.Dur(kv.key, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(kv.key, v)
		default:
			e = e.Interface(kv.key, v)
		}
	}
	e.Msg(msg)
}

type keyValue struct {
	key   string
	value any
}

// pairs turns alternating key/value fields into pairs. A leading error is
// keyed as ErrorKey; a dangling key gets a nil value.
func pairs(fields []any) []keyValue {
	var out []keyValue
	i := 0
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			out = append(out, keyValue{key: ErrorKey, value: err})
			i = 1
		}
	}
	for ; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		var value any
		if i+1 < len(fields) {
			value = fields[i+1]
		}
		out = append(out, keyValue{key: key, value: value})
	}
	return out
}

// extractStacktrace returns the first stack trace recorded anywhere in the
// error chain by cockroachdb/errors.
func extractStacktrace(err error) string {
	for _, payload := range errors.GetAllSafeDetails(err) {
		for _, detail := range payload.SafeDetails {
			if strings.Contains(detail, ".go:") {
				return detail
			}
		}
	}
	return ""
}
