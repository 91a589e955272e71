package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	perrors "github.com/YuminosukeSato/matprop/pkg/errors"
)

// ZerologLogger adapts zerolog to the Logger interface.
type ZerologLogger struct {
	zl    zerolog.Logger
	level *levelVar
}

type levelVar struct {
	mu    sync.RWMutex
	level Level
}

func (v *levelVar) get() Level {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.level
}

func (v *levelVar) set(l Level) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.level = l
}

// NewZerologLogger returns a JSON logger writing to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl, level: &levelVar{level: level}}
}

func (l *ZerologLogger) Debug(msg string, fields ...any) { l.emit(LevelDebug, msg, fields) }
func (l *ZerologLogger) Info(msg string, fields ...any)  { l.emit(LevelInfo, msg, fields) }
func (l *ZerologLogger) Warn(msg string, fields ...any)  { l.emit(LevelWarn, msg, fields) }
func (l *ZerologLogger) Error(msg string, fields ...any) { l.emit(LevelError, msg, fields) }

// With returns a child logger carrying fields on every record.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for _, kv := range pairs(fields) {
		ctx = ctx.Interface(kv.key, normalize(kv.value))
	}
	return &ZerologLogger{zl: ctx.Logger(), level: l.level}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.level.get()
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *ZerologLogger) SetLevel(level Level) {
	l.level.set(level)
}

func (l *ZerologLogger) emit(level Level, msg string, fields []any) {
	if level < l.level.get() {
		return
	}
	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = l.zl.Debug()
	case LevelInfo:
		ev = l.zl.Info()
	case LevelWarn:
		ev = l.zl.Warn()
	default:
		ev = l.zl.Error()
	}
	for _, kv := range pairs(fields) {
		if err, ok := kv.value.(error); ok {
			ev = ev.AnErr(kv.key, err)
			var m zerolog.LogObjectMarshaler
			if errors.As(err, &m) {
				ev = ev.Object(kv.key+".detail", m)
			}
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceKey, st)
			}
			continue
		}
		ev = ev.Interface(kv.key, normalize(kv.value))
	}
	ev.Msg(msg)
}

type keyValue struct {
	key   string
	value any
}

// pairs turns alternating key/value fields into pairs. A bare error without
// a key is filed under ErrAttrKey; a trailing key without value is kept as
// "!BADKEY" the way slog does.
func pairs(fields []any) []keyValue {
	out := make([]keyValue, 0, len(fields)/2+1)
	for i := 0; i < len(fields); {
		if err, ok := fields[i].(error); ok {
			out = append(out, keyValue{key: ErrAttrKey, value: err})
			i++
			continue
		}
		if i+1 >= len(fields) {
			out = append(out, keyValue{key: "!BADKEY", value: fields[i]})
			break
		}
		out = append(out, keyValue{key: fmt.Sprint(fields[i]), value: fields[i+1]})
		i += 2
	}
	return out
}

func normalize(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// extractStacktrace pulls the first safe detail recorded by cockroachdb/errors,
// which holds the stack captured at WithStack time.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// ToLogLevel parses a configuration level name.
func ToLogLevel(level string) (Level, error) {
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
		return LevelInfo, perrors.NewValidationError("log_level", "unknown level", level)
	}
}

// SetupLogger installs a zerolog provider writing to stdout at the given
// level and routes pkg/errors warnings through it.
func SetupLogger(loglevel string) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}
	return SetupLoggerTo(os.Stdout, level)
}

// SetupLoggerTo is SetupLogger with an explicit destination.
func SetupLoggerTo(w io.Writer, level Level) error {
	provider := NewZerologProvider(w, level)
	SetProvider(provider)

	warnLogger := provider.GetLoggerWithName("warnings")
	perrors.SetZerologWarnFunc(func(warning error) {
		warnLogger.Warn(warning.Error(), "warning", warning)
	})
	return nil
}
