package log

import (
	"context"
	"fmt"
	stdlog "log"
	"strings"
)

// logControlCharReplacer escapes control characters that can be used for log injection (CWE-117).
var logControlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func sanitizeLogString(s string) string {
	return logControlCharReplacer.Replace(s)
}

// GoLogger is the Go built-in (log) implementation of Logger.
//
// Output lines look like `[info] [group] [k=v, k2=v2] message`. All string
// values are sanitized to prevent log injection.
type GoLogger struct {
	Level  Level
	out    *stdlog.Logger
	group  string
	fields []Field
}

// Compile-time assertion: *GoLogger implements Logger.
var _ Logger = (*GoLogger)(nil)

// NewGoLogger creates a GoLogger emitting through the given stdlib logger.
// A nil target uses the stdlib default logger.
func NewGoLogger(level Level, target *stdlog.Logger) *GoLogger {
	return &GoLogger{Level: level, out: target}
}

// Enabled reports whether the given level is emitted.
func (l *GoLogger) Enabled(level Level) bool {
	if l == nil {
		return false
	}

	return l.Level >= level
}

// Log formats and emits one line when the level is enabled.
func (l *GoLogger) Log(_ context.Context, level Level, msg string, fields ...Field) {
	if !l.Enabled(level) {
		return
	}

	line := l.hydrate(level, msg, fields)

	if l.out != nil {
		l.out.Print(line)
		return
	}

	stdlog.Print(line)
}

// With returns a child logger carrying additional fields.
//
//nolint:ireturn
func (l *GoLogger) With(fields ...Field) Logger {
	if l == nil {
		return &GoLogger{}
	}

	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)

	return &GoLogger{Level: l.Level, out: l.out, group: l.group, fields: merged}
}

// WithGroup returns a child logger whose lines are tagged with name.
//
//nolint:ireturn
func (l *GoLogger) WithGroup(name string) Logger {
	if l == nil {
		return &GoLogger{}
	}

	group := name
	if l.group != "" {
		group = l.group + "." + name
	}

	return &GoLogger{Level: l.Level, out: l.out, group: group, fields: l.fields}
}

// Sync is a no-op: the stdlib logger writes synchronously.
func (l *GoLogger) Sync(_ context.Context) error { return nil }

func (l *GoLogger) hydrate(level Level, msg string, fields []Field) string {
	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("[%s]", level.String()))

	if l.group != "" {
		parts = append(parts, fmt.Sprintf("[%s]", l.group))
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	if len(all) > 0 {
		kv := make([]string, 0, len(all))
		for _, f := range all {
			kv = append(kv, fmt.Sprintf("%s=%s", sanitizeLogString(f.Key), renderValue(f.Value)))
		}

		parts = append(parts, fmt.Sprintf("[%s]", strings.Join(kv, ", ")))
	}

	parts = append(parts, sanitizeLogString(msg))

	return strings.Join(parts, " ")
}

func renderValue(v any) string {
	if s, ok := v.(string); ok {
		return sanitizeLogString(s)
	}

	return sanitizeLogString(fmt.Sprint(v))
}
