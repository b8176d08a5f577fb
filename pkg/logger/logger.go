// Package logger is the zerolog front end shared by every binary. Fields
// accumulate on the context so deeper layers log with the caller's request,
// user and booking ids without threading them through.
package logger

import (
	"context"
	"io"
	"maps"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	// Format is "json" (default) or "console".
	Format    string
	WarnStack bool
	Output    io.Writer
}

type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

const redacted = "[redacted]"

// sensitive field names never reach the sink.
var sensitive = []string{"gate_code", "plaintext", "authorization", "access_token", "guest_token"}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &Logger{
		root:      zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName).Logger(),
		warnStack: opts.WarnStack,
	}
}

// ParseLevel maps LOG_LEVEL to a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// scoped returns the logger stored on ctx by WithFields, or the root logger.
// zerolog.Ctx hands back a disabled logger when nothing was stored.
func (l *Logger) scoped(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if stored := zerolog.Ctx(ctx); stored.GetLevel() != zerolog.Disabled {
			return stored
		}
	}
	return &l.root
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	child := l.scoped(ctx).With().Fields(redact(fields)).Logger()
	return child.WithContext(ctx)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

// WithGuestSession logs only a prefix of the guest token.
func (l *Logger) WithGuestSession(ctx context.Context, token string) context.Context {
	return l.WithField(ctx, "guest_session", token[:min(len(token), 8)])
}

func (l *Logger) WithBookingID(ctx context.Context, bookingID string) context.Context {
	return l.WithField(ctx, "booking_id", bookingID)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.scoped(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.scoped(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	ev := l.scoped(ctx).Warn()
	if l.warnStack {
		ev = ev.Str("stack", stack())
	}
	ev.Msg(msg)
}

// Error always carries a stack; err may be nil.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	ev := l.scoped(ctx).Error().Str("stack", stack())
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}

func redact(fields map[string]any) map[string]any {
	out := maps.Clone(fields)
	for key := range out {
		for _, name := range sensitive {
			if strings.EqualFold(key, name) {
				out[key] = redacted
				break
			}
		}
	}
	return out
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
