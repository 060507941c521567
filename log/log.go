package log

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type AttrOption func(l zerolog.Context) zerolog.Context

// Scope sets the component name.
func Scope(s string) AttrOption {
	return func(l zerolog.Context) zerolog.Context {
		return l.Str("s", s)
	}
}

// Operation sets the operation name.
func Operation(op string) AttrOption {
	return func(l zerolog.Context) zerolog.Context {
		return l.Str("op", op)
	}
}

// NS sets the namespace. An empty coll logs the database only.
func NS(db, coll string) AttrOption {
	return func(l zerolog.Context) zerolog.Context {
		if coll == "" {
			return l.Str("ns", db)
		}
		return l.Str("ns", db+"."+coll)
	}
}

// Queue sets the work queue name.
func Queue(name string) AttrOption {
	return func(l zerolog.Context) zerolog.Context {
		return l.Str("queue", name)
	}
}

// Worker sets the worker index.
func Worker(i int) AttrOption {
	return func(l zerolog.Context) zerolog.Context {
		return l.Int("worker", i)
	}
}

func WithAttrs(ctx context.Context, opts ...AttrOption) context.Context {
	l := zerolog.Ctx(ctx).With()
	for _, opt := range opts {
		l = opt(l)
	}
	return l.Logger().WithContext(ctx)
}

func Trace(ctx context.Context, msg string) {
	zerolog.Ctx(ctx).Trace().Timestamp().Msg(msg)
}

func Tracef(ctx context.Context, msg string, args ...any) {
	zerolog.Ctx(ctx).Trace().Timestamp().Msgf(msg, args...)
}

func Debug(ctx context.Context, msg string) {
	zerolog.Ctx(ctx).Debug().Timestamp().Msg(msg)
}

func Debugf(ctx context.Context, msg string, args ...any) {
	zerolog.Ctx(ctx).Debug().Timestamp().Msgf(msg, args...)
}

func Info(ctx context.Context, msg string) {
	zerolog.Ctx(ctx).Info().Timestamp().Msg(msg)
}

func Infof(ctx context.Context, msg string, args ...any) {
	zerolog.Ctx(ctx).Info().Timestamp().Msgf(msg, args...)
}

func Warn(ctx context.Context, msg string) {
	zerolog.Ctx(ctx).Warn().Timestamp().Msg(msg)
}

func Warnf(ctx context.Context, msg string, args ...any) {
	zerolog.Ctx(ctx).Warn().Timestamp().Msgf(msg, args...)
}

func Error(ctx context.Context, err error, msg string) {
	zerolog.Ctx(ctx).Error().Err(err).Timestamp().Msg(msg)
}

func Errorf(ctx context.Context, err error, msg string, args ...any) {
	zerolog.Ctx(ctx).Error().Err(err).Timestamp().Msgf(msg, args...)
}

// New returns a console logger writing to stderr.
func New(level zerolog.Level, noColor bool) *zerolog.Logger {
	w := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.NoColor = noColor
		w.TimeFormat = time.DateTime
	})
	l := zerolog.New(w).Level(level)
	return &l
}

// InitGlobals builds the process logger and makes it the fallback for contexts
// that carry no logger.
func InitGlobals(level zerolog.Level, json, noColor bool) *zerolog.Logger {
	var l *zerolog.Logger
	if json {
		jl := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
		l = &jl
	} else {
		l = New(level, noColor)
	}

	zerolog.SetGlobalLevel(level)
	SetFallbackLogger(l)

	return l
}

func SetFallbackLogger(l *zerolog.Logger) {
	zerolog.DefaultContextLogger = l
}
