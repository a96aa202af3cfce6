// Package logger owns the process wide zerolog logger and the context
// fields (request id, run id, stage) every log line is enriched with
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"reviewprep/internal/platform/config/raw"
)

// Logger is the logging type passed around the codebase
type Logger = zerolog.Logger

// Options configures Init
type Options struct {
	Level  string // trace..panic; unknown means debug
	Format string // console or json
	Writer io.Writer

	Service      string
	Component    string
	StaticFields map[string]string

	WithCaller  bool
	SampleEvery int // keep one line in N when > 1
}

// FromEnv reads LOG_* without going through config, which logs itself
func FromEnv() Options {
	env := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(env.Get("LEVEL", "debug")),
		Format:      strings.ToLower(env.Get("FORMAT", "console")),
		Service:     env.Get("SERVICE", ""),
		Component:   env.Get("COMPONENT", ""),
		WithCaller:  env.GetBool("CALLER", false),
		SampleEvery: env.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	initOnce sync.Once
	current  atomic.Pointer[Logger]
)

// Get returns the root logger, building it from the environment on first use
func Get() *Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Set replaces the root logger; nil is ignored
func Set(l *Logger) {
	if l != nil {
		current.Store(l)
	}
}

// Init builds the root logger from opt. Only the first call has effect
func Init(opt Options) {
	initOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		w := opt.Writer
		if w == nil {
			w = os.Stdout
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		fields := map[string]any{}
		if bi, ok := debug.ReadBuildInfo(); ok {
			fields["go_version"] = bi.GoVersion
		}
		if opt.Service != "" {
			fields["service"] = opt.Service
		}
		if opt.Component != "" {
			fields["component"] = opt.Component
		}
		for k, v := range opt.StaticFields {
			fields[k] = v
		}

		zc := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp().Fields(fields)
		if opt.WithCaller {
			zc = zc.Caller()
		}
		l := zc.Logger()
		if opt.SampleEvery > 1 {
			l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
		}
		if current.Load() == nil {
			Set(&l)
		}
	})
}

// parseLevel falls back to debug for blank or unknown names
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if lvl, err := zerolog.ParseLevel(s); err == nil && s != "" {
		return lvl
	}
	return zerolog.DebugLevel
}

type ctxField int

const (
	fieldRequestID ctxField = iota
	fieldRunID
	fieldStage
)

var fieldNames = [...]string{"request_id", "run_id", "stage"}

func with(ctx context.Context, f ctxField, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, f, v)
}

// WithRequest tags ctx with an http request id; blank is ignored
func WithRequest(ctx context.Context, reqID string) context.Context {
	return with(ctx, fieldRequestID, reqID)
}

// WithRun tags ctx with a pipeline run id and the stage in progress.
// Blank values keep whatever ctx already carries
func WithRun(ctx context.Context, runID, stage string) context.Context {
	return with(with(ctx, fieldRunID, runID), fieldStage, stage)
}

// C returns a child of the root logger carrying the fields tagged on ctx
func C(ctx context.Context) *Logger {
	zc := Get().With()
	for f, name := range fieldNames {
		if v, ok := ctx.Value(ctxField(f)).(string); ok {
			zc = zc.Str(name, v)
		}
	}
	l := zc.Logger()
	return &l
}

// Named returns a child of the root logger with component set
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
