// Copyright 2026 The Caster Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log is the logging facility of the caster. It wraps a zap logger
// behind a small key/value interface:
//
//	log.Info("Stream registered", "peer", peer, "stream_id", id)
//
// The root logger discards everything until Setup is called.
package log

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

// Level is a log level.
type Level zapcore.Level

const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

// Console configures the console logger.
type Console struct {
	// Level of the console logger: debug, info or error.
	Level string `toml:"level,omitempty"`
	// Format of the console output: human or json.
	Format string `toml:"format,omitempty"`
	// StacktraceLevel sets from which level stacktraces are attached.
	StacktraceLevel string `toml:"stacktrace_level,omitempty"`
}

const (
	DefaultConsoleLevel    = "info"
	DefaultConsoleFormat   = "human"
	DefaultStacktraceLevel = "none"
)

// InitDefaults populates unset fields in cfg to their default values.
func (c *Console) InitDefaults() {
	if c.Level == "" {
		c.Level = DefaultConsoleLevel
	}
	if c.Format == "" {
		c.Format = DefaultConsoleFormat
	}
	if c.StacktraceLevel == "" {
		c.StacktraceLevel = DefaultStacktraceLevel
	}
}

// Validate checks that the level and format are known.
func (c *Console) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "human", "json":
		return nil
	default:
		return serrors.New("unknown log format", "format", c.Format)
	}
}

// Config is the logging configuration.
type Config struct {
	Console Console `toml:"console,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values.
func (c *Config) InitDefaults() {
	c.Console.InitDefaults()
}

// Validate validates the logging configuration.
func (c *Config) Validate() error {
	return c.Console.Validate()
}

// ConfigName is the key in the toml file.
func (c *Config) ConfigName() string {
	return "log"
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, serrors.New("unknown log level", "level", s)
	}
}

var root atomic.Pointer[logger]

// consoleLevel is the level of the console core. It can be changed at runtime
// through ConsoleLevelHandler.
var consoleLevel = zap.NewAtomicLevel()

func init() {
	root.Store(&logger{logger: zap.NewNop()})
}

// Setup configures the root logger. It must be called before any worker starts.
func Setup(cfg Config) error {
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, _ := parseLevel(cfg.Console.Level)
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Console.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if st, err := parseLevel(cfg.Console.StacktraceLevel); err == nil {
		opts = append(opts, zap.AddStacktrace(st))
	}
	consoleLevel.SetLevel(lvl)
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), consoleLevel)
	root.Store(&logger{logger: zap.New(core, opts...)})
	return nil
}

// ConsoleLevelHandler reports the console level on GET and changes it on PUT.
func ConsoleLevelHandler() http.Handler {
	return consoleLevel
}

// Root returns the root logger.
func Root() Logger {
	return root.Load()
}

// New creates a child of the root logger with the given context.
func New(ctx ...any) Logger {
	return root.Load().New(ctx...)
}

// Debug logs at debug level.
func Debug(msg string, ctx ...any) {
	root.Load().Debug(msg, ctx...)
}

// Info logs at info level.
func Info(msg string, ctx ...any) {
	root.Load().Info(msg, ctx...)
}

// Error logs at error level.
func Error(msg string, ctx ...any) {
	root.Load().Error(msg, ctx...)
}

// Flush writes buffered log entries.
func Flush() {
	_ = root.Load().logger.Sync()
}

// HandlePanic catches a panic, logs it and re-raises it. Use it as the first
// deferred call of every goroutine.
func HandlePanic() {
	if msg := recover(); msg != nil {
		root.Load().logger.Error("Panic", zap.Any("msg", msg),
			zap.String("stack", string(debug.Stack())))
		Flush()
		panic(msg)
	}
}

type logger struct {
	logger *zap.Logger
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(fields(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, fields(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, fields(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, fields(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(zapcore.Level(lvl))
}

// fields converts alternating keys and values into zap fields. Errors are
// logged as objects so that serrors context survives.
func fields(ctx []any) []zap.Field {
	fs := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key := fmt.Sprint(ctx[i])
		if err, ok := ctx[i+1].(error); ok {
			if m, ok := err.(zapcore.ObjectMarshaler); ok {
				fs = append(fs, zap.Object(key, m))
				continue
			}
			fs = append(fs, zap.String(key, err.Error()))
			continue
		}
		fs = append(fs, zap.Any(key, ctx[i+1]))
	}
	return fs
}

// Wrap adapts a zap logger to the Logger interface.
func Wrap(l *zap.Logger) Logger {
	return &logger{logger: l}
}
