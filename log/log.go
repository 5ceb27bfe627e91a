// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log re-exports the luxfi/log.Logger contract used throughout the
// substrate and supplies the two constructors every component falls back
// to: a real zap-backed logger for production wiring, and a no-op logger
// for components not given one explicitly.
package log

import (
	"context"
	"log/slog"

	"github.com/luxfi/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func zapcoreLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Logger is the structured, leveled logger interface every long-lived
// component (transport, protocol manager, router, self-organizing
// network, orchestrator) holds, injected at construction.
type Logger = log.Logger

// NewNoOpLogger returns a Logger that discards everything. Components
// constructed without an explicit logger default to this.
func NewNoOpLogger() Logger {
	return log.NewNoOpLogger()
}

// zapLogger adapts a *zap.Logger to the log.Logger contract.
type zapLogger struct {
	z *zap.Logger
}

// New returns a production Logger named after the owning component
// (e.g. "router", "selforganize", "protocolmgr").
func New(component string) Logger {
	core, err := zap.NewProduction()
	if err != nil {
		return NewNoOpLogger()
	}
	return &zapLogger{z: core.Named(component)}
}

// Component returns a child logger scoped to name, matching the teacher's
// With-chaining convention used for every packet trace and health event.
func Component(base Logger, name string) Logger {
	if base == nil {
		return NewNoOpLogger()
	}
	return base.New("component", name)
}

func toFields(ctx ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, ctx[i+1]))
	}
	return fields
}

func (l *zapLogger) With(ctx ...interface{}) log.Logger {
	return &zapLogger{z: l.z.With(toFields(ctx...)...)}
}

func (l *zapLogger) New(ctx ...interface{}) log.Logger {
	return l.With(ctx...)
}

func (l *zapLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	switch {
	case level >= slog.LevelError:
		l.z.Error(msg, toFields(ctx...)...)
	case level >= slog.LevelWarn:
		l.z.Warn(msg, toFields(ctx...)...)
	case level >= slog.LevelInfo:
		l.z.Info(msg, toFields(ctx...)...)
	default:
		l.z.Debug(msg, toFields(ctx...)...)
	}
}

func (l *zapLogger) Trace(msg string, ctx ...interface{}) { l.z.Debug(msg, toFields(ctx...)...) }
func (l *zapLogger) Debug(msg string, ctx ...interface{}) { l.z.Debug(msg, toFields(ctx...)...) }
func (l *zapLogger) Info(msg string, ctx ...interface{})  { l.z.Info(msg, toFields(ctx...)...) }
func (l *zapLogger) Warn(msg string, ctx ...interface{})  { l.z.Warn(msg, toFields(ctx...)...) }
func (l *zapLogger) Error(msg string, ctx ...interface{}) { l.z.Error(msg, toFields(ctx...)...) }
func (l *zapLogger) Crit(msg string, ctx ...interface{})  { l.z.Error(msg, toFields(ctx...)...) }

func (l *zapLogger) WriteLog(level slog.Level, msg string, attrs ...any) {
	l.Log(level, msg, attrs...)
}

func (l *zapLogger) Enabled(_ context.Context, level slog.Level) bool {
	return l.z.Core().Enabled(zapcoreLevel(level))
}

func (l *zapLogger) Handler() slog.Handler { return nil }

func (l *zapLogger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }
func (l *zapLogger) Verbo(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }

func (l *zapLogger) WithFields(fields ...zap.Field) log.Logger {
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) WithOptions(opts ...zap.Option) log.Logger {
	return &zapLogger{z: l.z.WithOptions(opts...)}
}

func (l *zapLogger) SetLevel(slog.Level)          {}
func (l *zapLogger) GetLevel() slog.Level         { return slog.LevelInfo }
func (l *zapLogger) EnabledLevel(lvl slog.Level) bool {
	return l.Enabled(context.Background(), lvl)
}

func (l *zapLogger) StopOnPanic() {}
func (l *zapLogger) RecoverAndPanic(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.z.Sync()
			panic(r)
		}
	}()
	f()
}
func (l *zapLogger) RecoverAndExit(f, exit func()) {
	defer func() {
		if recover() != nil {
			exit()
		}
	}()
	f()
}

func (l *zapLogger) Stop() { _ = l.z.Sync() }

func (l *zapLogger) Write(p []byte) (int, error) {
	l.z.Info(string(p))
	return len(p), nil
}
