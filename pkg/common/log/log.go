/** Copyright 2020-2023 Alibaba Group Holding Limited.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log holds the global structured logger. It is a logr.Logger
// backed by zap; before SetLogLevel or SetLogger is called it logs through
// a development zap logger at info level.
package log

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var (
	defaultLogger = makeDefaultLogger(0, os.Stderr)

	dlog = NewDelegatingLogSink(defaultLogger.GetSink())

	Log = Logger{logr.New(dlog).WithName("twizzler")}
)

// SetLogLevel switches to a fresh zap logger. Higher levels enable more
// verbose V(n) output.
func SetLogLevel(level int) {
	defaultLogger = makeDefaultLogger(level, os.Stderr)
	dlog.Fulfill(defaultLogger.GetSink())
}

// SetOutput switches to a fresh zap logger writing to w.
func SetOutput(level int, w io.Writer) {
	defaultLogger = makeDefaultLogger(level, w)
	dlog.Fulfill(defaultLogger.GetSink())
}

func makeDefaultLogger(verbose int, w io.Writer) logr.Logger {
	zapOpts := &zap.Options{
		Development: true,
		TimeEncoder: zapcore.ISO8601TimeEncoder,
		Level:       zapcore.Level(-verbose),
		DestWriter:  w,
	}
	return zap.New(zap.UseFlagOptions(zapOpts))
}

type Logger struct {
	logr.Logger
}

// SetLogger sets a concrete logging implementation for all deferred Loggers.
func SetLogger(l Logger) {
	dlog.Fulfill(l.GetSink())
}

// FromContext returns a logger with predefined values from a context.Context.
func FromContext(ctx context.Context, keysAndValues ...any) Logger {
	log := Log.Logger
	if ctx != nil {
		if logger, err := logr.FromContext(ctx); err == nil {
			log = logger
		}
	}
	return Logger{log.WithValues(keysAndValues...)}
}

// IntoContext takes a context and sets the logger as one of its values.
// Use FromContext function to retrieve the logger.
func IntoContext(ctx context.Context, log Logger) context.Context {
	return logr.NewContext(ctx, log.Logger)
}

func V(level int) Logger {
	return Log.V(level)
}

func WithValues(keysAndValues ...any) Logger {
	return Log.WithValues(keysAndValues...)
}

func WithName(name string) Logger {
	return Log.WithName(name)
}

func (l Logger) V(level int) Logger {
	return Logger{l.Logger.V(level)}
}

func (l Logger) WithValues(keysAndValues ...any) Logger {
	return Logger{l.Logger.WithValues(keysAndValues...)}
}

func (l Logger) WithName(name string) Logger {
	return Logger{l.Logger.WithName(name)}
}

// WithObject tags every later entry with an object id.
func (l Logger) WithObject(id fmt.Stringer) Logger {
	return Logger{l.Logger.WithValues("object", id.String())}
}

func (l Logger) Fatal(err error, msg string, keysAndValues ...any) {
	l.Error(err, msg, keysAndValues...)
	os.Exit(1)
}

func (l Logger) Infof(format string, v ...any) {
	l.Info(fmt.Sprintf(format, v...))
}

func (l Logger) Errorf(err error, format string, v ...any) {
	l.Error(err, fmt.Sprintf(format, v...))
}

func (l Logger) Fatalf(err error, format string, v ...any) {
	l.Fatal(err, fmt.Sprintf(format, v...))
}

func Fatal(err error, msg string, keysAndValues ...any) {
	Log.Fatal(err, msg, keysAndValues...)
}
