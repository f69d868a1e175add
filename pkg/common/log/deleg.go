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

package log

import (
	"sync"

	"github.com/go-logr/logr"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"
)

// loggerPromise records how a delegating sink was derived from its parent,
// so the derivation can be replayed whenever a new root sink is installed.
type loggerPromise struct {
	logger        *DelegatingLogSink
	childPromises []*loggerPromise
	promisesLock  sync.Mutex

	name *string
	tags []any
}

func (p *loggerPromise) WithName(l *DelegatingLogSink, name string) *loggerPromise {
	res := &loggerPromise{
		logger: l,
		name:   &name,
	}

	p.promisesLock.Lock()
	defer p.promisesLock.Unlock()
	p.childPromises = append(p.childPromises, res)
	return res
}

// WithValues provides a new promise with the tags appended.
func (p *loggerPromise) WithValues(l *DelegatingLogSink, tags ...any) *loggerPromise {
	res := &loggerPromise{
		logger: l,
		tags:   tags,
	}

	p.promisesLock.Lock()
	defer p.promisesLock.Unlock()
	p.childPromises = append(p.childPromises, res)
	return res
}

// Fulfill points the promised sink, and every sink derived from it before
// the first fulfillment, at parentLogSink.
func (p *loggerPromise) Fulfill(parentLogSink logr.LogSink) {
	sink := parentLogSink
	if p.name != nil {
		sink = sink.WithName(*p.name)
	}
	if p.tags != nil {
		sink = sink.WithValues(p.tags...)
	}

	p.logger.lock.Lock()
	p.logger.logger = sink
	if withCallDepth, ok := sink.(logr.CallDepthLogSink); ok {
		p.logger.logger = withCallDepth.WithCallDepth(1)
	}
	p.logger.fulfilled = true
	p.logger.lock.Unlock()

	p.promisesLock.Lock()
	children := append([]*loggerPromise(nil), p.childPromises...)
	p.promisesLock.Unlock()
	for _, childPromise := range children {
		childPromise.Fulfill(sink)
	}
}

// DelegatingLogSink is a logr.LogSink that forwards to another sink.
// Sinks derived from it before the first Fulfill are themselves delegating
// and follow every later Fulfill; sinks derived afterwards are bound to the
// sink current at derivation time. Unlike controller-runtime's version it
// can be fulfilled more than once, which lets SetLogLevel change the
// verbosity of package-level loggers.
type DelegatingLogSink struct {
	lock      sync.RWMutex
	logger    logr.LogSink
	promise   *loggerPromise
	fulfilled bool
	info      logr.RuntimeInfo
}

var _ logr.LogSink = &DelegatingLogSink{}

// Init implements logr.LogSink.
func (l *DelegatingLogSink) Init(info logr.RuntimeInfo) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.info = info
}

// Enabled implements logr.LogSink.
func (l *DelegatingLogSink) Enabled(level int) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.logger.Enabled(level)
}

// Info implements logr.LogSink.
func (l *DelegatingLogSink) Info(level int, msg string, keysAndValues ...any) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	l.logger.Info(level, msg, keysAndValues...)
}

// Error implements logr.LogSink.
func (l *DelegatingLogSink) Error(err error, msg string, keysAndValues ...any) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	l.logger.Error(err, msg, keysAndValues...)
}

// WithName provides a new sink with the name appended.
func (l *DelegatingLogSink) WithName(name string) logr.LogSink {
	l.lock.RLock()
	defer l.lock.RUnlock()

	if l.fulfilled {
		sink := l.logger.WithName(name)
		if withCallDepth, ok := sink.(logr.CallDepthLogSink); ok {
			sink = withCallDepth.WithCallDepth(-1)
		}
		return sink
	}

	res := &DelegatingLogSink{logger: l.logger.WithName(name)}
	res.promise = l.promise.WithName(res, name)
	return res
}

// WithValues provides a new sink with the tags appended.
func (l *DelegatingLogSink) WithValues(tags ...any) logr.LogSink {
	l.lock.RLock()
	defer l.lock.RUnlock()

	if l.fulfilled {
		sink := l.logger.WithValues(tags...)
		if withCallDepth, ok := sink.(logr.CallDepthLogSink); ok {
			sink = withCallDepth.WithCallDepth(-1)
		}
		return sink
	}

	res := &DelegatingLogSink{logger: l.logger.WithValues(tags...)}
	res.promise = l.promise.WithValues(res, tags...)
	return res
}

// Fulfill switches the sink, and every sink derived from it before its
// first fulfillment, over to actual.
func (l *DelegatingLogSink) Fulfill(actual logr.LogSink) {
	if actual == nil {
		actual = crlog.NullLogSink{}
	}
	l.promise.Fulfill(actual)
}

// NewDelegatingLogSink constructs a DelegatingLogSink which uses initial
// until it is fulfilled.
func NewDelegatingLogSink(initial logr.LogSink) *DelegatingLogSink {
	l := &DelegatingLogSink{
		logger:  initial,
		promise: &loggerPromise{},
	}
	l.promise.logger = l
	return l
}
