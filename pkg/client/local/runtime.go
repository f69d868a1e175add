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

// Package local is an in-process implementation of client.Runtime. Objects
// live in memory obtained from an Arrow allocator; every distinct
// (object, flags) mapping gets its own control region whose first word is
// the shared reference count.
package local

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"

	"github.com/twizzler/rt-abi-go/pkg/client"
	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/log"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// controlRegionSize keeps each control region on its own cache line.
const controlRegionSize = 64

// Resolver turns the values of a resolver FOT entry into a target object.
type Resolver func(entry types.FotEntry) (types.ObjID, error)

type Option func(*Runtime)

// WithAllocator sets where object and control memory comes from.
func WithAllocator(alloc memory.Allocator) Option {
	return func(r *Runtime) {
		r.alloc = alloc
	}
}

func WithConfig(cfg common.Config) Option {
	return func(r *Runtime) {
		r.cfg = cfg
	}
}

// WithAbort replaces the default abort, which logs and exits the process.
func WithAbort(abort func()) Option {
	return func(r *Runtime) {
		r.abort = abort
	}
}

func WithResolver(tag uint64, resolver Resolver) Option {
	return func(r *Runtime) {
		r.resolvers[tag] = resolver
	}
}

type mappingKey struct {
	id    types.ObjID
	flags types.MapFlags
}

type mapping struct {
	key     mappingKey
	obj     *object
	control []byte
}

func (m *mapping) refs() *uint64 {
	return (*uint64)(m.runtimeInfo())
}

func (m *mapping) runtimeInfo() unsafe.Pointer {
	return unsafe.Pointer(&m.control[0])
}

// acquire adds a reference unless the count already dropped to zero, in
// which case the mapping is on its way out and must not be revived.
func (m *mapping) acquire() bool {
	for {
		c := atomic.LoadUint64(m.refs())
		if c == 0 {
			return false
		}
		if atomic.CompareAndSwapUint64(m.refs(), c, c+1) {
			return true
		}
	}
}

// Runtime is safe for concurrent use.
type Runtime struct {
	mu        sync.Mutex
	alloc     memory.Allocator
	cfg       common.Config
	objects   map[types.ObjID]*object
	zombies   map[*object]struct{}
	mappings  map[mappingKey]*mapping
	byControl map[uintptr]*mapping
	releases  map[types.ObjID]int
	calls     map[string]int
	resolvers map[uint64]Resolver
	abort     func()
	log       log.Logger
}

var _ client.Runtime = &Runtime{}

func New(opts ...Option) *Runtime {
	r := &Runtime{
		alloc:     memory.DefaultAllocator,
		cfg:       common.DefaultConfig(),
		objects:   map[types.ObjID]*object{},
		zombies:   map[*object]struct{}{},
		mappings:  map[mappingKey]*mapping{},
		byControl: map[uintptr]*mapping{},
		releases:  map[types.ObjID]int{},
		calls:     map[string]int{},
		resolvers: map[uint64]Resolver{},
		log:       log.WithName("local-runtime"),
	}
	r.abort = func() {
		r.log.Fatal(nil, "runtime abort requested")
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterResolver installs the resolver used for FOT entries tagged with
// tag, replacing any previous one.
func (r *Runtime) RegisterResolver(tag uint64, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[tag] = resolver
}

func (r *Runtime) Abort() {
	r.abort()
}

// Releases counts the mappings of id that were released by their last
// handle.
func (r *Runtime) Releases(id types.ObjID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releases[id]
}

// Calls counts the boundary calls received with the given request type,
// such as common.MAP_REQUEST.
func (r *Runtime) Calls(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[kind]
}

func (r *Runtime) traceLocked(kind string, keysAndValues ...any) {
	r.calls[kind]++
	r.log.V(2).Info("runtime call", append([]any{"type", kind}, keysAndValues...)...)
}

// LiveMappings is the number of mappings that have not been released.
func (r *Runtime) LiveMappings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byControl)
}

// Objects lists the ids of the objects that exist, deleted ones excluded.
func (r *Runtime) Objects() []types.ObjID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Keys(r.objects)
}

// Close frees all memory. Every mapping still live is reported as an
// error; its memory is freed regardless, so handles onto it must not be
// used afterwards.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for ptr, m := range r.byControl {
		err = multierr.Append(err, errors.Errorf("mapping of %s (%s) leaked with %d references",
			m.key.id, m.key.flags, atomic.LoadUint64(m.refs())))
		r.alloc.Free(m.control)
		delete(r.byControl, ptr)
	}
	r.mappings = map[mappingKey]*mapping{}
	for id, obj := range r.objects {
		obj.free(r.alloc)
		delete(r.objects, id)
	}
	for obj := range r.zombies {
		obj.free(r.alloc)
		delete(r.zombies, obj)
	}
	return err
}
