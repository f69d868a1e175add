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

package client

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// refCountLimit bounds the shared counter. A counter this large can only
// come from a runaway clone loop, so crossing it aborts the process.
const refCountLimit = math.MaxInt64

// refCount is a weak view of the reference counter stored in the first
// eight bytes of a mapping's control region. The region is owned by the
// runtime; constructing a view is only valid for a RuntimeInfo pointer the
// runtime handed out, which is 8-byte aligned and outlives every handle
// onto the mapping.
//
// Go's atomics are sequentially consistent. That is stronger than the
// relaxed increment and release decrement the protocol needs, and it makes
// the acquire fence before the final release implicit: the last decrement
// is ordered after every earlier decrement, and therefore after every
// write another holder made before dropping its reference.
type refCount struct {
	p *uint64
}

func controlRefCount(runtimeInfo unsafe.Pointer) refCount {
	return refCount{p: (*uint64)(runtimeInfo)}
}

func (r refCount) load() uint64 {
	return atomic.LoadUint64(r.p)
}

// increment adds a reference and returns the previous count.
func (r refCount) increment() uint64 {
	return atomic.AddUint64(r.p, 1) - 1
}

// decrement drops a reference and returns the remaining count.
func (r refCount) decrement() uint64 {
	return atomic.AddUint64(r.p, ^uint64(0))
}
