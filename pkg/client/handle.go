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
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/memory"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// handleView holds the raw handle fields and the read-only accessors shared
// by ObjectHandle and UnsafeHandle.
type handleView struct {
	raw types.RawHandle
}

func (v handleView) ID() types.ObjID {
	return v.raw.ID
}

func (v handleView) MapFlags() types.MapFlags {
	return v.raw.MapFlags
}

// Start is the base address of the object's data.
func (v handleView) Start() unsafe.Pointer {
	return v.raw.Start
}

// MetaPtr is the address of the object's metadata region.
func (v handleView) MetaPtr() unsafe.Pointer {
	return v.raw.Meta
}

// ValidLen is the number of bytes known to be valid from Start.
func (v handleView) ValidLen() uint64 {
	return v.raw.ValidBytes()
}

// Data returns the valid data bytes. The slice aliases object memory.
func (v handleView) Data() []byte {
	return memory.Bytes(v.raw.Start, v.raw.ValidBytes())
}

// Raw returns a copy of the underlying record. The copy does not own a
// reference.
func (v handleView) Raw() types.RawHandle {
	return v.raw
}

// ObjectHandle is an owning, reference-counted handle onto a mapped object.
// Every handle onto the same mapping shares one counter in the runtime's
// control region; Clone adds a reference and Release drops one. The
// runtime is told to release the mapping exactly once, when the last
// reference is dropped.
//
// A handle whose RuntimeInfo is nil is non-owning: Clone copies it and
// Release does nothing.
//
// A handle may be shared between goroutines. The raw record is fixed at
// construction; the valid length, which Update refreshes, is kept apart.
type ObjectHandle struct {
	handleView
	rt       Runtime
	validLen atomic.Uint32
	released atomic.Bool
}

// FromRawHandle adopts a raw record that already carries one reference.
// The record must come from rt; the result owns that reference.
func FromRawHandle(rt Runtime, raw types.RawHandle) *ObjectHandle {
	h := &ObjectHandle{handleView: handleView{raw: raw}, rt: rt}
	h.validLen.Store(raw.ValidLen)
	return h
}

// NewObjectHandle builds a handle from its parts. It performs no validation.
func NewObjectHandle(rt Runtime, id types.ObjID, runtimeInfo, start, meta unsafe.Pointer,
	flags types.MapFlags, validLen uint32) *ObjectHandle {
	return FromRawHandle(rt, types.RawHandle{
		ID:          id,
		RuntimeInfo: runtimeInfo,
		Start:       start,
		Meta:        meta,
		MapFlags:    flags,
		ValidLen:    validLen,
	})
}

// Map asks the runtime to map id with the given flags.
func Map(rt Runtime, id types.ObjID, flags types.MapFlags) (*ObjectHandle, error) {
	if !flags.Valid() {
		return nil, errors.Wrapf(twzerr.InvalidArgument, "invalid map flags %#x", uint32(flags))
	}
	res := rt.MapObject(common.WriteMapRequest(id, flags))
	if err := res.Err.Result(); err != nil {
		logger.WithObject(id).V(1).Info("map failed", "flags", flags, "error", err)
		return nil, errors.Wrapf(err, "failed to map object %s", id)
	}
	return FromRawHandle(rt, res.Handle), nil
}

// HandleFromPointer finds the mapping that contains ptr. The returned handle
// owns a new reference.
func HandleFromPointer(rt Runtime, ptr unsafe.Pointer) (*ObjectHandle, bool) {
	raw := rt.GetHandle(common.WriteGetHandleRequest(uintptr(ptr)))
	if raw.ID.IsZero() {
		return nil, false
	}
	return FromRawHandle(rt, raw), true
}

// Raw returns a copy of the underlying record with the current valid
// length. The copy does not own a reference.
func (h *ObjectHandle) Raw() types.RawHandle {
	raw := h.raw
	raw.ValidLen = h.validLen.Load()
	return raw
}

// ValidLen is the number of bytes known to be valid from Start.
func (h *ObjectHandle) ValidLen() uint64 {
	raw := h.Raw()
	return raw.ValidBytes()
}

// Data returns the valid data bytes. The slice aliases object memory.
func (h *ObjectHandle) Data() []byte {
	return memory.Bytes(h.raw.Start, h.ValidLen())
}

// IsOwning reports whether the handle participates in reference counting.
func (h *ObjectHandle) IsOwning() bool {
	return h.raw.IsOwning()
}

// RefCount reads the shared counter. Non-owning handles report zero.
func (h *ObjectHandle) RefCount() uint64 {
	if !h.raw.IsOwning() {
		return 0
	}
	return controlRefCount(h.raw.RuntimeInfo).load()
}

// Clone returns a new handle onto the same mapping. If the shared counter
// was already at its limit the runtime's Abort is invoked; Clone never
// returns in that case.
func (h *ObjectHandle) Clone() *ObjectHandle {
	if h.released.Load() {
		panic("client: clone of released object handle")
	}
	if h.raw.IsOwning() {
		if old := controlRefCount(h.raw.RuntimeInfo).increment(); old >= refCountLimit {
			logger.Error(nil, "object handle reference count overflow", "id", h.raw.ID, "count", old)
			h.rt.Abort()
			panic(fmt.Sprintf("client: reference count overflow on %s", h.raw.ID))
		}
	}
	return FromRawHandle(h.rt, h.Raw())
}

// Release drops this handle's reference. Only the first call on a given
// handle has any effect.
func (h *ObjectHandle) Release() {
	h.ReleaseWithFlags(0)
}

func (h *ObjectHandle) ReleaseWithFlags(flags common.ReleaseFlags) {
	if !h.raw.IsOwning() {
		return
	}
	if !h.released.CompareAndSwap(false, true) {
		logger.V(1).Info("object handle released twice", "id", h.raw.ID)
		return
	}
	if controlRefCount(h.raw.RuntimeInfo).decrement() != 0 {
		return
	}
	raw := h.Raw()
	h.rt.ReleaseHandle(common.WriteReleaseRequest(&raw, flags))
}

// Update refreshes the handle's valid length from the runtime. The handle
// is left untouched on failure. It is safe to call while other goroutines
// use the handle.
func (h *ObjectHandle) Update() error {
	raw := h.Raw()
	res := h.rt.UpdateHandle(common.WriteUpdateRequest(&raw))
	if err := res.Err.Result(); err != nil {
		return errors.Wrapf(err, "failed to update handle for %s", h.raw.ID)
	}
	h.validLen.Store(res.ValidLen)
	return nil
}

// Unsafe borrows a non-owning view of h. The view must not be used after
// h is released.
func (h *ObjectHandle) Unsafe() UnsafeHandle {
	return UnsafeHandle{handleView: handleView{raw: h.Raw()}}
}

func (h *ObjectHandle) String() string {
	return fmt.Sprintf("ObjectHandle{%s %s %d}", h.raw.ID, h.raw.MapFlags, h.ValidLen())
}

// UnsafeHandle shares the raw fields of a mapping without holding a
// reference. It cannot be cloned or released; the caller keeps the
// mapping alive by other means.
type UnsafeHandle struct {
	handleView
}

func NewUnsafeHandle(raw types.RawHandle) UnsafeHandle {
	return UnsafeHandle{handleView: handleView{raw: raw}}
}
