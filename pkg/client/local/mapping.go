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

package local

import (
	"sync/atomic"
	"unsafe"

	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

func (r *Runtime) MapObject(req common.MapRequest) common.MapResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceLocked(req.Type, "id", req.ID, "flags", req.Flags)
	raw, err := r.mapLocked(req.ID, req.Flags)
	if err != nil {
		r.log.WithObject(req.ID).V(1).Info("map refused", "flags", req.Flags, "error", err)
		return common.MapResult{Err: err.Raw()}
	}
	return common.MapResult{Err: twzerr.SuccessRaw(), Handle: raw}
}

// checkAccess enforces the object's default protections and immutability.
func checkAccess(obj *object, flags types.MapFlags) twzerr.TwzError {
	info := obj.info()
	want := flags.Protections() &^ types.ProtRead
	if !info.DefProt.Contains(want) {
		return twzerr.AccessDenied
	}
	if flags.Contains(types.MapWrite) && info.Flags.Contains(types.MetaImmutable) {
		return twzerr.AccessDenied
	}
	return nil
}

func (r *Runtime) mapLocked(id types.ObjID, flags types.MapFlags) (types.RawHandle, twzerr.TwzError) {
	if !flags.Valid() {
		return types.RawHandle{}, twzerr.InvalidArgument
	}
	obj, ok := r.objects[id]
	if !ok {
		return types.RawHandle{}, twzerr.NoSuchObject
	}
	if err := checkAccess(obj, flags); err != nil {
		return types.RawHandle{}, err
	}

	key := mappingKey{id: id, flags: flags}
	if m, ok := r.mappings[key]; ok && m.acquire() {
		return r.rawHandle(m), nil
	}

	m := &mapping{key: key, obj: obj, control: r.allocate(controlRegionSize)}
	atomic.StoreUint64(m.refs(), 1)
	r.mappings[key] = m
	r.byControl[uintptr(m.runtimeInfo())] = m
	obj.mappings++
	r.log.WithObject(id).V(1).Info("new mapping", "flags", flags)
	return r.rawHandle(m), nil
}

func (r *Runtime) rawHandle(m *mapping) types.RawHandle {
	h := types.RawHandle{
		ID:          m.key.id,
		RuntimeInfo: m.runtimeInfo(),
		Start:       unsafe.Pointer(&m.obj.data[0]),
		Meta:        unsafe.Pointer(&m.obj.meta[0]),
		MapFlags:    m.key.flags,
	}
	h.SetValidBytes(m.obj.currentSize())
	return h
}

// ReleaseHandle tears down the mapping whose count reached zero.
func (r *Runtime) ReleaseHandle(req common.ReleaseRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceLocked(req.Type, "id", req.Handle.ID, "flags", req.Flags)
	ptr := uintptr(req.Handle.RuntimeInfo)
	m, ok := r.byControl[ptr]
	if !ok {
		r.log.Error(nil, "release of unknown mapping", "id", req.Handle.ID)
		return
	}
	if n := atomic.LoadUint64(m.refs()); n != 0 {
		r.log.Error(nil, "release of mapping with live references", "id", req.Handle.ID, "count", n)
		return
	}

	delete(r.byControl, ptr)
	if r.mappings[m.key] == m {
		delete(r.mappings, m.key)
	}
	r.alloc.Free(m.control)
	m.control = nil
	r.releases[m.key.id]++

	obj := m.obj
	obj.mappings--
	if obj.deleted && obj.mappings == 0 {
		obj.free(r.alloc)
		delete(r.zombies, obj)
	}
	r.log.WithObject(m.key.id).V(1).Info("released mapping", "flags", m.key.flags,
		"nocache", req.Flags&common.ReleaseNoCache != 0)
}

// objectFor finds the object behind a handle, deleted objects included
// while they are still mapped.
func (r *Runtime) objectFor(h *types.RawHandle) (*object, twzerr.TwzError) {
	if h.IsOwning() {
		m, ok := r.byControl[uintptr(h.RuntimeInfo)]
		if !ok {
			return nil, twzerr.BadHandle
		}
		return m.obj, nil
	}
	obj, ok := r.objects[h.ID]
	if !ok {
		return nil, twzerr.NoSuchObject
	}
	return obj, nil
}

func (r *Runtime) UpdateHandle(req common.UpdateRequest) common.UpdateResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceLocked(req.Type, "id", req.Handle.ID)
	obj, err := r.objectFor(req.Handle)
	if err != nil {
		return common.UpdateResult{Err: err.Raw()}
	}
	return common.UpdateResult{Err: twzerr.SuccessRaw(), ValidLen: uint32(obj.currentSize() / types.LenMul)}
}

// GetHandle finds a live mapping whose data or metadata contains the
// pointer and returns a new reference to it.
func (r *Runtime) GetHandle(req common.GetHandleRequest) types.RawHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceLocked(req.Type, "pointer", req.Pointer)
	for _, m := range r.mappings {
		if !contains(m.obj.data, req.Pointer) && !contains(m.obj.meta, req.Pointer) {
			continue
		}
		if m.acquire() {
			return r.rawHandle(m)
		}
	}
	return types.RawHandle{}
}

func contains(b []byte, p uintptr) bool {
	if len(b) == 0 {
		return false
	}
	start := uintptr(unsafe.Pointer(&b[0]))
	return p >= start && p < start+uintptr(len(b))
}
