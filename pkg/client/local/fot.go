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
	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

func (r *Runtime) ResolveFot(req common.ResolveFotRequest) common.MapResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceLocked(req.Type, "id", req.Handle.ID, "index", req.Index)
	raw, err := r.resolveLocked(req)
	if err != nil {
		r.log.WithObject(req.Handle.ID).V(1).Info("FOT resolution refused", "index", req.Index, "error", err)
		return common.MapResult{Err: err.Raw()}
	}
	return common.MapResult{Err: twzerr.SuccessRaw(), Handle: raw}
}

func (r *Runtime) resolveLocked(req common.ResolveFotRequest) (types.RawHandle, twzerr.TwzError) {
	src, err := r.objectFor(req.Handle)
	if err != nil {
		return types.RawHandle{}, err
	}
	if req.Index >= uint64(src.info().LoadFotCount()) {
		return types.RawHandle{}, twzerr.InvalidFote
	}
	entry := src.fotSlot(uint32(req.Index))
	if entry.State() != types.FotStateActive {
		return types.RawHandle{}, twzerr.InvalidFote
	}

	target := entry.Target()
	if entry.UsesResolver() {
		resolve, ok := r.resolvers[entry.Resolver]
		if !ok {
			return types.RawHandle{}, twzerr.NotSupported
		}
		id, rerr := resolve(*entry)
		if rerr != nil {
			return types.RawHandle{}, twzerr.ToRaw(rerr).Decode()
		}
		target = id
	}

	obj, ok := r.objects[target]
	if !ok {
		return types.RawHandle{}, twzerr.NoSuchObject
	}
	if req.ValidLen > obj.currentSize() {
		return types.RawHandle{}, twzerr.InvalidPtr
	}
	return r.mapLocked(target, req.Flags)
}

func (r *Runtime) InsertFot(req common.InsertFotRequest) common.U32Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceLocked(req.Type, "id", req.Handle.ID)
	if !req.Handle.MapFlags.Contains(types.MapWrite) {
		return common.U32Result{Err: twzerr.AccessDenied.Raw()}
	}
	obj, err := r.objectFor(req.Handle)
	if err != nil {
		return common.U32Result{Err: err.Raw()}
	}
	idx, err := insertFot(obj, req.Entry)
	if err != nil {
		return common.U32Result{Err: err.Raw()}
	}
	return common.U32Result{Err: twzerr.SuccessRaw(), Val: idx}
}

// insertFot writes entry into the next free slot and publishes it. Readers
// that observe the new count also observe the entry's contents and flags.
func insertFot(obj *object, entry types.FotEntry) (uint32, twzerr.TwzError) {
	info := obj.info()
	idx := info.LoadFotCount()
	if idx >= obj.maxFot {
		return 0, twzerr.OutOfResources
	}
	slot := obj.fotSlot(idx)
	slot.Values = entry.Values
	slot.Resolver = entry.Resolver
	resolver := types.FotFlags(entry.Flags) & types.FotResolver
	slot.Publish(types.FotAllocated | resolver)
	slot.MarkActive()
	info.StoreFotCount(idx + 1)
	return idx, nil
}
