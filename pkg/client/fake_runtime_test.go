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
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// fakeRuntime hands out a single mapping per object and records every call
// the client makes across the boundary.
type fakeRuntime struct {
	mu       sync.Mutex
	objects  map[types.ObjID]*fakeObject
	mapErrs  []twzerr.RawError
	mapCalls atomic.Int32
	released atomic.Int32
	aborted  atomic.Bool
	resolved []common.ResolveFotRequest
	releases []common.ReleaseRequest
	updateTo common.UpdateResult
}

type fakeObject struct {
	control *uint64
	data    []uint64
	meta    []uint64
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{objects: map[types.ObjID]*fakeObject{}}
}

// add registers an object with room for exts extensions and fot entries.
func (f *fakeRuntime) add(id types.ObjID, exts, fot uint32) *fakeObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj := &fakeObject{
		control: new(uint64),
		data:    make([]uint64, 4*types.LenMul/8),
		meta:    make([]uint64, types.MetaRegionSize(exts, fot)/8),
	}
	f.objects[id] = obj
	return obj
}

func (o *fakeObject) metaInfo() *types.MetaInfo {
	return (*types.MetaInfo)(unsafe.Pointer(&o.meta[0]))
}

func (f *fakeRuntime) MapObject(req common.MapRequest) common.MapResult {
	f.mapCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.mapErrs) > 0 {
		err := f.mapErrs[0]
		f.mapErrs = f.mapErrs[1:]
		if !err.IsSuccess() {
			return common.MapResult{Err: err}
		}
	}
	obj, ok := f.objects[req.ID]
	if !ok {
		return common.MapResult{Err: twzerr.NoSuchObject.Raw()}
	}
	atomic.AddUint64(obj.control, 1)
	return common.MapResult{Err: twzerr.SuccessRaw(), Handle: types.RawHandle{
		ID:          req.ID,
		RuntimeInfo: unsafe.Pointer(obj.control),
		Start:       unsafe.Pointer(&obj.data[0]),
		Meta:        unsafe.Pointer(&obj.meta[0]),
		MapFlags:    req.Flags,
		ValidLen:    1,
	}}
}

func (f *fakeRuntime) ReleaseHandle(req common.ReleaseRequest) {
	f.released.Add(1)
	f.mu.Lock()
	f.releases = append(f.releases, req)
	f.mu.Unlock()
}

func (f *fakeRuntime) UpdateHandle(req common.UpdateRequest) common.UpdateResult {
	// Scribble on the request to check the client ignores it.
	req.Handle.ValidLen = 999
	return f.updateTo
}

func (f *fakeRuntime) ResolveFot(req common.ResolveFotRequest) common.MapResult {
	f.mu.Lock()
	f.resolved = append(f.resolved, req)
	f.mu.Unlock()
	meta := (*types.MetaInfo)(req.Handle.Meta)
	if req.Index >= uint64(meta.LoadFotCount()) {
		return common.MapResult{Err: twzerr.InvalidFote.Raw()}
	}
	return common.MapResult{Err: twzerr.NotSupported.Raw()}
}

func (f *fakeRuntime) InsertFot(req common.InsertFotRequest) common.U32Result {
	return common.U32Result{Err: twzerr.OutOfResources.Raw()}
}

func (f *fakeRuntime) GetHandle(req common.GetHandleRequest) types.RawHandle {
	return types.RawHandle{}
}

func (f *fakeRuntime) CreateObject(req common.CreateRequest) common.ObjIDResult {
	id := types.NewObjID(0xabc, uint64(req.Units))
	f.add(id, 0, 0)
	return common.ObjIDResult{Err: twzerr.SuccessRaw(), Val: id}
}

func (f *fakeRuntime) DeleteObject(req common.DeleteRequest) twzerr.RawError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[req.ID]; !ok {
		return twzerr.NoSuchObject.Raw()
	}
	delete(f.objects, req.ID)
	return twzerr.SuccessRaw()
}

func (f *fakeRuntime) Abort() {
	f.aborted.Store(true)
}
