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
	"unsafe"

	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/pkg/errors"

	"github.com/twizzler/rt-abi-go/pkg/common"
	mem "github.com/twizzler/rt-abi-go/pkg/common/memory"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

type object struct {
	id       types.ObjID
	spec     types.ObjectCreate
	data     []byte
	meta     []byte
	size     uint64
	maxExts  uint32
	maxFot   uint32
	mappings int
	deleted  bool
}

func (o *object) info() *types.MetaInfo {
	return (*types.MetaInfo)(unsafe.Pointer(&o.meta[0]))
}

func (o *object) exts() mem.View[types.MetaExt] {
	base := unsafe.Pointer(&o.meta[0])
	return mem.NewView[types.MetaExt](unsafe.Add(base, types.MetaInfoSize), o.info().LoadExtCount())
}

// fotSlot returns entry idx of the table, which may be past the published
// count but must be within capacity.
func (o *object) fotSlot(idx uint32) *types.FotEntry {
	base := unsafe.Pointer(&o.meta[0])
	off := types.FotOffset(o.info().LoadExtCount()) + uintptr(idx)*types.FotEntrySize
	return mem.At[types.FotEntry](base, off)
}

// currentSize is the data size a mapping should report. A Size extension
// overrides the size set at creation, capped at the allocated capacity.
func (o *object) currentSize() uint64 {
	size := o.size
	o.exts().Each(func(_ uint32, ext *types.MetaExt) bool {
		if ext.Tag == types.ExtTagSize {
			size = ext.Value
			return false
		}
		return true
	})
	if c := uint64(len(o.data)); size > c {
		size = c
	}
	return size
}

func (o *object) free(alloc memory.Allocator) {
	if o.data != nil {
		alloc.Free(o.data)
		o.data = nil
	}
	if o.meta != nil {
		alloc.Free(o.meta)
		o.meta = nil
	}
}

func (r *Runtime) allocate(n int) []byte {
	b := r.alloc.Allocate(n)
	clear(b)
	return b
}

func (r *Runtime) CreateObject(req common.CreateRequest) common.ObjIDResult {
	r.mu.Lock()
	r.traceLocked(req.Type, "units", req.Units)
	r.mu.Unlock()

	spec := req.Spec
	if spec.DefProt&^types.ProtAll != 0 || spec.Backing != types.BackingNormal ||
		spec.Lifetime > types.LifetimePersistent {
		return common.ObjIDResult{Err: twzerr.InvalidArgument.Raw()}
	}
	units := req.Units
	if units == 0 {
		units = r.cfg.ObjectUnits
	}

	obj := &object{
		id:      types.GenerateObjID(),
		spec:    spec,
		size:    uint64(units) * types.LenMul,
		maxExts: r.cfg.MaxExts,
		maxFot:  r.cfg.MaxFotEntries,
	}
	// Always back at least one unit so Start is a real address.
	obj.data = r.allocate(int(max(units, 1)) * types.LenMul)
	obj.meta = r.allocate(int(types.MetaRegionSize(obj.maxExts, obj.maxFot)))

	info := obj.info()
	if !spec.Flags.Contains(types.CreateNoNonce) {
		n := types.GenerateObjID()
		info.Nonce = types.Nonce{Hi: n.Hi, Lo: n.Lo}
	}
	info.Kuid = spec.Kuid
	info.DefProt = spec.DefProt

	r.mu.Lock()
	r.objects[obj.id] = obj
	r.mu.Unlock()
	r.log.WithObject(obj.id).V(1).Info("created object", "units", units, "lifetime", spec.Lifetime)
	return common.ObjIDResult{Err: twzerr.SuccessRaw(), Val: obj.id}
}

// DeleteObject removes the object from the namespace. Its memory is kept
// until the last mapping onto it is released.
func (r *Runtime) DeleteObject(req common.DeleteRequest) twzerr.RawError {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traceLocked(req.Type, "id", req.ID)
	obj, ok := r.objects[req.ID]
	if !ok {
		return twzerr.NoSuchObject.Raw()
	}
	delete(r.objects, req.ID)
	obj.deleted = true
	if obj.mappings == 0 {
		obj.free(r.alloc)
	} else {
		r.zombies[obj] = struct{}{}
	}
	r.log.WithObject(req.ID).V(1).Info("deleted object", "mappings", obj.mappings)
	return twzerr.SuccessRaw()
}

func (r *Runtime) lookup(id types.ObjID) (*object, error) {
	obj, ok := r.objects[id]
	if !ok {
		return nil, errors.Wrapf(twzerr.NoSuchObject, "object %s", id)
	}
	return obj, nil
}

// SetSize changes the size reported to mappings on their next update.
func (r *Runtime) SetSize(id types.ObjID, size uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, err := r.lookup(id)
	if err != nil {
		return err
	}
	if size > uint64(len(obj.data)) {
		return errors.Wrapf(twzerr.OutOfMemory, "size %d exceeds capacity %d of %s", size, len(obj.data), id)
	}
	obj.size = size
	return nil
}

// AddMetaExt appends a metadata extension. The FOT starts right after the
// extensions, so extensions can only be added while the FOT is empty.
func (r *Runtime) AddMetaExt(id types.ObjID, ext types.MetaExt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, err := r.lookup(id)
	if err != nil {
		return err
	}
	info := obj.info()
	n := info.LoadExtCount()
	if info.LoadFotCount() != 0 {
		return errors.Wrapf(twzerr.InvalidMeta, "object %s already has FOT entries", id)
	}
	if n >= obj.maxExts {
		return errors.Wrapf(twzerr.OutOfResources, "object %s has no room for another extension", id)
	}
	*mem.At[types.MetaExt](unsafe.Pointer(&obj.meta[0]), types.MetaInfoSize+uintptr(n)*types.MetaExtSize) = ext
	info.StoreExtCount(n + 1)
	return nil
}

// SetImmutable marks the object immutable. Later writable mappings are
// refused; existing ones are unaffected.
func (r *Runtime) SetImmutable(id types.ObjID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, err := r.lookup(id)
	if err != nil {
		return err
	}
	info := obj.info()
	info.Flags |= types.MetaImmutable
	return nil
}

// WriteData copies b into the object's data region at off.
func (r *Runtime) WriteData(id types.ObjID, off uint64, b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, err := r.lookup(id)
	if err != nil {
		return err
	}
	if off+uint64(len(b)) > uint64(len(obj.data)) {
		return errors.Wrapf(twzerr.InvalidAddress, "write of %d bytes at %d past end of %s", len(b), off, id)
	}
	copy(obj.data[off:], b)
	return nil
}
