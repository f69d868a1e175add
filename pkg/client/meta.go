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
	"unsafe"

	"github.com/pkg/errors"

	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/memory"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// Meta returns the object's metadata header, or nil if the mapping has no
// metadata region.
func (v handleView) Meta() *types.MetaInfo {
	if v.raw.Meta == nil {
		return nil
	}
	return (*types.MetaInfo)(v.raw.Meta)
}

// Exts is a view of the metadata extensions that follow the header.
func (v handleView) Exts() memory.View[types.MetaExt] {
	meta := v.Meta()
	if meta == nil {
		return memory.View[types.MetaExt]{}
	}
	return memory.NewView[types.MetaExt](
		unsafe.Add(v.raw.Meta, types.MetaInfoSize), meta.LoadExtCount())
}

// Fot is a view of the object's foreign object table. The count is read
// once; entries published after the call are not visible through the view.
func (v handleView) Fot() memory.View[types.FotEntry] {
	meta := v.Meta()
	if meta == nil {
		return memory.View[types.FotEntry]{}
	}
	ptr := unsafe.Add(v.raw.Meta, types.FotOffset(meta.LoadExtCount()))
	return memory.NewView[types.FotEntry](ptr, meta.LoadFotCount())
}

// FindMetaExt returns the first extension with the given tag.
func (v handleView) FindMetaExt(tag types.MetaExtTag) (types.MetaExt, bool) {
	var found *types.MetaExt
	v.Exts().Each(func(_ uint32, ext *types.MetaExt) bool {
		if ext.Tag == tag {
			found = ext
			return false
		}
		return true
	})
	if found == nil {
		return types.MetaExt{}, false
	}
	return *found, true
}

// ResolveFot maps the object referenced by FOT entry idx.
func (h *ObjectHandle) ResolveFot(idx uint64, flags types.MapFlags) (*ObjectHandle, error) {
	return h.ResolveFotLen(idx, 0, flags)
}

// ResolveFotLen is ResolveFot with a minimum number of bytes that must be
// valid in the result. Zero accepts any length.
func (h *ObjectHandle) ResolveFotLen(idx, validLen uint64, flags types.MapFlags) (*ObjectHandle, error) {
	if !flags.Valid() {
		return nil, errors.Wrapf(twzerr.InvalidArgument, "invalid map flags %#x", uint32(flags))
	}
	raw := h.Raw()
	res := h.rt.ResolveFot(common.WriteResolveFotRequest(&raw, idx, validLen, flags))
	if err := res.Err.Result(); err != nil {
		logger.V(1).Info("FOT resolution failed", "id", h.raw.ID, "index", idx, "error", err)
		return nil, errors.Wrapf(err, "failed to resolve FOT entry %d of %s", idx, h.raw.ID)
	}
	return FromRawHandle(h.rt, res.Handle), nil
}

// InsertFot adds entry to the object's FOT and returns its index.
func (h *ObjectHandle) InsertFot(entry types.FotEntry) (uint32, error) {
	raw := h.Raw()
	res := h.rt.InsertFot(common.WriteInsertFotRequest(&raw, entry))
	if err := res.Err.Result(); err != nil {
		return 0, errors.Wrapf(err, "failed to insert FOT entry into %s", h.raw.ID)
	}
	return res.Val, nil
}

// DeleteFot marks entry idx deleted. The entry's slot is never reused and
// its index stays valid for the table's lifetime. Deleting an entry twice
// is not an error.
func (h *ObjectHandle) DeleteFot(idx uint32) error {
	if !h.raw.MapFlags.Contains(types.MapWrite) {
		return errors.Wrapf(twzerr.AccessDenied, "object %s is not mapped writable", h.raw.ID)
	}
	entry := h.Fot().Get(idx)
	if entry == nil || entry.State() == types.FotUnallocated {
		return errors.Wrapf(twzerr.InvalidFote, "no FOT entry %d in %s", idx, h.raw.ID)
	}
	entry.MarkDeleted()
	return nil
}
