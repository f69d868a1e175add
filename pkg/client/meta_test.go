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
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twizzler/rt-abi-go/pkg/common/memory"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// fillFot writes one size extension and publishes n active entries that
// point at consecutive ids.
func fillFot(obj *fakeObject, n uint32) {
	base := unsafe.Pointer(&obj.meta[0])
	meta := obj.metaInfo()
	*memory.At[types.MetaExt](base, types.MetaInfoSize) = types.MetaExt{Tag: types.ExtTagSize, Value: 3 * types.LenMul}
	meta.StoreExtCount(1)
	for i := uint32(0); i < n; i++ {
		e := memory.At[types.FotEntry](base, types.FotOffset(1)+uintptr(i)*types.FotEntrySize)
		*e = types.NewFotEntry(types.NewObjID(0x10, uint64(i)))
		e.Publish(types.FotAllocated | types.FotActive)
	}
	meta.StoreFotCount(n)
}

func TestMetaViews(t *testing.T) {
	_, obj, h := mapTestObject(t, types.MapRead)
	defer h.Release()
	fillFot(obj, 3)

	require.NotNil(t, h.Meta())
	assert.Equal(t, 1, h.Exts().Len())
	ext, ok := h.FindMetaExt(types.ExtTagSize)
	assert.True(t, ok)
	assert.Equal(t, uint64(3*types.LenMul), ext.Value)
	_, ok = h.FindMetaExt(types.MetaExtTag(77))
	assert.False(t, ok)

	fot := h.Fot()
	assert.Equal(t, 3, fot.Len())
	assert.Equal(t, types.NewObjID(0x10, 2), fot.Get(2).Target())
	assert.Nil(t, fot.Get(3))
}

func TestDeleteFot(t *testing.T) {
	_, obj, h := mapTestObject(t, types.MapRead|types.MapWrite)
	defer h.Release()
	fillFot(obj, 3)

	require.NoError(t, h.DeleteFot(1))
	assert.Equal(t, types.FotStateDeleted, h.Fot().Get(1).State())
	// Indices of the other entries are unaffected.
	assert.Equal(t, types.FotStateActive, h.Fot().Get(2).State())
	assert.Equal(t, 3, h.Fot().Len())
	require.NoError(t, h.DeleteFot(1))

	err := h.DeleteFot(5)
	assert.True(t, errors.Is(err, twzerr.InvalidFote))
}

func TestDeleteFotNeedsWrite(t *testing.T) {
	_, obj, h := mapTestObject(t, types.MapRead)
	defer h.Release()
	fillFot(obj, 1)

	err := h.DeleteFot(0)
	assert.True(t, errors.Is(err, twzerr.AccessDenied))
	assert.Equal(t, types.FotStateActive, h.Fot().Get(0).State())
}

func TestResolveFotErrors(t *testing.T) {
	rt, obj, h := mapTestObject(t, types.MapRead)
	defer h.Release()
	fillFot(obj, 3)

	_, err := h.ResolveFot(5, types.MapRead)
	require.Error(t, err)
	assert.True(t, errors.Is(err, twzerr.InvalidFote))
	assert.True(t, twzerr.IsCategory(err, twzerr.ObjectCategory))

	_, err = h.ResolveFotLen(1, types.LenMul, types.MapRead)
	assert.True(t, errors.Is(err, twzerr.NotSupported))

	require.Len(t, rt.resolved, 2)
	assert.Equal(t, uint64(1), rt.resolved[1].Index)
	assert.Equal(t, uint64(types.LenMul), rt.resolved[1].ValidLen)
	assert.Equal(t, testID, rt.resolved[1].Handle.ID)

	_, err = h.ResolveFot(0, types.MapFlags(1<<12))
	assert.True(t, errors.Is(err, twzerr.InvalidArgument))
	assert.Len(t, rt.resolved, 2)
}

func TestInsertFotError(t *testing.T) {
	_, _, h := mapTestObject(t, types.MapRead|types.MapWrite)
	defer h.Release()

	_, err := h.InsertFot(types.NewFotEntry(testID))
	assert.True(t, errors.Is(err, twzerr.OutOfResources))
}
