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
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/twizzler/rt-abi-go/pkg/client"
	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	rt := New(append([]Option{WithAllocator(alloc)}, opts...)...)
	t.Cleanup(func() {
		assert.NoError(t, rt.Close())
		alloc.AssertSize(t, 0)
	})
	return rt
}

func createObject(t *testing.T, rt *Runtime, spec types.ObjectCreate, units uint32) types.ObjID {
	id, err := client.CreateObject(rt, spec, units)
	require.NoError(t, err)
	return id
}

func TestMapCloneRelease(t *testing.T) {
	rt := newTestRuntime(t)
	id := createObject(t, rt, types.DefaultObjectCreate(), 2)

	h, err := client.Map(rt, id, types.MapReadWriteVolatile())
	require.NoError(t, err)
	assert.Equal(t, id, h.ID())
	assert.Equal(t, uint64(2*types.LenMul), h.ValidLen())
	assert.Equal(t, types.ProtAll, h.Meta().DefProt)

	c := h.Clone()
	assert.Equal(t, uint64(2), h.RefCount())
	assert.Equal(t, 1, rt.LiveMappings())

	h.Release()
	assert.Equal(t, 0, rt.Releases(id))
	c.Release()
	assert.Equal(t, 1, rt.Releases(id))
	assert.Equal(t, 0, rt.LiveMappings())
}

func TestBoundaryCallsAreCounted(t *testing.T) {
	rt := newTestRuntime(t)
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)

	h, err := client.Map(rt, id, types.MapReadWriteVolatile())
	require.NoError(t, err)
	c := h.Clone()
	require.NoError(t, h.Update())
	_, err = h.InsertFot(types.NewFotEntry(id))
	require.NoError(t, err)
	_, err = h.ResolveFot(7, types.MapRead)
	require.Error(t, err)
	h.Release()
	c.ReleaseWithFlags(common.ReleaseNoCache)

	assert.Equal(t, 1, rt.Calls(common.CREATE_REQUEST))
	assert.Equal(t, 1, rt.Calls(common.MAP_REQUEST))
	assert.Equal(t, 1, rt.Calls(common.UPDATE_REQUEST))
	assert.Equal(t, 1, rt.Calls(common.INSERT_FOT))
	assert.Equal(t, 1, rt.Calls(common.RESOLVE_FOT))
	// Clone and the non-final release stay on the client side.
	assert.Equal(t, 1, rt.Calls(common.RELEASE_REQUEST))
	assert.Equal(t, 0, rt.Calls(common.DELETE_REQUEST))
}

func TestRemapSharesControlRegion(t *testing.T) {
	rt := newTestRuntime(t)
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)

	a, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	b, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	w, err := client.Map(rt, id, types.MapRead|types.MapWrite)
	require.NoError(t, err)

	assert.Equal(t, a.Raw().RuntimeInfo, b.Raw().RuntimeInfo)
	assert.NotEqual(t, a.Raw().RuntimeInfo, w.Raw().RuntimeInfo)
	assert.Equal(t, a.Start(), w.Start())
	assert.Equal(t, uint64(2), a.RefCount())
	assert.Equal(t, 2, rt.LiveMappings())

	for _, h := range []*client.ObjectHandle{a, b, w} {
		h.Release()
	}
	assert.Equal(t, 2, rt.Releases(id))
}

func TestZeroCountIsNotRevived(t *testing.T) {
	rt := newTestRuntime(t)
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)

	res := rt.MapObject(common.WriteMapRequest(id, types.MapRead))
	require.True(t, res.Err.IsSuccess())
	old := res.Handle
	// The last holder has dropped its reference but not yet released.
	atomic.StoreUint64((*uint64)(old.RuntimeInfo), 0)

	h, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	assert.NotEqual(t, old.RuntimeInfo, h.Raw().RuntimeInfo)
	assert.Equal(t, uint64(1), h.RefCount())
	assert.Equal(t, 2, rt.LiveMappings())

	rt.ReleaseHandle(common.WriteReleaseRequest(&old, 0))
	assert.Equal(t, 1, rt.LiveMappings())
	h.Release()
	assert.Equal(t, 0, rt.LiveMappings())
	assert.Equal(t, 2, rt.Releases(id))
}

func TestMapAccessChecks(t *testing.T) {
	rt := newTestRuntime(t)
	ro := createObject(t, rt, types.DefaultObjectCreate().WithDefProt(types.ProtRead), 1)
	imm := createObject(t, rt, types.DefaultObjectCreate(), 1)
	require.NoError(t, rt.SetImmutable(imm))

	tests := []struct {
		name  string
		id    types.ObjID
		flags types.MapFlags
		want  error
	}{
		{"read-only object mapped writable", ro, types.MapRead | types.MapWrite, twzerr.AccessDenied},
		{"read-only object mapped exec", ro, types.MapRead | types.MapExec, twzerr.AccessDenied},
		{"immutable object mapped writable", imm, types.MapRead | types.MapWrite, twzerr.AccessDenied},
		{"unknown object", types.NewObjID(1, 1), types.MapRead, twzerr.NoSuchObject},
		{"undefined flag bits", ro, types.MapFlags(0x100), twzerr.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Map(rt, tt.id, tt.flags)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	for _, id := range []types.ObjID{ro, imm} {
		h, err := client.Map(rt, id, types.MapRead)
		require.NoError(t, err)
		h.Release()
	}
	assert.Equal(t, 0, rt.LiveMappings())
}

func TestUpdateTracksSize(t *testing.T) {
	rt := newTestRuntime(t)
	id := createObject(t, rt, types.DefaultObjectCreate(), 4)

	h, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	defer h.Release()
	assert.Equal(t, uint64(4*types.LenMul), h.ValidLen())

	require.NoError(t, rt.SetSize(id, 3*types.LenMul+100))
	require.NoError(t, h.Update())
	assert.Equal(t, uint64(3*types.LenMul), h.ValidLen())

	require.NoError(t, rt.AddMetaExt(id, types.MetaExt{Tag: types.ExtTagSize, Value: 2 * types.LenMul}))
	require.NoError(t, h.Update())
	assert.Equal(t, uint64(2*types.LenMul), h.ValidLen())
	ext, ok := h.FindMetaExt(types.ExtTagSize)
	assert.True(t, ok)
	assert.Equal(t, uint64(2*types.LenMul), ext.Value)

	err = rt.SetSize(id, 5*types.LenMul)
	assert.True(t, errors.Is(err, twzerr.OutOfMemory))
}

func TestDeleteWhileMapped(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	rt := New(WithAllocator(alloc))
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)
	require.NoError(t, rt.WriteData(id, 0, []byte("still here")))

	h, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	require.NoError(t, client.DeleteObject(rt, id))

	_, err = client.Map(rt, id, types.MapRead)
	assert.True(t, errors.Is(err, twzerr.NoSuchObject))
	err = client.DeleteObject(rt, id)
	assert.True(t, errors.Is(err, twzerr.NoSuchObject))

	assert.Equal(t, "still here", string(h.Data()[:10]))
	require.NoError(t, h.Update())
	assert.NotZero(t, alloc.CurrentAlloc())

	h.Release()
	alloc.AssertSize(t, 0)
	assert.NoError(t, rt.Close())
}

func TestHandleFromPointer(t *testing.T) {
	rt := newTestRuntime(t)
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)

	h, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	defer h.Release()

	found, ok := client.HandleFromPointer(rt, unsafe.Add(h.Start(), 100))
	require.True(t, ok)
	assert.Equal(t, id, found.ID())
	assert.Equal(t, uint64(2), h.RefCount())
	found.Release()

	var outside uint64
	_, ok = client.HandleFromPointer(rt, unsafe.Pointer(&outside))
	assert.False(t, ok)
}

func TestCreateSpec(t *testing.T) {
	rt := newTestRuntime(t)
	kuid := types.NewObjID(7, 7)
	plain := createObject(t, rt, types.DefaultObjectCreate().WithKuid(kuid), 0)
	noNonce := createObject(t, rt, types.DefaultObjectCreate().WithFlags(types.CreateNoNonce), 1)
	assert.NotEqual(t, plain, noNonce)
	assert.Len(t, rt.Objects(), 2)

	h, err := client.Map(rt, plain, types.MapRead)
	require.NoError(t, err)
	defer h.Release()
	assert.Equal(t, kuid, h.Meta().Kuid)
	assert.NotEqual(t, types.Nonce{}, h.Meta().Nonce)
	assert.Equal(t, uint64(common.DEFAULT_OBJECT_UNITS*types.LenMul), h.ValidLen())

	n, err := client.Map(rt, noNonce, types.MapRead)
	require.NoError(t, err)
	defer n.Release()
	assert.Equal(t, types.Nonce{}, n.Meta().Nonce)

	_, err = client.CreateObject(rt, types.DefaultObjectCreate().WithDefProt(types.Protections(8)), 1)
	assert.True(t, errors.Is(err, twzerr.InvalidArgument))
}

func TestCloseReportsLeaks(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	rt := New(WithAllocator(alloc))
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)
	other := createObject(t, rt, types.DefaultObjectCreate(), 1)

	_, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	_, err = client.Map(rt, other, types.MapRead|types.MapWrite)
	require.NoError(t, err)

	err = rt.Close()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "leaked")
	alloc.AssertSize(t, 0)
}

func TestCloneOverflowCallsAbort(t *testing.T) {
	var aborted atomic.Bool
	rt := newTestRuntime(t, WithAbort(func() { aborted.Store(true) }))
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)

	h, err := client.Map(rt, id, types.MapRead)
	require.NoError(t, err)
	refs := (*uint64)(h.Raw().RuntimeInfo)
	atomic.StoreUint64(refs, math.MaxInt64)

	assert.Panics(t, func() { h.Clone() })
	assert.True(t, aborted.Load())

	atomic.StoreUint64(refs, 1)
	h.Release()
}

func TestConcurrentMapRelease(t *testing.T) {
	rt := newTestRuntime(t)
	id := createObject(t, rt, types.DefaultObjectCreate(), 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h, err := client.Map(rt, id, types.MapRead)
				if !assert.NoError(t, err) {
					return
				}
				c := h.Clone()
				h.Release()
				c.Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, rt.LiveMappings())
	assert.Positive(t, rt.Releases(id))
}
