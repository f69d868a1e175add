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
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twizzler/rt-abi-go/pkg/client"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

const testImage = `{
  "objects": [
    {"name": "root", "units": 2, "prot": "rw",
     "exts": [{"tag": 1, "value": 4096}],
     "fot": [
       {"target": "leaf"},
       {"target": "leaf", "deleted": true},
       {"id": "00000000-0000-0000-0000-00000000abcd"}
     ]},
    {"name": "leaf", "data": "hello", "immutable": true, "lifetime": "persistent"}
  ]
}`

func TestLoadImage(t *testing.T) {
	rt := newTestRuntime(t)
	ids, err := rt.LoadImage(strings.NewReader(testImage))
	require.NoError(t, err)
	require.Len(t, ids, 2)

	root, err := client.Map(rt, ids["root"], types.MapRead)
	require.NoError(t, err)
	defer root.Release()
	assert.Equal(t, uint64(types.LenMul), root.ValidLen())
	assert.Equal(t, types.ProtRead|types.ProtWrite, root.Meta().DefProt)
	require.Equal(t, 3, root.Fot().Len())
	assert.Equal(t, types.FotStateDeleted, root.Fot().Get(1).State())
	assert.Equal(t, types.NewObjID(0, 0xabcd), root.Fot().Get(2).Target())

	leaf, err := root.ResolveFot(0, types.MapRead)
	require.NoError(t, err)
	defer leaf.Release()
	assert.Equal(t, ids["leaf"], leaf.ID())
	assert.Equal(t, "hello", string(leaf.Data()[:5]))

	_, err = root.ResolveFot(1, types.MapRead)
	assert.True(t, errors.Is(err, twzerr.InvalidFote))
	_, err = root.ResolveFot(2, types.MapRead)
	assert.True(t, errors.Is(err, twzerr.NoSuchObject))
	_, err = client.Map(rt, ids["leaf"], types.MapRead|types.MapWrite)
	assert.True(t, errors.Is(err, twzerr.AccessDenied))
}

func TestLoadImageErrors(t *testing.T) {
	tests := []struct {
		name  string
		image string
		want  string
	}{
		{"unknown field", `{"objects": [{"name": "a", "colour": 1}]}`, "parse"},
		{"missing name", `{"objects": [{}]}`, "no name"},
		{"duplicate name", `{"objects": [{"name": "a"}, {"name": "a"}]}`, "duplicate"},
		{"unknown target", `{"objects": [{"name": "a", "fot": [{"target": "b"}]}]}`, "unknown object"},
		{"empty FOT entry", `{"objects": [{"name": "a", "fot": [{}]}]}`, "no target"},
		{"bad protections", `{"objects": [{"name": "a", "prot": "rwp"}]}`, "protections"},
		{"bad lifetime", `{"objects": [{"name": "a", "lifetime": "forever"}]}`, "lifetime"},
		{"oversized data", `{"objects": [{"name": "a", "size": 8192}]}`, "capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newTestRuntime(t)
			_, err := rt.LoadImage(strings.NewReader(tt.image))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
