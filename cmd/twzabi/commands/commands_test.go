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

package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/twizzler/rt-abi-go/pkg/client"
	"github.com/twizzler/rt-abi-go/pkg/client/local"
	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestErrcodeDecode(t *testing.T) {
	out, err := run(t, "errcode", "decode", "0x30001", "-o", "json")
	require.NoError(t, err)

	var rec errcodeRecord
	require.NoError(t, common.ParseJsonString(out, &rec))
	assert.Equal(t, "0x30001", rec.Word)
	assert.Equal(t, "resource", rec.Category)
	assert.Equal(t, uint16(1), rec.Code)
	assert.Equal(t, "resource error: out of memory", rec.Name)
	assert.Equal(t, "ResourceExhausted", rec.GRPC)

	out, err = run(t, "errcode", "decode", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "success")

	_, err = run(t, "errcode", "decode", "bogus")
	assert.Error(t, err)
}

func TestErrcodeEncode(t *testing.T) {
	out, err := run(t, "errcode", "encode", "object", "invalid FOT entry", "-o", "yaml")
	require.NoError(t, err)

	var rec errcodeRecord
	require.NoError(t, yaml.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "0x50003", rec.Word)
	assert.Equal(t, "object", rec.Category)

	_, err = run(t, "errcode", "encode", "object", "no-such-name")
	assert.Error(t, err)
}

func TestErrcodeList(t *testing.T) {
	out, err := run(t, "errcode", "list", "-o", "json")
	require.NoError(t, err)

	var recs []errcodeRecord
	require.NoError(t, common.ParseJsonString(out, &recs))
	assert.Len(t, recs, 9+4+9+6+7+5+5)
	assert.Equal(t, "0x10001", recs[0].Word)

	out, err = run(t, "errcode", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "security error: invalid gate")
}

func TestObjID(t *testing.T) {
	out, err := run(t, "objid", "join", "0x1", "0x2", "-o", "json")
	require.NoError(t, err)
	var rec objidRecord
	require.NoError(t, common.ParseJsonString(out, &rec))
	assert.Equal(t, "00000000-0000-0001-0000-000000000002", rec.ID)
	assert.Equal(t, "0x00000000000000010000000000000002", rec.Hex)

	out, err = run(t, "objid", "split", rec.ID, "-o", "json")
	require.NoError(t, err)
	var split objidRecord
	require.NoError(t, common.ParseJsonString(out, &split))
	assert.Equal(t, "0x1", split.Hi)
	assert.Equal(t, "0x2", split.Lo)

	_, err = run(t, "objid", "split", "not-an-id")
	assert.Error(t, err)
	_, err = run(t, "objid", "new", "-o", "xml")
	assert.Error(t, err)
}

const inspectImageJSON = `{
  "objects": [
    {"name": "root", "fot": [{"target": "leaf"}, {"target": "leaf", "deleted": true}]},
    {"name": "leaf", "exts": [{"tag": 1, "value": 4096}], "immutable": true}
  ]
}`

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.json")
	require.NoError(t, os.WriteFile(path, []byte(inspectImageJSON), 0o644))

	out, err := run(t, "inspect", path, "-o", "json")
	require.NoError(t, err)
	var recs []objectRecord
	require.NoError(t, common.ParseJsonString(out, &recs))
	require.Len(t, recs, 2)

	leaf, root := recs[0], recs[1]
	assert.Equal(t, "leaf", leaf.Name)
	assert.True(t, leaf.Immutable)
	require.Len(t, leaf.Exts, 1)
	assert.Equal(t, "size", leaf.Exts[0].Tag)

	assert.Equal(t, "root", root.Name)
	require.Len(t, root.Fot, 2)
	assert.Equal(t, "active", root.Fot[0].State)
	assert.Equal(t, leaf.ID, root.Fot[0].Resolved)
	assert.Equal(t, "deleted", root.Fot[1].State)
	assert.Contains(t, root.Fot[1].Error, "invalid FOT entry")

	out, err = run(t, "inspect", path, "--name", "root")
	require.NoError(t, err)
	assert.Contains(t, out, "RESOLVES TO")

	_, err = run(t, "inspect", path, "--name", "missing")
	assert.Error(t, err)
	_, err = run(t, "inspect", filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twzabi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_fot_entries: 1\n"), 0o644))
	image := filepath.Join(t.TempDir(), "image.json")
	require.NoError(t, os.WriteFile(image, []byte(inspectImageJSON), 0o644))

	_, err := run(t, "inspect", image, "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of resources")
}

// busyRuntime refuses the first busy map requests before deferring to the
// local runtime.
type busyRuntime struct {
	*local.Runtime
	busy int
}

func (b *busyRuntime) MapObject(req common.MapRequest) common.MapResult {
	if b.busy > 0 {
		b.busy--
		return common.MapResult{Err: twzerr.Busy.Raw()}
	}
	return b.Runtime.MapObject(req)
}

func TestInspectRetriesBusyMap(t *testing.T) {
	rt := local.New()
	defer func() { assert.NoError(t, rt.Close()) }()
	ids, err := rt.LoadImage(strings.NewReader(inspectImageJSON))
	require.NoError(t, err)

	retry := client.RetryOptions{Attempts: 3, Delay: time.Millisecond}
	rec, err := inspectObject(context.Background(), &busyRuntime{Runtime: rt, busy: 2}, "leaf", ids["leaf"], retry)
	require.NoError(t, err)
	assert.Equal(t, ids["leaf"].String(), rec.ID)

	_, err = inspectObject(context.Background(), &busyRuntime{Runtime: rt, busy: 3}, "leaf", ids["leaf"], retry)
	assert.True(t, errors.Is(err, twzerr.Busy))
	assert.Equal(t, 0, rt.LiveMappings())
}
