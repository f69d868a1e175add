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
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/twizzler/rt-abi-go/pkg/client"
	"github.com/twizzler/rt-abi-go/pkg/client/local"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

var (
	objectHeader = []string{"NAME", "ID", "VALID", "PROT", "IMMUTABLE", "EXTS", "FOT"}
	fotHeader    = []string{"OBJECT", "INDEX", "STATE", "TARGET", "RESOLVES TO"}
)

type extRecord struct {
	Tag   string `json:"tag" yaml:"tag"`
	Value uint64 `json:"value" yaml:"value"`
}

type fotRecord struct {
	Index    uint32 `json:"index" yaml:"index"`
	State    string `json:"state" yaml:"state"`
	Target   string `json:"target" yaml:"target"`
	Resolver uint64 `json:"resolver,omitempty" yaml:"resolver,omitempty"`
	Resolved string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

type objectRecord struct {
	Name      string      `json:"name" yaml:"name"`
	ID        string      `json:"id" yaml:"id"`
	ValidLen  uint64      `json:"valid_len" yaml:"valid_len"`
	Prot      string      `json:"prot" yaml:"prot"`
	Immutable bool        `json:"immutable" yaml:"immutable"`
	Kuid      string      `json:"kuid" yaml:"kuid"`
	Exts      []extRecord `json:"exts" yaml:"exts"`
	Fot       []fotRecord `json:"fot" yaml:"fot"`
}

func newInspectCmd(opts *options) *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "inspect <image.json>",
		Short: "Load an object image and show metadata and FOT entries",
		Example: `  twzabi inspect image.json
  twzabi inspect image.json --name root -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.output(cmd)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to open image %s", args[0])
			}
			defer f.Close()

			rt := local.New(local.WithConfig(opts.config))
			retry := client.RetryOptions{Attempts: opts.config.MapAttempts, Delay: opts.config.MapRetryDelay}
			records, err := inspectImage(cmd.Context(), rt, f, only, retry)
			err = multierr.Append(err, rt.Close())
			if err != nil {
				return err
			}
			return out.Print(records, objectTables(records)...)
		},
	}
	cmd.Flags().StringVar(&only, "name", "", "only inspect the object with this name")
	return cmd
}

func inspectImage(ctx context.Context, rt *local.Runtime, r io.Reader, only string,
	retry client.RetryOptions) ([]objectRecord, error) {
	ids, err := rt.LoadImage(r)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for name := range ids {
		if only == "" || name == only {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.Errorf("no object named %q in image", only)
	}
	sort.Strings(names)

	records := make([]objectRecord, 0, len(names))
	for _, name := range names {
		rec, err := inspectObject(ctx, rt, name, ids[name], retry)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// inspectObject maps id read-only, retrying transient resource failures
// as configured, and collects its metadata and FOT.
func inspectObject(ctx context.Context, rt client.Runtime, name string, id types.ObjID,
	retry client.RetryOptions) (objectRecord, error) {
	h, err := client.MapWithRetry(ctx, rt, id, types.MapRead, retry)
	if err != nil {
		return objectRecord{}, err
	}
	defer h.Release()

	meta := h.Meta()
	rec := objectRecord{
		Name:      name,
		ID:        id.String(),
		ValidLen:  h.ValidLen(),
		Prot:      meta.DefProt.String(),
		Immutable: meta.Flags.Contains(types.MetaImmutable),
		Kuid:      meta.Kuid.String(),
		Exts:      []extRecord{},
		Fot:       []fotRecord{},
	}
	h.Exts().Each(func(_ uint32, ext *types.MetaExt) bool {
		rec.Exts = append(rec.Exts, extRecord{Tag: ext.Tag.String(), Value: ext.Value})
		return true
	})
	h.Fot().Each(func(idx uint32, e *types.FotEntry) bool {
		fr := fotRecord{Index: idx, State: e.State().String(), Target: e.Target().String()}
		if e.UsesResolver() {
			fr.Resolver = e.Resolver
			fr.Target = fmt.Sprintf("%#x:%#x", e.Values[0], e.Values[1])
		}
		if target, err := h.ResolveFot(uint64(idx), types.MapRead); err != nil {
			fr.Error = err.Error()
		} else {
			fr.Resolved = target.ID().String()
			target.Release()
		}
		rec.Fot = append(rec.Fot, fr)
		return true
	})
	return rec, nil
}

func objectTables(records []objectRecord) []Table {
	objects := Table{Header: objectHeader}
	fot := Table{Header: fotHeader}
	for _, r := range records {
		objects.Rows = append(objects.Rows, []string{
			r.Name, r.ID, strconv.FormatUint(r.ValidLen, 10), r.Prot,
			strconv.FormatBool(r.Immutable), strconv.Itoa(len(r.Exts)), strconv.Itoa(len(r.Fot)),
		})
		for _, f := range r.Fot {
			resolved := f.Resolved
			if f.Error != "" {
				resolved = f.Error
			}
			fot.Rows = append(fot.Rows, []string{r.Name, strconv.Itoa(int(f.Index)), f.State, f.Target, resolved})
		}
	}
	if len(fot.Rows) == 0 {
		return []Table{objects}
	}
	return []Table{objects, fot}
}
