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
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

var objidHeader = []string{"ID", "HI", "LO", "HEX"}

type objidRecord struct {
	ID  string `json:"id" yaml:"id"`
	Hi  string `json:"hi" yaml:"hi"`
	Lo  string `json:"lo" yaml:"lo"`
	Hex string `json:"hex" yaml:"hex"`
}

func newObjidRecord(id types.ObjID) objidRecord {
	return objidRecord{
		ID:  id.String(),
		Hi:  fmt.Sprintf("%#x", id.Hi),
		Lo:  fmt.Sprintf("%#x", id.Lo),
		Hex: id.Hex(),
	}
}

func newObjIDCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objid",
		Short: "Convert object IDs between forms",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "split <id>",
		Short:   "Split an object ID into its two 64-bit halves",
		Example: `  twzabi objid split 0b3c6f5e-1f2a-4c8d-9e0f-123456789abc`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := types.ParseObjID(args[0])
			if err != nil {
				return err
			}
			return printObjID(cmd, opts, id)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "join <hi> <lo>",
		Short:   "Join two 64-bit halves into an object ID",
		Example: `  twzabi objid join 0x1 0x2`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parts [2]uint64
			for i, arg := range args {
				v, err := strconv.ParseUint(arg, 0, 64)
				if err != nil {
					return errors.Wrapf(err, "invalid half %q", arg)
				}
				parts[i] = v
			}
			return printObjID(cmd, opts, types.ObjIDFromParts(parts))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Generate a random object ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printObjID(cmd, opts, types.GenerateObjID())
		},
	})
	return cmd
}

func printObjID(cmd *cobra.Command, opts *options, id types.ObjID) error {
	out, err := opts.output(cmd)
	if err != nil {
		return err
	}
	rec := newObjidRecord(id)
	return out.Print(rec, Table{Header: objidHeader, Rows: [][]string{{rec.ID, rec.Hi, rec.Lo, rec.Hex}}})
}
