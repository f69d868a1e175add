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

	"github.com/twizzler/rt-abi-go/pkg/common/grpcx"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
)

var errcodeHeader = []string{"WORD", "CATEGORY", "CODE", "NAME", "GRPC"}

// errcodeRecord describes one packed error word.
type errcodeRecord struct {
	Word     string `json:"word" yaml:"word"`
	Category string `json:"category" yaml:"category"`
	Code     uint16 `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`
	Success  bool   `json:"success" yaml:"success"`
	GRPC     string `json:"grpc" yaml:"grpc"`
}

func newErrcodeRecord(raw twzerr.RawError) errcodeRecord {
	rec := errcodeRecord{
		Word:    fmt.Sprintf("%#x", raw.Raw()),
		Code:    raw.Code(),
		Success: raw.IsSuccess(),
	}
	if rec.Success {
		rec.Category = raw.Category().String()
		rec.Name = "success"
		rec.GRPC = grpcx.Code(nil).String()
		return rec
	}
	e := raw.Decode()
	rec.Category = e.Category().String()
	rec.Name = e.Error()
	rec.GRPC = grpcx.Code(e).String()
	return rec
}

func (r errcodeRecord) row() []string {
	return []string{r.Word, r.Category, strconv.Itoa(int(r.Code)), r.Name, r.GRPC}
}

func newErrcodeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errcode",
		Short: "Decode, encode and list packed runtime error words",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <word>",
		Short: "Decode a packed error word",
		Example: `  twzabi errcode decode 0x30001
  twzabi errcode decode 327683 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			word, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid error word %q", args[0])
			}
			return printErrcodes(cmd, opts, []errcodeRecord{newErrcodeRecord(twzerr.RawError(word))})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "encode <category> <name>",
		Short:   "Pack a named error into its wire word",
		Example: `  twzabi errcode encode resource "out of memory"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := twzerr.Lookup(args[0], args[1])
			if err != nil {
				return err
			}
			return printErrcodes(cmd, opts, []errcodeRecord{newErrcodeRecord(e.Raw())})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every defined error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defined := twzerr.Defined()
			records := make([]errcodeRecord, 0, len(defined))
			for _, e := range defined {
				records = append(records, newErrcodeRecord(e.Raw()))
			}
			return printErrcodes(cmd, opts, records)
		},
	})
	return cmd
}

func printErrcodes(cmd *cobra.Command, opts *options, records []errcodeRecord) error {
	out, err := opts.output(cmd)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.row())
	}
	var value any = records
	if len(records) == 1 {
		value = records[0]
	}
	return out.Print(value, Table{Header: errcodeHeader, Rows: rows})
}
