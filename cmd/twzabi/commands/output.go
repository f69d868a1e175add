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
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/twizzler/rt-abi-go/pkg/common"
)

// ValidOutputFormats are the accepted values of --output.
var ValidOutputFormats = []string{"table", "json", "yaml"}

// Output renders command results in the selected format.
type Output struct {
	w      io.Writer
	format string
}

func NewOutput(w io.Writer, format string) (*Output, error) {
	for _, f := range ValidOutputFormats {
		if f == format {
			return &Output{w: w, format: format}, nil
		}
	}
	return nil, errors.Errorf("unsupported output format %q", format)
}

// Table is a rendering of a result as rows under a header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Print writes value as JSON or YAML, or the tables when the format is
// "table".
func (o *Output) Print(value any, tables ...Table) error {
	switch o.format {
	case "json":
		b, err := common.MarshalIndent(value)
		if err != nil {
			return errors.Wrap(err, "failed to marshal output")
		}
		_, err = o.w.Write(append(b, '\n'))
		return err
	case "yaml":
		enc := yaml.NewEncoder(o.w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return errors.Wrap(err, "failed to marshal output")
		}
		return enc.Close()
	}
	for _, t := range tables {
		table := tablewriter.NewWriter(o.w)
		table.SetHeader(t.Header)
		table.SetAutoWrapText(false)
		table.AppendBulk(t.Rows)
		table.Render()
	}
	return nil
}
