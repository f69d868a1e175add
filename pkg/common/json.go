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

package common

import (
	"bytes"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ParseJson decodes a single JSON document from r into v. Unknown fields
// are rejected so that typos in hand-written images fail loudly.
func ParseJson(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "failed to parse json")
	}
	return nil
}

func ParseJsonBytes(data []byte, v any) error {
	return ParseJson(bytes.NewReader(data), v)
}

func ParseJsonString(data string, v any) error {
	return ParseJson(strings.NewReader(data), v)
}

// MarshalIndent encodes v with two-space indentation.
func MarshalIndent(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal json")
	}
	return out, nil
}
