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

package types

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ObjID is a 128-bit object identifier. In memory and across the runtime
// boundary it is two 64-bit words, high word first.
type ObjID struct {
	Hi uint64
	Lo uint64
}

func NewObjID(hi, lo uint64) ObjID {
	return ObjID{Hi: hi, Lo: lo}
}

func ObjIDFromParts(parts [2]uint64) ObjID {
	return ObjID{Hi: parts[0], Lo: parts[1]}
}

// Parts splits the ID for register passing, high half first.
func (id ObjID) Parts() [2]uint64 {
	return [2]uint64{id.Hi, id.Lo}
}

func (id ObjID) IsZero() bool {
	return id.Hi == 0 && id.Lo == 0
}

// Big returns (Hi << 64) | Lo.
func (id ObjID) Big() *big.Int {
	v := new(big.Int).SetUint64(id.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(id.Lo))
}

func (id ObjID) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:], id.Lo)
	return b
}

func ObjIDFromBytes(b [16]byte) ObjID {
	return ObjID{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}
}

// String renders the ID in the canonical 8-4-4-4-12 form.
func (id ObjID) String() string {
	return uuid.UUID(id.Bytes()).String()
}

func (id ObjID) Hex() string {
	return fmt.Sprintf("0x%016x%016x", id.Hi, id.Lo)
}

func (id ObjID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ObjID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseObjID accepts the canonical form, a 0x-prefixed hex number of up to
// 32 digits, or bare hex of up to 32 digits.
func ParseObjID(s string) (ObjID, error) {
	s = strings.TrimSpace(s)
	if u, err := uuid.Parse(s); err == nil && strings.Contains(s, "-") {
		return ObjIDFromBytes(u), nil
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" || len(digits) > 32 {
		return ObjID{}, errors.Errorf("invalid object id %q", s)
	}
	var hi, lo uint64
	var err error
	if len(digits) > 16 {
		if hi, err = strconv.ParseUint(digits[:len(digits)-16], 16, 64); err != nil {
			return ObjID{}, errors.Wrapf(err, "invalid object id %q", s)
		}
		digits = digits[len(digits)-16:]
	}
	if lo, err = strconv.ParseUint(digits, 16, 64); err != nil {
		return ObjID{}, errors.Wrapf(err, "invalid object id %q", s)
	}
	return ObjID{Hi: hi, Lo: lo}, nil
}

// GenerateObjID draws a random identifier.
func GenerateObjID() ObjID {
	return ObjIDFromBytes(uuid.New())
}

func InvalidObjID() ObjID {
	return ObjID{}
}
