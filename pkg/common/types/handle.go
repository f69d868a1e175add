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

import "unsafe"

// LenMul is the granularity of RawHandle.ValidLen.
const LenMul = 0x1000

// RawHandle is the fixed-layout handle record exchanged with the runtime.
// RuntimeInfo points at runtime-owned control data whose first eight bytes
// hold the reference count shared by every handle onto the same mapping.
// A nil RuntimeInfo marks a non-owning handle.
type RawHandle struct {
	ID          ObjID
	RuntimeInfo unsafe.Pointer
	Start       unsafe.Pointer
	Meta        unsafe.Pointer
	MapFlags    MapFlags
	ValidLen    uint32
}

// ValidBytes converts ValidLen from LenMul units to bytes.
func (h *RawHandle) ValidBytes() uint64 {
	return uint64(h.ValidLen) * LenMul
}

// SetValidBytes stores n rounded down to a whole number of LenMul units.
func (h *RawHandle) SetValidBytes(n uint64) {
	h.ValidLen = uint32(n / LenMul)
}

func (h *RawHandle) IsOwning() bool {
	return h.RuntimeInfo != nil
}
