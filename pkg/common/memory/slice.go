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

// Package memory has helpers for reading typed data out of mapped object
// memory. Nothing here owns the memory it points at.
package memory

import (
	"unsafe"
)

// Bytes views length bytes starting at pointer.
func Bytes(pointer unsafe.Pointer, length uint64) []byte {
	if pointer == nil || length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(pointer), length)
}

// At returns a typed pointer offset bytes past base.
func At[T any](base unsafe.Pointer, offset uintptr) *T {
	return (*T)(unsafe.Add(base, offset))
}

// View is a borrowed, bounds-checked window over count records of type T
// laid out stride bytes apart, starting at base. The memory must outlive
// the view.
type View[T any] struct {
	base   unsafe.Pointer
	stride uintptr
	count  uint32
}

// NewView builds a view over count records. The caller guarantees that the
// memory at base holds at least count records of stride bytes.
func NewView[T any](base unsafe.Pointer, count uint32) View[T] {
	var zero T
	return View[T]{base: base, stride: unsafe.Sizeof(zero), count: count}
}

func (v View[T]) Len() int {
	return int(v.count)
}

// Get returns the idx'th record, or nil when idx is out of range.
func (v View[T]) Get(idx uint32) *T {
	if idx >= v.count || v.base == nil {
		return nil
	}
	return (*T)(unsafe.Add(v.base, uintptr(idx)*v.stride))
}

// Each calls fn for every record in order until fn returns false.
func (v View[T]) Each(fn func(idx uint32, item *T) bool) {
	for i := uint32(0); i < v.count; i++ {
		if !fn(i, v.Get(i)) {
			return
		}
	}
}
