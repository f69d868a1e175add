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
	"sync/atomic"
	"unsafe"
)

// Nonce is the per-object collision-avoidance value. It is not a secret.
type Nonce struct {
	Hi uint64
	Lo uint64
}

type MetaFlags uint32

const (
	MetaImmutable MetaFlags = 1
)

func (f MetaFlags) Contains(other MetaFlags) bool {
	return hasAll(f, other)
}

// MetaInfo is the fixed header of an object's metadata region. It is
// followed in memory by ExtCount MetaExt records and then by FotCount
// FotEntry records. The two count fields are read atomically since the
// runtime may append entries while the object is mapped.
type MetaInfo struct {
	Nonce    Nonce
	Kuid     ObjID
	Flags    MetaFlags
	DefProt  Protections
	FotCount uint32
	ExtCount uint32
}

func (m *MetaInfo) LoadFotCount() uint32 {
	return atomic.LoadUint32(&m.FotCount)
}

func (m *MetaInfo) StoreFotCount(n uint32) {
	atomic.StoreUint32(&m.FotCount, n)
}

func (m *MetaInfo) LoadExtCount() uint32 {
	return atomic.LoadUint32(&m.ExtCount)
}

func (m *MetaInfo) StoreExtCount(n uint32) {
	atomic.StoreUint32(&m.ExtCount, n)
}

type MetaExtTag uint64

const (
	ExtTagEmpty MetaExtTag = 0
	ExtTagSize  MetaExtTag = 1
)

func (t MetaExtTag) String() string {
	switch t {
	case ExtTagEmpty:
		return "empty"
	case ExtTagSize:
		return "size"
	}
	return "unknown"
}

// MetaExt is a tagged metadata extension record.
type MetaExt struct {
	Tag   MetaExtTag
	Value uint64
}

type FotFlags uint32

const (
	FotAllocated FotFlags = 1
	FotActive    FotFlags = 2
	FotDeleted   FotFlags = 4
	FotResolver  FotFlags = 8
)

func (f FotFlags) Contains(other FotFlags) bool {
	return hasAll(f, other)
}

// FotState is the position of an entry in its one-way lifecycle.
type FotState int

const (
	FotUnallocated FotState = iota
	FotStateAllocated
	FotStateActive
	FotStateDeleted
)

func (s FotState) String() string {
	switch s {
	case FotStateAllocated:
		return "allocated"
	case FotStateActive:
		return "active"
	case FotStateDeleted:
		return "deleted"
	}
	return "unallocated"
}

// FotEntry describes one reference from an object to another. Values hold
// the target ID (high half first) unless the Resolver flag is set, in which
// case they are resolver-specific data. Flags is only accessed atomically.
type FotEntry struct {
	Values   [2]uint64
	Resolver uint64
	Flags    uint32
	_        uint32
}

// NewFotEntry builds an entry that refers directly to target.
func NewFotEntry(target ObjID) FotEntry {
	return FotEntry{Values: target.Parts()}
}

// NewResolverFotEntry builds an entry resolved through a named resolver.
func NewResolverFotEntry(resolver uint64, values [2]uint64) FotEntry {
	return FotEntry{Values: values, Resolver: resolver, Flags: uint32(FotResolver)}
}

func (e *FotEntry) LoadFlags() FotFlags {
	return FotFlags(atomic.LoadUint32(&e.Flags))
}

// Publish stores the flags word with release semantics. Entry values must
// be written before the call.
func (e *FotEntry) Publish(flags FotFlags) {
	atomic.StoreUint32(&e.Flags, uint32(flags))
}

// MarkActive and MarkDeleted only ever set bits.
func (e *FotEntry) MarkActive() {
	atomic.OrUint32(&e.Flags, uint32(FotActive))
}

func (e *FotEntry) MarkDeleted() {
	atomic.OrUint32(&e.Flags, uint32(FotDeleted))
}

func (e *FotEntry) State() FotState {
	flags := e.LoadFlags()
	switch {
	case flags.Contains(FotDeleted):
		return FotStateDeleted
	case flags.Contains(FotActive):
		return FotStateActive
	case flags.Contains(FotAllocated):
		return FotStateAllocated
	}
	return FotUnallocated
}

func (e *FotEntry) UsesResolver() bool {
	return e.LoadFlags().Contains(FotResolver)
}

func (e *FotEntry) Target() ObjID {
	return ObjIDFromParts(e.Values)
}

const (
	MetaInfoSize = unsafe.Sizeof(MetaInfo{})
	MetaExtSize  = unsafe.Sizeof(MetaExt{})
	FotEntrySize = unsafe.Sizeof(FotEntry{})
)

// MetaRegionSize is the number of bytes needed for a metadata region with
// room for the given numbers of extensions and FOT entries.
func MetaRegionSize(exts, fotEntries uint32) uintptr {
	return MetaInfoSize + uintptr(exts)*MetaExtSize + uintptr(fotEntries)*FotEntrySize
}

// FotOffset is the offset of the first FOT entry from the start of the
// metadata region.
func FotOffset(extCount uint32) uintptr {
	return MetaInfoSize + uintptr(extCount)*MetaExtSize
}
