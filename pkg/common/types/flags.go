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

import "strings"

// MapFlags controls how an object is mapped.
type MapFlags uint32

const (
	MapRead       MapFlags = 1
	MapWrite      MapFlags = 2
	MapExec       MapFlags = 4
	MapPersist    MapFlags = 8
	MapIndirect   MapFlags = 16
	MapNoNullPage MapFlags = 32

	mapAll = MapRead | MapWrite | MapExec | MapPersist | MapIndirect | MapNoNullPage
)

// MapReadWritePersist maps for reading and writing with persistent writes.
func MapReadWritePersist() MapFlags {
	return MapRead | MapWrite | MapPersist
}

// MapReadWriteVolatile maps for reading and writing without persistence.
func MapReadWriteVolatile() MapFlags {
	return MapRead | MapWrite
}

func MapReadOnlyIndirect() MapFlags {
	return MapRead | MapIndirect
}

func MapReadExecIndirect() MapFlags {
	return MapRead | MapExec | MapIndirect
}

func (f MapFlags) Contains(other MapFlags) bool {
	return hasAll(f, other)
}

// Valid reports whether only defined bits are set.
func (f MapFlags) Valid() bool {
	return f&^mapAll == 0
}

// Protections extracts the read, write and exec bits.
func (f MapFlags) Protections() Protections {
	return Protections(f & (MapRead | MapWrite | MapExec))
}

// String renders the flags as "rwxpin", with '-' for unset bits.
func (f MapFlags) String() string {
	var b strings.Builder
	for _, bit := range []struct {
		flag MapFlags
		c    byte
	}{
		{MapRead, 'r'},
		{MapWrite, 'w'},
		{MapExec, 'x'},
		{MapPersist, 'p'},
		{MapIndirect, 'i'},
		{MapNoNullPage, 'n'},
	} {
		if f.Contains(bit.flag) {
			b.WriteByte(bit.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ParseMapFlags reads the form produced by MapFlags.String. Letters may
// appear in any order and '-' is ignored.
func ParseMapFlags(s string) (MapFlags, bool) {
	var f MapFlags
	for _, c := range s {
		switch c {
		case 'r':
			f |= MapRead
		case 'w':
			f |= MapWrite
		case 'x':
			f |= MapExec
		case 'p':
			f |= MapPersist
		case 'i':
			f |= MapIndirect
		case 'n':
			f |= MapNoNullPage
		case '-':
		default:
			return 0, false
		}
	}
	return f, true
}

// Protections are the access rights recorded in object metadata and
// requested at creation time.
type Protections uint32

const (
	ProtRead  Protections = 1
	ProtWrite Protections = 2
	ProtExec  Protections = 4

	ProtAll = ProtRead | ProtWrite | ProtExec
)

func (p Protections) Contains(other Protections) bool {
	return hasAll(p, other)
}

func (p Protections) MapFlags() MapFlags {
	return MapFlags(p & ProtAll)
}

func (p Protections) String() string {
	return p.MapFlags().String()[:3]
}
