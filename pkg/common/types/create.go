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

type BackingType uint32

const (
	BackingNormal BackingType = 0
)

type LifetimeType uint32

const (
	LifetimeVolatile   LifetimeType = 0
	LifetimePersistent LifetimeType = 1
)

func (l LifetimeType) String() string {
	if l == LifetimePersistent {
		return "persistent"
	}
	return "volatile"
}

type CreateFlags uint32

const (
	CreateDeleteOnLastTie CreateFlags = 1
	CreateNoNonce         CreateFlags = 2
)

func (f CreateFlags) Contains(other CreateFlags) bool {
	return hasAll(f, other)
}

// ObjectCreate is the creation request record, laid out for direct use as
// a runtime call argument.
type ObjectCreate struct {
	Kuid     ObjID
	Backing  BackingType
	Lifetime LifetimeType
	Flags    CreateFlags
	DefProt  Protections
}

// DefaultObjectCreate yields a normal, volatile object with no special flags
// and full default protections.
func DefaultObjectCreate() ObjectCreate {
	return ObjectCreate{
		Backing:  BackingNormal,
		Lifetime: LifetimeVolatile,
		DefProt:  ProtAll,
	}
}

func (c ObjectCreate) WithKuid(kuid ObjID) ObjectCreate {
	c.Kuid = kuid
	return c
}

func (c ObjectCreate) WithBacking(b BackingType) ObjectCreate {
	c.Backing = b
	return c
}

func (c ObjectCreate) WithLifetime(l LifetimeType) ObjectCreate {
	c.Lifetime = l
	return c
}

func (c ObjectCreate) WithFlags(f CreateFlags) ObjectCreate {
	c.Flags = f
	return c
}

func (c ObjectCreate) WithDefProt(p Protections) ObjectCreate {
	c.DefProt = p
	return c
}
