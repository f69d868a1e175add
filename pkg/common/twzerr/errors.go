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

// Package twzerr implements the packed error word shared with the twizzler
// runtime and the typed error hierarchy it decodes into.
//
// A wire word carries a category in bits [16, 32) and a code in bits [0, 16).
// Decoding is total: any code that is not known within its category, and any
// unknown category, decodes to Uncategorized(code).
package twzerr

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorCategory uint16

const (
	UncategorizedCategory = ErrorCategory(KUncategorized)
	GenericCategory       = ErrorCategory(KGeneric)
	ArgumentCategory      = ErrorCategory(KArgument)
	ResourceCategory      = ErrorCategory(KResource)
	NamingCategory        = ErrorCategory(KNaming)
	ObjectCategory        = ErrorCategory(KObject)
	IoCategory            = ErrorCategory(KIo)
	SecurityCategory      = ErrorCategory(KSecurity)
)

var categoryNames = map[ErrorCategory]string{
	UncategorizedCategory: "uncategorized",
	GenericCategory:       "generic",
	ArgumentCategory:      "argument",
	ResourceCategory:      "resource",
	NamingCategory:        "naming",
	ObjectCategory:        "object",
	IoCategory:            "I/O",
	SecurityCategory:      "security",
}

// Categories lists every category tag in wire order.
func Categories() []ErrorCategory {
	return []ErrorCategory{
		UncategorizedCategory,
		GenericCategory,
		ArgumentCategory,
		ResourceCategory,
		NamingCategory,
		ObjectCategory,
		IoCategory,
		SecurityCategory,
	}
}

func (c ErrorCategory) Raw() uint16 {
	return uint16(c)
}

func (c ErrorCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", uint16(c))
}

// TwzError is a decoded runtime error. Every implementation is a comparable
// value type, so errors.Is matches a specific variant and a type switch (or
// errors.As) matches a whole category.
type TwzError interface {
	error
	Category() ErrorCategory
	Code() uint16
	Raw() RawError
}

// RawError is the packed wire form of a TwzError.
type RawError uint64

func FromParts(category, code uint16) RawError {
	cat := (uint64(category) << CategoryShift) & CategoryMask
	c := (uint64(code) << CodeShift) & CodeMask
	return RawError(cat | c)
}

func SuccessRaw() RawError {
	return RawError(Success)
}

// errorWord packs an error value. A zero code would read as success, so
// such values are sent as generic "other".
func errorWord(category, code uint16) RawError {
	if code == Success {
		return FromParts(KGeneric, uint16(OtherError))
	}
	return FromParts(category, code)
}

func (r RawError) Category() ErrorCategory {
	cat := uint16((uint64(r) & CategoryMask) >> CategoryShift)
	if _, ok := categoryNames[ErrorCategory(cat)]; ok {
		return ErrorCategory(cat)
	}
	return UncategorizedCategory
}

func (r RawError) Code() uint16 {
	return uint16((uint64(r) & CodeMask) >> CodeShift)
}

func (r RawError) IsSuccess() bool {
	return r.Code() == Success
}

func (r RawError) Raw() uint64 {
	return uint64(r)
}

// Decode maps the word to its typed error. It must not be called on a
// success word; use Result for words that may denote success.
func (r RawError) Decode() TwzError {
	code := r.Code()
	switch r.Category() {
	case GenericCategory:
		return fromCode(genericNames, code)
	case ArgumentCategory:
		return fromCode(argumentNames, code)
	case ResourceCategory:
		return fromCode(resourceNames, code)
	case NamingCategory:
		return fromCode(namingNames, code)
	case ObjectCategory:
		return fromCode(objectNames, code)
	case IoCategory:
		return fromCode(ioNames, code)
	case SecurityCategory:
		return fromCode(securityNames, code)
	default:
		return Uncategorized(code)
	}
}

// Result returns nil for a success word and the decoded error otherwise.
func (r RawError) Result() error {
	if r.IsSuccess() {
		return nil
	}
	return r.Decode()
}

func (r RawError) String() string {
	if r.IsSuccess() {
		return "success"
	}
	return r.Decode().Error()
}

type namedCode interface {
	~uint16
	TwzError
}

func fromCode[T namedCode](names map[T]string, code uint16) TwzError {
	if _, ok := names[T(code)]; ok {
		return T(code)
	}
	return Uncategorized(code)
}

// AsTwzError finds the typed runtime error in err's chain.
func AsTwzError(err error) (TwzError, bool) {
	var t TwzError
	if err == nil {
		return nil, false
	}
	if errors.As(err, &t) {
		return t, true
	}
	return nil, false
}

// IsCategory reports whether err carries a runtime error of the category.
func IsCategory(err error, category ErrorCategory) bool {
	if t, ok := AsTwzError(err); ok {
		return t.Category() == category
	}
	return false
}

// ToRaw encodes any error for the wire. Errors without a runtime error in
// their chain are reported as generic "other". Only a nil error encodes to
// success.
func ToRaw(err error) RawError {
	if err == nil {
		return SuccessRaw()
	}
	if t, ok := AsTwzError(err); ok {
		return t.Raw()
	}
	return OtherError.Raw()
}

type Uncategorized uint16

func (e Uncategorized) Category() ErrorCategory { return UncategorizedCategory }
func (e Uncategorized) Code() uint16            { return uint16(e) }
func (e Uncategorized) Raw() RawError           { return errorWord(KUncategorized, uint16(e)) }
func (e Uncategorized) Error() string {
	return fmt.Sprintf("uncategorized error: %d", uint16(e))
}

type GenericError uint16

func (e GenericError) Category() ErrorCategory { return GenericCategory }
func (e GenericError) Code() uint16            { return uint16(e) }
func (e GenericError) Raw() RawError           { return errorWord(KGeneric, uint16(e)) }
func (e GenericError) String() string          { return nameOf(genericNames, e) }
func (e GenericError) Error() string           { return "generic error: " + e.String() }

type ArgumentError uint16

func (e ArgumentError) Category() ErrorCategory { return ArgumentCategory }
func (e ArgumentError) Code() uint16            { return uint16(e) }
func (e ArgumentError) Raw() RawError           { return errorWord(KArgument, uint16(e)) }
func (e ArgumentError) String() string          { return nameOf(argumentNames, e) }
func (e ArgumentError) Error() string           { return "argument error: " + e.String() }

type ResourceError uint16

func (e ResourceError) Category() ErrorCategory { return ResourceCategory }
func (e ResourceError) Code() uint16            { return uint16(e) }
func (e ResourceError) Raw() RawError           { return errorWord(KResource, uint16(e)) }
func (e ResourceError) String() string          { return nameOf(resourceNames, e) }
func (e ResourceError) Error() string           { return "resource error: " + e.String() }

type NamingError uint16

func (e NamingError) Category() ErrorCategory { return NamingCategory }
func (e NamingError) Code() uint16            { return uint16(e) }
func (e NamingError) Raw() RawError           { return errorWord(KNaming, uint16(e)) }
func (e NamingError) String() string          { return nameOf(namingNames, e) }
func (e NamingError) Error() string           { return "naming error: " + e.String() }

type ObjectError uint16

func (e ObjectError) Category() ErrorCategory { return ObjectCategory }
func (e ObjectError) Code() uint16            { return uint16(e) }
func (e ObjectError) Raw() RawError           { return errorWord(KObject, uint16(e)) }
func (e ObjectError) String() string          { return nameOf(objectNames, e) }
func (e ObjectError) Error() string           { return "object error: " + e.String() }

type IoError uint16

func (e IoError) Category() ErrorCategory { return IoCategory }
func (e IoError) Code() uint16            { return uint16(e) }
func (e IoError) Raw() RawError           { return errorWord(KIo, uint16(e)) }
func (e IoError) String() string          { return nameOf(ioNames, e) }
func (e IoError) Error() string           { return "I/O error: " + e.String() }

type SecurityError uint16

func (e SecurityError) Category() ErrorCategory { return SecurityCategory }
func (e SecurityError) Code() uint16            { return uint16(e) }
func (e SecurityError) Raw() RawError           { return errorWord(KSecurity, uint16(e)) }
func (e SecurityError) String() string          { return nameOf(securityNames, e) }
func (e SecurityError) Error() string           { return "security error: " + e.String() }

func nameOf[T ~uint16](names map[T]string, e T) string {
	if name, ok := names[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%d)", uint16(e))
}
