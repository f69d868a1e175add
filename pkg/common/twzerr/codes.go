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

package twzerr

// Wire layout of the packed error word. These values are shared with the
// runtime and must not change.
const (
	CodeMask      uint64 = 0xffff
	CodeShift            = 0
	CategoryMask  uint64 = 0xffff0000
	CategoryShift        = 16

	// Success is the code that denotes no error.
	Success uint16 = 0
)

const (
	KUncategorized uint16 = 0
	KGeneric       uint16 = 1
	KArgument      uint16 = 2
	KResource      uint16 = 3
	KNaming        uint16 = 4
	KObject        uint16 = 5
	KIo            uint16 = 6
	KSecurity      uint16 = 7
)

const (
	OtherError      GenericError = 1
	NotSupported    GenericError = 2
	Internal        GenericError = 3
	WouldBlock      GenericError = 4
	TimedOut        GenericError = 5
	AccessDenied    GenericError = 6
	NoSuchOperation GenericError = 7
	Interrupted     GenericError = 8
	InProgress      GenericError = 9
)

const (
	InvalidArgument ArgumentError = 1
	WrongType       ArgumentError = 2
	InvalidAddress  ArgumentError = 3
	BadHandle       ArgumentError = 4
)

const (
	OutOfMemory    ResourceError = 1
	OutOfResources ResourceError = 2
	OutOfNames     ResourceError = 3
	Unavailable    ResourceError = 4
	Refused        ResourceError = 5
	Busy           ResourceError = 6
	NotConnected   ResourceError = 7
	Unreachable    ResourceError = 8
	NonAtomic      ResourceError = 9
)

const (
	NotFound      NamingError = 1
	AlreadyExists NamingError = 2
	WrongNameKind NamingError = 3
	AlreadyBound  NamingError = 4
	LinkLoop      NamingError = 5
	NotEmpty      NamingError = 6
)

const (
	MapFailed        ObjectError = 1
	NotMapped        ObjectError = 2
	InvalidFote      ObjectError = 3
	InvalidPtr       ObjectError = 4
	InvalidMeta      ObjectError = 5
	BaseTypeMismatch ObjectError = 6
	NoSuchObject     ObjectError = 7
)

const (
	OtherIoError IoError = 1
	DataLoss     IoError = 2
	DeviceError  IoError = 3
	SeekFailed   IoError = 4
	Reset        IoError = 5
)

const (
	InvalidKey        SecurityError = 1
	InvalidScheme     SecurityError = 2
	SignatureMismatch SecurityError = 3
	GateDenied        SecurityError = 4
	InvalidGate       SecurityError = 5
)

var genericNames = map[GenericError]string{
	OtherError:      "other",
	NotSupported:    "not supported",
	Internal:        "internal",
	WouldBlock:      "would block",
	TimedOut:        "timed out",
	AccessDenied:    "access denied",
	NoSuchOperation: "no such operation",
	Interrupted:     "interrupted",
	InProgress:      "in-progress",
}

var argumentNames = map[ArgumentError]string{
	InvalidArgument: "invalid argument",
	WrongType:       "wrong type",
	InvalidAddress:  "invalid address",
	BadHandle:       "bad handle",
}

var resourceNames = map[ResourceError]string{
	OutOfMemory:    "out of memory",
	OutOfResources: "out of resources",
	OutOfNames:     "out of names",
	Unavailable:    "unavailable",
	Refused:        "refused",
	Busy:           "busy",
	NotConnected:   "not connected",
	Unreachable:    "unreachable",
	NonAtomic:      "non-atomic",
}

var namingNames = map[NamingError]string{
	NotFound:      "not found",
	AlreadyExists: "already exists",
	WrongNameKind: "wrong name kind",
	AlreadyBound:  "already bound",
	LinkLoop:      "link loop",
	NotEmpty:      "not empty",
}

var objectNames = map[ObjectError]string{
	MapFailed:        "mapping failed",
	NotMapped:        "not mapped",
	InvalidFote:      "invalid FOT entry",
	InvalidPtr:       "invalid pointer",
	InvalidMeta:      "invalid metadata",
	BaseTypeMismatch: "base type mismatch",
	NoSuchObject:     "no such object",
}

var ioNames = map[IoError]string{
	OtherIoError: "other I/O error",
	DataLoss:     "data loss",
	DeviceError:  "device error",
	SeekFailed:   "seek failed",
	Reset:        "reset",
}

var securityNames = map[SecurityError]string{
	InvalidKey:        "invalid key",
	InvalidScheme:     "invalid scheme",
	SignatureMismatch: "signature mismatch",
	GateDenied:        "gate denied",
	InvalidGate:       "invalid gate",
}
