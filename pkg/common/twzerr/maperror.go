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

// MapError is the legacy result code of the runtime's map call. Newer
// runtimes report a packed RawError instead; MapError values are converted
// on receipt.
type MapError uint32

const (
	MapErrorSuccess MapError = iota
	MapErrorOther
	MapErrorOutOfResources
	MapErrorNoSuchObject
	MapErrorPermissionDenied
	MapErrorInvalidArgument
)

// TwzError converts the legacy code. MapErrorSuccess converts to nil.
func (m MapError) TwzError() TwzError {
	switch m {
	case MapErrorSuccess:
		return nil
	case MapErrorOutOfResources:
		return OutOfResources
	case MapErrorNoSuchObject:
		return NoSuchObject
	case MapErrorPermissionDenied:
		return AccessDenied
	case MapErrorInvalidArgument:
		return InvalidArgument
	default:
		return MapFailed
	}
}
