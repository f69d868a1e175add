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

// Package client is the user-space side of the twizzler runtime ABI. It
// wraps the runtime's raw handle records in reference-counted
// ObjectHandles and decodes every failure into a twzerr.TwzError.
package client

import (
	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/log"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

var logger = log.WithName("client")

// Runtime is the boundary that performs mapping, object creation and FOT
// work. Calls may block the caller but never retain the request pointers
// past the call.
type Runtime interface {
	MapObject(req common.MapRequest) common.MapResult
	// ReleaseHandle is called exactly once per mapping, by whichever
	// handle drops the last reference.
	ReleaseHandle(req common.ReleaseRequest)
	UpdateHandle(req common.UpdateRequest) common.UpdateResult
	ResolveFot(req common.ResolveFotRequest) common.MapResult
	InsertFot(req common.InsertFotRequest) common.U32Result
	// GetHandle returns a new reference to the mapping that contains the
	// pointer, or a record with a zero ID when there is none.
	GetHandle(req common.GetHandleRequest) types.RawHandle
	CreateObject(req common.CreateRequest) common.ObjIDResult
	DeleteObject(req common.DeleteRequest) twzerr.RawError
	// Abort terminates the process. It does not return.
	Abort()
}
