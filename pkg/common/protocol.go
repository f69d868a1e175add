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

package common

import (
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// Request kinds, used to tag boundary calls in logs and traces.
const (
	MAP_REQUEST        = "map_request"
	RELEASE_REQUEST    = "release_request"
	UPDATE_REQUEST     = "update_request"
	RESOLVE_FOT        = "resolve_fot_request"
	INSERT_FOT         = "insert_fot_request"
	GET_HANDLE_REQUEST = "get_handle_request"
	CREATE_REQUEST     = "create_request"
	DELETE_REQUEST     = "delete_request"
)

type MapRequest struct {
	Type  string
	ID    types.ObjID
	Flags types.MapFlags
}

// MapResult carries a handle when Err is success. ResolveFot answers with
// the same record.
type MapResult struct {
	Err    twzerr.RawError
	Handle types.RawHandle
}

type ReleaseFlags uint64

const (
	// ReleaseNoCache asks the runtime not to keep the mapping cached after
	// the last reference is gone.
	ReleaseNoCache ReleaseFlags = 1
)

type ReleaseRequest struct {
	Type   string
	Handle *types.RawHandle
	Flags  ReleaseFlags
}

type UpdateRequest struct {
	Type   string
	Handle *types.RawHandle
}

type UpdateResult struct {
	Err      twzerr.RawError
	ValidLen uint32
}

type ResolveFotRequest struct {
	Type     string
	Handle   *types.RawHandle
	Index    uint64
	ValidLen uint64
	Flags    types.MapFlags
}

type InsertFotRequest struct {
	Type   string
	Handle *types.RawHandle
	Entry  types.FotEntry
}

type U32Result struct {
	Err twzerr.RawError
	Val uint32
}

type GetHandleRequest struct {
	Type    string
	Pointer uintptr
}

type CreateRequest struct {
	Type string
	Spec types.ObjectCreate
	// Units is the initial data size in LenMul units.
	Units uint32
}

type ObjIDResult struct {
	Err twzerr.RawError
	Val types.ObjID
}

type DeleteRequest struct {
	Type string
	ID   types.ObjID
}

func WriteMapRequest(id types.ObjID, flags types.MapFlags) MapRequest {
	return MapRequest{Type: MAP_REQUEST, ID: id, Flags: flags}
}

func WriteReleaseRequest(handle *types.RawHandle, flags ReleaseFlags) ReleaseRequest {
	return ReleaseRequest{Type: RELEASE_REQUEST, Handle: handle, Flags: flags}
}

func WriteUpdateRequest(handle *types.RawHandle) UpdateRequest {
	return UpdateRequest{Type: UPDATE_REQUEST, Handle: handle}
}

func WriteResolveFotRequest(handle *types.RawHandle, idx uint64, validLen uint64, flags types.MapFlags) ResolveFotRequest {
	return ResolveFotRequest{Type: RESOLVE_FOT, Handle: handle, Index: idx, ValidLen: validLen, Flags: flags}
}

func WriteInsertFotRequest(handle *types.RawHandle, entry types.FotEntry) InsertFotRequest {
	return InsertFotRequest{Type: INSERT_FOT, Handle: handle, Entry: entry}
}

func WriteGetHandleRequest(pointer uintptr) GetHandleRequest {
	return GetHandleRequest{Type: GET_HANDLE_REQUEST, Pointer: pointer}
}

func WriteCreateRequest(spec types.ObjectCreate, units uint32) CreateRequest {
	return CreateRequest{Type: CREATE_REQUEST, Spec: spec, Units: units}
}

func WriteDeleteRequest(id types.ObjID) DeleteRequest {
	return DeleteRequest{Type: DELETE_REQUEST, ID: id}
}
