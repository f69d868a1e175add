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

package client

import (
	"github.com/pkg/errors"

	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// CreateObject asks the runtime for a new object with units*LenMul bytes of
// initial data.
func CreateObject(rt Runtime, spec types.ObjectCreate, units uint32) (types.ObjID, error) {
	res := rt.CreateObject(common.WriteCreateRequest(spec, units))
	if err := res.Err.Result(); err != nil {
		return types.ObjID{}, errors.Wrap(err, "failed to create object")
	}
	logger.V(1).Info("created object", "id", res.Val, "lifetime", spec.Lifetime)
	return res.Val, nil
}

// DeleteObject removes id. Mappings that are still live stay valid until
// released.
func DeleteObject(rt Runtime, id types.ObjID) error {
	if err := rt.DeleteObject(common.WriteDeleteRequest(id)).Result(); err != nil {
		return errors.Wrapf(err, "failed to delete object %s", id)
	}
	return nil
}

// CreateAndMap creates an object and maps it read-write.
func CreateAndMap(rt Runtime, spec types.ObjectCreate, units uint32) (*ObjectHandle, error) {
	id, err := CreateObject(rt, spec, units)
	if err != nil {
		return nil, err
	}
	flags := types.MapRead | types.MapWrite
	if spec.Lifetime == types.LifetimePersistent {
		flags |= types.MapPersist
	}
	return Map(rt, id, flags)
}
