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
	"context"
	"time"

	"github.com/avast/retry-go"

	"github.com/twizzler/rt-abi-go/pkg/common/log"
	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
	"github.com/twizzler/rt-abi-go/pkg/common/types"
)

// RetryOptions control MapWithRetry.
type RetryOptions struct {
	Attempts uint
	Delay    time.Duration
}

// MapWithRetry maps id, retrying while the runtime reports a resource
// error such as Busy or OutOfResources. Any other failure is returned
// immediately.
func MapWithRetry(ctx context.Context, rt Runtime, id types.ObjID, flags types.MapFlags,
	opts RetryOptions) (*ObjectHandle, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	rlog := log.FromContext(ctx).WithName("client").WithObject(id)
	var handle *ObjectHandle
	err := retry.Do(
		func() error {
			h, err := Map(rt, id, flags)
			if err != nil {
				return err
			}
			handle = h
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return twzerr.IsCategory(err, twzerr.ResourceCategory)
		}),
		retry.OnRetry(func(n uint, err error) {
			rlog.V(1).Info("retrying map", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return handle, nil
}
