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

import (
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

// FromError classifies a host error. Runtime errors found in the chain are
// returned unchanged; anything unrecognized becomes OtherError.
func FromError(err error) TwzError {
	if err == nil {
		return nil
	}
	if t, ok := AsTwzError(err); ok {
		return t
	}
	if t, ok := fromPlatformError(err); ok {
		return t
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return TimedOut
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return AccessDenied
	case errors.Is(err, fs.ErrInvalid):
		return InvalidArgument
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrClosedPipe):
		return Reset
	case errors.Is(err, io.ErrShortWrite):
		return DataLoss
	}
	return OtherError
}
