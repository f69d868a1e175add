//go:build unix

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
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// FromErrno maps a host errno onto the runtime taxonomy.
func FromErrno(errno unix.Errno) TwzError {
	switch errno {
	case 0:
		return nil
	case unix.ENOENT, unix.EADDRNOTAVAIL:
		return NotFound
	case unix.EPERM, unix.EACCES:
		return AccessDenied
	case unix.ECONNREFUSED, unix.EROFS:
		return Refused
	case unix.ECONNRESET, unix.ECONNABORTED, unix.EPIPE:
		return Reset
	case unix.EHOSTUNREACH, unix.ENETUNREACH:
		return Unreachable
	case unix.ENOTCONN:
		return NotConnected
	case unix.EADDRINUSE:
		return AlreadyBound
	case unix.ENETDOWN:
		return Unavailable
	case unix.EEXIST:
		return AlreadyExists
	case unix.EAGAIN:
		return WouldBlock
	case unix.ENOTDIR, unix.EISDIR:
		return WrongNameKind
	case unix.ENOTEMPTY:
		return NotEmpty
	case unix.ELOOP, unix.EMLINK:
		return LinkLoop
	case unix.ESTALE, unix.EBADF:
		return BadHandle
	case unix.EINVAL, unix.EXDEV, unix.ENAMETOOLONG, unix.E2BIG:
		return InvalidArgument
	case unix.ETIMEDOUT:
		return TimedOut
	case unix.ENOSPC, unix.EDQUOT, unix.EFBIG:
		return OutOfResources
	case unix.ESPIPE:
		return SeekFailed
	case unix.EBUSY, unix.ETXTBSY, unix.EDEADLK:
		return Busy
	case unix.EINTR:
		return Interrupted
	case unix.ENOSYS, unix.EOPNOTSUPP:
		return NotSupported
	case unix.ENOMEM:
		return OutOfMemory
	case unix.EINPROGRESS:
		return InProgress
	case unix.EIO:
		return DeviceError
	case unix.EFAULT:
		return InvalidAddress
	}
	return OtherError
}

func fromPlatformError(err error) (TwzError, bool) {
	var errno unix.Errno
	if errors.As(err, &errno) {
		if t := FromErrno(errno); t != nil {
			return t, true
		}
	}
	return nil, false
}
