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

// Package grpcx carries runtime errors across gRPC. A TwzError becomes a
// status whose code approximates the error and whose ErrorInfo detail holds
// the exact packed word, so the receiving side decodes the same value.
package grpcx

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	gcodes "google.golang.org/grpc/codes"
	gstatus "google.golang.org/grpc/status"

	"github.com/twizzler/rt-abi-go/pkg/common/twzerr"
)

const (
	// Domain identifies ErrorInfo details produced by this package.
	Domain = "abi.twizzler.org"
	// RawKey is the ErrorInfo metadata key holding the packed word in hex.
	RawKey = "raw"
)

var genericCodes = map[twzerr.GenericError]gcodes.Code{
	twzerr.OtherError:      gcodes.Unknown,
	twzerr.NotSupported:    gcodes.Unimplemented,
	twzerr.Internal:        gcodes.Internal,
	twzerr.WouldBlock:      gcodes.Unavailable,
	twzerr.TimedOut:        gcodes.DeadlineExceeded,
	twzerr.AccessDenied:    gcodes.PermissionDenied,
	twzerr.NoSuchOperation: gcodes.Unimplemented,
	twzerr.Interrupted:     gcodes.Canceled,
	twzerr.InProgress:      gcodes.Aborted,
}

var resourceCodes = map[twzerr.ResourceError]gcodes.Code{
	twzerr.OutOfMemory:    gcodes.ResourceExhausted,
	twzerr.OutOfResources: gcodes.ResourceExhausted,
	twzerr.OutOfNames:     gcodes.ResourceExhausted,
	twzerr.NonAtomic:      gcodes.FailedPrecondition,
}

var namingCodes = map[twzerr.NamingError]gcodes.Code{
	twzerr.NotFound:      gcodes.NotFound,
	twzerr.AlreadyExists: gcodes.AlreadyExists,
	twzerr.AlreadyBound:  gcodes.AlreadyExists,
	twzerr.WrongNameKind: gcodes.InvalidArgument,
}

var objectCodes = map[twzerr.ObjectError]gcodes.Code{
	twzerr.MapFailed:    gcodes.Internal,
	twzerr.NotMapped:    gcodes.FailedPrecondition,
	twzerr.NoSuchObject: gcodes.NotFound,
}

var ioCodes = map[twzerr.IoError]gcodes.Code{
	twzerr.DataLoss:    gcodes.DataLoss,
	twzerr.DeviceError: gcodes.Internal,
	twzerr.SeekFailed:  gcodes.OutOfRange,
}

// Code picks the gRPC code that best matches e.
func Code(e twzerr.TwzError) gcodes.Code {
	switch v := e.(type) {
	case nil:
		return gcodes.OK
	case twzerr.GenericError:
		return lookup(genericCodes, v, gcodes.Unknown)
	case twzerr.ArgumentError:
		return gcodes.InvalidArgument
	case twzerr.ResourceError:
		return lookup(resourceCodes, v, gcodes.Unavailable)
	case twzerr.NamingError:
		return lookup(namingCodes, v, gcodes.FailedPrecondition)
	case twzerr.ObjectError:
		return lookup(objectCodes, v, gcodes.InvalidArgument)
	case twzerr.IoError:
		return lookup(ioCodes, v, gcodes.Unavailable)
	case twzerr.SecurityError:
		return gcodes.PermissionDenied
	}
	return gcodes.Unknown
}

func lookup[K comparable](m map[K]gcodes.Code, k K, def gcodes.Code) gcodes.Code {
	if c, ok := m[k]; ok {
		return c
	}
	return def
}

// ToStatus converts err into a status. Errors without a TwzError in their
// chain are sent as generic "other".
func ToStatus(err error) *gstatus.Status {
	if err == nil {
		return gstatus.New(gcodes.OK, "")
	}
	raw := twzerr.ToRaw(err)
	te := raw.Decode()
	st := gstatus.New(Code(te), err.Error())
	info := &errdetails.ErrorInfo{
		Reason: te.Category().String(),
		Domain: Domain,
		Metadata: map[string]string{
			RawKey: strconv.FormatUint(raw.Raw(), 16),
		},
	}
	if with, derr := st.WithDetails(info); derr == nil {
		return with
	}
	return st
}

// FromStatus recovers the TwzError a status was built from. Statuses from
// other sources are approximated from their code. An OK status yields nil.
func FromStatus(st *gstatus.Status) twzerr.TwzError {
	if st == nil || st.Code() == gcodes.OK {
		return nil
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != Domain {
			continue
		}
		if word, err := strconv.ParseUint(info.GetMetadata()[RawKey], 16, 64); err == nil {
			return twzerr.RawError(word).Decode()
		}
	}
	return fromCode(st.Code())
}

func fromCode(c gcodes.Code) twzerr.TwzError {
	switch c {
	case gcodes.Canceled:
		return twzerr.Interrupted
	case gcodes.InvalidArgument, gcodes.OutOfRange:
		return twzerr.InvalidArgument
	case gcodes.DeadlineExceeded:
		return twzerr.TimedOut
	case gcodes.NotFound:
		return twzerr.NotFound
	case gcodes.AlreadyExists:
		return twzerr.AlreadyExists
	case gcodes.PermissionDenied, gcodes.Unauthenticated:
		return twzerr.AccessDenied
	case gcodes.ResourceExhausted:
		return twzerr.OutOfResources
	case gcodes.Aborted:
		return twzerr.InProgress
	case gcodes.Unimplemented:
		return twzerr.NotSupported
	case gcodes.Internal:
		return twzerr.Internal
	case gcodes.Unavailable:
		return twzerr.Unavailable
	case gcodes.DataLoss:
		return twzerr.DataLoss
	}
	return twzerr.OtherError
}

// FromError is FromStatus for an error returned by a gRPC call. Errors that
// carry no status are passed to twzerr.FromError.
func FromError(err error) twzerr.TwzError {
	if err == nil {
		return nil
	}
	if st, ok := gstatus.FromError(err); ok {
		return FromStatus(st)
	}
	return twzerr.FromError(err)
}

// UnaryServerInterceptor turns handler errors that carry a TwzError into
// statuses. Other errors are returned as-is.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := twzerr.AsTwzError(err); !ok {
			return nil, err
		}
		return nil, ToStatus(err).Err()
	}
}

// UnaryClientInterceptor decodes failed calls back into TwzErrors, keeping
// the method name as context.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		err := invoker(ctx, method, req, reply, cc, opts...)
		if err == nil {
			return nil
		}
		return errors.Wrap(FromError(err), method)
	}
}
