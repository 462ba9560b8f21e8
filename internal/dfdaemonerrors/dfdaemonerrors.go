// Package dfdaemonerrors centralizes the RPC error taxonomy so call sites
// never hand-construct a codes.Code. Every constructor returns an error
// backed by *status.Status; callers unwrap via status.FromError when they
// need the code back.
package dfdaemonerrors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InvalidArgument reports that the request itself is malformed, e.g. a
// DownloadTask call missing its Download sub-message.
func InvalidArgument(format string, args ...any) error {
	return status.Error(codes.InvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound reports that the requested task or piece has no local record.
func NotFound(format string, args ...any) error {
	return status.Error(codes.NotFound, fmt.Sprintf(format, args...))
}

// Internal reports a local failure: a storage read, an id-generation
// step, or a content-length probe that failed for reasons the caller
// cannot address by retrying against a different peer.
func Internal(format string, args ...any) error {
	return status.Error(codes.Internal, fmt.Sprintf(format, args...))
}

// Unimplemented reports a reserved endpoint (UploadTask, DeleteTask) that
// is not yet backed by a real implementation.
func Unimplemented(format string, args ...any) error {
	return status.Error(codes.Unimplemented, fmt.Sprintf(format, args...))
}

// Canceled reports that the caller went away mid-stream.
func Canceled(format string, args ...any) error {
	return status.Error(codes.Canceled, fmt.Sprintf(format, args...))
}

// Code extracts the codes.Code carried by err, defaulting to codes.Unknown
// for errors that were never constructed through this package.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}

	return st.Code()
}
