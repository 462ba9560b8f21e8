package dfdaemonerrors

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestConstructorsCarryExpectedCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"InvalidArgument", InvalidArgument("bad %s", "request"), codes.InvalidArgument},
		{"NotFound", NotFound("missing %d", 5), codes.NotFound},
		{"Internal", Internal("boom"), codes.Internal},
		{"Unimplemented", Unimplemented("not yet"), codes.Unimplemented},
		{"Canceled", Canceled("gone"), codes.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOnNilIsOK(t *testing.T) {
	if got := Code(nil); got != codes.OK {
		t.Errorf("Code(nil) = %v, want OK", got)
	}
}

func TestCodeOnForeignErrorIsUnknown(t *testing.T) {
	if got := Code(errors.New("plain error")); got != codes.Unknown {
		t.Errorf("Code() on plain error = %v, want Unknown", got)
	}
}
