package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		want string
	}{
		{"bare", ErrTransportClosed, "[SM-NET-5002] transport closed"},
		{"literal details", ErrTransport.WithDetails("socket already open"), "[SM-NET-5001] transport error: socket already open"},
		{"formatted details", ErrChannel.WithDetails("channel %d is not registered", 4), "[SM-CHN-4001] channel not registered: channel 4 is not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDomainError_CopiesLeaveSentinelIntact(t *testing.T) {
	_ = ErrTransport.WithDetails("x").WithCause(errors.New("y"))
	if ErrTransport.Details != "" || ErrTransport.Cause != nil {
		t.Errorf("sentinel mutated: %+v", ErrTransport)
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same code different message", NewDomainError("SM-TEST-1000", "a"), NewDomainError("SM-TEST-1000", "b"), true},
		{"different code", NewDomainError("SM-TEST-1000", "a"), NewDomainError("SM-TEST-1001", "a"), false},
		{"non-domain target", ErrTransport, errors.New("transport error"), false},
		{"decorated sentinel", ErrFrameVersion.WithDetails("version 2"), ErrFrameVersion, true},
		{"wrapped by fmt", fmt.Errorf("decode: %w", ErrMalformedSnapshot.WithDetails("short")), ErrMalformedSnapshot, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("underlying cause")
	err := ErrTransport.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is should still match by code")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"domain", ErrGeometryMismatch, ErrGeometryMismatch.Code},
		{"wrapped", fmt.Errorf("apply: %w", ErrMalformedSnapshot.WithDetails("short")), "SM-SNP-4001"},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorCodesUnique(t *testing.T) {
	all := []*DomainError{
		ErrTransport, ErrTransportClosed, ErrResolution,
		ErrFrameIntegrity, ErrFrameVersion,
		ErrMalformedSnapshot, ErrGeometryMismatch,
		ErrChannel, ErrChannelTableFull,
		ErrInvalidArgument,
	}

	seen := make(map[string]bool)
	for _, e := range all {
		if seen[e.Code] {
			t.Errorf("duplicate error code %s", e.Code)
		}
		seen[e.Code] = true
	}
}
