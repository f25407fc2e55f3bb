// Package domain defines the core domain models for SnapMesh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError is an error carrying a stable SM-<AREA>-<NNNN> code. Two
// DomainErrors match under errors.Is when their codes are equal, so the
// sentinels below can be decorated with WithDetails or WithCause and
// still be tested for.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	msg := "[" + e.Code + "] " + e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Cause }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError returns a sentinel with no details or cause.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy with details appended to the message.
func (e *DomainError) WithDetails(format string, args ...any) *DomainError {
	c := *e
	if len(args) > 0 {
		c.Details = fmt.Sprintf(format, args...)
	} else {
		c.Details = format
	}
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// ErrorCode returns the code of the first DomainError in err's chain, or
// "" if there is none.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Transport Errors (NET)
// ============================================================================

var (
	// ErrTransport indicates a socket could not be created, bound or used.
	ErrTransport = NewDomainError("SM-NET-5001", "transport error")

	// ErrTransportClosed indicates an operation on a closed transport.
	ErrTransportClosed = NewDomainError("SM-NET-5002", "transport closed")

	// ErrResolution indicates a server address could not be parsed or resolved.
	ErrResolution = NewDomainError("SM-NET-4001", "address resolution failed")
)

// ============================================================================
// Frame Errors (FRM)
// ============================================================================

var (
	// ErrFrameIntegrity indicates a checksum mismatch or an undersized frame.
	ErrFrameIntegrity = NewDomainError("SM-FRM-4001", "frame integrity check failed")

	// ErrFrameVersion indicates a frame from an incompatible protocol version.
	ErrFrameVersion = NewDomainError("SM-FRM-4002", "unsupported frame version")
)

// ============================================================================
// Snapshot Errors (SNP)
// ============================================================================

var (
	// ErrMalformedSnapshot indicates an inconsistent or oversized declared length.
	ErrMalformedSnapshot = NewDomainError("SM-SNP-4001", "malformed snapshot")

	// ErrGeometryMismatch indicates the snapshot carries more geometry than
	// the local level has, i.e. host and client disagree on the level.
	ErrGeometryMismatch = NewDomainError("SM-SNP-4002", "geometry mismatch")
)

// ============================================================================
// Channel Errors (CHN)
// ============================================================================

var (
	// ErrChannel indicates an operation on an unregistered or invalid channel.
	ErrChannel = NewDomainError("SM-CHN-4001", "channel not registered")

	// ErrChannelTableFull indicates no free channel slot is left.
	ErrChannelTableFull = NewDomainError("SM-CHN-4002", "no free channels")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SM-ARG-1001", "invalid argument")
)
