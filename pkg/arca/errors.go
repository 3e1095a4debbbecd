package arca

import (
	"fmt"
	"strings"
)

// The error taxonomy is deliberately fine-grained: a caller decides
// whether to retry (TransportError), re-authenticate (AuthenticationError),
// fix its input (ValidationError, ConfigurationError) or surface the
// authority's own words to an end user (RemoteRejection, VoucherRejected).
// Remote messages are authoritative and are never rewritten.

// ConfigurationError indicates missing or invalid credential material or
// client configuration.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError indicates malformed caller input, detected before any
// remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError indicates a network or transport failure reaching the
// remote authority. The outcome of the remote operation is unknown; a
// caller submitting vouchers must re-query before resubmitting.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthenticationError indicates the WSAA round trip failed, including an
// exhausted already-authenticated retry.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication: %s: %v", e.Reason, e.Err)
	}
	return "authentication: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ServiceError is a single code/message pair as reported by the
// authority, either as a top-level error or a per-voucher observation.
type ServiceError struct {
	Code int
	Msg  string
}

func (e ServiceError) String() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
}

// RemoteRejection indicates the authority returned a top-level error
// list. No voucher was authorized.
type RemoteRejection struct {
	Errors []ServiceError
}

func (e *RemoteRejection) Error() string {
	return "rejected by ARCA: " + joinServiceErrors(e.Errors)
}

// VoucherRejected indicates the authority processed the request but
// declined the specific voucher. The observations explain why, in the
// order the authority reported them.
type VoucherRejected struct {
	Observations []ServiceError
}

func (e *VoucherRejected) Error() string {
	return "voucher rejected: " + joinServiceErrors(e.Observations)
}

func joinServiceErrors(errs []ServiceError) string {
	parts := make([]string, len(errs))
	for i, se := range errs {
		parts[i] = se.String()
	}
	return strings.Join(parts, "; ")
}
