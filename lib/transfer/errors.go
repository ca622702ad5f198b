// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
)

// Kind is the outcome class of a transfer. The set is closed; callers
// switch on it to choose status codes, exit codes, or messages.
type Kind string

const (
	KindSuccess           Kind = "success"
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindPolicyViolation   Kind = "policy_violation"
	KindTransient         Kind = "transient"
	KindConsistencyFault  Kind = "consistency_fault"
)

// Kinds lists every Kind in a stable order.
var Kinds = []Kind{
	KindSuccess,
	KindValidation,
	KindNotFound,
	KindInsufficientFunds,
	KindPolicyViolation,
	KindTransient,
	KindConsistencyFault,
}

// Valid reports whether k is a member of the closed set.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Error is the only error type the engine returns. Reason is safe to
// show the caller; Err is the underlying cause and is for logs.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("transfer %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind exposes the kind to transports that cannot import this
// package's types.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// KindOf classifies err. Nil is KindSuccess. An error that does not
// wrap an *Error is reported as KindTransient.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var transferErr *Error
	if errors.As(err, &transferErr) {
		return transferErr.Kind
	}
	return KindTransient
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: cause}
}
