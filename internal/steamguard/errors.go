// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package steamguard

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against any *CodeError.
var (
	// ErrMissingSecret means the account has no shared secret configured.
	ErrMissingSecret = errors.New("shared secret not configured")

	// ErrInvalidSecret means the shared secret is not decodable Base64.
	ErrInvalidSecret = errors.New("invalid shared secret")

	// ErrComputation covers any unexpected failure while deriving the code.
	ErrComputation = errors.New("code computation failed")
)

// Kind classifies a code generation failure.
type Kind int

const (
	KindMissingSecret Kind = iota + 1
	KindInvalidSecret
	KindComputation
)

// String returns the short name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMissingSecret:
		return "missing_secret"
	case KindInvalidSecret:
		return "invalid_secret"
	case KindComputation:
		return "computation_error"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindMissingSecret:
		return ErrMissingSecret
	case KindInvalidSecret:
		return ErrInvalidSecret
	default:
		return ErrComputation
	}
}

// CodeError is the only error type returned by this package.
type CodeError struct {
	Kind Kind
	Err  error // underlying cause, nil for KindMissingSecret
}

func (e *CodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("steamguard: %v: %v", e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("steamguard: %v", e.Kind.sentinel())
}

// Is reports whether target is the sentinel for this error's kind.
func (e *CodeError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or 0 when err is nil or foreign.
func KindOf(err error) Kind {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

func missingSecret() error {
	return &CodeError{Kind: KindMissingSecret}
}

func invalidSecret(cause error) error {
	return &CodeError{Kind: KindInvalidSecret, Err: cause}
}

func computationError(cause error) error {
	return &CodeError{Kind: KindComputation, Err: cause}
}
