// Package vaulterrors defines the error taxonomy shared by every rvault
// component. Every failure that crosses a package boundary is wrapped in
// an *Error carrying a Kind so callers can branch with errors.As instead
// of string matching.
package vaulterrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories from the core's
// error handling design: input, integrity, external, resource, or
// precondition failures.
type Kind int

const (
	// Input errors: the caller supplied something invalid.
	NotFound Kind = iota
	NotADirectory
	BadUid
	UnsupportedCipher
	MissingServer
	BadRecovery
	BadKey
	BadLength

	// Integrity errors: the on-disk or wire data failed verification.
	CorruptMetadata
	IncompatibleVersion
	AuthenticationFailed

	// External errors: a collaborator (server, filesystem) failed.
	NetworkError
	AuthFailed
	IoError

	// Resource errors: a local primitive could not complete.
	OutOfMemory
	RngFailure
	KdfFailure

	// Precondition errors: the caller violated a lifecycle invariant.
	AlreadyExists
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case NotADirectory:
		return "NotADirectory"
	case BadUid:
		return "BadUid"
	case UnsupportedCipher:
		return "UnsupportedCipher"
	case MissingServer:
		return "MissingServer"
	case BadRecovery:
		return "BadRecovery"
	case BadKey:
		return "BadKey"
	case BadLength:
		return "BadLength"
	case CorruptMetadata:
		return "CorruptMetadata"
	case IncompatibleVersion:
		return "IncompatibleVersion"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	case NetworkError:
		return "NetworkError"
	case AuthFailed:
		return "AuthFailed"
	case IoError:
		return "IoError"
	case OutOfMemory:
		return "OutOfMemory"
	case RngFailure:
		return "RngFailure"
	case KdfFailure:
		return "KdfFailure"
	case AlreadyExists:
		return "AlreadyExists"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across rvault package
// boundaries. Op names the failing operation (e.g. "vault.Open"); Err
// is the wrapped cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error wrapping err under kind.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AuthenticationFailedHint is the fixed diagnostic text returned
// alongside AuthenticationFailed: verification failure cannot
// distinguish a wrong passphrase from corruption, so both are reported
// identically.
const AuthenticationFailedHint = "verification failed: invalid passphrase?"
