package application

import (
	"errors"
	"fmt"
)

type LinkErrorKind int

const (
	KindNotFound LinkErrorKind = iota + 1
	KindExpired
	KindPrerequisiteMissing
	KindUnsupportedSource
	KindStoreFailure
)

func (k LinkErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindPrerequisiteMissing:
		return "prerequisite_missing"
	case KindUnsupportedSource:
		return "unsupported_source"
	case KindStoreFailure:
		return "store_failure"
	}
	return "unknown"
}

// Sentinels for errors.Is; every LinkError matches the one for its Kind.
var (
	ErrCodeNotFound        = errors.New("link code not found")
	ErrCodeExpired         = errors.New("link code expired")
	ErrPrerequisiteMissing = errors.New("game account link required first")
	ErrUnsupportedSource   = errors.New("code cannot be redeemed from this side")
	ErrStoreFailure        = errors.New("identity store failure")
	ErrInvalidClaimant     = errors.New("claimant id is required")

	ErrAlreadyRunning = errors.New("reconciliation already running")
	ErrNotConfigured  = errors.New("not configured")
)

var kindSentinels = map[LinkErrorKind]error{
	KindNotFound:            ErrCodeNotFound,
	KindExpired:             ErrCodeExpired,
	KindPrerequisiteMissing: ErrPrerequisiteMissing,
	KindUnsupportedSource:   ErrUnsupportedSource,
	KindStoreFailure:        ErrStoreFailure,
}

type LinkError struct {
	Kind LinkErrorKind
	Code string
	Err  error
}

func newLinkError(kind LinkErrorKind, code string, err error) *LinkError {
	return &LinkError{Kind: kind, Code: code, Err: err}
}

func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("link %s: %s: %v", e.Code, e.Kind, e.Err)
	}
	return fmt.Sprintf("link %s: %s", e.Code, e.Kind)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

func (e *LinkError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// UserFacing reports whether the error is a recoverable user mistake rather
// than a system fault.
func (e *LinkError) UserFacing() bool {
	return e.Kind != KindStoreFailure
}

func KindOf(err error) LinkErrorKind {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindStoreFailure
}
