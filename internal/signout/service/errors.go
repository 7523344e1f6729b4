package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
)

var (
	ErrUnknownBoard   = errors.New("unknown board")
	ErrAdminDisabled  = errors.New("admin password is not configured")
	ErrAdminForbidden = errors.New("admin password is incorrect")
)

// ValidationError is a missing or malformed field on an intent.  No ledger
// I/O happens before it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is matches another *ValidationError with the same Field, or any
// validation error when the target's Field is empty.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && (t.Field == "" || t.Field == e.Field)
}

// ErrValidation matches every ValidationError.
var ErrValidation = &ValidationError{}

// AuthError is a credential gate rejection.
type AuthError struct {
	Actor  string
	Reason credential.Outcome
}

func (e *AuthError) Error() string {
	switch e.Reason {
	case credential.UnknownActor:
		return fmt.Sprintf("%q is not on the staff roster", e.Actor)
	case credential.InactiveActor:
		return fmt.Sprintf("%q is not active on the staff roster", e.Actor)
	default:
		return fmt.Sprintf("wrong code for %q", e.Actor)
	}
}

// Is matches another *AuthError with the same Reason (zero matches any).
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && (t.Reason == 0 || t.Reason == e.Reason)
}

var (
	ErrAuth          = &AuthError{}
	ErrUnknownActor  = &AuthError{Reason: credential.UnknownActor}
	ErrInactiveActor = &AuthError{Reason: credential.InactiveActor}
	ErrWrongCode     = &AuthError{Reason: credential.WrongCode}
)

// ConflictReason says why a transition is illegal in the current state.
type ConflictReason string

const (
	ReasonAlreadyOut    ConflictReason = "already_out"
	ReasonAlreadyIn     ConflictReason = "already_in"
	ReasonPoolExhausted ConflictReason = "pool_exhausted"
)

// ConflictError is a state-machine rejection.  Nothing was written.
type ConflictError struct {
	Board   string
	Subject string
	Reason  ConflictReason
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReasonAlreadyOut:
		return fmt.Sprintf("%s is already signed out", e.Subject)
	case ReasonAlreadyIn:
		if e.Subject == "" {
			return "nothing is signed out"
		}
		return fmt.Sprintf("%s is not signed out", e.Subject)
	case ReasonPoolExhausted:
		return fmt.Sprintf("no %s available: all are signed out", e.Board)
	default:
		return fmt.Sprintf("conflict on %s", e.Subject)
	}
}

// Is matches another *ConflictError with the same Reason (empty matches
// any).
func (e *ConflictError) Is(target error) bool {
	t, ok := target.(*ConflictError)
	return ok && (t.Reason == "" || t.Reason == e.Reason)
}

var (
	ErrConflict      = &ConflictError{}
	ErrAlreadyOut    = &ConflictError{Reason: ReasonAlreadyOut}
	ErrAlreadyIn     = &ConflictError{Reason: ReasonAlreadyIn}
	ErrPoolExhausted = &ConflictError{Reason: ReasonPoolExhausted}
)

// StoreError is an I/O failure talking to the ledger or roster.  It is
// retryable; a failed write commits nothing.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	_, ok := target.(*StoreError)
	return ok
}

// ErrStore matches every StoreError.
var ErrStore = &StoreError{}

// SchemaDriftWarning reports columns the header guard had to add.  It
// never fails an operation.
type SchemaDriftWarning struct {
	Ledger string
	Added  []string
}

func (w *SchemaDriftWarning) Error() string {
	return fmt.Sprintf("ledger %s was missing columns: %s", w.Ledger, strings.Join(w.Added, ", "))
}
