package service

import (
	"errors"

	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")
)

// Specific errors carry a client-facing message and unwrap to one of the
// common errors above, which decides the HTTP status.
var (
	ErrProjectNotFound        = &kindError{kind: ErrNotFound, msg: "project not found"}
	ErrStatusNotFound         = &kindError{kind: ErrNotFound, msg: "status not found"}
	ErrResponsibilityNotFound = &kindError{kind: ErrNotFound, msg: "responsibility not found"}
	ErrEscalationNotFound     = &kindError{kind: ErrNotFound, msg: "escalation not found"}
	ErrUserNotFound           = &kindError{kind: ErrNotFound, msg: "user not found"}
	ErrNotificationNotFound   = &kindError{kind: ErrNotFound, msg: "notification not found"}

	ErrDuplicateProjectCode = &kindError{kind: ErrConflict, msg: "a project with this code already exists"}
	ErrDuplicateStatusDate  = &kindError{kind: ErrConflict, msg: "a status for this project and date already exists"}
	ErrDuplicateUsername    = &kindError{kind: ErrConflict, msg: "a user with this username already exists"}
	ErrNoPreviousStatus     = &kindError{kind: ErrConflict, msg: "No previous status found"}
	ErrAlreadyResolved      = &kindError{kind: ErrConflict, msg: "escalation is already resolved"}

	ErrInvalidCredentials = &kindError{kind: ErrUnauthorized, msg: "no active account found with the given credentials"}
	ErrInvalidResetToken  = &kindError{kind: ErrInvalidInput, msg: "Invalid or expired token."}
	ErrResetTokenExpired  = &kindError{kind: ErrInvalidInput, msg: "Token has expired."}
	ErrIncorrectPassword  = &kindError{kind: ErrInvalidInput, msg: "Current password is incorrect."}
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// notFound translates gorm's missing-row error into the given service error
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
