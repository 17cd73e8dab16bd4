// Package engine drives the dependency provisioning loop: probing the
// registry, partitioning missing packages by distribution, gating every
// mutating step behind explicit consent, and executing batch installs until
// the host is satisfied or the user opts out.
package engine

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a provisioning failure for recovery logic.
type ErrorClass string

const (
	// ErrorClassUnsupported indicates the detected platform is outside the
	// supported set. The flow refuses to proceed past initial checks.
	ErrorClassUnsupported ErrorClass = "unsupported"

	// ErrorClassDeclined indicates the user declined to continue on an
	// unrecommended but supported environment.
	ErrorClassDeclined ErrorClass = "declined"

	// ErrorClassInstallFailed indicates a pre-install or install command
	// failed. Fatal to the provisioning attempt; partial application is an
	// accepted limitation and is not retried automatically.
	ErrorClassInstallFailed ErrorClass = "install_failed"

	// ErrorClassInterrupted indicates user cancellation at a blocking
	// prompt or command wait. Each enclosing level chooses its own
	// recovery policy.
	ErrorClassInterrupted ErrorClass = "interrupted"
)

// ProvisionError is a classified provisioning failure.
type ProvisionError struct {
	Class   ErrorClass
	Message string
	Package string
	Err     error
}

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Package != "" {
		msg += fmt.Sprintf(" (package=%s)", e.Package)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// WithPackage adds package context to the error.
func (e *ProvisionError) WithPackage(name string) *ProvisionError {
	e.Package = name
	return e
}

// NewUnsupportedError creates an unsupported-environment error.
func NewUnsupportedError(message string) *ProvisionError {
	return &ProvisionError{Class: ErrorClassUnsupported, Message: message}
}

// NewDeclinedError creates a user-declined error.
func NewDeclinedError(message string) *ProvisionError {
	return &ProvisionError{Class: ErrorClassDeclined, Message: message}
}

// NewInstallFailedError creates a fatal installation error.
func NewInstallFailedError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ErrorClassInstallFailed, Message: message, Err: err}
}

// NewInterruptedError creates a user-interruption error.
func NewInterruptedError(message string, err error) *ProvisionError {
	return &ProvisionError{Class: ErrorClassInterrupted, Message: message, Err: err}
}

func hasClass(err error, class ErrorClass) bool {
	var e *ProvisionError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// IsUnsupported reports whether err is an unsupported-environment error.
func IsUnsupported(err error) bool { return hasClass(err, ErrorClassUnsupported) }

// IsDeclined reports whether err is a user-declined error.
func IsDeclined(err error) bool { return hasClass(err, ErrorClassDeclined) }

// IsInstallFailed reports whether err is a fatal installation error.
func IsInstallFailed(err error) bool { return hasClass(err, ErrorClassInstallFailed) }

// IsInterrupted reports whether err is a user-interruption error.
func IsInterrupted(err error) bool { return hasClass(err, ErrorClassInterrupted) }
