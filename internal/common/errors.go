package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	ErrGeneration        = errors.New("generation request failed")
	ErrMalformedResponse = errors.New("malformed generation response")
	ErrValidation        = errors.New("validation failed")
	ErrRegistry          = errors.New("registry request failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GenerationError is returned when the remote generation call fails or times out.
type GenerationError struct {
	Provider string
	Op       string
	Cause    error
}

func NewGenerationError(provider, op string, cause error) *GenerationError {
	return &GenerationError{Provider: provider, Op: op, Cause: cause}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s via %s: %v", e.Op, e.Provider, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// MalformedResponseError is returned when the generation output is not JSON or
// carries a token outside a closed enumeration.
type MalformedResponseError struct {
	Reason string
	Raw    string
	Cause  error
}

func NewMalformedResponseError(reason, raw string, cause error) *MalformedResponseError {
	return &MalformedResponseError{Reason: reason, Raw: raw, Cause: cause}
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Cause)
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// RegistryError is returned when a registry search, read or create fails.
type RegistryError struct {
	Op           string
	ResourceType string
	StatusCode   int
	Diagnostics  string
	Cause        error
}

func (e *RegistryError) Error() string {
	msg := fmt.Sprintf("registry %s %s", e.Op, e.ResourceType)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Diagnostics != "" {
		msg += ": " + e.Diagnostics
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *RegistryError) Unwrap() error { return e.Cause }

func (e *RegistryError) Is(target error) bool { return target == ErrRegistry }
