package common

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ValidationError represents a single schema or field constraint violation.
type ValidationError struct {
	Field      string
	Constraint string
	Value      interface{}
	Message    string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for field '%s' (%s) with value '%v': %s", e.Field, e.Constraint, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' (%s): %s", e.Field, e.Constraint, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validator provides validation utilities
type Validator struct {
	errors []*ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]*ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []*ValidationError {
	return v.errors
}

// Error returns the first collected violation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return v.errors[0]
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Constraint: "required", Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Constraint: "required", Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Constraint: "required", Value: value, Message: "is required"}
		}
	}
	return nil
}

// CalendarDate requires a YYYY-MM-DD string naming a real day.
func CalendarDate(fieldName string, value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Constraint: "type", Value: value, Message: "must be a string"}
	}
	if _, err := time.Parse(DateLayout, str); err != nil {
		return &ValidationError{
			Field:      fieldName,
			Constraint: "calendarDate",
			Value:      value,
			Message:    "must be a calendar date in YYYY-MM-DD format",
		}
	}
	return nil
}

// NotEqual rejects a reserved sentinel value.
func NotEqual(sentinel string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		if str, ok := value.(string); ok && str == sentinel {
			return &ValidationError{
				Field:      fieldName,
				Constraint: "not",
				Value:      value,
				Message:    fmt.Sprintf("must not be %q", sentinel),
			}
		}
		return nil
	}
}
