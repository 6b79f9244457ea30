package domain

import (
	"sort"
	"strings"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// FieldErrors is a set of field-level validation failures raised by
// business rules that the request validator cannot express, such as
// cross-field date ordering.
type FieldErrors map[string]string

// Error implements the error interface
func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+f[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidationMessages maps validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required":     "This field is required",
	"email":        "Must be a valid email address",
	"max":          "Exceeds maximum length",
	"min":          "Below minimum length",
	"gte":          "Must be greater than or equal to minimum value",
	"lte":          "Must be less than or equal to maximum value",
	"uuid":         "Must be a valid UUID",
	"oneof":        "Must be one of the allowed values",
	"datetime":     "Must be a date in YYYY-MM-DD format",
	"project_code": "Code must match the pattern 100000000<number>-01S, e.g. 1000000002-01S",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeInternal     = "internal_error"
)
