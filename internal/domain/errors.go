// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "errors"

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation  ErrorType = iota // Input validation errors
	ErrorTypeNotFound                     // Record not found in the store
	ErrorTypeConflict                     // Revision conflict on update
	ErrorTypeInternal                     // Unexpected internal failures
	ErrorTypeUnavailable                  // Store or broker unavailable

	// Reconciliation taxonomy.
	ErrorTypeConfigMissing      // Installation or activity configuration absent (fatal for the run)
	ErrorTypeMeetingDataMissing // Meeting metadata absent or inconsistent (cohort skipped)
	ErrorTypeInvalidDuration    // Computed session duration is not positive (cohort skipped)
	ErrorTypeIdentityUnresolved // Participant cannot be mapped to a roster user (participant dropped)
	ErrorTypeSourceUnavailable  // Raw-data source failed for a day (day force-advanced)
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeValidation:         "validation",
	ErrorTypeNotFound:           "not_found",
	ErrorTypeConflict:           "conflict",
	ErrorTypeInternal:           "internal",
	ErrorTypeUnavailable:        "unavailable",
	ErrorTypeConfigMissing:      "config_missing",
	ErrorTypeMeetingDataMissing: "meeting_data_missing",
	ErrorTypeInvalidDuration:    "invalid_duration",
	ErrorTypeIdentityUnresolved: "identity_unresolved",
	ErrorTypeSourceUnavailable:  "source_unavailable",
}

// String returns the stable name used in logs and audit records.
func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// IsErrorType reports whether err carries the given semantic type.
func IsErrorType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	return GetErrorType(err) == t
}

// IsRecoverable reports whether a failed day may be force-advanced.
// Only a source outage qualifies; everything else leaves the cursor untouched.
func IsRecoverable(err error) bool {
	return IsErrorType(err, ErrorTypeSourceUnavailable)
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

func NewConfigMissingError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConfigMissing, Message: message, Err: errors.Join(err...)}
}

func NewMeetingDataMissingError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeMeetingDataMissing, Message: message, Err: errors.Join(err...)}
}

func NewInvalidDurationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInvalidDuration, Message: message, Err: errors.Join(err...)}
}

func NewIdentityUnresolvedError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeIdentityUnresolved, Message: message, Err: errors.Join(err...)}
}

func NewSourceUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeSourceUnavailable, Message: message, Err: errors.Join(err...)}
}
