package shared

import "errors"

// ErrorKind classifies a domain error for callers that need to decide
// between retrying, correcting input, or treating the failure as a bug.
type ErrorKind string

const (
	// ErrKindValidation marks malformed input rejected before any persistence.
	ErrKindValidation ErrorKind = "VALIDATION"
	// ErrKindConflict marks a duplicate-request resolution (e.g. idempotency replay).
	ErrKindConflict ErrorKind = "CONFLICT"
	// ErrKindNotFound marks a missing resource.
	ErrKindNotFound ErrorKind = "NOT_FOUND"
	// ErrKindBusinessRule marks a well-formed request forbidden by business state.
	ErrKindBusinessRule ErrorKind = "BUSINESS_RULE"
	// ErrKindInvariantViolation marks an attempted operation that breaks a hard
	// invariant; callers should treat this as a programming error.
	ErrKindInvariantViolation ErrorKind = "INVARIANT_VIOLATION"
	// ErrKindConcurrency marks a mutual-exclusion acquisition failure; recoverable
	// by retry with backoff.
	ErrKindConcurrency ErrorKind = "CONCURRENCY"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a more specific message.
// The kind and code are preserved so errors.Is still matches the sentinel.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: message}
}

// Is allows errors.Is to match sentinel errors sharing the same code.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
}

// NewDomainError creates a new domain error with an explicit kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(ErrKindValidation, code, message)
}

// NewBusinessRuleError creates a business-rule error
func NewBusinessRuleError(code, message string) *DomainError {
	return NewDomainError(ErrKindBusinessRule, code, message)
}

// NewInvariantViolation creates an invariant-violation error
func NewInvariantViolation(code, message string) *DomainError {
	return NewDomainError(ErrKindInvariantViolation, code, message)
}

// NewConcurrencyError creates a concurrency error
func NewConcurrencyError(code, message string) *DomainError {
	return NewDomainError(ErrKindConcurrency, code, message)
}

// KindOf returns the kind of a domain error, or "" for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == ErrKindValidation }

// IsBusinessRule reports whether err is a business-rule error.
func IsBusinessRule(err error) bool { return KindOf(err) == ErrKindBusinessRule }

// IsInvariantViolation reports whether err is an invariant violation.
func IsInvariantViolation(err error) bool { return KindOf(err) == ErrKindInvariantViolation }

// IsConcurrency reports whether err is a concurrency error.
func IsConcurrency(err error) bool { return KindOf(err) == ErrKindConcurrency }

// Common domain errors
var (
	ErrNotFound            = NewDomainError(ErrKindNotFound, "NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError(ErrKindConflict, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError(ErrKindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(ErrKindConcurrency, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(ErrKindBusinessRule, "INVALID_STATE", "Operation not allowed in current state")
	ErrLedgerImmutable     = NewDomainError(ErrKindInvariantViolation, "LEDGER_ENTRY_IMMUTABLE", "Ledger entry immutable")
	ErrInsufficientLayers  = NewDomainError(ErrKindBusinessRule, "INSUFFICIENT_LAYERS", "Insufficient valuation layers")
)
