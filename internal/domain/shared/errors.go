package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Matching and pricing errors
var (
	ErrNoMatch              = NewDomainError("NO_MATCH", "No candidate value matched the input text")
	ErrAmbiguousMatch       = NewDomainError("AMBIGUOUS_MATCH", "Multiple candidate values matched with no deterministic winner")
	ErrReferenceUnavailable = NewDomainError("REFERENCE_UNAVAILABLE", "Reference data source is unavailable")
	ErrInvalidPattern       = NewDomainError("INVALID_PATTERN", "Pattern text is empty or malformed")
	ErrUnpriceable          = NewDomainError("UNPRICEABLE", "No pricing rule, master price, or row price is available for the line")
)
