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

// Error classes. Package sentinels are bound to one of these via Classify,
// so callers can branch on the broad class without enumerating sentinels.
//
// Nothing here is retried internally: webhook senders retry on non-2xx
// responses, and a user restarts a failed authorization flow by hand.
var (
	ErrNotFound       = NewDomainError("NOT_FOUND", "Resource not found")
	ErrValidation     = NewDomainError("VALIDATION", "Missing or malformed request parameters")
	ErrAuthentication = NewDomainError("AUTHENTICATION", "Caller could not be authenticated")
	ErrStateMismatch  = NewDomainError("STATE_MISMATCH", "Authorization state or verifier mismatch")
	ErrUpstream       = NewDomainError("UPSTREAM", "Platform API returned a non-success response")
	ErrStorage        = NewDomainError("STORAGE", "Persistence layer rejected the write")
	ErrIntegrity      = NewDomainError("INTEGRITY", "Stored credential unusable")
)

// classifiedError is a package sentinel bound to an error class.
type classifiedError struct {
	class   *DomainError
	message string
}

func (e *classifiedError) Error() string { return e.message }

// Is lets errors.Is match the sentinel's class in addition to the
// sentinel itself.
func (e *classifiedError) Is(target error) bool {
	return target == error(e.class)
}

// Classify creates a package sentinel belonging to class. The sentinel
// matches itself by identity and its class through errors.Is.
func Classify(class *DomainError, message string) error {
	return &classifiedError{class: class, message: message}
}
