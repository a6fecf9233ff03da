package recipes

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel failures exposed to callers for stable status mapping. Anything
// else returned by the service is an internal ServiceError.
var (
	// ErrNotFound covers both absent recipes and recipes the viewer may not
	// see. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("recipes: not found")
	// ErrForbidden indicates the recipe is visible but the requester lacks
	// the required relationship to it.
	ErrForbidden = errors.New("recipes: forbidden")
	// ErrConflict indicates a unique-constraint race the caller may retry.
	ErrConflict = errors.New("recipes: conflict")
)

// ValidationError carries the complete list of hard-rule violations for a
// rejected write. Soft warnings never travel through this type.
type ValidationError struct {
	Findings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recipes: validation failed: %s", strings.Join(e.Findings, "; "))
}

// ServiceError wraps internal failures with a stable dotted operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
