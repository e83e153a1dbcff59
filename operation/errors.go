/*
errors.go - Centralized error types for the operation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Business rule violations (client-fixable)
  2. State errors      - Transitions not permitted from the current status
  3. Lookup errors     - Payment/deal/operation ids that do not resolve
  4. Dependency errors - Voucher/ledger writes that failed during execute

USAGE:
  The API layer maps categories to HTTP status codes:

    if errors.Is(err, operation.ErrInvalidState) {
        // 409 Conflict
    }

SEE ALSO:
  - validate.go: Produces the violations carried by ValidationError
  - service.go: Produces state/lookup/dependency errors
*/
package operation

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a request fails eligibility rules.
	// The concrete *ValidationError carries the individual violations.
	ErrValidation = errors.New("operation validation failed")

	// ErrInvalidState is returned when a transition is attempted from a
	// status that does not permit it (e.g. execute on REQUESTED).
	ErrInvalidState = errors.New("invalid operation state")

	// ErrNotFound is returned when a payment, deal, or operation id does
	// not resolve. Kept distinct from validation so the UI can prompt
	// re-selection instead of showing a field error.
	ErrNotFound = errors.New("not found")

	// ErrDependency is returned when voucher creation or a downstream
	// ledger write fails during execute. Retryable: the operation remains
	// APPROVED.
	ErrDependency = errors.New("dependency failure")

	// ErrConcurrentModification is returned by stores when a conditional
	// status write loses a race.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports why a request is not submittable.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	codes := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		codes[i] = v.Code
	}
	return fmt.Sprintf("operation validation failed: %s", strings.Join(codes, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError reports a forbidden lifecycle transition.
type InvalidStateError struct {
	OperationID OperationID
	Current     Status
	Attempted   Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation %s: cannot transition %s -> %s",
		e.OperationID, e.Current, e.Attempted)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NotFoundError reports which entity kind and id failed to resolve.
type NotFoundError struct {
	Kind string // "payment", "deal", "operation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DependencyError wraps a failed collaborator call during execute.
type DependencyError struct {
	OperationID OperationID
	Cause       error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("operation %s: dependency failure: %v", e.OperationID, e.Cause)
}

func (e *DependencyError) Unwrap() error { return ErrDependency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDependency) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
