package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNonConvergence is matched by every AllocationNonConvergenceError.
	ErrNonConvergence = errors.New("allocation did not converge")
)

// InvalidInputError reports the first validation rule a request violates.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// AllocationNonConvergenceError is returned when the leftover distribution
// hits its iteration ceiling before the remaining funds drop below the
// cheapest grid price.
type AllocationNonConvergenceError struct {
	Iterations int
	Remaining  float64
}

func (e *AllocationNonConvergenceError) Error() string {
	return fmt.Sprintf("leftover distribution stopped after %d iterations with %.2f remaining", e.Iterations, e.Remaining)
}

func (e *AllocationNonConvergenceError) Is(target error) bool {
	return target == ErrNonConvergence
}
