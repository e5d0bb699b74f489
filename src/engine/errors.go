package engine

import "errors"

var (
	ErrInvalidOrder   = errors.New("invalid order")
	ErrDuplicateOrder = errors.New("order id already resting")
)

type ValidationError struct {
	Field   string
	Message string
	// Err is an optional sentinel narrowing the failure, e.g. ErrDuplicateOrder.
	Err error
}

func (e *ValidationError) Error() string {
	return "Invalid order: " + e.Message
}

// Is lets callers match any validation failure with errors.Is(err, ErrInvalidOrder).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOrder
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
