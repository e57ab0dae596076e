package model

import "fmt"

// ValidationError marks a single malformed item that should be logged and
// dropped without failing the batch or job it arrived in (spec §7).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
