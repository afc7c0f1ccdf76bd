package config

import (
	"errors"
	"fmt"
)

// ErrDecode is returned when merged settings do not fit the schema.
var ErrDecode = errors.New("config: cannot decode settings")

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the setting path that failed validation.
	Path string
	// Message describes the validation error.
	Message string
	// Value is the invalid value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}
