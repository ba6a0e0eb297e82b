package config

import (
	"fmt"
	"strings"
)

// ConfigError describes one invalid or missing field of a process definition.
type ConfigError struct {
	Label   string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("process %q: %s", e.Label, e.Message)
	}
	return fmt.Sprintf("process %q: %s %s", e.Label, e.Field, e.Message)
}

// ValidationError collects every ConfigError found in a document.
type ValidationError struct {
	Errors []*ConfigError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("config validation errors:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}
