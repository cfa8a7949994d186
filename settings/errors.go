package settings

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError reports a setting rejected at construction time.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// IsConfigurationError reports whether err (or its cause) is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func invalid(field string, value any, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}
