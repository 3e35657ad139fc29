package config

import "fmt"

// ConfigurationError represents missing or invalid configuration. It is fatal and reported
// before any stage runs.
type ConfigurationError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}
