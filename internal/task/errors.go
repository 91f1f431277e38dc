package task

import "fmt"

// ConfigError reports a bad or missing option before any execution happens.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("task config: %s", e.Reason)
	}
	return fmt.Sprintf("task config: %s: %s", e.Key, e.Reason)
}

// NewConfigError builds a ConfigError for the given option key.
func NewConfigError(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a structural mismatch between a working input and
// its reference, naming the offending section and key.
type ValidationError struct {
	Section string
	Key     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s key %s is inconsistent", e.Section, e.Key)
}

// ToleranceError reports a coordinate differing from the reference beyond the
// allowed absolute tolerance.
type ToleranceError struct {
	Atom      int
	Axis      int
	Want, Got float64
	Tolerance float64
}

func (e *ToleranceError) Error() string {
	return fmt.Sprintf("coordinate mismatch at atom %d axis %d: got %g, want %g (tolerance %g)",
		e.Atom, e.Axis, e.Got, e.Want, e.Tolerance)
}
