package schema

import (
	"fmt"
	"strings"
)

// ValidationError reports a value that does not fit a port's descriptor.
type ValidationError struct {
	Port   string     // Port id, empty for nested elements
	Want   Descriptor // Expected descriptor
	Reason string     // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("expected %s: %s", e.Want, e.Reason)
	}
	return fmt.Sprintf("port %q: expected %s: %s", e.Port, e.Want, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
