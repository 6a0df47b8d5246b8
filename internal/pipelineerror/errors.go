// Package pipelineerror defines the error taxonomy shared by the loader, the
// transformer and the report writer.
package pipelineerror

import "fmt"

// ConfigError represents missing or invalid configuration. It is raised at
// construction time and never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// TransportError represents a failed page request against the remote source.
type TransportError struct {
	Table  string
	Offset int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s at offset %d: %v", e.Table, e.Offset, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DataShapeError represents input that does not have the shape a stage
// expects: a missing column or a value that cannot be parsed.
type DataShapeError struct {
	Stage  string
	Column string
	Value  string
	Reason string
}

func (e *DataShapeError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: column %q value %q: %s", e.Stage, e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: column %q: %s", e.Stage, e.Column, e.Reason)
}

// MissingColumn builds the DataShapeError for an absent column.
func MissingColumn(stage, column string) *DataShapeError {
	return &DataShapeError{Stage: stage, Column: column, Reason: "column not found"}
}
