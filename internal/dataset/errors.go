// Package dataset loads small CSV tables and provides the reshaping the chart renderer needs.
package dataset

import "fmt"

// ColumnError is returned when a chart references a column the table does not have.
type ColumnError struct {
	Column    string
	Available []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q not found (available: %v)", e.Column, e.Available)
}

// ValueError is returned when a cell cannot be read as a number.
type ValueError struct {
	Column string
	Row    int
	Value  string
	Cause  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("column %q row %d: %q is not a number: %v", e.Column, e.Row, e.Value, e.Cause)
}

func (e *ValueError) Unwrap() error {
	return e.Cause
}
