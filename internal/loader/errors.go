// Package loader reads project and profile YAML files into the portfolio data model.
package loader

import "fmt"

// ParseError is a file-scoped failure to read, decode or validate a data file.
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
