// Package rendering renders the portfolio's HTML pages from embedded templates.
package rendering

import "fmt"

// TemplateError is a page template that failed to parse or execute. Page is empty for the
// shared layout.
type TemplateError struct {
	Page    string
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	msg := e.Message
	if e.Page != "" {
		msg = e.Page + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("template error: %s", msg)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError represents a general rendering failure
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
