package server

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrProjectNotFound indicates no project has the requested key
type ErrProjectNotFound struct {
	Key string
}

func (e *ErrProjectNotFound) Error() string {
	return fmt.Sprintf("project not found: %s", e.Key)
}

// ErrResourceNotFound indicates a chart, download or diagram the project does not declare
type ErrResourceNotFound struct {
	Key      string
	Resource string
	Index    int
}

func (e *ErrResourceNotFound) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s not found for project %s", e.Resource, e.Key)
	}
	return fmt.Sprintf("%s %d not found for project %s", e.Resource, e.Index, e.Key)
}

// ErrFileUnavailable indicates a declared file that is not on disk yet
type ErrFileUnavailable struct {
	Path string
}

func (e *ErrFileUnavailable) Error() string {
	return fmt.Sprintf("file not available: %s", e.Path)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRenderFailed indicates a chart or diagram that could not be drawn
type ErrRenderFailed struct {
	What  string
	Cause error
}

func (e *ErrRenderFailed) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.What, e.Cause)
}

func (e *ErrRenderFailed) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound    *ErrProjectNotFound
		noResource  *ErrResourceNotFound
		unavailable *ErrFileUnavailable
		invalid     *ErrValidation
		render      *ErrRenderFailed
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &noResource), errors.As(err, &unavailable):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &render):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
