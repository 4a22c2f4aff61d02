// Package schemas provides JSON Schema validation for the portfolio's YAML data files.
package schemas

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/analytics-portfolio/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Schema is a compiled JSON Schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses schema content. The name is only used in error messages.
func Compile(name, content string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, &SchemaLoadError{
			Path:    name,
			Message: "invalid schema",
			Cause:   err,
		}
	}
	return &Schema{name: name, schema: s}, nil
}

// Validate checks a decoded document (maps, slices and scalars as produced by yaml.v3) against
// the schema. It returns a *ValidationError listing every failing field.
func (s *Schema) Validate(doc any) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("document cannot be checked against %s: %w", s.name, err)
	}
	return resultError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return resultError(result)
}

func resultError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

var (
	projectOnce   sync.Once
	projectSchema *Schema
	projectErr    error

	profileOnce   sync.Once
	profileSchema *Schema
	profileErr    error
)

// ProjectSchema returns the compiled embedded project schema.
func ProjectSchema() (*Schema, error) {
	projectOnce.Do(func() {
		projectSchema, projectErr = Compile("project.schema.json", schemas.Project)
	})
	return projectSchema, projectErr
}

// ProfileSchema returns the compiled embedded profile schema.
func ProfileSchema() (*Schema, error) {
	profileOnce.Do(func() {
		profileSchema, profileErr = Compile("profile.schema.json", schemas.Profile)
	})
	return profileSchema, profileErr
}
