package types

// Severity levels for a Violation.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Violation represents a single problem found in the project data.
type Violation struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Details    string `json:"details"`
	ProjectKey string `json:"project_key,omitempty"`
	File       string `json:"file,omitempty"`
}

// Violations represents a collection of problems.
type Violations struct {
	Violations []Violation `json:"violations"`
}

// Add appends a violation.
func (v *Violations) Add(violation Violation) {
	v.Violations = append(v.Violations, violation)
}

// ErrorCount returns the number of error-severity violations.
func (v *Violations) ErrorCount() int {
	n := 0
	for _, violation := range v.Violations {
		if violation.Severity == SeverityError {
			n++
		}
	}
	return n
}

// HasErrors reports whether any violation is an error.
func (v *Violations) HasErrors() bool {
	return v.ErrorCount() > 0
}
