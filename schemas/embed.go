// Package schemas holds the JSON Schemas for the portfolio's YAML data files.
package schemas

import _ "embed"

// Project is the schema every project file must satisfy.
//
//go:embed project.schema.json
var Project string

// Profile is the schema for the optional profile file.
//
//go:embed profile.schema.json
var Profile string
