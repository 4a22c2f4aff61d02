package schemas

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

var schemaFiles = []string{
	"project.schema.json",
	"profile.schema.json",
}

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, schemaFile := range schemaFiles {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := os.ReadFile(schemaFile)
			require.NoError(t, err, "should be able to read schema file")

			var v map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON: %s", schemaFile)

			_, hasSchema := v["$schema"]
			_, hasProps := v["properties"]
			assert.True(t, hasSchema && hasProps, "schema should declare $schema and properties")
		})
	}
}

func TestEmbeddedSchemas_Compile(t *testing.T) {
	for name, content := range map[string]string{"project": Project, "profile": Profile} {
		t.Run(name, func(t *testing.T) {
			_, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
			assert.NoError(t, err)
		})
	}
}

func TestProjectSchema_AcceptsBothEdgeForms(t *testing.T) {
	doc := `{
		"key": "pipeline",
		"title": "Pipeline",
		"tags": null,
		"diagram": {
			"type": "flow",
			"nodes": ["Input", {"name": "Output", "kind": "output"}],
			"edges": [["Input", "Output"], {"from": "Input", "to": "Output"}]
		}
	}`

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(Project), gojsonschema.NewStringLoader(doc))
	require.NoError(t, err)
	assert.True(t, result.Valid(), "%v", result.Errors())
}

func TestProjectSchema_RejectsUnknownTopLevelField(t *testing.T) {
	doc := `{"key": "pipeline", "title": "Pipeline", "visual": []}`

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(Project), gojsonschema.NewStringLoader(doc))
	require.NoError(t, err)
	assert.False(t, result.Valid())
}
