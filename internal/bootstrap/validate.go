package bootstrap

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"cybersentinel/pkg/models"
)

//go:embed schema.json
var schemaJSON []byte

var datasetSchema = gojsonschema.NewBytesLoader(schemaJSON)

// Validate checks raw against the dataset schema.
func Validate(raw []byte) error {
	result, err := gojsonschema.Validate(datasetSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		issues = append(issues, issue.String())
	}
	return fmt.Errorf("payload failed schema validation: %s", strings.Join(issues, "; "))
}

// Decode validates raw and decodes it into a dataset. Absent collections
// decode as empty slices.
func Decode(raw []byte) (*models.Dataset, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var d models.Dataset
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	d.Normalize()
	return &d, nil
}
