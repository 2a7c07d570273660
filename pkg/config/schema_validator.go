package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// SchemaBaseURL is the base URL of the WizardKit manifest schemas.
const SchemaBaseURL = "https://wizardkit.altairalabs.ai/schemas/" + SchemaVersion

const errorFormat = "  - %s"

//go:embed schemas/*.json
var schemaFS embed.FS

// Kind is the kind field of a manifest.
type Kind string

const (
	KindWizard        Kind = "Wizard"
	KindServiceConfig Kind = "ServiceConfig"
)

func (k Kind) schemaFile() string {
	return "schemas/" + strings.ToLower(string(k)) + ".json"
}

// SchemaValidationError represents a validation error from JSON schema validation
type SchemaValidationError struct {
	Field       string
	Description string
	Value       interface{}
}

// Error implements the error interface
func (e SchemaValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Description, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// SchemaValidationResult contains the results of schema validation
type SchemaValidationResult struct {
	Valid  bool
	Errors []SchemaValidationError
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[Kind]*gojsonschema.Schema{}
)

func loadSchema(kind Kind) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[kind]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile(kind.schemaFile())
	if err != nil {
		return nil, fmt.Errorf("no schema for kind %q", kind)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", kind, err)
	}
	schemaCache[kind] = s
	return s, nil
}

// ValidateWithSchema validates YAML data against the embedded schema of kind.
func ValidateWithSchema(yamlData []byte, kind Kind) (*SchemaValidationResult, error) {
	// Convert YAML to JSON for schema validation
	var data interface{}
	if err := yaml.Unmarshal(yamlData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to JSON: %w", err)
	}

	schema, err := loadSchema(kind)
	if err != nil {
		return nil, err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	validationResult := &SchemaValidationResult{
		Valid:  result.Valid(),
		Errors: make([]SchemaValidationError, 0),
	}

	if !result.Valid() {
		for _, err := range result.Errors() {
			validationResult.Errors = append(validationResult.Errors, SchemaValidationError{
				Field:       err.Field(),
				Description: err.Description(),
				Value:       err.Value(),
			})
		}
	}

	return validationResult, nil
}

// ValidateManifest validates a manifest against the schema of its kind.
func ValidateManifest(yamlData []byte, kind Kind) error {
	result, err := ValidateWithSchema(yamlData, kind)
	if err != nil {
		return err
	}

	if !result.Valid {
		var errorMessages []string
		for _, e := range result.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf(errorFormat, e.Error()))
		}
		return fmt.Errorf("%s manifest does not match schema:\n%s",
			strings.ToLower(string(kind)), strings.Join(errorMessages, "\n"))
	}

	return nil
}

// DetectKind reads the kind field of a manifest.
func DetectKind(yamlData []byte) (Kind, error) {
	var data map[string]interface{}
	if err := yaml.Unmarshal(yamlData, &data); err != nil {
		return "", fmt.Errorf("failed to parse YAML: %w", err)
	}

	if kind, ok := data["kind"].(string); ok {
		switch Kind(kind) {
		case KindWizard, KindServiceConfig:
			return Kind(kind), nil
		}
	}

	return "", fmt.Errorf("unable to detect configuration type: missing or unknown 'kind' field")
}
