package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWithSchema_Valid(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "listing.yaml"))
	require.NoError(t, err)

	result, err := ValidateWithSchema(data, KindWizard)
	require.NoError(t, err)
	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestValidateWithSchema_Invalid(t *testing.T) {
	data := []byte(`apiVersion: wizardkit.altairalabs.ai/v1alpha1
kind: Wizard
metadata:
  name: w
spec:
  steps:
    - title: no id
  persistence:
    maxHistory: 0
`)
	result, err := ValidateWithSchema(data, KindWizard)
	require.NoError(t, err)
	assert.False(t, result.Valid)

	hasField := func(prefix string) bool {
		for _, e := range result.Errors {
			if strings.HasPrefix(e.Field, prefix) {
				return true
			}
		}
		return false
	}
	assert.True(t, hasField("spec.steps.0"), "errors: %v", result.Errors)
	assert.True(t, hasField("spec.persistence.maxHistory"), "errors: %v", result.Errors)
}

func TestValidateWithSchema_BadYAML(t *testing.T) {
	_, err := ValidateWithSchema([]byte("kind: [unclosed"), KindWizard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateWithSchema_UnknownKind(t *testing.T) {
	_, err := ValidateWithSchema([]byte("kind: Arena"), Kind("Arena"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestValidateManifest_ErrorListsFields(t *testing.T) {
	err := ValidateManifest([]byte("apiVersion: x\nkind: Wizard\n"), KindWizard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard manifest does not match schema")
	assert.Contains(t, err.Error(), "  - ")
}

func TestSchemaValidationError_Error(t *testing.T) {
	e := SchemaValidationError{Field: "spec.steps", Description: "too short", Value: 0}
	assert.Equal(t, "spec.steps: too short (value: 0)", e.Error())

	e.Value = nil
	assert.Equal(t, "spec.steps: too short", e.Error())
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Kind
		wantErr bool
	}{
		{"wizard", "kind: Wizard\n", KindWizard, false},
		{"service", "kind: ServiceConfig\n", KindServiceConfig, false},
		{"unknown", "kind: Arena\n", "", true},
		{"missing", "spec: {}\n", "", true},
		{"invalid yaml", "kind: [", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKind([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
