// Package config loads WizardKit manifests.
//
// Manifests are K8s-style YAML documents (apiVersion, kind, metadata, spec).
// Two kinds exist: Wizard, which describes the steps of a wizard and
// compiles to a *wizard.Config, and ServiceConfig, which configures the
// draft API server and its draft store. Every manifest is validated against
// an embedded JSON Schema before it is decoded, and ${VAR} references are
// expanded from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/AltairaLabs/WizardKit/runtime/schema"
	"github.com/AltairaLabs/WizardKit/runtime/wizard"
)

// WizardManifest is a kind: Wizard document.
type WizardManifest struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   metav1.ObjectMeta `yaml:"metadata,omitempty"`
	Spec       WizardSpec        `yaml:"spec"`
}

// WizardSpec describes a wizard. Schemas are inline JSON Schema documents.
type WizardSpec struct {
	// ID defaults to metadata.name.
	ID      string `yaml:"id,omitempty"`
	Type    string `yaml:"type,omitempty"`
	Version string `yaml:"version,omitempty"`

	Steps       []StepSpec                `yaml:"steps"`
	StepSchemas map[string]map[string]any `yaml:"stepSchemas,omitempty"`
	FinalSchema map[string]any            `yaml:"finalSchema,omitempty"`
	Persistence PersistenceSpec           `yaml:"persistence,omitempty"`
	InitialData map[string]any            `yaml:"initialData,omitempty"`
}

// StepSpec is one step of a WizardSpec.
type StepSpec struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Optional    bool           `yaml:"optional,omitempty"`
	Schema      map[string]any `yaml:"schema,omitempty"`
}

// PersistenceSpec holds draft settings. AutoSave defaults to true and
// AutoSaveInterval is a Go duration string.
type PersistenceSpec struct {
	AutoSave         *bool  `yaml:"autoSave,omitempty"`
	AutoSaveInterval string `yaml:"autoSaveInterval,omitempty"`
	MaxHistory       int    `yaml:"maxHistory,omitempty"`
}

// LoadWizard reads, validates and decodes a Wizard manifest file.
func LoadWizard(filename string) (*WizardManifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read wizard file: %w", err)
	}
	m, err := ParseWizard(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// ParseWizard validates and decodes a Wizard manifest.
func ParseWizard(data []byte) (*WizardManifest, error) {
	data = []byte(os.ExpandEnv(string(data)))

	// Schema validation covers structure, types and the kind value
	if err := ValidateManifest(data, KindWizard); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var m WizardManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse wizard manifest: %w", err)
	}
	if m.Spec.ID == "" {
		m.Spec.ID = m.Metadata.Name
	}
	if err := m.checkVersion(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *WizardManifest) checkVersion() error {
	if m.Spec.Version == "" {
		return nil
	}
	v, err := semver.NewVersion(m.Spec.Version)
	if err != nil {
		return fmt.Errorf("invalid spec.version %q: %w", m.Spec.Version, err)
	}
	c, err := semver.NewConstraint(WizardVersionConstraint)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("unsupported spec.version %s: must satisfy %s", v, WizardVersionConstraint)
	}
	return nil
}

// Build compiles the schemas and returns the wizard configuration.
func (m *WizardManifest) Build() (*wizard.Config, error) {
	spec := &m.Spec
	cfg := &wizard.Config{
		ID:          spec.ID,
		Type:        spec.Type,
		Steps:       make([]wizard.Step, 0, len(spec.Steps)),
		InitialData: normalize(spec.InitialData),
	}

	for _, s := range spec.Steps {
		compiled, err := compileSchema(s.Schema)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.ID, err)
		}
		cfg.Steps = append(cfg.Steps, wizard.Step{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Optional:    s.Optional,
			Schema:      compiled,
		})
	}

	if len(spec.StepSchemas) > 0 {
		cfg.StepSchemas = make(map[string]*schema.Schema, len(spec.StepSchemas))
		for id, doc := range spec.StepSchemas {
			compiled, err := compileSchema(doc)
			if err != nil {
				return nil, fmt.Errorf("stepSchemas[%s]: %w", id, err)
			}
			cfg.StepSchemas[id] = compiled
		}
	}

	final, err := compileSchema(spec.FinalSchema)
	if err != nil {
		return nil, fmt.Errorf("finalSchema: %w", err)
	}
	cfg.FinalSchema = final

	p, err := spec.Persistence.build()
	if err != nil {
		return nil, err
	}
	cfg.Persistence = p

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p PersistenceSpec) build() (wizard.Persistence, error) {
	out := wizard.Persistence{
		AutoSave:         true,
		AutoSaveInterval: wizard.DefaultAutoSaveInterval,
		MaxHistory:       wizard.DefaultMaxHistory,
	}
	if p.AutoSave != nil {
		out.AutoSave = *p.AutoSave
	}
	if p.AutoSaveInterval != "" {
		d, err := time.ParseDuration(p.AutoSaveInterval)
		if err != nil {
			return out, fmt.Errorf("invalid persistence.autoSaveInterval: %w", err)
		}
		out.AutoSaveInterval = d
	}
	if p.MaxHistory > 0 {
		out.MaxHistory = p.MaxHistory
	}
	return out, nil
}

func compileSchema(doc map[string]any) (*schema.Schema, error) {
	if doc == nil {
		return nil, nil
	}
	return schema.FromMap(normalize(doc))
}

// normalize round-trips YAML-decoded values through JSON so that numbers
// and nested maps have the shapes validators and draft stores expect.
func normalize(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return m
	}
	return out
}
