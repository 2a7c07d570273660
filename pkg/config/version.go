package config

// Manifest versioning. APIVersion is the apiVersion every manifest must
// carry; WizardVersionConstraint bounds the spec.version of a Wizard.
const (
	APIVersion = "wizardkit.altairalabs.ai/v1alpha1"

	// SchemaVersion is the version string used in schema $id URLs.
	SchemaVersion = "v1alpha1"

	WizardVersionConstraint = ">=1.0.0, <2.0.0"
)
