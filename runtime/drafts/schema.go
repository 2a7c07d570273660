package drafts

import (
	"github.com/invopop/jsonschema"
)

// SchemaID identifies the Draft JSON Schema.
const SchemaID = "https://wizardkit.altairalabs.ai/schemas/v1alpha1/draft.json"

// JSONSchema describes the Draft record as stored and as exchanged with the
// remote draft API.
func JSONSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
	}
	s := r.Reflect(&Draft{})
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.ID = SchemaID
	s.Title = "WizardKit Draft"
	s.Description = "Resumable state of one wizard session"
	return s
}
