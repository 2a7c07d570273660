// Package schema validates wizard form data against JSON Schema documents.
//
// Each step of a wizard may carry a Schema. Schemas are compiled once, when
// the wizard configuration is built, and evaluated many times as the user
// edits form data. Evaluation never fails: problems with the data come back
// as field-level errors in a Result.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidSchema is returned when a schema document cannot be compiled.
var ErrInvalidSchema = errors.New("invalid schema")

// Schema is a compiled JSON Schema for a step or for the full record.
type Schema struct {
	raw      json.RawMessage
	compiled *gojsonschema.Schema
	required []string
}

// Compile parses and compiles a JSON Schema document.
func Compile(raw []byte) (*Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	return &Schema{
		raw:      append(json.RawMessage(nil), raw...),
		compiled: compiled,
		required: collectRequired(doc, ""),
	}, nil
}

// FromMap compiles a schema that was decoded from YAML or JSON into a map.
func FromMap(doc map[string]any) (*Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return Compile(raw)
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level schema literals.
func MustCompile(raw string) *Schema {
	s, err := Compile([]byte(raw))
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the schema document as it was compiled.
func (s *Schema) Raw() json.RawMessage {
	if s == nil {
		return nil
	}
	return s.raw
}

// RequiredFields returns the dotted paths of every field the schema marks
// as required, including required fields of nested objects
// (e.g. "address.street").
func (s *Schema) RequiredFields() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.required))
	copy(out, s.required)
	return out
}

// collectRequired walks "required" and nested "properties" of an object schema.
func collectRequired(doc map[string]any, prefix string) []string {
	var fields []string
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				fields = append(fields, prefix+name)
			}
		}
	}

	props, ok := doc["properties"].(map[string]any)
	if !ok {
		return fields
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sub, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		fields = append(fields, collectRequired(sub, prefix+name+".")...)
	}
	return fields
}

// violation is one raw schema failure before message formatting.
type violation struct {
	field string
	kind  string
	raw   string
}

func (s *Schema) evaluate(data map[string]any) []violation {
	if data == nil {
		data = map[string]any{}
	}
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return []violation{{field: RootField, kind: "internal", raw: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	out := make([]violation, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, violation{
			field: fieldPath(e),
			kind:  e.Type(),
			raw:   e.Description(),
		})
	}
	return out
}

// RootField is the error key used for failures that apply to the whole record.
const RootField = "_root"

// fieldPath converts a gojsonschema error context into a dotted field path.
// Required errors are reported on the parent object, so the missing property
// name is appended.
func fieldPath(e gojsonschema.ResultError) string {
	path := ""
	if ctx := e.Context(); ctx != nil {
		path = ctx.String(".")
	}
	path = trimRoot(path)

	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			if path == "" {
				path = prop
			} else {
				path = path + "." + prop
			}
		}
	}
	if path == "" {
		return RootField
	}
	return path
}

func trimRoot(path string) string {
	const root = gojsonschema.STRING_CONTEXT_ROOT
	switch {
	case path == root:
		return ""
	case len(path) > len(root) && path[:len(root)+1] == root+".":
		return path[len(root)+1:]
	default:
		return path
	}
}
