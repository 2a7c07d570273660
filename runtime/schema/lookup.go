package schema

import (
	"strings"

	"github.com/jmespath/go-jmespath"
)

// Lookup resolves a dotted field path such as "address.street" against form
// data. Each segment is quoted so field names containing dashes or digits
// resolve literally.
func Lookup(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}
	if v, ok := data[path]; ok && !strings.Contains(path, ".") {
		return v, true
	}

	segments := strings.Split(path, ".")
	quoted := make([]string, len(segments))
	for i, seg := range segments {
		quoted[i] = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(seg) + `"`
	}

	v, err := jmespath.Search(strings.Join(quoted, "."), data)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// IsFilled reports whether a resolved value counts as provided:
// it must be present, non-nil, and not the empty string.
func IsFilled(v any, ok bool) bool {
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}
