package extract

import (
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"
)

// SchemaName is the name the schema is registered under with the provider.
const SchemaName = "tkp_schema"

// SchemaLoader reads the extraction JSON schema from disk on every call so
// edits apply without a restart.
type SchemaLoader struct {
	Path string
}

// Load parses the schema file.
func (l SchemaLoader) Load() (map[string]any, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", l.Path, err)
	}
	if schema == nil {
		return nil, fmt.Errorf("parse schema %s: not an object", l.Path)
	}
	return schema, nil
}

// Strict rewrites every object schema so that all of its properties are
// required and no other properties are allowed, which strict structured
// output demands. Optional fields stay optional by admitting null. The input
// is not modified.
func Strict(schema map[string]any) map[string]any {
	out, _ := strictValue(schema).(map[string]any)
	return out
}

func strictValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = strictValue(val)
		}
		if props, ok := out["properties"].(map[string]any); ok {
			keys := make([]string, 0, len(props))
			for k := range props {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			required := make([]any, len(keys))
			for i, k := range keys {
				required[i] = k
			}
			out["required"] = required
			out["additionalProperties"] = false
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = strictValue(val)
		}
		return out
	default:
		return v
	}
}
