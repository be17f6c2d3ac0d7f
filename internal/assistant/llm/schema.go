package llm

type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
)

// Param is one top-level argument of a tool. Optional parameters are
// expressed as Nullable so strict providers still list them as required.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Enum        []string
	Nullable    bool
}

// ToolSpec declares a tool once for every provider.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// JSONSchema renders the parameters as a strict JSON schema object: every
// property required, nullable ones typed as [type, "null"], no extra fields.
func (t ToolSpec) JSONSchema() map[string]any {
	properties := make(map[string]any, len(t.Params))
	required := make([]string, 0, len(t.Params))

	for _, p := range t.Params {
		prop := map[string]any{"description": p.Description}
		if p.Nullable {
			prop["type"] = []string{string(p.Type), "null"}
		} else {
			prop["type"] = string(p.Type)
		}
		if len(p.Enum) > 0 {
			enum := make([]any, 0, len(p.Enum)+1)
			for _, v := range p.Enum {
				enum = append(enum, v)
			}
			if p.Nullable {
				enum = append(enum, nil)
			}
			prop["enum"] = enum
		}
		properties[p.Name] = prop
		required = append(required, p.Name)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}
