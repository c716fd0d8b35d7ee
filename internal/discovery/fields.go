package discovery

import (
	"fmt"

	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/types"
)

// decodeArguments converts the YAML `arguments` map into FieldSpecs. Each
// value is either a bare string (type expression, implies required/no
// default) or a nested map with the elaborated field-spec keys. JSON-Schema
// "properties" mode is explicitly not accepted here; schema-convert is the
// only path from a JSON Schema into this grammar.
func decodeArguments(raw any) (map[string]model.FieldSpec, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a map")
	}
	out := make(map[string]model.FieldSpec, len(m))
	for name, v := range m {
		spec, err := decodeFieldSpec(v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		out[name] = spec
	}
	return out, nil
}

// decodeFieldSpec normalizes the declared type expression through the
// canonical type grammar at parse time (SPEC_FULL.md §4.2), so an alias
// spelling or a malformed type surfaces as an early discovery-time
// diagnostic rather than silently bypassing validation downstream in the
// argument resolver and result mapper. Argument/field types never permit
// void.
func decodeFieldSpec(v any) (model.FieldSpec, error) {
	switch val := v.(type) {
	case string:
		canonical, err := types.Normalize(val, false, true)
		if err != nil {
			return model.FieldSpec{}, fmt.Errorf("invalid type expression %q: %w", val, err)
		}
		return model.FieldSpec{Type: canonical, Required: true}, nil
	case map[string]any:
		spec := model.FieldSpec{}
		if t, ok := val["type"].(string); ok {
			canonical, err := types.Normalize(t, false, true)
			if err != nil {
				return spec, fmt.Errorf("invalid type expression %q: %w", t, err)
			}
			spec.Type = canonical
		} else {
			return spec, fmt.Errorf("field-spec map is missing required \"type\"")
		}
		if def, ok := val["default"]; ok {
			spec.Default = def
			spec.HasDefault = true
		}
		if desc, ok := val["description"].(string); ok {
			spec.Description = desc
		}
		if fc, ok := val["from_context"].(string); ok {
			spec.FromContext = fc
		}
		if enumList, ok := val["enum"].([]any); ok {
			spec.Enum = enumList
		}
		if min, ok := toFloat(val["min"]); ok {
			spec.Min = &min
		}
		if max, ok := toFloat(val["max"]); ok {
			spec.Max = &max
		}
		if pat, ok := val["pattern"].(string); ok {
			spec.Pattern = pat
		}
		if req, ok := val["required"].(bool); ok {
			spec.Required = req
		} else if !spec.HasDefault && spec.FromContext == "" {
			spec.Required = true
		}
		return spec, nil
	default:
		return model.FieldSpec{}, fmt.Errorf("field-spec must be a type-expression string or a map")
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// decodeReturnShape converts the YAML `return_shape` value into a
// model.ReturnShape: a bare string, `{entity_ref: name}`, or
// `{inline: {field: spec}}`.
func decodeReturnShape(raw any) (model.ReturnShape, error) {
	switch v := raw.(type) {
	case nil:
		return model.ReturnShape{}, fmt.Errorf("return_shape is required")
	case string:
		canonical, err := types.Normalize(v, true, true)
		if err != nil {
			return model.ReturnShape{}, fmt.Errorf("invalid return_shape %q: %w", v, err)
		}
		return model.ReturnShape{TypeExpr: canonical}, nil
	case map[string]any:
		if ref, ok := v["entity_ref"].(string); ok {
			return model.ReturnShape{EntityRef: ref}, nil
		}
		if inline, ok := v["inline"].(map[string]any); ok {
			fields := make(map[string]model.FieldSpec, len(inline))
			for name, fv := range inline {
				spec, err := decodeFieldSpec(fv)
				if err != nil {
					return model.ReturnShape{}, fmt.Errorf("inline field %q: %w", name, err)
				}
				fields[name] = spec
			}
			return model.ReturnShape{Inline: fields}, nil
		}
		return model.ReturnShape{}, fmt.Errorf("return_shape map must have \"entity_ref\" or \"inline\"")
	default:
		return model.ReturnShape{}, fmt.Errorf("return_shape must be a string or a map")
	}
}

// decodeMCP converts the YAML `mcp` value into an *model.MCPExport.
func decodeMCP(raw any) (*model.MCPExport, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("mcp must be a map")
	}
	typ, _ := m["type"].(string)
	if typ != "tool" {
		return nil, fmt.Errorf("mcp.type must be \"tool\"")
	}
	desc, _ := m["description"].(string)
	return &model.MCPExport{Type: typ, Description: desc}, nil
}

func optionalFloat(raw any) *float64 {
	if f, ok := toFloat(raw); ok {
		return &f
	}
	return nil
}

func optionalString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
