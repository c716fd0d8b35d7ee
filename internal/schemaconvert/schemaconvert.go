// Package schemaconvert converts a JSON Schema object into the
// argument FieldSpec grammar internal/model defines, backing the
// schema-convert CLI subcommand. This is a supplemented feature: the
// distilled spec describes the target FieldSpec grammar but not a
// converter into it from an external schema format; the original
// implementation's import tooling is the grounding for this package
// (see original_source/ and SPEC_FULL.md's DOMAIN STACK section).
package schemaconvert

import (
	"fmt"
	"sort"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
)

// Mode selects how an unsupported-but-not-hard-unsupported keyword is
// handled.
type Mode int

const (
	// ModeLossy drops unsupported keywords with a warning diagnostic and
	// continues the conversion.
	ModeLossy Mode = iota
	// ModeStrict fails the conversion with an error diagnostic the first
	// time it meets an unsupported keyword.
	ModeStrict
)

// supportedKeywords are accepted without a diagnostic. Of these, type,
// description, default, enum, minimum, maximum and pattern are translated;
// items, required and properties inside a property are not read, and an
// "array" property always maps to string[].
var supportedKeywords = map[string]bool{
	"type": true, "description": true, "default": true, "enum": true,
	"minimum": true, "maximum": true, "pattern": true, "required": true,
	"properties": true, "items": true,
}

// hardUnsupportedKeywords can never be faithfully represented by the
// FieldSpec grammar, in lossy mode or not: the schema author needs to
// restructure their input, not just accept a warning.
var hardUnsupportedKeywords = map[string]bool{
	"oneOf": true, "anyOf": true, "allOf": true, "not": true,
	"$ref": true, "patternProperties": true, "additionalProperties": true,
}

// Result is the outcome of converting one JSON Schema object.
type Result struct {
	Fields      map[string]model.FieldSpec
	Diagnostics []diag.Diagnostic
}

// Convert translates schema (already decoded from JSON into Go values)
// into a field-spec map, per mode's unsupported-keyword policy.
// sourceLabel is used only to attribute diagnostics (e.g. a file path
// or "<stdin>").
func Convert(schema map[string]any, mode Mode, sourceLabel string) (Result, error) {
	var result Result

	properties, _ := schema["properties"].(map[string]any)
	requiredSet := map[string]bool{}
	if reqList, ok := schema["required"].([]any); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				requiredSet[name] = true
			}
		}
	}

	result.Fields = map[string]model.FieldSpec{}
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		propSchema, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		spec, diags, err := convertProperty(propSchema, mode, sourceLabel, name)
		result.Diagnostics = append(result.Diagnostics, diags...)
		if err != nil {
			return result, err
		}
		spec.Required = requiredSet[name]
		result.Fields[name] = spec
	}
	return result, nil
}

func convertProperty(propSchema map[string]any, mode Mode, sourceLabel, fieldName string) (model.FieldSpec, []diag.Diagnostic, error) {
	var diags []diag.Diagnostic
	var spec model.FieldSpec

	for keyword := range propSchema {
		if hardUnsupportedKeywords[keyword] {
			d := diag.New(sourceLabel, diag.ErrSchemaHardUnsupported, diag.SeverityError,
				fmt.Sprintf("field %q uses keyword %q, which has no FieldSpec equivalent", fieldName, keyword))
			diags = append(diags, d)
			return spec, diags, fmt.Errorf("%s", d.String())
		}
		if !supportedKeywords[keyword] {
			if mode == ModeStrict {
				d := diag.New(sourceLabel, diag.ErrSchemaUnsupportedKeyword, diag.SeverityError,
					fmt.Sprintf("field %q uses unsupported keyword %q (strict mode)", fieldName, keyword))
				diags = append(diags, d)
				return spec, diags, fmt.Errorf("%s", d.String())
			}
			diags = append(diags, diag.New(sourceLabel, diag.WarnSchemaDroppedKeyword, diag.SeverityWarning,
				fmt.Sprintf("field %q: dropping unsupported keyword %q", fieldName, keyword)))
		}
	}

	jsonType, _ := propSchema["type"].(string)
	goType, numberWarning := mapJSONType(jsonType)
	spec.Type = goType
	if numberWarning {
		diags = append(diags, diag.New(sourceLabel, diag.WarnSchemaNumberToFloat, diag.SeverityWarning,
			fmt.Sprintf("field %q: JSON Schema \"number\" mapped to float", fieldName)))
	}

	if desc, ok := propSchema["description"].(string); ok {
		spec.Description = desc
	}
	if def, ok := propSchema["default"]; ok {
		spec.Default = def
		spec.HasDefault = true
	}
	if enum, ok := propSchema["enum"].([]any); ok {
		spec.Enum = enum
	}
	if min, ok := toFloat(propSchema["minimum"]); ok {
		spec.Min = &min
	}
	if max, ok := toFloat(propSchema["maximum"]); ok {
		spec.Max = &max
	}
	if pattern, ok := propSchema["pattern"].(string); ok {
		spec.Pattern = pattern
	}

	return spec, diags, nil
}

// mapJSONType translates a JSON Schema primitive type name into the
// canonical type grammar's scalar name. numberWarning is true when the
// lossy "number"->"float" mapping was applied.
func mapJSONType(jsonType string) (goType string, numberWarning bool) {
	switch jsonType {
	case "string":
		return "string", false
	case "integer":
		return "int", false
	case "number":
		return "float", true
	case "boolean":
		return "bool", false
	case "array":
		return "string[]", false
	default:
		return "string", false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
