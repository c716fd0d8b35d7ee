// Package resultmap implements the result mapper (SPEC_FULL.md §4.5):
// validating a runner's raw return value against the function's declared
// return shape, including user-defined entity shapes.
package resultmap

import (
	"fmt"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/types"
)

// EntityLookup resolves an entity by name for {entity_ref: ...} return
// shapes. internal/runtime.Context implements this; declared here as an
// interface to avoid an import cycle.
type EntityLookup interface {
	GetEntity(name string) (model.Entity, error)
}

// Map validates raw against shape and returns the validated value.
func Map(raw any, shape model.ReturnShape, entities EntityLookup) (any, error) {
	switch {
	case shape.IsTypeExpr():
		return mapByTypeExpr(raw, shape.TypeExpr)
	case shape.IsEntityRef():
		return mapByEntityRef(raw, shape.EntityRef, entities)
	case shape.IsInline():
		return mapByFields(raw, shape.Inline)
	default:
		return nil, diag.NewRuntimeError("", diag.ErrResultValidation, "return_shape is empty")
	}
}

func mapByTypeExpr(raw any, typeExpr string) (any, error) {
	canonical, err := types.Normalize(typeExpr, true, true)
	if err != nil {
		return nil, diag.NewRuntimeError("", diag.ErrResultValidation,
			fmt.Sprintf("invalid return type expression %q: %v", typeExpr, err))
	}
	typeExpr = canonical

	if typeExpr == types.Void {
		return nil, nil
	}
	if elem, ok := types.IsList(typeExpr); ok {
		seq, isSeq := raw.([]any)
		if !isSeq {
			// A lone scalar is wrapped into a one-element list.
			return []any{raw}, validateScalarIfKnown(raw, elem)
		}
		for i, v := range seq {
			if err := validateScalarIfKnown(v, elem); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return seq, nil
	}

	// Scalar shape: unwrap a one-element sequence, reject cardinality > 1.
	if seq, isSeq := raw.([]any); isSeq {
		switch len(seq) {
		case 1:
			return seq[0], nil
		default:
			return nil, diag.NewRuntimeError("", diag.ErrResultCardinality,
				fmt.Sprintf("expected a single %s value, got %d", typeExpr, len(seq)))
		}
	}
	return raw, nil
}

func validateScalarIfKnown(v any, typeExpr string) error {
	if !types.IsScalar(typeExpr) {
		return nil // entity element: its shape is not checked here
	}
	if _, err := coerceForValidation(v, typeExpr); err != nil {
		return diag.NewRuntimeError("", diag.ErrResultValidation, err.Error())
	}
	return nil
}

func mapByEntityRef(raw any, entityName string, entities EntityLookup) (any, error) {
	entity, err := entities.GetEntity(entityName)
	if err != nil {
		return nil, diag.NewRuntimeError("", diag.ErrResultValidation,
			fmt.Sprintf("entity %q: %v", entityName, err))
	}
	switch entity.Kind {
	case model.EntityDeclarative:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, diag.NewRuntimeError("", diag.ErrResultValidation,
				fmt.Sprintf("expected a map for entity %q, got %T", entityName, raw))
		}
		if err := validateAgainstFields(m, entity.RawDefinition); err != nil {
			return nil, err
		}
		return m, nil
	case model.EntityNative:
		// Native entities are not validated: no handler is consulted and
		// the raw value is returned unchanged.
		return raw, nil
	default:
		return nil, diag.NewRuntimeError("", diag.ErrResultValidation,
			fmt.Sprintf("entity %q has unknown kind %q", entityName, entity.Kind))
	}
}

func mapByFields(raw any, fields map[string]model.FieldSpec) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, diag.NewRuntimeError("", diag.ErrResultValidation,
			fmt.Sprintf("expected a map for inline shape, got %T", raw))
	}
	if err := validateAgainstFields(m, fields); err != nil {
		return nil, err
	}
	return m, nil
}

// validateAgainstFields is the "small schema-interpreter" called for by
// SPEC_FULL.md §4.5/§9: it walks fields directly against m without
// synthesizing a concrete record type.
func validateAgainstFields(m map[string]any, fields map[string]model.FieldSpec) error {
	for name, spec := range fields {
		v, present := m[name]
		if !present {
			if spec.Required {
				return diag.NewRuntimeError("", diag.ErrResultValidation,
					fmt.Sprintf("field %q: required but missing", name))
			}
			continue
		}
		if _, err := coerceForValidation(v, spec.Type); err != nil {
			return diag.NewRuntimeError("", diag.ErrResultValidation,
				fmt.Sprintf("field %q: %v", name, err))
		}
	}
	return nil
}

// coerceForValidation performs a light type check (not a destructive
// coercion — result-mapper validation reports errors but does not mutate
// the already-produced value) reusing the canonical scalar set.
func coerceForValidation(v any, typeExpr string) (any, error) {
	canonical, err := types.Normalize(typeExpr, false, true)
	if err != nil {
		return nil, fmt.Errorf("invalid type expression %q: %w", typeExpr, err)
	}
	typeExpr = canonical

	if elem, ok := types.IsList(typeExpr); ok {
		seq, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected a list for type %q, got %T", typeExpr, v)
		}
		for i, e := range seq {
			if _, err := coerceForValidation(e, elem); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return seq, nil
	}
	if !types.IsScalar(typeExpr) {
		return v, nil // entity-typed field: nested validation not required here
	}
	switch typeExpr {
	case types.String:
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
	case types.Int:
		switch v.(type) {
		case int, int64, float64:
		default:
			return nil, fmt.Errorf("expected int, got %T", v)
		}
	case types.Float, types.Decimal:
		switch v.(type) {
		case int, int64, float64:
		default:
			return nil, fmt.Errorf("expected float, got %T", v)
		}
	case types.Bool:
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
	}
	return v, nil
}
