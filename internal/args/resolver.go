// Package args implements the argument resolver (SPEC_FULL.md §4.4):
// merging caller input with context-injected values and declared defaults,
// then coercing everything to the canonical type grammar.
package args

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/types"
)

// ContextSource resolves a dotted path ("app.x.y", "config.k",
// "databases.k") against the runtime context. Declared as an interface
// here (rather than importing internal/runtime directly) so the resolver
// has no dependency on the concrete context aggregate; internal/runtime.
// Context implements this.
type ContextSource interface {
	GetPath(path string) (value any, ok bool)
}

// Resolve merges userInput with declared defaults and context-injected
// values for fn's arguments, then coerces each value to its declared type.
// Precedence: from_context (always wins) > user input > default > missing.
func Resolve(fn map[string]model.FieldSpec, userInput map[string]any, ctx ContextSource) (map[string]any, error) {
	out := make(map[string]any, len(fn))

	for name, spec := range fn {
		var (
			value any
			found bool
		)

		if spec.FromContext != "" {
			if v, ok := ctx.GetPath(spec.FromContext); ok {
				value, found = v, true
			}
		}
		if !found {
			if v, ok := userInput[name]; ok {
				value, found = v, true
			}
		}
		if !found && spec.HasDefault {
			value, found = spec.Default, true
		}
		if !found {
			if spec.Required {
				return nil, diag.NewRuntimeError("", diag.ErrMissingArgument,
					fmt.Sprintf("missing required argument %q", name))
			}
			continue
		}

		coerced, err := coerce(value, spec.Type)
		if err != nil {
			return nil, diag.NewRuntimeError("", diag.ErrArgType,
				fmt.Sprintf("argument %q: %v", name, err))
		}
		out[name] = coerced
	}

	// Unrecognized argument names are silently ignored (future
	// compatibility) — nothing from userInput outside `fn` is copied.
	return out, nil
}

// coerce normalizes typeExpr through the canonical type grammar (folding
// alias spellings and the legacy list[T] container form to their
// canonical names) before coercing value, so an aliased or legacy-spelled
// declaration gets the same validation a canonically-spelled one does.
func coerce(value any, typeExpr string) (any, error) {
	canonical, err := types.Normalize(typeExpr, false, true)
	if err != nil {
		return nil, fmt.Errorf("invalid type expression %q: %w", typeExpr, err)
	}

	if elemType, ok := types.IsList(canonical); ok {
		seq, ok := toSlice(value)
		if !ok {
			return nil, fmt.Errorf("expected a sequence for list type %q, got %T", canonical, value)
		}
		out := make([]any, len(seq))
		for i, v := range seq {
			cv, err := coerce(v, elemType)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}

	switch canonical {
	case "string":
		return coerceString(value)
	case "int":
		return coerceInt(value)
	case "float", "decimal":
		return coerceFloat(value)
	case "bool":
		return coerceBool(value)
	case "date":
		return coerceTime(value, "2006-01-02")
	case "datetime":
		return coerceTime(value, time.RFC3339)
	case "primitive", "void":
		return value, nil
	default:
		// Entity identifier: passed through as-is; entity shape validation
		// happens in the result mapper / a future argument-shape validator,
		// not here (arguments of entity type are out of this function's
		// declared scope per SPEC_FULL.md §4.4, which only names scalar
		// coercions explicitly).
		return value, nil
	}
}

func toSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func coerceString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case int:
		return strconv.Itoa(s), nil
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", fmt.Errorf("cannot coerce %T to string", v)
	}
}

func coerceInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", v)
	}
}

func coerceBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	default:
		return false, fmt.Errorf("cannot coerce %T to bool", v)
	}
}

func coerceTime(v any, layout string) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("cannot coerce %T to a date/time", v)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		// Accept full RFC3339 even when layout is date-only, and vice
		// versa, since ISO-8601 strings vary in precision.
		for _, altLayout := range []string{time.RFC3339, "2006-01-02"} {
			if alt, altErr := time.Parse(altLayout, s); altErr == nil {
				return alt, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid ISO-8601 value %q: %w", s, err)
	}
	return t, nil
}
