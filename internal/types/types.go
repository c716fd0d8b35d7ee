// Package types implements Brimley's canonical type grammar: a small,
// closed set of scalars, one-dimensional lists, and entity references, with
// a pure normalizer that rejects unions, optionals, and open containers.
package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical scalar names.
const (
	String    = "string"
	Int       = "int"
	Float     = "float"
	Bool      = "bool"
	Decimal   = "decimal"
	Date      = "date"
	DateTime  = "datetime"
	Primitive = "primitive"
	Void      = "void"
)

var scalars = map[string]bool{
	String: true, Int: true, Float: true, Bool: true, Decimal: true,
	Date: true, DateTime: true, Primitive: true, Void: true,
}

// aliases maps legacy/alternate spellings onto their canonical scalar.
var aliases = map[string]string{
	"str":     String,
	"integer": Int,
	"number":  Float,
	"boolean": Bool,
	"none":    Void,
	"null":    Void,
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// genericListPattern matches both `list[T]` and `List[T]` (with or without
// a `typing.` prefix), the legacy-container spelling accepted only when
// allow_legacy_containers is set.
var genericListPattern = regexp.MustCompile(`^(?:typing\.)?(?:list|List)\[(.+)\]$`)

// Error is returned by Normalize when expr cannot be reduced to the
// canonical grammar. It carries enough detail for a diagnostic.
type Error struct {
	Expr   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("unsupported type expression %q: %s", e.Expr, e.Reason)
}

// Normalize reduces a type expression to its canonical form:
//   - scalar aliases fold to their canonical name,
//   - `T[]` and `list[T]`/`List[T]` fold to `T[]` with T itself normalized,
//   - entity identifiers pass through unchanged,
//   - unions (`A|B`), `Optional[...]`, `Union[...]`, nested lists, and open
//     containers (`dict`, `object`, bare `list`) are rejected.
//
// allowVoid permits the `void` scalar (only valid as a return shape).
// allowLegacyContainers permits the `list[T]`/`List[T]` generic spelling in
// addition to the canonical `T[]` suffix form.
func Normalize(expr string, allowVoid bool, allowLegacyContainers bool) (string, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return "", &Error{Expr: expr, Reason: "empty type expression"}
	}

	if strings.Contains(trimmed, "|") {
		return "", &Error{Expr: expr, Reason: "union types are forbidden"}
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "optional[") || strings.HasPrefix(lower, "typing.optional[") {
		return "", &Error{Expr: expr, Reason: "Optional[...] is forbidden"}
	}
	if strings.HasPrefix(lower, "union[") || strings.HasPrefix(lower, "typing.union[") {
		return "", &Error{Expr: expr, Reason: "Union[...] is forbidden"}
	}

	switch lower {
	case "dict", "object", "map":
		return "", &Error{Expr: expr, Reason: "open containers are forbidden, declare an entity or inline shape instead"}
	case "list", "typing.list":
		return "", &Error{Expr: expr, Reason: "list without an element type is forbidden"}
	}

	// T[] suffix form.
	if strings.HasSuffix(trimmed, "[]") {
		inner := strings.TrimSuffix(trimmed, "[]")
		return normalizeList(expr, inner, allowVoid, allowLegacyContainers)
	}

	// list[T] / List[T] generic form.
	if m := genericListPattern.FindStringSubmatch(trimmed); m != nil {
		if !allowLegacyContainers {
			return "", &Error{Expr: expr, Reason: "list[T] generic spelling requires allow_legacy_containers"}
		}
		return normalizeList(expr, m[1], allowVoid, allowLegacyContainers)
	}

	// Scalar (canonical or alias).
	if scalars[lower] {
		if lower == Void && !allowVoid {
			return "", &Error{Expr: expr, Reason: "void is only valid as a return shape"}
		}
		return lower, nil
	}
	if canon, ok := aliases[lower]; ok {
		if canon == Void && !allowVoid {
			return "", &Error{Expr: expr, Reason: "void is only valid as a return shape"}
		}
		return canon, nil
	}

	// Entity identifier.
	if identifierPattern.MatchString(trimmed) {
		return trimmed, nil
	}

	return "", &Error{Expr: expr, Reason: "not a recognized scalar, entity identifier, or list expression"}
}

func normalizeList(original, inner string, allowVoid, allowLegacyContainers bool) (string, error) {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return "", &Error{Expr: original, Reason: "list element type is empty"}
	}
	if strings.HasSuffix(inner, "[]") || genericListPattern.MatchString(inner) {
		return "", &Error{Expr: original, Reason: "nested lists are forbidden"}
	}
	elem, err := Normalize(inner, false, allowLegacyContainers)
	if err != nil {
		return "", &Error{Expr: original, Reason: fmt.Sprintf("invalid list element: %v", err)}
	}
	return elem + "[]", nil
}

// IsList reports whether a canonical type expression is a one-dimensional
// list, returning its element type.
func IsList(canonical string) (elem string, ok bool) {
	if strings.HasSuffix(canonical, "[]") {
		return strings.TrimSuffix(canonical, "[]"), true
	}
	return "", false
}

// IsScalar reports whether a canonical type expression names a built-in
// scalar (as opposed to an entity identifier).
func IsScalar(canonical string) bool {
	return scalars[canonical]
}
