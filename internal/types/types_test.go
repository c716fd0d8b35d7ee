package types

import "testing"

func TestNormalizeScalarAliases(t *testing.T) {
	cases := map[string]string{
		"str":     String,
		"integer": Int,
		"number":  Float,
		"boolean": Bool,
		"none":    Void,
		"null":    Void,
	}
	for alias, want := range cases {
		got, err := Normalize(alias, true, false)
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error: %v", alias, err)
		}
		if got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestNormalizeVoidRequiresAllowVoid(t *testing.T) {
	if _, err := Normalize("void", false, false); err == nil {
		t.Fatalf("expected error for void without allowVoid")
	}
	if _, err := Normalize("void", true, false); err != nil {
		t.Fatalf("unexpected error for void with allowVoid: %v", err)
	}
}

func TestNormalizeListSuffixForm(t *testing.T) {
	got, err := Normalize("string[]", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "string[]" {
		t.Fatalf("got %q, want string[]", got)
	}
}

func TestNormalizeLegacyListForm(t *testing.T) {
	if _, err := Normalize("list[string]", false, false); err == nil {
		t.Fatalf("expected error when allowLegacyContainers is false")
	}
	got, err := Normalize("List[integer]", false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "int[]" {
		t.Fatalf("got %q, want int[]", got)
	}
}

func TestNormalizeRejectsNestedLists(t *testing.T) {
	if _, err := Normalize("string[][]", false, true); err == nil {
		t.Fatalf("expected error for nested list")
	}
	if _, err := Normalize("list[list[string]]", false, true); err == nil {
		t.Fatalf("expected error for nested generic list")
	}
}

func TestNormalizeRejectsUnionsOptionalsAndOpenContainers(t *testing.T) {
	bad := []string{"string|int", "Optional[string]", "Union[string,int]", "dict", "object", "list"}
	for _, expr := range bad {
		if _, err := Normalize(expr, true, true); err == nil {
			t.Fatalf("expected error for %q", expr)
		}
	}
}

func TestNormalizeEntityIdentifierPassesThrough(t *testing.T) {
	got, err := Normalize("Invoice", false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Invoice" {
		t.Fatalf("got %q, want Invoice", got)
	}
}

func TestNormalizeRoundTripIdempotent(t *testing.T) {
	exprs := []string{"str", "string[]", "Invoice", "List[number]"}
	for _, expr := range exprs {
		once, err := Normalize(expr, false, true)
		if err != nil {
			t.Fatalf("Normalize(%q) failed: %v", expr, err)
		}
		twice, err := Normalize(once, false, true)
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)) failed: %v", expr, err)
		}
		if once != twice {
			t.Fatalf("round-trip not idempotent for %q: %q != %q", expr, once, twice)
		}
	}
}

func TestIsListAndIsScalar(t *testing.T) {
	if elem, ok := IsList("string[]"); !ok || elem != "string" {
		t.Fatalf("IsList(string[]) = (%q, %v), want (string, true)", elem, ok)
	}
	if _, ok := IsList("string"); ok {
		t.Fatalf("IsList(string) should be false")
	}
	if !IsScalar("string") || IsScalar("Invoice") {
		t.Fatalf("IsScalar gave wrong answers")
	}
}
