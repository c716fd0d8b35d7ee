package diag

import "testing"

func TestSeverityBlocking(t *testing.T) {
	cases := map[Severity]bool{
		SeverityWarning:  false,
		SeverityError:    true,
		SeverityCritical: true,
	}
	for sev, want := range cases {
		if got := sev.Blocking(); got != want {
			t.Fatalf("%s.Blocking() = %v, want %v", sev, got, want)
		}
	}
}

func TestAnyBlockingAndFirstBlocking(t *testing.T) {
	diags := []Diagnostic{
		New("a.sql", WarnNameProximity, SeverityWarning, "close name"),
		New("b.sql", ErrParseFailure, SeverityError, "bad frontmatter"),
		New("c.sql", ErrInvalidName, SeverityCritical, "unreachable"),
	}
	if !AnyBlocking(diags) {
		t.Fatalf("expected AnyBlocking to be true")
	}
	first, ok := FirstBlocking(diags)
	if !ok {
		t.Fatalf("expected a blocking diagnostic")
	}
	if first.ErrorCode != ErrParseFailure {
		t.Fatalf("got first blocking %q, want %q", first.ErrorCode, ErrParseFailure)
	}

	onlyWarnings := diags[:1]
	if AnyBlocking(onlyWarnings) {
		t.Fatalf("expected AnyBlocking to be false for warnings only")
	}
	if _, ok := FirstBlocking(onlyWarnings); ok {
		t.Fatalf("expected no blocking diagnostic among warnings only")
	}
}

func TestDiagnosticStringIncludesLineWhenSet(t *testing.T) {
	d := New("handlers/risky.go", WarnNativeTopLevelSideEffect, SeverityWarning, "bare call at top level")
	withoutLine := d.String()
	if withoutLine == "" {
		t.Fatalf("expected a non-empty string")
	}

	withLine := d.WithLine(9).String()
	if withLine == withoutLine {
		t.Fatalf("expected the line-numbered rendering to differ from the unlined one")
	}
}

func TestWithSuggestionDoesNotMutateReceiver(t *testing.T) {
	d := New("a.sql", ErrInvalidName, SeverityError, "bad name")
	withSuggestion := d.WithSuggestion("use snake_case")
	if d.Suggestion != "" {
		t.Fatalf("expected the original diagnostic to be unmodified, got suggestion %q", d.Suggestion)
	}
	if withSuggestion.Suggestion != "use snake_case" {
		t.Fatalf("got suggestion %q, want %q", withSuggestion.Suggestion, "use snake_case")
	}
}

func TestRuntimeErrorIncludesFunctionNameWhenSet(t *testing.T) {
	withName := NewRuntimeError("greet_user", ErrTimeout, "exceeded effective timeout")
	if withName.Error() == "" {
		t.Fatalf("expected a non-empty error string")
	}

	withoutName := NewRuntimeError("", ErrTimeout, "exceeded effective timeout")
	if withName.Error() == withoutName.Error() {
		t.Fatalf("expected the function-qualified error to differ from the unqualified one")
	}
}
