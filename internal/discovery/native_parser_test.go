package discovery

import "testing"

func TestDetectTopLevelSideEffectFindsBareCall(t *testing.T) {
	body := `package handlers

import "fmt"

func init() {
	fmt.Println("ok")
}

doSomethingAtLoadTime()
`
	hazard, line := detectTopLevelSideEffect(body)
	if !hazard {
		t.Fatalf("expected a top-level side effect to be detected")
	}
	if line != 9 {
		t.Fatalf("got line %d, want 9", line)
	}
}

func TestDetectTopLevelSideEffectIgnoresDeclarationsAndComments(t *testing.T) {
	body := `package handlers

// doSomethingAtLoadTime() is mentioned here but not called.
var x = 1

func helper() {
	doSomethingAtLoadTime()
}
`
	hazard, _ := detectTopLevelSideEffect(body)
	if hazard {
		t.Fatalf("expected no top-level side effect for indented/declared-only content")
	}
}

func TestParseNativeFunctionWarnsOnlyWhenReloadTrue(t *testing.T) {
	meta := map[string]any{
		"name":         "risky_fn",
		"return_shape": "string",
		"handler":      "handlers.Risky",
		"reload":       true,
	}
	body := "package handlers\n\nriskyInit()\n"
	fn, warnings, err := parseNativeFunction(meta, body, "handlers/risky.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.Handler != "handlers.Risky" || !fn.Reload {
		t.Fatalf("got %+v, unexpected fields", fn)
	}
	if len(warnings) != 1 || warnings[0].ErrorCode != "WARN_NATIVE_TOPLEVEL_SIDEEFFECT" {
		t.Fatalf("got %v, want one WARN_NATIVE_TOPLEVEL_SIDEEFFECT diagnostic", warnings)
	}

	meta["reload"] = false
	_, warnings, err = parseNativeFunction(meta, body, "handlers/risky.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings when reload is false, got %v", warnings)
	}
}
