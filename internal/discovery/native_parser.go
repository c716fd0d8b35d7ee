package discovery

import (
	"bufio"
	"strings"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
)

// parseNativeFunction parses a native-source file's frontmatter comment
// into a NativeFunction. Per SPEC_FULL.md §4.3, Go has no runtime decorator
// reflection, so the frontmatter comment is the sole source of the
// function's declared shape; the handler itself must already be linked in
// and registered against the declared canonical id (see native_handlers.go).
// The returned diagnostics report any top-level call expressions found
// outside func/var/const/import/comment lines in a reload=true file.
func parseNativeFunction(meta map[string]any, body, relPath string) (model.NativeFunction, []diag.Diagnostic, error) {
	common, err := parseCommonFields(meta, relPath, "native")
	if err != nil {
		return model.NativeFunction{}, nil, err
	}
	handler, _ := meta["handler"].(string)
	reload, _ := meta["reload"].(bool)

	fn := model.NativeFunction{
		Common:  common,
		Handler: handler,
		Reload:  reload,
	}

	var warnings []diag.Diagnostic
	if reload {
		if hazard, line := detectTopLevelSideEffect(body); hazard {
			warnings = append(warnings, diag.New(
				relPath, diag.WarnNativeTopLevelSideEffect, diag.SeverityWarning,
				"top-level call expression in a reload=true native module may run again on rehydration",
			).WithLine(line))
		}
	}
	return fn, warnings, nil
}

// detectTopLevelSideEffect does a line-level scan for a call expression
// outside func/var/const/import declarations and comments: a line at
// column 0 ending in "()" (with arguments permitted) that is not a
// declaration keyword. This is a lightweight static heuristic, not a full
// parse — SPEC_FULL.md §4.3 notes the original's concrete analysis
// technique is not binding, only the requirement to surface a diagnostic
// instead of silently permitting the hazard.
func detectTopLevelSideEffect(body string) (bool, int) {
	scanner := bufio.NewScanner(strings.NewReader(body))
	lineNo := 0
	inBlockComment := false
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if inBlockComment {
			if strings.Contains(trimmed, "*/") {
				inBlockComment = false
			}
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			if !strings.Contains(trimmed, "*/") {
				inBlockComment = true
			}
			continue
		}
		if line != trimmed {
			continue // indented: not top-level
		}
		if isDeclarationLine(trimmed) {
			continue
		}
		if strings.HasSuffix(trimmed, ")") && strings.Contains(trimmed, "(") {
			return true, lineNo
		}
	}
	return false, 0
}

func isDeclarationLine(trimmed string) bool {
	for _, kw := range []string{"func ", "func(", "var ", "const ", "import ", "import(", "type ", "package ", "}"} {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return false
}
