package runners

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
)

// jinjaExprPattern matches the small subset of Jinja2-style "{{ args.x }}"
// expressions the template runner supports, translating them into Go's
// text/template syntax before parsing. Brimley's templates are a sealed,
// args-only namespace (see RunTemplate), not a general Jinja2 dialect, so
// a translation layer over text/template is sufficient and keeps the
// dependency surface on the standard library for this one mechanical
// concern — no general-purpose Jinja implementation exists in the example
// corpus to ground a richer translator on.
var jinjaExprPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// RunTemplate renders fn's template_body with a sealed variable namespace
// containing only `args`; the global context is never exposed, per
// SPEC_FULL.md §4.6. Missing variables degrade to empty output.
func RunTemplate(fn model.TemplateFunction, args map[string]any) (any, error) {
	translated := translateJinja(fn.TemplateBody)

	tmpl, err := template.New(fn.Name).Funcs(template.FuncMap{"orEmpty": orEmpty}).Option("missingkey=zero").Parse(translated)
	if err != nil {
		return nil, diag.NewRuntimeError(fn.Name, "", "template parse error: "+err.Error())
	}

	var buf bytes.Buffer
	data := map[string]any{"args": args}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, diag.NewRuntimeError(fn.Name, "", "template render error: "+err.Error())
	}
	return buf.String(), nil
}

// translateJinja rewrites each "{{ path }}" expression (for example
// "{{ args.name }}") into the text/template action "{{orEmpty .path}}".
// Under "missingkey=zero" a missing map key evaluates to nil, which
// orEmpty renders as empty output.
func translateJinja(body string) string {
	return jinjaExprPattern.ReplaceAllStringFunc(body, func(match string) string {
		sub := jinjaExprPattern.FindStringSubmatch(match)
		path := sub[1]
		if !strings.Contains(path, ".") {
			return "{{orEmpty ." + path + "}}"
		}
		return "{{orEmpty ." + path + "}}"
	})
}

// orEmpty returns "" for a nil value and v otherwise.
func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
