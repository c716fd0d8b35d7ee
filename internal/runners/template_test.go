package runners

import (
	"testing"

	"github.com/farkelheizen/brimley/internal/model"
)

func TestRunTemplateSubstitutesArgs(t *testing.T) {
	fn := model.TemplateFunction{
		Common:       model.Common{Name: "welcome_message"},
		TemplateBody: "Hello, {{ args.user_name }}!",
	}
	out, err := RunTemplate(fn, map[string]any{"user_name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello, Ada!" {
		t.Fatalf("got %q, want %q", out, "Hello, Ada!")
	}
}

func TestRunTemplateMissingArgRendersEmpty(t *testing.T) {
	fn := model.TemplateFunction{
		Common:       model.Common{Name: "welcome_message"},
		TemplateBody: "Hello, {{ args.missing_name }}!",
	}
	out, err := RunTemplate(fn, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello, !" {
		t.Fatalf("got %q, want %q", out, "Hello, !")
	}
}

func TestRunTemplateMalformedTemplateErrors(t *testing.T) {
	fn := model.TemplateFunction{
		Common:       model.Common{Name: "broken"},
		TemplateBody: "{{ .args.x",
	}
	if _, err := RunTemplate(fn, map[string]any{"x": "y"}); err == nil {
		t.Fatalf("expected a template parse error for malformed syntax")
	}
}
