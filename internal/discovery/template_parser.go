package discovery

import "github.com/farkelheizen/brimley/internal/model"

// parseTemplateFunction parses a templated-prompt file's frontmatter + body
// into a TemplateFunction.
func parseTemplateFunction(meta map[string]any, body, relPath string) (model.TemplateFunction, error) {
	common, err := parseCommonFields(meta, relPath, "template")
	if err != nil {
		return model.TemplateFunction{}, err
	}
	engine := optionalString(meta, "template_engine")
	if engine == "" {
		engine = "jinja2"
	}
	var messages []map[string]any
	if raw, ok := meta["messages"].([]any); ok {
		for _, m := range raw {
			if mm, ok := m.(map[string]any); ok {
				messages = append(messages, mm)
			}
		}
	}
	return model.TemplateFunction{
		Common:         common,
		TemplateEngine: engine,
		TemplateBody:   body,
		Messages:       messages,
	}, nil
}
