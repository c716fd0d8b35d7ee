package discovery

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterDelimiter marks the YAML block boundary in the delimited
// framing ("--- \n YAML \n --- \n BODY").
const frontmatterDelimiter = "---"

// parseFrontmatter splits content into a decoded YAML frontmatter map and
// the remaining body, accepting either the delimited framing or the SQL
// comment framing ("/* \n --- \n YAML \n --- \n */ \n BODY"). Returns
// ok=false if content carries no recognizable frontmatter block at all.
func parseFrontmatter(content string) (meta map[string]any, body string, ok bool, err error) {
	trimmed := strings.TrimLeft(content, " \t\r\n")

	if strings.HasPrefix(trimmed, "/*") {
		return parseSQLCommentFrontmatter(trimmed)
	}
	if strings.HasPrefix(trimmed, frontmatterDelimiter) {
		return parseDelimitedFrontmatter(trimmed)
	}
	return nil, content, false, nil
}

func parseDelimitedFrontmatter(trimmed string) (map[string]any, string, bool, error) {
	rest := strings.TrimPrefix(trimmed, frontmatterDelimiter)
	rest = strings.TrimPrefix(rest, "\n")
	rest = strings.TrimPrefix(rest, "\r\n")

	idx := indexDelimiterLine(rest)
	if idx < 0 {
		return nil, "", false, errUnterminatedFrontmatter
	}
	yamlBlock := rest[:idx]
	remainder := rest[idx:]
	remainder = strings.TrimPrefix(remainder, frontmatterDelimiter)
	remainder = strings.TrimPrefix(remainder, "\n")
	remainder = strings.TrimPrefix(remainder, "\r\n")

	meta, err := decodeYAMLMap(yamlBlock)
	if err != nil {
		return nil, "", false, err
	}
	return meta, remainder, true, nil
}

func parseSQLCommentFrontmatter(trimmed string) (map[string]any, string, bool, error) {
	closeIdx := strings.Index(trimmed, "*/")
	if closeIdx < 0 {
		return nil, "", false, errUnterminatedFrontmatter
	}
	comment := trimmed[2:closeIdx]
	body := strings.TrimPrefix(trimmed[closeIdx+2:], "\n")
	body = strings.TrimPrefix(body, "\r\n")

	comment = strings.TrimSpace(comment)
	if !strings.HasPrefix(comment, frontmatterDelimiter) {
		return nil, "", false, errUnterminatedFrontmatter
	}
	comment = strings.TrimPrefix(comment, frontmatterDelimiter)
	comment = strings.TrimPrefix(comment, "\n")

	idx := indexDelimiterLine(comment)
	if idx < 0 {
		return nil, "", false, errUnterminatedFrontmatter
	}
	yamlBlock := comment[:idx]

	meta, err := decodeYAMLMap(yamlBlock)
	if err != nil {
		return nil, "", false, err
	}
	return meta, body, true, nil
}

// indexDelimiterLine finds the offset of a line consisting solely of the
// closing "---" delimiter.
func indexDelimiterLine(s string) int {
	lines := strings.SplitAfter(s, "\n")
	offset := 0
	for _, line := range lines {
		trimmedLine := strings.TrimRight(strings.TrimRight(line, "\n"), "\r")
		if strings.TrimSpace(trimmedLine) == frontmatterDelimiter {
			return offset
		}
		offset += len(line)
	}
	return -1
}

func decodeYAMLMap(block string) (map[string]any, error) {
	var meta map[string]any
	if strings.TrimSpace(block) == "" {
		return map[string]any{}, nil
	}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, err
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return normalizeYAMLMap(meta), nil
}

// normalizeYAMLMap returns a shallow copy of v when it is a map[string]any,
// and an empty map otherwise. Nested values are copied as they are; no
// map[any]any conversion is done (yaml.v3 decodes string-keyed mappings
// inside a map[string]any target as map[string]any already).
func normalizeYAMLMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}
