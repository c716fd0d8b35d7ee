// Package config loads brimley.yaml: allow-listed top-level keys,
// ${VAR}/${VAR:default} environment interpolation performed as raw text
// substitution before YAML parsing, per SPEC_FULL.md §6.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// allowedTopLevelKeys are the only top-level keys brimley.yaml may declare.
var allowedTopLevelKeys = map[string]bool{
	"brimley": true, "config": true, "mcp": true, "auto_reload": true,
	"state": true, "databases": true, "execution": true,
}

// BrimleySettings is the `brimley:` top-level block.
type BrimleySettings struct {
	Env      string `yaml:"env"`
	AppName  string `yaml:"app_name"`
	LogLevel string `yaml:"log_level"`
}

// MCPSettings is the `mcp:` top-level block.
type MCPSettings struct {
	Embedded  bool   `yaml:"embedded"`
	Transport string `yaml:"transport"` // "sse" | "stdio"
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
}

// AutoReloadSettings is the `auto_reload:` top-level block.
type AutoReloadSettings struct {
	Enabled         bool     `yaml:"enabled"`
	IntervalMs      int      `yaml:"interval_ms"`
	DebounceMs      int      `yaml:"debounce_ms"`
	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// QueueSettings is the `execution.queue:` nested block.
type QueueSettings struct {
	MaxSize int    `yaml:"max_size"`
	OnFull  string `yaml:"on_full"` // "block" | "reject"
}

// ExecutionSettings is the `execution:` top-level block.
type ExecutionSettings struct {
	ThreadPoolSize int           `yaml:"thread_pool_size"`
	TimeoutSeconds float64       `yaml:"timeout_seconds"`
	Queue          QueueSettings `yaml:"queue"`
}

// DatabaseSettings is one entry of the `databases:` map.
type DatabaseSettings struct {
	URL          string         `yaml:"url"`
	ConnectArgs  map[string]any `yaml:"connect_args"`
}

// Document is the fully decoded, allow-listed brimley.yaml.
type Document struct {
	Brimley    BrimleySettings             `yaml:"brimley"`
	Config     map[string]any              `yaml:"config"`
	MCP        MCPSettings                 `yaml:"mcp"`
	AutoReload AutoReloadSettings          `yaml:"auto_reload"`
	State      map[string]any              `yaml:"state"`
	Databases  map[string]DatabaseSettings `yaml:"databases"`
	Execution  ExecutionSettings           `yaml:"execution"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:([^}]*))?\}`)

// interpolateEnvVars substitutes ${VAR} / ${VAR:default} as raw text,
// before any YAML parsing happens.
func interpolateEnvVars(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := sub[1], sub[2] != "", sub[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
}

// Load reads and decodes path. A missing file returns an empty Document and
// a nil error (matching the original's "seed defaults, don't fail the
// process over an absent config file" posture); a present-but-unparsable
// or disallowed-key file returns an error, since a config the author wrote
// but got wrong should not silently vanish into defaults.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{Config: map[string]any{}, State: map[string]any{}}, nil
		}
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	interpolated := interpolateEnvVars(string(raw))

	var generic map[string]any
	if err := yaml.Unmarshal([]byte(interpolated), &generic); err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for key := range generic {
		if !allowedTopLevelKeys[key] {
			return Document{}, fmt.Errorf("%s: top-level key %q is not allowed", path, key)
		}
	}

	var doc Document
	if err := yaml.Unmarshal([]byte(interpolated), &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if doc.Config == nil {
		doc.Config = map[string]any{}
	}
	if doc.State == nil {
		doc.State = map[string]any{}
	}
	return doc, nil
}
