// Package model defines the discovered data shapes Brimley scans files
// into: function records (native, SQL, template flavors), entity records,
// and the argument field-spec / return-shape grammar that sits on top of
// the canonical type grammar in internal/types.
package model

import "fmt"

// FunctionType tags which runner a FunctionRecord dispatches to.
type FunctionType string

const (
	FunctionNative   FunctionType = "native_function"
	FunctionSQL      FunctionType = "sql_function"
	FunctionTemplate FunctionType = "template_function"
)

// FieldSpec is the argument field-spec grammar: either a bare type
// expression (implies required, no default) or a fully elaborated map.
// Produced by the frontmatter parsers directly from YAML, so every field
// is optional on the struct and Required/HasDefault track whether the
// author actually wrote them.
type FieldSpec struct {
	Type        string
	Default     any
	HasDefault  bool
	Description string
	FromContext string // dotted path into the context; "" means none
	Enum        []any
	Min         *float64
	Max         *float64
	Pattern     string
	Required    bool
}

// ReturnShape is either a bare type expression, an entity reference, or an
// inline ad-hoc record shape. Exactly one of these is populated.
type ReturnShape struct {
	TypeExpr  string               // e.g. "string", "int[]"
	EntityRef string               // {entity_ref: name}
	Inline    map[string]FieldSpec // {inline: {field: spec}}
}

func (r ReturnShape) IsEntityRef() bool { return r.EntityRef != "" }
func (r ReturnShape) IsInline() bool    { return r.Inline != nil }
func (r ReturnShape) IsTypeExpr() bool  { return r.TypeExpr != "" }

// MCPExport marks a function for tool-export, per SPEC_FULL.md §6.
type MCPExport struct {
	Type        string // always "tool" when present
	Description string
}

// Common carries the fields shared by all three function flavors.
type Common struct {
	Name            string
	CanonicalID     string
	SourcePath      string
	Description     string
	Arguments       map[string]FieldSpec
	ReturnShape     ReturnShape
	MCP             *MCPExport
	TimeoutSeconds  *float64
}

func (c Common) RegistryName() string { return c.Name }

// NativeFunction is a function backed by a registered Go handler.
type NativeFunction struct {
	Common
	Handler string // dotted canonical-id-style handler reference
	Reload  bool
}

// SQLFunction is a function backed by a SQL statement.
type SQLFunction struct {
	Common
	Connection string
	SQLBody    string
}

// TemplateFunction is a function backed by a rendered template.
type TemplateFunction struct {
	Common
	TemplateEngine string
	TemplateBody   string
	Messages       []map[string]any
}

// Function is the tagged union of the three function flavors, stored in
// the function registry. Exactly one of the typed fields is non-nil.
type Function struct {
	Type     FunctionType
	Native   *NativeFunction
	SQL      *SQLFunction
	Template *TemplateFunction
}

// RegistryName satisfies registry.Named.
func (f Function) RegistryName() string { return f.common().Name }

// common returns the shared fields regardless of flavor.
func (f Function) common() Common {
	switch f.Type {
	case FunctionNative:
		return f.Native.Common
	case FunctionSQL:
		return f.SQL.Common
	case FunctionTemplate:
		return f.Template.Common
	default:
		return Common{}
	}
}

// CommonFields exposes the shared fields for callers outside this package.
func (f Function) CommonFields() Common { return f.common() }

func NewNative(n NativeFunction) Function    { return Function{Type: FunctionNative, Native: &n} }
func NewSQL(s SQLFunction) Function          { return Function{Type: FunctionSQL, SQL: &s} }
func NewTemplate(t TemplateFunction) Function { return Function{Type: FunctionTemplate, Template: &t} }

// EntityKind distinguishes declarative (frozen field map) entities from
// native entities (shape resolved by a registered handler).
type EntityKind string

const (
	EntityDeclarative EntityKind = "declarative"
	EntityNative      EntityKind = "native"
)

// Entity is a discovered or built-in entity shape.
type Entity struct {
	Name          string
	Kind          EntityKind
	CanonicalID   string
	Handler       string // native entities only
	RawDefinition map[string]FieldSpec
}

func (e Entity) RegistryName() string { return e.Name }

// ReservedFunctionNames are never valid function names, per SPEC_FULL.md §3.
var ReservedFunctionNames = map[string]bool{
	"help": true, "quit": true, "exit": true, "reset": true, "reload": true,
	"settings": true, "config": true, "state": true, "functions": true,
	"entities": true, "databases": true, "errors": true,
}

// IsReservedFunctionName reports whether name collides with a reserved word.
func IsReservedFunctionName(name string) bool {
	return ReservedFunctionNames[name]
}

// BuildCanonicalID assembles the stable canonical_id
// "{kind}:{path-relative-to-root-posix}:{symbol}".
func BuildCanonicalID(kind, relPathPosix, symbol string) string {
	return fmt.Sprintf("%s:%s:%s", kind, relPathPosix, symbol)
}
