// Package mcpexport computes the deterministic schema signature for
// tool-exported functions and defines the dispatchable wrapper
// interface a host embeds to serve them over whatever transport it
// chooses. The actual wire protocol (stdio/streamable-HTTP JSON-RPC)
// is out of scope — see SPEC_FULL.md's DOMAIN STACK section for why
// github.com/modelcontextprotocol/go-sdk is deliberately not wired
// here.
package mcpexport

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/farkelheizen/brimley/internal/model"
)

// ErrClientActionRequired is the typed error for a tool that cannot be
// served until the client acts, naming the tool and the fields concerned.
// No function in this module returns it; there is no tool refresh step
// here. Per SPEC_FULL.md §9's second Open Question, this is
// surfaced as a typed error rather than folded into a generic
// validation failure, so a host can special-case it (e.g. by prompting
// the human in the loop) without string-matching an error message.
type ErrClientActionRequired struct {
	Tool          string
	MissingFields []string
}

func (e *ErrClientActionRequired) Error() string {
	return fmt.Sprintf("tool %q requires client action to supply: %v", e.Tool, e.MissingFields)
}

// InputSchemaProperty is one property of the advertised JSON Schema for
// a tool's input. from_context fields are never advertised: a client
// has no business knowing about, let alone supplying, a value the
// runtime injects itself.
type InputSchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// InputSchema is a minimal JSON-Schema-object rendering of a function's
// advertised arguments, omitting from_context fields entirely.
type InputSchema struct {
	Type       string                          `json:"type"`
	Properties map[string]InputSchemaProperty `json:"properties"`
	Required   []string                        `json:"required,omitempty"`
}

// BuildInputSchema projects fn's Arguments into an InputSchema, dropping
// any field with FromContext set.
func BuildInputSchema(fn model.Common) InputSchema {
	schema := InputSchema{Type: "object", Properties: map[string]InputSchemaProperty{}}
	for name, spec := range fn.Arguments {
		if spec.FromContext != "" {
			continue
		}
		schema.Properties[name] = InputSchemaProperty{Type: spec.Type, Description: spec.Description}
		if spec.Required && !spec.HasDefault {
			schema.Required = append(schema.Required, name)
		}
	}
	sort.Strings(schema.Required)
	return schema
}

// SchemaSignature computes the deterministic
// sha256("{tool}:{sorted-key JSON of input_schema}") signature a host
// uses to detect whether a tool's advertised contract changed across a
// reload, without needing to diff the full schema by hand.
func SchemaSignature(toolName string, schema InputSchema) (string, error) {
	canonical, err := marshalSorted(schema)
	if err != nil {
		return "", fmt.Errorf("schema signature: %w", err)
	}
	sum := sha256.Sum256([]byte(toolName + ":" + canonical))
	return hex.EncodeToString(sum[:]), nil
}

// marshalSorted re-marshals v through a generic map so object keys come
// out lexicographically sorted, making the signature stable regardless
// of struct field declaration order.
func marshalSorted(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	sorted, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(sorted), nil
}

// Tool is the exported shape of a tool-exported function: everything a
// dispatchable wrapper needs to advertise and validate a call without
// reaching back into the discovery/model packages.
type Tool struct {
	Name        string
	Description string
	InputSchema InputSchema
	Signature   string
}

// BuildTool assembles a Tool from fn, which must have a non-nil MCP
// export marker (callers partition tool-exports before calling this —
// see internal/reload.partitionTools).
func BuildTool(fn model.Function) (Tool, error) {
	common := fn.CommonFields()
	schema := BuildInputSchema(common)
	sig, err := SchemaSignature(common.Name, schema)
	if err != nil {
		return Tool{}, err
	}
	desc := common.Description
	if common.MCP != nil && common.MCP.Description != "" {
		desc = common.MCP.Description
	}
	return Tool{Name: common.Name, Description: desc, InputSchema: schema, Signature: sig}, nil
}

// Dispatcher is the interface a host embeds to serve tool-exported
// functions over whatever transport it chooses. Invoke receives the
// caller-supplied arguments already merged with any client-side
// context the host's transport provides; it is responsible for
// routing into internal/dispatch.Dispatcher.Run and translating
// ErrClientActionRequired into whatever the host's protocol uses to
// signal "I need more from you before I can finish this call".
type Dispatcher interface {
	Tools() ([]Tool, error)
	Invoke(toolName string, args map[string]any) (any, error)
}
