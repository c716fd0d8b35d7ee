// Package runtime aggregates the process-lifetime state a running Brimley
// instance needs: settings, mutable application state, the swappable
// function/entity registries, and external resources (databases). This is
// the "Context" of SPEC_FULL.md §3/§9 — a typed aggregate with well-defined
// accessors, not a wildcard-attribute object.
package runtime

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/farkelheizen/brimley/internal/config"
	"github.com/farkelheizen/brimley/internal/model"
	"github.com/farkelheizen/brimley/internal/registry"
)

// ExternalContext marks the presence of an external-host (tool-protocol)
// invocation context, per SPEC_FULL.md §4.6/§4.7. The dispatcher's fastpath
// triggers whenever a non-nil *ExternalContext accompanies a native call.
// Fields are intentionally minimal; the host-specific payload lives behind
// Raw, since the actual tool-server transport is out of core scope.
type ExternalContext struct {
	Raw any
}

// Context is the process-lifetime aggregate described in SPEC_FULL.md §3.
// Registries are held behind atomic pointers so a reload can publish a new
// one with a single atomic store while in-flight calls keep reading the
// snapshot they loaded at call start (SPEC_FULL.md §5).
type Context struct {
	Settings       config.BrimleySettings
	Config         map[string]any
	MCPSettings    config.MCPSettings
	AutoReload     config.AutoReloadSettings
	Execution      config.ExecutionSettings

	databasesMu sync.RWMutex
	databases   map[string]*sql.DB

	// App is free-form mutable application state, explicitly unsynchronized
	// per SPEC_FULL.md §5 — handlers sharing it must coordinate themselves.
	App map[string]any

	functions *atomic.Pointer[registry.Registry[model.Function]]
	entities  *atomic.Pointer[registry.Registry[model.Entity]]
}

// NewContext builds an empty Context with empty initial registries.
func NewContext() *Context {
	c := &Context{
		Config:    map[string]any{},
		App:       map[string]any{},
		databases: map[string]*sql.DB{},
		functions: &atomic.Pointer[registry.Registry[model.Function]]{},
		entities:  &atomic.Pointer[registry.Registry[model.Entity]]{},
	}
	c.functions.Store(registry.New[model.Function]())
	c.entities.Store(registry.New[model.Entity]())
	return c
}

// Functions returns the registry snapshot current at the time of the call.
func (c *Context) Functions() *registry.Registry[model.Function] { return c.functions.Load() }

// Entities returns the registry snapshot current at the time of the call.
func (c *Context) Entities() *registry.Registry[model.Entity] { return c.entities.Load() }

// SwapFunctions atomically publishes a new functions registry.
func (c *Context) SwapFunctions(r *registry.Registry[model.Function]) { c.functions.Store(r) }

// SwapEntities atomically publishes a new entities registry.
func (c *Context) SwapEntities(r *registry.Registry[model.Entity]) { c.entities.Store(r) }

// GetEntity satisfies resultmap.EntityLookup.
func (c *Context) GetEntity(name string) (model.Entity, error) {
	return c.Entities().Get(name)
}

// Database returns the named connection and whether one is registered
// under that name.
func (c *Context) Database(name string) (*sql.DB, bool) {
	c.databasesMu.RLock()
	defer c.databasesMu.RUnlock()
	db, ok := c.databases[name]
	return db, ok
}

// SetDatabase registers a connection under name, replacing any prior one.
func (c *Context) SetDatabase(name string, db *sql.DB) {
	c.databasesMu.Lock()
	defer c.databasesMu.Unlock()
	c.databases[name] = db
}

// AppState performs a strict (error-if-missing) lookup into App, matching
// the original's Annotated[T, AppState(key)] DI marker.
func (c *Context) AppState(key string) (any, error) {
	v, ok := c.App[key]
	if !ok {
		return nil, fmt.Errorf("app state key %q is not set", key)
	}
	return v, nil
}

// ConfigValue performs a strict lookup into Config, matching
// Annotated[T, Config(key)].
func (c *Context) ConfigValue(key string) (any, error) {
	v, ok := c.Config[key]
	if !ok {
		return nil, fmt.Errorf("config key %q is not set", key)
	}
	return v, nil
}

// GetPath resolves a dotted path ("app.x.y", "config.k", "databases.k")
// against the context, satisfying args.ContextSource. Only the three
// documented roots are supported; anything else is "not found" rather
// than an error, since from_context authors only ever reference these.
func (c *Context) GetPath(path string) (any, bool) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return nil, false
	}
	switch parts[0] {
	case "app":
		return walk(c.App, parts[1:])
	case "config":
		return walk(c.Config, parts[1:])
	case "databases":
		if len(parts) != 2 {
			return nil, false
		}
		_, ok := c.Database(parts[1])
		if !ok {
			return nil, false
		}
		return parts[1], true
	default:
		return nil, false
	}
}

func walk(root map[string]any, rest []string) (any, bool) {
	var cur any = root
	for _, key := range rest {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	if len(rest) == 0 {
		return root, true
	}
	return cur, true
}
