// Package registry holds the static, read-only-after-init table of
// configured data sources: for each (type, version) pair it resolves the
// connector class, connector module, function module, and connection
// constants that the planner and engine need. Modeled on the teacher's
// archive/immcache local cache, resolved (type, version) lookups are kept
// in a bounded LRU in front of the exact and wildcard maps.
package registry

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/function"
	"github.com/fedsql/fedsql/qerr"
)

// Class is the coarse shape a data source belongs to.
type Class string

const (
	Relational Class = "relational"
	File       Class = "file"
	WebAPI     Class = "web_api"
)

// Entry is one configured (type, version) binding.
type Entry struct {
	Name       string // data_source_name as it appears in query text and config
	Type       string // e.g. "PostgreSQL", "csv", "webapi"
	Version    string // exact version string, or "" for the wildcard fallback
	Class      Class
	Connector  connector.Connector
	FuncModule function.Module
	Constants  map[string]string
}

type key struct {
	typ, version string
}

// Registry resolves configured data sources by (type, version) and by
// name. It is built once at startup from configuration and never mutated
// afterward; concurrent reads need no lock beyond the LRU's own.
type Registry struct {
	byName     map[string]*Entry
	exact      map[key]*Entry
	wildcard   map[string]*Entry // type -> wildcard-version entry
	resolveLRU *lru.Cache[key, *Entry]
}

// New builds a Registry from a fully-resolved entry list, deduplicating on
// (type, version) and on name. A duplicate name is a configuration error.
func New(entries []*Entry, cacheSize int) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	c, err := lru.New[key, *Entry](cacheSize)
	if err != nil {
		return nil, qerr.E(qerr.InternalError, err)
	}
	r := &Registry{
		byName:     make(map[string]*Entry, len(entries)),
		exact:      make(map[key]*Entry, len(entries)),
		wildcard:   make(map[string]*Entry),
		resolveLRU: c,
	}
	for _, e := range entries {
		if _, dup := r.byName[e.Name]; dup {
			return nil, qerr.E(qerr.InternalError, "duplicate data source name: "+e.Name)
		}
		r.byName[e.Name] = e
		if e.Version == "" {
			r.wildcard[e.Type] = e
			continue
		}
		r.exact[key{e.Type, e.Version}] = e
	}
	return r, nil
}

// Resolve finds the connector entry for a (type, version) pair, falling
// back to the type's wildcard-version entry when no exact match exists.
func (r *Registry) Resolve(typ, version string) (*Entry, error) {
	k := key{typ, version}
	if e, ok := r.resolveLRU.Get(k); ok {
		return e, nil
	}
	e, ok := r.exact[k]
	if !ok {
		e, ok = r.wildcard[typ]
	}
	if !ok {
		return nil, qerr.E(qerr.NotFound, "no connector configured for "+typ+" "+version)
	}
	r.resolveLRU.Add(k, e)
	return e, nil
}

// ByName resolves a configured data source by the name used in query text.
func (r *Registry) ByName(name string) (*Entry, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, qerr.E(qerr.ValidationError, "Data source(s) do not exist: "+name)
	}
	return e, nil
}

// FunctionModule returns the function capability module bound to a named
// data source, used by the planner's classify-functions stage.
func (r *Registry) FunctionModule(dataSourceName string) (function.Module, error) {
	e, err := r.ByName(dataSourceName)
	if err != nil {
		return nil, err
	}
	return e.FuncModule, nil
}
