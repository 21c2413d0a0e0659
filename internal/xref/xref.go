// Package xref resolves cross-reference targets against the symbol registry.
package xref

import (
	"github.com/phobologic/ddoc/internal/model"
	"github.com/phobologic/ddoc/internal/registry"
)

// Target is the registry entry a reference resolved to.
type Target struct {
	Name string // fully-qualified name that matched
	Doc  string
	Kind model.SymbolKind
}

// Resolver looks reference targets up in a registry.
type Resolver struct {
	reg registry.Lookuper
}

// NewResolver returns a Resolver reading from reg.
func NewResolver(reg registry.Lookuper) *Resolver {
	return &Resolver{reg: reg}
}

// Candidates returns the names tried for target, in order. The bare target
// always comes first, ahead of the name qualified by scope.
func Candidates(target, scope string) []string {
	if scope == "" {
		return []string{target}
	}
	return []string{target, scope + "." + target}
}

// Resolve returns the first candidate found in the registry. The kind hint
// does not filter candidates. A miss is reported with false, not an error.
func (r *Resolver) Resolve(kind model.SymbolKind, target, scope string) (Target, bool) {
	for _, name := range Candidates(target, scope) {
		if e, ok := r.reg.Lookup(name); ok {
			return Target{Name: name, Doc: e.Doc, Kind: e.Kind}, true
		}
	}
	return Target{}, false
}

// ResolveRef resolves ref using the scope captured with it.
func (r *Resolver) ResolveRef(ref model.Reference) (Target, bool) {
	return r.Resolve(ref.Kind, ref.Target, ref.Scope)
}
