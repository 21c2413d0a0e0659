// Package decl turns declaration directives into registry entries while
// tracking the scope they open.
package decl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phobologic/ddoc/internal/model"
	"github.com/phobologic/ddoc/internal/names"
	"github.com/phobologic/ddoc/internal/registry"
	"github.com/phobologic/ddoc/internal/scope"
)

// ErrUnknownKind is returned for a declaration whose kind has no behavior.
var ErrUnknownKind = errors.New("unknown declaration kind")

type scopeEffect int

const (
	keepScope scopeEffect = iota
	openModule
	openContainer
)

// behavior is one row of the kind matrix. Name inference is looked up in
// package names.
type behavior struct {
	effect scopeEffect
	tag    model.SymbolKind // stored in the registry
}

var kinds = kindTable()

func kindTable() map[model.SymbolKind]behavior {
	t := make(map[model.SymbolKind]behavior, len(model.Kinds))
	for _, k := range model.Kinds {
		b := behavior{tag: k}
		switch {
		case k == model.Module:
			b.effect = openModule
		case k.IsContainer():
			b.effect = openContainer
		}
		t[k] = b
	}
	return t
}

// Error describes a declaration that could not be processed.
type Error struct {
	Doc       string
	Line      int
	Kind      model.SymbolKind
	Signature string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s %q: %v", e.Doc, e.Line, e.Kind, e.Signature, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Processor handles the declarations of one document in source order. It
// owns that document's scope; use a new Processor per document.
type Processor struct {
	reg     registry.Registry
	doc     string
	scope   scope.Stack
	symbols []model.Symbol
}

// NewProcessor returns a Processor registering into reg on behalf of doc.
func NewProcessor(reg registry.Registry, doc string) *Processor {
	return &Processor{reg: reg, doc: doc}
}

// Scope returns the scope currently open, or "" if none is.
func (p *Processor) Scope() string {
	s, _ := p.scope.Current()
	return s
}

// Symbols returns every signature processed so far, including no-index ones.
func (p *Processor) Symbols() []model.Symbol {
	return p.symbols
}

// Process registers d and applies its scope effect. It returns the
// fully-qualified name of the first signature. Each signature line of a
// batched declaration is registered; the shared explicit name, if any,
// applies to all of them. A failure leaves earlier registrations in place.
func (p *Processor) Process(d model.Declaration) (string, error) {
	b, ok := kinds[d.Kind]
	if !ok {
		return "", p.fail(d, firstLine(d.Signatures), ErrUnknownKind)
	}

	sigs := d.Signatures
	if len(sigs) == 0 {
		sigs = []string{""}
	}
	override := strings.TrimSpace(d.Name)

	var first, firstBare string
	for i, sig := range sigs {
		bare := override
		if bare == "" {
			n, err := names.Extract(d.Kind, sig)
			if err != nil {
				return "", p.fail(d, sig, err)
			}
			bare = n
		}

		// A module's entry is its own path; it never nests under the
		// previous module.
		full := bare
		if b.effect != openModule {
			full = p.scope.Qualify(bare)
		}

		if !d.NoIndex {
			p.reg.Register(full, p.doc, b.tag)
		}
		p.symbols = append(p.symbols, model.Symbol{
			Name:      full,
			Kind:      b.tag,
			Doc:       p.doc,
			Line:      d.Line + i,
			Signature: strings.TrimSpace(sig),
			NoIndex:   d.NoIndex,
		})

		if i == 0 {
			first, firstBare = full, bare
		}
	}

	switch b.effect {
	case openModule:
		p.scope.OpenModule(firstBare)
	case openContainer:
		if err := p.scope.OpenContainer(firstBare); err != nil {
			return "", p.fail(d, sigs[0], err)
		}
	}

	return first, nil
}

func (p *Processor) fail(d model.Declaration, sig string, err error) error {
	return &Error{Doc: p.doc, Line: d.Line, Kind: d.Kind, Signature: strings.TrimSpace(sig), Err: err}
}

func firstLine(sigs []string) string {
	if len(sigs) == 0 {
		return ""
	}
	return sigs[0]
}
