// Package model defines core data structures for ddoc.
package model

import "sort"

// SymbolKind is the kind of a documented D symbol.
type SymbolKind string

const (
	Module    SymbolKind = "module"
	Class     SymbolKind = "class"
	Struct    SymbolKind = "struct"
	Interface SymbolKind = "interface"
	Function  SymbolKind = "function"
	Template  SymbolKind = "template"
	Alias     SymbolKind = "alias"
	Enum      SymbolKind = "enum"
	Variable  SymbolKind = "variable"
)

// Kinds lists every symbol kind in declaration-table order.
var Kinds = []SymbolKind{Module, Class, Struct, Interface, Function, Template, Alias, Enum, Variable}

// roles maps cross-reference role names to the kind they point at.
var roles = map[string]SymbolKind{
	"mod":    Module,
	"class":  Class,
	"struct": Struct,
	"inter":  Interface,
	"func":   Function,
	"templ":  Template,
	"alias":  Alias,
	"enum":   Enum,
	"var":    Variable,
}

// ParseKind returns the kind for a directive name such as "class".
func ParseKind(s string) (SymbolKind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// KindForRole returns the kind a role such as "inter" refers to.
func KindForRole(role string) (SymbolKind, bool) {
	k, ok := roles[role]
	return k, ok
}

// IsContainer reports whether declarations of kind k open a nested scope.
func (k SymbolKind) IsContainer() bool {
	return k == Class || k == Struct || k == Interface
}

// RoleNames returns all role names, sorted.
func RoleNames() []string {
	names := make([]string, 0, len(roles))
	for r := range roles {
		names = append(names, r)
	}
	sort.Strings(names)
	return names
}

// Declaration is one directive occurrence in a document. A declaration may
// batch several signature lines that share a body; each gets its own entry.
type Declaration struct {
	Kind       SymbolKind
	Signatures []string
	Name       string // explicit name override, "" if absent
	NoIndex    bool
	Line       int
}

// Reference is a cross-reference role occurrence. Scope is the scope that was
// open where the role was read, "" when none was.
type Reference struct {
	Role   string
	Kind   SymbolKind
	Target string
	Title  string
	Scope  string
	Doc    string
	Line   int
}

// Event is one item of a document's ordered declaration/reference stream.
// Exactly one of Decl and Ref is set.
type Event struct {
	Decl *Declaration
	Ref  *Reference
}

// Entry is a registry value: where a symbol was declared and how it is tagged.
type Entry struct {
	Doc  string
	Kind SymbolKind
}

// Symbol is an indexed declaration as reported for a document.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Doc       string
	Line      int
	Signature string
	NoIndex   bool
}

// Link is a resolved reference.
type Link struct {
	Reference
	Resolved  string // fully-qualified name that matched
	TargetDoc string
}

// Diagnostic records a problem found while processing a document.
type Diagnostic struct {
	Doc     string
	Line    int
	Message string
}

// DocInfo holds metadata and extracted events for a single document.
type DocInfo struct {
	Path    string
	Format  string
	Events  []Event
	Symbols []Symbol
	Rank    float64
}

// Dependency is an edge in the document graph: Source links to symbols
// declared in Target.
type Dependency struct {
	Source  string
	Target  string
	Symbols []string
}

// Site is the complete result of a documentation build.
type Site struct {
	Name         string
	Root         string
	Docs         []DocInfo
	Links        []Link
	Unresolved   []Reference
	Dependencies []Dependency
	Diagnostics  []Diagnostic
}
