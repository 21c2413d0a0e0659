// Package registry holds the build-wide table of fully-qualified symbol names.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/phobologic/ddoc/internal/model"
)

// Lookuper finds the entry registered under a fully-qualified name.
type Lookuper interface {
	Lookup(fullName string) (model.Entry, bool)
}

// Registry is an append-only symbol table. Registering an existing name
// overwrites it.
type Registry interface {
	Lookuper
	Register(fullName, doc string, kind model.SymbolKind)
}

// Record is one registry row.
type Record struct {
	Name string
	model.Entry
}

// Memory is an in-memory Registry. Writes are atomic per key, so documents
// may register concurrently.
type Memory struct {
	entries sync.Map // string -> model.Entry
	size    atomic.Int64
}

// New returns an empty registry.
func New() *Memory {
	return &Memory{}
}

// Register upserts fullName.
func (m *Memory) Register(fullName, doc string, kind model.SymbolKind) {
	if _, loaded := m.entries.Swap(fullName, model.Entry{Doc: doc, Kind: kind}); !loaded {
		m.size.Add(1)
	}
}

// Lookup returns the entry for fullName.
func (m *Memory) Lookup(fullName string) (model.Entry, bool) {
	v, ok := m.entries.Load(fullName)
	if !ok {
		return model.Entry{}, false
	}
	return v.(model.Entry), true
}

// Len returns the number of distinct names.
func (m *Memory) Len() int {
	return int(m.size.Load())
}

// Records returns a snapshot sorted by name.
func (m *Memory) Records() []Record {
	var recs []Record
	m.entries.Range(func(k, v any) bool {
		recs = append(recs, Record{Name: k.(string), Entry: v.(model.Entry)})
		return true
	})
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Name < recs[j].Name
	})
	return recs
}

// Merge registers every record into r in order, so later records win.
func Merge(r Registry, recs []Record) {
	for _, rec := range recs {
		r.Register(rec.Name, rec.Doc, rec.Kind)
	}
}
