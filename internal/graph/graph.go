// Package graph builds the document dependency graph from resolved
// cross-references and ranks documents with PageRank.
package graph

import (
	"errors"
	"math"
	"sort"

	dgraph "github.com/dominikbraun/graph"

	"github.com/phobologic/ddoc/internal/discover"
	"github.com/phobologic/ddoc/internal/model"
)

// BuildGraph creates document dependency edges from resolved links. An edge
// runs from the linking document to the document that declares the target.
func BuildGraph(links []model.Link) []model.Dependency {
	type edgeKey struct{ src, tgt string }
	edgeSymbols := make(map[edgeKey][]string)

	for i := range links {
		l := &links[i]
		if l.Doc == l.TargetDoc {
			continue // no self-edges
		}
		key := edgeKey{l.Doc, l.TargetDoc}
		// Only add symbol if not already present
		if !contains(edgeSymbols[key], l.Resolved) {
			edgeSymbols[key] = append(edgeSymbols[key], l.Resolved)
		}
	}

	var deps []model.Dependency
	for key, syms := range edgeSymbols {
		sort.Strings(syms)
		deps = append(deps, model.Dependency{
			Source:  key.src,
			Target:  key.tgt,
			Symbols: syms,
		})
	}

	// Sort for deterministic output
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})

	return deps
}

// DocGraph returns the directed document graph. Vertices are document names;
// edge weights count the distinct symbols linked. Dependencies touching a
// document outside docs (such as one loaded from a saved registry) add that
// document as a vertex.
func DocGraph(docs []model.DocInfo, deps []model.Dependency) (dgraph.Graph[string, string], error) {
	g := dgraph.New(dgraph.StringHash, dgraph.Directed())

	addVertex := func(v string) error {
		if err := g.AddVertex(v); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return err
		}
		return nil
	}

	for i := range docs {
		if err := addVertex(discover.DocName(docs[i].Path)); err != nil {
			return nil, err
		}
	}
	for _, d := range deps {
		if err := addVertex(d.Source); err != nil {
			return nil, err
		}
		if err := addVertex(d.Target); err != nil {
			return nil, err
		}
		if err := g.AddEdge(d.Source, d.Target, dgraph.EdgeWeight(len(d.Symbols))); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Rank applies PageRank to docs and sorts them by rank descending.
func Rank(docs []model.DocInfo, deps []model.Dependency) error {
	if len(docs) == 0 {
		return nil
	}

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(docs))
		for i := range docs {
			docs[i].Rank = uniform
		}
		return nil
	}

	g, err := DocGraph(docs, deps)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	ranks := pageRank(adj, 0.85, 100, 1e-6)

	for i := range docs {
		docs[i].Rank = ranks[discover.DocName(docs[i].Path)]
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Rank > docs[j].Rank
	})
	return nil
}

// pageRank runs weighted PageRank over an adjacency map. Each edge carries
// rank in proportion to its weight.
func pageRank(adj map[string]map[string]dgraph.Edge[string], alpha float64, maxIter int, tol float64) map[string]float64 {
	n := len(adj)
	if n == 0 {
		return nil
	}

	outDegree := make(map[string]float64, n)
	for src, targets := range adj {
		for _, e := range targets {
			outDegree[src] += float64(weight(e))
		}
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range adj {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range adj {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range adj {
			newRank[node] = teleport + danglingContrib
		}

		// Distribute rank through edges
		for src, targets := range adj {
			deg := outDegree[src]
			if deg == 0 {
				continue
			}
			for tgt, e := range targets {
				newRank[tgt] += alpha * rank[src] * float64(weight(e)) / deg
			}
		}

		// Check convergence
		var diff float64
		for node := range adj {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func weight(e dgraph.Edge[string]) int {
	if e.Properties.Weight <= 0 {
		return 1
	}
	return e.Properties.Weight
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
