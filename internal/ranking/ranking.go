// Package ranking narrows a built site for focused reports.
package ranking

import (
	"strings"

	"github.com/phobologic/ddoc/internal/discover"
	"github.com/phobologic/ddoc/internal/model"
)

// SelectDocs returns a new Site with only the top-ranked documents.
// If maxDocs is <= 0 or >= len(docs), the site is returned unchanged.
func SelectDocs(site *model.Site, maxDocs int) *model.Site {
	if maxDocs <= 0 || maxDocs >= len(site.Docs) {
		return site
	}

	selected := site.Docs[:maxDocs]
	names := make(map[string]struct{}, maxDocs)
	for i := range selected {
		names[discover.DocName(selected[i].Path)] = struct{}{}
	}

	return narrow(site, selected, names, func(src, tgt bool) bool { return src && tgt })
}

// FilterBySymbol returns a new Site with the documents that declare a
// symbol whose fully-qualified name contains substr (case-insensitive),
// trimmed to those symbols, plus the links and references touching them.
func FilterBySymbol(site *model.Site, substr string) *model.Site {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	names := make(map[string]struct{})
	var docs []model.DocInfo
	for i := range site.Docs {
		d := site.Docs[i]
		var syms []model.Symbol
		for _, s := range d.Symbols {
			if strings.Contains(strings.ToLower(s.Name), lower) {
				syms = append(syms, s)
				matched[s.Name] = struct{}{}
			}
		}
		if len(syms) > 0 {
			d.Symbols = syms
			docs = append(docs, d)
			names[discover.DocName(d.Path)] = struct{}{}
		}
	}

	out := &model.Site{Name: site.Name, Root: site.Root, Docs: docs}
	for _, l := range site.Links {
		if _, ok := matched[l.Resolved]; ok {
			out.Links = append(out.Links, l)
		}
	}
	for _, r := range site.Unresolved {
		if strings.Contains(strings.ToLower(r.Target), lower) {
			out.Unresolved = append(out.Unresolved, r)
		}
	}
	for _, d := range site.Dependencies {
		var syms []string
		for _, s := range d.Symbols {
			if _, ok := matched[s]; ok {
				syms = append(syms, s)
			}
		}
		if len(syms) > 0 {
			d.Symbols = syms
			out.Dependencies = append(out.Dependencies, d)
		}
	}
	for _, dg := range site.Diagnostics {
		if _, ok := names[dg.Doc]; ok {
			out.Diagnostics = append(out.Diagnostics, dg)
		}
	}
	return out
}

// FilterByDoc returns a new Site containing only documents whose path
// contains substr (case-insensitive), with every link, dependency and
// diagnostic touching them.
func FilterByDoc(site *model.Site, substr string) *model.Site {
	lower := strings.ToLower(substr)

	names := make(map[string]struct{})
	var docs []model.DocInfo
	for i := range site.Docs {
		if strings.Contains(strings.ToLower(site.Docs[i].Path), lower) {
			names[discover.DocName(site.Docs[i].Path)] = struct{}{}
			docs = append(docs, site.Docs[i])
		}
	}

	return narrow(site, docs, names, func(src, tgt bool) bool { return src || tgt })
}

// narrow keeps docs and every edge accepted by keep, which is told whether
// the source and target documents are in names.
func narrow(site *model.Site, docs []model.DocInfo, names map[string]struct{}, keep func(src, tgt bool) bool) *model.Site {
	in := func(doc string) bool {
		_, ok := names[doc]
		return ok
	}

	out := &model.Site{Name: site.Name, Root: site.Root, Docs: docs}
	for _, l := range site.Links {
		if keep(in(l.Doc), in(l.TargetDoc)) {
			out.Links = append(out.Links, l)
		}
	}
	for _, r := range site.Unresolved {
		if in(r.Doc) {
			out.Unresolved = append(out.Unresolved, r)
		}
	}
	for _, d := range site.Dependencies {
		if keep(in(d.Source), in(d.Target)) {
			out.Dependencies = append(out.Dependencies, d)
		}
	}
	for _, dg := range site.Diagnostics {
		if in(dg.Doc) {
			out.Diagnostics = append(out.Diagnostics, dg)
		}
	}
	return out
}
