// Package build runs the two-pass documentation build: every document's
// declarations are registered first, then every reference is resolved.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/ddoc/internal/decl"
	"github.com/phobologic/ddoc/internal/discover"
	"github.com/phobologic/ddoc/internal/markup"
	"github.com/phobologic/ddoc/internal/model"
	"github.com/phobologic/ddoc/internal/parse"
	"github.com/phobologic/ddoc/internal/registry"
	"github.com/phobologic/ddoc/internal/xref"
)

// DefaultMaxFileSize is the size above which documents are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// Options configures a Builder.
type Options struct {
	Domain      string
	MaxFileSize int64
	Workers     int  // parse workers; 0 means GOMAXPROCS
	Nitpicky    bool // log every unresolved reference
	Logger      *slog.Logger
}

// Builder builds a model.Site from documentation files.
type Builder struct {
	opts      Options
	extractor *parse.Extractor
	log       *slog.Logger
}

// New returns a Builder.
func New(opts Options) *Builder {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{
		opts:      opts,
		extractor: parse.New(opts.Domain),
		log:       log,
	}
}

// Build parses files under root, registers their declarations into reg and
// resolves their references. reg may already hold entries from an earlier
// build; they take part in resolution and are overwritten on collision.
func (b *Builder) Build(ctx context.Context, root string, files []discover.FileEntry, reg registry.Registry) (*model.Site, error) {
	files = b.filterBySize(root, files)

	docs, diags, err := b.Parse(ctx, root, files)
	if err != nil {
		return nil, err
	}

	refs, declDiags, err := Index(ctx, reg, docs)
	if err != nil {
		return nil, err
	}
	diags = append(diags, declDiags...)

	links, unresolved := Resolve(xref.NewResolver(reg), refs)
	if b.opts.Nitpicky {
		for _, ref := range unresolved {
			b.log.Warn("unresolved reference",
				"doc", ref.Doc, "line", ref.Line, "role", ref.Role, "target", ref.Target, "scope", ref.Scope)
		}
	}
	for _, d := range diags {
		b.log.Warn(d.Message, "doc", d.Doc, "line", d.Line)
	}
	b.log.Info("build finished",
		"docs", len(docs), "links", len(links), "unresolved", len(unresolved), "diagnostics", len(diags))

	return &model.Site{
		Name:        filepath.Base(root),
		Root:        filepath.Base(root),
		Docs:        docs,
		Links:       links,
		Unresolved:  unresolved,
		Diagnostics: diags,
	}, nil
}

// Index is the registration pass. Documents are processed in order, each
// with its own scope; every reference is stamped with the scope open where
// it was read. A failed declaration becomes a diagnostic and processing
// continues. Index returns the references still to be resolved.
func Index(ctx context.Context, reg registry.Registry, docs []model.DocInfo) ([]model.Reference, []model.Diagnostic, error) {
	var refs []model.Reference
	var diags []model.Diagnostic

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc := &docs[i]
		name := discover.DocName(doc.Path)
		p := decl.NewProcessor(reg, name)

		for _, ev := range doc.Events {
			switch {
			case ev.Decl != nil:
				if _, err := p.Process(*ev.Decl); err != nil {
					diags = append(diags, diagnostic(name, ev.Decl.Line, err))
				}
			case ev.Ref != nil:
				ref := *ev.Ref
				ref.Doc = name
				ref.Scope = p.Scope()
				refs = append(refs, ref)
			}
		}
		doc.Symbols = p.Symbols()
	}
	return refs, diags, nil
}

// Resolve is the resolution pass. Misses are returned separately; they are
// not errors.
func Resolve(r *xref.Resolver, refs []model.Reference) ([]model.Link, []model.Reference) {
	var links []model.Link
	var unresolved []model.Reference
	for _, ref := range refs {
		t, ok := r.ResolveRef(ref)
		if !ok {
			unresolved = append(unresolved, ref)
			continue
		}
		links = append(links, model.Link{Reference: ref, Resolved: t.Name, TargetDoc: t.Doc})
	}
	return links, unresolved
}

func diagnostic(doc string, line int, err error) model.Diagnostic {
	msg := err.Error()
	var de *decl.Error
	if errors.As(err, &de) {
		msg = fmt.Sprintf("%s %q: %v", de.Kind, de.Signature, de.Err)
	}
	return model.Diagnostic{Doc: doc, Line: line, Message: msg}
}

func (b *Builder) filterBySize(root string, files []discover.FileEntry) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > b.opts.MaxFileSize {
			b.log.Warn("skipped large document", "path", f.Path, "limit", b.opts.MaxFileSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// Parse reads and extracts files concurrently, returning documents in the
// order of files. Unreadable files are logged and dropped.
func (b *Builder) Parse(ctx context.Context, root string, files []discover.FileEntry) ([]model.DocInfo, []model.Diagnostic, error) {
	type result struct {
		index int
		info  model.DocInfo
		diags []model.Diagnostic
		ok    bool
	}

	if len(files) == 0 {
		return nil, nil, nil
	}

	numWorkers := b.opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parsers
			parsers := make(map[string]*sitter.Parser)

			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				f := files[idx]
				format := markup.Formats[f.Format]
				if format == nil {
					b.log.Warn("unsupported format", "path", f.Path, "format", f.Format)
					continue
				}
				parser, ok := parsers[f.Format]
				if !ok {
					parser = format.NewParser()
					parsers[f.Format] = parser
				}

				source, err := os.ReadFile(filepath.Join(root, f.Path))
				if err != nil {
					b.log.Warn("failed to read document", "path", f.Path, "err", err)
					continue
				}

				events, diags, err := b.extractor.Extract(ctx, format, parser, source, discover.DocName(f.Path))
				if err != nil {
					b.log.Warn("failed to parse document", "path", f.Path, "err", err)
					continue
				}
				results <- result{
					index: idx,
					info: model.DocInfo{
						Path:   f.Path,
						Format: f.Format,
						Events: events,
					},
					diags: diags,
					ok:    true,
				}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]result, len(files))
	for r := range results {
		indexed[r.index] = r
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var docs []model.DocInfo
	var diags []model.Diagnostic
	for _, r := range indexed {
		if r.ok {
			docs = append(docs, r.info)
			diags = append(diags, r.diags...)
		}
	}
	return docs, diags, nil
}
