// Package parse extracts the ordered stream of declaration directives and
// cross-reference roles from documentation sources.
package parse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/ddoc/internal/markup"
	"github.com/phobologic/ddoc/internal/model"
)

// DefaultDomain is the directive and role prefix, as in ".. d:class::".
const DefaultDomain = "d"

var (
	titleTargetRe = regexp.MustCompile(`^(.*?)\s*<([^<>]+)>$`)
	optionRe      = regexp.MustCompile(`^:([\w-]+):\s*(.*)$`)
)

// Extractor reads directives and roles for one domain prefix. It is safe for
// concurrent use; tree-sitter parsers passed to Extract are not.
type Extractor struct {
	domain    string
	rstDirRe  *regexp.Regexp
	rstRoleRe *regexp.Regexp
	mdFenceRe *regexp.Regexp
	mdRoleRe  *regexp.Regexp
}

// New returns an Extractor for domain, or DefaultDomain if domain is empty.
func New(domain string) *Extractor {
	if domain == "" {
		domain = DefaultDomain
	}
	d := regexp.QuoteMeta(domain)
	return &Extractor{
		domain:    domain,
		rstDirRe:  regexp.MustCompile(`^(\s*)\.\.\s+` + d + `:(\w+)::(.*)$`),
		rstRoleRe: regexp.MustCompile(`:` + d + `:(\w+):` + "`([^`]+)`"),
		mdFenceRe: regexp.MustCompile(`^\{` + d + `:(\w+)\}(.*)$`),
		mdRoleRe:  regexp.MustCompile(`\{` + d + `:(\w+)\}` + "`([^`]+)`"),
	}
}

// Domain returns the prefix this Extractor matches.
func (e *Extractor) Domain() string {
	return e.domain
}

// Extract parses source in format f and returns its events in document order
// together with any problems found. parser must be created by f.NewParser
// and may be nil for formats without a grammar. doc is stamped on every
// reference and diagnostic.
func (e *Extractor) Extract(ctx context.Context, f *markup.Format, parser *sitter.Parser, source []byte, doc string) ([]model.Event, []model.Diagnostic, error) {
	if len(source) == 0 {
		return nil, nil, nil
	}
	s := &stream{doc: doc}
	switch f.Name {
	case markup.RST:
		e.extractRST(s, source)
	case markup.Markdown:
		if parser == nil {
			return nil, nil, fmt.Errorf("%s: no parser for %s", doc, f.Name)
		}
		if err := e.extractMarkdown(ctx, s, parser, source); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("%s: unsupported format %q", doc, f.Name)
	}
	return s.events, s.diags, nil
}

// stream accumulates one document's events.
type stream struct {
	doc    string
	events []model.Event
	diags  []model.Diagnostic
}

func (s *stream) warn(line int, format string, args ...any) {
	s.diags = append(s.diags, model.Diagnostic{Doc: s.doc, Line: line, Message: fmt.Sprintf(format, args...)})
}

// directive appends a declaration for a directive named kind. Unknown kinds
// become diagnostics.
func (s *stream) directive(domain, kind string, sigs []string, opts map[string]string, line int) {
	k, ok := model.ParseKind(kind)
	if !ok {
		s.warn(line, "unknown directive %s:%s", domain, kind)
		return
	}
	_, noIndex := opts["noindex"]
	s.events = append(s.events, model.Event{Decl: &model.Declaration{
		Kind:       k,
		Signatures: sigs,
		Name:       opts["name"],
		NoIndex:    noIndex,
		Line:       line,
	}})
}

// roles appends a reference for every role match in text. line is the line
// text starts on.
func (s *stream) roles(re *regexp.Regexp, domain, text string, line int) {
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		role := text[m[2]:m[3]]
		content := text[m[4]:m[5]]
		at := line + strings.Count(text[:m[0]], "\n")

		kind, ok := model.KindForRole(role)
		if !ok {
			s.warn(at, "unknown role %s:%s", domain, role)
			continue
		}
		title, target := SplitTitle(content)
		if target == "" {
			s.warn(at, "empty target in %s:%s role", domain, role)
			continue
		}
		s.events = append(s.events, model.Event{Ref: &model.Reference{
			Role:   role,
			Kind:   kind,
			Target: target,
			Title:  title,
			Doc:    s.doc,
			Line:   at,
		}})
	}
}

// SplitTitle splits role content of the form "Title <target>". Content
// without an explicit title is its own target and has no title.
func SplitTitle(content string) (title, target string) {
	content = markup.CollapseWhitespace(content)
	if m := titleTargetRe.FindStringSubmatch(content); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", content
}

// parseOptions consumes leading ":key: value" lines and returns the options
// and the number of lines consumed.
func parseOptions(lines []string) (map[string]string, int) {
	opts := make(map[string]string)
	n := 0
	for _, l := range lines {
		m := optionRe.FindStringSubmatch(strings.TrimSpace(l))
		if m == nil {
			break
		}
		opts[m[1]] = strings.TrimSpace(m[2])
		n++
	}
	return opts, n
}
