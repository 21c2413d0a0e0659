package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/ddoc/internal/markup"
)

// extractMarkdown reads MyST-style directives, fenced blocks whose info
// string is "{d:kind} signature", and "{d:role}`target`" roles.
func (e *Extractor) extractMarkdown(ctx context.Context, s *stream, parser *sitter.Parser, source []byte) error {
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return fmt.Errorf("%s: parsing markdown: %w", s.doc, err)
	}
	defer tree.Close()

	e.walkMarkdown(s, tree.RootNode(), source)
	return nil
}

func (e *Extractor) walkMarkdown(s *stream, node *sitter.Node, source []byte) {
	switch node.Type() {
	case "fenced_code_block":
		e.markdownFence(s, node, source)
		return
	case "inline":
		s.roles(e.mdRoleRe, e.domain, markup.NodeText(node, source), int(node.StartPoint().Row)+1)
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.walkMarkdown(s, node.NamedChild(i), source)
	}
}

// markdownFence handles one fenced block. Fences that are not directives
// are code and are skipped entirely.
func (e *Extractor) markdownFence(s *stream, node *sitter.Node, source []byte) {
	var info, body *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		switch c.Type() {
		case "info_string":
			info = c
		case "code_fence_content":
			body = c
		}
	}
	if info == nil {
		return
	}
	m := e.mdFenceRe.FindStringSubmatch(strings.TrimSpace(markup.NodeText(info, source)))
	if m == nil {
		return
	}

	var sigs []string
	if sig := strings.TrimSpace(m[2]); sig != "" {
		sigs = append(sigs, sig)
	}
	line := int(node.StartPoint().Row) + 1

	if body == nil {
		s.directive(e.domain, m[1], sigs, nil, line)
		return
	}

	lines := strings.Split(markup.NodeText(body, source), "\n")
	opts, n, err := parseYAMLOptions(lines)
	if err != nil {
		s.warn(line, "%s:%s options: %v", e.domain, m[1], err)
	}
	if n == 0 {
		opts, n = parseOptions(lines)
	}
	s.directive(e.domain, m[1], sigs, opts, line)
	s.roles(e.mdRoleRe, e.domain, strings.Join(lines[n:], "\n"), int(body.StartPoint().Row)+1+n)
}

// parseYAMLOptions reads a leading "---" delimited YAML option block. It
// returns the number of lines consumed, 0 when there is no block. A block
// that does not decode is still consumed. Flag options such as noindex may
// be empty or true; false drops them.
func parseYAMLOptions(lines []string) (map[string]string, int, error) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, 0, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, 0, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &raw); err != nil {
		return nil, end + 1, err
	}
	opts := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			opts[k] = ""
		case bool:
			if v {
				opts[k] = ""
			}
		default:
			opts[k] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return opts, end + 1, nil
}
