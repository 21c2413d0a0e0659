// Package markup provides a format registry mapping file extensions to
// documentation source formats and, where one exists, their tree-sitter
// grammar.
package markup

import (
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	tsmarkdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
)

const (
	RST      = "rst"
	Markdown = "markdown"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Format describes a supported documentation source format.
type Format struct {
	Name       string
	Extensions []string
	lang       *sitter.Language // nil for line-scanned formats
}

// GetLanguage returns the tree-sitter grammar, or nil if the format is
// scanned line by line.
func (f *Format) GetLanguage() *sitter.Language {
	return f.lang
}

// NewParser creates a fresh tree-sitter parser for this format, or nil if
// the format has no grammar. Parsers are not safe for concurrent use.
func (f *Format) NewParser() *sitter.Parser {
	if f.lang == nil {
		return nil
	}
	p := sitter.NewParser()
	p.SetLanguage(f.lang)
	return p
}

// Formats maps format names to their configuration.
var Formats = map[string]*Format{
	RST: {
		Name:       RST,
		Extensions: []string{".rst", ".rest"},
	},
	Markdown: {
		Name:       Markdown,
		Extensions: []string{".md", ".markdown"},
		lang:       tsmarkdown.GetLanguage(),
	},
}

var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, f := range Formats {
			for _, ext := range f.Extensions {
				extensionMap[ext] = f.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the format name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
