package toon

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/ddoc/internal/discover"
	"github.com/phobologic/ddoc/internal/model"
)

// Output formats accepted by EncodeAs.
const (
	FormatTOON = "toon"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTOON, FormatJSON, FormatYAML}

// Report is the flattened, serializable view of a Site.
type Report struct {
	Site         string      `json:"site" yaml:"site"`
	Root         string      `json:"root" yaml:"root"`
	Docs         []DocRow    `json:"docs" yaml:"docs"`
	Symbols      []SymbolRow `json:"symbols" yaml:"symbols"`
	Links        []LinkRow   `json:"links" yaml:"links"`
	Unresolved   []RefRow    `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Dependencies []DepRow    `json:"dependencies" yaml:"dependencies"`
	Diagnostics  []DiagRow   `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

type DocRow struct {
	Path   string  `json:"path" yaml:"path"`
	Format string  `json:"format" yaml:"format"`
	Rank   float64 `json:"rank" yaml:"rank"`
}

type SymbolRow struct {
	Name      string `json:"name" yaml:"name"`
	Kind      string `json:"kind" yaml:"kind"`
	Doc       string `json:"doc" yaml:"doc"`
	Line      int    `json:"line" yaml:"line"`
	Signature string `json:"signature,omitempty" yaml:"signature,omitempty"`
}

type LinkRow struct {
	Doc       string `json:"doc" yaml:"doc"`
	Line      int    `json:"line" yaml:"line"`
	Role      string `json:"role" yaml:"role"`
	Target    string `json:"target" yaml:"target"`
	Resolved  string `json:"resolved" yaml:"resolved"`
	TargetDoc string `json:"target_doc" yaml:"target_doc"`
}

type RefRow struct {
	Doc    string `json:"doc" yaml:"doc"`
	Line   int    `json:"line" yaml:"line"`
	Role   string `json:"role" yaml:"role"`
	Target string `json:"target" yaml:"target"`
	Scope  string `json:"scope,omitempty" yaml:"scope,omitempty"`
}

type DepRow struct {
	Source  string   `json:"source" yaml:"source"`
	Target  string   `json:"target" yaml:"target"`
	Symbols []string `json:"symbols" yaml:"symbols"`
}

type DiagRow struct {
	Doc     string `json:"doc" yaml:"doc"`
	Line    int    `json:"line" yaml:"line"`
	Message string `json:"message" yaml:"message"`
}

// NewReport flattens site. Symbols marked noindex are left out, since
// nothing can link to them.
func NewReport(site *model.Site) Report {
	r := Report{Site: site.Name, Root: site.Root}
	for i := range site.Docs {
		d := &site.Docs[i]
		r.Docs = append(r.Docs, DocRow{Path: d.Path, Format: d.Format, Rank: d.Rank})
		for _, s := range d.Symbols {
			if s.NoIndex {
				continue
			}
			doc := s.Doc
			if doc == "" {
				doc = discover.DocName(d.Path)
			}
			r.Symbols = append(r.Symbols, SymbolRow{
				Name:      s.Name,
				Kind:      string(s.Kind),
				Doc:       doc,
				Line:      s.Line,
				Signature: s.Signature,
			})
		}
	}
	for _, l := range site.Links {
		r.Links = append(r.Links, LinkRow{
			Doc:       l.Doc,
			Line:      l.Line,
			Role:      l.Role,
			Target:    l.Target,
			Resolved:  l.Resolved,
			TargetDoc: l.TargetDoc,
		})
	}
	for _, u := range site.Unresolved {
		r.Unresolved = append(r.Unresolved, RefRow{Doc: u.Doc, Line: u.Line, Role: u.Role, Target: u.Target, Scope: u.Scope})
	}
	for _, d := range site.Dependencies {
		r.Dependencies = append(r.Dependencies, DepRow{Source: d.Source, Target: d.Target, Symbols: d.Symbols})
	}
	for _, d := range site.Diagnostics {
		r.Diagnostics = append(r.Diagnostics, DiagRow{Doc: d.Doc, Line: d.Line, Message: d.Message})
	}
	return r
}

// EncodeAs encodes site in the named output format.
func EncodeAs(format string, site *model.Site) (string, error) {
	switch format {
	case FormatTOON, "":
		return Encode(site), nil
	case FormatJSON:
		data, err := json.MarshalIndent(NewReport(site), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding json: %w", err)
		}
		return string(data), nil
	case FormatYAML:
		data, err := yaml.Marshal(NewReport(site))
		if err != nil {
			return "", fmt.Errorf("encoding yaml: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}
