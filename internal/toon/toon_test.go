package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/ddoc/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "api/widgets.rst", "api/widgets.rst"},
		{"dotted name", "std.widgets.Widget", "std.widgets.Widget"},
		{"signature no special", "Widget make(int n)", "Widget make(int n)"},
		{"signature with template", "class Box(T) : Base", `"class Box(T) : Base"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func makeSite() *model.Site {
	return &model.Site{
		Name: "mydocs",
		Root: "mydocs",
		Docs: []model.DocInfo{
			{
				Path:   "api/widgets.rst",
				Format: "rst",
				Rank:   0.75,
				Symbols: []model.Symbol{
					{Name: "std.widgets", Kind: model.Module, Doc: "api/widgets", Line: 1, Signature: "std.widgets"},
					{Name: "std.widgets.make", Kind: model.Function, Doc: "api/widgets", Line: 4, Signature: "Widget make()"},
					{Name: "std.widgets.hidden", Kind: model.Variable, Doc: "api/widgets", Line: 8, Signature: "int hidden", NoIndex: true},
				},
			},
			{
				Path:   "guide.md",
				Format: "markdown",
				Rank:   0.25,
			},
		},
		Links: []model.Link{
			{
				Reference: model.Reference{Role: "func", Kind: model.Function, Target: "std.widgets.make", Doc: "guide", Line: 3},
				Resolved:  "std.widgets.make",
				TargetDoc: "api/widgets",
			},
		},
		Dependencies: []model.Dependency{
			{Source: "guide", Target: "api/widgets", Symbols: []string{"std.widgets.make"}},
		},
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	got := Encode(makeSite())

	want := []string{
		"site: mydocs",
		"root: mydocs",
		"docs[2]{path,format,rank}:",
		"  api/widgets.rst,rst,0.7500",
		"  guide.md,markdown,0.2500",
		// noindex symbols are not reported
		"symbols[2]{name,kind,doc,line,signature}:",
		"  std.widgets,module,api/widgets,1,std.widgets",
		"  std.widgets.make,function,api/widgets,4,Widget make()",
		"links[1]{doc,line,role,target,resolved,target_doc}:",
		"  guide,3,func,std.widgets.make,std.widgets.make,api/widgets",
		"dependencies[1]{source,target,symbols}:",
		"  guide,api/widgets,std.widgets.make",
	}
	lines := strings.Split(got, "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeUnresolvedAndDiagnostics(t *testing.T) {
	t.Parallel()

	site := makeSite()
	site.Unresolved = []model.Reference{
		{Role: "class", Kind: model.Class, Target: "Gadget", Scope: "std.widgets", Doc: "guide", Line: 7},
	}
	site.Diagnostics = []model.Diagnostic{
		{Doc: "api/widgets", Line: 9, Message: `class "class Orphan": no open scope`},
	}

	got := Encode(site)
	for _, want := range []string{
		"unresolved[1]{doc,line,role,target,scope}:\n  guide,7,class,Gadget,std.widgets",
		"diagnostics[1]{doc,line,message}:\n  api/widgets,9," + `"class \"class Orphan\": no open scope"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	site := &model.Site{
		Name: "empty",
		Root: "empty",
	}

	got := Encode(site)
	if !strings.Contains(got, "docs[0]{path,format,rank}:") {
		t.Errorf("expected empty docs section, got:\n%s", got)
	}
	if !strings.Contains(got, "symbols[0]{name,kind,doc,line,signature}:") {
		t.Errorf("expected empty symbols section, got:\n%s", got)
	}
	if strings.Contains(got, "unresolved") || strings.Contains(got, "diagnostics") {
		t.Errorf("optional sections should be omitted, got:\n%s", got)
	}
}
