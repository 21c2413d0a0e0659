package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/ddoc/internal/model"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "widgets.rst", `Widgets
=======

.. d:module:: a.b
   :name: a.b

.. d:class:: class Widget

   .. d:variable:: int count

      Number of widgets; see :d:var:`+"`count`"+`.
`)
	writeTestFile(t, dir, "guide.md", "# Guide\n"+
		"\n"+
		"Build a {d:class}`a.b.Widget` first, then call {d:func}`a.b.missing`.\n")
	return dir
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run %v: %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String()
}

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	out := runOK(t, dir)

	for _, want := range []string{
		"site: " + filepath.Base(dir),
		"docs[2]{path,format,rank}:",
		"symbols[3]{name,kind,doc,line,signature}:",
		"  a.b.Widget,class,widgets,7,class Widget",
		"  a.b.Widget.count,variable,widgets,9,int count",
		"  guide,3,class,a.b.Widget,a.b.Widget,widgets",
		"unresolved[1]{doc,line,role,target,scope}:",
		"  guide,3,func,a.b.missing,\"\"",
		"dependencies[1]{source,target,symbols}:",
		"  guide,widgets,a.b.Widget",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}

	// widgets.rst is linked to, so it ranks first
	if strings.Index(out, "widgets.rst,rst") > strings.Index(out, "guide.md,markdown") {
		t.Errorf("expected widgets.rst ranked first:\n%s", out)
	}
}

func TestRunBuildSubcommand(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	if got, want := runOK(t, "build", dir), runOK(t, dir); got != want {
		t.Errorf("build subcommand output differs:\n%s\nvs\n%s", got, want)
	}
}

func TestRunMaxDocs(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	out := runOK(t, "-n", "1", dir)
	if !strings.Contains(out, "docs[1]") {
		t.Errorf("expected 1 document, got:\n%s", out)
	}
	if strings.Contains(out, "guide.md") {
		t.Errorf("guide.md should be dropped:\n%s", out)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	out := runOK(t, "-V")
	if out != "ddoc dev\n" {
		t.Errorf("version output: %q", out)
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no documentation files found") {
		t.Errorf("expected no files error, got %v", err)
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "file.rst", "x")

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "file.rst")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("expected not a directory error, got %v", err)
	}
}

func TestRunFormatJSON(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	out := runOK(t, "--format", "json", dir)
	var r struct {
		Docs  []struct{ Path string } `json:"docs"`
		Links []struct {
			Resolved string `json:"resolved"`
		} `json:"links"`
	}
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(r.Docs) != 2 || len(r.Links) != 2 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestRunFormatYAMLFromConfig(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)
	writeTestFile(t, dir, ".ddoc.yaml", "output:\n  format: yaml\n")

	out := runOK(t, dir)
	var r map[string]any
	if err := yaml.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, out)
	}
	if _, ok := r["symbols"]; !ok {
		t.Errorf("missing symbols key:\n%s", out)
	}
}

func TestRunInvalidFormat(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--format", "xml", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "output.format") {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestRunCustomDomain(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, ".ddoc.yaml", "domain: dlang\n")
	writeTestFile(t, dir, "api.rst", ".. dlang:variable:: int x\n\n.. d:variable:: int ignored\n")

	out := runOK(t, dir)
	if !strings.Contains(out, "symbols[1]") || !strings.Contains(out, "  x,variable,api,1,int x") {
		t.Errorf("expected only the dlang directive:\n%s", out)
	}
}

func TestRunSymbolFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	out := runOK(t, "--symbol", "COUNT", dir)
	if !strings.Contains(out, "symbols[1]") || !strings.Contains(out, "a.b.Widget.count") {
		t.Errorf("expected only count:\n%s", out)
	}
	if !strings.Contains(out, "docs[1]") {
		t.Errorf("expected only widgets.rst:\n%s", out)
	}
}

func TestRunDocFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	out := runOK(t, "--doc", "guide", dir)
	if !strings.Contains(out, "docs[1]") || !strings.Contains(out, "guide.md") {
		t.Errorf("expected only guide.md:\n%s", out)
	}
	if !strings.Contains(out, "symbols[0]") {
		t.Errorf("guide.md declares nothing:\n%s", out)
	}
}

func TestRunStrict(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)
	writeTestFile(t, dir, "orphan.rst", ".. d:function:: void f()\n")

	// without --strict, diagnostics are reported but the build succeeds
	out := runOK(t, dir)
	if !strings.Contains(out, "diagnostics[1]{doc,line,message}:") {
		t.Errorf("missing diagnostics:\n%s", out)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"--strict", dir}, &stdout, &stderr)
	if !errors.Is(err, errStrict) {
		t.Fatalf("expected strict error, got %v", err)
	}
	if !strings.Contains(stdout.String(), "diagnostics[1]") {
		t.Errorf("report should still be printed:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "name inference unsupported") {
		t.Errorf("diagnostic should be logged:\n%s", stderr.String())
	}
}

func TestRunNitpickyLogsUnresolved(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--nitpicky", dir}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "unresolved reference") || !strings.Contains(stderr.String(), "a.b.missing") {
		t.Errorf("expected unresolved reference log:\n%s", stderr.String())
	}
}

func TestRunSaveLookupResolveExport(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	runOK(t, "build", "--save", dir)

	if out := runOK(t, "lookup", "-C", dir, "a.b.Widget"); out != "a.b.Widget\tclass\twidgets\n" {
		t.Errorf("lookup: %q", out)
	}

	if out := runOK(t, "resolve", "-C", dir, "--scope", "a.b.Widget", "--kind", "var", "count"); out != "a.b.Widget.count\tvariable\twidgets\n" {
		t.Errorf("resolve: %q", out)
	}
	if out := runOK(t, "resolve", "-C", dir, "Gadget"); out != "unresolved\tGadget\n" {
		t.Errorf("resolve miss: %q", out)
	}

	out := runOK(t, "export", "-o", "-", dir)
	var inv struct {
		Objects map[string]struct {
			Doc  string `json:"doc"`
			Kind string `json:"kind"`
		} `json:"objects"`
	}
	if err := json.Unmarshal([]byte(out), &inv); err != nil {
		t.Fatalf("export json: %v\n%s", err, out)
	}
	if len(inv.Objects) != 3 || inv.Objects["a.b"].Kind != string(model.Module) {
		t.Errorf("inventory: %+v", inv.Objects)
	}

	runOK(t, "export", dir)
	if _, err := os.Stat(filepath.Join(dir, ".ddoc", "docs.json")); err != nil {
		t.Errorf("docs.json not written: %v", err)
	}
}

func TestRunMergeSavedRegistry(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	runOK(t, "--save", dir)
	if err := os.Remove(filepath.Join(dir, "widgets.rst")); err != nil {
		t.Fatal(err)
	}

	link := "  guide,3,class,a.b.Widget,a.b.Widget,widgets"
	if out := runOK(t, dir); strings.Contains(out, link) {
		t.Errorf("without --merge the removed document should not resolve:\n%s", out)
	}
	if out := runOK(t, "--merge", dir); !strings.Contains(out, link) {
		t.Errorf("with --merge expected %q in:\n%s", link, out)
	}
}

func TestRunMergeWithoutSavedRegistry(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	out := runOK(t, "build", "--merge", dir)
	if !strings.Contains(out, "  guide,3,class,a.b.Widget,a.b.Widget,widgets") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunLookupMissing(t *testing.T) {
	t.Parallel()
	dir := createSampleDocs(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"lookup", "-C", dir, "a.b.Widget"}, &stdout, &stderr)
	if !errors.Is(err, errNoRegistry) {
		t.Errorf("expected no registry error, got %v", err)
	}

	runOK(t, "--save", dir)
	err = run([]string{"lookup", "-C", dir, "Widget"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRunResolveBadKind(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"resolve", "--kind", "union", "x"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown kind "union"`) {
		t.Errorf("expected unknown kind error, got %v", err)
	}
}

func TestParseKindFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want model.SymbolKind
	}{
		{"", ""},
		{"func", model.Function},
		{"function", model.Function},
		{"inter", model.Interface},
		{"interface", model.Interface},
	}
	for _, tt := range tests {
		got, err := parseKindFlag(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseKindFlag(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
