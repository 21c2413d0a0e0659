// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/ddoc/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Site into TOON format.
func Encode(site *model.Site) string {
	r := NewReport(site)
	var parts []string

	parts = append(parts, fmt.Sprintf("site: %s", encodeValue(r.Site)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(r.Root)))

	var docRows [][]string
	for _, d := range r.Docs {
		docRows = append(docRows, []string{d.Path, d.Format, fmt.Sprintf("%.4f", d.Rank)})
	}
	parts = append(parts, formatTabular("docs", []string{"path", "format", "rank"}, docRows))

	var symbolRows [][]string
	for _, s := range r.Symbols {
		symbolRows = append(symbolRows, []string{s.Name, s.Kind, s.Doc, strconv.Itoa(s.Line), s.Signature})
	}
	parts = append(parts, formatTabular("symbols", []string{"name", "kind", "doc", "line", "signature"}, symbolRows))

	var linkRows [][]string
	for _, l := range r.Links {
		linkRows = append(linkRows, []string{l.Doc, strconv.Itoa(l.Line), l.Role, l.Target, l.Resolved, l.TargetDoc})
	}
	parts = append(parts, formatTabular("links", []string{"doc", "line", "role", "target", "resolved", "target_doc"}, linkRows))

	if len(r.Unresolved) > 0 {
		var rows [][]string
		for _, u := range r.Unresolved {
			rows = append(rows, []string{u.Doc, strconv.Itoa(u.Line), u.Role, u.Target, u.Scope})
		}
		parts = append(parts, formatTabular("unresolved", []string{"doc", "line", "role", "target", "scope"}, rows))
	}

	var depRows [][]string
	for _, d := range r.Dependencies {
		depRows = append(depRows, []string{d.Source, d.Target, strings.Join(d.Symbols, " ")})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "symbols"}, depRows))

	if len(r.Diagnostics) > 0 {
		var rows [][]string
		for _, d := range r.Diagnostics {
			rows = append(rows, []string{d.Doc, strconv.Itoa(d.Line), d.Message})
		}
		parts = append(parts, formatTabular("diagnostics", []string{"doc", "line", "message"}, rows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
