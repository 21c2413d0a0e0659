package parse

import (
	"strings"
)

// extractRST scans reStructuredText line by line. A directive header is the
// ".. d:kind::" line, any further indented signature lines, and the option
// list that follows them. The directive body is left to the main loop, so
// roles and directives inside it are read in document order.
func (e *Extractor) extractRST(s *stream, source []byte) {
	lines := strings.Split(strings.ReplaceAll(string(source), "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); i++ {
		m := e.rstDirRe.FindStringSubmatch(lines[i])
		if m == nil {
			s.roles(e.rstRoleRe, e.domain, lines[i], i+1)
			continue
		}

		indent := indentOf(m[1])
		var sigs []string
		if first := strings.TrimSpace(m[3]); first != "" {
			sigs = append(sigs, first)
		}

		j := i + 1
		for ; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if t == "" || indentOf(lines[j]) <= indent || optionRe.MatchString(t) {
				break
			}
			sigs = append(sigs, t)
		}

		var header []string
		for k := j; k < len(lines); k++ {
			if strings.TrimSpace(lines[k]) == "" || indentOf(lines[k]) <= indent {
				break
			}
			header = append(header, lines[k])
		}
		opts, n := parseOptions(header)

		s.directive(e.domain, m[2], sigs, opts, i+1)
		i = j + n - 1
	}
}

// indentOf returns the width of the leading whitespace of line.
func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
