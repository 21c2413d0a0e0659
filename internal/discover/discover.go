// Package discover finds documentation source files in a project.
package discover

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/ddoc/internal/markup"
)

// FileEntry represents a discovered documentation file.
type FileEntry struct {
	Path   string // Relative to project root
	Format string
}

// Options narrows discovery. Patterns are matched against slash-separated
// paths relative to the root; "**/x" also matches "x" at the root.
type Options struct {
	Formats []string
	Include []string // empty means every supported file
	Exclude []string
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"venv":         {},
	".venv":        {},
	"_build":       {},
	"build":        {},
	"dist":         {},
	".dub":         {},
	".ddoc":        {},
}

// ErrUnbalancedPattern is returned for a glob with an unclosed or stray
// brace or bracket. glob.Compile accepts some of these and then never matches.
var ErrUnbalancedPattern = errors.New("unbalanced brace or bracket")

// Matcher matches paths against a set of compiled globs.
type Matcher struct {
	globs []glob.Glob
	root  []glob.Glob // "**/" prefix stripped, for files at the root
}

// CompilePatterns compiles glob patterns using '/' as the separator.
func CompilePatterns(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		if err := checkBalanced(p); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			rg, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", p, err)
			}
			m.root = append(m.root, rg)
		}
	}
	return m, nil
}

// checkBalanced reports stray or unclosed "{}" and "[]" in p. A backslash
// escapes the next byte; brackets do not nest.
func checkBalanced(p string) error {
	var braces int
	inClass := false
	for i := 0; i < len(p); i++ {
		switch c := p[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == ']':
			return ErrUnbalancedPattern
		case c == '{':
			braces++
		case c == '}':
			if braces == 0 {
				return ErrUnbalancedPattern
			}
			braces--
		}
	}
	if inClass || braces != 0 {
		return ErrUnbalancedPattern
	}
	return nil
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return len(m.globs) == 0
}

// Match reports whether rel (slash-separated) matches any pattern.
func (m *Matcher) Match(rel string) bool {
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	if !strings.Contains(rel, "/") {
		for _, g := range m.root {
			if g.Match(rel) {
				return true
			}
		}
	}
	return false
}

// Files discovers documentation files under root, sorted by path.
func Files(root string, opts Options) ([]FileEntry, error) {
	formatSet := make(map[string]struct{}, len(opts.Formats))
	for _, f := range opts.Formats {
		formatSet[f] = struct{}{}
	}
	include, err := CompilePatterns(opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := CompilePatterns(opts.Exclude)
	if err != nil {
		return nil, err
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		format := markup.ForExtension(filepath.Ext(name))
		if format == "" {
			return nil
		}
		if len(formatSet) > 0 {
			if _, ok := formatSet[format]; !ok {
				return nil
			}
		}

		slash := filepath.ToSlash(rel)
		if !include.Empty() && !include.Match(slash) {
			return nil
		}
		if exclude.Match(slash) {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Format: format})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// DocName returns the document identifier for a discovered file: its
// slash-separated path without extension, as "api/widgets" for
// "api/widgets.rst".
func DocName(rel string) string {
	slash := filepath.ToSlash(rel)
	return strings.TrimSuffix(slash, filepath.Ext(slash))
}

// SkipDir reports whether a directory with this base name is never searched.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip || strings.HasPrefix(name, ".")
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[filepath.FromSlash(line)] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
