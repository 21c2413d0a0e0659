package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/ddoc/internal/config"
)

const (
	sentinelStart = "<!-- ddoc:start -->"
	sentinelEnd   = "<!-- ddoc:end -->"

	configFileName = ".ddoc.yaml"
)

func (a *app) newInitCmd() *cobra.Command {
	var dryRun, noConfig bool
	cmd := &cobra.Command{
		Use:   "init [path-to-AGENTS.md]",
		Short: "Write a ddoc usage section and a starter .ddoc.yaml",
		Long: `Write a ddoc usage section to a notes file. The section is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

A starter .ddoc.yaml holding the default settings is written next to the
notes file unless one already exists.

path-to-AGENTS.md defaults to ./AGENTS.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, dryRun, noConfig, a.stdout, a.stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying any file")
	cmd.Flags().BoolVar(&noConfig, "no-config", false, "do not write "+configFileName)
	return cmd
}

// runInit writes (or updates) the ddoc usage section in path and seeds a
// config file beside it.
func runInit(path string, dryRun, noConfig bool, stdout, stderr io.Writer) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && path == "" {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	if path == "" {
		path = "AGENTS.md"
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote ddoc section to %s\n", path)

	if noConfig {
		return nil
	}
	cfgPath := filepath.Join(filepath.Dir(path), configFileName)
	wrote, err := writeStarterConfig(cfgPath)
	if err != nil {
		return err
	}
	if wrote {
		_, _ = fmt.Fprintf(stderr, "wrote starter config to %s\n", cfgPath)
	}
	return nil
}

// writeStarterConfig writes the default configuration to path unless a file
// is already there.
func writeStarterConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	data, err := starterConfig()
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

func starterConfig() ([]byte, error) {
	body, err := yaml.Marshal(config.Default())
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	header := "# ddoc configuration. Every key can be overridden by a DDOC_* environment\n" +
		"# variable, e.g. DDOC_OUTPUT_FORMAT=json.\n"
	return append([]byte(header), body...), nil
}

// generateSection returns the full sentinel-wrapped ddoc documentation block.
func generateSection() string {
	body := `## ddoc: D API documentation index

Run ` + "`ddoc`" + ` via the Bash tool before editing the D API documentation. It
lists every declared symbol under its fully-qualified name, every resolved
cross-reference and every reference that points nowhere.

**Availability:** Check with ` + "`ddoc --version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
ddoc                                 # current directory
ddoc /path/to/docs                   # explicit path
ddoc -n 20                           # limit to top 20 documents
ddoc --symbol Widget                 # only symbols matching Widget
ddoc --strict --nitpicky             # fail on diagnostics, log dangling refs
ddoc build --save && ddoc lookup std.widgets.Widget
ddoc --merge                         # also resolve against the saved registry
ddoc resolve count --scope std.widgets.Widget
` + "```" + `

**All flags:** ` + "`ddoc --help`" + `

**How to use the output:**

1. **Check ` + "`unresolved`" + ` after every edit.** Each row is a role whose target
   matches no declaration, either as written or qualified by the scope open
   where it appears.

2. **Use ` + "`symbols`" + ` to find where a name is declared** instead of grepping
   for directives. Names are fully qualified: module, then any enclosing
   class, struct or interface.

3. **Read ` + "`diagnostics`" + ` before adding directives.** A class outside any
   module or a function without an explicit ` + "`:name:`" + ` is reported there.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
