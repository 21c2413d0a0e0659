package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/ddoc/internal/model"
	"github.com/phobologic/ddoc/internal/store"
	"github.com/phobologic/ddoc/internal/watch"
	"github.com/phobologic/ddoc/internal/xref"
)

// errNoRegistry is returned when a command needs a saved registry and none exists.
var errNoRegistry = errors.New("no saved registry (run ddoc build --save)")

// openStore opens the saved registry of the project at rootDir.
func (a *app) openStore(rootDir string) (*store.Store, error) {
	root, cfg, err := a.project(rootDir)
	if err != nil {
		return nil, err
	}
	path := storePath(root, cfg)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, errNoRegistry)
	}
	return store.Open(path, cfg.Storage.CacheSize, newLogger(cfg.Log, a.stderr))
}

func (a *app) newLookupCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "lookup <fullname>",
		Short: "Look up a fully-qualified name in the saved registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(root)
			if err != nil {
				return err
			}
			defer st.Close()

			e, ok := st.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%s: not found", args[0])
			}
			_, _ = fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", args[0], e.Kind, e.Doc)
			return nil
		},
	}
	cmd.Flags().StringVarP(&root, "root", "C", ".", "project root")
	return cmd
}

func (a *app) newResolveCmd() *cobra.Command {
	var root, scope, kind string
	cmd := &cobra.Command{
		Use:   "resolve <target>",
		Short: "Resolve a cross-reference target against the saved registry",
		Long: `Resolve tries the target as written, then qualified by --scope. An
unresolved target is reported but is not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKindFlag(kind)
			if err != nil {
				return err
			}
			st, err := a.openStore(root)
			if err != nil {
				return err
			}
			defer st.Close()

			t, ok := xref.NewResolver(st).Resolve(k, args[0], scope)
			if !ok {
				_, _ = fmt.Fprintf(a.stdout, "unresolved\t%s\n", args[0])
				return nil
			}
			_, _ = fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", t.Name, t.Kind, t.Doc)
			return nil
		},
	}
	cmd.Flags().StringVarP(&root, "root", "C", ".", "project root")
	cmd.Flags().StringVar(&scope, "scope", "", "scope open at the reference, e.g. std.widgets.Widget")
	cmd.Flags().StringVar(&kind, "kind", "", "role or kind of the reference (informational)")
	return cmd
}

// parseKindFlag accepts a role name ("func") or a kind name ("function").
func parseKindFlag(s string) (model.SymbolKind, error) {
	if s == "" {
		return "", nil
	}
	if k, ok := model.KindForRole(s); ok {
		return k, nil
	}
	if k, ok := model.ParseKind(s); ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown kind %q (roles: %s)", s, strings.Join(model.RoleNames(), ", "))
}

func (a *app) newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [root]",
		Short: "Write the saved registry as a docs.json inventory",
		Long: `Export writes every saved object as {"objects": {fullname: {doc, kind}}}.
The default output is docs.json next to the registry database; "-" writes to
stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(rootArg(args))
			if err != nil {
				return err
			}
			defer st.Close()

			if output == "-" {
				return st.ExportJSON(cmd.Context(), a.stdout)
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(st.Path()), "docs.json")
			}
			return writeFileWith(output, func(w io.Writer) error {
				return st.ExportJSON(cmd.Context(), w)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or - for stdout")
	return cmd
}

// writeFileWith creates path and fills it with fn, removing it on failure.
func writeFileWith(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (a *app) newWatchCmd() *cobra.Command {
	var bf buildFlags
	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Rebuild and print the report whenever documentation changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), rootArg(args), bf)
		},
	}
	addBuildFlags(cmd, &bf)
	return cmd
}

func (a *app) runWatch(ctx context.Context, rootDir string, bf buildFlags) error {
	root, cfg, err := a.project(rootDir)
	if err != nil {
		return err
	}
	if err := bf.apply(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	logger := newLogger(cfg.Log, a.stderr)

	rebuild := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			logger.Debug("rebuilding", "changed", changed)
		}
		return a.buildAndReport(ctx, root, cfg, logger, bf)
	}

	// Strict failures are reported by the loop, not fatal.
	if err := rebuild(ctx, nil); err != nil && !errors.Is(err, errStrict) {
		return err
	}

	w, err := watch.New(root, watch.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching for changes", "root", root)
	return w.Run(ctx, rebuild)
}
