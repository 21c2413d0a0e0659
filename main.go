// ddoc indexes D-language API documentation and resolves its cross-references.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/ddoc/internal/build"
	"github.com/phobologic/ddoc/internal/config"
	"github.com/phobologic/ddoc/internal/discover"
	"github.com/phobologic/ddoc/internal/graph"
	"github.com/phobologic/ddoc/internal/model"
	"github.com/phobologic/ddoc/internal/ranking"
	"github.com/phobologic/ddoc/internal/registry"
	"github.com/phobologic/ddoc/internal/store"
	"github.com/phobologic/ddoc/internal/toon"
)

var version = "dev"

// errStrict is returned when a strict build produced diagnostics.
var errStrict = errors.New("build produced diagnostics")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// app carries per-invocation state shared by every command.
type app struct {
	stdout, stderr io.Writer
	configFile     string
}

// buildFlags are the report and build switches shared by build and watch.
type buildFlags struct {
	format   string
	maxDocs  int
	symbol   string
	doc      string
	strict   bool
	nitpicky bool
	save     bool
	merge    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	var bf buildFlags

	root := &cobra.Command{
		Use:   "ddoc [root]",
		Short: "Index D documentation and resolve its cross-references",
		Long: `ddoc reads reStructuredText and MyST Markdown documentation, registers
every D declaration directive under its fully-qualified name and resolves
every cross-reference role against the registry. With no subcommand it runs
a build of root (default ".") and prints the report.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context(), rootArg(args), bf)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("ddoc {{.Version}}\n")
	root.Flags().BoolP("version", "V", false, "show version and exit")
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is <root>/.ddoc.yaml)")
	addBuildFlags(root, &bf)

	buildCmd := &cobra.Command{
		Use:   "build [root]",
		Short: "Build the documentation index and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context(), rootArg(args), bf)
		},
	}
	addBuildFlags(buildCmd, &bf)

	root.AddCommand(
		buildCmd,
		a.newLookupCmd(),
		a.newResolveCmd(),
		a.newExportCmd(),
		a.newWatchCmd(),
		a.newInitCmd(),
	)
	return root
}

func addBuildFlags(cmd *cobra.Command, bf *buildFlags) {
	f := cmd.Flags()
	f.StringVarP(&bf.format, "format", "f", "", "output format: toon, json or yaml (default from config)")
	f.IntVarP(&bf.maxDocs, "max-docs", "n", 0, "maximum number of documents to include")
	f.StringVarP(&bf.symbol, "symbol", "s", "", "only report symbols whose name contains this (case-insensitive)")
	f.StringVarP(&bf.doc, "doc", "d", "", "only report documents whose path contains this (case-insensitive)")
	f.BoolVar(&bf.strict, "strict", false, "fail when any diagnostic is produced")
	f.BoolVar(&bf.nitpicky, "nitpicky", false, "log every unresolved reference")
	f.BoolVar(&bf.save, "save", false, "persist the registry to storage.path")
	f.BoolVar(&bf.merge, "merge", false, "resolve against the saved registry too; this build's entries win")
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// project resolves root to an absolute directory and loads its config.
func (a *app) project(root string) (string, *config.Config, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("%s: not a directory", root)
	}

	cfg, err := config.NewLoader(root, a.configFile).Load()
	if err != nil {
		return "", nil, err
	}
	return root, cfg, nil
}

// newLogger builds the CLI logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// storePath returns the registry database path for a project.
func storePath(root string, cfg *config.Config) string {
	if filepath.IsAbs(cfg.Storage.Path) {
		return cfg.Storage.Path
	}
	return filepath.Join(root, cfg.Storage.Path)
}

// apply folds command-line overrides into cfg.
func (bf buildFlags) apply(cfg *config.Config) error {
	if bf.format != "" {
		cfg.Output.Format = bf.format
	}
	if bf.strict {
		cfg.Build.Strict = true
	}
	if bf.nitpicky {
		cfg.Build.Nitpicky = true
	}
	return config.Validate(cfg)
}

func (a *app) runBuild(ctx context.Context, rootDir string, bf buildFlags) error {
	root, cfg, err := a.project(rootDir)
	if err != nil {
		return err
	}
	if err := bf.apply(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return a.buildAndReport(ctx, root, cfg, newLogger(cfg.Log, a.stderr), bf)
}

// buildAndReport runs one build, saves the registry when asked and prints
// the report.
func (a *app) buildAndReport(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger, bf buildFlags) error {
	reg := registry.New()
	if bf.merge {
		if err := loadSaved(ctx, root, cfg, logger, reg); err != nil {
			return err
		}
	}
	site, err := buildSite(ctx, root, cfg, logger, reg)
	if err != nil {
		return err
	}
	if bf.save {
		if err := saveRegistry(ctx, root, cfg, logger, reg, len(site.Docs)); err != nil {
			return err
		}
	}
	return report(a.stdout, site, cfg, bf)
}

// buildSite discovers, builds and ranks the documentation under root,
// registering into reg.
func buildSite(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger, reg *registry.Memory) (*model.Site, error) {
	files, err := discover.Files(root, discover.Options{
		Include: cfg.Paths.Include,
		Exclude: cfg.Paths.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no documentation files found")
	}
	logger.Debug("discovered documents", "root", root, "files", len(files))

	b := build.New(build.Options{
		Domain:      cfg.Domain,
		MaxFileSize: cfg.Build.MaxFileSize,
		Nitpicky:    cfg.Build.Nitpicky,
		Logger:      logger,
	})
	site, err := b.Build(ctx, root, files, reg)
	if err != nil {
		return nil, fmt.Errorf("building: %w", err)
	}
	if len(site.Docs) == 0 {
		return nil, fmt.Errorf("no documents could be parsed")
	}

	site.Dependencies = graph.BuildGraph(site.Links)
	if err := graph.Rank(site.Docs, site.Dependencies); err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	return site, nil
}

// loadSaved merges the saved registry, if there is one, into reg.
func loadSaved(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger, reg *registry.Memory) error {
	path := storePath(root, cfg)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Warn("nothing to merge", "path", path)
		return nil
	}
	st, err := store.Open(path, cfg.Storage.CacheSize, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	n, err := st.Load(ctx, reg)
	if err != nil {
		return fmt.Errorf("loading saved registry: %w", err)
	}
	logger.Info("merged saved registry", "objects", n, "path", path)
	return nil
}

func saveRegistry(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger, reg *registry.Memory, docs int) error {
	st, err := store.Open(storePath(root, cfg), cfg.Storage.CacheSize, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Debug("saving registry", "objects", reg.Len(), "docs", docs)
	if _, err := st.Save(ctx, reg.Records(), docs); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

// report filters site and writes it in the configured format. A strict
// build still prints before failing; filters do not hide diagnostics from it.
func report(w io.Writer, site *model.Site, cfg *config.Config, bf buildFlags) error {
	diagnostics := len(site.Diagnostics)

	if bf.symbol != "" {
		site = ranking.FilterBySymbol(site, bf.symbol)
	}
	if bf.doc != "" {
		site = ranking.FilterByDoc(site, bf.doc)
	}
	if bf.maxDocs > 0 {
		site = ranking.SelectDocs(site, bf.maxDocs)
	}

	out, err := toon.EncodeAs(cfg.Output.Format, site)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, strings.TrimRight(out, "\n"))

	if cfg.Build.Strict && diagnostics > 0 {
		return fmt.Errorf("%w: %d", errStrict, diagnostics)
	}
	return nil
}
