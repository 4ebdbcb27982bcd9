package main

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"folio/internal/builder"
	"folio/internal/config"
	"folio/internal/scaffold"
	"folio/internal/server"
)

// BuildCmd implements 'folio build'.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory (default: <source>/_build/html)" type:"path"`
	Clean  bool   `help:"Remove the output directory before building"`
	Unsafe bool   `help:"Keep raw HTML in pages instead of sanitizing it"`
}

func (b *BuildCmd) Run(ctx context.Context, root *CLI) error {
	env, _, err := loadEnvironment(root.Source)
	if err != nil {
		return err
	}
	opts := builder.BuildOptions{
		SourceDir:        root.Source,
		OutputDir:        outputDir(root.Source, b.Output),
		CleanDestination: b.Clean,
		Unsafe:           b.Unsafe,
	}
	res, err := builder.Build(ctx, env, opts)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	slog.Info("Build finished",
		"output", opts.OutputDir,
		"pages", res.Pages,
		"drafts", res.Drafts,
		"excluded", res.Excluded,
		"static", res.Static,
		"warnings", len(res.Warnings))
	return nil
}

// ServeCmd implements 'folio serve'.
type ServeCmd struct {
	Host   string `help:"Interface to listen on" default:"localhost"`
	Port   int    `short:"p" help:"Port for the development server" default:"8000"`
	Output string `short:"o" help:"Output directory (default: <source>/_build/html)" type:"path"`
	Unsafe bool   `help:"Keep raw HTML in pages instead of sanitizing it"`
}

func (s *ServeCmd) Run(ctx context.Context, root *CLI) error {
	out := outputDir(root.Source, s.Output)
	// configuration is re-read on every rebuild so conf.yaml edits apply live
	build := func(ctx context.Context, clean bool) error {
		env, _, err := loadEnvironment(root.Source)
		if err != nil {
			return err
		}
		res, err := builder.Build(ctx, env, builder.BuildOptions{
			SourceDir:        root.Source,
			OutputDir:        out,
			CleanDestination: clean,
			Unsafe:           s.Unsafe,
		})
		if err != nil {
			return err
		}
		slog.Info("Build finished", "pages", res.Pages, "snapshot", short(res.Snapshot))
		return nil
	}
	return server.Run(ctx, server.Options{
		Host:      s.Host,
		Port:      s.Port,
		SourceDir: root.Source,
		OutputDir: out,
	}, build)
}

// QuickstartCmd implements 'folio quickstart'.
type QuickstartCmd struct {
	Dir     string `arg:"" optional:"" help:"Directory to create the project in" default:"." type:"path"`
	Project string `help:"Project name written to conf.yaml"`
}

func (q *QuickstartCmd) Run(g *Globals) error {
	if err := scaffold.CreateProject(q.Dir, q.Project); err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "Project created in %s. Next:\n  folio --source %s serve\n", q.Dir, q.Dir)
	return nil
}

// NewCmd implements 'folio new'.
type NewCmd struct {
	Section string `arg:"" help:"Section (subdirectory) for the page; use . for the project root"`
	Title   string `arg:"" help:"Page title"`
	Kind    string `help:"Page format (md|rst)" enum:"md,rst" default:"md"`
}

func (n *NewCmd) Run(g *Globals, root *CLI) error {
	kind := config.ParserMarkdown
	if n.Kind == "rst" {
		kind = config.ParserRestructuredText
	}
	section := n.Section
	if section == "." {
		section = ""
	}
	path, err := scaffold.CreatePage(root.Source, section, n.Title, kind)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.Out, path)
	return nil
}

// ConfigCmd groups the configuration subcommands.
type ConfigCmd struct {
	Show  ConfigShowCmd  `cmd:"" help:"Print the effective settings as YAML"`
	Check ConfigCheckCmd `cmd:"" help:"Validate the configuration against installed themes and extensions"`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(g *Globals, root *CLI) error {
	cfg, path, err := config.Discover(root.Source)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(g.Out, "# defaults (no conf.yaml found)")
	} else {
		fmt.Fprintf(g.Out, "# %s\n", path)
	}
	enc := yaml.NewEncoder(g.Out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Settings()); err != nil {
		return err
	}
	return enc.Close()
}

type ConfigCheckCmd struct{}

func (c *ConfigCheckCmd) Run(g *Globals, root *CLI) error {
	env, path, err := loadEnvironment(root.Source)
	if err != nil {
		return err
	}
	for _, w := range env.Warnings {
		fmt.Fprintf(g.Out, "warning: %s\n", w)
	}
	snapshot, err := env.Config.Snapshot()
	if err != nil {
		return err
	}
	if path == "" {
		path = "defaults"
	}
	fmt.Fprintf(g.Out, "%s: ok (theme %s, %d extensions, %d source suffixes, snapshot %s)\n",
		path, env.Theme.Name, len(env.Config.Extensions), len(env.Config.SourceSuffix), short(snapshot))
	return nil
}

func short(snapshot string) string {
	if len(snapshot) > 12 {
		return snapshot[:12]
	}
	return snapshot
}
