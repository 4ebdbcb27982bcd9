// Command folio builds and serves documentation sites described by a
// conf.yaml site configuration.
package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"folio/internal/builder"
	"folio/internal/config"
)

var version = "dev"

// Globals are bound into every command's Run method.
type Globals struct {
	Out io.Writer
}

// CLI is the command tree and its global flags. Every flag can also be set
// through a FOLIO_<FLAG> environment variable.
type CLI struct {
	Source    string           `short:"s" help:"Project source directory containing conf.yaml" default:"." type:"path"`
	Verbose   bool             `short:"v" help:"Enable debug logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json)" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd      `cmd:"" help:"Render the site to HTML"`
	Serve      ServeCmd      `cmd:"" help:"Serve the site locally and rebuild on changes"`
	Quickstart QuickstartCmd `cmd:"" help:"Create a new documentation project"`
	New        NewCmd        `cmd:"" help:"Create a new page from an archetype"`
	Config     ConfigCmd     `cmd:"" help:"Inspect the site configuration"`
}

// AfterApply configures logging once flags are parsed.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func kongOptions(ctx context.Context, cli *CLI) []kong.Option {
	return []kong.Option{
		kong.Name("folio"),
		kong.Description("Build documentation sites from reStructuredText and Markdown sources."),
		kong.UsageOnError(),
		kong.DefaultEnvars("FOLIO"),
		kong.Vars{"version": version},
		kong.Bind(cli),
		kong.BindTo(ctx, (*context.Context)(nil)),
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to load .env", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	kctx := kong.Parse(&cli, kongOptions(ctx, &cli)...)
	if err := kctx.Run(&Globals{Out: os.Stdout}); err != nil {
		slog.Error("Command failed", "command", kctx.Command(), "error", err)
		cancel()
		os.Exit(1)
	}
}

// loadEnvironment reads the project's configuration and validates it
// against the installed themes and extensions.
func loadEnvironment(sourceDir string) (*builder.Environment, string, error) {
	cfg, path, err := config.Discover(sourceDir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		slog.Warn("No conf.yaml found, using default configuration", "dir", sourceDir)
	} else {
		slog.Debug("Loaded configuration", "path", path)
	}
	env, err := builder.CheckEnvironment(cfg)
	if err != nil {
		return nil, path, err
	}
	return env, path, nil
}

// outputDir resolves the output flag; empty means _build/html inside the
// source directory.
func outputDir(sourceDir, flag string) string {
	if flag == "" {
		return filepath.Join(sourceDir, "_build", "html")
	}
	return flag
}
