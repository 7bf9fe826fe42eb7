// Command rkbuild is the CLI entry point for the asset build system:
// wiring the facade, project configuration, RPL compilation, watch mode,
// MCP introspection, and archive extraction behind a urfave/cli/v2 app.
//
// Grounded on cmd/lci/main.go's app structure: flags parsed once in
// app.Before, subcommand Action funcs as package-level functions, and a
// shared cleanupFuncs slice flushed via defer in main().
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/buildlog"
	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/extractafs"
	"github.com/standardbeagle/lci/internal/facade"
	"github.com/standardbeagle/lci/internal/glslcc"
	"github.com/standardbeagle/lci/internal/mcpserver"
	"github.com/standardbeagle/lci/internal/rkconfig"
	"github.com/standardbeagle/lci/internal/rkwatch"
)

var cleanupFuncs []func()

func main() {
	app := &cli.App{
		Name:  "rkbuild",
		Usage: "Content-addressed incremental asset build system",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "Project root directory (containing .rkbuild.kdl)",
				Value: ".",
			},
			&cli.StringFlag{
				Name:  "sdir",
				Usage: "Source directory override",
			},
			&cli.StringFlag{
				Name:  "idir",
				Usage: "Intermediate directory override",
			},
			&cli.StringFlag{
				Name:  "ddir",
				Usage: "Output data directory override",
			},
			&cli.BoolFlag{
				Name:    "v",
				Aliases: []string{"verbose"},
				Usage:   "Enable verbose build logging",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Watch the source tree and rebuild on change",
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "Run the read-only MCP introspection server instead of building",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "extract-afs",
				Usage:     "Extract every file from a .dat archive to a directory",
				ArgsUsage: "<archive.dat> <output-dir>",
				Action:    extractAFSCommand,
			},
		},
		Before: func(c *cli.Context) error {
			buildlog.SetVerbose(c.Bool("v"))
			return nil
		},
		Action: buildCommand,
	}

	defer func() {
		for _, cleanup := range cleanupFuncs {
			cleanup()
		}
	}()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rkbuild: %v\n", err)
		os.Exit(1)
	}
}

func extractAFSCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: rkbuild extract-afs <archive.dat> <output-dir>")
	}
	return extractafs.Run(c.Args().Get(0), c.Args().Get(1))
}

func resolveDirs(c *cli.Context, cfg *rkconfig.Config, root string) (src, inter, data string) {
	src = cfg.SourceDir
	inter = cfg.IntermediateDir
	data = cfg.DataDir
	if v := c.String("sdir"); v != "" {
		src = v
	}
	if v := c.String("idir"); v != "" {
		inter = v
	}
	if v := c.String("ddir"); v != "" {
		data = v
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(root, src)
	}
	if !filepath.IsAbs(inter) {
		inter = filepath.Join(root, inter)
	}
	if !filepath.IsAbs(data) {
		data = filepath.Join(root, data)
	}
	return src, inter, data
}

func buildCommand(c *cli.Context) error {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg, err := rkconfig.Load(root)
	if err != nil {
		return err
	}

	addons, err := rkconfig.LoadAddons(filepath.Join(root, cfg.AddonsDir))
	if err != nil {
		return err
	}
	for _, addon := range addons {
		buildlog.Facade("discovered add-on %s (namespace %s)", addon.Name, addon.Namespace)
	}

	src, inter, data := resolveDirs(c, cfg, root)
	inst, err := facade.Initialize(src, inter, data)
	if err != nil {
		return err
	}

	cachePath := filepath.Join(inter, "rkbuild.cache")
	if err := inst.LoadCache(cachePath); err != nil {
		return err
	}
	cleanupFuncs = append(cleanupFuncs, func() {
		if err := inst.SaveCache(cachePath); err != nil {
			buildlog.Fault("failed to save build cache: %v", err)
		}
	})

	if c.Bool("mcp") {
		return runMCPServer(inst.Graph)
	}

	runOnce := func() error {
		compiler := glslcc.Compiler{}
		if err := inst.CompileRPLLibrary(cfg.RPLEntry, compiler, cfg.GLSLPrefix, cfg.GLSLSuffix, cfg.ShaderSearchDir); err != nil {
			return err
		}
		// Every pipeline rpl.Export wrote becomes a build root; the combiner
		// post-build action (wired by rplcompile.Register) produces the
		// final pipelines_vk.rkp once every one of them is up to date.
		var roots []depgraph.NodeKey
		for _, key := range inst.Graph.NodeKeys() {
			roots = append(roots, key)
		}
		return inst.Build(roots)
	}

	if c.Bool("watch") {
		return runWatchMode(inst, cfg, runOnce)
	}
	return runOnce()
}

func runWatchMode(inst *facade.Instance, cfg *rkconfig.Config, rebuild func() error) error {
	debounce := time.Duration(cfg.WatchDebounceMs) * time.Millisecond
	w, err := rkwatch.New(debounce, func() {
		if err := rebuild(); err != nil {
			buildlog.Fault("watch rebuild failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	if err := rebuild(); err != nil {
		return err
	}
	if err := w.Start(inst.SrcDir); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	return w.Stop()
}

func runMCPServer(graph *depgraph.Graph) error {
	server := mcpserver.NewServer(graph)
	return server.Start(context.Background())
}
