package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/rkconfig"
)

func contextWithFlags(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("sdir", "", "")
	fs.String("idir", "", "")
	fs.String("ddir", "", "")
	require.NoError(t, fs.Parse(args))
	return cli.NewContext(&cli.App{}, fs, nil)
}

func TestResolveDirsFallsBackToConfigDefaultsWhenNoFlags(t *testing.T) {
	cfg := &rkconfig.Config{SourceDir: "src", IntermediateDir: "intermediate", DataDir: "data"}
	c := contextWithFlags(t)

	src, inter, data := resolveDirs(c, cfg, "/project")
	require.Equal(t, "/project/src", src)
	require.Equal(t, "/project/intermediate", inter)
	require.Equal(t, "/project/data", data)
}

func TestResolveDirsCLIFlagsOverrideConfig(t *testing.T) {
	cfg := &rkconfig.Config{SourceDir: "src", IntermediateDir: "intermediate", DataDir: "data"}
	c := contextWithFlags(t, "-sdir", "/abs/assets", "-idir", "rel/intermediate")

	src, inter, data := resolveDirs(c, cfg, "/project")
	require.Equal(t, "/abs/assets", src)
	require.Equal(t, "/project/rel/intermediate", inter)
	require.Equal(t, "/project/data", data)
}
