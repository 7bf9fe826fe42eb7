package rkconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenFileAbsent(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "src", cfg.SourceDir)
	require.Equal(t, 250, cfg.WatchDebounceMs)
}

func TestLoadParsesRkbuildKDL(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".rkbuild.kdl"), []byte(`
dirs {
	source "assets"
	intermediate "build/intermediate"
	data "build/data"
}

rpl {
	entry "pipelines/main.rpl"
	glsl_prefix "#version 460\n"
	search_path "shaders/include" "shaders/common"
}

watch {
	debounce_ms 500
}

addons "plugins"
`), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "assets", cfg.SourceDir)
	require.Equal(t, "build/intermediate", cfg.IntermediateDir)
	require.Equal(t, "build/data", cfg.DataDir)
	require.Equal(t, "pipelines/main.rpl", cfg.RPLEntry)
	require.Equal(t, "#version 460\n", cfg.GLSLPrefix)
	require.Equal(t, []string{"shaders/include", "shaders/common"}, cfg.ShaderSearchDir)
	require.Equal(t, 500, cfg.WatchDebounceMs)
	require.Equal(t, "plugins", cfg.AddonsDir)
}

func TestLoadAddonsReturnsEmptyWhenDirAbsent(t *testing.T) {
	manifests, err := LoadAddons(filepath.Join(t.TempDir(), "addons"))
	require.NoError(t, err)
	require.Empty(t, manifests)
}

func TestLoadAddonsParsesPerAddonManifest(t *testing.T) {
	root := t.TempDir()
	addonDir := filepath.Join(root, "anox")
	require.NoError(t, os.MkdirAll(addonDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(addonDir, "addon.toml"), []byte(`
name = "anox"
namespace = "texnode"
type_ids = ["texture"]
`), 0o644))

	manifests, err := LoadAddons(root)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	require.Equal(t, "anox", manifests[0].Name)
	require.Equal(t, "texnode", manifests[0].Namespace)
	require.Equal(t, []string{"texture"}, manifests[0].TypeIDs)
}
