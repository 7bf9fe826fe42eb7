package facade

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/rplcompile"
	"github.com/stretchr/testify/require"
)

// fakeGLSLCompiler stands in for the external GLSL-to-SPIR-V compiler,
// mirroring internal/rplcompile/stagenode_test.go's fixture: it resolves
// the two system includes and returns a fixed 3-word SPIR-V blob without
// reading any real shader source off disk.
type fakeGLSLCompiler struct{}

func (fakeGLSLCompiler) CompileToSPIRV(stage, source string, include rplcompile.IncludeFunc) ([]byte, error) {
	// "GlslShaderPrefix"/"GlslShaderSuffix" are rplcompile's unexported
	// system include names (internal/rplcompile/rplcompile.go); duplicated
	// here as literals since this test lives outside that package.
	if _, err := include("GlslShaderPrefix", true); err != nil {
		return nil, err
	}
	if _, err := include("GlslShaderSuffix", true); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, w := range []uint32{0x07230203, 1, 2} {
		binary.Write(&buf, binary.LittleEndian, w)
	}
	return buf.Bytes(), nil
}

func newFixtureDirs(t *testing.T) (src, inter, out string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "src")
	inter = filepath.Join(root, "intermediate")
	out = filepath.Join(root, "data")
	for _, dir := range []string{src, inter, out} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return src, inter, out
}

func writeSource(t *testing.T, root, rel, contents string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
}

func TestInitializeMountsNoArchivesWhenNoneExist(t *testing.T) {
	src, inter, out := newFixtureDirs(t)
	inst, err := Initialize(src, inter, out)
	require.NoError(t, err)
	require.NotNil(t, inst.FS)
	require.NotNil(t, inst.Graph)
}

func TestCompileRPLLibraryEndToEnd(t *testing.T) {
	src, inter, out := newFixtureDirs(t)
	writeSource(t, src, "main.rpl", `
RenderPass MainPass {
	RenderTargets {
		Color;
	}
}

GraphicsPipeline MainPipeline {
	ExecuteInPass = MainPass;
	VertexShader = "shaders/main.vs";
	PixelShader = "shaders/main.ps";
}
`)

	inst, err := Initialize(src, inter, out)
	require.NoError(t, err)

	require.NoError(t, inst.CompileRPLLibrary("main.rpl", fakeGLSLCompiler{}, "prefix", "suffix", nil))

	key := rplcompile.PipelineKey("rpll/g_0/main")
	require.NoError(t, inst.Build([]depgraph.NodeKey{key}))
}

func TestLoadCacheReturnsNilWhenFileIsAbsent(t *testing.T) {
	src, inter, out := newFixtureDirs(t)
	inst, err := Initialize(src, inter, out)
	require.NoError(t, err)
	require.NoError(t, inst.LoadCache(filepath.Join(out, "missing.cache")))
}
