package rpl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/vfs"
)

func newTestVFS(t *testing.T) *vfs.VFS {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	inter := filepath.Join(root, "intermediate")
	out := filepath.Join(root, "output")
	for _, dir := range []string{src, inter, out} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return vfs.New(src, inter, out)
}

func writeSource(t *testing.T, root string, rel string, contents string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
}

func TestLexerTokenizesIdentifiersNumbersStringsAndStripsComments(t *testing.T) {
	lex := NewLexer(`
		// a line comment
		GraphicsPipeline Foo { /* block */ X = "bar"; Y = 3.5; }
	`)
	var kinds []TokenKind
	var texts []string
	for {
		tok, err := lex.Next()
		require.NoError(t, err)
		if tok.Kind == TokEOF {
			break
		}
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}
	require.Equal(t, []string{"GraphicsPipeline", "Foo", "{", "X", "=", "bar", ";", "Y", "=", "3.5", ";", "}"}, texts)
}

func TestResolveValueTypeParsesScalarVectorAndMatrixForms(t *testing.T) {
	shape, ok := ResolveValueType("float")
	require.True(t, ok)
	require.Equal(t, ValueShape{Scalar: ScalarFloat, Cols: 1, Rows: 1}, shape)

	shape, ok = ResolveValueType("float3")
	require.True(t, ok)
	require.Equal(t, ValueShape{Scalar: ScalarFloat, Cols: 3, Rows: 1}, shape)
	require.Equal(t, 12, shape.PackedByteSize())

	shape, ok = ResolveValueType("float3x4")
	require.True(t, ok)
	require.Equal(t, ValueShape{Scalar: ScalarFloat, Cols: 3, Rows: 4}, shape)
	require.Equal(t, 48, shape.PackedByteSize())

	_, ok = ResolveValueType("nonsense9000")
	require.False(t, ok)
}

func TestResolveTypeSuggestsNearestNameOnTypo(t *testing.T) {
	entities := NewEntityTable()
	entities.DeclareStruct("CameraUniforms")

	_, _, err := ResolveType("flaot", entities)
	require.Error(t, err)
	require.Contains(t, err.Error(), `did you mean "float"`)

	_, _, err = ResolveType("CameraUniform", entities)
	require.Error(t, err)
	require.Contains(t, err.Error(), `did you mean "camerauniforms"`)

	_, _, err = ResolveType("zzznonsense", entities)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "did you mean")
}

func TestStructDefFlattenProducesDotQualifiedLeavesWithCumulativeOffsets(t *testing.T) {
	inner := &StructDef{
		Name: "Transform",
		Members: []StructMember{
			{Name: "position", Shape: ValueShape{Scalar: ScalarFloat, Cols: 3, Rows: 1}},
			{Name: "scale", Shape: ValueShape{Scalar: ScalarFloat, Cols: 1, Rows: 1}},
		},
	}
	outer := &StructDef{
		Name: "Vertex",
		Members: []StructMember{
			{Name: "transform", Struct: inner},
			{Name: "color", Shape: ValueShape{Scalar: ScalarByte, Cols: 4, Rows: 1}},
		},
	}
	require.Equal(t, 12+4+4, outer.PackedSize())

	leaves := outer.Flatten(0, "")
	require.Equal(t, []PackedLeaf{
		{Name: "transform.position", Offset: 0, Shape: ValueShape{Scalar: ScalarFloat, Cols: 3, Rows: 1}},
		{Name: "transform.scale", Offset: 12, Shape: ValueShape{Scalar: ScalarFloat, Cols: 1, Rows: 1}},
		{Name: "color", Offset: 16, Shape: ValueShape{Scalar: ScalarByte, Cols: 4, Rows: 1}},
	}, leaves)
}

func TestResolveStrideRejectsMismatchedExplicitValue(t *testing.T) {
	stride, err := ResolveStride(0, 24)
	require.NoError(t, err)
	require.Equal(t, 24, stride)

	_, err = ResolveStride(16, 24)
	require.Error(t, err)
}

func TestValidateFeedsRejectsMixedNumberedAndSequential(t *testing.T) {
	err := ValidateFeeds([]VertexFeed{{Name: "a", Numbered: true}, {Name: "b", Numbered: false}})
	require.Error(t, err)

	err = ValidateFeeds([]VertexFeed{{Name: "a", Numbered: false}, {Name: "b", Numbered: false}})
	require.NoError(t, err)
}

func TestIncludeResolverFallsBackFromIntermediateToSource(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	inter := filepath.Join(root, "intermediate")
	out := filepath.Join(root, "output")
	for _, dir := range []string{src, inter, out} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	fs := vfs.New(src, inter, out)
	writeSource(t, inter, "main.rpl", `include "lib.rpl"`)
	writeSource(t, src, "lib.rpl", "struct Foo { float x; }")

	resolver := NewResolver(fs)
	resolver.PushRoot(vfs.IntermediateDir, "main.rpl")
	_, _, err := resolver.Step()
	require.NoError(t, err)
	require.NoError(t, resolver.PushInclude("lib.rpl"))
	lex, path, err := resolver.Step()
	require.NoError(t, err)
	require.NotNil(t, lex)
	require.Equal(t, "lib.rpl", path)
}

func TestParserParsesGraphicsPipelineEndToEnd(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	inter := filepath.Join(root, "intermediate")
	out := filepath.Join(root, "output")
	for _, dir := range []string{src, inter, out} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	fs := vfs.New(src, inter, out)

	writeSource(t, src, "main.rpl", `
struct Vertex {
	float3 position;
	float2 uv;
}

InputLayout VertexLayout {
	position : Vertex;
}

RenderPass MainPass {
	RenderTargets {
		Color;
	}
}

GraphicsPipeline MainPipeline {
	InputLayout = VertexLayout;
	ExecuteInPass = MainPass;
	VertexShader = "shaders/main.vs";
	PixelShader = "shaders/main.ps";
}
`)

	resolver := NewResolver(fs)
	resolver.PushRoot(vfs.SourceDir, "main.rpl")
	p := NewParser(resolver)
	require.NoError(t, p.Run())

	require.Contains(t, p.Pipelines, "MainPipeline")
	pipeline := p.Pipelines["MainPipeline"]
	require.Equal(t, "MainPass", pipeline.ExecuteInPass)
	require.Len(t, pipeline.RenderTargets, 1)
	require.True(t, pipeline.RenderTargets[0].IsDefault)
	require.False(t, pipeline.HasDepthStencil)

	require.Contains(t, p.InputLayouts, "VertexLayout")
	layout := p.InputLayouts["VertexLayout"]
	require.Len(t, layout.Feeds, 1)
	require.Len(t, layout.Feeds[0].Leaves, 2)
	require.Equal(t, 20, layout.Feeds[0].Stride)
}

// TestParserRecordsPushConstantsExistence confirms a PushConstants block is
// tracked the same way StaticSampler is, rather than being fully discarded.
func TestParserRecordsPushConstantsExistence(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	inter := filepath.Join(root, "intermediate")
	out := filepath.Join(root, "output")
	for _, dir := range []string{src, inter, out} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	fs := vfs.New(src, inter, out)
	writeSource(t, src, "main.rpl", `
PushConstants Constants {
	float4 tint;
}
`)

	resolver := NewResolver(fs)
	resolver.PushRoot(vfs.SourceDir, "main.rpl")
	p := NewParser(resolver)
	require.NoError(t, p.Run())

	require.True(t, p.PushConstants["Constants"])
}

// TestResolveDepthStencilInjectsDefaultWhenPassHasDepthTarget covers spec.md
// §8 Scenario 5: a pass with a depth target but a pipeline that specifies no
// DepthStencil block builds successfully with a synthesized no-test/no-write
// binding, rather than erroring.
func TestResolveDepthStencilInjectsDefaultWhenPassHasDepthTarget(t *testing.T) {
	pipeline := &GraphicsPipeline{Name: "MainPipeline"}
	pass := &RenderPass{Name: "MainPass", HasDepthStencil: true}

	require.NoError(t, ResolveDepthStencil(pipeline, pass))
	require.True(t, pipeline.HasDepthStencil)
	require.Equal(t, DepthStencilBinding{IsDefault: true}, pipeline.DepthStencil)
}

// TestResolveDepthStencilKeepsExplicitPipelineOps covers the case where a
// pipeline's DepthStencil block was parsed explicitly: its values must be
// left untouched, not overwritten with the default.
func TestResolveDepthStencilKeepsExplicitPipelineOps(t *testing.T) {
	pipeline := &GraphicsPipeline{
		Name:            "MainPipeline",
		HasDepthStencil: true,
		DepthStencil:    DepthStencilBinding{DepthTest: true, DepthWrite: true},
	}
	pass := &RenderPass{Name: "MainPass", HasDepthStencil: true}

	require.NoError(t, ResolveDepthStencil(pipeline, pass))
	require.Equal(t, DepthStencilBinding{DepthTest: true, DepthWrite: true}, pipeline.DepthStencil)
}

// TestResolveDepthStencilErrorsWhenPassHasNoDepthTarget covers the only
// error case: a pipeline specifies DepthStencil ops but its pass has no
// depth target for them to operate on.
func TestResolveDepthStencilErrorsWhenPassHasNoDepthTarget(t *testing.T) {
	pipeline := &GraphicsPipeline{
		Name:            "MainPipeline",
		HasDepthStencil: true,
		DepthStencil:    DepthStencilBinding{DepthTest: true},
	}
	pass := &RenderPass{Name: "MainPass"}

	err := ResolveDepthStencil(pipeline, pass)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MainPipeline")
	require.Contains(t, err.Error(), "MainPass")
}

// TestParserParsesExplicitDepthStencilBlock confirms parseGraphicsPipeline
// records an explicit DepthStencil block rather than discarding it.
func TestParserParsesExplicitDepthStencilBlock(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	inter := filepath.Join(root, "intermediate")
	out := filepath.Join(root, "output")
	for _, dir := range []string{src, inter, out} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	fs := vfs.New(src, inter, out)

	writeSource(t, src, "main.rpl", `
struct Vertex {
	float3 position;
}

InputLayout VertexLayout {
	position : Vertex;
}

RenderPass MainPass {
	RenderTargets {
		Color;
	}
	DepthStencil {
		DepthTest = true;
	}
}

GraphicsPipeline MainPipeline {
	InputLayout = VertexLayout;
	ExecuteInPass = MainPass;
	VertexShader = "shaders/main.vs";
	PixelShader = "shaders/main.ps";
	DepthStencil = {
		DepthTest = true;
		DepthWrite = true;
	};
}
`)

	resolver := NewResolver(fs)
	resolver.PushRoot(vfs.SourceDir, "main.rpl")
	p := NewParser(resolver)
	require.NoError(t, p.Run())

	pipeline := p.Pipelines["MainPipeline"]
	require.True(t, pipeline.HasDepthStencil)
	require.True(t, pipeline.DepthStencil.DepthTest)
	require.True(t, pipeline.DepthStencil.DepthWrite)
	require.False(t, pipeline.DepthStencil.IsDefault)
}

func TestExportWritesPipelineGlobalsAndIndexPackages(t *testing.T) {
	fs := newTestVFS(t)
	pipelines := []*GraphicsPipeline{{Name: "MainPipeline"}}
	passes := []*RenderPass{{Name: "MainPass"}}

	result, err := Export(fs, "main", pipelines, passes)
	require.NoError(t, err)
	require.Len(t, result.PipelinePaths, 1)
	require.Equal(t, "rpll/g_0/main", result.PipelinePaths[0])

	s, ok := fs.OpenRead(vfs.IntermediateDir, result.IndexPath)
	require.True(t, ok)
	if c, ok := s.(interface{ Close() error }); ok {
		defer c.Close()
	}
	buf, err := readEntireStream(s)
	require.NoError(t, err)
	require.Len(t, buf, 16)
}
