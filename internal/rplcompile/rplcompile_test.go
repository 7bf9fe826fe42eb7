package rplcompile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlslStageName(t *testing.T) {
	vertex, err := glslStageName("Vertex")
	require.NoError(t, err)
	require.Equal(t, "Vertex", vertex)

	pixel, err := glslStageName("Pixel")
	require.NoError(t, err)
	require.Equal(t, "Fragment", pixel)

	_, err = glslStageName("Compute")
	require.Error(t, err)
}

func TestBuildSyntheticShader(t *testing.T) {
	got := buildSyntheticShader("shaders/unlit.glsl")
	want := "#extension GL_ARB_shading_language_include : enable\n" +
		"#include <GlslShaderPrefix>\n" +
		"#include \"./shaders/unlit.glsl\"\n" +
		"#include <GlslShaderSuffix>\n"
	require.Equal(t, want, got)
}

func TestStageStringer(t *testing.T) {
	require.Equal(t, "Vertex", StageVertex.String())
	require.Equal(t, "Pixel", StagePixel.String())
}

func TestNewPipelinePrivateRoundTrips(t *testing.T) {
	data, err := NewPipelinePrivate("MainOpaque", map[string]string{
		"Vertex": "shaders/opaque_vs.glsl",
		"Pixel":  "shaders/opaque_ps.glsl",
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var priv pipelinePrivate
	require.NoError(t, decodeGob(data, &priv))
	require.Equal(t, "MainOpaque", priv.PipelineName)
	require.Equal(t, "shaders/opaque_vs.glsl", priv.Stages["Vertex"])
	require.Equal(t, "shaders/opaque_ps.glsl", priv.Stages["Pixel"])
}

func TestStageKeyAndPathRoundTrip(t *testing.T) {
	key := StageKey("rpll/g_0/scene", StageVertex)
	require.Equal(t, "rpll/g_0/scene#Vertex", key.Identifier)
	require.Equal(t, StageVertex, stageFromIdentifier(key.Identifier))
	require.Equal(t, "rpll/g_0/scene", pipelineIdentifierFromKey(key.Identifier))

	require.Equal(t, "vk_pl_g_Pixel/rpll/g_0/scene", StageOutputPath("rpll/g_0/scene", StagePixel))
}

func TestCompiledPipelinePath(t *testing.T) {
	require.Equal(t, "rpll/compiled/g_0/scene", CompiledPipelinePath("rpll/g_0/scene"))
}
