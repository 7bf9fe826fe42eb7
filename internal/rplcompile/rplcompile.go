// Package rplcompile implements spec.md §4.I: the per-pipeline analysis that
// turns an already-analyzed GraphicsPipeline into one per-stage SPIR-V
// compile node per non-empty shader stage, the per-stage compiler that
// builds the synthetic top-level shader and invokes the external
// GLSL-to-SPIR-V compiler through a controlled include callback, and the
// post-build library combiner that concatenates every per-pipeline package
// into the final runtime library.
//
// Grounded on original_source/RKit_Build_Vulkan/VulkanRenderPipelineCompiler.cpp
// for the stage-mapping table, the synthetic shader prefix/include/suffix
// wrapping, and the system-vs-local include split; internal/depgraph's
// two-stage NodeCompiler contract for the node shape; internal/rpl's
// already-built package export/read helpers for the final combine step.
package rplcompile

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// Stage is one of the two graphics stages spec.md §4.I names.
type Stage int

const (
	StageVertex Stage = iota
	StagePixel
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StagePixel:
		return "Pixel"
	default:
		return "UnknownStage"
	}
}

// glslStageName maps an RKit stage name to the name the external
// GLSL-to-SPIR-V compiler expects (spec.md §4.I: "Vertex→Vertex,
// Pixel→Fragment").
func glslStageName(rkitStage string) (string, error) {
	switch rkitStage {
	case "Vertex":
		return "Vertex", nil
	case "Pixel":
		return "Fragment", nil
	default:
		return "", buildrr.New(buildrr.KindInvalidParam, "rplcompile.glslStageName",
			fmt.Errorf("unknown graphics stage %q", rkitStage))
	}
}

// systemIncludePrefix and systemIncludeSuffix are the two *system* include
// names spec.md §4.I resolves to in-memory buffers, distinct from *local*
// includes which resolve against the filesystem.
const (
	systemIncludePrefix = "GlslShaderPrefix"
	systemIncludeSuffix = "GlslShaderSuffix"
)

// buildSyntheticShader assembles the synthetic top-level shader text spec.md
// §4.I specifies verbatim: the shading-language-include extension pragma,
// then prefix/source/suffix as three includes.
func buildSyntheticShader(sourcePath string) string {
	return fmt.Sprintf(
		"#extension GL_ARB_shading_language_include : enable\n"+
			"#include <%s>\n"+
			"#include \"./%s\"\n"+
			"#include <%s>\n",
		systemIncludePrefix, sourcePath, systemIncludeSuffix)
}

// stagePrivate is one stage node's gob-encoded private state: which RKit
// stage it compiles and the shader source path to wrap.
type stagePrivate struct {
	Stage      string
	SourcePath string
}

// pipelinePrivate is a pipeline node's gob-encoded private state: the stage
// source-path map an upstream RPL analysis produced (spec.md §4.H's
// GraphicsPipeline.Stages), carried across so Analyze can declare one
// per-stage node for every non-empty entry without re-parsing RPL source.
type pipelinePrivate struct {
	PipelineName string
	Stages       map[string]string // "Vertex"/"Pixel" -> shader source path
	ContentKeys  map[string]int    // stage -> binary-content index; Compile does not set it (the indices live in the compiled package's object)
}

// NewPipelinePrivate builds the gob-encoded private payload wiring code
// (the facade's RPL add-on) seeds a pipeline node root with, carrying an
// already-analyzed GraphicsPipeline's stage source paths forward so
// PipelineCompiler.Analyze can declare per-stage dependencies without re-parsing
// RPL source itself.
func NewPipelinePrivate(pipelineName string, stages map[string]string) ([]byte, error) {
	return encodeGob(pipelinePrivate{PipelineName: pipelineName, Stages: stages})
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, buildrr.New(buildrr.KindInternal, "rplcompile.encodeGob", err)
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return buildrr.New(buildrr.KindInternal, "rplcompile.decodeGob", err)
	}
	return nil
}
