package rplcompile

import (
	"io"
	"strings"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/pkgbuild"
	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/standardbeagle/lci/internal/vfs"
)

// PipelineNamespace/PipelineTypeID identify the synthetic
// RenderGraphicsPipelineNode spec.md §4.H's Export rule declares a
// dependency on for every per-pipeline analyzer package it writes.
const (
	PipelineNamespace = "rplcompile"
	PipelineTypeID    = "pipeline"
)

// compiledPipelineIdentifier/compiledPipelineVersion tag the compiled
// per-pipeline package PipelineCompiler.Compile writes, distinct from the
// analyzer's own 'RPLP' packages.
const compiledPipelineIdentifier uint32 = 'R' | 'P'<<8 | 'L'<<16 | 'C'<<24
const compiledPipelineVersion uint32 = 1

// PipelineKey builds the NodeKey for the synthetic node rooted at an
// already-written per-pipeline analyzer package (pipelinePackagePath is the
// "rpll/g_<idx>/<identifier>" path rpl.Export reports in
// ExportResult.PipelinePaths).
func PipelineKey(pipelinePackagePath string) depgraph.NodeKey {
	return depgraph.NodeKey{
		Namespace:  PipelineNamespace,
		TypeID:     PipelineTypeID,
		Location:   vfs.IntermediateDir,
		Identifier: pipelinePackagePath,
	}
}

// CompiledPipelinePath is the persisted path spec.md §6 names for a
// compiled per-pipeline package: the analyzer output path's "rpll" prefix
// swapped for "rpll/compiled" (spec.md's "<compiledBase>/<identifier>",
// resolved here as one compiledBase per source pipeline path so packages
// from different graphics-pipeline indices never collide).
func CompiledPipelinePath(pipelinePackagePath string) string {
	return "rpll/compiled" + strings.TrimPrefix(pipelinePackagePath, "rpll")
}

// compiledPipeline is the in-memory object IndexObject serializes for a
// compiled per-pipeline package's sole indexed struct: the pipeline's name
// plus its per-stage compiled SPIR-V, referenced by ContentKey. A zero
// content field means that stage is absent (spec.md's GraphicsPipeline.Stages
// omits empty stages), so values are stored 1-based with 0 reserved for
// "not present" — the same null convention internal/pkgbuild's
// ObjectPtrSpan indices use.
type compiledPipeline struct {
	nameIdx       uint64
	vertexContent uint64
	pixelContent  uint64
}

// IndexableCompiledPipeline is the sole IndexableStructType a compiled
// per-pipeline package's Builder is sized for.
const IndexableCompiledPipeline rtti.IndexableStructType = 0

func compiledPipelineStruct() *rtti.StructType {
	return &rtti.StructType{
		Name:         "CompiledGraphicsPipeline",
		IsIndexable:  true,
		IndexableIdx: IndexableCompiledPipeline,
		Fields: []rtti.Field{
			{
				Name: "Name",
				Type: &rtti.StringIndexType{Purpose: rtti.PurposeGlobal},
				Get:  func(obj interface{}) interface{} { return obj.(*compiledPipeline).nameIdx },
				Set: func(obj interface{}, v interface{}) {
					obj.(*compiledPipeline).nameIdx = v.(uint64)
				},
			},
			{
				Name: "VertexSPIRV",
				Type: &rtti.BinaryContentType{},
				Get:  func(obj interface{}) interface{} { return obj.(*compiledPipeline).vertexContent },
				Set: func(obj interface{}, v interface{}) {
					obj.(*compiledPipeline).vertexContent = v.(uint64)
				},
			},
			{
				Name: "PixelSPIRV",
				Type: &rtti.BinaryContentType{},
				Get:  func(obj interface{}) interface{} { return obj.(*compiledPipeline).pixelContent },
				Set: func(obj interface{}, v interface{}) {
					obj.(*compiledPipeline).pixelContent = v.(uint64)
				},
			},
		},
	}
}

// PipelineCompiler is the synthesized per-pipeline NodeCompiler of spec.md
// §4.I: its analysis stage reads the analyzer's package, iterates the two
// graphics stages, and declares one per-stage node for every non-empty
// stage; its compile stage loads each stage's compiled SPIR-V and rewrites
// the pipeline package into CompiledPipelinePath.
type PipelineCompiler struct {
	FS *vfs.VFS
}

func (c *PipelineCompiler) Version() int          { return 1 }
func (c *PipelineCompiler) HasAnalysisStage() bool { return true }

func (c *PipelineCompiler) Analyze(fb depgraph.CompilerFeedback, node *depgraph.Node) (depgraph.StageResult, error) {
	var priv pipelinePrivate
	if err := decodeGob(node.Private, &priv); err != nil {
		return depgraph.StageResult{}, err
	}

	// Track the analyzer's own package as an input so edits to it (a
	// changed pipeline name, a stage wired to a different shader source)
	// mark this node stale, even though the stage map itself was already
	// carried forward via node.Private rather than re-parsed here.
	if r, err := fb.OpenInput(vfs.IntermediateDir, node.Key.Identifier); err == nil {
		closeQuiet(r)
	}

	for _, stage := range []Stage{StageVertex, StagePixel} {
		sourcePath, ok := priv.Stages[stage.String()]
		if !ok || sourcePath == "" {
			continue
		}
		key := StageKey(node.Key.Identifier, stage)
		if err := fb.DeclareDependency(key); err != nil {
			return depgraph.StageResult{}, err
		}
		data, err := encodeGob(stagePrivate{Stage: stage.String(), SourcePath: sourcePath})
		if err != nil {
			return depgraph.StageResult{}, err
		}
		if err := fb.SetNodePrivate(key, data); err != nil {
			return depgraph.StageResult{}, err
		}
	}

	return depgraph.StageResult{NeedsCompile: true}, nil
}

func (c *PipelineCompiler) Compile(fb depgraph.CompilerFeedback, node *depgraph.Node) error {
	var priv pipelinePrivate
	if err := decodeGob(node.Private, &priv); err != nil {
		return err
	}

	b := pkgbuild.NewBuilder(1, compiledPipelineIdentifier, compiledPipelineVersion)
	b.BeginSource(nil, false)

	obj := &compiledPipeline{nameIdx: uint64(b.IndexString(priv.PipelineName))}

	for _, stage := range []Stage{StageVertex, StagePixel} {
		sourcePath, ok := priv.Stages[stage.String()]
		if !ok || sourcePath == "" {
			continue
		}
		data, err := readStageOutput(fb, node.Key.Identifier, stage)
		if err != nil {
			return err
		}
		contentIdx := b.IndexBinaryContent(streams.NewBlob(data))
		switch stage {
		case StageVertex:
			obj.vertexContent = uint64(contentIdx) + 1
		case StagePixel:
			obj.pixelContent = uint64(contentIdx) + 1
		}
	}

	if _, err := b.IndexObject(obj, compiledPipelineStruct(), false); err != nil {
		return buildrr.New(buildrr.KindOperationFailed, "rplcompile.PipelineCompiler.Compile", err)
	}

	return writePipelinePackage(fb, CompiledPipelinePath(node.Key.Identifier), b)
}

func readStageOutput(fb depgraph.CompilerFeedback, pipelineIdentifier string, stage Stage) ([]byte, error) {
	r, err := fb.OpenInput(vfs.IntermediateDir, StageOutputPath(pipelineIdentifier, stage))
	if err != nil {
		return nil, err
	}
	defer closeQuiet(r)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, buildrr.New(buildrr.KindIORead, "rplcompile.PipelineCompiler.Compile", err)
	}
	return data, nil
}

// writePipelinePackage assembles b's wire form in an in-memory scratch
// buffer (WritePackage needs Write+Seek for its header back-patch, which
// CompilerFeedback.OpenOutput's plain io.WriteCloser doesn't offer), then
// copies the finished bytes out to path.
func writePipelinePackage(fb depgraph.CompilerFeedback, path string, b *pkgbuild.Builder) error {
	mem := streams.NewMemStream()
	if err := b.WritePackage(mem); err != nil {
		return buildrr.New(buildrr.KindOperationFailed, "rplcompile.writePipelinePackage", err)
	}
	w, err := fb.OpenOutput(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return streams.WriteAll(w, mem.Bytes())
}

func closeQuiet(r interface{}) {
	if closer, ok := r.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
