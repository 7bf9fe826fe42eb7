package rplcompile

import (
	"fmt"
	"io"
	"path"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/standardbeagle/lci/internal/vfs"
)

// StageNamespace/StageTypeID identify the per-stage compile node's
// (namespace, typeId) registration in the dependency graph.
const (
	StageNamespace = "rplcompile"
	StageTypeID    = "stage"
)

// StageOutputPath is the persisted path spec.md §6 names for one compiled
// stage's SPIR-V blob: "vk_pl_g_<stage>/<identifier>".
func StageOutputPath(pipelineIdentifier string, stage Stage) string {
	return fmt.Sprintf("vk_pl_g_%s/%s", stage.String(), pipelineIdentifier)
}

// StageKey builds the NodeKey a pipeline node declares a dependency on for
// one of its non-empty shader stages.
func StageKey(pipelineIdentifier string, stage Stage) depgraph.NodeKey {
	return depgraph.NodeKey{
		Namespace:  StageNamespace,
		TypeID:     StageTypeID,
		Location:   vfs.IntermediateDir,
		Identifier: pipelineIdentifier + "#" + stage.String(),
	}
}

// StageCompiler is the per-stage NodeCompiler of spec.md §4.I: it builds the
// synthetic top-level shader, wires the include callback, invokes the
// external compiler, and writes little-endian SPIR-V words to
// StageOutputPath.
type StageCompiler struct {
	FS          *vfs.VFS
	Compiler    GLSLCompiler
	Prefix      string
	Suffix      string
	SearchPaths []string
}

func (c *StageCompiler) Version() int          { return 1 }
func (c *StageCompiler) HasAnalysisStage() bool { return false }

func (c *StageCompiler) Analyze(fb depgraph.CompilerFeedback, node *depgraph.Node) (depgraph.StageResult, error) {
	return depgraph.StageResult{}, buildrr.New(buildrr.KindNotImplemented, "rplcompile.StageCompiler.Analyze", nil)
}

func (c *StageCompiler) Compile(fb depgraph.CompilerFeedback, node *depgraph.Node) error {
	var priv stagePrivate
	if err := decodeGob(node.Private, &priv); err != nil {
		return err
	}
	glslStage, err := glslStageName(priv.Stage)
	if err != nil {
		return err
	}

	shaderText := buildSyntheticShader(priv.SourcePath)

	resolver := &IncludeResolver{
		Prefix:      c.Prefix,
		Suffix:      c.Suffix,
		SearchPaths: c.SearchPaths,
		IncluderDir: path.Dir(priv.SourcePath),
		ReadLocal: func(p string) (string, error) {
			s, ok := c.FS.OpenRead(vfs.SourceDir, p)
			if !ok {
				return "", buildrr.NewIOError(buildrr.KindFileOpen, "rplcompile.StageCompiler.Compile", p, nil)
			}
			defer func() {
				if closer, ok := s.(interface{ Close() error }); ok {
					closer.Close()
				}
			}()
			buf, err := io.ReadAll(s)
			if err != nil {
				return "", buildrr.New(buildrr.KindIORead, "rplcompile.StageCompiler.Compile", err)
			}
			return string(buf), nil
		},
	}

	spirv, err := c.Compiler.CompileToSPIRV(glslStage, shaderText, resolver.Resolve)
	if err != nil {
		return buildrr.New(buildrr.KindOperationFailed, "rplcompile.StageCompiler.Compile", err)
	}
	if len(spirv)%4 != 0 {
		return buildrr.New(buildrr.KindMalformedFile, "rplcompile.StageCompiler.Compile",
			fmt.Errorf("SPIR-V output length %d is not a multiple of 4", len(spirv)))
	}

	stageFromKey := stageFromIdentifier(node.Key.Identifier)
	w, err := fb.OpenOutput(StageOutputPath(pipelineIdentifierFromKey(node.Key.Identifier), stageFromKey))
	if err != nil {
		return err
	}
	defer w.Close()
	return streams.WriteAll(w, spirv)
}

// stageFromIdentifier/pipelineIdentifierFromKey split StageKey's
// "<pipeline>#<stage>" identifier back apart.
func stageFromIdentifier(identifier string) Stage {
	for i := len(identifier) - 1; i >= 0; i-- {
		if identifier[i] == '#' {
			if identifier[i+1:] == "Pixel" {
				return StagePixel
			}
			return StageVertex
		}
	}
	return StageVertex
}

func pipelineIdentifierFromKey(identifier string) string {
	for i := len(identifier) - 1; i >= 0; i-- {
		if identifier[i] == '#' {
			return identifier[:i]
		}
	}
	return identifier
}

