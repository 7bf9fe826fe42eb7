package rplcompile

import (
	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/rpl"
	"github.com/standardbeagle/lci/internal/vfs"
)

// Register installs the stage and pipeline compilers on g, seeds one
// pipeline node root per entry in result.PipelinePaths/pipelines (the two
// slices are parallel, as produced by a single rpl.Export call), and adds
// the final library combiner as a post-build action. This is the glue
// spec.md §4.H's Export rule describes ("add a dependency on a synthetic
// RenderGraphicsPipelineNode keyed at that path") and §4.I's combiner
// step, wired together for whatever caller owns the Graph (internal/facade).
func Register(g *depgraph.Graph, fs *vfs.VFS, compiler GLSLCompiler, prefix, suffix string, searchPaths []string, result rpl.ExportResult, pipelines []*rpl.GraphicsPipeline) error {
	g.Register(StageNamespace, StageTypeID, &StageCompiler{
		FS:          fs,
		Compiler:    compiler,
		Prefix:      prefix,
		Suffix:      suffix,
		SearchPaths: searchPaths,
	})
	g.Register(PipelineNamespace, PipelineTypeID, &PipelineCompiler{FS: fs})

	for i, path := range result.PipelinePaths {
		if i >= len(pipelines) {
			break
		}
		key := PipelineKey(path)
		if err := g.AddRoot(key); err != nil {
			return err
		}
		data, err := NewPipelinePrivate(pipelines[i].Name, pipelines[i].Stages)
		if err != nil {
			return err
		}
		if err := g.SetNodePrivate(key, data); err != nil {
			return err
		}
	}

	pipelinePaths := append([]string(nil), result.PipelinePaths...)
	globalsPath := result.GlobalsPath
	g.AddPostBuildAction(func() error {
		return CombineLibrary(fs, pipelinePaths, globalsPath)
	})

	return nil
}
