// Package facade is the Build-System Facade (spec.md §4.J): the single
// entry point that wires the virtual file system, the dependency graph, and
// the render-pipeline-library compiler together for a caller that only
// wants to say "build this project".
//
// Grounded on original_source/RKit_Build/BuildSystemInstance.cpp's
// IBaseBuildSystemInstance: the original's creation sequence is
// Initialize(srcDir, intermediateDir, dataDir) -> RegisterNodeFactory (once
// per add-on) -> AddRootNode (once per asset to build) -> Build(). This
// package preserves that same call sequence as exported methods on
// Instance instead of a single virtual-dispatch interface, since Go has no
// need for BuildSystemDriver's factory indirection.
package facade

import (
	"os"
	"sort"
	"strings"

	"github.com/standardbeagle/lci/internal/afs"
	"github.com/standardbeagle/lci/internal/buildlog"
	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/rpl"
	"github.com/standardbeagle/lci/internal/rplcompile"
	"github.com/standardbeagle/lci/internal/vfs"
)

// Instance is the facade's handle on a single build: the VFS it mounts
// sources/archives through, and the dependency graph driving incremental
// compilation over it. Mirrors IBaseBuildSystemInstance's member state.
type Instance struct {
	FS    *vfs.VFS
	Graph *depgraph.Graph

	SrcDir         string
	IntermediateDir string
	DataDir        string
}

// Initialize constructs a VFS rooted at the three given directories, mounts
// every ".dat" archive found at the top of srcDir, and creates the
// dependency graph over that VFS. Mirrors
// IBaseBuildSystemInstance::Initialize, plus the archive-mounting start-up
// behavior spec.md §4.E assigns to whoever owns the VFS.
func Initialize(srcDir, intermediateDir, dataDir string) (*Instance, error) {
	buildlog.Facade("initializing: src=%s intermediate=%s data=%s", srcDir, intermediateDir, dataDir)

	fs := vfs.New(srcDir, intermediateDir, dataDir)
	if err := fs.ScanAndMountArchives(openArchive); err != nil {
		return nil, err
	}

	inst := &Instance{
		FS:              fs,
		Graph:           depgraph.New(fs),
		SrcDir:          srcDir,
		IntermediateDir: intermediateDir,
		DataDir:         dataDir,
	}
	return inst, nil
}

// openArchive adapts afs.Open's (stream, size, name) signature to
// vfs.ScanAndMountArchives' (path string) (vfs.Archive, error) callback
// shape: afs.Open takes a seekable stream rather than a path, so this
// closure does the os.Open/os.Stat legwork and derives the mount name from
// the file's lowercased stem, per spec.md §4.E.
func openArchive(path string) (vfs.Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, buildrr.NewIOError(buildrr.KindFileOpen, "facade.openArchive", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, buildrr.NewIOError(buildrr.KindIORead, "facade.openArchive", path, err)
	}

	name := stem(path)
	a, err := afs.Open(f, info.Size(), strings.ToLower(name))
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// stem returns the last path component with its extension removed, working
// on forward-slash VFS-style paths (not path/filepath, which is OS-specific
// and would mishandle archive-internal paths on Windows).
func stem(p string) string {
	base := p
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// RegisterNodeFactory installs compiler as the handler for every node keyed
// under (namespace, typeID), mirroring IBuildSystemInstance::RegisterNodeFactory
// (spec.md §4.F/§4.J: add-ons register their node types before any root is
// added).
func (inst *Instance) RegisterNodeFactory(namespace, typeID string, compiler depgraph.NodeCompiler) {
	buildlog.Facade("registering node factory %s/%s", namespace, typeID)
	inst.Graph.Register(namespace, typeID, compiler)
}

// AddRootNode seeds key as a build root, mirroring
// IBuildSystemInstance::AddRootNode.
func (inst *Instance) AddRootNode(key depgraph.NodeKey) error {
	buildlog.Facade("adding root node %s/%s %q", key.Namespace, key.TypeID, key.Identifier)
	return inst.Graph.AddRoot(key)
}

// AddPostBuildAction registers fn to run once after every root has been
// brought up to date (spec.md §4.I's combiner step is the motivating use).
func (inst *Instance) AddPostBuildAction(fn func() error) {
	inst.Graph.AddPostBuildAction(fn)
}

// Build walks every declared root to completion, mirroring
// IBuildSystemInstance::Build.
func (inst *Instance) Build(roots []depgraph.NodeKey) error {
	buildlog.Facade("starting build over %d root(s)", len(roots))
	err := inst.Graph.Build(roots)
	if err != nil {
		buildlog.Fault("build failed: %v", err)
	} else {
		buildlog.Facade("build completed")
	}
	return err
}

// LoadCache restores the prior build's recorded node state from path, so
// this build's Build call can skip already-up-to-date nodes. A missing
// cache file is not an error: the first build for a project has none.
func (inst *Instance) LoadCache(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		buildlog.Facade("no build cache at %s, starting cold", path)
		return nil
	}
	buildlog.Facade("loading build cache from %s", path)
	return inst.Graph.LoadCache(path)
}

// SaveCache persists every recorded node's state to path for a future
// build's LoadCache.
func (inst *Instance) SaveCache(path string) error {
	buildlog.Facade("saving build cache to %s", path)
	return inst.Graph.SaveCache(path)
}

// CompileRPLLibrary parses the single top-level Render Pipeline Library
// source at entryPath (SourceDir-relative), resolves render-target/depth-
// stencil defaulting for every pipeline against the pass it executes in,
// exports the per-pipeline/globals/index packages, and wires the
// incremental stage/pipeline compile nodes plus the final combiner action
// onto the graph via rplcompile.Register.
//
// Only one top-level .rpl source combines into one pipelines_vk.rkp output
// per build (spec.md's singular "Render Pipeline Library" wording);
// multiple independent libraries combining into one output is out of
// scope, an explicit Open Question decision recorded in DESIGN.md.
func (inst *Instance) CompileRPLLibrary(entryPath string, compiler rplcompile.GLSLCompiler, prefix, suffix string, searchPaths []string) error {
	buildlog.Facade("parsing RPL library entry %s", entryPath)

	resolver := rpl.NewResolver(inst.FS)
	resolver.PushRoot(vfs.SourceDir, entryPath)
	parser := rpl.NewParser(resolver)
	if err := parser.Run(); err != nil {
		return err
	}

	pipelineNames := make([]string, 0, len(parser.Pipelines))
	for name := range parser.Pipelines {
		pipelineNames = append(pipelineNames, name)
	}
	sort.Strings(pipelineNames)

	pipelines := make([]*rpl.GraphicsPipeline, 0, len(pipelineNames))
	var passes []*rpl.RenderPass
	seenPass := make(map[string]bool)
	for _, name := range pipelineNames {
		pipeline := parser.Pipelines[name]
		if pipeline.ExecuteInPass != "" {
			pass, ok := parser.Passes[pipeline.ExecuteInPass]
			if !ok {
				return buildrr.New(buildrr.KindKeyNotFound, "facade.CompileRPLLibrary",
					errUnknownPass(pipeline.Name, pipeline.ExecuteInPass))
			}
			rpl.ResolveRenderTargets(pipeline, pass)
			if err := rpl.ResolveDepthStencil(pipeline, pass); err != nil {
				return err
			}
			if !seenPass[pass.Name] {
				seenPass[pass.Name] = true
				passes = append(passes, pass)
			}
		}
		pipelines = append(pipelines, pipeline)
	}

	identifier := stem(entryPath)
	result, err := rpl.Export(inst.FS, identifier, pipelines, passes)
	if err != nil {
		return err
	}

	return rplcompile.Register(inst.Graph, inst.FS, compiler, prefix, suffix, searchPaths, result, pipelines)
}

func errUnknownPass(pipelineName, passName string) error {
	return &unknownPassError{pipelineName: pipelineName, passName: passName}
}

type unknownPassError struct {
	pipelineName, passName string
}

func (e *unknownPassError) Error() string {
	return "pipeline " + e.pipelineName + " executes in undeclared pass " + e.passName
}
