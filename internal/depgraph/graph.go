package depgraph

import (
	"fmt"
	"io"

	"github.com/standardbeagle/lci/internal/buildlog"
	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/vfs"
)

// Graph owns the node registry and compiler registry for one build. It is
// single-threaded by contract (spec.md §5: "the dependency-graph registry is
// single-threaded and owned by the build driver"); concurrency lives in the
// JobQueue that evaluates independent subtrees, not in the Graph itself.
type Graph struct {
	fs *vfs.VFS

	nodes     map[NodeKey]*Node
	compilers map[CompilerKey]NodeCompiler

	// postBuild actions run, in registration order, once every root is
	// up-to-date (spec.md §4.F step 5).
	postBuild []func() error

	fault *faultState
}

// New constructs an empty Graph over fs. Call LoadCache afterward to
// restore a prior build's recorded node state.
func New(fs *vfs.VFS) *Graph {
	return &Graph{
		fs:        fs,
		nodes:     make(map[NodeKey]*Node),
		compilers: make(map[CompilerKey]NodeCompiler),
		fault:     newFaultState(),
	}
}

// Register installs compiler as the handler for every NodeKey matching
// (namespace, typeId). Registering the same pair twice is a programmer
// error and panics, since it can only happen from a mis-wired add-on list.
func (g *Graph) Register(namespace, typeID string, compiler NodeCompiler) {
	key := CompilerKey{Namespace: namespace, TypeID: typeID}
	if _, exists := g.compilers[key]; exists {
		panic("depgraph: duplicate compiler registration for " + namespace + "/" + typeID)
	}
	g.compilers[key] = compiler
}

// AddPostBuildAction registers action to run after Build completes all
// roots successfully, in registration order. Any action's error faults the
// build (spec.md §4.F step 5).
func (g *Graph) AddPostBuildAction(action func() error) {
	g.postBuild = append(g.postBuild, action)
}

func (g *Graph) compilerFor(key NodeKey) (NodeCompiler, error) {
	c, ok := g.compilers[keyOf(key)]
	if !ok {
		return nil, buildrr.New(buildrr.KindKeyNotFound, "depgraph.Graph",
			fmt.Errorf("no compiler registered for %s/%s", key.Namespace, key.TypeID))
	}
	return c, nil
}

// ensureNodeExists creates key's Node the first time any caller declares a
// dependency on it (spec.md's "first discovery wins" tie-break); later
// callers just validate the (namespace, typeId) still matches and return.
func (g *Graph) ensureNodeExists(key NodeKey) error {
	if _, err := g.compilerFor(key); err != nil {
		return err
	}
	if _, ok := g.nodes[key]; ok {
		return nil
	}
	g.nodes[key] = &Node{Key: key}
	return nil
}

// AddRoot registers key as a build root, creating its Node if new. Build
// evaluates every root registered this way.
func (g *Graph) AddRoot(key NodeKey) error {
	return g.ensureNodeExists(key)
}

// Node returns key's Node, if it has been created (via AddRoot or a declared
// dependency) yet.
func (g *Graph) Node(key NodeKey) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// NodeKeys returns every node key currently registered in the graph, in no
// particular order. Read-only introspection for callers outside the build
// driver itself (internal/mcpserver's list_stale_nodes tool).
func (g *Graph) NodeKeys() []NodeKey {
	keys := make([]NodeKey, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	return keys
}

// IsNodeStale reports whether key's node would be recompiled by the next
// Build call: either it has never compiled successfully, its compiler's
// version has changed since, or one of its recorded input fingerprints no
// longer matches the live VFS. Read-only introspection; it does not walk
// key's dependencies, matching isUpToDate's own contract.
func (g *Graph) IsNodeStale(key NodeKey) (bool, error) {
	node, ok := g.nodes[key]
	if !ok {
		return false, buildrr.New(buildrr.KindKeyNotFound, "depgraph.IsNodeStale", nil)
	}
	compiler, err := g.compilerFor(key)
	if err != nil {
		return false, err
	}
	return !g.isUpToDate(node, compiler), nil
}

// SetNodePrivate seeds key's private data. Used by wiring code that creates
// a root node and needs to hand its compiler some initial state before the
// first Analyze/Compile call runs (e.g. internal/rplcompile's PipelineCompiler,
// which needs to know which shader stages it has before it can declare its
// own per-stage dependencies).
func (g *Graph) SetNodePrivate(key NodeKey, data []byte) error {
	n, ok := g.nodes[key]
	if !ok {
		return buildrr.New(buildrr.KindKeyNotFound, "depgraph.SetNodePrivate",
			fmt.Errorf("undeclared node %s/%s/%s", key.Namespace, key.TypeID, key.Identifier))
	}
	n.Private = data
	return nil
}

func (g *Graph) openIntermediateOutput(path string) (io.WriteCloser, error) {
	return g.fs.OpenWrite(vfs.IntermediateDir, path)
}

// evalState tracks the visiting/done sets of one Build call's topological
// walk, so cycles are caught (spec.md: "cycles are forbidden and produce a
// fatal fault") rather than recursing forever.
type evalState struct {
	visiting map[NodeKey]bool
	done     map[NodeKey]bool
}

func newEvalState() *evalState {
	return &evalState{visiting: make(map[NodeKey]bool), done: make(map[NodeKey]bool)}
}

// Build runs the evaluation algorithm of spec.md §4.F over every registered
// root: ensure up-to-date (recursing into dependencies first), then fire
// post-build actions. It returns the first fault raised, if any.
func (g *Graph) Build(roots []NodeKey) error {
	state := newEvalState()
	for _, root := range roots {
		if err := g.ensureUpToDate(root, state); err != nil {
			g.fault.set(err)
			return err
		}
		if err := g.fault.check(); err != nil {
			return err
		}
	}
	for _, action := range g.postBuild {
		if err := action(); err != nil {
			g.fault.set(err)
			return err
		}
	}
	return nil
}

// ensureUpToDate is the recursive core of spec.md §4.F steps 2-4: it brings
// key's dependencies up to date first, then re-checks whether key itself
// still needs analysis/compile, judged by key's own compiler version and
// input fingerprints only (a rebuilt dependency does not by itself force
// key to recompile).
func (g *Graph) ensureUpToDate(key NodeKey, state *evalState) error {
	if state.done[key] {
		return nil
	}
	if state.visiting[key] {
		return buildrr.New(buildrr.KindInvalidParam, "depgraph.Build",
			fmt.Errorf("dependency cycle detected at %s/%s/%s", key.Namespace, key.TypeID, key.Identifier))
	}
	state.visiting[key] = true
	defer delete(state.visiting, key)

	node, ok := g.nodes[key]
	if !ok {
		return buildrr.New(buildrr.KindKeyNotFound, "depgraph.Build",
			fmt.Errorf("undeclared node %s/%s/%s", key.Namespace, key.TypeID, key.Identifier))
	}
	compiler, err := g.compilerFor(key)
	if err != nil {
		return err
	}

	// The dependency list can grow during analysis below (new nodes
	// discovered transitively); walk it by index so late additions are
	// still visited before this loop exits.
	for i := 0; i < len(node.Dependencies); i++ {
		if err := g.ensureUpToDate(node.Dependencies[i], state); err != nil {
			return err
		}
		if err := g.fault.check(); err != nil {
			return err
		}
	}

	// Dependencies are already confirmed up-to-date by the loop above (it
	// would have returned on the first fault otherwise).
	if g.isUpToDate(node, compiler) && node.Compiled {
		state.done[key] = true
		buildlog.Graph("node %s/%s/%s up to date, skipping", key.Namespace, key.TypeID, key.Identifier)
		return nil
	}

	node.Inputs = node.Inputs[:0]
	node.Outputs = node.Outputs[:0]
	if compiler.HasAnalysisStage() {
		fb := &feedback{g: g, node: node}
		result, err := compiler.Analyze(fb, node)
		if err != nil {
			return buildrr.New(buildrr.KindOperationFailed, "depgraph.Analyze", err)
		}
		// Analysis may have discovered new dependency nodes; visit them
		// before compiling (spec.md step 3: "re-enters the topological
		// loop because it may have created new nodes").
		for i := 0; i < len(node.Dependencies); i++ {
			if err := g.ensureUpToDate(node.Dependencies[i], state); err != nil {
				return err
			}
		}
		if !result.NeedsCompile && node.Compiled && g.isUpToDate(node, compiler) {
			state.done[key] = true
			return nil
		}
	}

	fb := &feedback{g: g, node: node}
	if err := compiler.Compile(fb, node); err != nil {
		return buildrr.New(buildrr.KindOperationFailed, "depgraph.Compile", err)
	}
	node.Compiled = true
	node.CompilerVersion = compiler.Version()
	state.done[key] = true
	buildlog.Graph("compiled node %s/%s/%s", key.Namespace, key.TypeID, key.Identifier)
	return nil
}

// isUpToDate implements spec.md step 2's up-to-date predicate, excluding the
// "every dependency is itself up-to-date" clause (the caller already walked
// dependencies first, so by the time this runs they're either done or the
// build has already faulted).
func (g *Graph) isUpToDate(node *Node, compiler NodeCompiler) bool {
	if !node.Compiled {
		return false
	}
	if node.CompilerVersion != compiler.Version() {
		return false
	}
	for _, in := range node.Inputs {
		if !in.matches(g.fs) {
			return false
		}
	}
	return true
}
