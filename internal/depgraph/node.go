// Package depgraph implements the dependency graph core of spec.md §4.F: a
// content-addressed, incremental, plugin-extensible node graph where each
// node is evaluated in two stages (analysis, then compile) and up-to-date-
// ness is decided from recorded input fingerprints rather than timestamps
// alone.
//
// The teacher's internal/indexing package builds a conceptually similar
// structure (a master index rebuilt incrementally from file-watch events,
// fed by a pipeline of discovery/parse/link stages) but it is wired
// end-to-end to tree-sitter source indexing; nothing in it generalizes to an
// arbitrary node-compiler registry. This package borrows only its
// concurrency idiom — channel/worker-pool fan-out with a shared atomic fault
// flag — and is otherwise a fresh design against spec.md §4.F/§5, using
// golang.org/x/sync's errgroup and semaphore for the worker pool the teacher
// hand-rolls with raw goroutines and channels.
package depgraph

import (
	"github.com/standardbeagle/lci/internal/vfs"
)

// NodeKey identifies a node uniquely across the whole graph.
type NodeKey struct {
	Namespace  string
	TypeID     string
	Location   vfs.Location
	Identifier string
}

// CompilerKey identifies a registered NodeCompiler.
type CompilerKey struct {
	Namespace string
	TypeID    string
}

func keyOf(k NodeKey) CompilerKey {
	return CompilerKey{Namespace: k.Namespace, TypeID: k.TypeID}
}

// InputFingerprint is the recorded attribute tuple an up-to-date check
// compares against the live VFS (spec.md §4.F step 2).
type InputFingerprint struct {
	Location    vfs.Location
	Path        string
	Size        uint64
	Mtime       uint64
	IsDirectory bool
}

func fingerprintOf(st vfs.FileStatus) InputFingerprint {
	return InputFingerprint{
		Location:    st.Location,
		Path:        st.Path,
		Size:        st.Size,
		Mtime:       st.Mtime,
		IsDirectory: st.IsDirectory,
	}
}

// matches reports whether fp still describes vfs' live state for the same
// (location, path). A missing file never matches.
func (fp InputFingerprint) matches(fs *vfs.VFS) bool {
	st, ok := fs.ResolveStatus(fp.Location, fp.Path, fp.IsDirectory)
	if !ok {
		return false
	}
	return st.Size == fp.Size && st.Mtime == fp.Mtime && st.IsDirectory == fp.IsDirectory
}

// Node is one persisted vertex of the dependency graph.
type Node struct {
	Key NodeKey

	// CompilerVersion pins the NodeCompiler.Version() this node was last
	// built with; a version bump invalidates every node of that compiler.
	CompilerVersion int

	// Compiled is false until at least one successful compile has run.
	Compiled bool

	// Inputs are the fingerprints recorded by the analysis/compile stages
	// via CompilerFeedback.OpenInput.
	Inputs []InputFingerprint

	// Outputs are the paths (always IntermediateDir or OutputDir) written
	// during analysis/compile, recorded for diagnostics and for
	// post-build consumers (e.g. the package combiner) to discover them.
	Outputs []InputFingerprint

	// Dependencies are other nodes this node's analysis/compile declared
	// a dependency on; all must be up-to-date before this node compiles.
	Dependencies []NodeKey

	// Private is opaque per-compiler state (spec.md's "private data"),
	// serialized with gob so arbitrary compiler-defined structs persist
	// across cache loads without depgraph needing to know their shape.
	Private []byte
}

// StageResult lets Analyze signal the graph walker without reaching back
// into the Graph directly.
type StageResult struct {
	// NeedsCompile, when returned from Analyze, forces a compile even if
	// the up-to-date check alone would have skipped it (e.g. the first
	// time a node is discovered).
	NeedsCompile bool
}

// NodeCompiler is the plugin contract spec.md §4.F describes: a registered
// handler for one (namespace, typeId) pair. HasAnalysisStage controls
// whether Analyze is ever invoked (some node kinds go straight to Compile).
type NodeCompiler interface {
	// Version changes whenever this compiler's output format changes;
	// a version bump forces every node of this kind to rebuild.
	Version() int

	HasAnalysisStage() bool

	// Analyze may declare dependencies and record inputs/outputs via fb,
	// and may discover further nodes. It must not assume its declared
	// dependencies are up-to-date yet; that is Compile's guarantee.
	Analyze(fb CompilerFeedback, node *Node) (StageResult, error)

	// Compile runs once every declared dependency is up-to-date. It reads
	// recorded private data from node.Private (if any) via fb and
	// produces the node's real output.
	Compile(fb CompilerFeedback, node *Node) error
}
