package depgraph

import (
	"io"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/standardbeagle/lci/internal/vfs"
)

// CompilerFeedback is the callback surface spec.md §4.F grants Analyze and
// Compile: probing file status, opening inputs/outputs, declaring further
// node dependencies, and recording private data. A fresh feedback value is
// handed to each stage invocation, scoped to that node.
type CompilerFeedback interface {
	// ProbeStatus resolves (loc, path) against the live VFS without
	// recording it as an input.
	ProbeStatus(loc vfs.Location, path string, allowDirs bool) (vfs.FileStatus, bool)

	// OpenInput opens (loc, path) for reading and records its fingerprint
	// as one of this node's recorded inputs (spec.md step 2/3).
	OpenInput(loc vfs.Location, path string) (streams.SeekableReadStream, error)

	// OpenOutput opens path under IntermediateDir for writing, creating
	// parent directories as needed, and records the write as one of this
	// node's recorded outputs once the caller closes it.
	OpenOutput(path string) (io.WriteCloser, error)

	// DeclareDependency adds dep to this node's dependency set, creating
	// dep in the graph (via its registered compiler) if it doesn't exist
	// yet. Declaring the same key twice across concurrently-discovering
	// nodes is the tie-break spec.md describes: the first discovery wins.
	DeclareDependency(dep NodeKey) error

	// RecordPrivate replaces this node's private data blob.
	RecordPrivate(data []byte)

	// SetNodePrivate seeds a dependency's private data right after declaring
	// it, e.g. so a newly discovered per-stage node knows which shader stage
	// and source path it compiles before its own Analyze/Compile ever runs.
	SetNodePrivate(dep NodeKey, data []byte) error
}

type feedback struct {
	g    *Graph
	node *Node
}

func (f *feedback) ProbeStatus(loc vfs.Location, path string, allowDirs bool) (vfs.FileStatus, bool) {
	return f.g.fs.ResolveStatus(loc, path, allowDirs)
}

func (f *feedback) OpenInput(loc vfs.Location, path string) (streams.SeekableReadStream, error) {
	s, ok := f.g.fs.OpenRead(loc, path)
	if !ok {
		return nil, buildrr.NewIOError(buildrr.KindFileOpen, "CompilerFeedback.OpenInput", path, nil)
	}
	st, ok := f.g.fs.ResolveStatus(loc, path, false)
	if ok {
		f.node.Inputs = append(f.node.Inputs, fingerprintOf(st))
	}
	return s, nil
}

func (f *feedback) OpenOutput(path string) (io.WriteCloser, error) {
	w, err := f.g.openIntermediateOutput(path)
	if err != nil {
		return nil, err
	}
	return &recordingWriteCloser{f: f, path: path, WriteCloser: w}, nil
}

func (f *feedback) DeclareDependency(dep NodeKey) error {
	for _, existing := range f.node.Dependencies {
		if existing == dep {
			return nil
		}
	}
	if err := f.g.ensureNodeExists(dep); err != nil {
		return err
	}
	f.node.Dependencies = append(f.node.Dependencies, dep)
	return nil
}

func (f *feedback) RecordPrivate(data []byte) {
	f.node.Private = data
}

func (f *feedback) SetNodePrivate(dep NodeKey, data []byte) error {
	return f.g.SetNodePrivate(dep, data)
}

// recordingWriteCloser records the written output's fingerprint once closed,
// since size/mtime aren't known until the write completes.
type recordingWriteCloser struct {
	io.WriteCloser
	f    *feedback
	path string
}

func (r *recordingWriteCloser) Close() error {
	if err := r.WriteCloser.Close(); err != nil {
		return err
	}
	if st, ok := r.f.g.fs.ResolveStatus(vfs.IntermediateDir, r.path, false); ok {
		r.f.node.Outputs = append(r.f.node.Outputs, fingerprintOf(st))
	}
	return nil
}
