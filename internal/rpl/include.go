package rpl

import (
	"io"

	"github.com/standardbeagle/lci/internal/bpath"
	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/standardbeagle/lci/internal/vfs"
)

// visitedKey is the (location, path) pair a file is keyed by in the
// resolver's visited set, so an include appearing twice in the same source
// tree pops immediately without re-lexing it (spec.md §4.H).
type visitedKey struct {
	Location vfs.Location
	Path     string
}

// includeFrame is one entry of the include stack spec.md §4.H describes:
// {location, path, canTryAlternate, isScanning, fileContents, parserState}.
type includeFrame struct {
	Location        vfs.Location
	Path            string
	CanTryAlternate bool
	IsScanning      bool
	Contents        []byte
	Lexer           *Lexer
}

// Resolver drives the include stack: scanning (open + lex) a newly-pushed
// frame, then parsing it until it either pushes another include or
// exhausts, popping back to its caller.
type Resolver struct {
	fs      *vfs.VFS
	visited map[visitedKey]bool
	stack   []*includeFrame
}

func NewResolver(fs *vfs.VFS) *Resolver {
	return &Resolver{fs: fs, visited: make(map[visitedKey]bool)}
}

// PushRoot seeds the stack with the entry source file. canTryAlternate is
// false for the root, matching the original's "the root dependency node's
// own file never falls back to the other location" behavior.
func (r *Resolver) PushRoot(loc vfs.Location, path string) {
	r.stack = append(r.stack, &includeFrame{Location: loc, Path: path, CanTryAlternate: false, IsScanning: true})
}

// pushInclude handles the `include` directive: the new frame inherits the
// current top-of-stack's location and always gets canTryAlternate=true
// (spec.md §4.H: "On include, push a new entry with canTryAlternate=true").
func (r *Resolver) pushInclude(path string) error {
	norm, err := bpath.NormalizeAndValidate(path, bpath.Options{AllowParentRewind: true})
	if err != nil {
		return err
	}
	top := r.top()
	if top == nil {
		return buildrr.New(buildrr.KindInvalidParam, "rpl.Resolver.pushInclude", nil)
	}
	r.stack = append(r.stack, &includeFrame{Location: top.Location, Path: norm, CanTryAlternate: true, IsScanning: true})
	return nil
}

func (r *Resolver) top() *includeFrame {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

func (r *Resolver) pop() {
	r.stack = r.stack[:len(r.stack)-1]
}

// Done reports whether the include stack is empty, mirroring
// LibraryAnalyzer::Run's `while (m_includeStack.Count() > 0)` loop
// condition.
func (r *Resolver) Done() bool {
	return len(r.stack) == 0
}

// Step advances the resolver by one frame: scanning it (opening + lexing)
// if it's new, or letting the caller parse it if it's ready. Returns the
// current lexer and path when a frame is ready to parse, or (nil, "", nil)
// once the stack is empty.
func (r *Resolver) Step() (*Lexer, string, error) {
	for {
		if r.Done() {
			return nil, "", nil
		}
		top := r.top()
		if !top.IsScanning {
			return top.Lexer, top.Path, nil
		}
		if err := r.scan(top); err != nil {
			return nil, "", err
		}
	}
}

// scan opens and lexes the top frame, consulting the visited set and the
// source/intermediate fallback rule (spec.md §4.H).
func (r *Resolver) scan(item *includeFrame) error {
	key := visitedKey{Location: item.Location, Path: item.Path}
	if r.visited[key] {
		r.pop()
		return nil
	}
	r.visited[key] = true

	stream, ok := r.fs.OpenRead(item.Location, item.Path)
	if !ok {
		if item.CanTryAlternate && item.Location == vfs.IntermediateDir {
			item.Location = vfs.SourceDir
			return nil // retry Scan next Step with the new location
		}
		return buildrr.NewIOError(buildrr.KindFileOpen, "rpl.Resolver.scan", item.Path, nil)
	}
	if c, ok := stream.(io.Closer); ok {
		defer c.Close()
	}

	buf, err := readEntireStream(stream)
	if err != nil {
		return err
	}

	item.Contents = buf
	item.Lexer = NewLexer(string(buf))
	item.IsScanning = false
	return nil
}

// PopCurrent pops the top frame once its parse has exhausted it (no more
// directives to read), returning to the including file.
func (r *Resolver) PopCurrent() {
	r.pop()
}

// PushInclude is the public entry ParseDirective calls on the `include`
// keyword.
func (r *Resolver) PushInclude(path string) error {
	return r.pushInclude(path)
}

// readEntireStream reads s from its current position to EOF by first
// seeking to the end to learn its length, then rewinding — mirroring the
// original's ReadEntireFile helper without requiring a separate stat call.
func readEntireStream(s streams.SeekableReadStream) ([]byte, error) {
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, buildrr.New(buildrr.KindIOSeek, "rpl.readEntireStream", err)
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, buildrr.New(buildrr.KindIOSeek, "rpl.readEntireStream", err)
	}
	buf := make([]byte, size)
	if err := streams.ReadAll(s, buf); err != nil {
		return nil, buildrr.New(buildrr.KindIORead, "rpl.readEntireStream", err)
	}
	return buf, nil
}
