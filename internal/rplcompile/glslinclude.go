package rplcompile

import (
	"path"
	"strings"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// GLSLCompiler is the external collaborator spec.md §4.I hands off to: "an
// external GLSL-to-SPIR-V compiler with a controlled include callback".
// Real implementations shell out to a glslang/glslc-equivalent binary; this
// package only owns the synthetic-shader assembly and the include callback
// wired into it, not the compiler process itself (spec.md §1 scopes "shader
// optimization beyond invoking an external GLSL-to-SPIR-V compiler" out of
// core).
type GLSLCompiler interface {
	// CompileToSPIRV compiles source (the already-wrapped synthetic shader
	// text) for the named GLSL stage ("Vertex", "Fragment", ...), resolving
	// #include directives through include. It returns little-endian 32-bit
	// SPIR-V words.
	CompileToSPIRV(stage, source string, include IncludeFunc) ([]byte, error)
}

// IncludeFunc resolves one #include directive. name is the requested path
// with quote/angle-bracket delimiters already stripped; isSystem is true for
// an angle-bracket include (resolved against the in-memory prefix/suffix
// buffers), false for a quoted include (resolved against the filesystem).
type IncludeFunc func(name string, isSystem bool) (string, error)

// IncludeResolver builds the IncludeFunc a stage compile hands to the
// external compiler: the two system names resolve to in-memory buffers,
// local includes resolve first relative to the includer's own directory,
// then via an include-path search list.
type IncludeResolver struct {
	Prefix       string
	Suffix       string
	SearchPaths  []string
	IncluderDir  string
	ReadLocal    func(normalizedPath string) (string, error)
}

// Resolve implements IncludeFunc against r's configuration.
func (r *IncludeResolver) Resolve(name string, isSystem bool) (string, error) {
	if isSystem {
		switch name {
		case systemIncludePrefix:
			return r.Prefix, nil
		case systemIncludeSuffix:
			return r.Suffix, nil
		default:
			return "", buildrr.New(buildrr.KindKeyNotFound, "rplcompile.IncludeResolver.Resolve",
				nil)
		}
	}

	if candidate, err := normalizeLocalInclude(r.IncluderDir, name); err == nil {
		if text, readErr := r.ReadLocal(candidate); readErr == nil {
			return text, nil
		}
	}
	for _, dir := range r.SearchPaths {
		candidate, err := normalizeLocalInclude(dir, name)
		if err != nil {
			continue
		}
		if text, readErr := r.ReadLocal(candidate); readErr == nil {
			return text, nil
		}
	}
	return "", buildrr.New(buildrr.KindFileOpen, "rplcompile.IncludeResolver.Resolve",
		nil)
}

// normalizeLocalInclude joins dir and rel the way spec.md §4.I's local
// include rule requires: no backslashes, no empty components, no bare "."
// component, and "../" permitted only to pop exactly one directory level —
// stricter than bpath's general AllowParentRewind (which permits any number
// of ".." components), since this resolver is scoped to one nesting level
// per spec.md's wording ("permits '..' only to pop one directory").
func normalizeLocalInclude(dir, rel string) (string, error) {
	if strings.Contains(rel, "\\") {
		return "", buildrr.NewPathError(rel, "backslash not permitted in include path")
	}
	parts := strings.Split(rel, "/")
	poppedAlready := false
	for _, p := range parts {
		switch p {
		case "":
			return "", buildrr.NewPathError(rel, "empty path component")
		case ".":
			return "", buildrr.NewPathError(rel, `"." is not a valid include component`)
		case "..":
			if poppedAlready {
				return "", buildrr.NewPathError(rel, "include path pops more than one directory")
			}
			poppedAlready = true
		}
	}
	joined := path.Join(dir, rel)
	return strings.TrimPrefix(joined, "/"), nil
}
