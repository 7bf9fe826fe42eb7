// Package glslcc implements rplcompile.GLSLCompiler by shelling out to a
// glslangValidator-compatible binary. This is the one concrete instance of
// the external collaborator spec.md §4.I leaves abstract ("an external
// GLSL-to-SPIR-V compiler"); rplcompile itself only owns synthetic-shader
// assembly and the include callback, never a compiler process.
//
// Grounded on original_source/RKit_Build_Vulkan/VulkanRenderPipelineCompiler.cpp,
// which drives the same external glslang toolchain from the build step; no
// example repo in the retrieval pack wraps an external shader compiler, so
// this package is new code in the teacher's idiom rather than an adaptation
// of an existing file. os/exec is used deliberately here and nowhere else in
// this module: invoking an arbitrary external binary is a system boundary
// with no third-party Go library substitute — the teacher corpus never
// shells out to anything either, so there is nothing to imitate beyond
// stdlib's own process-invocation primitive.
package glslcc

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/lci/internal/rplcompile"
)

// Compiler shells out to BinaryPath (a glslangValidator-compatible tool) for
// every CompileToSPIRV call.
type Compiler struct {
	// BinaryPath is the glslangValidator-compatible executable. Defaults to
	// "glslangValidator" on the caller's PATH when empty.
	BinaryPath string
}

var stageFlags = map[string]string{
	"Vertex":   "vert",
	"Fragment": "frag",
	"Compute":  "comp",
}

// CompileToSPIRV implements rplcompile.GLSLCompiler: it expands every
// #include directive in source via include (glslangValidator has no
// standard programmatic include callback, so expansion happens before the
// subprocess ever sees the text), then pipes the expanded source through
// the external compiler via temp files.
func (c Compiler) CompileToSPIRV(stage, source string, include rplcompile.IncludeFunc) ([]byte, error) {
	expanded, err := expandIncludes(source, include, 0)
	if err != nil {
		return nil, err
	}

	ext, ok := stageFlags[stage]
	if !ok {
		return nil, fmt.Errorf("glslcc: unrecognized shader stage %q", stage)
	}

	dir, err := os.MkdirTemp("", "rkbuild-glslcc-")
	if err != nil {
		return nil, fmt.Errorf("glslcc: failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "shader."+ext)
	if err := os.WriteFile(srcPath, []byte(expanded), 0o644); err != nil {
		return nil, fmt.Errorf("glslcc: failed to write temp shader source: %w", err)
	}
	outPath := filepath.Join(dir, "shader.spv")

	binary := c.BinaryPath
	if binary == "" {
		binary = "glslangValidator"
	}

	cmd := exec.Command(binary, "-V", "-S", ext, "-o", outPath, srcPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("glslcc: %s failed: %w: %s", binary, err, stderr.String())
	}

	spirv, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("glslcc: failed to read compiled SPIR-V: %w", err)
	}
	return spirv, nil
}

const maxIncludeDepth = 32

// expandIncludes replaces every #include "..." / #include <...> line with
// the text include resolves it to, recursively, up to maxIncludeDepth
// levels (guarding against an include cycle in malformed shader sources).
func expandIncludes(source string, include rplcompile.IncludeFunc, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("glslcc: include nesting exceeds %d levels", maxIncludeDepth)
	}

	lines := strings.Split(source, "\n")
	var out strings.Builder
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		name, isSystem, ok := parseIncludeLine(trimmed)
		if !ok {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		text, err := include(name, isSystem)
		if err != nil {
			return "", err
		}
		expanded, err := expandIncludes(text, include, depth+1)
		if err != nil {
			return "", err
		}
		// expandIncludes always returns text ending in a newline (every
		// line it writes, including the last, is newline-terminated), so
		// no separate newline is added here.
		out.WriteString(expanded)
	}
	return out.String(), nil
}

func parseIncludeLine(line string) (name string, isSystem bool, ok bool) {
	if !strings.HasPrefix(line, "#include") {
		return "", false, false
	}
	rest := strings.TrimSpace(line[len("#include"):])
	if len(rest) < 2 {
		return "", false, false
	}
	switch {
	case rest[0] == '"' && rest[len(rest)-1] == '"':
		return rest[1 : len(rest)-1], false, true
	case rest[0] == '<' && rest[len(rest)-1] == '>':
		return rest[1 : len(rest)-1], true, true
	default:
		return "", false, false
	}
}
