// Package bpath implements the case-insensitive, forward-slash-normalized
// path/identifier validator shared by the VFS, archive mounter, and RPL
// include resolver (spec.md §3's Path/Identifier data model, Invariant 5 of
// §8). One validator lives here so every consumer rejects the same set of
// strings; grounded on the path-sanitization rules
// original_source/Anox_Utilities/AnoxAFSArchive.cpp applies to archive
// catalog entries, generalized to the VFS/RPL include path rules in
// spec.md.
package bpath

import (
	"strings"

	"github.com/standardbeagle/lci/internal/buildrr"
)

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

func isAllowedChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '_', '-', '.', ' ', '+', '~', '#', '(', ')', '/':
		return true
	}
	return false
}

// Normalize lowercases p and rewrites backslashes to forward slashes,
// mirroring the AFS catalog fixup and the case-insensitive identity rule.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(p)
}

// Options controls path-validator leniency. AllowParentRewind permits a
// normalized "../" component, which only the RPL include resolver's
// relative-include resolution is allowed to use (spec.md §4.H).
type Options struct {
	AllowParentRewind bool
}

// Validate applies spec.md §3's path/identifier rules: reject any reserved
// DOS device name component, empty component, trailing space/dot, ".."
// (unless explicitly allowed), or characters outside
// [a-z0-9_\-. +~#()/]. The caller is expected to have already run the
// string through Normalize.
func Validate(p string, opts Options) error {
	if p == "" {
		return buildrr.NewPathError(p, "empty path")
	}
	for i := 0; i < len(p); i++ {
		if !isAllowedChar(p[i]) {
			return buildrr.NewPathError(p, "character not in [a-z0-9_-. +~#()/]")
		}
	}

	components := strings.Split(p, "/")
	for _, comp := range components {
		if comp == "" {
			return buildrr.NewPathError(p, "empty path component")
		}
		if comp == ".." {
			if !opts.AllowParentRewind {
				return buildrr.NewPathError(p, `".." is not permitted outside the include resolver`)
			}
			continue
		}
		if comp == "." {
			return buildrr.NewPathError(p, `"." is not a valid path component`)
		}
		if strings.HasSuffix(comp, " ") || strings.HasSuffix(comp, ".") {
			return buildrr.NewPathError(p, "trailing space or dot in path component")
		}

		name := comp
		if dot := strings.IndexByte(name, '.'); dot >= 0 {
			name = name[:dot]
		}
		if reservedNames[name] {
			return buildrr.NewPathError(p, "reserved device name component: "+name)
		}
	}
	return nil
}

// FixBrokenPath collapses the archive-specific "/ " / "\ " artifact (a
// trailing space immediately after a separator, produced by some tools that
// wrote AFS catalogs) before validation, per spec.md §3's Archive data
// model. Grounded on Archive::FixBrokenFilePath in
// original_source/Anox_Utilities/AnoxAFSArchive.cpp.
func FixBrokenPath(p string) string {
	p = strings.ReplaceAll(p, "/ ", "/")
	p = strings.ReplaceAll(p, "\\ ", "/")
	return p
}

// NormalizeAndValidate is the common entry point: normalize then validate
// with the given options, returning the normalized path on success.
func NormalizeAndValidate(p string, opts Options) (string, error) {
	n := Normalize(p)
	if err := Validate(n, opts); err != nil {
		return "", err
	}
	return n, nil
}
