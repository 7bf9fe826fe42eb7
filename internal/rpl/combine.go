package rpl

import (
	"bytes"
	"fmt"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/pkgbuild"
	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/vfs"
)

// duplicatePipelineNameError names the offending pipeline in its diagnostic,
// per spec.md §8 Scenario 6 ("combiner returns OperationFailed with a
// diagnostic naming the duplicate").
func duplicatePipelineNameError(name string) error {
	return buildrr.New(buildrr.KindOperationFailed, "rpl.WriteCombinedPackage",
		fmt.Errorf("duplicate graphics pipeline name %q", name))
}

// NameLookups is what ReadNameLookupPackage recovers from one already-written
// package: its graphics-pipeline names and its render-pass names, whichever
// of the two this particular package actually carries (a per-pipeline
// package carries exactly one pipeline name and no pass names; the globals
// package carries only pass names).
type NameLookups struct {
	GraphicsPipelineNames []string
	RenderPassNames       []string
}

// ReadNameLookupPackage parses a package written by writeNameLookupPackage or
// writeGlobalsPackage back into its name tables. This is the building block
// spec.md §4.D's package combiner and §4.I's library combiner both need to
// re-index already-written GraphicsPipelineNameLookup/RenderPassNameLookup
// records into a single larger package.
func ReadNameLookupPackage(data []byte) (NameLookups, error) {
	specs := make([]pkgbuild.IndexedStructSpec, numIndexableStructTypes)
	for i := range specs {
		idx := rtti.IndexableStructType(i)
		specs[i] = pkgbuild.IndexedStructSpec{
			New: func() interface{} { return &nameLookup{} },
			St:  NameLookupStruct(idx),
		}
	}

	res, err := pkgbuild.ReadPackage(bytes.NewReader(data), specs)
	if err != nil {
		return NameLookups{}, err
	}

	resolve := func(idx rtti.IndexableStructType) []string {
		objs := res.Objects[idx]
		names := make([]string, 0, len(objs))
		for _, obj := range objs {
			nl := obj.(*nameLookup)
			if int(nl.nameIdx) < len(res.Strings) {
				names = append(names, res.Strings[nl.nameIdx])
			}
		}
		return names
	}

	return NameLookups{
		GraphicsPipelineNames: resolve(IndexableGraphicsPipelineNameLookup),
		RenderPassNames:       resolve(IndexableRenderPassNameLookup),
	}, nil
}

// WriteCombinedPackage re-indexes a set of already-read name tables into one
// package, rejecting a graphics-pipeline name that appears more than once
// (spec.md §4.D: "rejecting duplicate graphics-pipeline names"; §8 Scenario
// 6). Used by both the per-build library combiner (internal/rplcompile) and,
// indirectly, any add-on that needs to merge multiple RPL sources' output.
func WriteCombinedPackage(lookups []NameLookups) (*pkgbuild.Builder, error) {
	b := pkgbuild.NewBuilder(int(numIndexableStructTypes), packageIdentifier, packageVersion)
	b.BeginSource(nil, false)

	seenPipelines := make(map[string]bool)
	for _, l := range lookups {
		for _, name := range l.GraphicsPipelineNames {
			if seenPipelines[name] {
				return nil, duplicatePipelineNameError(name)
			}
			seenPipelines[name] = true
			st := NameLookupStruct(IndexableGraphicsPipelineNameLookup)
			obj := &nameLookup{nameIdx: uint64(b.IndexString(name))}
			if _, err := b.IndexObject(obj, st, false); err != nil {
				return nil, err
			}
		}
		for _, name := range l.RenderPassNames {
			st := NameLookupStruct(IndexableRenderPassNameLookup)
			obj := &nameLookup{nameIdx: uint64(b.IndexString(name))}
			if _, err := b.IndexObject(obj, st, false); err != nil {
				return nil, err
			}
		}
	}

	return b, nil
}

// WriteBuilderPackage flushes an already-assembled Builder (e.g. from
// WriteCombinedPackage) to path, reusing the same scratch-buffer-then-copy
// approach Export's own package writes use.
func WriteBuilderPackage(fs *vfs.VFS, path string, b *pkgbuild.Builder) error {
	return flushPackage(fs, path, b)
}
