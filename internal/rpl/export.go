package rpl

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/pkgbuild"
	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/standardbeagle/lci/internal/vfs"
)

// rpliMagic is the binary index's FOURCC ('RPLI'), spec.md §4.H's Export
// rule.
const rpliMagic uint32 = 'R' | 'P'<<8 | 'L'<<16 | 'I'<<24

const rpliVersion uint32 = 1

// packageIdentifier/packageVersion tag every package this analyzer writes;
// 'RPLP' distinguishes them from other package kinds sharing the same
// container format.
const packageIdentifier uint32 = 'R' | 'P'<<8 | 'L'<<16 | 'P'<<24
const packageVersion uint32 = 1

// ExportResult is what Export reports back to the caller so it can declare
// the corresponding depgraph dependencies (one synthetic
// RenderGraphicsPipelineNode per pipeline package, per spec.md §4.H).
type ExportResult struct {
	PipelinePaths []string // rpll/g_<idx>/<identifier>, one per graphics pipeline
	GlobalsPath   string   // the single globals package path
	IndexPath     string   // rpll/idx/<identifier>
}

// Export writes spec.md §4.H's three output kinds: one package per graphics
// pipeline (sole indexed object its GraphicsPipelineNameLookup), a globals
// package holding every RenderPassNameLookup, and a tiny binary index
// recording how many pipeline packages were written.
//
// identifier names the output group (usually the source RPL file's base
// name without extension); it becomes both the package basename and part
// of every written path.
func Export(fs *vfs.VFS, identifier string, pipelines []*GraphicsPipeline, passes []*RenderPass) (ExportResult, error) {
	result := ExportResult{
		GlobalsPath: fmt.Sprintf("rpll/globs/%s", identifier),
		IndexPath:   fmt.Sprintf("rpll/idx/%s", identifier),
	}

	for i, p := range pipelines {
		path := fmt.Sprintf("rpll/g_%d/%s", i, identifier)
		if err := writeNameLookupPackage(fs, path, IndexableGraphicsPipelineNameLookup, p.Name); err != nil {
			return ExportResult{}, err
		}
		result.PipelinePaths = append(result.PipelinePaths, path)
	}

	if err := writeGlobalsPackage(fs, result.GlobalsPath, passes); err != nil {
		return ExportResult{}, err
	}

	if err := writeIndex(fs, result.IndexPath, len(pipelines)); err != nil {
		return ExportResult{}, err
	}

	return result, nil
}

// writeNameLookupPackage writes a package whose sole indexed object is one
// NameLookup struct for idx's IndexableStructType slot.
func writeNameLookupPackage(fs *vfs.VFS, path string, idx rtti.IndexableStructType, name string) error {
	b := pkgbuild.NewBuilder(int(numIndexableStructTypes), packageIdentifier, packageVersion)
	b.BeginSource(nil, false)

	st := NameLookupStruct(idx)
	obj := &nameLookup{nameIdx: uint64(b.IndexString(name))}
	if _, err := b.IndexObject(obj, st, false); err != nil {
		return buildrr.New(buildrr.KindOperationFailed, "rpl.Export", err)
	}

	return flushPackage(fs, path, b)
}

// writeGlobalsPackage collects every RenderPass's RenderPassNameLookup into
// one package, per spec.md §4.H.
func writeGlobalsPackage(fs *vfs.VFS, path string, passes []*RenderPass) error {
	b := pkgbuild.NewBuilder(int(numIndexableStructTypes), packageIdentifier, packageVersion)
	b.BeginSource(nil, false)

	st := NameLookupStruct(IndexableRenderPassNameLookup)
	for _, pass := range passes {
		obj := &nameLookup{nameIdx: uint64(b.IndexString(pass.Name))}
		if _, err := b.IndexObject(obj, st, false); err != nil {
			return buildrr.New(buildrr.KindOperationFailed, "rpl.Export", err)
		}
	}

	return flushPackage(fs, path, b)
}

// flushPackage assembles b's wire form into an in-memory scratch buffer
// (WritePackage needs Write+Seek for its header back-patch, which a plain
// io.WriteCloser from VFS.OpenWrite doesn't offer), then copies the
// finished bytes out to path.
func flushPackage(fs *vfs.VFS, path string, b *pkgbuild.Builder) error {
	mem := streams.NewMemStream()
	if err := b.WritePackage(mem); err != nil {
		return buildrr.New(buildrr.KindOperationFailed, "rpl.Export", err)
	}
	w, err := fs.OpenWrite(vfs.IntermediateDir, path)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := streams.WriteAll(w, mem.Bytes()); err != nil {
		return err
	}
	return nil
}

// writeIndex writes the tiny {magic, version, graphicsPipelineCount} binary
// index spec.md §4.H describes.
func writeIndex(fs *vfs.VFS, path string, pipelineCount int) error {
	w, err := fs.OpenWrite(vfs.IntermediateDir, path)
	if err != nil {
		return err
	}
	defer w.Close()

	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], rpliMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], rpliVersion)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(pipelineCount))
	return streams.WriteAll(w, hdr[:])
}

// renderGraphicsPipelineNodeIdentifier names the synthetic node the depgraph
// dependency for a just-written pipeline package keys on, so callers of
// Export can hand it straight to CompilerFeedback.DeclareDependency.
func renderGraphicsPipelineNodeIdentifier(pipelinePath string) string {
	return "RenderGraphicsPipelineNode:" + strconv.Quote(pipelinePath)
}
