package rplcompile

import (
	"io"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/rpl"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/standardbeagle/lci/internal/vfs"
)

// LibraryOutputPath is the persisted output file spec.md §6 names for the
// combined render-pipeline library.
const LibraryOutputPath = "pipelines_vk.rkp"

// CombineLibrary implements spec.md §4.I's final library combiner: a
// post-build action that reads every per-pipeline analyzer package plus the
// globals package, re-indexes their GraphicsPipelineNameLookup and
// RenderPassNameLookup records into one output package — rejecting a
// graphics-pipeline name seen twice as a fatal error — and writes the
// result to LibraryOutputPath under OutputDir. pipelinePaths is
// rpl.ExportResult.PipelinePaths; globalsPath is its GlobalsPath.
func CombineLibrary(fs *vfs.VFS, pipelinePaths []string, globalsPath string) error {
	lookups := make([]rpl.NameLookups, 0, len(pipelinePaths)+1)

	for _, p := range pipelinePaths {
		data, err := readIntermediate(fs, p)
		if err != nil {
			return err
		}
		nl, err := rpl.ReadNameLookupPackage(data)
		if err != nil {
			return err
		}
		lookups = append(lookups, nl)
	}

	globalsData, err := readIntermediate(fs, globalsPath)
	if err != nil {
		return err
	}
	globalsLookups, err := rpl.ReadNameLookupPackage(globalsData)
	if err != nil {
		return err
	}
	lookups = append(lookups, globalsLookups)

	b, err := rpl.WriteCombinedPackage(lookups)
	if err != nil {
		return err
	}

	mem := streams.NewMemStream()
	if err := b.WritePackage(mem); err != nil {
		return buildrr.New(buildrr.KindOperationFailed, "rplcompile.CombineLibrary", err)
	}
	w, err := fs.OpenWrite(vfs.OutputDir, LibraryOutputPath)
	if err != nil {
		return err
	}
	defer w.Close()
	return streams.WriteAll(w, mem.Bytes())
}

func readIntermediate(fs *vfs.VFS, path string) ([]byte, error) {
	r, ok := fs.OpenRead(vfs.IntermediateDir, path)
	if !ok {
		return nil, buildrr.NewIOError(buildrr.KindFileOpen, "rplcompile.CombineLibrary", path, nil)
	}
	defer closeQuiet(r)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, buildrr.New(buildrr.KindIORead, "rplcompile.CombineLibrary", err)
	}
	return data, nil
}
