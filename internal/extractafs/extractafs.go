// Package extractafs implements the supplemented "extract-afs" CLI
// subcommand: dump every file inside one .dat archive to a directory tree
// on disk, preserving the archive's internal paths.
//
// Grounded on original_source/Tool_ExtractDAT/ExtractDAT.cpp: open the
// archive, enumerate every file handle, create the output directory for
// each entry's path, and copy its full contents across in fixed chunks.
// Go's io.Copy replaces the original's hand-rolled 1024-byte
// ReadAll/WriteAll loop; there is no reason to reproduce a fixed-size
// buffer loop when the standard library already does this correctly and
// the teacher corpus never hand-rolls file copies either.
package extractafs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/standardbeagle/lci/internal/afs"
	"github.com/standardbeagle/lci/internal/buildlog"
)

// Run extracts every file in the archive at inputPath into outputDir,
// creating subdirectories as needed.
func Run(inputPath, outputDir string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", inputPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", inputPath, err)
	}

	name := filepath.Base(inputPath)
	archive, err := afs.Open(f, info.Size(), name)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", inputPath, err)
	}

	for _, path := range archive.Files() {
		if err := extractOne(archive, path, outputDir); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(archive *afs.Archive, path, outputDir string) error {
	r, err := archive.OpenRead(path)
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", path, err)
	}
	if closer, ok := r.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	dest := filepath.Join(outputDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	w, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}
	buildlog.Facade("extracted %s -> %s", path, dest)
	return nil
}
