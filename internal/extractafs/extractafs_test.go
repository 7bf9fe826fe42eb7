package extractafs

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/afs"
)

// buildStoredArchive assembles a minimal uncompressed AFS image, mirroring
// internal/afs/afs_test.go's buildArchive fixture (duplicated here rather
// than imported, since that helper lives in afs's own _test.go file and is
// unexported). Layout constants (24-byte header, 128-byte nul-padded path
// plus three uint32 fields per catalog entry) match afs.go's header/catalog
// decode exactly.
func buildStoredArchive(entries map[string][]byte) []byte {
	const headerSize = 24
	const nameBufSize = 128
	const entrySize = nameBufSize + 4 + 4 + 4

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	catalogSize := len(names) * entrySize
	bodyStart := headerSize + catalogSize

	var out bytes.Buffer
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr[0:4], afs.Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], afs.Version)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(headerSize))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(catalogSize))
	out.Write(hdr)

	offset := bodyStart
	for _, name := range names {
		body := entries[name]
		rec := make([]byte, entrySize)
		copy(rec, name)
		binary.LittleEndian.PutUint32(rec[nameBufSize:], uint32(offset))
		binary.LittleEndian.PutUint32(rec[nameBufSize+4:], 0) // compressedSize 0 = stored
		binary.LittleEndian.PutUint32(rec[nameBufSize+8:], uint32(len(body)))
		out.Write(rec)
		offset += len(body)
	}
	for _, name := range names {
		out.Write(entries[name])
	}
	return out.Bytes()
}

func TestRunExtractsEveryArchiveEntry(t *testing.T) {
	archiveBytes := buildStoredArchive(map[string][]byte{
		"textures/wall.png": []byte("fake png bytes"),
		"models/crate.mdl":  []byte("fake model bytes"),
	})

	root := t.TempDir()
	inputPath := filepath.Join(root, "assets.dat")
	require.NoError(t, os.WriteFile(inputPath, archiveBytes, 0o644))

	outDir := filepath.Join(root, "out")
	require.NoError(t, Run(inputPath, outDir))

	wall, err := os.ReadFile(filepath.Join(outDir, "textures", "wall.png"))
	require.NoError(t, err)
	require.Equal(t, "fake png bytes", string(wall))

	model, err := os.ReadFile(filepath.Join(outDir, "models", "crate.mdl"))
	require.NoError(t, err)
	require.Equal(t, "fake model bytes", string(model))
}
