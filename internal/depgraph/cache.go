package depgraph

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// cacheFile is the gob-serialized shape LoadCache/SaveCache round-trip.
// gob rather than a spec-defined binary layout: this is purely internal
// build bookkeeping with no cross-language or cross-version wire contract
// to honor, unlike the package container and AFS formats spec.md defines
// byte-for-byte.
type cacheFile struct {
	Nodes []Node
}

// LoadCache restores a prior build's recorded node graph from path,
// implementing spec.md §4.F step 1. A missing cache file is not an error:
// it means this is the first build, and every node starts uncompiled.
func (g *Graph) LoadCache(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return buildrr.NewIOError(buildrr.KindFileOpen, "depgraph.LoadCache", path, err)
	}
	defer f.Close()

	var cf cacheFile
	if err := gob.NewDecoder(f).Decode(&cf); err != nil {
		if err == io.EOF {
			return nil
		}
		return buildrr.New(buildrr.KindMalformedFile, "depgraph.LoadCache", err)
	}
	for i := range cf.Nodes {
		n := cf.Nodes[i]
		g.nodes[n.Key] = &n
	}
	return nil
}

// SaveCache persists every recorded node's state to path for the next
// build's LoadCache, overwriting any existing file. The cache is written to
// a sibling temp file and renamed into place on success, so a fault mid-write
// leaves the previous cache (or none) rather than a truncated one.
func (g *Graph) SaveCache(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return buildrr.NewIOError(buildrr.KindFileOpen, "depgraph.SaveCache", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	cf := cacheFile{Nodes: make([]Node, 0, len(g.nodes))}
	for _, n := range g.nodes {
		cf.Nodes = append(cf.Nodes, *n)
	}
	if err := gob.NewEncoder(tmp).Encode(&cf); err != nil {
		tmp.Close()
		return buildrr.New(buildrr.KindIOWrite, "depgraph.SaveCache", err)
	}
	if err := tmp.Close(); err != nil {
		return buildrr.NewIOError(buildrr.KindIOWrite, "depgraph.SaveCache", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return buildrr.NewIOError(buildrr.KindIOWrite, "depgraph.SaveCache", path, err)
	}
	return nil
}
