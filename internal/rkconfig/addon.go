package rkconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AddonManifest is one registered backend/game add-on's addon.toml: its
// namespace (the depgraph.NodeKey namespace it registers compilers under)
// and the node type IDs it handles, mirroring the teacher's
// toml.Unmarshal(data, &struct) idiom (internal/config/build_artifact_detector.go)
// rather than a hand-rolled TOML reader.
type AddonManifest struct {
	Name      string   `toml:"name"`
	Namespace string   `toml:"namespace"`
	TypeIDs   []string `toml:"type_ids"`
}

// LoadAddons reads one addon.toml per subdirectory of addonsRoot. A missing
// addonsRoot yields an empty, non-error result: add-ons are optional.
func LoadAddons(addonsRoot string) ([]AddonManifest, error) {
	entries, err := os.ReadDir(addonsRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list add-on directory %s: %w", addonsRoot, err)
	}

	var manifests []AddonManifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(addonsRoot, entry.Name(), "addon.toml")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var m AddonManifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if m.Name == "" {
			m.Name = entry.Name()
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
