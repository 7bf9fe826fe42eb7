// Package rkconfig loads the project-level build configuration
// (.rkbuild.kdl) and per-add-on manifests (addon.toml), the ambient
// configuration layer spec.md's distillation left implicit.
//
// Grounded on the teacher's internal/config/kdl_config.go: the same
// "file absent -> nil, defaults used" contract, the same AST-walk helper
// functions operating directly on *document.Node instead of a generic
// unmarshal, and the same defaults-then-override assembly order.
package rkconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Config is the parsed .rkbuild.kdl project configuration.
type Config struct {
	SourceDir       string
	IntermediateDir string
	DataDir         string

	RPLEntry        string
	GLSLPrefix      string
	GLSLSuffix      string
	ShaderSearchDir []string

	WatchDebounceMs int
	// AddonsDir is the directory holding one subdirectory per registered
	// add-on, each with its own addon.toml manifest (see rkconfig.LoadAddons).
	AddonsDir string
}

func defaultConfig() *Config {
	return &Config{
		SourceDir:       "src",
		IntermediateDir: "intermediate",
		DataDir:         "data",
		RPLEntry:        "shaders/main.rpl",
		GLSLPrefix:      "#version 450\n",
		GLSLSuffix:      "",
		WatchDebounceMs: 250,
		AddonsDir:       "addons",
	}
}

// Load reads projectRoot/.rkbuild.kdl. A missing file is not an error: the
// caller gets defaultConfig() back and proceeds with CLI-flag overrides
// alone, matching LoadKDL's contract in the teacher.
func Load(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".rkbuild.kdl")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read .rkbuild.kdl: %w", err)
	}
	return parseKDL(string(content))
}

func parseKDL(content string) (*Config, error) {
	cfg := defaultConfig()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse .rkbuild.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "dirs":
			for _, cn := range n.Children {
				assignSimpleString(cn, "source", func(v string) { cfg.SourceDir = v })
				assignSimpleString(cn, "intermediate", func(v string) { cfg.IntermediateDir = v })
				assignSimpleString(cn, "data", func(v string) { cfg.DataDir = v })
			}
		case "rpl":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "entry":
					if s, ok := firstStringArg(cn); ok {
						cfg.RPLEntry = s
					}
				case "glsl_prefix":
					if s, ok := firstStringArg(cn); ok {
						cfg.GLSLPrefix = s
					}
				case "glsl_suffix":
					if s, ok := firstStringArg(cn); ok {
						cfg.GLSLSuffix = s
					}
				case "search_path":
					cfg.ShaderSearchDir = append(cfg.ShaderSearchDir, collectStringArgs(cn)...)
				}
			}
		case "watch":
			for _, cn := range n.Children {
				if nodeName(cn) == "debounce_ms" {
					if v, ok := firstIntArg(cn); ok {
						cfg.WatchDebounceMs = v
					}
				}
			}
		case "addons":
			if s, ok := firstStringArg(n); ok {
				cfg.AddonsDir = s
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, cn := range n.Children {
			out = append(out, nodeName(cn))
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
