// Package mcpserver is the supplemented "-mcp" introspection server: a
// read-only Model Context Protocol server exposing the dependency graph's
// staleness state to an external client (e.g. an editor agent deciding
// whether a rebuild is needed without shelling out to rkbuild itself).
//
// Grounded on the teacher's internal/mcp/server.go: the
// mcp.NewServer/AddTool/Run(ctx, &mcp.StdioTransport{}) wiring and the
// JSON-envelope response helper idiom are carried over directly; this
// package carries none of the teacher's search/indexing tool surface,
// since none of it applies to a build graph.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/vfs"
)

// Server wraps an mcp.Server exposing read-only tools over graph.
type Server struct {
	graph *depgraph.Graph
	mcp   *mcp.Server
}

// NewServer builds a Server over graph and registers its tool set. graph is
// read, never mutated: every tool here answers from already-recorded node
// state, it never triggers a build.
func NewServer(graph *depgraph.Graph) *Server {
	s := &Server{
		graph: graph,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "rkbuild-mcp-server",
			Version: "0.1.0",
		}, nil),
	}
	s.registerTools()
	return s
}

// Start runs the server over stdio until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_stale_nodes",
		Description: "List every dependency-graph node that would be recompiled by the next build: never compiled, built with an older compiler version, or with an input that no longer matches the live file system.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleListStaleNodes)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "describe_node",
		Description: "Describe one dependency-graph node by its key: whether it has compiled, its recorded inputs/outputs, its dependencies, and whether it is currently stale.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"namespace":  {Type: "string", Description: "Node key namespace, e.g. \"rplcompile\""},
				"type_id":    {Type: "string", Description: "Node key type ID, e.g. \"pipeline\""},
				"location":   {Type: "string", Description: "One of SourceDir, IntermediateDir, OutputDir"},
				"identifier": {Type: "string", Description: "Node key identifier"},
			},
			Required: []string{"namespace", "type_id", "location", "identifier"},
		},
	}, s.handleDescribeNode)
}

func (s *Server) handleListStaleNodes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stale []map[string]interface{}
	for _, key := range s.graph.NodeKeys() {
		isStale, err := s.graph.IsNodeStale(key)
		if err != nil {
			return errorResponse("list_stale_nodes", err)
		}
		if isStale {
			stale = append(stale, nodeKeyJSON(key))
		}
	}
	return jsonResponse(map[string]interface{}{
		"stale_nodes": stale,
		"count":       len(stale),
	})
}

type describeNodeParams struct {
	Namespace  string `json:"namespace"`
	TypeID     string `json:"type_id"`
	Location   string `json:"location"`
	Identifier string `json:"identifier"`
}

func (s *Server) handleDescribeNode(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params describeNodeParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResponse("describe_node", fmt.Errorf("invalid parameters: %w", err))
	}

	loc, err := parseLocation(params.Location)
	if err != nil {
		return errorResponse("describe_node", err)
	}
	key := depgraph.NodeKey{
		Namespace:  params.Namespace,
		TypeID:     params.TypeID,
		Location:   loc,
		Identifier: params.Identifier,
	}

	node, ok := s.graph.Node(key)
	if !ok {
		return errorResponse("describe_node", fmt.Errorf("no such node: %s/%s %q", params.Namespace, params.TypeID, params.Identifier))
	}
	isStale, err := s.graph.IsNodeStale(key)
	if err != nil {
		return errorResponse("describe_node", err)
	}

	inputs := make([]string, 0, len(node.Inputs))
	for _, in := range node.Inputs {
		inputs = append(inputs, in.Path)
	}
	outputs := make([]string, 0, len(node.Outputs))
	for _, out := range node.Outputs {
		outputs = append(outputs, out.Path)
	}
	deps := make([]map[string]interface{}, 0, len(node.Dependencies))
	for _, dep := range node.Dependencies {
		deps = append(deps, nodeKeyJSON(dep))
	}

	return jsonResponse(map[string]interface{}{
		"key":              nodeKeyJSON(key),
		"compiled":         node.Compiled,
		"compiler_version": node.CompilerVersion,
		"stale":            isStale,
		"inputs":           inputs,
		"outputs":          outputs,
		"dependencies":     deps,
	})
}

func nodeKeyJSON(key depgraph.NodeKey) map[string]interface{} {
	return map[string]interface{}{
		"namespace":  key.Namespace,
		"type_id":    key.TypeID,
		"location":   key.Location.String(),
		"identifier": key.Identifier,
	}
}

func parseLocation(s string) (vfs.Location, error) {
	switch s {
	case "SourceDir":
		return vfs.SourceDir, nil
	case "IntermediateDir":
		return vfs.IntermediateDir, nil
	case "OutputDir":
		return vfs.OutputDir, nil
	default:
		return 0, fmt.Errorf("unrecognized location %q", s)
	}
}

func jsonResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

func errorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	resp, marshalErr := jsonResponse(map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	resp.IsError = true
	return resp, nil
}
