package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/depgraph"
	"github.com/standardbeagle/lci/internal/vfs"
)

// noopCompiler never has anything to do; it just needs a stable version so
// a node registered against it can be marked Compiled directly via its Key.
type noopCompiler struct{ version int }

func (c noopCompiler) Version() int             { return c.version }
func (c noopCompiler) HasAnalysisStage() bool    { return false }
func (c noopCompiler) Analyze(depgraph.CompilerFeedback, *depgraph.Node) (depgraph.StageResult, error) {
	return depgraph.StageResult{}, nil
}
func (c noopCompiler) Compile(depgraph.CompilerFeedback, *depgraph.Node) error { return nil }

func newFixtureGraph(t *testing.T) (*depgraph.Graph, string) {
	t.Helper()
	srcDir := t.TempDir()
	fs := vfs.New(srcDir, t.TempDir(), t.TempDir())
	g := depgraph.New(fs)
	g.Register("fixture", "thing", noopCompiler{version: 1})
	return g, srcDir
}

func TestCreateJSONResponseRoundTrips(t *testing.T) {
	resp, err := jsonResponse(map[string]interface{}{"a": 1})
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	text, ok := resp.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	require.Equal(t, float64(1), decoded["a"])
}

func TestErrorResponseSetsIsError(t *testing.T) {
	resp, err := errorResponse("describe_node", buildrr.New(buildrr.KindKeyNotFound, "test", nil))
	require.NoError(t, err)
	require.True(t, resp.IsError)
}

func TestParseLocationAcceptsAllThreeNames(t *testing.T) {
	loc, err := parseLocation("SourceDir")
	require.NoError(t, err)
	require.Equal(t, vfs.SourceDir, loc)

	loc, err = parseLocation("IntermediateDir")
	require.NoError(t, err)
	require.Equal(t, vfs.IntermediateDir, loc)

	loc, err = parseLocation("OutputDir")
	require.NoError(t, err)
	require.Equal(t, vfs.OutputDir, loc)

	_, err = parseLocation("Nonsense")
	require.Error(t, err)
}

func TestListStaleNodesReportsUncompiledNode(t *testing.T) {
	g, _ := newFixtureGraph(t)
	key := depgraph.NodeKey{Namespace: "fixture", TypeID: "thing", Location: vfs.SourceDir, Identifier: "id"}
	require.NoError(t, g.AddRoot(key))

	s := NewServer(g)
	result, err := s.handleListStaleNodes(context.Background(), &mcp.CallToolRequest{})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := result.Content[0].(*mcp.TextContent).Text
	var decoded struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	require.Equal(t, 1, decoded.Count)
}

func TestDescribeNodeReturnsErrorForUnknownNode(t *testing.T) {
	g, _ := newFixtureGraph(t)
	s := NewServer(g)

	params, err := json.Marshal(describeNodeParams{
		Namespace:  "fixture",
		TypeID:     "thing",
		Location:   "SourceDir",
		Identifier: "missing",
	})
	require.NoError(t, err)

	result, err := s.handleDescribeNode(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(params)},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestDescribeNodeDescribesRegisteredRoot(t *testing.T) {
	g, _ := newFixtureGraph(t)
	key := depgraph.NodeKey{Namespace: "fixture", TypeID: "thing", Location: vfs.SourceDir, Identifier: "id"}
	require.NoError(t, g.AddRoot(key))
	require.NoError(t, g.Build([]depgraph.NodeKey{key}))

	s := NewServer(g)
	params, err := json.Marshal(describeNodeParams{
		Namespace:  "fixture",
		TypeID:     "thing",
		Location:   "SourceDir",
		Identifier: "id",
	})
	require.NoError(t, err)

	result, err := s.handleDescribeNode(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(params)},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := result.Content[0].(*mcp.TextContent).Text
	var decoded struct {
		Compiled bool `json:"compiled"`
		Stale    bool `json:"stale"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	require.True(t, decoded.Compiled)
	require.False(t, decoded.Stale)
}
