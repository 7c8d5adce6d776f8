package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/engine"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/testutil"
)

var testImpl = &mcp.Implementation{Name: "bimbridge-test", Version: "0.1.0"}

func newServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	doc := testutil.Document(t)
	bridge := engine.NewBridge(testutil.StartLoop(t, doc),
		engine.NewDispatcher(engine.WithDispatchLogger(logger)),
		engine.WithLogger(logger),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("mcp")),
	)
	return New(bridge, WithLogger(logger))
}

func session(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	s.Register(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args any) (ir.Response, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")

	var resp ir.Response
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &resp))
	return resp, res.IsError
}

func TestListTools(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"operate_element_modify",
		"operate_element_transform",
		"operate_element_visibility",
		"operate_element_visual",
		"create_level",
		"create_room",
		"tag_rooms",
		"get_status",
		"filter_elements",
	}, names)
}

func TestModifyTool(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	resp, isErr := callTool(t, cs, "operate_element_modify", map[string]any{
		"data": map[string]any{
			"elementIds":     []int{int(testutil.DeskID), int(testutil.MissingID)},
			"modifyAction":   "SetParameter",
			"parameterName":  "Comments",
			"parameterValue": "checked",
		},
	})

	assert.False(t, isErr)
	assert.False(t, resp.Success)
	assert.Equal(t, 2, resp.Response.ProcessedCount)
	assert.Equal(t, []ir.ElementID{testutil.DeskID}, resp.Response.SuccessfulElements)
	require.Len(t, resp.Response.FailedElements, 1)
	assert.Equal(t, "element not found", resp.Response.FailedElements[0].Reason)
}

func TestVisibilityTool_ResetIsolate(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	resp, isErr := callTool(t, cs, "operate_element_visibility", map[string]any{
		"data": map[string]any{"elementIds": []int{}, "visibilityAction": "ResetIsolate"},
	})

	assert.False(t, isErr)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Response.ProcessedCount)
}

func TestCreateRoomTool(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	resp, isErr := callTool(t, cs, "create_room", map[string]any{
		"data": []map[string]any{
			{"x": 1000, "y": 1000, "number": "101"},
		},
	})

	assert.False(t, isErr)
	require.True(t, resp.Success, resp.Message)
	rooms, ok := resp.Response.Details["rooms"].([]any)
	require.True(t, ok)
	require.Len(t, rooms, 1)
	room := rooms[0].(map[string]any)
	assert.Equal(t, "102", room["number"])
	assert.Equal(t, "101", room["requestedNumber"])
}

func TestTagRoomsTool(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	resp, isErr := callTool(t, cs, "tag_rooms", map[string]any{
		"roomIds": []int{int(testutil.OfficeRoomID)},
	})

	assert.False(t, isErr)
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, true, resp.Response.Details["viewSwitched"])
	assert.Equal(t, "Level 1", resp.Response.Details["viewName"])
}

func TestStatusTool(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	resp, isErr := callTool(t, cs, "get_status", map[string]any{})

	assert.False(t, isErr)
	require.True(t, resp.Success, resp.Message)
	status, ok := resp.Response.Details["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Untitled", status["title"])
	assert.Equal(t, 2.0, status["levelCount"])
	assert.Equal(t, "{3D}", status["activeView"].(map[string]any)["name"])
}

func TestFilterTool(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	resp, isErr := callTool(t, cs, "filter_elements", map[string]any{
		"data": map[string]any{"filterCategory": "Doors", "includeTypes": true},
	})

	assert.False(t, isErr)
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, []ir.ElementID{testutil.DoorID, testutil.DoorTypeID}, resp.Response.SuccessfulElements)
	elements, ok := resp.Response.Details["elements"].([]any)
	require.True(t, ok)
	require.Len(t, elements, 2)
	assert.Equal(t, "Single Door", elements[1].(map[string]any)["name"])
}

func TestDecodeErrorsAreToolErrors(t *testing.T) {
	s := newServer(t)
	cs := session(t, s)

	tests := []struct {
		name      string
		tool      string
		args      any
		message   string
		attempted int
	}{
		{
			name:    "missing data",
			tool:    "operate_element_transform",
			args:    map[string]any{},
			message: "missing 'data' in request",
		},
		{
			name: "wrong family",
			tool: "operate_element_visual",
			args: map[string]any{"data": map[string]any{
				"elementIds":   []int{1, 2, 3},
				"visualAction": "Hide",
			}},
			message:   "visualAction",
			attempted: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, isErr := callTool(t, cs, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Message, tt.message)
			assert.Equal(t, tt.attempted, resp.Response.ProcessedCount)
			assert.Empty(t, resp.Response.SuccessfulElements)
		})
	}
}

func TestHandle_ValidationIsNotAToolError(t *testing.T) {
	s := newServer(t)

	resp, err := s.Handle(context.Background(), ir.ToolCreateLevel, []byte(`{"data":[{"name":"L3"}]}`))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "elevation")
}

func TestHandle_UnknownTool(t *testing.T) {
	s := newServer(t)

	_, err := s.Handle(context.Background(), ir.Tool("explode"), nil)
	var de *ir.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "unknown tool", de.Message)
}
