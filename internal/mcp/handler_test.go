package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"sfdatacloud/server/internal/jsonrpc"
	"sfdatacloud/server/internal/modules"
)

type echoModule struct{}

func (echoModule) Name() string        { return "echo" }
func (echoModule) Description() string { return "echo module" }
func (echoModule) APIVersion() string  { return "v1" }

func (echoModule) Tools() []modules.Tool {
	return []modules.Tool{{
		ID:          "echo:echo_text",
		Name:        "echo_text",
		Description: "returns its input",
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"text": {Type: "string", Description: "text"},
			},
			Required: []string{"text"},
		},
		Annotations: modules.AnnotateReadOnly,
	}}
}

func (echoModule) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	return params["text"].(string), nil
}

func (echoModule) Resources() []modules.Resource {
	return []modules.Resource{{
		URI:      "echo://state",
		Name:     "Echo State",
		MimeType: "application/json",
	}}
}

func (echoModule) ReadResource(ctx context.Context, uri string) (string, error) {
	if uri == "echo://state" {
		return `{"ok":true}`, nil
	}
	return "", fmt.Errorf("unknown resource: %s", uri)
}

func init() {
	modules.RegisterModule(echoModule{})
}

func request(t *testing.T, method string, params any) *jsonrpc.Request {
	t.Helper()
	req := &jsonrpc.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			t.Fatal(err)
		}
		req.Params = raw
	}
	return req
}

func TestHandleInitialize(t *testing.T) {
	resp := Handle(context.Background(), request(t, "initialize", nil))
	if resp == nil || resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp)
	}
	result, ok := resp.Result.(InitializeResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result.ServerInfo.Name != "salesforce-datacloud" {
		t.Errorf("got server name %q", result.ServerInfo.Name)
	}
	if result.ProtocolVersion != ProtocolVersion {
		t.Errorf("got protocol version %q", result.ProtocolVersion)
	}
	if result.Capabilities.Tools == nil || result.Capabilities.Resources == nil {
		t.Error("expected tools and resources capabilities")
	}
}

func TestHandleInitializedNotification(t *testing.T) {
	req := &jsonrpc.Request{JSONRPC: "2.0", Method: "notifications/initialized"}
	if resp := Handle(context.Background(), req); resp != nil {
		t.Errorf("notification must not produce a response, got %+v", resp)
	}
}

func TestHandleToolsList(t *testing.T) {
	resp := Handle(context.Background(), request(t, "tools/list", nil))
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/list failed: %+v", resp)
	}
	result, ok := resp.Result.(ToolsListResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	found := false
	for _, tool := range result.Tools {
		if tool.Name == "echo_text" {
			found = true
		}
	}
	if !found {
		t.Error("tools/list missing registered tool")
	}
}

func TestHandleToolsCall(t *testing.T) {
	resp := Handle(context.Background(), request(t, "tools/call", ToolsCallParams{
		Name:      "echo_text",
		Arguments: map[string]any{"text": "hello"},
	}))
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/call failed: %+v", resp)
	}
	result, ok := resp.Result.(modules.ToolCallResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result.IsError {
		t.Error("unexpected tool error")
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hello" {
		t.Errorf("unexpected content: %+v", result.Content)
	}
}

func TestHandleToolsCallValidationError(t *testing.T) {
	resp := Handle(context.Background(), request(t, "tools/call", ToolsCallParams{
		Name:      "echo_text",
		Arguments: map[string]any{},
	}))
	if resp == nil {
		t.Fatal("expected a response")
	}
	// Validation failures are in-band tool errors so the model can react.
	result, ok := resp.Result.(modules.ToolCallResult)
	if !ok {
		t.Fatalf("unexpected result type %T (error=%+v)", resp.Result, resp.Error)
	}
	if !result.IsError {
		t.Error("expected IsError=true")
	}
}

func TestHandleToolsCallUnknownTool(t *testing.T) {
	resp := Handle(context.Background(), request(t, "tools/call", ToolsCallParams{Name: "no_such_tool"}))
	if resp == nil || resp.Error == nil {
		t.Fatal("expected protocol error for unknown tool")
	}
	if resp.Error.Code != jsonrpc.ErrMethodNotFound {
		t.Errorf("got code %d", resp.Error.Code)
	}
}

func TestHandleResources(t *testing.T) {
	resp := Handle(context.Background(), request(t, "resources/list", nil))
	if resp == nil || resp.Error != nil {
		t.Fatalf("resources/list failed: %+v", resp)
	}
	list, ok := resp.Result.(ResourcesListResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	found := false
	for _, res := range list.Resources {
		if res.URI == "echo://state" {
			found = true
		}
	}
	if !found {
		t.Fatal("resources/list missing echo://state")
	}

	resp = Handle(context.Background(), request(t, "resources/read", ResourcesReadParams{URI: "echo://state"}))
	if resp == nil || resp.Error != nil {
		t.Fatalf("resources/read failed: %+v", resp)
	}
	read, ok := resp.Result.(ResourcesReadResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(read.Contents) != 1 || read.Contents[0].Text != `{"ok":true}` {
		t.Errorf("unexpected contents: %+v", read.Contents)
	}
}

func TestHandleResourcesReadUnknown(t *testing.T) {
	resp := Handle(context.Background(), request(t, "resources/read", ResourcesReadParams{URI: "nope://x"}))
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error for unknown resource")
	}
	if resp.Error.Code != jsonrpc.ErrInvalidParams {
		t.Errorf("got code %d", resp.Error.Code)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	resp := Handle(context.Background(), request(t, "bogus/method", nil))
	if resp == nil || resp.Error == nil {
		t.Fatal("expected method-not-found error")
	}
	if resp.Error.Code != jsonrpc.ErrMethodNotFound {
		t.Errorf("got code %d", resp.Error.Code)
	}
}

func TestHandleWrongVersion(t *testing.T) {
	req := &jsonrpc.Request{JSONRPC: "1.0", ID: json.RawMessage(`1`), Method: "initialize"}
	resp := Handle(context.Background(), req)
	if resp == nil || resp.Error == nil || resp.Error.Code != jsonrpc.ErrInvalidRequest {
		t.Fatalf("expected invalid-request error, got %+v", resp)
	}
}
