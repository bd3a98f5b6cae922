package mcp

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"sfdatacloud/server/internal/jsonrpc"
	"sfdatacloud/server/internal/modules"
	"sfdatacloud/server/pkg/salesforceapi"

	"github.com/go-faster/errors"
)

const (
	serverName    = "salesforce-datacloud"
	serverVersion = "0.1.0"
)

// Handle dispatches one JSON-RPC request to the MCP method implementations.
// Notifications return nil.
func Handle(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if req.JSONRPC != jsonrpc.Version {
		return jsonrpc.NewError(req.ID, jsonrpc.ErrInvalidRequest, "unsupported jsonrpc version", nil)
	}

	switch req.Method {
	case "initialize":
		return jsonrpc.NewResponse(req.ID, handleInitialize())
	case "notifications/initialized", "initialized":
		return nil
	case "ping":
		return jsonrpc.NewResponse(req.ID, struct{}{})
	case "tools/list":
		return jsonrpc.NewResponse(req.ID, handleToolsList())
	case "tools/call":
		return handleToolsCall(ctx, req)
	case "resources/list":
		return jsonrpc.NewResponse(req.ID, handleResourcesList())
	case "resources/read":
		return handleResourcesRead(ctx, req)
	default:
		if req.IsNotification() {
			return nil
		}
		return jsonrpc.NewError(req.ID, jsonrpc.ErrMethodNotFound, "method not found: "+req.Method, nil)
	}
}

func handleInitialize() InitializeResult {
	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: Capabilities{
			Tools:     &ToolsCapability{ListChanged: false},
			Resources: &ResourcesCapability{},
		},
		ServerInfo: ServerInfo{Name: serverName, Version: serverVersion},
		Instructions: "Tools for querying Salesforce Data Cloud: segments, profiles, " +
			"calculated insights, activations, and direct SQL. Results marked " +
			"degraded=true are simulated placeholders, not live data.",
	}
}

func handleToolsList() ToolsListResult {
	var tools []modules.Tool
	for _, m := range modules.ListModules() {
		tools = append(tools, m.Tools()...)
	}
	if tools == nil {
		tools = []modules.Tool{}
	}
	return ToolsListResult{Tools: tools}
}

func handleToolsCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params ToolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.ErrInvalidParams, "invalid tools/call params: "+err.Error(), nil)
	}
	if params.Name == "" {
		return jsonrpc.NewError(req.ID, jsonrpc.ErrInvalidParams, "tool name is required", nil)
	}

	result, err := modules.Run(ctx, params.Name, params.Arguments)
	if err != nil {
		return toolError(req.ID, params.Name, err)
	}

	return jsonrpc.NewResponse(req.ID, modules.ToolCallResult{
		Content: []modules.ContentBlock{{Type: "text", Text: result}},
	})
}

// toolError maps execution failures onto the JSON-RPC surface. Credential
// failures and pagination overruns get protocol errors with server codes;
// everything else is an in-band tool error so the client model can read it.
func toolError(id json.RawMessage, tool string, err error) *jsonrpc.Response {
	var authErr *salesforceapi.AuthError
	if errors.As(err, &authErr) {
		return jsonrpc.NewError(id, jsonrpc.ErrAuthFailed, "salesforce authentication failed", authErr.Error())
	}
	var limitErr *salesforceapi.PaginationLimitError
	if errors.As(err, &limitErr) {
		return jsonrpc.NewError(id, jsonrpc.ErrUpstreamFailed, "pagination limit exceeded", limitErr.Error())
	}
	if strings.HasPrefix(err.Error(), "unknown tool:") {
		return jsonrpc.NewError(id, jsonrpc.ErrMethodNotFound, err.Error(), nil)
	}

	log.Printf("[mcp] tool %s error: %v", tool, err)
	return jsonrpc.NewResponse(id, modules.ToolCallResult{
		Content: []modules.ContentBlock{{Type: "text", Text: "Error: " + err.Error()}},
		IsError: true,
	})
}

func handleResourcesList() ResourcesListResult {
	resources := []modules.Resource{}
	for _, m := range modules.ListModules() {
		resources = append(resources, m.Resources()...)
	}
	return ResourcesListResult{Resources: resources}
}

func handleResourcesRead(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params ResourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.ErrInvalidParams, "invalid resources/read params: "+err.Error(), nil)
	}

	for _, m := range modules.ListModules() {
		for _, res := range m.Resources() {
			if res.URI != params.URI {
				continue
			}
			text, err := m.ReadResource(ctx, params.URI)
			if err != nil {
				return jsonrpc.NewError(req.ID, jsonrpc.ErrInternal, "read resource: "+err.Error(), nil)
			}
			mime := res.MimeType
			if mime == "" {
				mime = "application/json"
			}
			return jsonrpc.NewResponse(req.ID, ResourcesReadResult{
				Contents: []ResourceContents{{URI: params.URI, MimeType: mime, Text: text}},
			})
		}
	}
	return jsonrpc.NewError(req.ID, jsonrpc.ErrInvalidParams, "unknown resource: "+params.URI, nil)
}
