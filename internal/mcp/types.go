package mcp

import "sfdatacloud/server/internal/modules"

// ProtocolVersion is the MCP protocol revision this server implements.
const ProtocolVersion = "2025-06-18"

// ServerInfo identifies this server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities advertises which MCP primitives the server supports.
type Capabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// InitializeResult is the response to the initialize request.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Instructions    string       `json:"instructions,omitempty"`
}

// ToolsListResult is the response to tools/list.
type ToolsListResult struct {
	Tools []modules.Tool `json:"tools"`
}

// ToolsCallParams are the parameters of tools/call.
type ToolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ResourcesListResult is the response to resources/list.
type ResourcesListResult struct {
	Resources []modules.Resource `json:"resources"`
}

// ResourcesReadParams are the parameters of resources/read.
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourceContents is one entry in a resources/read response.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// ResourcesReadResult is the response to resources/read.
type ResourcesReadResult struct {
	Contents []ResourceContents `json:"contents"`
}
