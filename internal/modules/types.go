package modules

import "context"

// =============================================================================
// Module Interface
// =============================================================================

// Module defines the interface that all modules must implement.
// Each module provides Tools and Resources (MCP primitives).
type Module interface {
	// Metadata
	Name() string
	Description() string
	APIVersion() string

	// Tools - LLM executes, may have side effects
	Tools() []Tool
	ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error)

	// Resources - LLM reads, no side effects
	Resources() []Resource
	ReadResource(ctx context.Context, uri string) (string, error)
}

// =============================================================================
// Tool Definition
// =============================================================================

// ToolAnnotations describes the tool's behavior hints per MCP spec (2025-11-25).
type ToolAnnotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

// Helper to create *bool for annotation fields
func boolPtr(v bool) *bool { return &v }

// Pre-built annotation sets for common tool patterns. The read/write split
// mirrors the fallback router's retry policy: read tools may fall through
// the whole target chain, write tools stop at the first hard failure.
var (
	// AnnotateReadOnly: list, get, search, query tools
	AnnotateReadOnly = &ToolAnnotations{
		ReadOnlyHint:  boolPtr(true),
		OpenWorldHint: boolPtr(false),
	}
	// AnnotateCreate: activate, subscribe, store tools (non-idempotent write)
	AnnotateCreate = &ToolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
	// AnnotateUpdate: upsert-style tools (idempotent write)
	AnnotateUpdate = &ToolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}
	// AnnotateDestructive: ingest, merge/split (destructive, non-idempotent)
	AnnotateDestructive = &ToolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(true),
		IdempotentHint:  boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
)

// Tool represents an MCP tool definition
type Tool struct {
	ID          string           `json:"id,omitempty"` // Stable ID (e.g., "datacloud:get_segments")
	Name        string           `json:"name"`         // Execution key
	Description string           `json:"description"`
	InputSchema InputSchema      `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// InputSchema defines the input parameters for a tool
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single property in the input schema
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// =============================================================================
// Resource Definition
// =============================================================================

// Resource represents an MCP resource definition
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// =============================================================================
// Result Types
// =============================================================================

// ToolCallResult represents the result of a tool call
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock represents a content block in the result
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
