package modules

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"sfdatacloud/server/internal/db"
	"sfdatacloud/server/internal/observability"
)

// defaultToolTimeout bounds a single tool execution, independent of the
// fallback chain's own timeout.
const defaultToolTimeout = 3 * time.Minute

var (
	registry   = make(map[string]Module)
	registryMu sync.RWMutex

	tracer = otel.Tracer("sfdatacloud/server/internal/modules")
	meter  = otel.Meter("sfdatacloud/server/internal/modules")

	toolCalls metric.Int64Counter
)

func init() {
	toolCalls, _ = meter.Int64Counter("mcp.tool.calls",
		metric.WithDescription("Tool executions by module, tool, and status"))
}

// RegisterModule adds a module to the registry. Later registrations with the
// same name replace earlier ones.
func RegisterModule(m Module) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[m.Name()] = m
}

// GetModule returns a module by name.
func GetModule(name string) (Module, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := registry[name]
	return m, ok
}

// ListModules returns all registered modules, sorted by name for stable
// tools/list output.
func ListModules() []Module {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Module, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// FindToolOwner locates the module that declares the given tool name.
// Tool names are unique across modules; the MCP tools/call surface is flat.
func FindToolOwner(toolName string) (Module, Tool, bool) {
	for _, m := range ListModules() {
		if t, ok := findTool(m.Tools(), toolName); ok {
			return m, t, true
		}
	}
	return nil, Tool{}, false
}

// Run validates parameters and executes one tool call, with tracing, the
// usage audit trail, and a per-call timeout. All tools/call traffic funnels
// through here.
func Run(ctx context.Context, toolName string, params map[string]any) (string, error) {
	mod, tool, ok := FindToolOwner(toolName)
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}

	validated, err := ValidateParams(tool.InputSchema, params)
	if err != nil {
		return "", fmt.Errorf("invalid parameters for %s: %w", toolName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultToolTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "mcp.tool.call",
		trace.WithAttributes(
			attribute.String("module", mod.Name()),
			attribute.String("tool", toolName),
		))
	defer span.End()

	start := time.Now()
	result, err := mod.ExecuteTool(ctx, toolName, validated)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		log.Printf("[modules] %s/%s failed after %s: %v", mod.Name(), toolName, elapsed.Round(time.Millisecond), err)
	}
	toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("module", mod.Name()),
		attribute.String("tool", toolName),
		attribute.String("status", status),
	))
	observability.LogToolCall(mod.Name(), toolName, elapsed, err)
	db.RecordToolCall(ctx, mod.Name(), toolName, validated, elapsed, err)

	return result, err
}
