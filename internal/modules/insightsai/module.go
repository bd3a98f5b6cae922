package insightsai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"sfdatacloud/server/internal/modules"
)

// Module builds analysis prompts from Data Cloud result sets and runs them
// against an OpenAI-compatible chat completion endpoint.
type Module struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// New configures the module from the environment: OPENAI_API_KEY,
// OPENAI_BASE_URL, OPENAI_MODEL. A missing key disables execution but not
// prompt generation.
func New() *Module {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Module{
		client:  &http.Client{Timeout: 120 * time.Second},
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		model:   model,
	}
}

func (m *Module) Name() string { return "insightsai" }

func (m *Module) Description() string {
	return "AI analysis over Data Cloud results: build structured analysis " +
		"prompts and execute them against a chat completion model."
}

func (m *Module) APIVersion() string { return "v1" }

func (m *Module) Resources() []modules.Resource { return nil }

func (m *Module) ReadResource(ctx context.Context, uri string) (string, error) {
	return "", fmt.Errorf("unknown resource: %s", uri)
}

func (m *Module) Tools() []modules.Tool {
	return []modules.Tool{
		{
			ID:   "insightsai:generate_ai_prompt",
			Name: "generate_ai_prompt",
			Description: "Build a structured analysis prompt from segment or query data. " +
				"Pure transformation, no network call.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"analysis_type": {
						Type:        "string",
						Description: "Kind of analysis to frame",
						Enum:        []string{"segmentation", "churn_prediction", "recommendation", "trend_analysis"},
					},
					"data": {
						Type:        "array",
						Description: "Rows to analyze (typically a tool result's rows field)",
						Items:       &modules.Property{Type: "object"},
					},
					"custom_instructions": {Type: "string", Description: "Extra guidance appended to the prompt"},
				},
				Required: []string{"analysis_type"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "insightsai:execute_ai_analysis",
			Name:        "execute_ai_analysis",
			Description: "Run a prompt against the configured chat completion model.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"prompt": {Type: "string", Description: "Analysis prompt, typically from generate_ai_prompt"},
					"model":  {Type: "string", Description: "Model override (defaults to OPENAI_MODEL)"},
					"temperature": {
						Type:        "number",
						Description: "Sampling temperature 0-2 (default 0.2)",
					},
				},
				Required: []string{"prompt"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
	}
}

// ExecuteTool dispatches one validated tool call.
func (m *Module) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	switch name {
	case "generate_ai_prompt":
		return m.generatePrompt(params)
	case "execute_ai_analysis":
		return m.executeAnalysis(ctx, params)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}
