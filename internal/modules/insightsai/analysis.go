package insightsai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"sfdatacloud/server/internal/modules"
)

// analysisFraming maps each analysis type to the task description placed at
// the top of the generated prompt.
var analysisFraming = map[string]string{
	"segmentation": "Identify distinct customer segments in the data below. " +
		"For each segment describe its defining attributes, approximate size, and a suggested name.",
	"churn_prediction": "Assess churn risk in the data below. " +
		"Rank the strongest churn signals and list the profiles or cohorts most at risk.",
	"recommendation": "Derive next-best-action recommendations from the data below. " +
		"For each recommendation state the target audience and the expected effect.",
	"trend_analysis": "Describe the significant trends in the data below. " +
		"Call out direction, magnitude, and any anomalies worth investigating.",
}

func (m *Module) generatePrompt(params map[string]any) (string, error) {
	analysisType := params["analysis_type"].(string)
	framing, ok := analysisFraming[analysisType]
	if !ok || framing == "" {
		return "", fmt.Errorf("unsupported analysis type: %s", analysisType)
	}

	var b strings.Builder
	b.WriteString("You are a marketing data analyst working with Salesforce Data Cloud.\n\n")
	b.WriteString("Task: ")
	b.WriteString(framing)
	b.WriteString("\n\n")

	if data, ok := params["data"].([]interface{}); ok && len(data) > 0 {
		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "encode analysis data")
		}
		fmt.Fprintf(&b, "Data (%d rows):\n```json\n%s\n```\n\n", len(data), encoded)
	} else {
		b.WriteString("Data: none provided; answer with the queries you would need.\n\n")
	}

	if extra := modules.GetString(params, "custom_instructions", ""); extra != "" {
		b.WriteString("Additional instructions: ")
		b.WriteString(extra)
		b.WriteString("\n\n")
	}

	b.WriteString("Respond with a concise structured analysis: findings first, then recommended actions.")

	return modules.ToJSON(map[string]any{
		"analysis_type": analysisType,
		"prompt":        b.String(),
	})
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (m *Module) executeAnalysis(ctx context.Context, params map[string]any) (string, error) {
	if m.apiKey == "" {
		// Configuration gap, not a tool failure: tell the model what is
		// missing instead of erroring the call.
		return modules.ToJSON(map[string]any{
			"status": "unconfigured",
			"detail": "OPENAI_API_KEY is not set; use generate_ai_prompt and run the prompt elsewhere",
		})
	}

	prompt := params["prompt"].(string)
	model := modules.GetString(params, "model", m.model)
	temperature := 0.2
	if t, ok := params["temperature"].(float64); ok {
		temperature = t
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "encode chat request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		strings.TrimSuffix(m.baseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "chat completion call")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", errors.Wrap(err, "read chat response")
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrapf(err, "decode chat response (status %d)", resp.StatusCode)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion failed (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion failed with status %d", resp.StatusCode)
	}

	return modules.ToJSON(map[string]any{
		"model":        model,
		"analysis":     parsed.Choices[0].Message.Content,
		"total_tokens": parsed.Usage.TotalTokens,
	})
}
