package salesforceapi

import (
	"encoding/json"

	"github.com/go-faster/jx"
)

// rowFieldCandidates is the prioritized list of field names that may carry
// the row collection, covering every API generation's payload convention.
var rowFieldCandidates = []string{
	"records", "data", "segments", "members", "insights", "activations", "sobjects",
}

// countFieldCandidates name the explicit total-count fields upstream
// responses may carry.
var countFieldCandidates = []string{"totalSize", "totalCount"}

// Result is the canonical response shape every API generation collapses
// into. Degraded marks a simulated or fallback-exhausted result so callers
// can distinguish it from genuine data; Note explains which tier answered
// or why none could.
type Result struct {
	Rows       []map[string]any `json:"rows"`
	TotalCount int              `json:"totalSize"`
	Source     string           `json:"source"`
	Degraded   bool             `json:"degraded"`
	Note       string           `json:"note,omitempty"`

	// Raw holds the full upstream payload for document-shaped operations
	// (describe, metadata) whose result is a single object rather than a
	// row collection. Empty for degraded results.
	Raw jx.Raw `json:"-"`
}

// Normalize maps one API generation's payload into the canonical Result.
// Rows come from the first present candidate field; the total count comes
// from an explicit count field when the payload carries one, else the row
// count. The only failure mode is a payload that is not an object at all;
// the router treats that as a hard failure for the producing target.
func Normalize(payload map[string]any, source string) (*Result, error) {
	if payload == nil {
		return nil, &NormalizationError{Target: source, Reason: "payload is not a JSON object"}
	}

	res := &Result{Source: source, Rows: []map[string]any{}}

	for _, field := range rowFieldCandidates {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			if row, ok := item.(map[string]any); ok {
				res.Rows = append(res.Rows, row)
			}
		}
		break
	}

	res.TotalCount = len(res.Rows)
	for _, field := range countFieldCandidates {
		if n, ok := payload[field].(float64); ok {
			res.TotalCount = int(n)
			break
		}
	}

	if encoded, err := json.Marshal(payload); err == nil {
		res.Raw = jx.Raw(encoded)
	}

	return res, nil
}

// extractRows pulls the row collection out of a continuation page using the
// same candidate priority as Normalize.
func extractRows(payload map[string]any) []map[string]any {
	for _, field := range rowFieldCandidates {
		items, ok := payload[field].([]any)
		if !ok {
			continue
		}
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows
	}
	return nil
}
