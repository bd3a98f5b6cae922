package modules

import (
	"strings"
	"testing"
)

func testSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"segment_id":  {Type: "string", Description: "Segment ID"},
			"limit":       {Type: "number", Description: "Max rows"},
			"exact_match": {Type: "boolean", Description: "Exact match"},
			"fields":      {Type: "array", Description: "Field list"},
			"config":      {Type: "object", Description: "Settings"},
			"operation":   {Type: "string", Description: "Mode", Enum: []string{"insert", "upsert", "update"}},
		},
		Required: []string{"segment_id"},
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{
			name:   "valid minimal",
			params: map[string]any{"segment_id": "seg1"},
		},
		{
			name: "valid full",
			params: map[string]any{
				"segment_id":  "seg1",
				"limit":       float64(10),
				"exact_match": true,
				"fields":      []interface{}{"Id", "Name"},
				"config":      map[string]interface{}{"k": "v"},
				"operation":   "upsert",
			},
		},
		{
			name:    "missing required",
			params:  map[string]any{"limit": float64(10)},
			wantErr: "missing required parameter(s): segment_id",
		},
		{
			name:    "empty string counts as missing",
			params:  map[string]any{"segment_id": ""},
			wantErr: "missing required parameter(s): segment_id",
		},
		{
			name:    "nil counts as missing",
			params:  map[string]any{"segment_id": nil},
			wantErr: "missing required parameter(s): segment_id",
		},
		{
			name:    "wrong type string",
			params:  map[string]any{"segment_id": float64(42)},
			wantErr: "expected string",
		},
		{
			name:    "wrong type number",
			params:  map[string]any{"segment_id": "seg1", "limit": "ten"},
			wantErr: "expected number",
		},
		{
			name:    "wrong type boolean",
			params:  map[string]any{"segment_id": "seg1", "exact_match": "yes"},
			wantErr: "expected boolean",
		},
		{
			name:    "wrong type array",
			params:  map[string]any{"segment_id": "seg1", "fields": "Id,Name"},
			wantErr: "expected array",
		},
		{
			name:    "wrong type object",
			params:  map[string]any{"segment_id": "seg1", "config": "x"},
			wantErr: "expected object",
		},
		{
			name:    "enum violation",
			params:  map[string]any{"segment_id": "seg1", "operation": "delete"},
			wantErr: `"delete" is not one of insert, upsert, update`,
		},
		{
			name:   "undeclared params pass through",
			params: map[string]any{"segment_id": "seg1", "extra": "ignored"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(testSchema(), tt.params)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateParamsNilMap(t *testing.T) {
	schema := InputSchema{Type: "object", Properties: map[string]Property{}}
	out, err := ValidateParams(schema, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil {
		t.Error("expected a non-nil params map")
	}
}

func TestFindTool(t *testing.T) {
	tools := []Tool{{Name: "a"}, {Name: "b"}}
	if _, ok := findTool(tools, "b"); !ok {
		t.Error("expected to find tool b")
	}
	if _, ok := findTool(tools, "c"); ok {
		t.Error("did not expect to find tool c")
	}
}
