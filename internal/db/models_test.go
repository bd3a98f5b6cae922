package db

import (
	"testing"
)

func TestJSONBRoundTrip(t *testing.T) {
	original := JSONB{
		"segment_id": "seg1",
		"limit":      float64(100),
		"nested":     map[string]any{"k": "v"},
	}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}

	var restored JSONB
	if err := restored.Scan(value); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if restored["segment_id"] != "seg1" {
		t.Errorf("got %v", restored["segment_id"])
	}
	if restored["limit"] != float64(100) {
		t.Errorf("got %v", restored["limit"])
	}
	nested, ok := restored["nested"].(map[string]any)
	if !ok || nested["k"] != "v" {
		t.Errorf("nested value lost: %v", restored["nested"])
	}
}

func TestJSONBNil(t *testing.T) {
	var j JSONB
	value, err := j.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}
	if value != nil {
		t.Errorf("nil JSONB should store SQL NULL, got %v", value)
	}

	var restored JSONB
	if err := restored.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) returned error: %v", err)
	}
	if restored != nil {
		t.Errorf("expected nil, got %v", restored)
	}
}

func TestJSONBScanString(t *testing.T) {
	var j JSONB
	if err := j.Scan(`{"a":1}`); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if j["a"] != float64(1) {
		t.Errorf("got %v", j["a"])
	}
}

func TestJSONBScanUnsupportedType(t *testing.T) {
	var j JSONB
	if err := j.Scan(42); err == nil {
		t.Error("expected error for unsupported source type")
	}
}
