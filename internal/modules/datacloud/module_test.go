package datacloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sfdatacloud/server/pkg/salesforceapi"
)

type staticAuth struct {
	cred salesforceapi.Credential
}

func (a staticAuth) Authenticate(ctx context.Context) (salesforceapi.Credential, error) {
	return a.cred, nil
}

// newTestModule wires the module against an org simulated by handler.
func newTestModule(t *testing.T, handler http.Handler) (*Module, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session := salesforceapi.NewSession(staticAuth{cred: salesforceapi.Credential{
		Token:       "tok",
		InstanceURL: srv.URL,
	}})
	api := salesforceapi.NewAPI(session, "v59.0", salesforceapi.Config{})
	return New(api, Config{LoginURL: "https://login.salesforce.com", APIVersion: "v59.0", Username: "svc@example.com"}), srv
}

// legacyOnlyOrg behaves like a tenant without the Query API V2: modern
// endpoints 404, the legacy SOQL endpoint answers.
func legacyOnlyOrg(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v2/query":
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/services/data/v59.0/query":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"records": []any{
					map[string]any{"ProfileId__c": "p1", "SegmentId__c": "seg1"},
					map[string]any{"ProfileId__c": "p2", "SegmentId__c": "seg1"},
				},
				"totalSize": 2,
				"done":      true,
			})
		default:
			t.Logf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestGetSegmentMembersFallsBackToSOQL(t *testing.T) {
	mod, _ := newTestModule(t, legacyOnlyOrg(t))

	out, err := mod.ExecuteTool(context.Background(), "get_segment_members", map[string]any{
		"segment_id": "seg1",
		"limit":      float64(2),
	})
	if err != nil {
		t.Fatalf("ExecuteTool returned error: %v", err)
	}

	var res struct {
		Rows     []map[string]any `json:"rows"`
		Total    int              `json:"totalSize"`
		Source   string           `json:"source"`
		Degraded bool             `json:"degraded"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(res.Rows) != 2 || res.Total != 2 {
		t.Errorf("expected 2 rows/total, got %d/%d", len(res.Rows), res.Total)
	}
	if res.Source != "soql" {
		t.Errorf("expected source soql, got %q", res.Source)
	}
	if res.Degraded {
		t.Error("legacy fallback is live data, must not be degraded")
	}
}

func TestActivateSegmentDegradesToSimulated(t *testing.T) {
	mod, _ := newTestModule(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	out, err := mod.ExecuteTool(context.Background(), "activate_segment", map[string]any{
		"segment_id":        "seg1",
		"activation_target": "email_platform",
	})
	if err != nil {
		t.Fatalf("ExecuteTool returned error: %v", err)
	}

	var res struct {
		Rows     []map[string]any `json:"rows"`
		Source   string           `json:"source"`
		Degraded bool             `json:"degraded"`
		Note     string           `json:"note"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if !res.Degraded || res.Source != "simulated" {
		t.Errorf("expected simulated degraded result, got source=%q degraded=%v", res.Source, res.Degraded)
	}
	if len(res.Rows) != 1 || res.Rows[0]["segment_id"] != "seg1" {
		t.Errorf("expected a simulated activation row, got %v", res.Rows)
	}
	if res.Note == "" {
		t.Error("expected explanatory note")
	}
}

func TestIngestSurfacesHardFailure(t *testing.T) {
	mod, _ := newTestModule(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"INVALID_FIELD"}`))
	}))

	_, err := mod.ExecuteTool(context.Background(), "ingest_data_cloud", map[string]any{
		"object_name": "Contact__dlm",
		"records":     []interface{}{map[string]any{"Email__c": "a@b.c"}},
	})
	if err == nil {
		t.Fatal("a mutating 400 must surface as an error, not degrade")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error should carry the upstream status: %v", err)
	}
}

func TestDescribeObjectReturnsDocument(t *testing.T) {
	mod, _ := newTestModule(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/data/v59.0/sobjects/Account/describe" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name":   "Account",
			"fields": []any{map[string]any{"name": "Id", "type": "id"}},
		})
	}))

	out, err := mod.ExecuteTool(context.Background(), "describe_object", map[string]any{
		"object_name": "Account",
	})
	if err != nil {
		t.Fatalf("ExecuteTool returned error: %v", err)
	}
	if !strings.Contains(out, `"name": "Account"`) {
		t.Errorf("describe output missing document payload:\n%s", out)
	}
}

func TestToolSurface(t *testing.T) {
	mod, _ := newTestModule(t, legacyOnlyOrg(t))

	tools := mod.Tools()
	if len(tools) != 18 {
		t.Errorf("expected 18 tools, got %d", len(tools))
	}

	seen := make(map[string]bool, len(tools))
	for _, tool := range tools {
		if seen[tool.Name] {
			t.Errorf("duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = true
		if tool.Annotations == nil {
			t.Errorf("tool %q has no annotations", tool.Name)
		}
		if tool.InputSchema.Type != "object" {
			t.Errorf("tool %q schema type %q", tool.Name, tool.InputSchema.Type)
		}
	}

	for _, name := range []string{"query_data_cloud", "get_segments", "activate_segment", "store_ai_results"} {
		if !seen[name] {
			t.Errorf("missing tool %q", name)
		}
	}
}

func TestConfigResourceMasksUsername(t *testing.T) {
	mod, _ := newTestModule(t, legacyOnlyOrg(t))

	out, err := mod.ReadResource(context.Background(), "salesforce://config")
	if err != nil {
		t.Fatalf("ReadResource returned error: %v", err)
	}
	if strings.Contains(out, "svc@example.com") {
		t.Error("config resource must not expose the full username")
	}
	if !strings.Contains(out, "***@example.com") {
		t.Errorf("expected masked username, got:\n%s", out)
	}
	if !strings.Contains(out, "v59.0") {
		t.Error("config resource missing api version")
	}
}
