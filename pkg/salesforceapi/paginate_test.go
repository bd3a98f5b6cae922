package salesforceapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestDrainBatches(t *testing.T) {
	var followups int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		followups++
		switch r.URL.Query().Get("batchId") {
		case "b1":
			writeJSON(t, w, map[string]any{
				"data":        []any{map[string]any{"Id": "3"}, map[string]any{"Id": "4"}},
				"nextBatchId": "b2",
			})
		case "b2":
			writeJSON(t, w, map[string]any{
				"data": []any{map[string]any{"Id": "5"}},
			})
		default:
			t.Errorf("unexpected batchId %q", r.URL.Query().Get("batchId"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	first := map[string]any{
		"data":        []any{map[string]any{"Id": "1"}, map[string]any{"Id": "2"}},
		"nextBatchId": "b1",
	}
	res, _ := Normalize(first, "query-api-v2")

	p := paginator{doer: newHTTPDoer(0)}
	err := p.drain(context.Background(), PaginateBatchID, Credential{Token: "tok"}, "query-api-v2", srv.URL+"/api/v2/query", first, res)
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if followups != 2 {
		t.Errorf("expected exactly 2 follow-up requests, got %d", followups)
	}
	if len(res.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(res.Rows))
	}
	// Arrival order preserved
	for i, want := range []string{"1", "2", "3", "4", "5"} {
		if got := res.Rows[i]["Id"]; got != want {
			t.Errorf("row %d: got Id %v, want %s", i, got, want)
		}
	}
	if res.TotalCount != 5 {
		t.Errorf("expected TotalCount 5, got %d", res.TotalCount)
	}
}

func TestDrainBatchesFailedFollowupKeepsPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	first := map[string]any{
		"data":        []any{map[string]any{"Id": "1"}},
		"nextBatchId": "b1",
	}
	res, _ := Normalize(first, "query-api-v2")

	p := paginator{doer: newHTTPDoer(0)}
	err := p.drain(context.Background(), PaginateBatchID, Credential{}, "query-api-v2", srv.URL, first, res)
	if err != nil {
		t.Fatalf("failed batch follow-up must end paging, not error: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("expected the first page kept, got %d rows", len(res.Rows))
	}
}

func TestDrainBatchesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Never terminates: every page advertises another batch.
		writeJSON(t, w, map[string]any{
			"data":        []any{map[string]any{"Id": "x"}},
			"nextBatchId": "again",
		})
	}))
	defer srv.Close()

	first := map[string]any{"data": []any{}, "nextBatchId": "b1"}
	res, _ := Normalize(first, "query-api-v2")

	p := paginator{doer: newHTTPDoer(0), maxPages: 3}
	err := p.drain(context.Background(), PaginateBatchID, Credential{}, "query-api-v2", srv.URL, first, res)
	if err == nil {
		t.Fatal("expected PaginationLimitError")
	}
	limitErr, ok := err.(*PaginationLimitError)
	if !ok {
		t.Fatalf("expected PaginationLimitError, got %T: %v", err, err)
	}
	if limitErr.MaxPages != 3 {
		t.Errorf("expected MaxPages 3, got %d", limitErr.MaxPages)
	}
}

func TestDrainRecords(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeJSON(t, w, map[string]any{
			"records":   []any{map[string]any{"Id": "2"}},
			"done":      true,
			"totalSize": float64(2),
		})
	}))
	defer srv.Close()

	first := map[string]any{
		"records":        []any{map[string]any{"Id": "1"}},
		"done":           false,
		"nextRecordsUrl": "/services/data/v59.0/query/01g-2000",
		"totalSize":      float64(2),
	}
	res, _ := Normalize(first, "soql")

	p := paginator{doer: newHTTPDoer(0)}
	err := p.drain(context.Background(), PaginateNextURL, Credential{InstanceURL: srv.URL}, "soql", srv.URL, first, res)
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if gotPath != "/services/data/v59.0/query/01g-2000" {
		t.Errorf("relative nextRecordsUrl not resolved against instance, got path %q", gotPath)
	}
	if len(res.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(res.Rows))
	}
}

func TestDrainRecordsFailedFollowupIsHard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	first := map[string]any{
		"records":        []any{map[string]any{"Id": "1"}},
		"done":           false,
		"nextRecordsUrl": srv.URL + "/next",
	}
	res, _ := Normalize(first, "soql")

	p := paginator{doer: newHTTPDoer(0)}
	err := p.drain(context.Background(), PaginateNextURL, Credential{InstanceURL: srv.URL}, "soql", srv.URL, first, res)
	if err == nil {
		t.Fatal("expected error for failed nextRecordsUrl follow-up")
	}
	if _, ok := err.(*UpstreamError); !ok {
		t.Errorf("expected UpstreamError, got %T", err)
	}
}

func TestDrainRecordsDoneImmediately(t *testing.T) {
	first := map[string]any{
		"records": []any{map[string]any{"Id": "1"}},
		"done":    true,
	}
	res, _ := Normalize(first, "soql")

	p := paginator{doer: newHTTPDoer(0)}
	if err := p.drain(context.Background(), PaginateNextURL, Credential{}, "soql", "", first, res); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(res.Rows))
	}
}

func TestDrainNoneIsNoop(t *testing.T) {
	first := map[string]any{"records": []any{map[string]any{"Id": "1"}}}
	res, _ := Normalize(first, "connect")

	p := paginator{doer: newHTTPDoer(0)}
	if err := p.drain(context.Background(), PaginateNone, Credential{}, "connect", "", first, res); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(res.Rows))
	}
}
