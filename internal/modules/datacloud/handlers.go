package datacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sfdatacloud/server/internal/modules"
	"sfdatacloud/server/pkg/salesforceapi"
)

// ExecuteTool dispatches one validated tool call.
func (m *Module) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	switch name {
	case "query_data_cloud":
		return m.queryDataCloud(ctx, params)
	case "get_data_cloud_objects":
		return m.getObjects(ctx)
	case "describe_object":
		return m.describeObject(ctx, params)
	case "get_data_cloud_metadata":
		return m.getMetadata(ctx, params)
	case "get_segments":
		return m.getSegments(ctx, params)
	case "get_segment_members":
		return m.getSegmentMembers(ctx, params)
	case "enrich_profiles":
		return m.enrichProfiles(ctx, params)
	case "activate_segment":
		return m.activateSegment(ctx, params)
	case "ingest_data_cloud":
		return m.ingest(ctx, params)
	case "get_calculated_insights":
		return m.getCalculatedInsights(ctx, params)
	case "manage_profiles":
		return m.manageProfiles(ctx, params)
	case "get_segment_activations":
		return m.getSegmentActivations(ctx, params)
	case "real_time_segment_events":
		return m.subscribeSegmentEvents(ctx, params)
	case "get_connect_segments":
		return m.getConnectSegments(ctx, params)
	case "get_connect_segment_details":
		return m.getConnectSegmentDetails(ctx, params)
	case "get_connect_segment_members":
		return m.getConnectSegmentMembers(ctx, params)
	case "search_connect_segments":
		return m.searchConnectSegments(ctx, params)
	case "store_ai_results":
		return m.storeAIResults(ctx, params)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// formatResult renders a Result for the client. Document-shaped responses
// (describe, metadata) surface the raw payload instead of an empty row set.
func formatResult(res *salesforceapi.Result) (string, error) {
	if len(res.Rows) == 0 && len(res.Raw) > 0 && !res.Degraded {
		return modules.ToJSON(map[string]any{
			"data":   json.RawMessage(res.Raw),
			"source": res.Source,
		})
	}
	return modules.ToJSON(res)
}

func (m *Module) queryDataCloud(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.Query(ctx, params["query"].(string))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getObjects(ctx context.Context) (string, error) {
	res, err := m.api.Objects(ctx)
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) describeObject(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.Describe(ctx, params["object_name"].(string))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getMetadata(ctx context.Context, params map[string]any) (string, error) {
	filters := map[string]string{}
	for param, field := range map[string]string{
		"entity_type":     "entityType",
		"entity_category": "entityCategory",
		"entity_name":     "entityName",
	} {
		if v := modules.GetString(params, param, ""); v != "" {
			filters[field] = v
		}
	}
	res, err := m.api.Metadata(ctx, filters)
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getSegments(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.Segments(ctx, modules.GetString(params, "segment_type", "all"))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getSegmentMembers(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.SegmentMembers(ctx,
		params["segment_id"].(string),
		modules.GetInt(params, "limit", 100))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) enrichProfiles(ctx context.Context, params map[string]any) (string, error) {
	profileIDs := modules.ToStringSlice(params["profile_ids"])
	if len(profileIDs) == 0 {
		return "", fmt.Errorf("profile_ids must contain at least one ID")
	}
	res, err := m.api.EnrichProfiles(ctx, profileIDs, modules.ToStringSlice(params["fields"]))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) activateSegment(ctx context.Context, params map[string]any) (string, error) {
	config, _ := params["config"].(map[string]any)
	res, err := m.api.ActivateSegment(ctx,
		params["segment_id"].(string),
		params["activation_target"].(string),
		config)
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) ingest(ctx context.Context, params map[string]any) (string, error) {
	records, _ := params["records"].([]interface{})
	if len(records) == 0 {
		return "", fmt.Errorf("records must contain at least one record")
	}
	res, err := m.api.Ingest(ctx,
		params["object_name"].(string),
		records,
		modules.GetString(params, "operation", "upsert"))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getCalculatedInsights(ctx context.Context, params map[string]any) (string, error) {
	filters := map[string]string{}
	if raw, ok := params["filters"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				filters[k] = s
			}
		}
	}
	res, err := m.api.CalculatedInsights(ctx, modules.GetString(params, "insight_name", ""), filters)
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) manageProfiles(ctx context.Context, params map[string]any) (string, error) {
	profileData, _ := params["profile_data"].(map[string]any)
	res, err := m.api.ManageProfiles(ctx, params["operation"].(string), profileData)
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getSegmentActivations(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.SegmentActivations(ctx,
		modules.GetString(params, "segment_id", ""),
		modules.GetString(params, "activation_type", ""))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) subscribeSegmentEvents(ctx context.Context, params map[string]any) (string, error) {
	eventTypes := modules.ToStringSlice(params["event_types"])
	if len(eventTypes) == 0 {
		eventTypes = []string{"member_added", "member_removed"}
	}
	res, err := m.api.SubscribeSegmentEvents(ctx,
		params["segment_id"].(string),
		eventTypes,
		params["webhook_url"].(string))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getConnectSegments(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.ConnectSegments(ctx,
		modules.GetString(params, "segment_name", ""),
		modules.GetString(params, "status", ""))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getConnectSegmentDetails(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.ConnectSegmentDetails(ctx, params["segment_id"].(string))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) getConnectSegmentMembers(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.ConnectSegmentMembers(ctx,
		params["segment_id"].(string),
		modules.GetInt(params, "limit", 100),
		modules.GetInt(params, "offset", 0))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

func (m *Module) searchConnectSegments(ctx context.Context, params map[string]any) (string, error) {
	res, err := m.api.SearchSegments(ctx,
		params["search_term"].(string),
		modules.GetBool(params, "exact_match", false))
	if err != nil {
		return "", err
	}
	return formatResult(res)
}

// storeAIResults writes analysis records through the ingest path, stamping
// each with the analysis type and a timestamp.
func (m *Module) storeAIResults(ctx context.Context, params map[string]any) (string, error) {
	results, _ := params["results"].([]interface{})
	if len(results) == 0 {
		return "", fmt.Errorf("results must contain at least one record")
	}
	objectName := modules.GetString(params, "object_name", "AIInsight__dlm")
	analysisType := modules.GetString(params, "analysis_type", "general")

	stamp := time.Now().UTC().Format(time.RFC3339)
	records := make([]any, 0, len(results))
	for _, r := range results {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		rec := make(map[string]any, len(row)+2)
		for k, v := range row {
			rec[k] = v
		}
		rec["AnalysisType__c"] = analysisType
		rec["AnalyzedAt__c"] = stamp
		records = append(records, rec)
	}

	res, err := m.api.Ingest(ctx, objectName, records, "upsert")
	if err != nil {
		return "", err
	}
	return formatResult(res)
}
