package datacloud

import "sfdatacloud/server/internal/modules"

// Tools returns every tool this module exposes. Read tools share the
// read-only annotation; write tools are annotated so clients can gate them.
func (m *Module) Tools() []modules.Tool {
	return []modules.Tool{
		{
			ID:   "datacloud:query_data_cloud",
			Name: "query_data_cloud",
			Description: "Execute a SQL query against Data Cloud data model objects (DLOs/DMOs). " +
				"Uses ANSI SQL; SELECT TOP n is translated for legacy fallbacks.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"query": {Type: "string", Description: "SQL query, e.g. SELECT Id, Name FROM UnifiedIndividual__dlm LIMIT 10"},
				},
				Required: []string{"query"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:get_data_cloud_objects",
			Name:        "get_data_cloud_objects",
			Description: "List queryable objects in the connected org.",
			InputSchema: modules.InputSchema{
				Type:       "object",
				Properties: map[string]modules.Property{},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:describe_object",
			Name:        "describe_object",
			Description: "Get field-level metadata for one object.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"object_name": {Type: "string", Description: "API name, e.g. UnifiedIndividual__dlm"},
				},
				Required: []string{"object_name"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:get_data_cloud_metadata",
			Name:        "get_data_cloud_metadata",
			Description: "Query the Data Cloud metadata API for entity definitions.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"entity_type":     {Type: "string", Description: "Filter by entity type, e.g. DataModelObject"},
					"entity_category": {Type: "string", Description: "Filter by category, e.g. Profile, Engagement"},
					"entity_name":     {Type: "string", Description: "Filter by entity API name"},
				},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:get_segments",
			Name:        "get_segments",
			Description: "List segment definitions with status and member counts.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_type": {
						Type:        "string",
						Description: "Which segments to include (default all)",
						Enum:        []string{"all", "active", "archived"},
					},
				},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:get_segment_members",
			Name:        "get_segment_members",
			Description: "List active members of a segment.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_id": {Type: "string", Description: "Segment ID"},
					"limit":      {Type: "number", Description: "Max members to return (default 100)"},
				},
				Required: []string{"segment_id"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:enrich_profiles",
			Name:        "enrich_profiles",
			Description: "Fetch enrichment fields for unified individual profiles.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"profile_ids": {
						Type:        "array",
						Description: "Unified individual IDs to enrich",
						Items:       &modules.Property{Type: "string"},
					},
					"fields": {
						Type:        "array",
						Description: "Fields to fetch (defaults to a standard enrichment set)",
						Items:       &modules.Property{Type: "string"},
					},
				},
				Required: []string{"profile_ids"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:activate_segment",
			Name:        "activate_segment",
			Description: "Activate a segment to a target platform (email, ads, CRM).",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_id":        {Type: "string", Description: "Segment to activate"},
					"activation_target": {Type: "string", Description: "Target platform identifier"},
					"config":            {Type: "object", Description: "Target-specific activation settings"},
				},
				Required: []string{"segment_id", "activation_target"},
			},
			Annotations: modules.AnnotateCreate,
		},
		{
			ID:          "datacloud:ingest_data_cloud",
			Name:        "ingest_data_cloud",
			Description: "Ingest records into a Data Cloud object.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"object_name": {Type: "string", Description: "Target object API name"},
					"records": {
						Type:        "array",
						Description: "Records to write",
						Items:       &modules.Property{Type: "object"},
					},
					"operation": {
						Type:        "string",
						Description: "Write mode (default upsert)",
						Enum:        []string{"insert", "upsert", "update"},
					},
				},
				Required: []string{"object_name", "records"},
			},
			Annotations: modules.AnnotateDestructive,
		},
		{
			ID:          "datacloud:get_calculated_insights",
			Name:        "get_calculated_insights",
			Description: "Read calculated insight values (CLV, engagement scores, propensities).",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"insight_name": {Type: "string", Description: "Insight API name; omit for all"},
					"filters":      {Type: "object", Description: "Dimension filters as key/value pairs"},
				},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:manage_profiles",
			Name:        "manage_profiles",
			Description: "Identity resolution operations on unified profiles.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"operation": {
						Type:        "string",
						Description: "Operation to run",
						Enum:        []string{"resolve", "merge", "split", "get_identity_graph"},
					},
					"profile_data": {Type: "object", Description: "Operation-specific profile payload"},
				},
				Required: []string{"operation"},
			},
			Annotations: modules.AnnotateDestructive,
		},
		{
			ID:          "datacloud:get_segment_activations",
			Name:        "get_segment_activations",
			Description: "Activation status and history for one segment or all segments.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_id":      {Type: "string", Description: "Segment ID; omit for all"},
					"activation_type": {Type: "string", Description: "Filter by type, e.g. email, ads"},
				},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:real_time_segment_events",
			Name:        "real_time_segment_events",
			Description: "Subscribe a webhook to segment membership change events.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_id": {Type: "string", Description: "Segment to watch"},
					"event_types": {
						Type:        "array",
						Description: "Event types (default member_added, member_removed)",
						Items:       &modules.Property{Type: "string"},
					},
					"webhook_url": {Type: "string", Description: "HTTPS endpoint to notify"},
				},
				Required: []string{"segment_id", "webhook_url"},
			},
			Annotations: modules.AnnotateCreate,
		},
		{
			ID:          "datacloud:get_connect_segments",
			Name:        "get_connect_segments",
			Description: "List segments via the Connect API with name and status filters.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_name": {Type: "string", Description: "Substring filter on segment name"},
					"status":       {Type: "string", Description: "Filter by status, e.g. Active"},
				},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:get_connect_segment_details",
			Name:        "get_connect_segment_details",
			Description: "Full definition of one segment.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_id": {Type: "string", Description: "Segment ID"},
				},
				Required: []string{"segment_id"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:get_connect_segment_members",
			Name:        "get_connect_segment_members",
			Description: "Page through a segment's membership via the Connect API.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"segment_id": {Type: "string", Description: "Segment ID"},
					"limit":      {Type: "number", Description: "Page size (default 100)"},
					"offset":     {Type: "number", Description: "Page offset (default 0)"},
				},
				Required: []string{"segment_id"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:search_connect_segments",
			Name:        "search_connect_segments",
			Description: "Find segments by name.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"search_term": {Type: "string", Description: "Name or name fragment"},
					"exact_match": {Type: "boolean", Description: "Require exact name match (default false)"},
				},
				Required: []string{"search_term"},
			},
			Annotations: modules.AnnotateReadOnly,
		},
		{
			ID:          "datacloud:store_ai_results",
			Name:        "store_ai_results",
			Description: "Persist AI analysis results back into a Data Cloud object.",
			InputSchema: modules.InputSchema{
				Type: "object",
				Properties: map[string]modules.Property{
					"results": {
						Type:        "array",
						Description: "Analysis result records",
						Items:       &modules.Property{Type: "object"},
					},
					"object_name":   {Type: "string", Description: "Target object (default AIInsight__dlm)"},
					"analysis_type": {Type: "string", Description: "Label stamped onto each stored record"},
				},
				Required: []string{"results"},
			},
			Annotations: modules.AnnotateUpdate,
		},
	}
}
