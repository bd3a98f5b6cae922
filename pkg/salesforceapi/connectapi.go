package salesforceapi

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Connect API operations. Each read chain tries the Connect endpoint first
// and falls back to the query chain with a hand-built segment query; the
// mutating operations have a single Connect target and degrade into the
// documented "simulated" response shape when it does not exist for the
// tenant.

const segmentSelect = "SELECT Id, Name, Description, Status, MemberCount FROM Segment__dlm"

// ConnectSegments lists segments via the Connect Data API, with optional
// name and status filters.
func (a *API) ConnectSegments(ctx context.Context, segmentName, status string) (*Result, error) {
	sql := segmentSelect
	var conds []string
	if segmentName != "" {
		conds = append(conds, fmt.Sprintf("Name LIKE '%%%s%%'", segmentName))
	}
	if status != "" {
		conds = append(conds, fmt.Sprintf("Status = '%s'", status))
	}
	for i, cond := range conds {
		if i == 0 {
			sql += " WHERE " + cond
		} else {
			sql += " AND " + cond
		}
	}
	sql += " LIMIT 100"

	connect := Target{
		Name:     "connect-data-segments",
		Paginate: PaginateNone,
		Build: func(cred Credential, _ string) (string, string, any) {
			endpoint := a.connectDataBase(cred) + "/segments"
			values := url.Values{}
			if segmentName != "" {
				values.Set("name", segmentName)
			}
			if status != "" {
				values.Set("status", status)
			}
			if len(values) > 0 {
				endpoint += "?" + values.Encode()
			}
			return "GET", endpoint, nil
		},
	}

	return a.router.Execute(ctx, Operation{
		Name:    "get_connect_segments",
		Kind:    OpRead,
		Query:   LogicalQuery{Text: sql, Dialect: DialectSQL},
		Targets: append([]Target{connect}, a.queryTargets()...),
	})
}

// ConnectSegmentDetails fetches one segment by ID.
func (a *API) ConnectSegmentDetails(ctx context.Context, segmentID string) (*Result, error) {
	sql := fmt.Sprintf(
		"SELECT Id, Name, Description, Status, MemberCount, CreatedDate, LastModifiedDate, SegmentType "+
			"FROM Segment__dlm WHERE Id = '%s'", segmentID)

	connect := Target{
		Name:     "connect-data-segment",
		Paginate: PaginateNone,
		Build: func(cred Credential, _ string) (string, string, any) {
			return "GET", a.connectDataBase(cred) + "/segments/" + url.PathEscape(segmentID), nil
		},
	}

	return a.router.Execute(ctx, Operation{
		Name:    "get_connect_segment_details",
		Kind:    OpRead,
		Query:   LogicalQuery{Text: sql, Dialect: DialectSQL},
		Targets: append([]Target{connect}, a.queryTargets()...),
	})
}

// ConnectSegmentMembers pages through a segment's membership.
func (a *API) ConnectSegmentMembers(ctx context.Context, segmentID string, limit, offset int) (*Result, error) {
	sql := fmt.Sprintf(
		"SELECT ProfileId__c, UnifiedIndividualId__c, SegmentId__c, MembershipStatus__c, JoinDate__c "+
			"FROM SegmentMembership__dlm WHERE SegmentId__c = '%s' "+
			"AND MembershipStatus__c = 'Active' LIMIT %d", segmentID, limit)
	if offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", offset)
	}

	connect := Target{
		Name:     "connect-data-members",
		Paginate: PaginateNone,
		Build: func(cred Credential, _ string) (string, string, any) {
			values := url.Values{}
			values.Set("limit", fmt.Sprintf("%d", limit))
			values.Set("offset", fmt.Sprintf("%d", offset))
			return "GET", a.connectDataBase(cred) + "/segments/" + url.PathEscape(segmentID) + "/members?" + values.Encode(), nil
		},
	}

	return a.router.Execute(ctx, Operation{
		Name:    "get_connect_segment_members",
		Kind:    OpRead,
		Query:   LogicalQuery{Text: sql, Dialect: DialectSQL},
		Targets: append([]Target{connect}, a.queryTargets()...),
	})
}

// SearchSegments finds segments by name, exact or substring.
func (a *API) SearchSegments(ctx context.Context, term string, exact bool) (*Result, error) {
	var sql string
	if exact {
		sql = fmt.Sprintf("%s WHERE Name = '%s' LIMIT 50", segmentSelect, term)
	} else {
		sql = fmt.Sprintf("%s WHERE Name LIKE '%%%s%%' LIMIT 50", segmentSelect, term)
	}

	connect := Target{
		Name:     "connect-data-search",
		Paginate: PaginateNone,
		Build: func(cred Credential, _ string) (string, string, any) {
			values := url.Values{}
			values.Set("q", term)
			values.Set("exact", fmt.Sprintf("%t", exact))
			return "GET", a.connectDataBase(cred) + "/segments/search?" + values.Encode(), nil
		},
	}

	return a.router.Execute(ctx, Operation{
		Name:    "search_connect_segments",
		Kind:    OpRead,
		Query:   LogicalQuery{Text: sql, Dialect: DialectSQL},
		Targets: append([]Target{connect}, a.queryTargets()...),
	})
}

// CalculatedInsights retrieves calculated insight values, falling back to
// the CalculatedInsight__dlm object when the Connect endpoint is missing.
func (a *API) CalculatedInsights(ctx context.Context, insightName string, filter map[string]string) (*Result, error) {
	sql := "SELECT Id, Name, Value, CalculationDate FROM CalculatedInsight__dlm"
	if insightName != "" {
		sql += fmt.Sprintf(" WHERE Name = '%s'", insightName)
	}
	sql += " LIMIT 100"

	connect := Target{
		Name:     "connect-insights",
		Paginate: PaginateNone,
		Build: func(cred Credential, _ string) (string, string, any) {
			endpoint := a.connectBase(cred) + "/insights"
			if insightName != "" {
				endpoint += "/" + url.PathEscape(insightName)
			}
			if len(filter) > 0 {
				values := url.Values{}
				for k, v := range filter {
					values.Set(k, v)
				}
				endpoint += "?" + values.Encode()
			}
			return "GET", endpoint, nil
		},
	}

	return a.router.Execute(ctx, Operation{
		Name:    "get_calculated_insights",
		Kind:    OpRead,
		Query:   LogicalQuery{Text: sql, Dialect: DialectSQL},
		Targets: append([]Target{connect}, a.queryTargets()...),
	})
}

// ActivateSegment triggers a segment activation. Mutating: a hard failure
// surfaces immediately; an absent Connect API degrades into a simulated
// activation acknowledgment.
func (a *API) ActivateSegment(ctx context.Context, segmentID, activationTarget string, config map[string]any) (*Result, error) {
	if config == nil {
		config = map[string]any{}
	}
	return a.router.Execute(ctx, Operation{
		Name: "activate_segment",
		Kind: OpMutating,
		Targets: []Target{{
			Name:     "connect-activations",
			Paginate: PaginateNone,
			Build: func(cred Credential, _ string) (string, string, any) {
				return "POST",
					a.connectBase(cred) + "/segments/" + url.PathEscape(segmentID) + "/activations",
					map[string]any{
						"activationTarget": activationTarget,
						"config":           config,
						"status":           "active",
					}
			},
		}},
		Placeholder: func() *Result {
			return &Result{
				Rows: []map[string]any{{
					"status":            "simulated",
					"segment_id":        segmentID,
					"activation_target": activationTarget,
					"config":            config,
				}},
				Note: fmt.Sprintf("segment activation simulated for %s; Connect API not available", segmentID),
			}
		},
	})
}

// Ingest writes records into a Data Cloud object via the Connect ingest
// endpoint. operation is insert, upsert, or update.
func (a *API) Ingest(ctx context.Context, objectName string, records []any, operation string) (*Result, error) {
	return a.router.Execute(ctx, Operation{
		Name: "ingest_data_cloud",
		Kind: OpMutating,
		Targets: []Target{{
			Name:     "connect-ingest",
			Paginate: PaginateNone,
			Build: func(cred Credential, _ string) (string, string, any) {
				return "POST",
					a.connectBase(cred) + "/ingest/" + url.PathEscape(objectName),
					map[string]any{"operation": operation, "records": records}
			},
		}},
		Placeholder: func() *Result {
			preview := make([]map[string]any, 0, 3)
			for _, rec := range records {
				if len(preview) == 3 {
					break
				}
				if row, ok := rec.(map[string]any); ok {
					preview = append(preview, row)
				}
			}
			return &Result{
				Rows:       preview,
				TotalCount: len(records),
				Note: fmt.Sprintf("ingestion of %d records into %s simulated; Connect API not available",
					len(records), objectName),
			}
		},
	})
}

// ManageProfiles runs an identity-resolution operation. resolve and
// get_identity_graph are reads (the latter with a query fallback over
// UnifiedIndividual__dlm); merge and split mutate and never fall through.
func (a *API) ManageProfiles(ctx context.Context, operation string, profileData map[string]any) (*Result, error) {
	if profileData == nil {
		profileData = map[string]any{}
	}

	connect := Target{
		Name:     "connect-profiles",
		Paginate: PaginateNone,
		Build: func(cred Credential, _ string) (string, string, any) {
			return "POST", a.connectBase(cred) + "/profiles/" + url.PathEscape(operation), profileData
		},
	}

	op := Operation{
		Name:    "manage_profiles",
		Targets: []Target{connect},
		Placeholder: func() *Result {
			return &Result{
				Rows: []map[string]any{{
					"status":    "simulated",
					"operation": operation,
				}},
				Note: fmt.Sprintf("profile %s operation simulated; Connect API not available", operation),
			}
		},
	}

	switch operation {
	case "merge", "split":
		op.Kind = OpMutating
	case "get_identity_graph":
		op.Kind = OpRead
		op.Query = LogicalQuery{
			Text: "SELECT Id, UnifiedRecordId__c, SourceRecordId__c, SourceSystem__c " +
				"FROM UnifiedIndividual__dlm LIMIT 10",
			Dialect: DialectSQL,
		}
		op.Targets = append(op.Targets, a.queryTargets()...)
	default:
		op.Kind = OpRead
	}

	return a.router.Execute(ctx, op)
}

// SegmentActivations reports activation status and history, for one segment
// or all of them.
func (a *API) SegmentActivations(ctx context.Context, segmentID, activationType string) (*Result, error) {
	return a.router.Execute(ctx, Operation{
		Name: "get_segment_activations",
		Kind: OpRead,
		Targets: []Target{{
			Name:     "connect-activations",
			Paginate: PaginateNone,
			Build: func(cred Credential, _ string) (string, string, any) {
				endpoint := a.connectBase(cred) + "/segments"
				if segmentID != "" {
					endpoint += "/" + url.PathEscape(segmentID) + "/activations"
				} else {
					endpoint += "/activations"
				}
				if activationType != "" {
					endpoint += "?type=" + url.QueryEscape(activationType)
				}
				return "GET", endpoint, nil
			},
		}},
		Placeholder: func() *Result {
			kind := activationType
			if kind == "" {
				kind = "email"
			}
			return &Result{
				Rows: []map[string]any{{
					"id":           "activation_001",
					"type":         kind,
					"status":       "active",
					"created_date": time.Now().UTC().Format(time.RFC3339),
					"target_count": 1250,
				}},
				Note: "activation history simulated; Connect API not available",
			}
		},
	})
}

// SubscribeSegmentEvents registers a webhook for segment change events.
func (a *API) SubscribeSegmentEvents(ctx context.Context, segmentID string, eventTypes []string, webhookURL string) (*Result, error) {
	return a.router.Execute(ctx, Operation{
		Name: "real_time_segment_events",
		Kind: OpMutating,
		Targets: []Target{{
			Name:     "connect-events",
			Paginate: PaginateNone,
			Build: func(cred Credential, _ string) (string, string, any) {
				return "POST",
					a.connectBase(cred) + "/segments/" + url.PathEscape(segmentID) + "/events/subscribe",
					map[string]any{
						"eventTypes": eventTypes,
						"webhookUrl": webhookURL,
						"enabled":    true,
					}
			},
		}},
		Placeholder: func() *Result {
			return &Result{
				Rows: []map[string]any{{
					"status":          "simulated",
					"segment_id":      segmentID,
					"event_types":     eventTypes,
					"webhook_url":     webhookURL,
					"subscription_id": "sub_" + segmentID + "_" + time.Now().UTC().Format("20060102150405"),
				}},
				Note: "event subscription simulated; Connect API not available",
			}
		},
	})
}
