package salesforceapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// connectAPIVersion is the API version the Data Cloud Connect endpoints
// live under, independent of the configured REST API version.
const connectAPIVersion = "v64.0"

// API is the high-level entry point: one method per logical operation, each
// executing a fixed fallback chain through the router. Chains are ordered
// newest generation first, legacy query API last.
type API struct {
	router     *Router
	apiVersion string
}

// NewAPI creates the operation facade. apiVersion is the REST API version,
// e.g. "v59.0".
func NewAPI(session *Session, apiVersion string, cfg Config) *API {
	if apiVersion == "" {
		apiVersion = "v59.0"
	}
	return &API{router: NewRouter(session, cfg), apiVersion: apiVersion}
}

func (a *API) restBase(cred Credential) string {
	return strings.TrimSuffix(cred.InstanceURL, "/") + "/services/data/" + a.apiVersion
}

func (a *API) connectBase(cred Credential) string {
	return strings.TrimSuffix(cred.InstanceURL, "/") + "/services/data/" + connectAPIVersion
}

func (a *API) connectDataBase(cred Credential) string {
	return a.restBase(cred) + "/connect/data"
}

// =============================================================================
// Query targets
// =============================================================================

// queryV2Target speaks Data Cloud SQL against the Query API V2 with
// batch-token pagination.
func (a *API) queryV2Target() Target {
	return Target{
		Name:     "query-api-v2",
		Dialect:  DialectSQL,
		Paginate: PaginateBatchID,
		Build: func(cred Credential, query string) (string, string, any) {
			return "POST",
				strings.TrimSuffix(cred.InstanceURL, "/") + "/api/v2/query",
				map[string]any{"sql": query}
		},
	}
}

// soqlTarget speaks SOQL against the legacy query API with
// done/nextRecordsUrl pagination.
func (a *API) soqlTarget() Target {
	return Target{
		Name:     "soql",
		Dialect:  DialectSOQL,
		Paginate: PaginateNextURL,
		Build: func(cred Credential, query string) (string, string, any) {
			return "GET", a.restBase(cred) + "/query?q=" + url.QueryEscape(query), nil
		},
	}
}

// queryTargets is the standard two-tier read chain: Query API V2 first,
// SOQL fallback second.
func (a *API) queryTargets() []Target {
	return []Target{a.queryV2Target(), a.soqlTarget()}
}

// query runs a Data Cloud SQL query through the standard chain under the
// given operation name.
func (a *API) query(ctx context.Context, opName, sql string) (*Result, error) {
	return a.router.Execute(ctx, Operation{
		Name:    opName,
		Kind:    OpRead,
		Query:   LogicalQuery{Text: sql, Dialect: DialectSQL},
		Targets: a.queryTargets(),
	})
}

// =============================================================================
// Query operations
// =============================================================================

// Query executes a caller-supplied Data Cloud SQL query.
func (a *API) Query(ctx context.Context, sql string) (*Result, error) {
	return a.query(ctx, "query_data_cloud", sql)
}

// Objects lists the org's queryable objects via the REST sobjects endpoint.
func (a *API) Objects(ctx context.Context) (*Result, error) {
	return a.router.Execute(ctx, Operation{
		Name: "get_data_cloud_objects",
		Kind: OpRead,
		Targets: []Target{{
			Name:     "rest-sobjects",
			Paginate: PaginateNone,
			Build: func(cred Credential, _ string) (string, string, any) {
				return "GET", a.restBase(cred) + "/sobjects", nil
			},
		}},
	})
}

// Describe fetches field-level metadata for one object. The payload is a
// document rather than a row collection; callers read Result.Raw.
func (a *API) Describe(ctx context.Context, objectName string) (*Result, error) {
	return a.router.Execute(ctx, Operation{
		Name: "describe_object",
		Kind: OpRead,
		Targets: []Target{{
			Name:     "rest-describe",
			Paginate: PaginateNone,
			Build: func(cred Credential, _ string) (string, string, any) {
				return "GET", a.restBase(cred) + "/sobjects/" + url.PathEscape(objectName) + "/describe", nil
			},
		}},
	})
}

// Metadata queries the Data Cloud v1 metadata API. params carries the
// optional entityType/entityCategory/entityName filters.
func (a *API) Metadata(ctx context.Context, params map[string]string) (*Result, error) {
	return a.router.Execute(ctx, Operation{
		Name: "get_data_cloud_metadata",
		Kind: OpRead,
		Targets: []Target{{
			Name:     "metadata-v1",
			Paginate: PaginateNone,
			Build: func(cred Credential, _ string) (string, string, any) {
				endpoint := strings.TrimSuffix(cred.InstanceURL, "/") + "/api/v1/metadata/"
				if len(params) > 0 {
					values := url.Values{}
					for k, v := range params {
						values.Set(k, v)
					}
					endpoint += "?" + values.Encode()
				}
				return "GET", endpoint, nil
			},
		}},
	})
}

// Segments fetches segment definitions, optionally filtered to active or
// archived ones.
func (a *API) Segments(ctx context.Context, segmentType string) (*Result, error) {
	sql := "SELECT Id, Name, Description, Status, MemberCount FROM Segment__dlm"
	switch segmentType {
	case "active":
		sql += " WHERE Status = 'Active'"
	case "archived":
		sql += " WHERE Status = 'Archived'"
	}
	return a.query(ctx, "get_segments", sql)
}

// SegmentMembers fetches active memberships of one segment.
func (a *API) SegmentMembers(ctx context.Context, segmentID string, limit int) (*Result, error) {
	sql := fmt.Sprintf(
		"SELECT ProfileId__c, UnifiedIndividualId__c, SegmentId__c, MembershipStatus__c "+
			"FROM SegmentMembership__dlm WHERE SegmentId__c = '%s' "+
			"AND MembershipStatus__c = 'Active' LIMIT %d",
		segmentID, limit)
	return a.query(ctx, "get_segment_members", sql)
}

// defaultEnrichmentFields are used when the caller does not pick fields.
var defaultEnrichmentFields = []string{
	"Id", "FirstName__c", "LastName__c", "Email__c", "Phone__c",
	"TotalPurchases__c", "LifetimeValue__c", "LastActivityDate__c",
}

// EnrichProfiles fetches enrichment fields for the given unified profiles.
func (a *API) EnrichProfiles(ctx context.Context, profileIDs, fields []string) (*Result, error) {
	if len(fields) == 0 {
		fields = defaultEnrichmentFields
	}
	sql := fmt.Sprintf(
		"SELECT %s FROM UnifiedIndividual__dlm WHERE Id IN ('%s')",
		strings.Join(fields, ", "), strings.Join(profileIDs, "', '"))
	return a.query(ctx, "enrich_profiles", sql)
}
