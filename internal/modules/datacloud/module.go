package datacloud

import (
	"context"
	"fmt"

	"sfdatacloud/server/internal/modules"
	"sfdatacloud/server/pkg/salesforceapi"
)

// Module exposes Salesforce Data Cloud as MCP tools: segments, unified
// profiles, calculated insights, activations, ingestion, and direct SQL.
type Module struct {
	api *salesforceapi.API

	// Connection facts surfaced through the config resource. No secrets.
	loginURL   string
	apiVersion string
	username   string
}

// Config carries the non-secret connection facts for the config resource.
type Config struct {
	LoginURL   string
	APIVersion string
	Username   string
}

// New creates the Data Cloud module over the given API facade.
func New(api *salesforceapi.API, cfg Config) *Module {
	return &Module{
		api:        api,
		loginURL:   cfg.LoginURL,
		apiVersion: cfg.APIVersion,
		username:   maskUsername(cfg.Username),
	}
}

func (m *Module) Name() string { return "datacloud" }

func (m *Module) Description() string {
	return "Salesforce Data Cloud: query objects with SQL, manage segments and " +
		"unified profiles, read calculated insights, trigger activations, and " +
		"ingest records."
}

func (m *Module) APIVersion() string { return m.apiVersion }

func (m *Module) Resources() []modules.Resource {
	return []modules.Resource{
		{
			URI:         "salesforce://config",
			Name:        "Salesforce Connection Config",
			Description: "Active connection settings (login URL, API version, masked username)",
			MimeType:    "application/json",
		},
		{
			URI:         "salesforce://objects",
			Name:        "Data Cloud Objects",
			Description: "Queryable objects in the connected org",
			MimeType:    "application/json",
		},
	}
}

func (m *Module) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "salesforce://config":
		return modules.ToJSON(map[string]any{
			"login_url":   m.loginURL,
			"api_version": m.apiVersion,
			"username":    m.username,
		})
	case "salesforce://objects":
		result, err := m.api.Objects(ctx)
		if err != nil {
			return "", err
		}
		return formatResult(result)
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// maskUsername keeps the domain visible, hides the local part.
func maskUsername(u string) string {
	if u == "" {
		return ""
	}
	for i, c := range u {
		if c == '@' {
			return "***" + u[i:]
		}
	}
	return "***"
}
