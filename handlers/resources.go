// ABOUTME: MCP resource handlers for exposing pipeline data
// ABOUTME: Provides read-only JSON views of leads, clients, customers, metrics, and the full report via crm:// URIs
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/report"
	"github.com/harperreed/agencycrm/store"
	"github.com/harperreed/agencycrm/viz"
)

type ResourceHandlers struct {
	st *store.Store
}

func NewResourceHandlers(st *store.Store) *ResourceHandlers {
	return &ResourceHandlers{st: st}
}

// Resources lists the fixed resources served by ReadResource.
func Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: "crm://pipeline", Name: "pipeline", Description: "Stage counts and revenue across the pipeline", MIMEType: "application/json"},
		{URI: "crm://leads", Name: "leads", Description: "New and saved leads", MIMEType: "application/json"},
		{URI: "crm://clients", Name: "clients", Description: "Active clients", MIMEType: "application/json"},
		{URI: "crm://customers", Name: "customers", Description: "Completed customers", MIMEType: "application/json"},
		{URI: "crm://metrics", Name: "metrics", Description: "Derived dashboard metrics", MIMEType: "application/json"},
		{URI: "crm://report", Name: "report", Description: "Full crm-report.json export", MIMEType: "application/json"},
	}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")
	p := h.st.Pipeline()

	switch parts[0] {
	case "pipeline":
		return jsonResource(uri, viz.Stages(p))

	case "leads":
		leads := make([]LeadOutput, 0, len(p.Leads)+len(p.SavedLeads))
		for _, l := range p.AllLeads() {
			leads = append(leads, leadToOutput(l))
		}
		return jsonResource(uri, leads)

	case "clients":
		if len(parts) > 1 {
			c, ok := h.st.FindClient(parts[1])
			if !ok {
				return nil, mcp.ResourceNotFoundError(uri)
			}
			return jsonResource(uri, clientToOutput(c))
		}
		clients := make([]ClientOutput, 0, len(p.Clients))
		for _, c := range p.Clients {
			clients = append(clients, clientToOutput(c))
		}
		return jsonResource(uri, clients)

	case "customers":
		customers := make([]CustomerOutput, 0, len(p.Customers))
		for _, c := range p.Customers {
			customers = append(customers, customerToOutput(c))
		}
		return jsonResource(uri, customers)

	case "metrics":
		return jsonResource(uri, dashboardToOutput(h.st.Metrics()))

	case "report":
		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, p); err != nil {
			return nil, fmt.Errorf("failed to build report: %w", err)
		}
		return textResource(uri, buf.String()), nil

	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return textResource(uri, string(data)), nil
}

func textResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}}
}
