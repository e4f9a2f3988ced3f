// ABOUTME: Pipeline MCP tool handlers
// ABOUTME: Implements list_pipeline, add_lead, select_lead, convert_lead, record_payment, and complete_client
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

type PipelineHandlers struct {
	st *store.Store
}

func NewPipelineHandlers(st *store.Store) *PipelineHandlers {
	return &PipelineHandlers{st: st}
}

type LeadOutput struct {
	ID           string `json:"id"`
	BusinessName string `json:"business_name"`
	Contact      string `json:"contact,omitempty"`
	Comment      string `json:"comment,omitempty"`
	Status       string `json:"status"`
}

type ClientOutput struct {
	ID               string  `json:"id"`
	BusinessName     string  `json:"business_name"`
	BusinessType     string  `json:"business_type"`
	Contact          string  `json:"contact,omitempty"`
	Onboarding       string  `json:"onboarding,omitempty"`
	Deadline         string  `json:"deadline,omitempty"`
	Delivery         string  `json:"delivery"`
	PaymentCollected float64 `json:"payment_collected"`
	ProjectStage     string  `json:"project_stage,omitempty"`
	DomainName       string  `json:"domain_name,omitempty"`
	HostingProvider  string  `json:"hosting_provider,omitempty"`
	CMSType          string  `json:"cms_type,omitempty"`
	MaintenancePlan  bool    `json:"maintenance_plan"`
}

type CustomerOutput struct {
	ID            string  `json:"id"`
	BusinessName  string  `json:"business_name"`
	CompletedDate string  `json:"completed_date,omitempty"`
	TotalPaid     float64 `json:"total_paid"`
	DomainName    string  `json:"domain_name,omitempty"`
}

func leadToOutput(l models.Lead) LeadOutput {
	return LeadOutput{
		ID:           l.ID,
		BusinessName: l.BusinessName,
		Contact:      l.Contact,
		Comment:      l.Comment,
		Status:       l.Status,
	}
}

func clientToOutput(c models.Client) ClientOutput {
	return ClientOutput{
		ID:               c.ID,
		BusinessName:     c.BusinessName,
		BusinessType:     c.BusinessType,
		Contact:          c.Contact,
		Onboarding:       c.Onboarding.String(),
		Deadline:         c.Deadline.String(),
		Delivery:         c.Delivery,
		PaymentCollected: c.PaymentCollected,
		ProjectStage:     c.ProjectStage,
		DomainName:       c.DomainName,
		HostingProvider:  c.HostingProvider,
		CMSType:          c.CMSType,
		MaintenancePlan:  c.MaintenancePlan,
	}
}

func customerToOutput(c models.Customer) CustomerOutput {
	return CustomerOutput{
		ID:            c.ID,
		BusinessName:  c.BusinessName,
		CompletedDate: c.CompletedDate.String(),
		TotalPaid:     c.TotalPaid,
		DomainName:    c.DomainName,
	}
}

type ListPipelineInput struct {
	Stage  string `json:"stage,omitempty" jsonschema:"Only this stage: leads, saved_leads, clients, or customers"`
	Search string `json:"search,omitempty" jsonschema:"Case-insensitive business name filter for leads"`
}

type ListPipelineOutput struct {
	Leads      []LeadOutput     `json:"leads"`
	SavedLeads []LeadOutput     `json:"saved_leads"`
	Clients    []ClientOutput   `json:"clients"`
	Customers  []CustomerOutput `json:"customers"`
	Offline    bool             `json:"offline,omitempty"`
}

func (h *PipelineHandlers) ListPipeline(_ context.Context, _ *mcp.CallToolRequest, input ListPipelineInput) (*mcp.CallToolResult, ListPipelineOutput, error) {
	stage := strings.ToLower(strings.TrimSpace(input.Stage))
	switch stage {
	case "", "leads", "saved_leads", "clients", "customers":
	default:
		return nil, ListPipelineOutput{}, fmt.Errorf("unknown stage %q", input.Stage)
	}

	snap := h.st.Snapshot()
	leads, saved := h.st.SearchLeads(input.Search)
	output := ListPipelineOutput{
		Leads:      []LeadOutput{},
		SavedLeads: []LeadOutput{},
		Clients:    []ClientOutput{},
		Customers:  []CustomerOutput{},
		Offline:    snap.Offline,
	}

	if stage == "" || stage == "leads" {
		for _, l := range leads {
			output.Leads = append(output.Leads, leadToOutput(l))
		}
	}
	if stage == "" || stage == "saved_leads" {
		for _, l := range saved {
			output.SavedLeads = append(output.SavedLeads, leadToOutput(l))
		}
	}
	if stage == "" || stage == "clients" {
		for _, c := range snap.Clients {
			output.Clients = append(output.Clients, clientToOutput(c))
		}
	}
	if stage == "" || stage == "customers" {
		for _, c := range snap.Customers {
			output.Customers = append(output.Customers, customerToOutput(c))
		}
	}
	return nil, output, nil
}

type AddLeadInput struct {
	BusinessName string `json:"business_name" jsonschema:"Business name (required)"`
	Contact      string `json:"contact,omitempty" jsonschema:"Phone number or email"`
	Comment      string `json:"comment,omitempty" jsonschema:"Free-form comment"`
}

func (h *PipelineHandlers) AddLead(ctx context.Context, _ *mcp.CallToolRequest, input AddLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if strings.TrimSpace(input.BusinessName) == "" {
		return nil, LeadOutput{}, fmt.Errorf("business_name is required")
	}

	lead, err := h.st.AddLead(ctx, input.BusinessName, input.Contact, input.Comment)
	if err != nil {
		return nil, LeadOutput{}, err
	}
	return nil, leadToOutput(lead), nil
}

type LeadIDInput struct {
	LeadID string `json:"lead_id" jsonschema:"Lead ID (required)"`
}

func (h *PipelineHandlers) SelectLead(ctx context.Context, _ *mcp.CallToolRequest, input LeadIDInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.LeadID == "" {
		return nil, LeadOutput{}, fmt.Errorf("lead_id is required")
	}

	lead, err := h.st.SelectLead(ctx, input.LeadID)
	if err != nil {
		return nil, LeadOutput{}, err
	}
	if lead.ID == "" {
		return nil, LeadOutput{}, noticeError(h.st, "lead no longer exists")
	}
	return nil, leadToOutput(lead), nil
}

type ConvertLeadInput struct {
	LeadID          string `json:"lead_id" jsonschema:"Saved lead ID (required)"`
	Start           string `json:"start,omitempty" jsonschema:"Onboarding date YYYY-MM-DD (default today)"`
	Finish          string `json:"finish,omitempty" jsonschema:"Deadline YYYY-MM-DD (default 30 days from today)"`
	BusinessType    string `json:"business_type,omitempty" jsonschema:"Business type (default Web Design)"`
	DomainName      string `json:"domain_name,omitempty" jsonschema:"Domain name"`
	HostingProvider string `json:"hosting_provider,omitempty" jsonschema:"Hosting provider"`
	CMSType         string `json:"cms_type,omitempty" jsonschema:"CMS type"`
	ProjectStage    string `json:"project_stage,omitempty" jsonschema:"Discovery, Design, Development, UAT, or Launched"`
	MaintenancePlan bool   `json:"maintenance_plan,omitempty" jsonschema:"Whether the client has a maintenance plan"`
	RenewalDate     string `json:"renewal_date,omitempty" jsonschema:"Renewal date YYYY-MM-DD"`
}

func (h *PipelineHandlers) ConvertLead(ctx context.Context, _ *mcp.CallToolRequest, input ConvertLeadInput) (*mcp.CallToolResult, ClientOutput, error) {
	if input.LeadID == "" {
		return nil, ClientOutput{}, fmt.Errorf("lead_id is required")
	}
	if input.ProjectStage != "" && !models.IsValidProjectStage(input.ProjectStage) {
		return nil, ClientOutput{}, fmt.Errorf("invalid project_stage %q", input.ProjectStage)
	}

	in := store.ConvertInput{
		BusinessType:    input.BusinessType,
		DomainName:      input.DomainName,
		HostingProvider: input.HostingProvider,
		CMSType:         input.CMSType,
		ProjectStage:    input.ProjectStage,
		MaintenancePlan: input.MaintenancePlan,
	}
	var err error
	if in.Start, err = optionalDate("start", input.Start); err != nil {
		return nil, ClientOutput{}, err
	}
	if in.Finish, err = optionalDate("finish", input.Finish); err != nil {
		return nil, ClientOutput{}, err
	}
	if in.RenewalDate, err = optionalDate("renewal_date", input.RenewalDate); err != nil {
		return nil, ClientOutput{}, err
	}

	client, err := h.st.ConvertToClient(ctx, input.LeadID, in)
	if err != nil {
		return nil, ClientOutput{}, err
	}
	if client.ID == "" {
		return nil, ClientOutput{}, noticeError(h.st, "lead was already converted or removed")
	}
	return nil, clientToOutput(client), nil
}

type RecordPaymentInput struct {
	ClientID string  `json:"client_id" jsonschema:"Client ID (required)"`
	Amount   float64 `json:"amount" jsonschema:"Payment amount to add (required, positive)"`
}

type RecordPaymentOutput struct {
	Client       ClientOutput `json:"client"`
	GoalAchieved bool         `json:"goal_achieved"`
	Warning      string       `json:"warning,omitempty"`
}

func (h *PipelineHandlers) RecordPayment(ctx context.Context, _ *mcp.CallToolRequest, input RecordPaymentInput) (*mcp.CallToolResult, RecordPaymentOutput, error) {
	if input.ClientID == "" {
		return nil, RecordPaymentOutput{}, fmt.Errorf("client_id is required")
	}
	if err := store.ValidatePaymentAmount(input.Amount); err != nil {
		return nil, RecordPaymentOutput{}, err
	}

	client, err := h.st.UpdatePayment(ctx, input.ClientID, input.Amount)
	if err != nil {
		return nil, RecordPaymentOutput{}, err
	}
	if client.ID == "" {
		return nil, RecordPaymentOutput{}, noticeError(h.st, "client no longer exists")
	}

	output := RecordPaymentOutput{Client: clientToOutput(client)}
	if h.st.Celebrating() {
		output.GoalAchieved = true
		h.st.DismissCelebration()
	}
	if n := h.st.CurrentNotice(); n != nil && n.Level == store.LevelWarning {
		output.Warning = n.Message
	}
	return nil, output, nil
}

type ClientIDInput struct {
	ClientID string `json:"client_id" jsonschema:"Client ID (required)"`
}

func (h *PipelineHandlers) CompleteClient(ctx context.Context, _ *mcp.CallToolRequest, input ClientIDInput) (*mcp.CallToolResult, CustomerOutput, error) {
	if input.ClientID == "" {
		return nil, CustomerOutput{}, fmt.Errorf("client_id is required")
	}

	customer, err := h.st.MarkClientCompleted(ctx, input.ClientID)
	if err != nil {
		return nil, CustomerOutput{}, err
	}
	if customer.ID == "" {
		return nil, CustomerOutput{}, noticeError(h.st, "client was already completed or removed")
	}
	return nil, customerToOutput(customer), nil
}

func optionalDate(field, s string) (*models.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &d, nil
}

// noticeError reports a recovered not-found as a tool error carrying the store's notice.
func noticeError(st *store.Store, fallback string) error {
	if n := st.CurrentNotice(); n != nil {
		return fmt.Errorf("%s", n.Message)
	}
	return fmt.Errorf("%s", fallback)
}
