// ABOUTME: MCP prompt handlers for reusable agency workflow templates
// ABOUTME: Builds pipeline review, client summary, and goal check prompts from live data
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

type PromptHandlers struct {
	st *store.Store
}

func NewPromptHandlers(st *store.Store) *PromptHandlers {
	return &PromptHandlers{st: st}
}

// Prompts lists the prompt templates served by GetPrompt.
func Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{Name: "pipeline-review", Description: "Review the whole pipeline and suggest which leads to pursue"},
		{
			Name:        "client-summary",
			Description: "Summarize one client's project, payments, and open tasks",
			Arguments:   []*mcp.PromptArgument{{Name: "client_id", Description: "Client ID", Required: true}},
		},
		{Name: "goal-check", Description: "Assess progress toward the current revenue goal"},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "pipeline-review":
		return h.pipelineReview()
	case "client-summary":
		return h.clientSummary(request.Params.Arguments)
	case "goal-check":
		return h.goalCheck()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) pipelineReview() (*mcp.GetPromptResult, error) {
	p := h.st.Pipeline()
	d := h.st.Metrics()

	var b strings.Builder
	b.WriteString("Please review this agency pipeline:\n\n")
	fmt.Fprintf(&b, "New leads: %d\n", len(p.Leads))
	fmt.Fprintf(&b, "Saved leads: %d\n", len(p.SavedLeads))
	fmt.Fprintf(&b, "Active clients: %d\n", len(p.Clients))
	fmt.Fprintf(&b, "Customers: %d\n", len(p.Customers))
	fmt.Fprintf(&b, "Revenue: %s\n", metrics.FormatMoney(d.TotalRevenue))
	fmt.Fprintf(&b, "Conversion rate: %s\n", metrics.FormatPercent(d.ConversionRate))

	if len(p.SavedLeads) > 0 {
		b.WriteString("\nSaved leads:\n")
		for _, l := range p.SavedLeads {
			fmt.Fprintf(&b, "- %s (%s)", l.BusinessName, l.ID)
			if l.Comment != "" {
				fmt.Fprintf(&b, ": %s", l.Comment)
			}
			b.WriteString("\n")
		}
	}
	if d.Stats.Deadlines > 0 {
		fmt.Fprintf(&b, "\n%d client deadline(s) fall within the next 7 days.\n", d.Stats.Deadlines)
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. Which saved leads look most promising to convert")
	b.WriteString("\n2. Clients at risk of missing their deadline")
	b.WriteString("\n3. Suggested next actions for the week")

	return userPrompt("Pipeline review", b.String()), nil
}

func (h *PromptHandlers) clientSummary(args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["client_id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("client_id is required")
	}
	c, ok := h.st.FindClient(id)
	if !ok {
		return nil, fmt.Errorf("client not found: %s", id)
	}

	var b strings.Builder
	b.WriteString("Please summarize this client project:\n\n")
	fmt.Fprintf(&b, "Business: %s\n", c.BusinessName)
	fmt.Fprintf(&b, "Type: %s\n", c.BusinessType)
	if c.Contact != "" {
		fmt.Fprintf(&b, "Contact: %s\n", c.Contact)
	}
	fmt.Fprintf(&b, "Onboarded: %s\n", c.Onboarding)
	fmt.Fprintf(&b, "Deadline: %s\n", c.Deadline)
	fmt.Fprintf(&b, "Payment collected: %s\n", metrics.FormatMoney(c.PaymentCollected))
	if c.ProjectStage != "" {
		fmt.Fprintf(&b, "Stage: %s\n", c.ProjectStage)
	}
	if c.DomainName != "" {
		fmt.Fprintf(&b, "Domain: %s\n", c.DomainName)
	}

	var open []models.Task
	for _, t := range h.st.Tasks("", "") {
		if t.RelatedTo == models.RelatedClient && t.RelatedID == c.ID &&
			t.Status != models.TaskStatusCompleted && t.Status != models.TaskStatusCancelled {
			open = append(open, t)
		}
	}
	if len(open) > 0 {
		fmt.Fprintf(&b, "\nOpen tasks (%d):\n", len(open))
		for _, t := range open {
			fmt.Fprintf(&b, "- [%s] %s\n", t.Priority, t.Title)
		}
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. A short status summary for the client")
	b.WriteString("\n2. Risks to the deadline or payment")
	b.WriteString("\n3. Recommended next steps")

	return userPrompt(fmt.Sprintf("Summary for client: %s", c.BusinessName), b.String()), nil
}

func (h *PromptHandlers) goalCheck() (*mcp.GetPromptResult, error) {
	d := h.st.Metrics()
	if d.Goal == nil {
		return userPrompt("Goal check", "No revenue goal is set. Please suggest a realistic revenue goal "+
			fmt.Sprintf("given current revenue of %s and %d active clients.", metrics.FormatMoney(d.TotalRevenue), d.Stats.ActiveProjects)), nil
	}

	var b strings.Builder
	b.WriteString("Please assess progress toward this revenue goal:\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", d.Goal.Title)
	fmt.Fprintf(&b, "Target: %s\n", metrics.FormatMoney(d.Goal.TargetAmount))
	fmt.Fprintf(&b, "Revenue so far: %s (%s)\n", metrics.FormatMoney(d.TotalRevenue), metrics.FormatPercent(d.GoalProgress))
	fmt.Fprintf(&b, "Deadline: %s (%d days left)\n", d.Goal.Deadline, d.DaysRemaining)
	if d.Goal.IsAchieved {
		b.WriteString("Status: achieved\n")
	}
	b.WriteString("\nPlease suggest how to close the remaining gap before the deadline.")

	return userPrompt("Goal check", b.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}
