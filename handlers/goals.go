// ABOUTME: Goal and metrics MCP tool handlers
// ABOUTME: Implements set_goal and get_metrics on top of the store's derived dashboard
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

type GoalHandlers struct {
	st *store.Store
}

func NewGoalHandlers(st *store.Store) *GoalHandlers {
	return &GoalHandlers{st: st}
}

type SetGoalInput struct {
	Title        string  `json:"title,omitempty" jsonschema:"Goal title (default Revenue Goal)"`
	TargetAmount float64 `json:"target_amount" jsonschema:"Revenue target (required, positive)"`
	Deadline     string  `json:"deadline" jsonschema:"Deadline YYYY-MM-DD (required)"`
}

type GoalOutput struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	TargetAmount float64 `json:"target_amount"`
	Deadline     string  `json:"deadline"`
	DateStarted  string  `json:"date_started,omitempty"`
	DateAchieved string  `json:"date_achieved,omitempty"`
	IsAchieved   bool    `json:"is_achieved"`
}

func goalToOutput(g models.Goal) GoalOutput {
	out := GoalOutput{
		ID:           g.ID,
		Title:        g.Title,
		TargetAmount: g.TargetAmount,
		Deadline:     g.Deadline.String(),
		DateStarted:  g.DateStarted.String(),
		IsAchieved:   g.IsAchieved,
	}
	if g.DateAchieved != nil {
		out.DateAchieved = g.DateAchieved.String()
	}
	return out
}

func (h *GoalHandlers) SetGoal(ctx context.Context, _ *mcp.CallToolRequest, input SetGoalInput) (*mcp.CallToolResult, GoalOutput, error) {
	if input.Deadline == "" {
		return nil, GoalOutput{}, fmt.Errorf("deadline is required")
	}
	deadline, err := models.ParseDate(input.Deadline)
	if err != nil {
		return nil, GoalOutput{}, fmt.Errorf("deadline: %w", err)
	}

	in := store.GoalInput{Title: input.Title, TargetAmount: input.TargetAmount, Deadline: deadline}
	if err := in.Validate(); err != nil {
		return nil, GoalOutput{}, err
	}

	goal, err := h.st.UpdateGoal(ctx, in)
	if err != nil {
		return nil, GoalOutput{}, err
	}
	return nil, goalToOutput(goal), nil
}

type GetMetricsInput struct{}

type MonthOutput struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type BusinessTypeOutput struct {
	BusinessType string  `json:"business_type"`
	Clients      int     `json:"clients"`
	Revenue      float64 `json:"revenue"`
}

type MetricsOutput struct {
	TotalRevenue     float64              `json:"total_revenue"`
	TotalRevenueText string               `json:"total_revenue_text"`
	TotalLeads       int                  `json:"total_leads"`
	ActiveProjects   int                  `json:"active_projects"`
	Deadlines        int                  `json:"deadlines_next_7_days"`
	ConversionRate   float64              `json:"conversion_rate"`
	AvgProjectValue  float64              `json:"avg_project_value"`
	CompletionRate   float64              `json:"completion_rate"`
	Goal             *GoalOutput          `json:"goal,omitempty"`
	GoalProgress     float64              `json:"goal_progress"`
	DaysRemaining    int                  `json:"days_remaining"`
	MonthlyRevenue   []MonthOutput        `json:"monthly_revenue"`
	TopBusinessTypes []BusinessTypeOutput `json:"top_business_types"`
}

func (h *GoalHandlers) GetMetrics(_ context.Context, _ *mcp.CallToolRequest, _ GetMetricsInput) (*mcp.CallToolResult, MetricsOutput, error) {
	return nil, dashboardToOutput(h.st.Metrics()), nil
}

func dashboardToOutput(d metrics.Dashboard) MetricsOutput {
	out := MetricsOutput{
		TotalRevenue:     d.TotalRevenue,
		TotalRevenueText: metrics.FormatMoney(d.TotalRevenue),
		TotalLeads:       d.Stats.TotalLeads,
		ActiveProjects:   d.Stats.ActiveProjects,
		Deadlines:        d.Stats.Deadlines,
		ConversionRate:   d.ConversionRate,
		AvgProjectValue:  d.AvgProjectValue,
		CompletionRate:   d.CompletionRate,
		GoalProgress:     d.GoalProgress,
		DaysRemaining:    d.DaysRemaining,
		MonthlyRevenue:   []MonthOutput{},
		TopBusinessTypes: []BusinessTypeOutput{},
	}
	if d.Goal != nil {
		g := goalToOutput(*d.Goal)
		out.Goal = &g
	}
	for _, m := range d.MonthlyRevenue {
		out.MonthlyRevenue = append(out.MonthlyRevenue, MonthOutput{Month: m.Label(), Revenue: m.Revenue})
	}
	for _, bt := range d.TopBusinessTypes {
		out.TopBusinessTypes = append(out.TopBusinessTypes, BusinessTypeOutput{BusinessType: bt.BusinessType, Clients: bt.Clients, Revenue: bt.Revenue})
	}
	return out
}
