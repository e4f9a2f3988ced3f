// ABOUTME: Terminal dashboard rendering for the agency pipeline
// ABOUTME: Draws revenue, goal progress, monthly trend, and stage counts as ASCII bars
package viz

import (
	"fmt"
	"strings"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

const barWidth = 10

// Stage names in pipeline order.
const (
	StageLeads     = "Leads"
	StageSaved     = "Saved Leads"
	StageClients   = "Clients"
	StageCustomers = "Customers"
)

// StageStats summarizes one pipeline stage.
type StageStats struct {
	Stage   string
	Count   int
	Revenue float64
}

// Stages counts every pipeline stage in order. Revenue is collected payments for clients
// and total paid for customers.
func Stages(p models.Pipeline) []StageStats {
	var clientRevenue, customerRevenue float64
	for _, c := range p.Clients {
		clientRevenue = metrics.AddMoney(clientRevenue, c.PaymentCollected)
	}
	for _, c := range p.Customers {
		customerRevenue = metrics.AddMoney(customerRevenue, c.TotalPaid)
	}
	return []StageStats{
		{Stage: StageLeads, Count: len(p.Leads)},
		{Stage: StageSaved, Count: len(p.SavedLeads)},
		{Stage: StageClients, Count: len(p.Clients), Revenue: clientRevenue},
		{Stage: StageCustomers, Count: len(p.Customers), Revenue: customerRevenue},
	}
}

func RenderDashboard(d metrics.Dashboard) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  AGENCY CRM DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  💰 %s revenue\n", metrics.FormatMoney(d.TotalRevenue)))
	out.WriteString(fmt.Sprintf("  📇 %d leads  🛠  %d active projects  ⏰ %d deadlines this week\n",
		d.Stats.TotalLeads, d.Stats.ActiveProjects, d.Stats.Deadlines))
	out.WriteString(fmt.Sprintf("  Conversion %s  Avg project %s  Completion %s\n\n",
		metrics.FormatPercent(d.ConversionRate),
		metrics.FormatMoney(d.AvgProjectValue),
		metrics.FormatPercent(d.CompletionRate)))

	out.WriteString("GOAL\n")
	renderGoal(&out, d)
	out.WriteString("\n")

	out.WriteString("MONTHLY REVENUE\n")
	renderMonthly(&out, d.MonthlyRevenue)

	if len(d.TopBusinessTypes) > 0 {
		out.WriteString("\nTOP BUSINESS TYPES\n")
		for _, bt := range d.TopBusinessTypes {
			out.WriteString(fmt.Sprintf("  %-18s %2d clients  %s\n",
				bt.BusinessType, bt.Clients, metrics.FormatMoney(bt.Revenue)))
		}
	}

	return out.String()
}

func renderGoal(out *strings.Builder, d metrics.Dashboard) {
	if d.Goal == nil {
		out.WriteString("  No goal set\n")
		return
	}
	filled := int(d.GoalProgress * barWidth / 100)
	status := fmt.Sprintf("%d days left", d.DaysRemaining)
	if d.Goal.IsAchieved {
		status = "🎉 achieved"
	}
	out.WriteString(fmt.Sprintf("  %s\n", d.Goal.Title))
	out.WriteString(fmt.Sprintf("  %s  %s of %s (%s)  %s\n",
		bar(filled),
		metrics.FormatMoney(d.TotalRevenue),
		metrics.FormatMoney(d.Goal.TargetAmount),
		metrics.FormatPercent(d.GoalProgress),
		status))
}

func renderMonthly(out *strings.Builder, months []metrics.MonthRevenue) {
	maxRevenue := 0.0
	for _, m := range months {
		if m.Revenue > maxRevenue {
			maxRevenue = m.Revenue
		}
	}
	for _, m := range months {
		filled := 0
		if maxRevenue > 0 {
			filled = int(m.Revenue * barWidth / maxRevenue)
		}
		out.WriteString(fmt.Sprintf("  %-9s %s  %s\n", m.Label(), bar(filled), metrics.FormatMoney(m.Revenue)))
	}
}

// RenderPipeline draws one bar per stage scaled to the largest stage.
func RenderPipeline(stages []StageStats) string {
	var out strings.Builder
	out.WriteString("PIPELINE OVERVIEW\n")

	maxCount := 0
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stages {
		line := fmt.Sprintf("  %-13s %s  %2d", s.Stage, bar(s.Count*barWidth/maxCount), s.Count)
		if s.Revenue > 0 {
			line += fmt.Sprintf(" (%s)", metrics.FormatMoney(s.Revenue))
		}
		out.WriteString(line + "\n")
	}
	return out.String()
}

func bar(filled int) string {
	filled = max(0, min(filled, barWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
