// ABOUTME: Derived dashboard metrics computed from a pipeline snapshot
// ABOUTME: Pure functions for revenue, stats, rates, goal progress, and trends
package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harperreed/agencycrm/models"
)

// DeadlineWindow is how far ahead a client deadline counts as upcoming.
const DeadlineWindow = 7 * 24 * time.Hour

// Trend and distribution sizes shown on the dashboard.
const (
	TrendMonths       = 6
	TopBusinessTypesN = 5
)

type Stats struct {
	TotalLeads     int `json:"totalLeads"`
	ActiveProjects int `json:"activeProjects"`
	Deadlines      int `json:"deadlines"`
}

type MonthRevenue struct {
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Revenue float64    `json:"revenue"`
}

// Label renders the month as "Jan 2024".
func (m MonthRevenue) Label() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

type BusinessTypeCount struct {
	BusinessType string  `json:"businessType"`
	Clients      int     `json:"clients"`
	Revenue      float64 `json:"revenue"`
}

// Dashboard bundles every derived figure for one pipeline state.
type Dashboard struct {
	TotalRevenue     float64             `json:"totalRevenue"`
	Stats            Stats               `json:"stats"`
	ConversionRate   float64             `json:"conversionRate"`
	AvgProjectValue  float64             `json:"avgProjectValue"`
	CompletionRate   float64             `json:"completionRate"`
	GoalProgress     float64             `json:"goalProgress"`
	GoalProgressRaw  float64             `json:"goalProgressRaw"`
	Goal             *models.Goal        `json:"goal,omitempty"`
	DaysRemaining    int                 `json:"daysRemaining"`
	MonthlyRevenue   []MonthRevenue      `json:"monthlyRevenue"`
	TopBusinessTypes []BusinessTypeCount `json:"topBusinessTypes"`
	ComputedAt       time.Time           `json:"computedAt"`
}

// Compute derives the full dashboard from p as of now.
func Compute(p models.Pipeline, now time.Time) Dashboard {
	d := Dashboard{
		TotalRevenue:     TotalRevenue(p),
		Stats:            ComputeStats(p, now),
		ConversionRate:   ConversionRate(p),
		AvgProjectValue:  AvgProjectValue(p.Clients),
		CompletionRate:   CompletionRate(p.Clients),
		MonthlyRevenue:   MonthlyRevenue(p.Customers, now, TrendMonths),
		TopBusinessTypes: TopBusinessTypes(p.Clients, TopBusinessTypesN),
		ComputedAt:       now,
	}
	d.GoalProgressRaw = GoalProgressRaw(d.TotalRevenue, p.Goal)
	d.GoalProgress = GoalProgress(d.TotalRevenue, p.Goal)
	if p.Goal != nil {
		g := *p.Goal
		d.Goal = &g
		d.DaysRemaining = g.DaysRemaining(now)
	}
	return d
}

// TotalRevenue sums payments collected on active clients and paid by customers.
func TotalRevenue(p models.Pipeline) float64 {
	total := decimal.Zero
	for _, c := range p.Clients {
		total = total.Add(decimal.NewFromFloat(c.PaymentCollected))
	}
	for _, c := range p.Customers {
		total = total.Add(decimal.NewFromFloat(c.TotalPaid))
	}
	return total.Round(2).InexactFloat64()
}

// ComputeStats counts leads, active projects, and deadlines before now+7d.
// Overdue deadlines count too; clients without a deadline do not.
func ComputeStats(p models.Pipeline, now time.Time) Stats {
	stats := Stats{
		TotalLeads:     len(p.Leads) + len(p.SavedLeads),
		ActiveProjects: len(p.Clients),
	}
	cutoff := now.Add(DeadlineWindow)
	for _, c := range p.Clients {
		if !c.Deadline.IsZero() && c.Deadline.Before(cutoff) {
			stats.Deadlines++
		}
	}
	return stats
}

// ConversionRate is clients per lead as a percentage, 0 with no leads.
func ConversionRate(p models.Pipeline) float64 {
	leads := len(p.Leads) + len(p.SavedLeads)
	if leads == 0 {
		return 0
	}
	return float64(len(p.Clients)) / float64(leads) * 100
}

// AvgProjectValue is the mean payment collected per active client.
func AvgProjectValue(clients []models.Client) float64 {
	if len(clients) == 0 {
		return 0
	}
	total := decimal.Zero
	for _, c := range clients {
		total = total.Add(decimal.NewFromFloat(c.PaymentCollected))
	}
	return total.Div(decimal.NewFromInt(int64(len(clients)))).Round(2).InexactFloat64()
}

// CompletionRate is the share of clients flagged completed.
// Completed clients leave the collection, so this is 0 in practice.
func CompletionRate(clients []models.Client) float64 {
	if len(clients) == 0 {
		return 0
	}
	done := 0
	for _, c := range clients {
		if c.IsCompleted {
			done++
		}
	}
	return float64(done) / float64(len(clients)) * 100
}

// GoalProgressRaw is revenue over target as a percentage, unclamped.
func GoalProgressRaw(revenue float64, goal *models.Goal) float64 {
	if goal == nil || goal.TargetAmount <= 0 {
		return 0
	}
	return revenue / goal.TargetAmount * 100
}

// GoalProgress is GoalProgressRaw clamped to [0, 100] for display.
func GoalProgress(revenue float64, goal *models.Goal) float64 {
	return min(max(GoalProgressRaw(revenue, goal), 0), 100)
}

// GoalReached reports whether revenue meets a positive target on a goal not yet achieved.
func GoalReached(revenue float64, goal *models.Goal) bool {
	if goal == nil || goal.IsAchieved || goal.TargetAmount <= 0 {
		return false
	}
	return revenue >= goal.TargetAmount
}

// MonthlyRevenue sums customer payments by completion month for the trailing
// months calendar months, oldest first, the current month last.
func MonthlyRevenue(customers []models.Customer, now time.Time, months int) []MonthRevenue {
	if months <= 0 {
		return nil
	}
	out := make([]MonthRevenue, months)
	sums := make([]decimal.Decimal, months)
	index := make(map[[2]int]int, months)
	for i := range months {
		start := time.Date(now.Year(), now.Month()-time.Month(months-1-i), 1, 0, 0, 0, 0, time.UTC)
		out[i] = MonthRevenue{Year: start.Year(), Month: start.Month()}
		sums[i] = decimal.Zero
		index[[2]int{start.Year(), int(start.Month())}] = i
	}

	for _, c := range customers {
		if c.CompletedDate.IsZero() {
			continue
		}
		i, ok := index[[2]int{c.CompletedDate.Year(), int(c.CompletedDate.Month())}]
		if !ok {
			continue
		}
		sums[i] = sums[i].Add(decimal.NewFromFloat(c.TotalPaid))
	}

	for i := range out {
		out[i].Revenue = sums[i].Round(2).InexactFloat64()
	}
	return out
}

// TopBusinessTypes groups clients by business type and keeps the n largest
// by client count, ties broken by name.
func TopBusinessTypes(clients []models.Client, n int) []BusinessTypeCount {
	byType := make(map[string]*BusinessTypeCount)
	revenue := make(map[string]decimal.Decimal)
	for _, c := range clients {
		bt := c.BusinessType
		if bt == "" {
			bt = models.DefaultBusinessType
		}
		entry, ok := byType[bt]
		if !ok {
			entry = &BusinessTypeCount{BusinessType: bt}
			byType[bt] = entry
			revenue[bt] = decimal.Zero
		}
		entry.Clients++
		revenue[bt] = revenue[bt].Add(decimal.NewFromFloat(c.PaymentCollected))
	}

	out := make([]BusinessTypeCount, 0, len(byType))
	for bt, entry := range byType {
		entry.Revenue = revenue[bt].Round(2).InexactFloat64()
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clients != out[j].Clients {
			return out[i].Clients > out[j].Clients
		}
		return out[i].BusinessType < out[j].BusinessType
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
