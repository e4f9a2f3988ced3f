// ABOUTME: Dashboard and goal tab rendering
// ABOUTME: Reuses the terminal dashboard renderer and the per-stage counts
package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/viz"
)

func renderDashboard(d metrics.Dashboard) string {
	return viz.RenderDashboard(d)
}

func renderGoal(d metrics.Dashboard) string {
	if d.Goal == nil {
		return mutedStyle.Render("No goal set. Press e to create one.")
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(d.Goal.Title))
	s.WriteString("\n")
	s.WriteString("Target:    " + metrics.FormatMoney(d.Goal.TargetAmount) + "\n")
	s.WriteString("Revenue:   " + metrics.FormatMoney(d.TotalRevenue) + "\n")
	s.WriteString("Progress:  " + metrics.FormatPercent(d.GoalProgress) + "\n")
	s.WriteString("Deadline:  " + d.Goal.Deadline.String() + "\n")
	if d.Goal.IsAchieved {
		achieved := ""
		if d.Goal.DateAchieved != nil {
			achieved = " on " + d.Goal.DateAchieved.String()
		}
		s.WriteString(infoStyle.Render("🎉 Achieved" + achieved))
	} else {
		s.WriteString("Remaining: " + strconv.Itoa(d.DaysRemaining) + " day(s)")
	}
	return s.String()
}

func stageRows(p models.Pipeline) []table.Row {
	stages := viz.Stages(p)
	rows := make([]table.Row, 0, len(stages))
	for _, st := range stages {
		revenue := ""
		if st.Revenue > 0 {
			revenue = metrics.FormatMoney(st.Revenue)
		}
		rows = append(rows, table.Row{st.Stage, strconv.Itoa(st.Count), revenue})
	}
	return rows
}
