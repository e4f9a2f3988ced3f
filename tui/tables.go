// ABOUTME: Table views for each pipeline tab
// ABOUTME: Builds columns and rows from the store snapshot and maps row keys to actions
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/report"
	"github.com/harperreed/agencycrm/store"
)

var taskStatusCycle = []string{"", models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted}

// tableData returns the columns, rows, and row ids for the current tab.
func (m Model) tableData() ([]table.Column, []table.Row, []string) {
	switch m.tab {
	case TabLeads, TabSaved:
		leads := m.snap.Leads
		if m.tab == TabSaved {
			leads = m.snap.SavedLeads
		}
		cols := []table.Column{
			{Title: "Business", Width: 28},
			{Title: "Contact", Width: 24},
			{Title: "Comment", Width: 36},
		}
		var rows []table.Row
		var ids []string
		for _, l := range leads {
			if !l.MatchesSearch(m.searchQuery) {
				continue
			}
			rows = append(rows, table.Row{l.BusinessName, l.Contact, l.Comment})
			ids = append(ids, l.ID)
		}
		return cols, rows, ids

	case TabClients:
		cols := []table.Column{
			{Title: "Business", Width: 24},
			{Title: "Type", Width: 14},
			{Title: "Stage", Width: 12},
			{Title: "Deadline", Width: 11},
			{Title: "Paid", Width: 14},
			{Title: "Domain", Width: 20},
		}
		rows := make([]table.Row, 0, len(m.snap.Clients))
		ids := make([]string, 0, len(m.snap.Clients))
		for _, c := range m.snap.Clients {
			rows = append(rows, table.Row{
				c.BusinessName, c.BusinessType, c.ProjectStage, c.Deadline.String(),
				metrics.FormatMoney(c.PaymentCollected), c.DomainName,
			})
			ids = append(ids, c.ID)
		}
		return cols, rows, ids

	case TabCustomers:
		cols := []table.Column{
			{Title: "Business", Width: 28},
			{Title: "Completed", Width: 11},
			{Title: "Total Paid", Width: 14},
			{Title: "Domain", Width: 22},
			{Title: "Maintenance", Width: 12},
		}
		rows := make([]table.Row, 0, len(m.snap.Customers))
		ids := make([]string, 0, len(m.snap.Customers))
		for _, c := range m.snap.Customers {
			maint := "no"
			if c.MaintenancePlan {
				maint = "yes"
			}
			rows = append(rows, table.Row{
				c.BusinessName, c.CompletedDate.String(), metrics.FormatMoney(c.TotalPaid), c.DomainName, maint,
			})
			ids = append(ids, c.ID)
		}
		return cols, rows, ids

	case TabGoal:
		cols := []table.Column{
			{Title: "Previous Goal", Width: 28},
			{Title: "Target", Width: 14},
			{Title: "Deadline", Width: 11},
			{Title: "Achieved", Width: 11},
		}
		rows := make([]table.Row, 0, len(m.snap.PreviousGoals))
		ids := make([]string, 0, len(m.snap.PreviousGoals))
		for _, g := range m.snap.PreviousGoals {
			achieved := "-"
			if g.DateAchieved != nil {
				achieved = g.DateAchieved.String()
			}
			rows = append(rows, table.Row{g.Title, metrics.FormatMoney(g.TargetAmount), g.Deadline.String(), achieved})
			ids = append(ids, g.ID)
		}
		return cols, rows, ids

	case TabTasks:
		cols := []table.Column{
			{Title: "Title", Width: 30},
			{Title: "Priority", Width: 9},
			{Title: "Status", Width: 12},
			{Title: "Due", Width: 11},
			{Title: "Related", Width: 22},
		}
		tasks := models.FilterTasks(m.snap.Tasks, m.taskStatus, "")
		rows := make([]table.Row, 0, len(tasks))
		ids := make([]string, 0, len(tasks))
		now := m.st.Now()
		for _, t := range tasks {
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.String()
				if t.IsOverdue(now) {
					due += " !"
				}
			}
			rows = append(rows, table.Row{t.Title, t.Priority, t.Status, due, m.relatedName(t.RelatedTo, t.RelatedID)})
			ids = append(ids, t.ID)
		}
		return cols, rows, ids

	case TabActivity:
		cols := []table.Column{
			{Title: "When", Width: 16},
			{Title: "Type", Width: 20},
			{Title: "Entity", Width: 24},
			{Title: "Description", Width: 36},
		}
		rows := make([]table.Row, 0, len(m.snap.Activities))
		ids := make([]string, 0, len(m.snap.Activities))
		for _, a := range m.snap.Activities {
			rows = append(rows, table.Row{
				a.CreatedAt.Format("2006-01-02 15:04"), a.ActivityType, a.EntityName, a.Description,
			})
			ids = append(ids, a.ID)
		}
		return cols, rows, ids
	}

	return []table.Column{{Title: "Stage", Width: 14}, {Title: "Count", Width: 8}, {Title: "Revenue", Width: 16}},
		stageRows(m.snap.Pipeline), nil
}

func (m Model) relatedName(relatedTo, id string) string {
	switch relatedTo {
	case models.RelatedClient:
		if c, ok := m.st.FindClient(id); ok {
			return c.BusinessName
		}
	case models.RelatedLead:
		if l, ok := m.st.FindLead(id); ok {
			return l.BusinessName
		}
	default:
		return ""
	}
	return id
}

// handleTabKeys runs the action bound to key on the current tab.
func (m Model) handleTabKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	key := msg.String()
	id := m.selectedID()

	switch m.tab {
	case TabLeads, TabSaved:
		switch key {
		case "/":
			m.viewMode = ViewSearch
			m.search.Focus()
			return m, nil, true
		case "n":
			m.openForm(newLeadForm())
			return m, nil, true
		case "S":
			model, cmd := m.startOp("Saving all leads", func(ctx context.Context) error {
				res := m.st.SaveAllLeads(ctx)
				if res.Failed > 0 {
					return fmt.Errorf("%d lead(s) could not be saved", res.Failed)
				}
				return nil
			})
			return model, cmd, true
		}
		if id == "" {
			return m, nil, false
		}
		switch key {
		case "s":
			if m.tab != TabLeads {
				return m, nil, true
			}
			model, cmd := m.startOp("Saving lead", func(ctx context.Context) error {
				_, err := m.st.SelectLead(ctx, id)
				return err
			})
			return model, cmd, true
		case "c":
			if m.tab != TabSaved {
				return m, nil, true
			}
			m.openForm(convertForm(id, m.st.Now()))
			return m, nil, true
		case "e":
			lead, _ := m.st.FindLead(id)
			m.openForm(commentForm(id, lead.Comment))
			return m, nil, true
		case "d":
			lead, _ := m.st.FindLead(id)
			m.openConfirm(fmt.Sprintf("Delete lead %q?", lead.BusinessName), func(ctx context.Context) error {
				return m.st.DeleteLead(ctx, id)
			})
			return m, nil, true
		}

	case TabClients:
		if id == "" {
			return m, nil, false
		}
		client, _ := m.st.FindClient(id)
		switch key {
		case "p":
			m.openForm(paymentForm(id))
			return m, nil, true
		case "g":
			next := nextStage(client.ProjectStage)
			model, cmd := m.startOp("Updating stage", func(ctx context.Context) error {
				_, err := m.st.SetProjectStage(ctx, id, next)
				return err
			})
			return model, cmd, true
		case "o":
			model, cmd := m.startOp("Generating onboarding tasks", func(ctx context.Context) error {
				tasks, err := m.st.GenerateOnboardingTasks(ctx, id, models.ServiceWebDesign)
				if err == nil && len(tasks) > 0 {
					m.st.Notify(store.LevelInfo, fmt.Sprintf("Created %d onboarding tasks", len(tasks)))
				}
				return err
			})
			return model, cmd, true
		case "x":
			m.openConfirm(fmt.Sprintf("Mark %q completed?", client.BusinessName), func(ctx context.Context) error {
				_, err := m.st.MarkClientCompleted(ctx, id)
				return err
			})
			return m, nil, true
		case "d":
			m.openConfirm(fmt.Sprintf("Delete client %q?", client.BusinessName), func(ctx context.Context) error {
				return m.st.DeleteClient(ctx, id)
			})
			return m, nil, true
		}

	case TabCustomers:
		if id == "" {
			return m, nil, false
		}
		customer, _ := m.st.FindCustomer(id)
		switch key {
		case "w":
			name := report.CustomerFileName(customer)
			model, cmd := m.startOp("Exporting", func(context.Context) error {
				return exportCustomer(m.st, customer, name)
			})
			return model, cmd, true
		case "d":
			m.openConfirm(fmt.Sprintf("Delete customer %q?", customer.BusinessName), func(ctx context.Context) error {
				return m.st.DeleteCustomer(ctx, id)
			})
			return m, nil, true
		}

	case TabGoal:
		switch key {
		case "e":
			m.openForm(goalForm(m.snap.Goal))
			return m, nil, true
		case "N":
			if m.snap.Goal == nil {
				m.st.Notify(store.LevelWarning, "No goal to archive")
				return m, m.noticeTimer(), true
			}
			m.openConfirm("Archive the current goal and start a new one?", func(context.Context) error {
				if err := m.st.StartNewGoal(); err != nil {
					return err
				}
				m.st.Notify(store.LevelInfo, "Goal archived. Press e to set the next one")
				return nil
			})
			return m, nil, true
		}

	case TabTasks:
		switch key {
		case "n":
			m.openForm(taskForm())
			return m, nil, true
		case "f":
			m.taskStatus = cycle(taskStatusCycle, m.taskStatus)
			m.table.SetCursor(0)
			m.refresh()
			return m, nil, true
		}
		if id == "" {
			return m, nil, false
		}
		switch key {
		case "s":
			task := m.findTask(id)
			next := nextTaskStatus(task.Status)
			model, cmd := m.startOp("Updating task", func(ctx context.Context) error {
				_, err := m.st.SetTaskStatus(ctx, id, next)
				return err
			})
			return model, cmd, true
		case "d":
			task := m.findTask(id)
			m.openConfirm(fmt.Sprintf("Delete task %q?", task.Title), func(ctx context.Context) error {
				return m.st.DeleteTask(ctx, id)
			})
			return m, nil, true
		}

	case TabActivity:
		if key == "d" && id != "" {
			m.openConfirm("Delete this activity entry?", func(ctx context.Context) error {
				return m.st.DeleteActivity(ctx, id)
			})
			return m, nil, true
		}
	}

	return m, nil, false
}

func (m Model) findTask(id string) models.Task {
	for _, t := range m.snap.Tasks {
		if t.ID == id {
			return t
		}
	}
	return models.Task{}
}

// exportDir is where customer CSVs are written; tests point it at a temp dir.
var exportDir = "."

func exportCustomer(st *store.Store, c models.Customer, name string) error {
	path := filepath.Join(exportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	if err := report.WriteCustomerCSV(f, c); err != nil {
		_ = f.Close()
		return fmt.Errorf("export %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	st.Notify(store.LevelInfo, "Exported "+path)
	return nil
}

func nextStage(current string) string {
	for i, s := range models.ProjectStages {
		if s == current && i+1 < len(models.ProjectStages) {
			return models.ProjectStages[i+1]
		}
	}
	if models.IsValidProjectStage(current) {
		return current
	}
	return models.ProjectStages[0]
}

func nextTaskStatus(current string) string {
	switch current {
	case models.TaskStatusPending:
		return models.TaskStatusInProgress
	case models.TaskStatusInProgress:
		return models.TaskStatusCompleted
	}
	return models.TaskStatusPending
}

func cycle(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", t+1, t)
		if t == m.tab {
			parts = append(parts, tabActiveStyle.Render(label))
		} else {
			parts = append(parts, tabInactiveStyle.Render(label))
		}
	}
	return strings.Join(parts, "")
}

// renderBanner shows the busy indicator, offline marker, and live notice.
func (m Model) renderBanner() string {
	var lines []string
	if m.busy != "" {
		lines = append(lines, mutedStyle.Render(m.busy+"..."))
	}
	if m.snap.Offline && !m.snap.CachedAt.IsZero() {
		lines = append(lines, warningStyle.Render("Offline: cached "+m.snap.CachedAt.Local().Format("2006-01-02 15:04")))
	}
	if n := m.snap.Notice; n != nil {
		switch n.Level {
		case store.LevelError:
			lines = append(lines, errorStyle.Render("✗ "+n.Message))
		case store.LevelWarning:
			lines = append(lines, warningStyle.Render("⚠ "+n.Message))
		default:
			lines = append(lines, infoStyle.Render("✓ "+n.Message))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTab() string {
	var s strings.Builder

	switch m.tab {
	case TabDashboard:
		s.WriteString(renderDashboard(m.st.Metrics()))
		s.WriteString("\n")
		s.WriteString(m.table.View())
	case TabGoal:
		s.WriteString(renderGoal(m.st.Metrics()))
		s.WriteString("\n\n")
		s.WriteString(m.table.View())
	default:
		if m.tab == TabTasks {
			filter := m.taskStatus
			if filter == "" {
				filter = "all"
			}
			s.WriteString(mutedStyle.Render("Status: " + filter))
			s.WriteString("\n")
		}
		if m.viewMode == ViewSearch || m.searchQuery != "" {
			if m.tab == TabLeads || m.tab == TabSaved {
				s.WriteString(m.search.View())
				s.WriteString("\n")
			}
		}
		if len(m.rowIDs) == 0 {
			s.WriteString(mutedStyle.Render(emptyText(m.tab)))
			s.WriteString("\n")
		} else {
			s.WriteString(m.table.View())
		}
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(helpText(m.tab, m.viewMode)))
	return s.String()
}

func emptyText(t Tab) string {
	switch t {
	case TabLeads:
		return "No new leads. Press n to add one."
	case TabSaved:
		return "No saved leads."
	case TabClients:
		return "No active clients. Convert a lead with c."
	case TabCustomers:
		return "No customers yet."
	case TabTasks:
		return "No tasks. Press n to create one."
	case TabActivity:
		return "No recent activity."
	}
	return ""
}

func helpText(t Tab, mode ViewMode) string {
	if mode == ViewSearch {
		return strings.Join([]string{"type to filter", "enter: keep", "esc: clear"}, " • ")
	}

	var keys []string
	switch t {
	case TabLeads:
		keys = []string{"n: new", "s: save", "S: save all", "e: comment", "d: delete", "/: search"}
	case TabSaved:
		keys = []string{"n: new", "c: convert", "e: comment", "d: delete", "/: search"}
	case TabClients:
		keys = []string{"p: payment", "g: next stage", "o: onboarding", "x: complete", "d: delete"}
	case TabCustomers:
		keys = []string{"w: export csv", "d: delete"}
	case TabGoal:
		keys = []string{"e: edit goal", "N: new goal"}
	case TabTasks:
		keys = []string{"n: new", "s: next status", "f: filter", "d: delete"}
	case TabActivity:
		keys = []string{"d: delete"}
	}
	keys = append(keys, "tab/1-8: switch", "r: sync", "q: quit")
	return strings.Join(keys, " • ")
}
