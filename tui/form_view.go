// ABOUTME: Input forms for leads, conversions, payments, goals, and tasks
// ABOUTME: Validates entries before handing them to the store as a background command
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

// submitFunc validates the entered values and returns the store operation to run.
type submitFunc func(st *store.Store, v map[string]string) (label string, op func(ctx context.Context) error, err error)

type formField struct {
	key   string
	input textinput.Model
}

type form struct {
	title  string
	fields []formField
	focus  int
	submit submitFunc
}

func newField(key, label, placeholder, value string, limit int) formField {
	in := textinput.New()
	in.Prompt = fmt.Sprintf("%-14s", label+":")
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.SetValue(value)
	return formField{key: key, input: in}
}

func (f *form) values() map[string]string {
	v := make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		v[field.key] = strings.TrimSpace(field.input.Value())
	}
	return v
}

func (f *form) setFocus(i int) {
	f.focus = (i + len(f.fields)) % len(f.fields)
	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
}

func (m *Model) openForm(f *form) {
	f.setFocus(0)
	m.form = f
	m.viewMode = ViewForm
}

func (m Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	switch msg.String() {
	case "esc":
		m.form = nil
		m.viewMode = ViewList
		return m, nil
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return m, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return m, nil
	case "enter":
		if f.focus < len(f.fields)-1 {
			f.setFocus(f.focus + 1)
			return m, nil
		}
		fallthrough
	case "ctrl+s":
		label, op, err := f.submit(m.st, f.values())
		if err != nil {
			m.st.Notify(store.LevelError, capitalize(err.Error()))
			m.refresh()
			return m, m.noticeTimer()
		}
		m.form = nil
		m.viewMode = ViewList
		return m.startOp(label, op)
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return m, cmd
}

func (m Model) renderForm() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(m.form.title))
	s.WriteString("\n\n")

	for i, field := range m.form.fields {
		if i == m.form.focus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(field.input.View())
		s.WriteString("\n")
	}

	help := []string{"Tab: Next field", "Enter: Next / Save", "Ctrl+S: Save", "Esc: Cancel"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func newLeadForm() *form {
	return &form{
		title: "NEW LEAD",
		fields: []formField{
			newField("business", "Business", "Business name", "", 100),
			newField("contact", "Contact", "Phone or email", "", 100),
			newField("comment", "Comment", "", "", 500),
		},
		submit: func(st *store.Store, v map[string]string) (string, func(context.Context) error, error) {
			if v["business"] == "" {
				return "", nil, fmt.Errorf("business name is required")
			}
			return "Adding lead", func(ctx context.Context) error {
				_, err := st.AddLead(ctx, v["business"], v["contact"], v["comment"])
				return err
			}, nil
		},
	}
}

func commentForm(leadID, current string) *form {
	return &form{
		title:  "EDIT COMMENT",
		fields: []formField{newField("comment", "Comment", "", current, 500)},
		submit: func(st *store.Store, v map[string]string) (string, func(context.Context) error, error) {
			return "Updating comment", func(ctx context.Context) error {
				_, err := st.UpdateLeadComment(ctx, leadID, v["comment"])
				return err
			}, nil
		},
	}
}

func convertForm(leadID string, now time.Time) *form {
	today := models.DateOf(now)
	return &form{
		title: "CONVERT TO CLIENT",
		fields: []formField{
			newField("start", "Start", "YYYY-MM-DD", today.String(), 10),
			newField("finish", "Deadline", "YYYY-MM-DD", today.AddDays(models.DefaultProjectDays).String(), 10),
			newField("type", "Business type", models.DefaultBusinessType, "", 60),
			newField("domain", "Domain", "example.com", "", 100),
			newField("hosting", "Hosting", "", "", 60),
			newField("cms", "CMS", "", "", 60),
			newField("stage", "Stage", strings.Join(models.ProjectStages, "/"), "", 20),
			newField("maintenance", "Maintenance", "y/n", "n", 3),
			newField("renewal", "Renewal", "YYYY-MM-DD", "", 10),
		},
		submit: func(st *store.Store, v map[string]string) (string, func(context.Context) error, error) {
			in := store.ConvertInput{
				BusinessType:    v["type"],
				DomainName:      v["domain"],
				HostingProvider: v["hosting"],
				CMSType:         v["cms"],
				ProjectStage:    v["stage"],
				MaintenancePlan: strings.HasPrefix(strings.ToLower(v["maintenance"]), "y"),
			}
			if in.ProjectStage != "" && !models.IsValidProjectStage(in.ProjectStage) {
				return "", nil, fmt.Errorf("unknown project stage %q", in.ProjectStage)
			}

			var err error
			if in.Start, err = parseOptionalDate("start", v["start"]); err != nil {
				return "", nil, err
			}
			if in.Finish, err = parseOptionalDate("deadline", v["finish"]); err != nil {
				return "", nil, err
			}
			if in.RenewalDate, err = parseOptionalDate("renewal", v["renewal"]); err != nil {
				return "", nil, err
			}
			if in.Start != nil && in.Finish != nil && in.Finish.Before(in.Start.Time) {
				return "", nil, fmt.Errorf("deadline is before the start date")
			}

			return "Converting lead", func(ctx context.Context) error {
				_, err := st.ConvertToClient(ctx, leadID, in)
				return err
			}, nil
		},
	}
}

func paymentForm(clientID string) *form {
	return &form{
		title:  "ADD PAYMENT",
		fields: []formField{newField("amount", "Amount", "0.00", "", 16)},
		submit: func(st *store.Store, v map[string]string) (string, func(context.Context) error, error) {
			amount, err := strconv.ParseFloat(v["amount"], 64)
			if err != nil {
				return "", nil, fmt.Errorf("amount must be a number")
			}
			if err := store.ValidatePaymentAmount(amount); err != nil {
				return "", nil, err
			}
			return "Recording payment", func(ctx context.Context) error {
				_, err := st.UpdatePayment(ctx, clientID, amount)
				return err
			}, nil
		},
	}
}

func goalForm(current *models.Goal) *form {
	var title, target, deadline string
	if current != nil {
		title = current.Title
		target = strconv.FormatFloat(metrics.RoundMoney(current.TargetAmount), 'f', -1, 64)
		deadline = current.Deadline.String()
	}
	return &form{
		title: "REVENUE GOAL",
		fields: []formField{
			newField("title", "Title", models.DefaultGoalTitle, title, 100),
			newField("target", "Target", "0.00", target, 16),
			newField("deadline", "Deadline", "YYYY-MM-DD", deadline, 10),
		},
		submit: func(st *store.Store, v map[string]string) (string, func(context.Context) error, error) {
			amount, err := strconv.ParseFloat(v["target"], 64)
			if err != nil {
				return "", nil, fmt.Errorf("target must be a number")
			}
			d, err := models.ParseDate(v["deadline"])
			if err != nil {
				return "", nil, err
			}
			in := store.GoalInput{Title: v["title"], TargetAmount: amount, Deadline: d}
			if err := in.Validate(); err != nil {
				return "", nil, err
			}
			return "Saving goal", func(ctx context.Context) error {
				_, err := st.UpdateGoal(ctx, in)
				return err
			}, nil
		},
	}
}

func taskForm() *form {
	return &form{
		title: "NEW TASK",
		fields: []formField{
			newField("title", "Title", "", "", 200),
			newField("description", "Description", "", "", 500),
			newField("priority", "Priority", "low/medium/high/urgent", models.PriorityMedium, 10),
			newField("due", "Due", "YYYY-MM-DD", "", 10),
		},
		submit: func(st *store.Store, v map[string]string) (string, func(context.Context) error, error) {
			if v["title"] == "" {
				return "", nil, fmt.Errorf("task title is required")
			}
			if !models.IsValidPriority(v["priority"]) {
				return "", nil, fmt.Errorf("unknown priority %q", v["priority"])
			}
			due, err := parseOptionalDate("due", v["due"])
			if err != nil {
				return "", nil, err
			}
			in := store.TaskInput{
				Title:       v["title"],
				Description: v["description"],
				RelatedTo:   models.RelatedGeneral,
				Priority:    v["priority"],
				DueDate:     due,
			}
			return "Creating task", func(ctx context.Context) error {
				_, err := st.CreateTask(ctx, in)
				return err
			}, nil
		},
	}
}

func parseOptionalDate(field, s string) (*models.Date, error) {
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return d.Ptr(), nil
}
