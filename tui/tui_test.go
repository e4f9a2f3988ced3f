// ABOUTME: Tests for the bubbletea pipeline UI
// ABOUTME: Drives the model with key messages against a store backed by the test API server
package tui

import (
	"context"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agencycrm/api"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

var now = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func fixture() models.Pipeline {
	return models.Pipeline{
		Leads: []models.Lead{
			{ID: "l1", BusinessName: "TechNova Solutions", Contact: "+91 98765 43210", Status: models.LeadStatusNew},
		},
		SavedLeads: []models.Lead{
			{ID: "l2", BusinessName: "Green Eats", Comment: "Needs new website", Status: models.LeadStatusSaved},
		},
		Clients: []models.Client{{
			ID:               "c1",
			BusinessName:     "Sunrise Yoga",
			BusinessType:     "Web Design",
			Onboarding:       models.NewDate(2024, time.June, 1),
			Deadline:         models.NewDate(2024, time.June, 20),
			Delivery:         models.DeliveryInProgress,
			PaymentCollected: 500,
			ProjectStage:     models.StageDesign,
		}},
		Customers: []models.Customer{{
			ID:            "cu1",
			BusinessName:  "Old Town Books",
			CompletedDate: models.NewDate(2024, time.May, 10),
			TotalPaid:     1500,
		}},
		Goal: &models.Goal{
			ID:           "g1",
			Title:        "Q2 Revenue",
			TargetAmount: 2500,
			Deadline:     models.NewDate(2024, time.June, 30),
			DateStarted:  models.NewDate(2024, time.April, 1),
		},
	}
}

func setup(t *testing.T) (Model, *store.Store, *api.TestServer) {
	t.Helper()
	srv := api.NewTestServer(t)
	srv.Seed(fixture())
	st := store.New(srv.APIClient(), store.WithClock(func() time.Time { return now }))
	require.NoError(t, st.Load(context.Background()))
	return New(context.Background(), st), st, srv
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends each key and discards commands.
func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

// pressAndRun sends a key and runs the store operation it starts to completion.
func pressAndRun(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(keyMsg(k))
	m = next.(Model)
	require.NotNil(t, cmd, "key %q started no command", k)
	return runOp(t, m, cmd)
}

// runOp executes cmd and feeds back its result. Timers and cursor blinks are ignored.
func runOp(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		op, ok := msg.(opDoneMsg)
		require.True(t, ok, "command produced %T, want opDoneMsg", msg)
		next, _ := m.Update(op)
		return next.(Model)
	case <-time.After(2 * time.Second):
		t.Fatal("store operation did not finish")
	}
	return m
}

func typeText(m Model, s string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func TestNewStartsOnDashboard(t *testing.T) {
	m, _, _ := setup(t)

	assert.Equal(t, TabDashboard, m.tab)
	assert.Equal(t, ViewList, m.viewMode)
	view := m.View()
	assert.Contains(t, view, "AGENCY CRM")
	assert.Contains(t, view, "1 Dashboard")
	assert.Contains(t, view, "Saved Leads")
}

func TestConvertOnlyFromSavedTab(t *testing.T) {
	m, _, _ := setup(t)

	m = press(m, "2", "c")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Nil(t, m.form)

	m = press(m, "3", "c")
	assert.Equal(t, ViewForm, m.viewMode)
	require.NotNil(t, m.form)
}

func TestSwitchTabs(t *testing.T) {
	m, _, _ := setup(t)

	m = press(m, "2")
	assert.Equal(t, TabLeads, m.tab)
	assert.Equal(t, []string{"l1"}, m.rowIDs)

	m = press(m, "tab")
	assert.Equal(t, TabSaved, m.tab)
	assert.Equal(t, []string{"l2"}, m.rowIDs)

	m = press(m, "shift+tab", "shift+tab")
	assert.Equal(t, TabDashboard, m.tab)

	m = press(m, "4")
	assert.Equal(t, TabClients, m.tab)
	assert.Equal(t, []string{"c1"}, m.rowIDs)
	assert.Contains(t, m.View(), "Sunrise Yoga")
}

func TestTasksTabLoadsTasks(t *testing.T) {
	m, _, srv := setup(t)
	srv.SeedTasks(models.Task{ID: "t1", Title: "Send Contract", Priority: models.PriorityUrgent, Status: models.TaskStatusPending, RelatedTo: models.RelatedClient, RelatedID: "c1"})

	m = pressAndRun(t, m, "7")
	assert.Equal(t, TabTasks, m.tab)
	require.Equal(t, []string{"t1"}, m.rowIDs)
	assert.Contains(t, m.View(), "Sunrise Yoga")

	m = pressAndRun(t, m, "s")
	require.Len(t, srv.Tasks(), 1)
	assert.Equal(t, models.TaskStatusInProgress, srv.Tasks()[0].Status)

	m = press(m, "f", "f", "f")
	assert.Equal(t, models.TaskStatusCompleted, m.taskStatus)
	assert.Empty(t, m.rowIDs)
	assert.Contains(t, m.View(), "No tasks")
}

func TestSelectLead(t *testing.T) {
	m, st, srv := setup(t)

	m = press(m, "2")
	m = pressAndRun(t, m, "s")

	assert.Empty(t, m.rowIDs)
	assert.Len(t, st.Pipeline().SavedLeads, 2)
	for _, l := range srv.Leads() {
		assert.Equal(t, models.LeadStatusSaved, l.Status)
	}
}

func TestAddLeadForm(t *testing.T) {
	m, st, _ := setup(t)

	m = press(m, "2", "n")
	require.Equal(t, ViewForm, m.viewMode)
	assert.Contains(t, m.View(), "NEW LEAD")

	m = typeText(m, "Harbor Dental")
	m = press(m, "enter")
	m = typeText(m, "dental@example.com")
	m = press(m, "enter")
	m = pressAndRun(t, m, "enter")

	assert.Equal(t, ViewList, m.viewMode)
	leads := st.Pipeline().Leads
	require.Len(t, leads, 2)
	assert.Equal(t, "Harbor Dental", leads[1].BusinessName)
	assert.Equal(t, "dental@example.com", leads[1].Contact)
	assert.Len(t, m.rowIDs, 2)
}

func TestAddLeadFormRequiresName(t *testing.T) {
	m, st, srv := setup(t)

	m = press(m, "2", "n", "enter", "enter", "enter")

	assert.Equal(t, ViewForm, m.viewMode)
	n := st.CurrentNotice()
	require.NotNil(t, n)
	assert.Equal(t, store.LevelError, n.Level)
	assert.Equal(t, "Business name is required", n.Message)
	assert.Len(t, srv.Leads(), 2)

	m = press(m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Nil(t, m.form)
}

func TestPaymentCelebratesGoal(t *testing.T) {
	m, st, srv := setup(t)

	m = press(m, "4", "p")
	m = typeText(m, "1000")
	m = pressAndRun(t, m, "enter")

	assert.Equal(t, 1500.0, srv.Clients()[0].PaymentCollected)
	assert.True(t, m.snap.Celebrating)
	assert.Contains(t, m.View(), "GOAL ACHIEVED")

	m = press(m, "j")
	assert.False(t, m.snap.Celebrating)
	assert.False(t, st.Celebrating())
	assert.Equal(t, TabClients, m.tab)
}

func TestPaymentFormRejectsBadAmount(t *testing.T) {
	m, st, srv := setup(t)

	m = press(m, "4", "p")
	m = typeText(m, "-5")
	m = press(m, "enter")

	assert.Equal(t, ViewForm, m.viewMode)
	require.NotNil(t, st.CurrentNotice())
	assert.Contains(t, st.CurrentNotice().Message, "payment must be a positive amount")
	assert.Equal(t, 0, srv.Requests(http.MethodPatch, "/clients/c1"))
}

func TestConfirmDeleteClient(t *testing.T) {
	m, st, srv := setup(t)

	m = press(m, "4", "d")
	require.Equal(t, ViewConfirm, m.viewMode)
	assert.Contains(t, m.View(), `Delete client "Sunrise Yoga"?`)

	m = press(m, "n")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Len(t, st.Pipeline().Clients, 1)

	m = press(m, "d")
	m = pressAndRun(t, m, "y")
	assert.Empty(t, st.Pipeline().Clients)
	assert.Empty(t, srv.Clients())
	assert.Empty(t, m.rowIDs)
}

func TestCompleteClient(t *testing.T) {
	m, st, srv := setup(t)

	m = press(m, "4", "x")
	m = pressAndRun(t, m, "y")

	p := st.Pipeline()
	assert.Empty(t, p.Clients)
	require.Len(t, p.Customers, 2)
	assert.Equal(t, "Sunrise Yoga", p.Customers[0].BusinessName)
	assert.Len(t, srv.Customers(), 2)

	m = press(m, "5")
	assert.Len(t, m.rowIDs, 2)
}

func TestNextStage(t *testing.T) {
	m, st, _ := setup(t)

	m = press(m, "4")
	pressAndRun(t, m, "g")

	c, ok := st.FindClient("c1")
	require.True(t, ok)
	assert.Equal(t, models.StageDevelopment, c.ProjectStage)

	assert.Equal(t, models.StageDiscovery, nextStage(""))
	assert.Equal(t, models.StageLaunched, nextStage(models.StageLaunched))
}

func TestSearchLeads(t *testing.T) {
	m, _, _ := setup(t)

	m = press(m, "2", "/")
	require.Equal(t, ViewSearch, m.viewMode)

	m = typeText(m, "nova")
	assert.Equal(t, []string{"l1"}, m.rowIDs)

	m = typeText(m, "zzz")
	assert.Empty(t, m.rowIDs)

	m = press(m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, "", m.searchQuery)
	assert.Equal(t, []string{"l1"}, m.rowIDs)
}

func TestFailedOperationShowsError(t *testing.T) {
	m, _, srv := setup(t)
	srv.Fail(http.MethodPatch, "/leads/l1", http.StatusInternalServerError)

	m = press(m, "2")
	m = pressAndRun(t, m, "s")

	require.NotNil(t, m.snap.Notice)
	assert.Equal(t, store.LevelError, m.snap.Notice.Level)
	assert.Contains(t, m.View(), "✗")
	assert.Equal(t, []string{"l1"}, m.rowIDs)
}

func TestNoticeExpiry(t *testing.T) {
	m, st, _ := setup(t)

	st.Notify(store.LevelInfo, "Lead saved")
	n := st.CurrentNotice()
	require.NotNil(t, n)

	next, _ := m.Update(noticeExpiredMsg{at: n.At.Add(-time.Second)})
	m = next.(Model)
	assert.NotNil(t, st.CurrentNotice(), "a stale timer must not clear a newer notice")

	next, _ = m.Update(noticeExpiredMsg{at: n.At})
	m = next.(Model)
	assert.Nil(t, st.CurrentNotice())
	assert.Nil(t, m.snap.Notice)
}

func TestGoalTab(t *testing.T) {
	m, st, _ := setup(t)

	m = press(m, "6")
	view := m.View()
	assert.Contains(t, view, "Q2 Revenue")
	assert.Contains(t, view, "80.0%")

	m = press(m, "N")
	require.Equal(t, ViewConfirm, m.viewMode)
	m = pressAndRun(t, m, "y")
	assert.Nil(t, st.Pipeline().Goal)
	assert.Equal(t, []string{"g1"}, m.rowIDs)
	assert.Contains(t, m.View(), "No goal set")
}

func TestGoalFormSubmit(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		wantErr string
	}{
		{"valid", map[string]string{"title": "Q3", "target": "5000", "deadline": "2024-09-30"}, ""},
		{"bad target", map[string]string{"title": "Q3", "target": "lots", "deadline": "2024-09-30"}, "target must be a number"},
		{"zero target", map[string]string{"title": "Q3", "target": "0", "deadline": "2024-09-30"}, "target amount must be positive"},
		{"missing deadline", map[string]string{"title": "Q3", "target": "100", "deadline": ""}, "deadline is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, st, srv := setup(t)
			_, op, err := goalForm(nil).submit(st, tt.values)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, op(context.Background()))
			goal := st.Pipeline().Goal
			require.NotNil(t, goal)
			assert.Equal(t, 5000.0, goal.TargetAmount)
			assert.Equal(t, "Q3", srv.Goals()[0].Title)
		})
	}
}

func TestConvertFormSubmit(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"start": "2024-06-15", "finish": "2024-07-15", "maintenance": "y", "stage": "Design"}
	}

	tests := []struct {
		name    string
		edit    func(v map[string]string)
		wantErr string
	}{
		{"valid", func(map[string]string) {}, ""},
		{"bad stage", func(v map[string]string) { v["stage"] = "Shipping" }, "unknown project stage"},
		{"bad date", func(v map[string]string) { v["finish"] = "15/07/2024" }, "deadline"},
		{"finish before start", func(v map[string]string) { v["finish"] = "2024-06-01" }, "before the start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, st, _ := setup(t)
			v := base()
			tt.edit(v)

			_, op, err := convertForm("l2", now).submit(st, v)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, op(context.Background()))

			clients := st.Pipeline().Clients
			require.Len(t, clients, 2)
			assert.Equal(t, "Green Eats", clients[1].BusinessName)
			assert.Equal(t, "2024-07-15", clients[1].Deadline.String())
			assert.True(t, clients[1].MaintenancePlan)
		})
	}
}

func TestExportCustomer(t *testing.T) {
	m, _, _ := setup(t)
	prev := exportDir
	exportDir = t.TempDir()
	t.Cleanup(func() { exportDir = prev })

	m = press(m, "5")
	m = pressAndRun(t, m, "w")

	require.NotNil(t, m.snap.Notice)
	assert.Contains(t, m.snap.Notice.Message, "Old_Town_Books_report.csv")
	assert.FileExists(t, exportDir+"/Old_Town_Books_report.csv")
}

func TestQuitCancelsOperations(t *testing.T) {
	m, _, _ := setup(t)

	next, cmd := m.Update(keyMsg("q"))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
}
