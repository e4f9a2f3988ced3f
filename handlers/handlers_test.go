// ABOUTME: Tests for the MCP tool, resource, and prompt handlers
// ABOUTME: Runs each handler against a store backed by the in-memory API server
package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
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

func setup(t *testing.T) (*store.Store, *api.TestServer) {
	t.Helper()
	srv := api.NewTestServer(t)
	srv.Seed(fixture())
	st := store.New(srv.APIClient(), store.WithClock(func() time.Time { return now }))
	require.NoError(t, st.Load(context.Background()))
	return st, srv
}

func TestListPipeline(t *testing.T) {
	st, _ := setup(t)
	h := NewPipelineHandlers(st)
	ctx := context.Background()

	_, out, err := h.ListPipeline(ctx, nil, ListPipelineInput{})
	require.NoError(t, err)
	assert.Len(t, out.Leads, 1)
	assert.Len(t, out.SavedLeads, 1)
	assert.Len(t, out.Clients, 1)
	assert.Len(t, out.Customers, 1)
	assert.Equal(t, "2024-06-20", out.Clients[0].Deadline)

	_, out, err = h.ListPipeline(ctx, nil, ListPipelineInput{Stage: "clients"})
	require.NoError(t, err)
	assert.Empty(t, out.Leads)
	assert.Len(t, out.Clients, 1)

	_, out, err = h.ListPipeline(ctx, nil, ListPipelineInput{Search: "GREEN"})
	require.NoError(t, err)
	assert.Empty(t, out.Leads)
	require.Len(t, out.SavedLeads, 1)
	assert.Equal(t, "Green Eats", out.SavedLeads[0].BusinessName)

	_, _, err = h.ListPipeline(ctx, nil, ListPipelineInput{Stage: "prospects"})
	assert.Error(t, err)
}

func TestAddAndSelectLead(t *testing.T) {
	st, srv := setup(t)
	h := NewPipelineHandlers(st)
	ctx := context.Background()

	_, _, err := h.AddLead(ctx, nil, AddLeadInput{BusinessName: "  "})
	assert.Error(t, err)

	_, lead, err := h.AddLead(ctx, nil, AddLeadInput{BusinessName: "Harbor Dental", Contact: "dental@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Len(t, srv.Leads(), 3)

	_, selected, err := h.SelectLead(ctx, nil, LeadIDInput{LeadID: lead.ID})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusSaved, selected.Status)

	_, _, err = h.SelectLead(ctx, nil, LeadIDInput{})
	assert.Error(t, err)
}

func TestConvertLeadAlreadyGone(t *testing.T) {
	st, srv := setup(t)
	h := NewPipelineHandlers(st)
	ctx := context.Background()

	require.NoError(t, srv.APIClient().DeleteLead(ctx, "l2"))

	_, client, err := h.ConvertLead(ctx, nil, ConvertLeadInput{LeadID: "l2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already converted or removed")
	assert.Empty(t, client.ID)
	assert.Len(t, srv.Clients(), 1)
}

func TestConvertLead(t *testing.T) {
	tests := []struct {
		name    string
		input   ConvertLeadInput
		wantErr bool
	}{
		{name: "missing id", input: ConvertLeadInput{}, wantErr: true},
		{name: "bad stage", input: ConvertLeadInput{LeadID: "l1", ProjectStage: "Shipping"}, wantErr: true},
		{name: "bad date", input: ConvertLeadInput{LeadID: "l1", Finish: "next week"}, wantErr: true},
		{name: "unknown lead", input: ConvertLeadInput{LeadID: "nope"}, wantErr: true},
		{name: "unsaved lead", input: ConvertLeadInput{LeadID: "l1"}, wantErr: true},
		{name: "saved lead", input: ConvertLeadInput{LeadID: "l2", Finish: "2024-07-31", DomainName: "greeneats.in"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, srv := setup(t)
			h := NewPipelineHandlers(st)

			_, client, err := h.ConvertLead(context.Background(), nil, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Len(t, srv.Clients(), 1)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Green Eats", client.BusinessName)
			assert.Equal(t, models.DefaultBusinessType, client.BusinessType)
			assert.Equal(t, "2024-06-15", client.Onboarding)
			assert.Equal(t, "2024-07-31", client.Deadline)
			assert.Equal(t, "greeneats.in", client.DomainName)
			assert.Len(t, srv.Clients(), 2)
			assert.Len(t, srv.Leads(), 1)
		})
	}
}

func TestRecordPaymentReachesGoal(t *testing.T) {
	st, srv := setup(t)
	h := NewPipelineHandlers(st)
	ctx := context.Background()

	_, _, err := h.RecordPayment(ctx, nil, RecordPaymentInput{ClientID: "c1", Amount: -5})
	assert.Error(t, err)

	_, out, err := h.RecordPayment(ctx, nil, RecordPaymentInput{ClientID: "c1", Amount: 250.25})
	require.NoError(t, err)
	assert.False(t, out.GoalAchieved)
	assert.Equal(t, 750.25, out.Client.PaymentCollected)

	_, out, err = h.RecordPayment(ctx, nil, RecordPaymentInput{ClientID: "c1", Amount: 300})
	require.NoError(t, err)
	assert.True(t, out.GoalAchieved)
	assert.False(t, st.Celebrating())

	goals := srv.Goals()
	require.Len(t, goals, 1)
	assert.True(t, goals[0].IsAchieved)
}

func TestRecordPaymentClientGone(t *testing.T) {
	st, srv := setup(t)
	h := NewPipelineHandlers(st)
	srv.Fail("PATCH", "/clients/c1", 404)

	_, _, err := h.RecordPayment(context.Background(), nil, RecordPaymentInput{ClientID: "c1", Amount: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer exists")
}

func TestCompleteClient(t *testing.T) {
	st, srv := setup(t)
	h := NewPipelineHandlers(st)

	_, customer, err := h.CompleteClient(context.Background(), nil, ClientIDInput{ClientID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "Sunrise Yoga", customer.BusinessName)
	assert.Equal(t, 500.0, customer.TotalPaid)
	assert.Equal(t, "2024-06-20", customer.CompletedDate)
	assert.Empty(t, srv.Clients())
	assert.Len(t, srv.Customers(), 2)

	_, _, err = h.CompleteClient(context.Background(), nil, ClientIDInput{ClientID: "c1"})
	assert.Error(t, err)
}

func TestSetGoal(t *testing.T) {
	tests := []struct {
		name    string
		input   SetGoalInput
		wantErr bool
	}{
		{name: "missing deadline", input: SetGoalInput{TargetAmount: 1000}, wantErr: true},
		{name: "bad deadline", input: SetGoalInput{TargetAmount: 1000, Deadline: "31/12/2024"}, wantErr: true},
		{name: "zero target", input: SetGoalInput{Deadline: "2024-12-31"}, wantErr: true},
		{name: "valid", input: SetGoalInput{TargetAmount: 10000, Deadline: "2024-12-31"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _ := setup(t)
			h := NewGoalHandlers(st)

			_, goal, err := h.SetGoal(context.Background(), nil, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.DefaultGoalTitle, goal.Title)
			assert.Equal(t, 10000.0, goal.TargetAmount)
			assert.Equal(t, "2024-12-31", goal.Deadline)
			assert.False(t, goal.IsAchieved)
		})
	}
}

func TestGetMetrics(t *testing.T) {
	st, _ := setup(t)
	h := NewGoalHandlers(st)

	_, out, err := h.GetMetrics(context.Background(), nil, GetMetricsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, out.TotalRevenue)
	assert.Equal(t, "₹2,000.00", out.TotalRevenueText)
	assert.Equal(t, 2, out.TotalLeads)
	assert.Equal(t, 1, out.ActiveProjects)
	assert.Equal(t, 1, out.Deadlines)
	require.NotNil(t, out.Goal)
	assert.Equal(t, 80.0, out.GoalProgress)
	assert.NotEmpty(t, out.MonthlyRevenue)
}

func TestTaskTools(t *testing.T) {
	st, srv := setup(t)
	srv.SeedTasks(
		models.Task{ID: "t1", Title: "Send invoice", RelatedTo: models.RelatedClient, RelatedID: "c1", Priority: models.PriorityHigh, Status: models.TaskStatusPending},
		models.Task{ID: "t2", Title: "Update portfolio", RelatedTo: models.RelatedGeneral, Priority: models.PriorityLow, Status: models.TaskStatusPending},
	)
	h := NewTaskHandlers(st)
	ctx := context.Background()

	_, list, err := h.ListTasks(ctx, nil, ListTasksInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)

	_, list, err = h.ListTasks(ctx, nil, ListTasksInput{ClientID: "c1"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Send invoice", list.Tasks[0].Title)

	_, _, err = h.ListTasks(ctx, nil, ListTasksInput{Status: "done"})
	assert.Error(t, err)

	_, _, err = h.CreateTask(ctx, nil, CreateTaskInput{Title: "Call back", RelatedTo: models.RelatedLead})
	assert.Error(t, err)

	_, task, err := h.CreateTask(ctx, nil, CreateTaskInput{Title: "Call back", RelatedTo: models.RelatedLead, RelatedID: "l1", DueDate: "2024-06-10"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.True(t, task.Overdue)
	assert.Len(t, srv.Tasks(), 3)
}

func TestGenerateOnboardingTasks(t *testing.T) {
	st, srv := setup(t)
	h := NewTaskHandlers(st)
	ctx := context.Background()

	_, out, err := h.GenerateOnboardingTasks(ctx, nil, GenerateOnboardingInput{ClientID: "c1"})
	require.NoError(t, err)
	want := len(models.OnboardingChecklist(models.ServiceWebDesign))
	assert.Equal(t, want, out.Count)
	assert.Len(t, srv.Tasks(), want)
	for _, task := range out.Tasks {
		assert.Equal(t, "c1", task.RelatedID)
	}

	_, _, err = h.GenerateOnboardingTasks(ctx, nil, GenerateOnboardingInput{ClientID: "c1", ServiceType: "podcasting"})
	assert.Error(t, err)

	_, _, err = h.GenerateOnboardingTasks(ctx, nil, GenerateOnboardingInput{ClientID: "missing"})
	assert.ErrorIs(t, err, store.ErrUnknownClient)
}

func readResource(t *testing.T, h *ResourceHandlers, uri string) (string, error) {
	t.Helper()
	res, err := h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	if err != nil {
		return "", err
	}
	require.Len(t, res.Contents, 1)
	assert.Equal(t, uri, res.Contents[0].URI)
	return res.Contents[0].Text, nil
}

func TestReadResource(t *testing.T) {
	st, _ := setup(t)
	h := NewResourceHandlers(st)

	text, err := readResource(t, h, "crm://clients/c1")
	require.NoError(t, err)
	var client ClientOutput
	require.NoError(t, json.Unmarshal([]byte(text), &client))
	assert.Equal(t, "Sunrise Yoga", client.BusinessName)

	text, err = readResource(t, h, "crm://leads")
	require.NoError(t, err)
	var leads []LeadOutput
	require.NoError(t, json.Unmarshal([]byte(text), &leads))
	assert.Len(t, leads, 2)

	text, err = readResource(t, h, "crm://report")
	require.NoError(t, err)
	assert.Contains(t, text, "Old Town Books")

	_, err = readResource(t, h, "crm://clients/zzz")
	assert.Error(t, err)
	_, err = readResource(t, h, "crm://deals")
	assert.Error(t, err)
	_, err = readResource(t, h, "https://example.com")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	st, _ := setup(t)
	h := NewPromptHandlers(st)
	ctx := context.Background()

	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}

	res, err := get("client-summary", map[string]string{"client_id": "c1"})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Sunrise Yoga")
	assert.Contains(t, text, "₹500.00")

	res, err = get("goal-check", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "Q2 Revenue")

	res, err = get("pipeline-review", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "Green Eats")

	_, err = get("client-summary", nil)
	assert.Error(t, err)
	_, err = get("deal-analysis", nil)
	assert.Error(t, err)
}

func TestServerRegistersTools(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()

	server := NewServer(st, "test")
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_pipeline", "add_lead", "select_lead", "convert_lead", "record_payment", "complete_client",
		"set_goal", "get_metrics", "list_tasks", "create_task", "generate_onboarding_tasks",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "add_lead",
		Arguments: map[string]any{"business_name": "Harbor Dental"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	_, ok := st.FindLead("lead-1")
	assert.True(t, ok)
}
