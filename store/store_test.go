// ABOUTME: Tests for the pipeline store transitions and recovery rules
// ABOUTME: Drives the store against an in-memory fake of the remote API
package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agencycrm/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var start = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T, remote *fakeRemote, opts ...Option) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{now: start}
	ids := 0
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			ids++
			return "draft-" + string(rune('a'+ids-1))
		}),
	}
	s := New(remote, append(base, opts...)...)
	require.NoError(t, s.Load(context.Background()))
	return s, clock
}

func seeded() *fakeRemote {
	f := newFakeRemote()
	f.leads = []models.Lead{
		{ID: "l1", BusinessName: "TechNova Solutions", Contact: "+91 98765 43210", Status: models.LeadStatusNew},
		{ID: "l2", BusinessName: "Apex Marketing", Contact: "+91 87654 32109", Comment: "Interested in SEO", Status: models.LeadStatusNew},
		{ID: "l3", BusinessName: "Green Eats", Comment: "Needs new website", Status: models.LeadStatusSaved},
	}
	f.clients = []models.Client{{
		ID:           "c1",
		BusinessName: "Swift Logistics",
		BusinessType: "Logistics",
		Contact:      "swift@example.test",
		Onboarding:   models.NewDate(2024, time.June, 1),
		Deadline:     models.NewDate(2024, time.June, 20),
		Delivery:     models.DeliveryInProgress,
		DomainName:   "swift.test",
		CMSType:      "WordPress",
	}}
	return f
}

func TestLoadSplitsLeadsAndGoals(t *testing.T) {
	f := seeded()
	f.goals = []models.Goal{
		{ID: "g0", TargetAmount: 20000, IsAchieved: true},
		{ID: "g1", TargetAmount: 50000},
		{ID: "g2", TargetAmount: 90000},
	}
	s, _ := setup(t, f)

	snap := s.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Len(t, snap.Leads, 2)
	assert.Len(t, snap.SavedLeads, 1)
	require.NotNil(t, snap.Goal)
	assert.Equal(t, "g1", snap.Goal.ID)
	require.Len(t, snap.PreviousGoals, 2)
	assert.Equal(t, "g0", snap.PreviousGoals[0].ID)
	assert.Equal(t, "g2", snap.PreviousGoals[1].ID)
}

func TestLoadFailureRaisesError(t *testing.T) {
	f := seeded()
	f.failOn("ListClients", errServer)

	s := New(f)
	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load data")

	notice := s.CurrentNotice()
	require.NotNil(t, notice)
	assert.Equal(t, LevelError, notice.Level)
}

func TestSelectLead(t *testing.T) {
	s, _ := setup(t, seeded())

	saved, err := s.SelectLead(context.Background(), "l2")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Leads, 1)
	assert.Equal(t, "l1", snap.Leads[0].ID)
	require.Len(t, snap.SavedLeads, 2)

	got := snap.SavedLeads[1]
	assert.Equal(t, "l2", got.ID)
	assert.Equal(t, models.LeadStatusSaved, got.Status)
	assert.Equal(t, "Apex Marketing", got.BusinessName)
	assert.Equal(t, "+91 87654 32109", got.Contact)
	assert.Equal(t, "Interested in SEO", got.Comment)
	assert.Equal(t, got, saved)
}

func TestSelectLeadUnknown(t *testing.T) {
	s, _ := setup(t, seeded())

	_, err := s.SelectLead(context.Background(), "l3")
	assert.ErrorIs(t, err, ErrUnknownLead)
}

func TestSelectLeadNotFoundRecovers(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	f.mu.Lock()
	f.leads = f.leads[1:]
	f.mu.Unlock()

	_, err := s.SelectLead(context.Background(), "l1")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Leads, 1)
	assert.Equal(t, "l2", snap.Leads[0].ID)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelInfo, snap.Notice.Level)
	assert.Equal(t, 2, f.called("ListLeads"))
}

func TestSelectLeadGenericFailureKeepsState(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)
	f.failOn("UpdateLead", errServer)

	_, err := s.SelectLead(context.Background(), "l1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save lead")

	snap := s.Snapshot()
	assert.Len(t, snap.Leads, 2)
	assert.Len(t, snap.SavedLeads, 1)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelError, snap.Notice.Level)
	assert.Equal(t, "Failed to save lead", snap.Notice.Message)
}

func TestSaveAllLeads(t *testing.T) {
	f := seeded()
	for i := range 10 {
		f.leads = append(f.leads, models.Lead{ID: "bulk-" + string(rune('a'+i)), BusinessName: "Bulk", Status: models.LeadStatusNew})
	}
	s, _ := setup(t, f, WithBulkConcurrency(3))

	result := s.SaveAllLeads(context.Background())
	assert.Equal(t, BulkResult{Succeeded: 12, Failed: 0}, result)

	snap := s.Snapshot()
	assert.Empty(t, snap.Leads)
	assert.Len(t, snap.SavedLeads, 13)
	for _, l := range snap.SavedLeads {
		assert.Equal(t, models.LeadStatusSaved, l.Status)
	}
}

func TestSaveAllLeadsPartialFailure(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	f.mu.Lock()
	f.leads = f.leads[1:]
	f.mu.Unlock()

	result := s.SaveAllLeads(context.Background())
	assert.Equal(t, BulkResult{Succeeded: 1, Failed: 1}, result)

	snap := s.Snapshot()
	require.Len(t, snap.Leads, 1)
	assert.Equal(t, "l1", snap.Leads[0].ID)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelWarning, snap.Notice.Level)
	assert.Equal(t, "Saved 1 leads, 1 failed", snap.Notice.Message)
}

func TestAddAndImportLeads(t *testing.T) {
	s, _ := setup(t, seeded())

	_, err := s.AddLead(context.Background(), "  ", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	lead, err := s.AddLead(context.Background(), "Bright Dental", "555", "")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	result := s.ImportLeads(context.Background(), []models.Lead{
		{BusinessName: "Alpha"},
		{BusinessName: ""},
		{BusinessName: "Beta", Contact: "b@example.test", Comment: "warm"},
	})
	assert.Equal(t, BulkResult{Succeeded: 2}, result)

	snap := s.Snapshot()
	require.Len(t, snap.Leads, 5)
	assert.Equal(t, "Bright Dental", snap.Leads[2].BusinessName)
	assert.Equal(t, "Alpha", snap.Leads[3].BusinessName)
	assert.Equal(t, "Beta", snap.Leads[4].BusinessName)
	assert.Equal(t, "warm", snap.Leads[4].Comment)
}

func TestUpdateLeadComment(t *testing.T) {
	s, _ := setup(t, seeded())

	_, err := s.UpdateLeadComment(context.Background(), "l1", "Call back Monday")
	require.NoError(t, err)

	lead, ok := s.FindLead("l1")
	require.True(t, ok)
	assert.Equal(t, "Call back Monday", lead.Comment)

	leads, saved := s.SearchLeads("GREEN")
	assert.Empty(t, leads)
	require.Len(t, saved, 1)
	assert.Equal(t, "l3", saved[0].ID)
}

func TestConvertToClient(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	client, err := s.ConvertToClient(context.Background(), "l3", ConvertInput{})
	require.NoError(t, err)

	assert.NotEqual(t, "l3", client.ID)
	assert.Equal(t, "draft-a", client.ID)
	assert.Equal(t, "Green Eats", client.BusinessName)
	assert.Equal(t, models.DefaultBusinessType, client.BusinessType)
	assert.Equal(t, models.NewDate(2024, time.June, 15), client.Onboarding)
	assert.Equal(t, models.NewDate(2024, time.July, 15), client.Deadline)
	assert.Equal(t, models.DeliveryInProgress, client.Delivery)
	assert.Equal(t, 0.0, client.PaymentCollected)
	assert.False(t, client.IsCompleted)

	snap := s.Snapshot()
	assert.Empty(t, snap.SavedLeads)
	assert.Len(t, snap.Clients, 2)
	assert.Equal(t, 1, f.called("DeleteLead"))
	assert.Equal(t, 1, f.called("CreateClient"))
}

func TestConvertToClientExplicitDatesAndSpecs(t *testing.T) {
	s, _ := setup(t, seeded())

	startDate := models.NewDate(2024, time.July, 1)
	finish := models.NewDate(2024, time.August, 31)
	renewal := models.NewDate(2025, time.July, 1)
	client, err := s.ConvertToClient(context.Background(), "l3", ConvertInput{
		Start:           &startDate,
		Finish:          &finish,
		BusinessType:    "Restaurant",
		DomainName:      " greeneats.test ",
		HostingProvider: "Vercel",
		CMSType:         "Shopify",
		ProjectStage:    models.StageDesign,
		MaintenancePlan: true,
		RenewalDate:     &renewal,
	})
	require.NoError(t, err)

	assert.Equal(t, startDate, client.Onboarding)
	assert.Equal(t, finish, client.Deadline)
	assert.Equal(t, "Restaurant", client.BusinessType)
	assert.Equal(t, "greeneats.test", client.DomainName)
	assert.Equal(t, models.StageDesign, client.ProjectStage)
	assert.True(t, client.MaintenancePlan)
	require.NotNil(t, client.RenewalDate)
	assert.Equal(t, renewal, *client.RenewalDate)
}

func TestConvertToClientRequiresSavedLead(t *testing.T) {
	tests := []struct {
		name    string
		leadID  string
		wantErr error
	}{
		{"new lead", "l1", ErrLeadNotSaved},
		{"unknown lead", "missing", ErrUnknownLead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := seeded()
			s, _ := setup(t, f)

			_, err := s.ConvertToClient(context.Background(), tt.leadID, ConvertInput{})
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 0, f.called("DeleteLead"))
			assert.Equal(t, 0, f.called("CreateClient"))
			snap := s.Snapshot()
			assert.Len(t, snap.Leads, 2)
			assert.Len(t, snap.SavedLeads, 1)
			assert.Len(t, snap.Clients, 1)
		})
	}
}

func TestConvertToClientLeadAlreadyGone(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	f.mu.Lock()
	f.leads = f.leads[:2]
	f.mu.Unlock()

	client, err := s.ConvertToClient(context.Background(), "l3", ConvertInput{})
	require.NoError(t, err)
	assert.Empty(t, client.ID)

	assert.Equal(t, 0, f.called("CreateClient"))
	snap := s.Snapshot()
	assert.Empty(t, snap.SavedLeads)
	assert.Len(t, snap.Clients, 1)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelInfo, snap.Notice.Level)
}

func TestConvertToClientCreateFails(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)
	f.failOn("CreateClient", errServer)

	_, err := s.ConvertToClient(context.Background(), "l3", ConvertInput{})
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Empty(t, snap.SavedLeads)
	assert.Len(t, snap.Clients, 1)
}

func TestUpdatePayment(t *testing.T) {
	s, _ := setup(t, seeded())

	client, err := s.UpdatePayment(context.Background(), "c1", 1234.567)
	require.NoError(t, err)
	assert.Equal(t, 1234.57, client.PaymentCollected)

	client, err = s.UpdatePayment(context.Background(), "c1", 0.1)
	require.NoError(t, err)
	assert.Equal(t, 1234.67, client.PaymentCollected)

	_, err = s.UpdatePayment(context.Background(), "nope", 10)
	assert.ErrorIs(t, err, ErrUnknownClient)
}

func TestUpdatePaymentAppliesOptimistically(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	var seen []float64
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		for _, c := range snap.Clients {
			if c.ID == "c1" {
				seen = append(seen, c.PaymentCollected)
			}
		}
	})
	defer unsubscribe()

	_, err := s.UpdatePayment(context.Background(), "c1", 500)
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, 500.0, seen[0])
}

func TestUpdatePaymentFailureKeepsTentativeValue(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)
	f.failOn("UpdateClient", errServer)

	_, err := s.UpdatePayment(context.Background(), "c1", 250)
	require.Error(t, err)

	client, ok := s.FindClient("c1")
	require.True(t, ok)
	assert.Equal(t, 250.0, client.PaymentCollected)
	assert.Equal(t, "Failed to update payment", s.CurrentNotice().Message)
}

func TestUpdatePaymentFailureWithRollback(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f, WithRollbackOnPaymentError(true))
	f.failOn("UpdateClient", errServer)

	_, err := s.UpdatePayment(context.Background(), "c1", 250)
	require.Error(t, err)

	client, ok := s.FindClient("c1")
	require.True(t, ok)
	assert.Equal(t, 0.0, client.PaymentCollected)
}

func TestUpdatePaymentClientGone(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	f.mu.Lock()
	f.clients = nil
	f.mu.Unlock()

	_, err := s.UpdatePayment(context.Background(), "c1", 100)
	require.NoError(t, err)
	_, ok := s.FindClient("c1")
	assert.False(t, ok)
	assert.Equal(t, LevelInfo, s.CurrentNotice().Level)
}

func TestMarkClientCompleted(t *testing.T) {
	f := seeded()
	f.customers = []models.Customer{{ID: "old", BusinessName: "Earlier"}}
	renewal := models.NewDate(2025, time.June, 1)
	f.clients[0].RenewalDate = &renewal
	f.clients[0].MaintenancePlan = true
	s, _ := setup(t, f)

	_, err := s.UpdatePayment(context.Background(), "c1", 4200)
	require.NoError(t, err)

	customer, err := s.MarkClientCompleted(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "Swift Logistics", customer.BusinessName)
	assert.Equal(t, "swift@example.test", customer.Contact)
	assert.Equal(t, 4200.0, customer.TotalPaid)
	assert.Equal(t, models.NewDate(2024, time.June, 20), customer.CompletedDate)
	assert.Equal(t, "swift.test", customer.DomainName)
	assert.Equal(t, "WordPress", customer.CMSType)
	assert.True(t, customer.MaintenancePlan)
	require.NotNil(t, customer.RenewalDate)
	assert.Equal(t, renewal, *customer.RenewalDate)

	snap := s.Snapshot()
	assert.Empty(t, snap.Clients)
	require.Len(t, snap.Customers, 2)
	assert.Equal(t, customer.ID, snap.Customers[0].ID)
	assert.Equal(t, "old", snap.Customers[1].ID)
}

func TestMarkClientCompletedAlreadyGone(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	f.mu.Lock()
	f.clients = nil
	f.mu.Unlock()

	_, err := s.MarkClientCompleted(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.called("CreateCustomer"))
	assert.Empty(t, s.Snapshot().Clients)
}

func TestDeleteOperations(t *testing.T) {
	f := seeded()
	f.customers = []models.Customer{{ID: "cu1", BusinessName: "Done Co"}}
	s, _ := setup(t, f)
	ctx := context.Background()

	require.NoError(t, s.DeleteLead(ctx, "l1"))
	require.NoError(t, s.DeleteLead(ctx, "l3"))
	require.NoError(t, s.DeleteClient(ctx, "c1"))
	require.NoError(t, s.DeleteCustomer(ctx, "cu1"))
	assert.ErrorIs(t, s.DeleteLead(ctx, "l1"), ErrUnknownLead)
	assert.ErrorIs(t, s.DeleteClient(ctx, "c1"), ErrUnknownClient)
	assert.ErrorIs(t, s.DeleteCustomer(ctx, "cu1"), ErrUnknownCustomer)

	snap := s.Snapshot()
	assert.Len(t, snap.Leads, 1)
	assert.Empty(t, snap.SavedLeads)
	assert.Empty(t, snap.Clients)
	assert.Empty(t, snap.Customers)
}

func TestUpdateCustomer(t *testing.T) {
	f := seeded()
	f.customers = []models.Customer{{ID: "cu1", BusinessName: "Done Co", TotalPaid: 100}}
	s, _ := setup(t, f)

	customer, ok := s.FindCustomer("cu1")
	require.True(t, ok)
	customer.HostingProvider = "Netlify"

	updated, err := s.UpdateCustomer(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, "Netlify", updated.HostingProvider)
	assert.Equal(t, "Netlify", s.Snapshot().Customers[0].HostingProvider)
}

func TestNoticeExpiresAndIsSuperseded(t *testing.T) {
	s, clock := setup(t, seeded())

	s.Notify(LevelInfo, "first")
	clock.Advance(3 * time.Second)
	s.Notify(LevelError, "second")

	notice := s.CurrentNotice()
	require.NotNil(t, notice)
	assert.Equal(t, "second", notice.Message)

	clock.Advance(4 * time.Second)
	assert.NotNil(t, s.CurrentNotice())

	clock.Advance(time.Second)
	assert.Nil(t, s.CurrentNotice())

	s.Notify(LevelWarning, "third")
	s.DismissNotice()
	assert.Nil(t, s.CurrentNotice())
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, _ := setup(t, seeded())

	snap := s.Snapshot()
	snap.Leads[0].BusinessName = "mutated"
	snap.Clients[0].PaymentCollected = 99

	fresh := s.Snapshot()
	assert.Equal(t, "TechNova Solutions", fresh.Leads[0].BusinessName)
	assert.Equal(t, 0.0, fresh.Clients[0].PaymentCollected)
}

func TestMetricsTrackMutations(t *testing.T) {
	s, _ := setup(t, seeded())

	before := s.Metrics()
	assert.Equal(t, 0.0, before.TotalRevenue)
	assert.Equal(t, 3, before.Stats.TotalLeads)

	_, err := s.UpdatePayment(context.Background(), "c1", 1500)
	require.NoError(t, err)

	after := s.Metrics()
	assert.Equal(t, 1500.0, after.TotalRevenue)
	assert.Equal(t, 1500.0, after.AvgProjectValue)
}

func TestUnsubscribe(t *testing.T) {
	s, _ := setup(t, seeded())

	calls := 0
	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })
	s.Notify(LevelInfo, "one")
	unsubscribe()
	s.Notify(LevelInfo, "two")
	assert.Equal(t, 1, calls)
}

func TestReloadIsFullRefresh(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	f.mu.Lock()
	f.leads = append(f.leads, models.Lead{ID: "l9", BusinessName: "Late Arrival", Status: models.LeadStatusNew})
	f.mu.Unlock()

	require.NoError(t, s.Reload(context.Background()))
	assert.Len(t, s.Snapshot().Leads, 3)
	assert.Equal(t, 2, f.called("ListCustomers"))
}

func TestOfflineFallback(t *testing.T) {
	f := seeded()
	cache := &memCache{}
	s, _ := setup(t, f, WithCache(cache))
	require.NotNil(t, cache.snapshot)

	f.failOn("ListLeads", errServer)
	require.NoError(t, s.Reload(context.Background()))

	snap := s.Snapshot()
	assert.True(t, snap.Offline)
	assert.Len(t, snap.Leads, 2)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelWarning, snap.Notice.Level)
	require.Len(t, cache.syncErrs, 1)
	assert.True(t, errors.Is(cache.syncErrs[0], errServer))
}

func TestLoadOffline(t *testing.T) {
	cache := &memCache{}
	s := New(newFakeRemote(), WithCache(cache))
	assert.Error(t, s.LoadOffline(context.Background()))

	require.NoError(t, cache.SaveSnapshot(context.Background(), models.Pipeline{Leads: []models.Lead{{ID: "x"}}}))
	require.NoError(t, s.LoadOffline(context.Background()))
	snap := s.Snapshot()
	assert.True(t, snap.Offline)
	assert.Len(t, snap.Leads, 1)
}
