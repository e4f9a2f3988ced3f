// ABOUTME: In-memory Remote and Cache fakes for store tests
// ABOUTME: Records calls and injects per-operation errors
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/agencycrm/api"
	"github.com/harperreed/agencycrm/models"
)

type fakeRemote struct {
	mu        sync.Mutex
	nextID    int
	leads     []models.Lead
	clients   []models.Client
	customers []models.Customer
	goals     []models.Goal
	tasks     []models.Task
	notes     []models.Note
	acts      []models.Activity

	failures map[string]error
	calls    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{failures: make(map[string]error)}
}

var errServer = &api.Error{StatusCode: 500, Kind: api.KindServer, Message: "boom"}

func notFound() error {
	return &api.Error{StatusCode: 404, Kind: api.KindNotFound, Message: "Not found"}
}

func (f *fakeRemote) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *fakeRemote) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// enter records the call and returns any injected failure. Caller holds f.mu.
func (f *fakeRemote) enter(op string) error {
	f.calls = append(f.calls, op)
	return f.failures[op]
}

func (f *fakeRemote) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func find[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

func (f *fakeRemote) ListLeads(_ context.Context) ([]models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListLeads"); err != nil {
		return nil, err
	}
	return append([]models.Lead(nil), f.leads...), nil
}

func (f *fakeRemote) CreateLead(_ context.Context, lead models.Lead) (models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateLead"); err != nil {
		return models.Lead{}, err
	}
	lead.ID = f.id("lead")
	f.leads = append(f.leads, lead)
	return lead, nil
}

func (f *fakeRemote) UpdateLead(_ context.Context, id string, lead models.Lead) (models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateLead"); err != nil {
		return models.Lead{}, err
	}
	i := find(f.leads, func(l models.Lead) bool { return l.ID == id })
	if i < 0 {
		return models.Lead{}, notFound()
	}
	lead.ID = id
	f.leads[i] = lead
	return lead, nil
}

func (f *fakeRemote) DeleteLead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteLead"); err != nil {
		return err
	}
	i := find(f.leads, func(l models.Lead) bool { return l.ID == id })
	if i < 0 {
		return notFound()
	}
	f.leads = append(f.leads[:i], f.leads[i+1:]...)
	return nil
}

func (f *fakeRemote) ListClients(_ context.Context) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListClients"); err != nil {
		return nil, err
	}
	return append([]models.Client(nil), f.clients...), nil
}

func (f *fakeRemote) CreateClient(_ context.Context, client models.Client) (models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateClient"); err != nil {
		return models.Client{}, err
	}
	if client.ID == "" {
		client.ID = f.id("client")
	}
	f.clients = append(f.clients, client)
	return client, nil
}

func (f *fakeRemote) UpdateClient(_ context.Context, id string, client models.Client) (models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateClient"); err != nil {
		return models.Client{}, err
	}
	i := find(f.clients, func(c models.Client) bool { return c.ID == id })
	if i < 0 {
		return models.Client{}, notFound()
	}
	client.ID = id
	f.clients[i] = client
	return client, nil
}

func (f *fakeRemote) DeleteClient(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteClient"); err != nil {
		return err
	}
	i := find(f.clients, func(c models.Client) bool { return c.ID == id })
	if i < 0 {
		return notFound()
	}
	f.clients = append(f.clients[:i], f.clients[i+1:]...)
	return nil
}

func (f *fakeRemote) ListCustomers(_ context.Context) ([]models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListCustomers"); err != nil {
		return nil, err
	}
	return append([]models.Customer(nil), f.customers...), nil
}

func (f *fakeRemote) CreateCustomer(_ context.Context, customer models.Customer) (models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateCustomer"); err != nil {
		return models.Customer{}, err
	}
	customer.ID = f.id("customer")
	f.customers = append(f.customers, customer)
	return customer, nil
}

func (f *fakeRemote) UpdateCustomer(_ context.Context, id string, customer models.Customer) (models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateCustomer"); err != nil {
		return models.Customer{}, err
	}
	i := find(f.customers, func(c models.Customer) bool { return c.ID == id })
	if i < 0 {
		return models.Customer{}, notFound()
	}
	customer.ID = id
	f.customers[i] = customer
	return customer, nil
}

func (f *fakeRemote) DeleteCustomer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteCustomer"); err != nil {
		return err
	}
	i := find(f.customers, func(c models.Customer) bool { return c.ID == id })
	if i < 0 {
		return notFound()
	}
	f.customers = append(f.customers[:i], f.customers[i+1:]...)
	return nil
}

func (f *fakeRemote) ListGoals(_ context.Context) ([]models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListGoals"); err != nil {
		return nil, err
	}
	return append([]models.Goal(nil), f.goals...), nil
}

func (f *fakeRemote) CreateGoal(_ context.Context, goal models.Goal) (models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateGoal"); err != nil {
		return models.Goal{}, err
	}
	goal.ID = f.id("goal")
	f.goals = append(f.goals, goal)
	return goal, nil
}

func (f *fakeRemote) UpdateGoal(_ context.Context, id string, goal models.Goal) (models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateGoal"); err != nil {
		return models.Goal{}, err
	}
	i := find(f.goals, func(g models.Goal) bool { return g.ID == id })
	if i < 0 {
		return models.Goal{}, notFound()
	}
	goal.ID = id
	f.goals[i] = goal
	return goal, nil
}

func (f *fakeRemote) ListTasks(_ context.Context) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListTasks"); err != nil {
		return nil, err
	}
	return append([]models.Task(nil), f.tasks...), nil
}

func (f *fakeRemote) CreateTask(_ context.Context, task models.Task) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateTask"); err != nil {
		return models.Task{}, err
	}
	task.ID = f.id("task")
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeRemote) UpdateTask(_ context.Context, id string, task models.Task) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateTask"); err != nil {
		return models.Task{}, err
	}
	i := find(f.tasks, func(t models.Task) bool { return t.ID == id })
	if i < 0 {
		return models.Task{}, notFound()
	}
	task.ID = id
	f.tasks[i] = task
	return task, nil
}

func (f *fakeRemote) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteTask"); err != nil {
		return err
	}
	i := find(f.tasks, func(t models.Task) bool { return t.ID == id })
	if i < 0 {
		return notFound()
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

func (f *fakeRemote) GenerateOnboardingTasks(_ context.Context, clientID, serviceType string) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GenerateOnboardingTasks"); err != nil {
		return nil, err
	}
	i := find(f.clients, func(c models.Client) bool { return c.ID == clientID })
	if i < 0 {
		return nil, notFound()
	}
	planned := models.PlanOnboarding(f.clients[i], serviceType)
	for j := range planned {
		planned[j].ID = f.id("task")
	}
	f.tasks = append(f.tasks, planned...)
	return planned, nil
}

func (f *fakeRemote) ListNotes(_ context.Context, filter models.NoteFilter) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListNotes"); err != nil {
		return nil, err
	}
	var out []models.Note
	for _, n := range f.notes {
		if filter.RelatedTo != "" && n.RelatedTo != filter.RelatedTo {
			continue
		}
		if filter.RelatedID != "" && n.RelatedID != filter.RelatedID {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeRemote) CreateNote(_ context.Context, note models.Note) (models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateNote"); err != nil {
		return models.Note{}, err
	}
	note.ID = f.id("note")
	note.CreatedAt = time.Date(2024, time.June, 1, 0, 0, f.nextID, 0, time.UTC)
	note.UpdatedAt = note.CreatedAt
	f.notes = append(f.notes, note)
	return note, nil
}

func (f *fakeRemote) UpdateNote(_ context.Context, id string, note models.Note) (models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateNote"); err != nil {
		return models.Note{}, err
	}
	i := find(f.notes, func(n models.Note) bool { return n.ID == id })
	if i < 0 {
		return models.Note{}, notFound()
	}
	note.ID = id
	f.notes[i] = note
	return note, nil
}

func (f *fakeRemote) DeleteNote(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteNote"); err != nil {
		return err
	}
	i := find(f.notes, func(n models.Note) bool { return n.ID == id })
	if i < 0 {
		return notFound()
	}
	f.notes = append(f.notes[:i], f.notes[i+1:]...)
	return nil
}

func (f *fakeRemote) ListActivities(_ context.Context, limit int) ([]models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListActivities"); err != nil {
		return nil, err
	}
	out := append([]models.Activity(nil), f.acts...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRemote) DeleteActivity(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteActivity"); err != nil {
		return err
	}
	i := find(f.acts, func(a models.Activity) bool { return a.ID == id })
	if i < 0 {
		return notFound()
	}
	f.acts = append(f.acts[:i], f.acts[i+1:]...)
	return nil
}

func (f *fakeRemote) Stats(_ context.Context) (models.RemoteStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Stats"); err != nil {
		return models.RemoteStats{}, err
	}
	return models.RemoteStats{TotalLeads: len(f.leads), ActiveProjects: len(f.clients)}, nil
}

type memCache struct {
	mu       sync.Mutex
	snapshot *models.Pipeline
	at       time.Time
	syncErrs []error
}

func (c *memCache) SaveSnapshot(_ context.Context, p models.Pipeline) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = &p
	c.at = time.Date(2024, time.June, 14, 9, 0, 0, 0, time.UTC)
	return nil
}

func (c *memCache) LoadSnapshot(_ context.Context) (*models.Pipeline, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return nil, time.Time{}, nil
	}
	p := *c.snapshot
	return &p, c.at, nil
}

func (c *memCache) RecordSyncError(_ context.Context, cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncErrs = append(c.syncErrs, cause)
	return nil
}
