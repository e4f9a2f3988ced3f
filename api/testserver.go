// ABOUTME: In-memory CRM backend served over httptest for view and session tests
// ABOUTME: Speaks the same snake_case wire format and error envelopes as the real server
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/agencycrm/models"
)

// TestToken is the bearer token the test server issues and accepts.
const TestToken = "test-token"

// TestServer fakes the REST backend. Seed it, point a Client at URL, and inspect its state afterwards.
type TestServer struct {
	*httptest.Server

	mu         sync.Mutex
	nextID     int
	leads      []models.Lead
	clients    []models.Client
	customers  []models.Customer
	goals      []models.Goal
	tasks      []models.Task
	notes      []models.Note
	activities []models.Activity

	failures map[string]int
	requests map[string]int
	now      func() time.Time
}

// NewTestServer starts a server that is closed when the test ends.
func NewTestServer(t testing.TB) *TestServer {
	s := &TestServer{
		failures: make(map[string]int),
		requests: make(map[string]int),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /tasks/generate-onboarding/{id}", s.handleOnboarding)

	register(s, mux, "leads", &s.leads, "lead",
		func(l *models.Lead) *string { return &l.ID },
		func(l models.Lead) wireLead { w := toWireLead(l); w.ID = l.ID; return w },
		fromWireLead, nil)
	register(s, mux, "clients", &s.clients, "client",
		func(c *models.Client) *string { return &c.ID },
		func(c models.Client) wireClient { w := toWireClient(c); w.ID = c.ID; return w },
		fromWireClient, nil)
	register(s, mux, "customers", &s.customers, "customer",
		func(c *models.Customer) *string { return &c.ID },
		func(c models.Customer) wireCustomer { w := toWireCustomer(c); w.ID = c.ID; return w },
		fromWireCustomer, nil)
	register(s, mux, "goals", &s.goals, "goal",
		func(g *models.Goal) *string { return &g.ID },
		func(g models.Goal) wireGoal { w := toWireGoal(g); w.ID = g.ID; return w },
		fromWireGoal, nil)
	register(s, mux, "tasks", &s.tasks, "task",
		func(t *models.Task) *string { return &t.ID },
		s.wireTask,
		func(w wireTask) models.Task {
			t := fromWireTask(w)
			if t.CreatedAt.IsZero() {
				t.CreatedAt = s.now().UTC()
			}
			return t
		}, nil)
	register(s, mux, "notes", &s.notes, "note",
		func(n *models.Note) *string { return &n.ID },
		func(n models.Note) wireNote {
			w := toWireNote(n)
			w.ID = n.ID
			w.CreatedAt = newWireTime(&n.CreatedAt)
			w.UpdatedAt = newWireTime(&n.UpdatedAt)
			return w
		},
		func(w wireNote) models.Note {
			n := fromWireNote(w)
			n.UpdatedAt = s.now().UTC()
			if n.CreatedAt.IsZero() {
				n.CreatedAt = n.UpdatedAt
			}
			return n
		},
		func(r *http.Request, n models.Note) bool {
			q := r.URL.Query()
			return (q.Get("related_to") == "" || q.Get("related_to") == n.RelatedTo) &&
				(q.Get("related_id") == "" || q.Get("related_id") == n.RelatedID)
		})
	register(s, mux, "activities", &s.activities, "activity",
		func(a *models.Activity) *string { return &a.ID },
		func(a models.Activity) wireActivity {
			return wireActivity{
				ID:           a.ID,
				ActivityType: a.ActivityType,
				EntityType:   a.EntityType,
				EntityID:     a.EntityID,
				EntityName:   a.EntityName,
				Description:  a.Description,
				Metadata:     nullable(a.Metadata),
				CreatedAt:    newWireTime(&a.CreatedAt),
			}
		},
		fromWireActivity, nil)

	s.Server = httptest.NewServer(s.middleware(mux))
	t.Cleanup(s.Close)
	return s
}

// APIClient returns a client already authenticated against the server.
func (s *TestServer) APIClient() *Client {
	return New(s.URL, WithToken(TestToken))
}

// Seed replaces the server's pipeline collections. Saved leads are stored with status saved.
func (s *TestServer) Seed(p models.Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(append([]models.Lead{}, p.Leads...), p.SavedLeads...)
	s.clients = append([]models.Client{}, p.Clients...)
	s.customers = append([]models.Customer{}, p.Customers...)
	s.goals = nil
	if p.Goal != nil {
		s.goals = append(s.goals, *p.Goal)
	}
	s.goals = append(s.goals, p.PreviousGoals...)
}

func (s *TestServer) SeedTasks(tasks ...models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, tasks...)
}

func (s *TestServer) SeedNotes(notes ...models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, notes...)
}

func (s *TestServer) SeedActivities(activities ...models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, activities...)
}

// Fail makes every request matching "METHOD /path" answer with status until cleared with status 0.
func (s *TestServer) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// Requests counts the requests received for "METHOD /path".
func (s *TestServer) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// Leads returns every lead the server holds, new and saved.
func (s *TestServer) Leads() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Lead(nil), s.leads...)
}

func (s *TestServer) Clients() []models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Client(nil), s.clients...)
}

func (s *TestServer) Customers() []models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Customer(nil), s.customers...)
}

func (s *TestServer) Goals() []models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Goal(nil), s.goals...)
}

func (s *TestServer) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Task(nil), s.tasks...)
}

func (s *TestServer) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.requests[key]++
		status := s.failures[key]
		s.mu.Unlock()

		if status != 0 {
			writeDetail(w, status, http.StatusText(status))
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/auth/") && r.Header.Get("Authorization") != "Bearer "+TestToken {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *TestServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("username") == "" {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": TestToken,
		"token_type":   "bearer",
	})
}

func (s *TestServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stats := wireStats{TotalLeads: len(s.leads), ActiveProjects: len(s.clients)}
	for _, c := range s.clients {
		stats.Revenue += c.PaymentCollected
		if !c.Deadline.IsZero() && c.Deadline.Before(now.Add(7*24*time.Hour)) {
			stats.Deadlines++
		}
	}
	for _, c := range s.customers {
		stats.Revenue += c.TotalPaid
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *TestServer) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	idx := -1
	for i := range s.clients {
		if s.clients[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Client not found")
		return
	}

	serviceType := r.URL.Query().Get("service_type")
	if serviceType == "" {
		serviceType = models.ServiceWebDesign
	}
	planned := models.PlanOnboarding(s.clients[idx], serviceType)
	out := make([]wireTask, 0, len(planned))
	for _, t := range planned {
		t.ID = s.id("task")
		t.CreatedAt = s.now().UTC()
		s.tasks = append(s.tasks, t)
		out = append(out, s.wireTask(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *TestServer) wireTask(t models.Task) wireTask {
	w := toWireTask(t)
	w.ID = t.ID
	w.CreatedAt = newWireTime(&t.CreatedAt)
	return w
}

// id returns the next server id. Caller holds s.mu.
func (s *TestServer) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// register wires list, create, update, and delete routes for one collection.
func register[M, W any](
	s *TestServer,
	mux *http.ServeMux,
	name string,
	items *[]M,
	prefix string,
	idOf func(*M) *string,
	toWire func(M) W,
	fromWire func(W) M,
	match func(*http.Request, M) bool,
) {
	find := func(id string) int {
		for i := range *items {
			if *idOf(&(*items)[i]) == id {
				return i
			}
		}
		return -1
	}

	mux.HandleFunc("GET /"+name, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		out := make([]W, 0, len(*items))
		for _, it := range *items {
			if match == nil || match(r, it) {
				out = append(out, toWire(it))
			}
		}
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit >= 0 && limit < len(out) {
			out = out[:limit]
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("POST /"+name, func(w http.ResponseWriter, r *http.Request) {
		var in W
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		m := fromWire(in)
		*idOf(&m) = s.id(prefix)
		*items = append(*items, m)
		writeJSON(w, http.StatusOK, toWire(m))
	})

	mux.HandleFunc("PATCH /"+name+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in W
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		id := r.PathValue("id")
		i := find(id)
		if i < 0 {
			writeDetail(w, http.StatusNotFound, "Not found")
			return
		}
		m := fromWire(in)
		*idOf(&m) = id
		(*items)[i] = m
		writeJSON(w, http.StatusOK, toWire(m))
	})

	mux.HandleFunc("DELETE /"+name+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := find(r.PathValue("id"))
		if i < 0 {
			writeDetail(w, http.StatusNotFound, "Not found")
			return
		}
		*items = append((*items)[:i], (*items)[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
