// ABOUTME: Web UI server with embedded templates
// ABOUTME: Serves the pipeline pages, downloads, and form actions at localhost:8080
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/report"
	"github.com/harperreed/agencycrm/store"
	"github.com/harperreed/agencycrm/viz"
)

//go:embed templates/*
var templatesFS embed.FS

var pages = []string{"dashboard", "leads", "clients", "customers", "goal", "tasks", "activity"}

type Server struct {
	st    *store.Store
	log   zerolog.Logger
	pages map[string]*template.Template
	mux   *http.ServeMux
}

func NewServer(st *store.Store, log zerolog.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"money":   metrics.FormatMoney,
		"percent": metrics.FormatPercent,
		"list":    func(v ...string) []string { return v },
	}

	s := &Server{
		st:    st,
		log:   log,
		pages: make(map[string]*template.Template, len(pages)),
		mux:   http.NewServeMux(),
	}
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcMap).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		s.pages[page] = tmpl
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleDashboard)
	s.mux.HandleFunc("GET /leads", s.handleLeads)
	s.mux.HandleFunc("GET /clients", s.handleClients)
	s.mux.HandleFunc("GET /customers", s.handleCustomers)
	s.mux.HandleFunc("GET /goal", s.handleGoal)
	s.mux.HandleFunc("GET /tasks", s.handleTasks)
	s.mux.HandleFunc("GET /activity", s.handleActivity)
	s.mux.HandleFunc("GET /graph", s.handleGraph)

	s.mux.HandleFunc("GET /export/"+report.ReportFileName, s.handleExportReport)
	s.mux.HandleFunc("GET /export/"+report.CustomersFileName, s.handleExportCustomers)
	s.mux.HandleFunc("GET /export/customers/{file}", s.handleExportCustomer)

	s.mux.HandleFunc("POST /leads", s.handleAddLead)
	s.mux.HandleFunc("POST /leads/{id}/select", s.handleSelectLead)
	s.mux.HandleFunc("POST /leads/{id}/convert", s.handleConvertLead)
	s.mux.HandleFunc("POST /clients/{id}/payment", s.handlePayment)
	s.mux.HandleFunc("POST /clients/{id}/complete", s.handleComplete)
	s.mux.HandleFunc("POST /goal", s.handleSetGoal)
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msgf("Starting web server at http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// page is the data every template receives.
type page struct {
	Title   string
	Active  string
	Notice  *store.Notice
	Offline bool
	Cached  string
	Data    any
}

func (s *Server) render(w http.ResponseWriter, name, title string, data any) {
	snap := s.st.Snapshot()
	p := page{
		Title:   title,
		Active:  name,
		Notice:  snap.Notice,
		Offline: snap.Offline,
		Data:    data,
	}
	if snap.Offline && !snap.CachedAt.IsZero() {
		p.Cached = snap.CachedAt.Local().Format("2006-01-02 15:04")
	}

	tmpl, ok := s.pages[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, p); err != nil {
		s.log.Error().Err(err).Str("page", name).Msg("template error")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Metrics metrics.Dashboard
		Stages  []viz.StageStats
	}{
		Metrics: s.st.Metrics(),
		Stages:  viz.Stages(s.st.Pipeline()),
	}
	s.render(w, "dashboard", "Dashboard", data)
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	leads, saved := s.st.SearchLeads(query)
	data := struct {
		Query      string
		Leads      []models.Lead
		SavedLeads []models.Lead
	}{query, leads, saved}
	s.render(w, "leads", "Leads", data)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	s.render(w, "clients", "Clients", s.st.Pipeline().Clients)
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	s.render(w, "customers", "Customers", s.st.Pipeline().Customers)
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	p := s.st.Pipeline()
	data := struct {
		Metrics       metrics.Dashboard
		PreviousGoals []models.Goal
	}{s.st.Metrics(), p.PreviousGoals}
	s.render(w, "goal", "Goal", data)
}

type taskView struct {
	models.Task
	Due     string
	Overdue bool
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	priority := r.URL.Query().Get("priority")
	if status != "" && status != "all" && !models.IsValidTaskStatus(status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	if priority != "" && priority != "all" && !models.IsValidPriority(priority) {
		http.Error(w, "Invalid priority", http.StatusBadRequest)
		return
	}

	if _, err := s.st.LoadTasks(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("showing previously loaded tasks")
	}

	now := s.st.Now()
	var views []taskView
	for _, t := range s.st.Tasks(status, priority) {
		v := taskView{Task: t, Overdue: t.IsOverdue(now)}
		if t.DueDate != nil {
			v.Due = t.DueDate.String()
		}
		views = append(views, v)
	}

	data := struct {
		Status   string
		Priority string
		Tasks    []taskView
	}{status, priority, views}
	s.render(w, "tasks", "Tasks", data)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	activities, err := s.st.LoadActivities(r.Context(), 0)
	if err != nil {
		activities = s.st.Snapshot().Activities
	}
	s.render(w, "activity", "Activity", activities)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	detailed := r.URL.Query().Get("clients") == "1"
	dot, err := viz.GeneratePipelineGraph(r.Context(), s.st.Pipeline(), detailed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write([]byte(dot))
}

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	attachment(w, "application/json", report.ReportFileName)
	if err := report.WriteJSON(w, s.st.Pipeline()); err != nil {
		s.log.Error().Err(err).Msg("report export failed")
	}
}

func (s *Server) handleExportCustomers(w http.ResponseWriter, r *http.Request) {
	attachment(w, "text/csv", report.CustomersFileName)
	if err := report.WriteCustomersCSV(w, s.st.Pipeline().Customers); err != nil {
		s.log.Error().Err(err).Msg("customer export failed")
	}
}

func (s *Server) handleExportCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("file"), ".csv")
	if !ok {
		http.NotFound(w, r)
		return
	}
	customer, found := s.st.FindCustomer(id)
	if !found {
		http.Error(w, "Customer not found", http.StatusNotFound)
		return
	}
	attachment(w, "text/csv", report.CustomerFileName(customer))
	if err := report.WriteCustomerCSV(w, customer); err != nil {
		s.log.Error().Err(err).Str("customer_id", id).Msg("customer export failed")
	}
}

// fail maps a store error to a status. Remote failures already raised a notice.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, back string, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrUnknownLead), errors.Is(err, store.ErrUnknownClient),
		errors.Is(err, store.ErrUnknownCustomer), errors.Is(err, store.ErrNoGoal):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrLeadNotSaved):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("action failed")
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func (s *Server) handleAddLead(w http.ResponseWriter, r *http.Request) {
	_, err := s.st.AddLead(r.Context(), r.FormValue("business_name"), r.FormValue("contact"), r.FormValue("comment"))
	if err != nil {
		s.fail(w, r, "/leads", err)
		return
	}
	http.Redirect(w, r, "/leads", http.StatusSeeOther)
}

func (s *Server) handleSelectLead(w http.ResponseWriter, r *http.Request) {
	if _, err := s.st.SelectLead(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "/leads", err)
		return
	}
	http.Redirect(w, r, "/leads", http.StatusSeeOther)
}

func formDate(r *http.Request, field string) (*models.Date, error) {
	d, err := models.ParseDate(r.FormValue(field))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", store.ErrInvalidInput, field, err)
	}
	return d.Ptr(), nil
}

func (s *Server) handleConvertLead(w http.ResponseWriter, r *http.Request) {
	in := store.ConvertInput{
		BusinessType:    r.FormValue("business_type"),
		DomainName:      r.FormValue("domain_name"),
		HostingProvider: r.FormValue("hosting_provider"),
		CMSType:         r.FormValue("cms_type"),
		ProjectStage:    r.FormValue("project_stage"),
		MaintenancePlan: r.FormValue("maintenance_plan") == "on",
	}
	if in.ProjectStage != "" && !models.IsValidProjectStage(in.ProjectStage) {
		http.Error(w, fmt.Sprintf("Unknown project stage %q", in.ProjectStage), http.StatusBadRequest)
		return
	}

	var err error
	for field, dst := range map[string]**models.Date{"start": &in.Start, "finish": &in.Finish, "renewal_date": &in.RenewalDate} {
		if *dst, err = formDate(r, field); err != nil {
			s.fail(w, r, "/leads", err)
			return
		}
	}

	if _, err := s.st.ConvertToClient(r.Context(), r.PathValue("id"), in); err != nil {
		s.fail(w, r, "/leads", err)
		return
	}
	http.Redirect(w, r, "/clients", http.StatusSeeOther)
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("amount")), 64)
	if err != nil {
		http.Error(w, "Amount must be a number", http.StatusBadRequest)
		return
	}
	if err := store.ValidatePaymentAmount(amount); err != nil {
		s.fail(w, r, "/clients", err)
		return
	}
	if _, err := s.st.UpdatePayment(r.Context(), r.PathValue("id"), amount); err != nil {
		s.fail(w, r, "/clients", err)
		return
	}
	// The web UI has no overlay; the goal page shows the achievement instead.
	if s.st.Celebrating() {
		s.st.DismissCelebration()
		if g := s.st.Pipeline().Goal; g != nil {
			s.st.Notify(store.LevelInfo, fmt.Sprintf("🎉 Goal achieved: %s", g.Title))
		}
		http.Redirect(w, r, "/goal", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/clients", http.StatusSeeOther)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	if _, err := s.st.MarkClientCompleted(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "/clients", err)
		return
	}
	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	target, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("target_amount")), 64)
	if err != nil {
		http.Error(w, "Target must be a number", http.StatusBadRequest)
		return
	}
	deadline, err := models.ParseDate(r.FormValue("deadline"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in := store.GoalInput{Title: r.FormValue("title"), TargetAmount: target, Deadline: deadline}
	if err := in.Validate(); err != nil {
		s.fail(w, r, "/goal", err)
		return
	}
	if _, err := s.st.UpdateGoal(r.Context(), in); err != nil {
		s.fail(w, r, "/goal", err)
		return
	}
	http.Redirect(w, r, "/goal", http.StatusSeeOther)
}
