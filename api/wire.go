// ABOUTME: Wire representations of API resources in snake_case
// ABOUTME: Maps between server payloads and application models, sending absent optionals as null
package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/harperreed/agencycrm/models"
)

type wireLead struct {
	ID           string `json:"id,omitempty"`
	BusinessName string `json:"business_name"`
	Contact      string `json:"contact"`
	Comment      string `json:"comment"`
	Status       string `json:"status"`
}

type wireClient struct {
	ID               string       `json:"id,omitempty"`
	BusinessName     string       `json:"business_name"`
	BusinessType     string       `json:"business_type"`
	Contact          string       `json:"contact"`
	Onboarding       models.Date  `json:"onboarding"`
	Deadline         models.Date  `json:"deadline"`
	Delivery         string       `json:"delivery"`
	PaymentCollected float64      `json:"payment_collected"`
	IsCompleted      bool         `json:"is_completed"`
	DomainName       *string      `json:"domain_name"`
	HostingProvider  *string      `json:"hosting_provider"`
	CMSType          *string      `json:"cms_type"`
	ProjectStage     *string      `json:"project_stage"`
	MaintenancePlan  bool         `json:"maintenance_plan"`
	RenewalDate      *models.Date `json:"renewal_date"`
}

type wireCustomer struct {
	ID              string       `json:"id,omitempty"`
	BusinessName    string       `json:"business_name"`
	Contact         *string      `json:"contact"`
	CompletedDate   models.Date  `json:"completed_date"`
	TotalPaid       float64      `json:"total_paid"`
	DomainName      *string      `json:"domain_name"`
	HostingProvider *string      `json:"hosting_provider"`
	CMSType         *string      `json:"cms_type"`
	MaintenancePlan bool         `json:"maintenance_plan"`
	RenewalDate     *models.Date `json:"renewal_date"`
}

type wireGoal struct {
	ID           string       `json:"id,omitempty"`
	Title        string       `json:"title"`
	TargetAmount float64      `json:"target_amount"`
	Deadline     models.Date  `json:"deadline"`
	DateStarted  models.Date  `json:"date_started"`
	DateAchieved *models.Date `json:"date_achieved"`
	IsAchieved   bool         `json:"is_achieved"`
}

type wireTask struct {
	ID           string       `json:"id,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	RelatedTo    string       `json:"related_to"`
	RelatedID    *string      `json:"related_id"`
	Priority     string       `json:"priority"`
	Status       string       `json:"status"`
	DueDate      *models.Date `json:"due_date"`
	CompletedAt  *wireTime    `json:"completed_at"`
	CreatedAt    *wireTime    `json:"created_at,omitempty"`
	TaskTemplate *string      `json:"task_template"`
	ServiceType  *string      `json:"service_type"`
	IsTemplate   bool         `json:"is_template"`
}

type wireNote struct {
	ID        string    `json:"id,omitempty"`
	Content   string    `json:"content"`
	RelatedTo string    `json:"related_to"`
	RelatedID string    `json:"related_id"`
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt *wireTime `json:"created_at,omitempty"`
	UpdatedAt *wireTime `json:"updated_at,omitempty"`
}

type wireActivity struct {
	ID           string    `json:"id"`
	ActivityType string    `json:"activity_type"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	EntityName   string    `json:"entity_name"`
	Description  string    `json:"description"`
	Metadata     *string   `json:"activity_metadata"`
	CreatedAt    *wireTime `json:"created_at"`
}

type wireStats struct {
	TotalLeads     int     `json:"total_leads"`
	ActiveProjects int     `json:"active_projects"`
	Revenue        float64 `json:"revenue"`
	Deadlines      int     `json:"deadlines"`
}

// wireTime accepts server timestamps with or without a zone offset.
type wireTime struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	models.DateLayout,
}

func (t wireTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func newWireTime(ts *time.Time) *wireTime {
	if ts == nil || ts.IsZero() {
		return nil
	}
	return &wireTime{*ts}
}

func (t *wireTime) value() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func (t *wireTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// nullable sends an empty string as null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toWireLead(l models.Lead) wireLead {
	status := l.Status
	if status == "" {
		status = models.LeadStatusNew
	}
	return wireLead{
		BusinessName: l.BusinessName,
		Contact:      l.Contact,
		Comment:      l.Comment,
		Status:       status,
	}
}

func fromWireLead(w wireLead) models.Lead {
	return models.Lead{
		ID:           w.ID,
		BusinessName: w.BusinessName,
		Contact:      w.Contact,
		Comment:      w.Comment,
		Status:       w.Status,
	}
}

func toWireClient(c models.Client) wireClient {
	return wireClient{
		BusinessName:     c.BusinessName,
		BusinessType:     c.BusinessType,
		Contact:          c.Contact,
		Onboarding:       c.Onboarding,
		Deadline:         c.Deadline,
		Delivery:         c.Delivery,
		PaymentCollected: c.PaymentCollected,
		IsCompleted:      c.IsCompleted,
		DomainName:       nullable(c.DomainName),
		HostingProvider:  nullable(c.HostingProvider),
		CMSType:          nullable(c.CMSType),
		ProjectStage:     nullable(c.ProjectStage),
		MaintenancePlan:  c.MaintenancePlan,
		RenewalDate:      c.RenewalDate,
	}
}

func fromWireClient(w wireClient) models.Client {
	return models.Client{
		ID:               w.ID,
		BusinessName:     w.BusinessName,
		BusinessType:     w.BusinessType,
		Contact:          w.Contact,
		Onboarding:       w.Onboarding,
		Deadline:         w.Deadline,
		Delivery:         w.Delivery,
		PaymentCollected: w.PaymentCollected,
		IsCompleted:      w.IsCompleted,
		DomainName:       deref(w.DomainName),
		HostingProvider:  deref(w.HostingProvider),
		CMSType:          deref(w.CMSType),
		ProjectStage:     deref(w.ProjectStage),
		MaintenancePlan:  w.MaintenancePlan,
		RenewalDate:      w.RenewalDate,
	}
}

func toWireCustomer(c models.Customer) wireCustomer {
	return wireCustomer{
		BusinessName:    c.BusinessName,
		Contact:         nullable(c.Contact),
		CompletedDate:   c.CompletedDate,
		TotalPaid:       c.TotalPaid,
		DomainName:      nullable(c.DomainName),
		HostingProvider: nullable(c.HostingProvider),
		CMSType:         nullable(c.CMSType),
		MaintenancePlan: c.MaintenancePlan,
		RenewalDate:     c.RenewalDate,
	}
}

func fromWireCustomer(w wireCustomer) models.Customer {
	return models.Customer{
		ID:              w.ID,
		BusinessName:    w.BusinessName,
		Contact:         deref(w.Contact),
		CompletedDate:   w.CompletedDate,
		TotalPaid:       w.TotalPaid,
		DomainName:      deref(w.DomainName),
		HostingProvider: deref(w.HostingProvider),
		CMSType:         deref(w.CMSType),
		MaintenancePlan: w.MaintenancePlan,
		RenewalDate:     w.RenewalDate,
	}
}

func toWireGoal(g models.Goal) wireGoal {
	title := g.Title
	if title == "" {
		title = models.DefaultGoalTitle
	}
	return wireGoal{
		Title:        title,
		TargetAmount: g.TargetAmount,
		Deadline:     g.Deadline,
		DateStarted:  g.DateStarted,
		DateAchieved: g.DateAchieved,
		IsAchieved:   g.IsAchieved,
	}
}

func fromWireGoal(w wireGoal) models.Goal {
	title := w.Title
	if title == "" {
		title = models.DefaultGoalTitle
	}
	return models.Goal{
		ID:           w.ID,
		Title:        title,
		TargetAmount: w.TargetAmount,
		Deadline:     w.Deadline,
		DateStarted:  w.DateStarted,
		DateAchieved: w.DateAchieved,
		IsAchieved:   w.IsAchieved,
	}
}

func toWireTask(t models.Task) wireTask {
	return wireTask{
		Title:        t.Title,
		Description:  t.Description,
		RelatedTo:    t.RelatedTo,
		RelatedID:    nullable(t.RelatedID),
		Priority:     t.Priority,
		Status:       t.Status,
		DueDate:      t.DueDate,
		CompletedAt:  newWireTime(t.CompletedAt),
		TaskTemplate: nullable(t.TaskTemplate),
		ServiceType:  nullable(t.ServiceType),
		IsTemplate:   t.IsTemplate,
	}
}

func fromWireTask(w wireTask) models.Task {
	return models.Task{
		ID:           w.ID,
		Title:        w.Title,
		Description:  w.Description,
		RelatedTo:    w.RelatedTo,
		RelatedID:    deref(w.RelatedID),
		Priority:     w.Priority,
		Status:       w.Status,
		DueDate:      w.DueDate,
		CompletedAt:  w.CompletedAt.ptr(),
		CreatedAt:    w.CreatedAt.value(),
		TaskTemplate: deref(w.TaskTemplate),
		ServiceType:  deref(w.ServiceType),
		IsTemplate:   w.IsTemplate,
	}
}

func toWireNote(n models.Note) wireNote {
	return wireNote{
		Content:   n.Content,
		RelatedTo: n.RelatedTo,
		RelatedID: n.RelatedID,
		IsPinned:  n.IsPinned,
	}
}

func fromWireNote(w wireNote) models.Note {
	return models.Note{
		ID:        w.ID,
		Content:   w.Content,
		RelatedTo: w.RelatedTo,
		RelatedID: w.RelatedID,
		IsPinned:  w.IsPinned,
		CreatedAt: w.CreatedAt.value(),
		UpdatedAt: w.UpdatedAt.value(),
	}
}

func fromWireActivity(w wireActivity) models.Activity {
	metadata := deref(w.Metadata)
	if metadata == "" {
		metadata = models.DefaultActivityMetadata
	}
	return models.Activity{
		ID:           w.ID,
		ActivityType: w.ActivityType,
		EntityType:   w.EntityType,
		EntityID:     w.EntityID,
		EntityName:   w.EntityName,
		Description:  w.Description,
		Metadata:     metadata,
		CreatedAt:    w.CreatedAt.value(),
	}
}

func mapAll[W any, M any](in []W, fn func(W) M) []M {
	out := make([]M, 0, len(in))
	for _, w := range in {
		out = append(out, fn(w))
	}
	return out
}
