// ABOUTME: Data models for agency pipeline entities
// ABOUTME: Defines Lead, Client, Customer, Goal, Task, Note, and Activity structs
package models

import (
	"strings"
	"time"
)

type Lead struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName"`
	Contact      string `json:"contact"`
	Comment      string `json:"comment"`
	Status       string `json:"status"`
}

type Client struct {
	ID               string  `json:"id"`
	BusinessName     string  `json:"businessName"`
	BusinessType     string  `json:"businessType"`
	Contact          string  `json:"contact"`
	Onboarding       Date    `json:"onboarding"`
	Deadline         Date    `json:"deadline"`
	Delivery         string  `json:"delivery"`
	PaymentCollected float64 `json:"paymentCollected"`
	IsCompleted      bool    `json:"isCompleted"`

	// Technical specs
	DomainName      string `json:"domainName,omitempty"`
	HostingProvider string `json:"hostingProvider,omitempty"`
	CMSType         string `json:"cmsType,omitempty"`
	ProjectStage    string `json:"projectStage,omitempty"`
	MaintenancePlan bool   `json:"maintenancePlan"`
	RenewalDate     *Date  `json:"renewalDate,omitempty"`
}

type Customer struct {
	ID            string  `json:"id"`
	BusinessName  string  `json:"businessName"`
	Contact       string  `json:"contact,omitempty"`
	CompletedDate Date    `json:"completedDate"`
	TotalPaid     float64 `json:"totalPaid"`

	DomainName      string `json:"domainName,omitempty"`
	HostingProvider string `json:"hostingProvider,omitempty"`
	CMSType         string `json:"cmsType,omitempty"`
	MaintenancePlan bool   `json:"maintenancePlan"`
	RenewalDate     *Date  `json:"renewalDate,omitempty"`
}

type Goal struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	TargetAmount float64 `json:"targetAmount"`
	Deadline     Date    `json:"deadline"`
	DateStarted  Date    `json:"dateStarted"`
	DateAchieved *Date   `json:"dateAchieved,omitempty"`
	IsAchieved   bool    `json:"isAchieved"`
}

// DaysRemaining counts whole days until the deadline, never negative.
func (g Goal) DaysRemaining(now time.Time) int {
	left := g.Deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	days := left / (24 * time.Hour)
	if left%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}

type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	RelatedTo string    `json:"relatedTo"`
	RelatedID string    `json:"relatedId"`
	IsPinned  bool      `json:"isPinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteFilter narrows a note listing to one related entity. Empty fields are not sent.
type NoteFilter struct {
	RelatedTo string
	RelatedID string
}

type Activity struct {
	ID           string    `json:"id"`
	ActivityType string    `json:"activityType"`
	EntityType   string    `json:"entityType"`
	EntityID     string    `json:"entityId"`
	EntityName   string    `json:"entityName"`
	Description  string    `json:"description"`
	Metadata     string    `json:"metadata"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RemoteStats mirrors the server-side /stats summary.
type RemoteStats struct {
	TotalLeads     int     `json:"totalLeads"`
	ActiveProjects int     `json:"activeProjects"`
	Revenue        float64 `json:"revenue"`
	Deadlines      int     `json:"deadlines"`
}

// Pipeline is a point-in-time copy of the primary collections.
type Pipeline struct {
	Leads         []Lead
	SavedLeads    []Lead
	Clients       []Client
	Customers     []Customer
	Goal          *Goal
	PreviousGoals []Goal
}

// AllLeads returns new and saved leads in one slice, new first.
func (p Pipeline) AllLeads() []Lead {
	all := make([]Lead, 0, len(p.Leads)+len(p.SavedLeads))
	all = append(all, p.Leads...)
	return append(all, p.SavedLeads...)
}

// MatchesSearch reports whether the business name contains query, ignoring case.
func (l Lead) MatchesSearch(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.BusinessName), strings.ToLower(query))
}

// Lead statuses.
const (
	LeadStatusNew   = "new"
	LeadStatusSaved = "saved"
)

// Client defaults.
const (
	DefaultBusinessType = "Web Design"
	DeliveryInProgress  = "In Progress"
	DefaultGoalTitle    = "Revenue Goal"
	DefaultProjectDays  = 30
)

// Project stages.
const (
	StageDiscovery   = "Discovery"
	StageDesign      = "Design"
	StageDevelopment = "Development"
	StageUAT         = "UAT"
	StageLaunched    = "Launched"
)

// ProjectStages lists the stages in delivery order.
var ProjectStages = []string{StageDiscovery, StageDesign, StageDevelopment, StageUAT, StageLaunched}

// IsValidProjectStage reports whether s is a known project stage.
func IsValidProjectStage(s string) bool {
	for _, stage := range ProjectStages {
		if stage == s {
			return true
		}
	}
	return false
}

// Relation targets for tasks and notes.
const (
	RelatedGeneral = "general"
	RelatedClient  = "client"
	RelatedLead    = "lead"
)

// Activity types.
const (
	ActivityLeadCreated       = "lead_created"
	ActivityClientAdded       = "client_added"
	ActivityCustomerCompleted = "customer_completed"
	ActivityGoalAchieved      = "goal_achieved"
	ActivityTaskCompleted     = "task_completed"
)

// DefaultActivityMetadata is stored when an activity carries no metadata.
const DefaultActivityMetadata = "{}"
