// ABOUTME: Onboarding task templates per service type
// ABOUTME: Mirrors the checklist the API generates for newly converted clients
package models

// Service types accepted by the onboarding generator.
const (
	ServiceWebDesign       = "web_design"
	ServiceFullDevelopment = "full_development"
	ServiceSEO             = "seo"
	ServiceMaintenance     = "maintenance"
	ServiceBranding        = "branding"
)

// OnboardingTemplate is placed on the task list relative to the onboarding date.
type OnboardingTemplate struct {
	Title        string
	Description  string
	Priority     string
	DaysUntilDue int
}

// OnboardingTemplateName tags generated tasks.
const OnboardingTemplateName = "onboarding"

var baseChecklist = []OnboardingTemplate{
	{"Send Contract", "Send the service agreement with scope, timeline, and payment terms.", PriorityUrgent, 1},
	{"Collect Brand Assets", "Gather logos, brand guidelines, content, and design preferences.", PriorityHigh, 3},
	{"Setup Dev Environment", "Prepare repositories, hosting, staging, and domain setup.", PriorityHigh, 5},
	{"Initial Design Sprint", "Review requirements, wireframe, and agree on visual direction.", PriorityHigh, 7},
}

var serviceChecklists = map[string][]OnboardingTemplate{
	ServiceFullDevelopment: {
		{"Technical Architecture Review", "Settle the stack, data model, API contracts, and security needs.", PriorityHigh, 7},
		{"Frontend Development Setup", "Scaffold the frontend with build tooling and component library.", PriorityHigh, 5},
		{"Backend Development Setup", "Scaffold services, database migrations, and auth.", PriorityHigh, 5},
		{"Create Testing Plan", "Define unit, integration, and acceptance testing.", PriorityMedium, 10},
	},
	ServiceSEO: {
		{"Keyword Research & Analysis", "Research target keywords and competitor rankings.", PriorityHigh, 7},
		{"Site Audit & Analysis", "Audit technical SEO, speed, and on-page issues.", PriorityHigh, 5},
		{"SEO Strategy Document", "Write the content and link-building plan.", PriorityHigh, 10},
		{"Setup Analytics & Tracking", "Configure analytics, search console, and conversion goals.", PriorityMedium, 3},
	},
	ServiceMaintenance: {
		{"Site Audit & Health Check", "Check uptime, security patches, backups, and performance.", PriorityHigh, 2},
		{"Setup Monitoring & Alerts", "Wire uptime, error, and security monitoring.", PriorityHigh, 3},
		{"Document Site Specifications", "Record hosting, CMS, plugins, and credentials handling.", PriorityMedium, 7},
		{"Plan Maintenance Schedule", "Agree on update windows and reporting cadence.", PriorityMedium, 5},
	},
	ServiceBranding: {
		{"Brand Discovery Sessions", "Interview stakeholders about values, audience, and voice.", PriorityHigh, 5},
		{"Competitor & Market Analysis", "Map competitor positioning and market gaps.", PriorityHigh, 7},
		{"Brand Strategy Document", "Write positioning, messaging, and personality guidelines.", PriorityHigh, 10},
		{"Visual Identity Design", "Design logo, palette, and typography system.", PriorityHigh, 14},
	},
}

// ServiceTypes lists every accepted service type.
var ServiceTypes = []string{ServiceWebDesign, ServiceFullDevelopment, ServiceSEO, ServiceMaintenance, ServiceBranding}

// IsValidServiceType reports whether s is an accepted service type.
func IsValidServiceType(s string) bool {
	for _, st := range ServiceTypes {
		if st == s {
			return true
		}
	}
	return false
}

// OnboardingChecklist returns the base checklist followed by the service-specific tasks.
// Unknown service types and web_design get the base checklist only.
func OnboardingChecklist(serviceType string) []OnboardingTemplate {
	extra := serviceChecklists[serviceType]
	out := make([]OnboardingTemplate, 0, len(baseChecklist)+len(extra))
	out = append(out, baseChecklist...)
	return append(out, extra...)
}

// PlanOnboarding expands the checklist into pending tasks for a client.
func PlanOnboarding(client Client, serviceType string) []Task {
	var tasks []Task
	for _, tmpl := range OnboardingChecklist(serviceType) {
		due := client.Onboarding.AddDays(tmpl.DaysUntilDue)
		tasks = append(tasks, Task{
			Title:        tmpl.Title,
			Description:  tmpl.Description,
			RelatedTo:    RelatedClient,
			RelatedID:    client.ID,
			Priority:     tmpl.Priority,
			Status:       TaskStatusPending,
			DueDate:      &due,
			TaskTemplate: OnboardingTemplateName,
			ServiceType:  serviceType,
		})
	}
	return tasks
}
