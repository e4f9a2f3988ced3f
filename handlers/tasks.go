// ABOUTME: Task MCP tool handlers
// ABOUTME: Implements list_tasks, create_task, and generate_onboarding_tasks
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

type TaskHandlers struct {
	st *store.Store
}

func NewTaskHandlers(st *store.Store) *TaskHandlers {
	return &TaskHandlers{st: st}
}

type TaskOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	RelatedTo   string `json:"related_to"`
	RelatedID   string `json:"related_id,omitempty"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date,omitempty"`
	Overdue     bool   `json:"overdue"`
	ServiceType string `json:"service_type,omitempty"`
}

func (h *TaskHandlers) taskToOutput(t models.Task) TaskOutput {
	out := TaskOutput{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		RelatedTo:   t.RelatedTo,
		RelatedID:   t.RelatedID,
		Priority:    t.Priority,
		Status:      t.Status,
		Overdue:     t.IsOverdue(h.st.Now()),
		ServiceType: t.ServiceType,
	}
	if t.DueDate != nil {
		out.DueDate = t.DueDate.String()
	}
	return out
}

type ListTasksInput struct {
	Status   string `json:"status,omitempty" jsonschema:"pending, in_progress, completed, cancelled, or all"`
	Priority string `json:"priority,omitempty" jsonschema:"low, medium, high, urgent, or all"`
	ClientID string `json:"client_id,omitempty" jsonschema:"Only tasks attached to this client"`
}

type ListTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
	Count int          `json:"count"`
}

func (h *TaskHandlers) ListTasks(ctx context.Context, _ *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	if input.Status != "" && input.Status != "all" && !models.IsValidTaskStatus(input.Status) {
		return nil, ListTasksOutput{}, fmt.Errorf("invalid status %q", input.Status)
	}
	if input.Priority != "" && input.Priority != "all" && !models.IsValidPriority(input.Priority) {
		return nil, ListTasksOutput{}, fmt.Errorf("invalid priority %q", input.Priority)
	}

	if _, err := h.st.LoadTasks(ctx); err != nil {
		return nil, ListTasksOutput{}, err
	}

	output := ListTasksOutput{Tasks: []TaskOutput{}}
	for _, t := range h.st.Tasks(input.Status, input.Priority) {
		if input.ClientID != "" && (t.RelatedTo != models.RelatedClient || t.RelatedID != input.ClientID) {
			continue
		}
		output.Tasks = append(output.Tasks, h.taskToOutput(t))
	}
	output.Count = len(output.Tasks)
	return nil, output, nil
}

type CreateTaskInput struct {
	Title       string `json:"title" jsonschema:"Task title (required)"`
	Description string `json:"description,omitempty" jsonschema:"Task description"`
	RelatedTo   string `json:"related_to,omitempty" jsonschema:"general, client, or lead (default general)"`
	RelatedID   string `json:"related_id,omitempty" jsonschema:"ID of the related client or lead"`
	Priority    string `json:"priority,omitempty" jsonschema:"low, medium, high, or urgent (default medium)"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"Due date YYYY-MM-DD"`
}

func (h *TaskHandlers) CreateTask(ctx context.Context, _ *mcp.CallToolRequest, input CreateTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, TaskOutput{}, fmt.Errorf("title is required")
	}
	switch input.RelatedTo {
	case "", models.RelatedGeneral:
	case models.RelatedClient, models.RelatedLead:
		if input.RelatedID == "" {
			return nil, TaskOutput{}, fmt.Errorf("related_id is required when related_to is %s", input.RelatedTo)
		}
	default:
		return nil, TaskOutput{}, fmt.Errorf("invalid related_to %q", input.RelatedTo)
	}

	due, err := optionalDate("due_date", input.DueDate)
	if err != nil {
		return nil, TaskOutput{}, err
	}

	task, err := h.st.CreateTask(ctx, store.TaskInput{
		Title:       input.Title,
		Description: input.Description,
		RelatedTo:   input.RelatedTo,
		RelatedID:   input.RelatedID,
		Priority:    input.Priority,
		DueDate:     due,
	})
	if err != nil {
		return nil, TaskOutput{}, err
	}
	return nil, h.taskToOutput(task), nil
}

type GenerateOnboardingInput struct {
	ClientID    string `json:"client_id" jsonschema:"Client ID (required)"`
	ServiceType string `json:"service_type,omitempty" jsonschema:"web_design, full_development, seo, maintenance, or branding (default web_design)"`
}

func (h *TaskHandlers) GenerateOnboardingTasks(ctx context.Context, _ *mcp.CallToolRequest, input GenerateOnboardingInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	if input.ClientID == "" {
		return nil, ListTasksOutput{}, fmt.Errorf("client_id is required")
	}
	service := input.ServiceType
	if service == "" {
		service = models.ServiceWebDesign
	}

	tasks, err := h.st.GenerateOnboardingTasks(ctx, input.ClientID, service)
	if err != nil {
		return nil, ListTasksOutput{}, err
	}
	if _, ok := h.st.FindClient(input.ClientID); !ok {
		return nil, ListTasksOutput{}, noticeError(h.st, "client no longer exists")
	}

	output := ListTasksOutput{Tasks: []TaskOutput{}}
	for _, t := range tasks {
		output.Tasks = append(output.Tasks, h.taskToOutput(t))
	}
	output.Count = len(output.Tasks)
	return nil, output, nil
}
