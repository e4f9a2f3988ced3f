// ABOUTME: Task model with priority, status, and completion tracking
// ABOUTME: Validates status transitions and stamps completion time
package models

import (
	"fmt"
	"time"
)

type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	RelatedTo    string     `json:"relatedTo"`
	RelatedID    string     `json:"relatedId,omitempty"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	DueDate      *Date      `json:"dueDate,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	TaskTemplate string     `json:"taskTemplate,omitempty"`
	ServiceType  string     `json:"serviceType,omitempty"`
	IsTemplate   bool       `json:"isTemplate"`
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Task statuses.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

var validPriorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

var validStatuses = map[string]bool{
	TaskStatusPending:    true,
	TaskStatusInProgress: true,
	TaskStatusCompleted:  true,
	TaskStatusCancelled:  true,
}

// IsValidPriority reports whether p is a known task priority.
func IsValidPriority(p string) bool {
	return validPriorities[p]
}

// IsValidTaskStatus reports whether s is a known task status.
func IsValidTaskStatus(s string) bool {
	return validStatuses[s]
}

// TransitionStatus validates and applies a new status.
func (t *Task) TransitionStatus(newStatus string, now time.Time) error {
	if !validStatuses[newStatus] {
		return fmt.Errorf("invalid task status: %s", newStatus)
	}

	oldStatus := t.Status
	t.Status = newStatus

	// Track completion
	if newStatus == TaskStatusCompleted && oldStatus != TaskStatusCompleted {
		completed := now.UTC()
		t.CompletedAt = &completed
	} else if newStatus != TaskStatusCompleted {
		t.CompletedAt = nil
	}

	return nil
}

// IsOverdue returns true if the task is past its due date and still open.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled {
		return false
	}
	if t.DueDate == nil {
		return false
	}
	return now.After(t.DueDate.AddDays(1).Time)
}

// FilterTasks keeps tasks matching the given status and priority. Empty or "all" matches everything.
func FilterTasks(tasks []Task, status, priority string) []Task {
	var out []Task
	for _, task := range tasks {
		if status != "" && status != "all" && task.Status != status {
			continue
		}
		if priority != "" && priority != "all" && task.Priority != priority {
			continue
		}
		out = append(out, task)
	}
	return out
}
