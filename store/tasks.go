// ABOUTME: Task, note, and activity operations
// ABOUTME: Ancillary records attached to leads and clients
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/agencycrm/models"
)

// TaskInput is the form data for a new task.
type TaskInput struct {
	Title       string
	Description string
	RelatedTo   string
	RelatedID   string
	Priority    string
	DueDate     *models.Date
}

// LoadTasks fetches all tasks.
func (s *Store) LoadTasks(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.remote.ListTasks(ctx)
	if err != nil {
		return nil, s.fail("load_tasks", "Failed to load tasks", err)
	}
	s.mutate(func() { s.tasks = tasks })
	return cloneTasks(tasks), nil
}

// Tasks returns the loaded tasks filtered by status and priority; "" or "all" match everything.
func (s *Store) Tasks(status, priority string) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(models.FilterTasks(s.tasks, status, priority))
}

// CreateTask adds a task.
func (s *Store) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	task := models.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		RelatedTo:   in.RelatedTo,
		RelatedID:   in.RelatedID,
		Priority:    in.Priority,
		Status:      models.TaskStatusPending,
		DueDate:     cloneDate(in.DueDate),
	}
	if task.Title == "" {
		return models.Task{}, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if task.RelatedTo == "" {
		task.RelatedTo = models.RelatedGeneral
	}
	if task.RelatedTo == models.RelatedGeneral {
		task.RelatedID = ""
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if !models.IsValidPriority(task.Priority) {
		return models.Task{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, task.Priority)
	}

	created, err := s.remote.CreateTask(ctx, task)
	if err != nil {
		return models.Task{}, s.fail("create_task", "Failed to create task", err)
	}
	s.mutate(func() { s.tasks = append(s.tasks, created) })
	return created, nil
}

// UpdateTask saves edits to a task.
func (s *Store) UpdateTask(ctx context.Context, task models.Task) (models.Task, error) {
	s.mu.RLock()
	i := indexOf(s.tasks, func(t models.Task) bool { return t.ID == task.ID })
	s.mu.RUnlock()
	if i < 0 {
		return models.Task{}, ErrUnknownTask
	}

	updated, err := s.remote.UpdateTask(ctx, task.ID, task)
	if err != nil {
		if s.recoverNotFound(ctx, err, "update_task", "That task no longer exists and has been removed.", func() {
			s.dropTaskLocked(task.ID)
		}) {
			return models.Task{}, nil
		}
		return models.Task{}, s.fail("update_task", "Failed to update task", err)
	}
	s.mutate(func() {
		if i := indexOf(s.tasks, func(t models.Task) bool { return t.ID == updated.ID }); i >= 0 {
			s.tasks[i] = updated
		}
	})
	return updated, nil
}

// SetTaskStatus moves a task to a new status, stamping completion time when it completes.
func (s *Store) SetTaskStatus(ctx context.Context, id, status string) (models.Task, error) {
	s.mu.RLock()
	i := indexOf(s.tasks, func(t models.Task) bool { return t.ID == id })
	var task models.Task
	if i >= 0 {
		task = cloneTasks(s.tasks[i : i+1])[0]
	}
	s.mu.RUnlock()
	if i < 0 {
		return models.Task{}, ErrUnknownTask
	}

	if err := task.TransitionStatus(status, s.now()); err != nil {
		return models.Task{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.UpdateTask(ctx, task)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.remote.DeleteTask(ctx, id); err != nil {
		if s.recoverNotFound(ctx, err, "delete_task", "That task was already removed.", func() {
			s.dropTaskLocked(id)
		}) {
			return nil
		}
		return s.fail("delete_task", "Failed to delete task", err)
	}
	s.mutate(func() { s.dropTaskLocked(id) })
	return nil
}

// GenerateOnboardingTasks asks the server to create the onboarding checklist for a client.
func (s *Store) GenerateOnboardingTasks(ctx context.Context, clientID, serviceType string) ([]models.Task, error) {
	if _, ok := s.FindClient(clientID); !ok {
		return nil, ErrUnknownClient
	}
	if !models.IsValidServiceType(serviceType) {
		return nil, fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, serviceType)
	}

	tasks, err := s.remote.GenerateOnboardingTasks(ctx, clientID, serviceType)
	if err != nil {
		if s.recoverNotFound(ctx, err, "generate_onboarding", "That client no longer exists and has been removed.", func() {
			s.dropClientLocked(clientID)
		}) {
			return nil, nil
		}
		return nil, s.fail("generate_onboarding", "Failed to generate onboarding tasks", err)
	}
	s.mutate(func() { s.tasks = append(s.tasks, tasks...) })
	s.raise(LevelInfo, fmt.Sprintf("Created %d onboarding tasks", len(tasks)))
	return cloneTasks(tasks), nil
}

// LoadNotes fetches notes matching filter, pinned first then newest first.
func (s *Store) LoadNotes(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	notes, err := s.remote.ListNotes(ctx, filter)
	if err != nil {
		return nil, s.fail("load_notes", "Failed to load notes", err)
	}
	sortNotes(notes)
	s.mutate(func() { s.notes = notes })
	return cloneSlice(notes), nil
}

// CreateNote adds a note.
func (s *Store) CreateNote(ctx context.Context, note models.Note) (models.Note, error) {
	note.Content = strings.TrimSpace(note.Content)
	if note.Content == "" {
		return models.Note{}, fmt.Errorf("%w: note content is required", ErrInvalidInput)
	}
	if note.RelatedTo == "" {
		note.RelatedTo = models.RelatedGeneral
	}

	created, err := s.remote.CreateNote(ctx, note)
	if err != nil {
		return models.Note{}, s.fail("create_note", "Failed to create note", err)
	}
	s.mutate(func() {
		s.notes = append(s.notes, created)
		sortNotes(s.notes)
	})
	return created, nil
}

// UpdateNote saves edits to a note.
func (s *Store) UpdateNote(ctx context.Context, note models.Note) (models.Note, error) {
	updated, err := s.remote.UpdateNote(ctx, note.ID, note)
	if err != nil {
		if s.recoverNotFound(ctx, err, "update_note", "That note no longer exists and has been removed.", func() {
			s.dropNoteLocked(note.ID)
		}) {
			return models.Note{}, nil
		}
		return models.Note{}, s.fail("update_note", "Failed to update note", err)
	}
	s.mutate(func() {
		if i := indexOf(s.notes, func(n models.Note) bool { return n.ID == updated.ID }); i >= 0 {
			s.notes[i] = updated
		} else {
			s.notes = append(s.notes, updated)
		}
		sortNotes(s.notes)
	})
	return updated, nil
}

// TogglePin flips a loaded note's pinned flag.
func (s *Store) TogglePin(ctx context.Context, id string) (models.Note, error) {
	s.mu.RLock()
	i := indexOf(s.notes, func(n models.Note) bool { return n.ID == id })
	var note models.Note
	if i >= 0 {
		note = s.notes[i]
	}
	s.mu.RUnlock()
	if i < 0 {
		return models.Note{}, ErrUnknownNote
	}
	note.IsPinned = !note.IsPinned
	return s.UpdateNote(ctx, note)
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if err := s.remote.DeleteNote(ctx, id); err != nil {
		if s.recoverNotFound(ctx, err, "delete_note", "That note was already removed.", func() {
			s.dropNoteLocked(id)
		}) {
			return nil
		}
		return s.fail("delete_note", "Failed to delete note", err)
	}
	s.mutate(func() { s.dropNoteLocked(id) })
	return nil
}

// LoadActivities fetches the most recent activities, newest first.
func (s *Store) LoadActivities(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = s.activityLimit
	}
	activities, err := s.remote.ListActivities(ctx, limit)
	if err != nil {
		return nil, s.fail("load_activities", "Failed to load activity", err)
	}
	s.mutate(func() { s.activities = activities })
	return cloneSlice(activities), nil
}

// DeleteActivity removes an activity entry.
func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	if err := s.remote.DeleteActivity(ctx, id); err != nil {
		if s.recoverNotFound(ctx, err, "delete_activity", "That activity was already removed.", func() {
			s.dropActivityLocked(id)
		}) {
			return nil
		}
		return s.fail("delete_activity", "Failed to delete activity", err)
	}
	s.mutate(func() { s.dropActivityLocked(id) })
	return nil
}

func sortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].IsPinned != notes[j].IsPinned {
			return notes[i].IsPinned
		}
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}

func (s *Store) dropTaskLocked(id string) {
	if i := indexOf(s.tasks, func(t models.Task) bool { return t.ID == id }); i >= 0 {
		s.tasks = removeAt(s.tasks, i)
	}
}

func (s *Store) dropNoteLocked(id string) {
	if i := indexOf(s.notes, func(n models.Note) bool { return n.ID == id }); i >= 0 {
		s.notes = removeAt(s.notes, i)
	}
}

func (s *Store) dropActivityLocked(id string) {
	if i := indexOf(s.activities, func(a models.Activity) bool { return a.ID == id }); i >= 0 {
		s.activities = removeAt(s.activities, i)
	}
}

func cloneTasks(in []models.Task) []models.Task {
	out := cloneSlice(in)
	for i := range out {
		out[i].DueDate = cloneDate(out[i].DueDate)
		if out[i].CompletedAt != nil {
			at := *out[i].CompletedAt
			out[i].CompletedAt = &at
		}
	}
	return out
}
