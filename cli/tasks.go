// ABOUTME: Task, note, and activity CLI commands
// ABOUTME: Task filters and status changes, onboarding generation, pinned notes, and the activity feed
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

// ListTasksCommand lists tasks with optional status and priority filters
func ListTasksCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("list-tasks")
	status := fs.String("status", "", "pending, in_progress, completed, or cancelled")
	priority := fs.String("priority", "", "low, medium, high, or urgent")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := st.LoadTasks(ctx); err != nil {
		return err
	}
	tasks := st.Tasks(*status, *priority)
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found")
		return nil
	}

	now := st.Now()
	w := newTable()
	fmt.Fprintln(w, "TITLE\tPRIORITY\tSTATUS\tDUE\tRELATED\tID")
	fmt.Fprintln(w, "-----\t--------\t------\t---\t-------\t--")
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.String()
			if t.IsOverdue(now) {
				due += " ⚠"
			}
		}
		related := t.RelatedTo
		if t.RelatedID != "" {
			related += ":" + shortID(t.RelatedID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Title, t.Priority, t.Status, due, orDash(related), t.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal: %d task(s)\n", len(tasks))
	return nil
}

// AddTaskCommand creates a task
func AddTaskCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("add-task")
	title := fs.String("title", "", "Task title (required)")
	description := fs.String("description", "", "Description")
	priority := fs.String("priority", models.PriorityMedium, "low, medium, high, or urgent")
	due := fs.String("due", "", "Due date YYYY-MM-DD")
	client := fs.String("client", "", "Related client ID")
	lead := fs.String("lead", "", "Related lead ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	in := store.TaskInput{Title: *title, Description: *description, Priority: *priority}
	switch {
	case *client != "":
		in.RelatedTo, in.RelatedID = models.RelatedClient, *client
	case *lead != "":
		in.RelatedTo, in.RelatedID = models.RelatedLead, *lead
	}
	var err error
	if in.DueDate, err = parseOptionalDate(*due); err != nil {
		return fmt.Errorf("--due: %w", err)
	}

	task, err := st.CreateTask(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Task created: %s (ID: %s)\n", task.Title, task.ID)
	return nil
}

// TaskStatusCommand moves a task to another status
func TaskStatusCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("task-status")
	id := fs.String("id", "", "Task ID (required)")
	status := fs.String("status", "", "pending, in_progress, completed, or cancelled (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	taskID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	if _, err := st.LoadTasks(ctx); err != nil {
		return err
	}
	task, err := st.SetTaskStatus(ctx, taskID, *status)
	if err != nil {
		return err
	}
	if task.ID != "" {
		fmt.Fprintf(out, "✓ %s is now %s\n", task.Title, task.Status)
	}
	printNotice(st)
	return nil
}

// DeleteTaskCommand deletes a task
func DeleteTaskCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("delete-task")
	id := fs.String("id", "", "Task ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	taskID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	if _, err := st.LoadTasks(ctx); err != nil {
		return err
	}
	if err := st.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Task deleted: %s\n", taskID)
	printNotice(st)
	return nil
}

// OnboardCommand generates the onboarding checklist for a client
func OnboardCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("onboard")
	client := fs.String("client", "", "Client ID (required)")
	service := fs.String("service", models.ServiceWebDesign, "web_design, full_development, seo, maintenance, or branding")
	preview := fs.Bool("preview", false, "Show the checklist without creating tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	clientID, err := requireID(fs, *client)
	if err != nil {
		return fmt.Errorf("--client is required")
	}

	if *preview {
		c, ok := st.FindClient(clientID)
		if !ok {
			return fmt.Errorf("%w: %s", store.ErrUnknownClient, clientID)
		}
		if !models.IsValidServiceType(*service) {
			return fmt.Errorf("invalid service type %q", *service)
		}
		w := newTable()
		fmt.Fprintln(w, "TASK\tPRIORITY\tDUE")
		for _, t := range models.PlanOnboarding(c, *service) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Title, t.Priority, t.DueDate)
		}
		return w.Flush()
	}

	tasks, err := st.GenerateOnboardingTasks(ctx, clientID, *service)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Created %d onboarding task(s)\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(out, "  • %s (%s)\n", t.Title, t.Priority)
	}
	return nil
}

// ListNotesCommand lists notes, pinned first
func ListNotesCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("list-notes")
	relatedTo := fs.String("related-to", "", "general, client, or lead")
	relatedID := fs.String("related-id", "", "Related entity ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	notes, err := st.LoadNotes(ctx, models.NoteFilter{RelatedTo: *relatedTo, RelatedID: *relatedID})
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes found")
		return nil
	}

	for _, n := range notes {
		pin := " "
		if n.IsPinned {
			pin = "📌"
		}
		fmt.Fprintf(out, "%s %s  [%s] %s\n", pin, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.ID, n.Content)
	}
	return nil
}

// AddNoteCommand adds a note
func AddNoteCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("add-note")
	content := fs.String("content", "", "Note text (required)")
	relatedTo := fs.String("related-to", models.RelatedGeneral, "general, client, or lead")
	relatedID := fs.String("related-id", "", "Related entity ID")
	pinned := fs.Bool("pin", false, "Pin the note")
	if err := fs.Parse(args); err != nil {
		return err
	}

	note, err := st.CreateNote(ctx, models.Note{
		Content:   *content,
		RelatedTo: *relatedTo,
		RelatedID: *relatedID,
		IsPinned:  *pinned,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Note added (ID: %s)\n", note.ID)
	return nil
}

// PinNoteCommand toggles a note's pin
func PinNoteCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("pin-note")
	id := fs.String("id", "", "Note ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	noteID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	if _, err := st.LoadNotes(ctx, models.NoteFilter{}); err != nil {
		return err
	}
	note, err := st.TogglePin(ctx, noteID)
	if err != nil {
		return err
	}
	if note.ID != "" {
		state := "unpinned"
		if note.IsPinned {
			state = "pinned"
		}
		fmt.Fprintf(out, "✓ Note %s\n", state)
	}
	printNotice(st)
	return nil
}

// DeleteNoteCommand deletes a note
func DeleteNoteCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("delete-note")
	id := fs.String("id", "", "Note ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	noteID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	if _, err := st.LoadNotes(ctx, models.NoteFilter{}); err != nil {
		return err
	}
	if err := st.DeleteNote(ctx, noteID); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Note deleted: %s\n", noteID)
	printNotice(st)
	return nil
}

// ListActivitiesCommand prints the activity feed, most recent first
func ListActivitiesCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("list-activities")
	limit := fs.Int("limit", 0, "Maximum entries (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	activities, err := st.LoadActivities(ctx, *limit)
	if err != nil {
		return err
	}
	if len(activities) == 0 {
		fmt.Fprintln(out, "No activity yet")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "WHEN\tTYPE\tENTITY\tDESCRIPTION")
	fmt.Fprintln(w, "----\t----\t------\t-----------")
	for _, a := range activities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			a.CreatedAt.Local().Format("2006-01-02 15:04"), a.ActivityType, orDash(a.EntityName), a.Description)
	}
	return w.Flush()
}
