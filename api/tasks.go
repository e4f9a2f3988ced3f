// ABOUTME: Ancillary endpoints: tasks, notes, activities, and server stats
// ABOUTME: Includes onboarding task generation and relation-filtered note listing
package api

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"github.com/harperreed/agencycrm/models"
)

func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var out []wireTask
	if err := c.get(ctx, "/tasks", nil, &out); err != nil {
		return nil, err
	}
	return mapAll(out, fromWireTask), nil
}

func (c *Client) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	var out wireTask
	if err := c.post(ctx, "/tasks", nil, toWireTask(task), &out); err != nil {
		return models.Task{}, err
	}
	return fromWireTask(out), nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, task models.Task) (models.Task, error) {
	var out wireTask
	if err := c.patch(ctx, resourcePath("tasks", id), toWireTask(task), &out); err != nil {
		return models.Task{}, err
	}
	return fromWireTask(out), nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("tasks", id))
}

// GenerateOnboardingTasks asks the server to create the onboarding checklist for a client.
func (c *Client) GenerateOnboardingTasks(ctx context.Context, clientID, serviceType string) ([]models.Task, error) {
	query := url.Values{}
	if serviceType != "" {
		query.Set("service_type", serviceType)
	}

	var out []wireTask
	if err := c.post(ctx, resourcePath("tasks/generate-onboarding", clientID), query, nil, &out); err != nil {
		return nil, err
	}
	return mapAll(out, fromWireTask), nil
}

func (c *Client) ListNotes(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	query := url.Values{}
	if filter.RelatedTo != "" {
		query.Set("related_to", filter.RelatedTo)
	}
	if filter.RelatedID != "" {
		query.Set("related_id", filter.RelatedID)
	}

	var out []wireNote
	if err := c.get(ctx, "/notes", query, &out); err != nil {
		return nil, err
	}
	return mapAll(out, fromWireNote), nil
}

func (c *Client) CreateNote(ctx context.Context, note models.Note) (models.Note, error) {
	var out wireNote
	if err := c.post(ctx, "/notes", nil, toWireNote(note), &out); err != nil {
		return models.Note{}, err
	}
	return fromWireNote(out), nil
}

func (c *Client) UpdateNote(ctx context.Context, id string, note models.Note) (models.Note, error) {
	var out wireNote
	if err := c.patch(ctx, resourcePath("notes", id), toWireNote(note), &out); err != nil {
		return models.Note{}, err
	}
	return fromWireNote(out), nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("notes", id))
}

// ListActivities returns the most recent activities first, at most limit entries.
func (c *Client) ListActivities(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var out []wireActivity
	if err := c.get(ctx, "/activities", query, &out); err != nil {
		return nil, err
	}

	activities := mapAll(out, fromWireActivity)
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("activities", id))
}

// Stats fetches the server's own pipeline summary.
func (c *Client) Stats(ctx context.Context) (models.RemoteStats, error) {
	var out wireStats
	if err := c.get(ctx, "/stats", nil, &out); err != nil {
		return models.RemoteStats{}, err
	}
	return models.RemoteStats{
		TotalLeads:     out.TotalLeads,
		ActiveProjects: out.ActiveProjects,
		Revenue:        out.Revenue,
		Deadlines:      out.Deadlines,
	}, nil
}
