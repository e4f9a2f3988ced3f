// ABOUTME: Pipeline resource endpoints: leads, clients, customers, and goals
// ABOUTME: Each resource exposes list, create, partial update, and delete
package api

import (
	"context"

	"github.com/harperreed/agencycrm/models"
)

func (c *Client) ListLeads(ctx context.Context) ([]models.Lead, error) {
	var out []wireLead
	if err := c.get(ctx, "/leads", nil, &out); err != nil {
		return nil, err
	}
	return mapAll(out, fromWireLead), nil
}

func (c *Client) CreateLead(ctx context.Context, lead models.Lead) (models.Lead, error) {
	var out wireLead
	if err := c.post(ctx, "/leads", nil, toWireLead(lead), &out); err != nil {
		return models.Lead{}, err
	}
	return fromWireLead(out), nil
}

func (c *Client) UpdateLead(ctx context.Context, id string, lead models.Lead) (models.Lead, error) {
	var out wireLead
	if err := c.patch(ctx, resourcePath("leads", id), toWireLead(lead), &out); err != nil {
		return models.Lead{}, err
	}
	return fromWireLead(out), nil
}

func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("leads", id))
}

func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	var out []wireClient
	if err := c.get(ctx, "/clients", nil, &out); err != nil {
		return nil, err
	}
	return mapAll(out, fromWireClient), nil
}

func (c *Client) CreateClient(ctx context.Context, client models.Client) (models.Client, error) {
	var out wireClient
	if err := c.post(ctx, "/clients", nil, toWireClient(client), &out); err != nil {
		return models.Client{}, err
	}
	return fromWireClient(out), nil
}

func (c *Client) UpdateClient(ctx context.Context, id string, client models.Client) (models.Client, error) {
	var out wireClient
	if err := c.patch(ctx, resourcePath("clients", id), toWireClient(client), &out); err != nil {
		return models.Client{}, err
	}
	return fromWireClient(out), nil
}

func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("clients", id))
}

func (c *Client) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var out []wireCustomer
	if err := c.get(ctx, "/customers", nil, &out); err != nil {
		return nil, err
	}
	return mapAll(out, fromWireCustomer), nil
}

func (c *Client) CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	var out wireCustomer
	if err := c.post(ctx, "/customers", nil, toWireCustomer(customer), &out); err != nil {
		return models.Customer{}, err
	}
	return fromWireCustomer(out), nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, customer models.Customer) (models.Customer, error) {
	var out wireCustomer
	if err := c.patch(ctx, resourcePath("customers", id), toWireCustomer(customer), &out); err != nil {
		return models.Customer{}, err
	}
	return fromWireCustomer(out), nil
}

func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("customers", id))
}

func (c *Client) ListGoals(ctx context.Context) ([]models.Goal, error) {
	var out []wireGoal
	if err := c.get(ctx, "/goals", nil, &out); err != nil {
		return nil, err
	}
	return mapAll(out, fromWireGoal), nil
}

func (c *Client) CreateGoal(ctx context.Context, goal models.Goal) (models.Goal, error) {
	var out wireGoal
	if err := c.post(ctx, "/goals", nil, toWireGoal(goal), &out); err != nil {
		return models.Goal{}, err
	}
	return fromWireGoal(out), nil
}

func (c *Client) UpdateGoal(ctx context.Context, id string, goal models.Goal) (models.Goal, error) {
	var out wireGoal
	if err := c.patch(ctx, resourcePath("goals", id), toWireGoal(goal), &out); err != nil {
		return models.Goal{}, err
	}
	return fromWireGoal(out), nil
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return c.delete(ctx, resourcePath("goals", id))
}
