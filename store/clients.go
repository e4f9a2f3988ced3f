// ABOUTME: Client operations: convert from lead, payments, edits, completion, and delete
// ABOUTME: Completion turns a client into a customer carrying its payments and tech specs
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

// ConvertInput holds the optional fields supplied when converting a lead.
// Zero values fall back to the defaults.
type ConvertInput struct {
	Start           *models.Date
	Finish          *models.Date
	BusinessType    string
	DomainName      string
	HostingProvider string
	CMSType         string
	ProjectStage    string
	MaintenancePlan bool
	RenewalDate     *models.Date
}

// draftClient builds the client record for a converted lead. The id is fresh, never the lead's.
func (s *Store) draftClient(lead models.Lead, in ConvertInput) models.Client {
	today := s.today()
	client := models.Client{
		ID:               s.newID(),
		BusinessName:     lead.BusinessName,
		BusinessType:     models.DefaultBusinessType,
		Contact:          lead.Contact,
		Onboarding:       today,
		Deadline:         today.AddDays(models.DefaultProjectDays),
		Delivery:         models.DeliveryInProgress,
		PaymentCollected: 0,
		IsCompleted:      false,
		DomainName:       strings.TrimSpace(in.DomainName),
		HostingProvider:  strings.TrimSpace(in.HostingProvider),
		CMSType:          strings.TrimSpace(in.CMSType),
		ProjectStage:     in.ProjectStage,
		MaintenancePlan:  in.MaintenancePlan,
		RenewalDate:      cloneDate(in.RenewalDate),
	}
	if in.Start != nil && !in.Start.IsZero() {
		client.Onboarding = *in.Start
	}
	if in.Finish != nil && !in.Finish.IsZero() {
		client.Deadline = *in.Finish
	}
	if bt := strings.TrimSpace(in.BusinessType); bt != "" {
		client.BusinessType = bt
	}
	return client
}

// ConvertToClient deletes a saved lead and creates a client from it. New leads must be
// selected first. Local state changes only after both calls succeed. A lead already gone on the server is treated as converted
// elsewhere: the store reloads instead of creating the client.
func (s *Store) ConvertToClient(ctx context.Context, leadID string, in ConvertInput) (models.Client, error) {
	s.mu.RLock()
	i := indexOf(s.state.SavedLeads, func(l models.Lead) bool { return l.ID == leadID })
	var lead models.Lead
	if i >= 0 {
		lead = s.state.SavedLeads[i]
	}
	_, _, known := s.findLeadLocked(leadID)
	s.mu.RUnlock()
	if i < 0 {
		if known {
			return models.Client{}, ErrLeadNotSaved
		}
		return models.Client{}, ErrUnknownLead
	}

	draft := s.draftClient(lead, in)

	if err := s.remote.DeleteLead(ctx, leadID); err != nil {
		if s.recoverNotFound(ctx, err, "convert_lead", "That lead was already converted or removed. Data has been refreshed.", func() {
			s.dropLeadLocked(leadID)
		}) {
			return models.Client{}, nil
		}
		return models.Client{}, s.fail("convert_lead", "Failed to convert lead", err)
	}

	created, err := s.remote.CreateClient(ctx, draft)
	if err != nil {
		// The lead is gone remotely; mirror that so the lists match the server.
		s.mutate(func() { s.dropLeadLocked(leadID) })
		return models.Client{}, s.fail("convert_lead", "Failed to create client", err)
	}

	s.commit(ctx, func() {
		s.dropLeadLocked(leadID)
		s.state.Clients = append(s.state.Clients, created)
	})
	s.log.Info().Str("lead_id", leadID).Str("client_id", created.ID).Msg("lead converted")
	return created, nil
}

// UpdatePayment adds delta to a client's collected payment, rounded to 2 places.
// The new total shows locally before the server answers and is then replaced by the
// server's value. On failure the tentative total stays unless rollback is enabled.
func (s *Store) UpdatePayment(ctx context.Context, clientID string, delta float64) (models.Client, error) {
	var (
		previous  float64
		tentative models.Client
		found     bool
	)
	s.commit(ctx, func() {
		i := indexOf(s.state.Clients, func(c models.Client) bool { return c.ID == clientID })
		if i < 0 {
			return
		}
		found = true
		previous = s.state.Clients[i].PaymentCollected
		s.state.Clients[i].PaymentCollected = metrics.AddMoney(previous, delta)
		tentative = s.state.Clients[i]
	})
	if !found {
		return models.Client{}, ErrUnknownClient
	}

	updated, err := s.remote.UpdateClient(ctx, clientID, tentative)
	if err != nil {
		if s.recoverNotFound(ctx, err, "update_payment", "That client no longer exists and has been removed.", func() {
			s.dropClientLocked(clientID)
		}) {
			return models.Client{}, nil
		}
		if s.rollbackPayment {
			s.mutate(func() {
				if i := indexOf(s.state.Clients, func(c models.Client) bool { return c.ID == clientID }); i >= 0 {
					s.state.Clients[i].PaymentCollected = previous
				}
			})
		}
		return tentative, s.fail("update_payment", "Failed to update payment", err)
	}

	s.commit(ctx, func() { s.replaceClientLocked(updated) })
	return updated, nil
}

// UpdateClient saves edits to a client's details.
func (s *Store) UpdateClient(ctx context.Context, client models.Client) (models.Client, error) {
	if _, ok := s.FindClient(client.ID); !ok {
		return models.Client{}, ErrUnknownClient
	}

	updated, err := s.remote.UpdateClient(ctx, client.ID, client)
	if err != nil {
		if s.recoverNotFound(ctx, err, "update_client", "That client no longer exists and has been removed.", func() {
			s.dropClientLocked(client.ID)
		}) {
			return models.Client{}, nil
		}
		return models.Client{}, s.fail("update_client", "Failed to update client", err)
	}

	s.commit(ctx, func() { s.replaceClientLocked(updated) })
	return updated, nil
}

// SetProjectStage moves a client to another delivery stage.
func (s *Store) SetProjectStage(ctx context.Context, clientID, stage string) (models.Client, error) {
	client, ok := s.FindClient(clientID)
	if !ok {
		return models.Client{}, ErrUnknownClient
	}
	client.ProjectStage = stage
	return s.UpdateClient(ctx, client)
}

// completedCustomer carries a client over as a customer. The deadline is used as the completion date.
func completedCustomer(c models.Client) models.Customer {
	return models.Customer{
		BusinessName:    c.BusinessName,
		Contact:         c.Contact,
		CompletedDate:   c.Deadline,
		TotalPaid:       c.PaymentCollected,
		DomainName:      c.DomainName,
		HostingProvider: c.HostingProvider,
		CMSType:         c.CMSType,
		MaintenancePlan: c.MaintenancePlan,
		RenewalDate:     cloneDate(c.RenewalDate),
	}
}

// MarkClientCompleted deletes the client and records it as a customer.
func (s *Store) MarkClientCompleted(ctx context.Context, clientID string) (models.Customer, error) {
	client, ok := s.FindClient(clientID)
	if !ok {
		return models.Customer{}, ErrUnknownClient
	}

	if err := s.remote.DeleteClient(ctx, clientID); err != nil {
		if s.recoverNotFound(ctx, err, "complete_client", "That client was already completed or removed. Data has been refreshed.", func() {
			s.dropClientLocked(clientID)
		}) {
			return models.Customer{}, nil
		}
		return models.Customer{}, s.fail("complete_client", "Failed to complete client", err)
	}

	created, err := s.remote.CreateCustomer(ctx, completedCustomer(client))
	if err != nil {
		s.mutate(func() { s.dropClientLocked(clientID) })
		return models.Customer{}, s.fail("complete_client", "Failed to create customer", err)
	}

	s.commit(ctx, func() {
		s.dropClientLocked(clientID)
		s.state.Customers = append([]models.Customer{created}, s.state.Customers...)
	})
	s.log.Info().Str("client_id", clientID).Str("customer_id", created.ID).Msg("client completed")
	return created, nil
}

// DeleteClient removes a client without completing it.
func (s *Store) DeleteClient(ctx context.Context, clientID string) error {
	if _, ok := s.FindClient(clientID); !ok {
		return ErrUnknownClient
	}

	if err := s.remote.DeleteClient(ctx, clientID); err != nil {
		if s.recoverNotFound(ctx, err, "delete_client", "That client was already removed.", func() {
			s.dropClientLocked(clientID)
		}) {
			return nil
		}
		return s.fail("delete_client", "Failed to delete client", err)
	}

	s.commit(ctx, func() { s.dropClientLocked(clientID) })
	return nil
}

// FindClient returns the client with the given id.
func (s *Store) FindClient(id string) (models.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.state.Clients, func(c models.Client) bool { return c.ID == id })
	if i < 0 {
		return models.Client{}, false
	}
	c := s.state.Clients[i]
	c.RenewalDate = cloneDate(c.RenewalDate)
	return c, true
}

func (s *Store) replaceClientLocked(client models.Client) {
	if i := indexOf(s.state.Clients, func(c models.Client) bool { return c.ID == client.ID }); i >= 0 {
		s.state.Clients[i] = client
	}
}

func (s *Store) dropClientLocked(id string) {
	if i := indexOf(s.state.Clients, func(c models.Client) bool { return c.ID == id }); i >= 0 {
		s.state.Clients = removeAt(s.state.Clients, i)
	}
}

// ValidatePaymentAmount checks a payment entered by the user.
func ValidatePaymentAmount(amount float64) error {
	if !(amount > 0) || amount > 1e12 {
		return fmt.Errorf("%w: payment must be a positive amount", ErrInvalidInput)
	}
	return nil
}
