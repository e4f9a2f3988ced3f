// ABOUTME: Customer operations on completed engagements
// ABOUTME: Customers stay editable and deletable after completion
package store

import (
	"context"

	"github.com/harperreed/agencycrm/models"
)

// UpdateCustomer saves edits to a customer.
func (s *Store) UpdateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	if _, ok := s.FindCustomer(customer.ID); !ok {
		return models.Customer{}, ErrUnknownCustomer
	}

	updated, err := s.remote.UpdateCustomer(ctx, customer.ID, customer)
	if err != nil {
		if s.recoverNotFound(ctx, err, "update_customer", "That customer no longer exists and has been removed.", func() {
			s.dropCustomerLocked(customer.ID)
		}) {
			return models.Customer{}, nil
		}
		return models.Customer{}, s.fail("update_customer", "Failed to update customer", err)
	}

	s.commit(ctx, func() {
		if i := indexOf(s.state.Customers, func(c models.Customer) bool { return c.ID == updated.ID }); i >= 0 {
			s.state.Customers[i] = updated
		}
	})
	return updated, nil
}

// DeleteCustomer removes a customer.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	if _, ok := s.FindCustomer(id); !ok {
		return ErrUnknownCustomer
	}

	if err := s.remote.DeleteCustomer(ctx, id); err != nil {
		if s.recoverNotFound(ctx, err, "delete_customer", "That customer was already removed.", func() {
			s.dropCustomerLocked(id)
		}) {
			return nil
		}
		return s.fail("delete_customer", "Failed to delete customer", err)
	}

	s.commit(ctx, func() { s.dropCustomerLocked(id) })
	return nil
}

// FindCustomer returns the customer with the given id.
func (s *Store) FindCustomer(id string) (models.Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.state.Customers, func(c models.Customer) bool { return c.ID == id })
	if i < 0 {
		return models.Customer{}, false
	}
	c := s.state.Customers[i]
	c.RenewalDate = cloneDate(c.RenewalDate)
	return c, true
}

func (s *Store) dropCustomerLocked(id string) {
	if i := indexOf(s.state.Customers, func(c models.Customer) bool { return c.ID == id }); i >= 0 {
		s.state.Customers = removeAt(s.state.Customers, i)
	}
}
