// ABOUTME: Lead operations: add, import, edit, select, bulk save, and delete
// ABOUTME: Moves leads from the new collection to the saved collection
package store

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/harperreed/agencycrm/models"
)

// BulkResult counts per-item outcomes of a bulk operation.
type BulkResult struct {
	Succeeded int
	Failed    int
}

// AddLead creates a new lead.
func (s *Store) AddLead(ctx context.Context, businessName, contact, comment string) (models.Lead, error) {
	businessName = strings.TrimSpace(businessName)
	if businessName == "" {
		return models.Lead{}, fmt.Errorf("%w: business name is required", ErrInvalidInput)
	}

	created, err := s.remote.CreateLead(ctx, models.Lead{
		BusinessName: businessName,
		Contact:      strings.TrimSpace(contact),
		Comment:      comment,
		Status:       models.LeadStatusNew,
	})
	if err != nil {
		return models.Lead{}, s.fail("add_lead", "Failed to add lead", err)
	}

	s.mutate(func() { s.appendLeadLocked(created) })
	return created, nil
}

// ImportLeads creates one lead per row concurrently and reports how many were created.
// Created leads are appended in input order.
func (s *Store) ImportLeads(ctx context.Context, rows []models.Lead) BulkResult {
	created := make([]*models.Lead, len(rows))
	attempted := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkConcurrency)
	for i, row := range rows {
		row.BusinessName = strings.TrimSpace(row.BusinessName)
		if row.BusinessName == "" {
			continue
		}
		row.ID = ""
		row.Status = models.LeadStatusNew
		attempted++
		g.Go(func() error {
			lead, err := s.remote.CreateLead(gctx, row)
			if err != nil {
				s.log.Warn().Err(err).Str("business_name", row.BusinessName).Msg("failed to import lead")
				return nil
			}
			created[i] = &lead
			return nil
		})
	}
	_ = g.Wait()

	var result BulkResult
	s.mutate(func() {
		for _, lead := range created {
			if lead == nil {
				continue
			}
			s.appendLeadLocked(*lead)
			result.Succeeded++
		}
	})
	result.Failed = attempted - result.Succeeded

	if result.Failed == 0 {
		s.raise(LevelInfo, fmt.Sprintf("Imported %d leads", result.Succeeded))
	} else {
		s.raise(LevelWarning, fmt.Sprintf("Imported %d leads, %d failed", result.Succeeded, result.Failed))
	}
	return result
}

// UpdateLead replaces a lead's editable fields, such as its comment.
func (s *Store) UpdateLead(ctx context.Context, lead models.Lead) (models.Lead, error) {
	s.mu.RLock()
	_, _, ok := s.findLeadLocked(lead.ID)
	s.mu.RUnlock()
	if !ok {
		return models.Lead{}, ErrUnknownLead
	}

	updated, err := s.remote.UpdateLead(ctx, lead.ID, lead)
	if err != nil {
		if s.recoverNotFound(ctx, err, "update_lead", "That lead no longer exists and has been removed.", func() {
			s.dropLeadLocked(lead.ID)
		}) {
			return models.Lead{}, nil
		}
		return models.Lead{}, s.fail("update_lead", "Failed to update lead", err)
	}

	s.mutate(func() { s.replaceLeadLocked(updated) })
	return updated, nil
}

// UpdateLeadComment edits only the comment of a lead.
func (s *Store) UpdateLeadComment(ctx context.Context, id, comment string) (models.Lead, error) {
	s.mu.RLock()
	lead, _, ok := s.findLeadLocked(id)
	s.mu.RUnlock()
	if !ok {
		return models.Lead{}, ErrUnknownLead
	}
	lead.Comment = comment
	return s.UpdateLead(ctx, lead)
}

// SelectLead moves a new lead to the saved collection.
func (s *Store) SelectLead(ctx context.Context, id string) (models.Lead, error) {
	s.mu.RLock()
	i := indexOf(s.state.Leads, func(l models.Lead) bool { return l.ID == id })
	var lead models.Lead
	if i >= 0 {
		lead = s.state.Leads[i]
	}
	s.mu.RUnlock()
	if i < 0 {
		return models.Lead{}, ErrUnknownLead
	}

	lead.Status = models.LeadStatusSaved
	saved, err := s.remote.UpdateLead(ctx, id, lead)
	if err != nil {
		if s.recoverNotFound(ctx, err, "select_lead", "That lead no longer exists and has been removed.", func() {
			s.dropLeadLocked(id)
		}) {
			return models.Lead{}, nil
		}
		return models.Lead{}, s.fail("select_lead", "Failed to save lead", err)
	}

	saved.Status = models.LeadStatusSaved
	s.mutate(func() {
		s.dropLeadLocked(id)
		s.state.SavedLeads = append(s.state.SavedLeads, saved)
	})
	return saved, nil
}

// SaveAllLeads selects every new lead concurrently. Partial failure is reported as a count.
func (s *Store) SaveAllLeads(ctx context.Context) BulkResult {
	s.mu.RLock()
	pending := cloneSlice(s.state.Leads)
	s.mu.RUnlock()
	if len(pending) == 0 {
		return BulkResult{}
	}

	saved := make([]*models.Lead, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkConcurrency)
	for i, lead := range pending {
		lead.Status = models.LeadStatusSaved
		g.Go(func() error {
			updated, err := s.remote.UpdateLead(gctx, lead.ID, lead)
			if err != nil {
				s.log.Warn().Err(err).Str("lead_id", lead.ID).Msg("failed to save lead")
				return nil
			}
			updated.Status = models.LeadStatusSaved
			saved[i] = &updated
			return nil
		})
	}
	_ = g.Wait()

	var result BulkResult
	s.mutate(func() {
		for _, lead := range saved {
			if lead == nil {
				continue
			}
			s.dropLeadLocked(lead.ID)
			s.state.SavedLeads = append(s.state.SavedLeads, *lead)
			result.Succeeded++
		}
	})
	result.Failed = len(pending) - result.Succeeded

	if result.Failed == 0 {
		s.raise(LevelInfo, fmt.Sprintf("Saved %d leads", result.Succeeded))
	} else {
		s.raise(LevelWarning, fmt.Sprintf("Saved %d leads, %d failed", result.Succeeded, result.Failed))
	}
	return result
}

// DeleteLead removes a new or saved lead.
func (s *Store) DeleteLead(ctx context.Context, id string) error {
	s.mu.RLock()
	_, _, ok := s.findLeadLocked(id)
	s.mu.RUnlock()
	if !ok {
		return ErrUnknownLead
	}

	if err := s.remote.DeleteLead(ctx, id); err != nil {
		if s.recoverNotFound(ctx, err, "delete_lead", "That lead was already removed.", func() {
			s.dropLeadLocked(id)
		}) {
			return nil
		}
		return s.fail("delete_lead", "Failed to delete lead", err)
	}

	s.mutate(func() { s.dropLeadLocked(id) })
	return nil
}

// FindLead looks a lead up in either collection.
func (s *Store) FindLead(id string) (models.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, _, ok := s.findLeadLocked(id)
	return lead, ok
}

// SearchLeads filters new and saved leads by business name.
func (s *Store) SearchLeads(query string) (leads, saved []models.Lead) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.state.Leads {
		if l.MatchesSearch(query) {
			leads = append(leads, l)
		}
	}
	for _, l := range s.state.SavedLeads {
		if l.MatchesSearch(query) {
			saved = append(saved, l)
		}
	}
	return leads, saved
}

func (s *Store) findLeadLocked(id string) (models.Lead, bool, bool) {
	if i := indexOf(s.state.Leads, func(l models.Lead) bool { return l.ID == id }); i >= 0 {
		return s.state.Leads[i], false, true
	}
	if i := indexOf(s.state.SavedLeads, func(l models.Lead) bool { return l.ID == id }); i >= 0 {
		return s.state.SavedLeads[i], true, true
	}
	return models.Lead{}, false, false
}

func (s *Store) appendLeadLocked(lead models.Lead) {
	if lead.Status == models.LeadStatusSaved {
		s.state.SavedLeads = append(s.state.SavedLeads, lead)
		return
	}
	s.state.Leads = append(s.state.Leads, lead)
}

func (s *Store) replaceLeadLocked(lead models.Lead) {
	if i := indexOf(s.state.Leads, func(l models.Lead) bool { return l.ID == lead.ID }); i >= 0 {
		s.state.Leads[i] = lead
		return
	}
	if i := indexOf(s.state.SavedLeads, func(l models.Lead) bool { return l.ID == lead.ID }); i >= 0 {
		s.state.SavedLeads[i] = lead
	}
}

func (s *Store) dropLeadLocked(id string) {
	if i := indexOf(s.state.Leads, func(l models.Lead) bool { return l.ID == id }); i >= 0 {
		s.state.Leads = removeAt(s.state.Leads, i)
	}
	if i := indexOf(s.state.SavedLeads, func(l models.Lead) bool { return l.ID == id }); i >= 0 {
		s.state.SavedLeads = removeAt(s.state.SavedLeads, i)
	}
}
