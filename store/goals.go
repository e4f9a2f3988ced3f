// ABOUTME: Revenue goal editing and one-way achievement detection
// ABOUTME: A goal flips to achieved once when revenue reaches its target and never flips back
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

// GoalInput is the form data for creating or editing the current goal.
type GoalInput struct {
	Title        string
	TargetAmount float64
	Deadline     models.Date
}

// Validate applies the form constraints: a positive target and a deadline.
func (in GoalInput) Validate() error {
	if !(in.TargetAmount > 0) {
		return fmt.Errorf("%w: target amount must be positive", ErrInvalidInput)
	}
	if in.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline is required", ErrInvalidInput)
	}
	return nil
}

// UpdateGoal edits the current goal, reopening it, or creates one when none is tracked.
func (s *Store) UpdateGoal(ctx context.Context, in GoalInput) (models.Goal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = models.DefaultGoalTitle
	}

	s.mu.RLock()
	var current *models.Goal
	if s.state.Goal != nil {
		g := *s.state.Goal
		current = &g
	}
	s.mu.RUnlock()

	if current != nil {
		edit := *current
		edit.Title = title
		edit.TargetAmount = in.TargetAmount
		edit.Deadline = in.Deadline
		edit.IsAchieved = false
		edit.DateAchieved = nil

		updated, err := s.remote.UpdateGoal(ctx, current.ID, edit)
		if err != nil {
			if s.recoverNotFound(ctx, err, "update_goal", "That goal no longer exists. Data has been refreshed.", func() {
				s.state.Goal = nil
			}) {
				return models.Goal{}, nil
			}
			return models.Goal{}, s.fail("update_goal", "Failed to update goal", err)
		}
		s.commit(ctx, func() { s.state.Goal = &updated })
		return updated, nil
	}

	created, err := s.remote.CreateGoal(ctx, models.Goal{
		Title:        title,
		TargetAmount: in.TargetAmount,
		Deadline:     in.Deadline,
		DateStarted:  s.today(),
	})
	if err != nil {
		return models.Goal{}, s.fail("create_goal", "Failed to create goal", err)
	}
	s.commit(ctx, func() { s.state.Goal = &created })
	return created, nil
}

// StartNewGoal archives the current goal so the next UpdateGoal creates a fresh one.
func (s *Store) StartNewGoal() error {
	var archived bool
	s.mutate(func() {
		if s.state.Goal == nil {
			return
		}
		s.state.PreviousGoals = append([]models.Goal{*s.state.Goal}, s.state.PreviousGoals...)
		s.state.Goal = nil
		s.celebrating = false
		archived = true
	})
	if !archived {
		return ErrNoGoal
	}
	return nil
}

// Celebrating reports whether the achievement overlay should show.
func (s *Store) Celebrating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.celebrating
}

// DismissCelebration hides the achievement overlay.
func (s *Store) DismissCelebration() {
	s.mutate(func() { s.celebrating = false })
}

// checkGoal flips the current goal to achieved when revenue reaches its target.
// The check and flip happen under one lock so the flip fires exactly once. The
// change is then persisted; a failed save raises a warning and keeps the local flip.
func (s *Store) checkGoal(ctx context.Context) {
	var (
		achieved models.Goal
		flipped  bool
	)

	s.mu.Lock()
	if metrics.GoalReached(metrics.TotalRevenue(s.state), s.state.Goal) {
		today := s.today()
		s.state.Goal.IsAchieved = true
		s.state.Goal.DateAchieved = &today
		s.celebrating = true
		s.version++
		achieved = *s.state.Goal
		flipped = true
	}
	s.mu.Unlock()

	if !flipped {
		return
	}
	s.notify()
	s.log.Info().Str("goal_id", achieved.ID).Float64("target", achieved.TargetAmount).Msg("goal achieved")

	if _, err := s.remote.UpdateGoal(ctx, achieved.ID, achieved); err != nil {
		s.log.Warn().Err(err).Str("goal_id", achieved.ID).Msg("failed to persist goal achievement")
		s.raise(LevelWarning, "Goal achieved, but saving it to the server failed.")
	}
}
