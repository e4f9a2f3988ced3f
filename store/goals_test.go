// ABOUTME: Tests for goal editing and the achievement ratchet
// ABOUTME: Achievement fires once and is never reverted by falling revenue
package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agencycrm/models"
)

func goalRemote() *fakeRemote {
	f := seeded()
	f.goals = []models.Goal{{
		ID:           "g1",
		Title:        "Q3 Revenue",
		TargetAmount: 50000,
		Deadline:     models.NewDate(2024, time.September, 30),
		DateStarted:  models.NewDate(2024, time.June, 1),
	}}
	return f
}

func TestGoalAchievedExactlyOnce(t *testing.T) {
	f := goalRemote()
	s, _ := setup(t, f)
	ctx := context.Background()

	_, err := s.UpdatePayment(ctx, "c1", 49999)
	require.NoError(t, err)
	assert.False(t, s.Snapshot().Goal.IsAchieved)
	assert.Equal(t, 0, f.called("UpdateGoal"))

	_, err = s.UpdatePayment(ctx, "c1", 1)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.Goal)
	assert.True(t, snap.Goal.IsAchieved)
	require.NotNil(t, snap.Goal.DateAchieved)
	assert.Equal(t, models.NewDate(2024, time.June, 15), *snap.Goal.DateAchieved)
	assert.True(t, snap.Celebrating)
	assert.Equal(t, 1, f.called("UpdateGoal"))

	client, ok := s.FindClient("c1")
	require.True(t, ok)
	client.PaymentCollected = 40000
	_, err = s.UpdateClient(ctx, client)
	require.NoError(t, err)

	snap = s.Snapshot()
	assert.True(t, snap.Goal.IsAchieved)
	assert.Equal(t, 1, f.called("UpdateGoal"))

	s.DismissCelebration()
	assert.False(t, s.Celebrating())
}

func TestGoalAchievementPersistFailureKeepsFlip(t *testing.T) {
	f := goalRemote()
	s, _ := setup(t, f)
	f.failOn("UpdateGoal", errServer)

	_, err := s.UpdatePayment(context.Background(), "c1", 60000)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.Goal.IsAchieved)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, LevelWarning, snap.Notice.Level)
}

func TestConcurrentPaymentsFlipGoalOnce(t *testing.T) {
	f := goalRemote()
	s, _ := setup(t, f, WithBulkConcurrency(4))
	ctx := context.Background()

	done := make(chan struct{})
	for range 10 {
		go func() {
			_, _ = s.UpdatePayment(ctx, "c1", 60000)
			done <- struct{}{}
		}()
	}
	for range 10 {
		<-done
	}

	assert.True(t, s.Snapshot().Goal.IsAchieved)
	assert.Equal(t, 1, f.called("UpdateGoal"))
}

func TestUpdateGoalReopensCurrentGoal(t *testing.T) {
	f := goalRemote()
	s, _ := setup(t, f)
	ctx := context.Background()

	_, err := s.UpdatePayment(ctx, "c1", 60000)
	require.NoError(t, err)
	require.True(t, s.Snapshot().Goal.IsAchieved)

	goal, err := s.UpdateGoal(ctx, GoalInput{
		Title:        "Stretch",
		TargetAmount: 100000,
		Deadline:     models.NewDate(2024, time.December, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, "g1", goal.ID)
	assert.Equal(t, "Stretch", goal.Title)
	assert.False(t, goal.IsAchieved)
	assert.Nil(t, goal.DateAchieved)

	snap := s.Snapshot()
	assert.False(t, snap.Goal.IsAchieved)
	assert.Equal(t, 60.0, s.Metrics().GoalProgress)
}

func TestUpdateGoalCreatesWhenNoneTracked(t *testing.T) {
	f := seeded()
	s, _ := setup(t, f)

	goal, err := s.UpdateGoal(context.Background(), GoalInput{
		TargetAmount: 25000,
		Deadline:     models.NewDate(2024, time.December, 31),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, goal.ID)
	assert.Equal(t, models.DefaultGoalTitle, goal.Title)
	assert.Equal(t, models.NewDate(2024, time.June, 15), goal.DateStarted)
	assert.Equal(t, 1, f.called("CreateGoal"))

	require.NotNil(t, s.Snapshot().Goal)
	assert.Equal(t, goal.ID, s.Snapshot().Goal.ID)
}

func TestStartNewGoal(t *testing.T) {
	s, _ := setup(t, goalRemote())

	require.NoError(t, s.StartNewGoal())
	snap := s.Snapshot()
	assert.Nil(t, snap.Goal)
	require.Len(t, snap.PreviousGoals, 1)
	assert.Equal(t, "g1", snap.PreviousGoals[0].ID)

	assert.ErrorIs(t, s.StartNewGoal(), ErrNoGoal)
}

func TestGoalInputValidate(t *testing.T) {
	deadline := models.NewDate(2024, time.December, 31)
	tests := []struct {
		name  string
		input GoalInput
		ok    bool
	}{
		{"valid", GoalInput{TargetAmount: 1000, Deadline: deadline}, true},
		{"zero target", GoalInput{TargetAmount: 0, Deadline: deadline}, false},
		{"negative target", GoalInput{TargetAmount: -5, Deadline: deadline}, false},
		{"missing deadline", GoalInput{TargetAmount: 1000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}
