// ABOUTME: Revenue goal CLI commands
// ABOUTME: Set or edit the current goal, start a new one, and show progress
package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

// SetGoalCommand creates the current goal or edits it, reopening an achieved goal
func SetGoalCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("set-goal")
	title := fs.String("title", "", "Goal title (default Revenue Goal)")
	target := fs.String("target", "", "Target amount (required)")
	deadline := fs.String("deadline", "", "Deadline YYYY-MM-DD (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amount, err := strconv.ParseFloat(*target, 64)
	if err != nil {
		return fmt.Errorf("--target must be a number")
	}
	due, err := models.ParseDate(*deadline)
	if err != nil {
		return fmt.Errorf("--deadline: %w", err)
	}

	in := store.GoalInput{Title: *title, TargetAmount: amount, Deadline: due}
	if err := in.Validate(); err != nil {
		return err
	}

	goal, err := st.UpdateGoal(ctx, in)
	if err != nil {
		return err
	}
	if goal.ID != "" {
		fmt.Fprintf(out, "✓ Goal set: %s, %s by %s\n", goal.Title, metrics.FormatMoney(goal.TargetAmount), goal.Deadline)
	}
	printNotice(st)
	return nil
}

// NewGoalCommand archives the current goal so a new one can be set
func NewGoalCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("new-goal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	current := st.Snapshot().Goal
	if err := st.StartNewGoal(); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Moved %q to previous goals. Use set-goal to start the next one.\n", current.Title)
	return nil
}

// ShowGoalCommand prints the current goal's progress and the goal history
func ShowGoalCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("show-goal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := st.Metrics()
	if d.Goal == nil {
		fmt.Fprintln(out, "No goal set")
	} else {
		g := d.Goal
		fmt.Fprintf(out, "%s\n", g.Title)
		fmt.Fprintf(out, "  Target:    %s by %s\n", metrics.FormatMoney(g.TargetAmount), g.Deadline)
		fmt.Fprintf(out, "  Revenue:   %s (%s)\n", metrics.FormatMoney(d.TotalRevenue), metrics.FormatPercent(d.GoalProgress))
		if g.IsAchieved {
			achieved := ""
			if g.DateAchieved != nil {
				achieved = " on " + g.DateAchieved.String()
			}
			fmt.Fprintf(out, "  Status:    🎉 achieved%s\n", achieved)
		} else {
			fmt.Fprintf(out, "  Remaining: %d day(s)\n", d.DaysRemaining)
		}
	}

	previous := st.Snapshot().PreviousGoals
	if len(previous) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nPrevious goals:")
	w := newTable()
	fmt.Fprintln(w, "TITLE\tTARGET\tDEADLINE\tACHIEVED")
	for _, g := range previous {
		achieved := "no"
		if g.IsAchieved {
			achieved = "yes"
			if g.DateAchieved != nil {
				achieved = g.DateAchieved.String()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.Title, metrics.FormatMoney(g.TargetAmount), orDash(g.Deadline.String()), achieved)
	}
	return w.Flush()
}
