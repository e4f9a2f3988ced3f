// ABOUTME: Sync CLI command
// ABOUTME: Reloads every collection from the API and reports the offline cache's sync history
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/agencycrm/db"
	"github.com/harperreed/agencycrm/store"
)

// SyncCommand reloads from the server, refreshing the offline cache, and prints the sync state.
func SyncCommand(ctx context.Context, st *store.Store, cache *db.Cache, args []string) error {
	fs := newFlagSet("sync")
	statusOnly := fs.Bool("status", false, "Only show the last sync")
	history := fs.Int("history", 5, "Number of recent sync runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*statusOnly {
		if err := st.Reload(ctx); err != nil {
			return err
		}
		snap := st.Snapshot()
		if snap.Offline {
			printNotice(st)
		} else {
			fmt.Fprintf(out, "✓ Synced %d lead(s), %d client(s), %d customer(s)\n",
				len(snap.Leads)+len(snap.SavedLeads), len(snap.Clients), len(snap.Customers))
		}
	}

	state, err := cache.LastSync(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Fprintln(out, "Never synced")
		return nil
	}

	fmt.Fprintf(out, "\nStatus:    %s\n", state.Status)
	if state.LastSyncTime != nil {
		fmt.Fprintf(out, "Last sync: %s\n", state.LastSyncTime.Local().Format("2006-01-02 15:04:05"))
	}
	if state.LastSyncID != nil {
		fmt.Fprintf(out, "Run ID:    %s\n", *state.LastSyncID)
	}
	if state.ErrorMessage != nil {
		fmt.Fprintf(out, "Error:     %s\n", *state.ErrorMessage)
	}

	if *history <= 0 {
		return nil
	}
	runs, err := db.RecentSyncRuns(cache.DB(), db.ServiceCRM, *history)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	w := newTable()
	fmt.Fprintln(w, "WHEN\tSTATUS\tLEADS\tCLIENTS\tCUSTOMERS\tRUN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.SyncedAt.Local().Format("2006-01-02 15:04"), r.Status, r.Leads, r.Clients, r.Customers, r.ID)
	}
	return w.Flush()
}
