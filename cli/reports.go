// ABOUTME: Report and statistics CLI commands
// ABOUTME: Full JSON export and derived metrics, optionally compared with the server's summary
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/report"
	"github.com/harperreed/agencycrm/store"
)

// ExportReportCommand writes the full pipeline as crm-report.json
func ExportReportCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("export-report")
	output := fs.String("output", report.ReportFileName, "Output file (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := st.Pipeline()
	return writeOutput(*output, func(w io.Writer) error {
		return report.WriteJSON(w, p)
	}, "report")
}

// StatsCommand prints the derived metrics; --remote adds the server's own figures
func StatsCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("stats")
	remote := fs.Bool("remote", false, "Compare with the server's /stats summary")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := st.Metrics()
	w := newTable()
	fmt.Fprintln(w, "METRIC\tVALUE")
	fmt.Fprintln(w, "------\t-----")
	fmt.Fprintf(w, "Total revenue\t%s\n", metrics.FormatMoney(d.TotalRevenue))
	fmt.Fprintf(w, "Total leads\t%d\n", d.Stats.TotalLeads)
	fmt.Fprintf(w, "Active projects\t%d\n", d.Stats.ActiveProjects)
	fmt.Fprintf(w, "Deadlines (7 days)\t%d\n", d.Stats.Deadlines)
	fmt.Fprintf(w, "Conversion rate\t%s\n", metrics.FormatPercent(d.ConversionRate))
	fmt.Fprintf(w, "Avg project value\t%s\n", metrics.FormatMoney(d.AvgProjectValue))
	fmt.Fprintf(w, "Completion rate\t%s\n", metrics.FormatPercent(d.CompletionRate))
	if d.Goal != nil {
		fmt.Fprintf(w, "Goal progress\t%s\n", metrics.FormatPercent(d.GoalProgress))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !*remote {
		printNotice(st)
		return nil
	}

	rs, err := st.Remote().Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch server stats: %w", err)
	}

	fmt.Fprintln(out)
	w = newTable()
	fmt.Fprintln(w, "METRIC\tSERVER\tLOCAL")
	fmt.Fprintln(w, "------\t------\t-----")
	fmt.Fprintf(w, "Revenue\t%s\t%s\n", metrics.FormatMoney(rs.Revenue), metrics.FormatMoney(d.TotalRevenue))
	fmt.Fprintf(w, "Leads\t%d\t%d\n", rs.TotalLeads, d.Stats.TotalLeads)
	fmt.Fprintf(w, "Active projects\t%d\t%d\n", rs.ActiveProjects, d.Stats.ActiveProjects)
	fmt.Fprintf(w, "Deadlines\t%d\t%d\n", rs.Deadlines, d.Stats.Deadlines)
	return w.Flush()
}
