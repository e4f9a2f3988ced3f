// ABOUTME: Lead CLI commands
// ABOUTME: Add, list, search, select, save, delete, and CSV import/export of leads
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/agencycrm/report"
	"github.com/harperreed/agencycrm/store"
)

// AddLeadCommand adds a new lead
func AddLeadCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("add-lead")
	name := fs.String("name", "", "Business name (required)")
	contact := fs.String("contact", "", "Phone or email")
	comment := fs.String("comment", "", "Comment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	lead, err := st.AddLead(ctx, *name, *contact, *comment)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Lead created: %s (ID: %s)\n", lead.BusinessName, lead.ID)
	if lead.Contact != "" {
		fmt.Fprintf(out, "  Contact: %s\n", lead.Contact)
	}
	printNotice(st)
	return nil
}

// ListLeadsCommand lists new leads, or saved leads with --saved
func ListLeadsCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("list-leads")
	saved := fs.Bool("saved", false, "List saved leads instead of new leads")
	query := fs.String("search", "", "Filter by business name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	newLeads, savedLeads := st.SearchLeads(*query)
	leads := newLeads
	label := "lead(s)"
	if *saved {
		leads = savedLeads
		label = "saved lead(s)"
	}

	if len(leads) == 0 {
		fmt.Fprintln(out, "No leads found")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "BUSINESS\tCONTACT\tCOMMENT\tID")
	fmt.Fprintln(w, "--------\t-------\t-------\t--")
	for _, l := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.BusinessName, orDash(l.Contact), orDash(truncate(l.Comment, 40)), l.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal: %d %s\n", len(leads), label)
	return nil
}

// UpdateLeadCommand edits a lead's fields; only flags that are set change
func UpdateLeadCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("update-lead")
	id := fs.String("id", "", "Lead ID (required)")
	name := fs.String("name", "", "Business name")
	contact := fs.String("contact", "", "Phone or email")
	comment := fs.String("comment", "", "Comment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	leadID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	lead, ok := st.FindLead(leadID)
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrUnknownLead, leadID)
	}

	set := setFlags(fs)
	if set["name"] {
		lead.BusinessName = *name
	}
	if set["contact"] {
		lead.Contact = *contact
	}
	if set["comment"] {
		lead.Comment = *comment
	}

	updated, err := st.UpdateLead(ctx, lead)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Lead updated: %s\n", updated.BusinessName)
	printNotice(st)
	return nil
}

// SelectLeadCommand moves a lead to the saved list
func SelectLeadCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("select-lead")
	id := fs.String("id", "", "Lead ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	leadID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	lead, err := st.SelectLead(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.ID != "" {
		fmt.Fprintf(out, "✓ Lead saved: %s\n", lead.BusinessName)
	}
	printNotice(st)
	return nil
}

// SaveAllLeadsCommand saves every new lead
func SaveAllLeadsCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("save-all-leads")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result := st.SaveAllLeads(ctx)
	fmt.Fprintf(out, "✓ Saved %d lead(s)\n", result.Succeeded)
	if result.Failed > 0 {
		fmt.Fprintf(out, "✗ %d lead(s) failed\n", result.Failed)
	}
	return nil
}

// DeleteLeadCommand deletes a lead from either list
func DeleteLeadCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("delete-lead")
	id := fs.String("id", "", "Lead ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	leadID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	lead, _ := st.FindLead(leadID)
	if err := st.DeleteLead(ctx, leadID); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Lead deleted: %s\n", orDash(lead.BusinessName))
	printNotice(st)
	return nil
}

// ImportLeadsCommand creates leads from a CSV file with a businessName,contact,comment header
func ImportLeadsCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("import-leads")
	file := fs.String("file", "", "CSV file to import (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", *file, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := report.ReadLeadsCSV(f)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No leads found in file")
		return nil
	}

	result := st.ImportLeads(ctx, rows)
	fmt.Fprintf(out, "✓ Imported %d lead(s)\n", result.Succeeded)
	if result.Failed > 0 {
		fmt.Fprintf(out, "✗ %d lead(s) failed\n", result.Failed)
	}
	return nil
}

// ExportLeadsCommand writes new and saved leads as CSV
func ExportLeadsCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("export-leads")
	output := fs.String("output", report.LeadsFileName, "Output file (- for stdout)")
	saved := fs.Bool("saved", false, "Export saved leads only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := st.Pipeline()
	leads := p.AllLeads()
	if *saved {
		leads = p.SavedLeads
	}

	return writeOutput(*output, func(w io.Writer) error {
		return report.WriteLeadsCSV(w, leads)
	}, fmt.Sprintf("%d lead(s)", len(leads)))
}
