// ABOUTME: Client and customer CLI commands
// ABOUTME: Convert leads, record payments, move stages, complete projects, and export customers
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/report"
	"github.com/harperreed/agencycrm/store"
)

// ConvertLeadCommand turns a lead into a client
func ConvertLeadCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("convert-lead")
	id := fs.String("id", "", "Lead ID (required)")
	start := fs.String("start", "", "Onboarding date YYYY-MM-DD (default today)")
	finish := fs.String("finish", "", "Deadline YYYY-MM-DD (default today + 30 days)")
	businessType := fs.String("type", "", "Business type (default Web Design)")
	domain := fs.String("domain", "", "Domain name")
	hosting := fs.String("hosting", "", "Hosting provider")
	cms := fs.String("cms", "", "CMS type")
	stage := fs.String("stage", "", "Project stage")
	maintenance := fs.Bool("maintenance", false, "Client has a maintenance plan")
	renewal := fs.String("renewal", "", "Renewal date YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	leadID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	in := store.ConvertInput{
		BusinessType:    *businessType,
		DomainName:      *domain,
		HostingProvider: *hosting,
		CMSType:         *cms,
		ProjectStage:    *stage,
		MaintenancePlan: *maintenance,
	}
	if in.Start, err = parseOptionalDate(*start); err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	if in.Finish, err = parseOptionalDate(*finish); err != nil {
		return fmt.Errorf("--finish: %w", err)
	}
	if in.RenewalDate, err = parseOptionalDate(*renewal); err != nil {
		return fmt.Errorf("--renewal: %w", err)
	}

	client, err := st.ConvertToClient(ctx, leadID, in)
	if err != nil {
		return err
	}
	if client.ID != "" {
		fmt.Fprintf(out, "✓ Client created: %s (ID: %s)\n", client.BusinessName, client.ID)
		fmt.Fprintf(out, "  Onboarding: %s  Deadline: %s\n", client.Onboarding, client.Deadline)
	}
	printNotice(st)
	return nil
}

// ListClientsCommand lists active clients
func ListClientsCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("list-clients")
	if err := fs.Parse(args); err != nil {
		return err
	}

	clients := st.Pipeline().Clients
	if len(clients) == 0 {
		fmt.Fprintln(out, "No clients found")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "BUSINESS\tTYPE\tDEADLINE\tSTAGE\tPAID\tID")
	fmt.Fprintln(w, "--------\t----\t--------\t-----\t----\t--")
	for _, c := range clients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.BusinessName, orDash(c.BusinessType), orDash(c.Deadline.String()),
			orDash(c.ProjectStage), metrics.FormatMoney(c.PaymentCollected), c.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal: %d client(s)\n", len(clients))
	return nil
}

// AddPaymentCommand adds a payment to a client's collected total
func AddPaymentCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("add-payment")
	id := fs.String("id", "", "Client ID (required)")
	amount := fs.String("amount", "", "Payment amount (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	clientID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	value, err := strconv.ParseFloat(*amount, 64)
	if err != nil {
		return fmt.Errorf("--amount must be a number")
	}
	if err := store.ValidatePaymentAmount(value); err != nil {
		return err
	}

	client, err := st.UpdatePayment(ctx, clientID, value)
	if err != nil {
		return err
	}
	if client.ID != "" {
		fmt.Fprintf(out, "✓ Payment recorded: %s now %s\n", client.BusinessName, metrics.FormatMoney(client.PaymentCollected))
	}
	if st.Celebrating() {
		if goal := st.Snapshot().Goal; goal != nil {
			fmt.Fprintf(out, "🎉 Goal achieved: %s (%s)\n", goal.Title, metrics.FormatMoney(goal.TargetAmount))
		}
		st.DismissCelebration()
	}
	printNotice(st)
	return nil
}

// SetStageCommand moves a client to another project stage
func SetStageCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("set-stage")
	id := fs.String("id", "", "Client ID (required)")
	stage := fs.String("stage", "", "Discovery, Design, Development, UAT, or Launched")
	if err := fs.Parse(args); err != nil {
		return err
	}
	clientID, err := requireID(fs, *id)
	if err != nil {
		return err
	}
	if !models.IsValidProjectStage(*stage) {
		return fmt.Errorf("invalid stage %q", *stage)
	}

	client, err := st.SetProjectStage(ctx, clientID, *stage)
	if err != nil {
		return err
	}
	if client.ID != "" {
		fmt.Fprintf(out, "✓ %s moved to %s\n", client.BusinessName, client.ProjectStage)
	}
	printNotice(st)
	return nil
}

// CompleteClientCommand marks a client's project complete, making it a customer
func CompleteClientCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("complete-client")
	id := fs.String("id", "", "Client ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	clientID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	customer, err := st.MarkClientCompleted(ctx, clientID)
	if err != nil {
		return err
	}
	if customer.ID != "" {
		fmt.Fprintf(out, "✓ Project completed: %s (customer ID: %s)\n", customer.BusinessName, customer.ID)
		fmt.Fprintf(out, "  Total paid: %s\n", metrics.FormatMoney(customer.TotalPaid))
	}
	printNotice(st)
	return nil
}

// DeleteClientCommand deletes a client
func DeleteClientCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("delete-client")
	id := fs.String("id", "", "Client ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	clientID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	if err := st.DeleteClient(ctx, clientID); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Client deleted: %s\n", clientID)
	printNotice(st)
	return nil
}

// ListCustomersCommand lists completed customers
func ListCustomersCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("list-customers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	customers := st.Pipeline().Customers
	if len(customers) == 0 {
		fmt.Fprintln(out, "No customers found")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "BUSINESS\tCOMPLETED\tTOTAL PAID\tDOMAIN\tID")
	fmt.Fprintln(w, "--------\t---------\t----------\t------\t--")
	for _, c := range customers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.BusinessName, orDash(c.CompletedDate.String()), metrics.FormatMoney(c.TotalPaid), orDash(c.DomainName), c.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal: %d customer(s)\n", len(customers))
	return nil
}

// DeleteCustomerCommand deletes a customer
func DeleteCustomerCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("delete-customer")
	id := fs.String("id", "", "Customer ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	customerID, err := requireID(fs, *id)
	if err != nil {
		return err
	}

	if err := st.DeleteCustomer(ctx, customerID); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Customer deleted: %s\n", customerID)
	printNotice(st)
	return nil
}

// ExportCustomerCommand writes one customer, or all with --all, as CSV
func ExportCustomerCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("export-customer")
	id := fs.String("id", "", "Customer ID")
	all := fs.Bool("all", false, "Export every customer")
	output := fs.String("output", "", "Output file (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *all {
		customers := st.Pipeline().Customers
		path := *output
		if path == "" {
			path = report.CustomersFileName
		}
		return writeOutput(path, func(w io.Writer) error {
			return report.WriteCustomersCSV(w, customers)
		}, fmt.Sprintf("%d customer(s)", len(customers)))
	}

	customerID, err := requireID(fs, *id)
	if err != nil {
		return err
	}
	customer, ok := st.FindCustomer(customerID)
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrUnknownCustomer, customerID)
	}

	path := *output
	if path == "" {
		path = report.CustomerFileName(customer)
	}
	return writeOutput(path, func(w io.Writer) error {
		return report.WriteCustomerCSV(w, customer)
	}, customer.BusinessName)
}
