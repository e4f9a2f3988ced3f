// ABOUTME: Full-state JSON export and CSV export/import of leads and customers
// ABOUTME: Produces crm-report.json and the customer and lead CSV formats
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/harperreed/agencycrm/models"
)

// File names offered for downloads.
const (
	ReportFileName    = "crm-report.json"
	CustomersFileName = "customers.csv"
	LeadsFileName     = "leads.csv"
)

var (
	customerHeader = []string{"Business Name", "Completed Date", "Total Paid"}
	leadHeader     = []string{"businessName", "contact", "comment"}
)

// Export is the JSON shape of a full-state report. Leads holds new and saved leads together.
type Export struct {
	Leads         []models.Lead     `json:"leads"`
	Clients       []models.Client   `json:"clients"`
	Customers     []models.Customer `json:"customers"`
	Goal          *models.Goal      `json:"goal"`
	PreviousGoals []models.Goal     `json:"previousGoals"`
}

// NewExport assembles the report from a pipeline snapshot.
func NewExport(p models.Pipeline) Export {
	e := Export{
		Leads:         p.AllLeads(),
		Clients:       p.Clients,
		Customers:     p.Customers,
		Goal:          p.Goal,
		PreviousGoals: p.PreviousGoals,
	}
	if e.Clients == nil {
		e.Clients = []models.Client{}
	}
	if e.Customers == nil {
		e.Customers = []models.Customer{}
	}
	if e.PreviousGoals == nil {
		e.PreviousGoals = []models.Goal{}
	}
	return e
}

// WriteJSON writes the full-state report as indented JSON.
func WriteJSON(w io.Writer, p models.Pipeline) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewExport(p)); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteCustomerCSV writes a single customer with the customer header row.
func WriteCustomerCSV(w io.Writer, c models.Customer) error {
	return WriteCustomersCSV(w, []models.Customer{c})
}

// WriteCustomersCSV writes every customer under one header row.
func WriteCustomersCSV(w io.Writer, customers []models.Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(customerHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range customers {
		row := []string{
			c.BusinessName,
			c.CompletedDate.String(),
			strconv.FormatFloat(c.TotalPaid, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write customer %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CustomerFileName names the single-customer CSV download.
func CustomerFileName(c models.Customer) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		}
		return -1
	}, strings.TrimSpace(c.BusinessName))
	if name == "" {
		name = "customer"
	}
	return name + "_report.csv"
}

// WriteLeadsCSV writes leads in the import format.
func WriteLeadsCSV(w io.Writer, leads []models.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(leadHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, l := range leads {
		if err := cw.Write([]string{l.BusinessName, l.Contact, l.Comment}); err != nil {
			return fmt.Errorf("failed to write lead %s: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLeadsCSV parses the three-column lead format. The first row is a header and is
// skipped, as are blank rows. Missing trailing columns read as empty strings.
// Business name and contact are trimmed; the comment is kept verbatim.
func ReadLeadsCSV(r io.Reader) ([]models.Lead, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var leads []models.Lead
	line := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line++
		if line == 1 {
			continue
		}
		if blank(record) {
			continue
		}

		fields := make([]string, 3)
		copy(fields, record)
		// Names and contacts are trimmed; comments are kept as written.
		fields[0] = strings.TrimSpace(fields[0])
		fields[1] = strings.TrimSpace(fields[1])
		if fields[0] == "" {
			continue
		}
		leads = append(leads, models.Lead{
			BusinessName: fields[0],
			Contact:      fields[1],
			Comment:      fields[2],
			Status:       models.LeadStatusNew,
		})
	}
	return leads, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
