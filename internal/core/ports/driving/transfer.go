package driving

import (
	"io"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

// ImportReport summarises a CSV import.
type ImportReport struct {
	Created int
	Updated int
	Skipped int
	// Errors holds one message per skipped row.
	Errors []string
	// ContactIDs lists the IDs that were created or updated.
	ContactIDs []string
}

// ParsedCSV is the result of reading contacts from CSV.
type ParsedCSV struct {
	Contacts []domain.Contact
	// Columns lists the recognised headers in their export spelling.
	// Import only overwrites these fields on existing contacts.
	Columns []string
	// Problems holds one message per rejected row.
	Problems []string
}

// TransferService exports and imports contacts as CSV.
type TransferService interface {
	// ExportCSV writes contacts with the fixed column order.
	ExportCSV(w io.Writer, contacts []domain.Contact) error

	// ParseCSV reads contacts from CSV. Rows with a blank ID get an empty ID.
	ParseCSV(r io.Reader) (*ParsedCSV, error)
}
