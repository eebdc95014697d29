package services

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Ensure TransferService implements the interface.
var _ driving.TransferService = (*TransferService)(nil)

// utf8BOM lets spreadsheet applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// listSeparator joins multi-valued fields inside one cell.
const listSeparator = ";"

// csvColumn maps one export column onto a contact field.
type csvColumn struct {
	header string
	get    func(c *domain.Contact) string
	set    func(c *domain.Contact, v string) error
}

var csvColumns = []csvColumn{
	textColumn("ID", func(c *domain.Contact) *string { return &c.ID }),
	textColumn("name", func(c *domain.Contact) *string { return &c.Name }),
	textColumn("furigana", func(c *domain.Contact) *string { return &c.Furigana }),
	textColumn("company", func(c *domain.Contact) *string { return &c.Company }),
	textColumn("position", func(c *domain.Contact) *string { return &c.Position }),
	listColumn("email", func(c *domain.Contact) *[]string { return &c.Emails }),
	listColumn("phone", func(c *domain.Contact) *[]string { return &c.Phones }),
	listColumn("types", func(c *domain.Contact) *[]string { return &c.Types }),
	listColumn("affiliations", func(c *domain.Contact) *[]string { return &c.Affiliations }),
	listColumn("industryInterests", func(c *domain.Contact) *[]string { return &c.IndustryInterests }),
	{header: "revenue", get: formatRevenue, set: parseRevenue},
	textColumn("referrer", func(c *domain.Contact) *string { return &c.Referrer }),
	textColumn("status", func(c *domain.Contact) *string { return &c.Status }),
	textColumn("business", func(c *domain.Contact) *string { return &c.Business }),
	textColumn("history", func(c *domain.Contact) *string { return &c.History }),
	timeColumn("createdAt", func(c *domain.Contact) *time.Time { return &c.CreatedAt }),
	timeColumn("updatedAt", func(c *domain.Contact) *time.Time { return &c.UpdatedAt }),
}

func textColumn(header string, field func(c *domain.Contact) *string) csvColumn {
	return csvColumn{
		header: header,
		get:    func(c *domain.Contact) string { return *field(c) },
		set: func(c *domain.Contact, v string) error {
			*field(c) = v
			return nil
		},
	}
}

func listColumn(header string, field func(c *domain.Contact) *[]string) csvColumn {
	return csvColumn{
		header: header,
		get:    func(c *domain.Contact) string { return strings.Join(*field(c), listSeparator) },
		set: func(c *domain.Contact, v string) error {
			var values []string
			for _, part := range strings.Split(v, listSeparator) {
				if part = strings.TrimSpace(part); part != "" {
					values = append(values, part)
				}
			}
			*field(c) = values
			return nil
		},
	}
}

func timeColumn(header string, field func(c *domain.Contact) *time.Time) csvColumn {
	return csvColumn{
		header: header,
		get: func(c *domain.Contact) string {
			t := *field(c)
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		},
		set: func(c *domain.Contact, v string) error {
			if v == "" {
				return nil
			}
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return fmt.Errorf("%w: timestamp %q", domain.ErrInvalidInput, v)
			}
			*field(c) = t.UTC()
			return nil
		},
	}
}

func formatRevenue(c *domain.Contact) string {
	if c.Revenue == 0 {
		return ""
	}
	return strconv.FormatFloat(c.Revenue, 'f', -1, 64)
}

func parseRevenue(c *domain.Contact, v string) error {
	v = strings.ReplaceAll(v, ",", "")
	if v == "" {
		c.Revenue = 0
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: revenue %q", domain.ErrInvalidInput, v)
	}
	c.Revenue = f
	return nil
}

// TransferService converts contacts to and from CSV.
type TransferService struct{}

// NewTransferService creates a CSV transfer service.
func NewTransferService() *TransferService {
	return &TransferService{}
}

// ExportCSV writes a BOM, the header row and one row per contact.
func (s *TransferService) ExportCSV(w io.Writer, contacts []domain.Contact) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(csvColumns))
	for i, col := range csvColumns {
		header[i] = col.header
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(csvColumns))
	for i := range contacts {
		for j, col := range csvColumns {
			row[j] = col.get(&contacts[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write contact %s: %w", contacts[i].ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ParseCSV reads contacts from CSV produced by ExportCSV or a spreadsheet.
// Columns are matched by header name, case-insensitively, and unknown
// columns are ignored. Rows that fail to parse are skipped and described
// in the result's problems.
func (s *TransferService) ParseCSV(r io.Reader) (*driving.ParsedCSV, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	byName := make(map[string]csvColumn, len(csvColumns))
	for _, col := range csvColumns {
		byName[strings.ToLower(col.header)] = col
	}
	parsed := &driving.ParsedCSV{}
	mapped := make([]*csvColumn, len(header))
	hasName := false
	for i, h := range header {
		if col, ok := byName[strings.ToLower(strings.TrimSpace(h))]; ok {
			mapped[i] = &col
			parsed.Columns = append(parsed.Columns, col.header)
			hasName = hasName || col.header == "name"
		}
	}
	if !hasName {
		return nil, fmt.Errorf("%w: CSV has no name column", domain.ErrInvalidInput)
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			parsed.Problems = append(parsed.Problems, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if blankRecord(record) {
			continue
		}

		var c domain.Contact
		if err := fillContact(&c, mapped, record); err != nil {
			parsed.Problems = append(parsed.Problems, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		parsed.Contacts = append(parsed.Contacts, c)
	}

	logger.Debug("parsed %d contacts from CSV, %d rows rejected", len(parsed.Contacts), len(parsed.Problems))
	return parsed, nil
}

func fillContact(c *domain.Contact, mapped []*csvColumn, record []string) error {
	for i, value := range record {
		if i >= len(mapped) || mapped[i] == nil {
			continue
		}
		if err := mapped[i].set(c, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s: %w", mapped[i].header, err)
		}
	}
	return nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportContacts upserts parsed contacts into the repository. Contacts
// with a blank or unknown ID are added, blank ones getting the next
// sequential ID. Existing contacts keep every field the CSV has no column
// for. Rows rejected by validation are counted as skipped.
func ImportContacts(repo *Repository, parsed *driving.ParsedCSV) driving.ImportReport {
	report := driving.ImportReport{
		Skipped: len(parsed.Problems),
		Errors:  append([]string(nil), parsed.Problems...),
	}

	for _, c := range parsed.Contacts {
		saved, created, err := importContact(repo, c, parsed.Columns)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", displayName(c), err))
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
		report.ContactIDs = append(report.ContactIDs, saved.ID)
	}
	return report
}

func importContact(repo *Repository, c domain.Contact, columns []string) (domain.Contact, bool, error) {
	if c.ID == "" {
		added, err := repo.AddContact(c)
		return added, true, err
	}
	existing, err := repo.GetContact(c.ID)
	if errors.Is(err, domain.ErrNotFound) {
		added, err := repo.AddContact(c)
		return added, true, err
	}
	if err != nil {
		return domain.Contact{}, false, err
	}

	if err := mergeColumns(existing, &c, columns); err != nil {
		return domain.Contact{}, false, err
	}
	updated, err := repo.UpdateContact(*existing)
	return updated, false, err
}

// mergeColumns copies the named CSV columns from src onto dst.
func mergeColumns(dst, src *domain.Contact, columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, h := range columns {
		present[h] = true
	}
	for _, col := range csvColumns {
		if !present[col.header] {
			continue
		}
		if err := col.set(dst, col.get(src)); err != nil {
			return fmt.Errorf("%s: %w", col.header, err)
		}
	}
	return nil
}

func displayName(c domain.Contact) string {
	if c.ID != "" {
		return c.ID
	}
	if c.Name != "" {
		return c.Name
	}
	return "unnamed contact"
}
