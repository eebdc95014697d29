package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
)

const exportHeader = "ID,name,furigana,company,position,email,phone,types,affiliations," +
	"industryInterests,revenue,referrer,status,business,history,createdAt,updatedAt"

func TestTransferService_ExportCSV(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	contacts := []domain.Contact{{
		ID:        "000001",
		Name:      "田中太郎",
		Company:   "Tanaka, Inc.",
		Emails:    []string{"a@example.com", "b@example.com"},
		Types:     []string{"Client", "VIP"},
		Revenue:   1500000,
		CreatedAt: created,
		UpdatedAt: created,
	}}

	var buf bytes.Buffer
	require.NoError(t, NewTransferService().ExportCSV(&buf, contacts))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, utf8BOM), "output starts with a BOM")

	lines := strings.Split(strings.TrimSuffix(string(out[len(utf8BOM):]), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, exportHeader, lines[0])
	assert.Equal(t,
		`000001,田中太郎,,"Tanaka, Inc.",,a@example.com;b@example.com,,Client;VIP,,,1500000,,,,,`+
			`2024-01-02T03:04:05Z,2024-01-02T03:04:05Z`,
		lines[1])
}

func TestTransferService_ExportCSV_NoContacts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTransferService().ExportCSV(&buf, nil))

	assert.Equal(t, string(utf8BOM)+exportHeader+"\n", buf.String())
}

func TestTransferService_RoundTrip(t *testing.T) {
	stamp := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	contacts := []domain.Contact{
		{
			ID: "000001", Name: "田中太郎", Furigana: "たなかたろう", Company: "Tanaka Shoji",
			Position: "CEO", Emails: []string{"taro@example.com"}, Phones: []string{"03-0000-0000", "090-0000-0000"},
			Types: []string{"Client"}, Affiliations: []string{"Rotary"}, IndustryInterests: []string{"Fintech"},
			Revenue: 12.5, Referrer: "Jane", Status: "active", Business: "trading", History: "met 2020\nagain 2021",
			CreatedAt: stamp, UpdatedAt: stamp,
		},
		{ID: "000002", Name: "Jane Doe", CreatedAt: stamp, UpdatedAt: stamp},
	}

	svc := NewTransferService()
	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(&buf, contacts))

	parsed, err := svc.ParseCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, parsed.Problems)
	assert.Len(t, parsed.Columns, 17)
	if diff := cmp.Diff(contacts, parsed.Contacts); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTransferService_ParseCSV_HeaderMapping(t *testing.T) {
	input := "Name,EMAIL,notes,Types,ID\n" +
		"Jane Doe, jane@example.com ; j@example.com ,ignored, client;;partner ,\n" +
		",,,,\n"

	parsed, err := NewTransferService().ParseCSV(strings.NewReader(input))

	require.NoError(t, err)
	assert.Empty(t, parsed.Problems)
	assert.Equal(t, []string{"name", "email", "types", "ID"}, parsed.Columns)
	got := parsed.Contacts
	require.Len(t, got, 1)
	assert.Equal(t, "Jane Doe", got[0].Name)
	assert.Empty(t, got[0].ID)
	assert.Equal(t, []string{"jane@example.com", "j@example.com"}, got[0].Emails)
	assert.Equal(t, []string{"client", "partner"}, got[0].Types)
}

func TestTransferService_ParseCSV_BadRows(t *testing.T) {
	input := "name,revenue,createdAt\n" +
		"A,100,\n" +
		"B,lots,\n" +
		"C,,yesterday\n" +
		"D,\"1,000\",\n"

	parsed, err := NewTransferService().ParseCSV(strings.NewReader(input))

	require.NoError(t, err)
	got, problems := parsed.Contacts, parsed.Problems
	require.Len(t, got, 2)
	assert.Equal(t, float64(100), got[0].Revenue)
	assert.Equal(t, float64(1000), got[1].Revenue)
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], "row 3")
	assert.Contains(t, problems[1], "row 4")
}

func TestTransferService_ParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"only BOM", string(utf8BOM)},
		{"no name column", "ID,company\n1,Acme\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransferService().ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestImportContacts(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.AddContact(domain.Contact{Name: "Existing", Company: "Old"})
	require.NoError(t, err)

	report := ImportContacts(repo, &driving.ParsedCSV{
		Contacts: []domain.Contact{
			{ID: "000001", Name: "Existing", Company: "New"},
			{Name: "田中太郎"},
			{Name: ""},
		},
		Columns:  []string{"ID", "name", "company"},
		Problems: []string{"row 9: bad revenue"},
	})

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, report.Errors, 2)
	assert.Equal(t, []string{"000001", "000002"}, report.ContactIDs)

	got, err := repo.GetContact("000001")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Company)
}

func TestImportContacts_UnknownIDIsAdded(t *testing.T) {
	repo := newTestRepository(t)

	report := ImportContacts(repo, &driving.ParsedCSV{
		Contacts: []domain.Contact{{ID: "legacy_7", Name: "Legacy"}},
		Columns:  []string{"ID", "name"},
	})

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, []string{"legacy_7"}, report.ContactIDs)
}

func TestImportContacts_KeepsFieldsWithoutColumns(t *testing.T) {
	tests := []struct {
		name  string
		input func(t *testing.T, repo *Repository) string
		check func(t *testing.T, got *domain.Contact)
	}{
		{
			name: "export then import",
			input: func(t *testing.T, repo *Repository) string {
				var buf bytes.Buffer
				require.NoError(t, NewTransferService().ExportCSV(&buf, repo.Contacts()))
				return buf.String()
			},
			check: func(t *testing.T, got *domain.Contact) {
				assert.Equal(t, "Tanaka Shoji", got.Company)
				assert.Equal(t, []string{"taro@example.com"}, got.Emails)
			},
		},
		{
			name: "partial spreadsheet",
			input: func(t *testing.T, repo *Repository) string {
				return "ID,name,status\n000001,田中太郎,active\n"
			},
			check: func(t *testing.T, got *domain.Contact) {
				assert.Equal(t, "active", got.Status)
				assert.Equal(t, "Tanaka Shoji", got.Company)
				assert.Equal(t, []string{"taro@example.com"}, got.Emails)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t)
			added, err := repo.AddContact(domain.Contact{
				Name:         "田中太郎",
				Company:      "Tanaka Shoji",
				Emails:       []string{"taro@example.com"},
				PriorInfo:    "met at expo",
				Photo:        domain.FileRef("drive:photo1"),
				BusinessCard: domain.FileRef("drive:card1"),
				Attachments:  []domain.Attachment{{Name: "card.pdf", Ref: domain.FileRef("drive:att1")}},
			})
			require.NoError(t, err)

			parsed, err := NewTransferService().ParseCSV(strings.NewReader(tt.input(t, repo)))
			require.NoError(t, err)
			report := ImportContacts(repo, parsed)
			assert.Equal(t, 1, report.Updated)
			assert.Zero(t, report.Created)

			got, err := repo.GetContact("000001")
			require.NoError(t, err)
			assert.Equal(t, "met at expo", got.PriorInfo)
			assert.Equal(t, added.Photo, got.Photo)
			assert.Equal(t, added.BusinessCard, got.BusinessCard)
			assert.Equal(t, added.Attachments, got.Attachments)
			assert.Equal(t, added.CreatedAt, got.CreatedAt)
			tt.check(t, got)
		})
	}
}
