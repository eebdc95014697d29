package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ContactIDWidth is the zero-padded width of sequential contact IDs.
const ContactIDWidth = 6

var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Contact is a person tracked by rolodex.
// The JSON form is the on-disk format of contacts/contact-<id>.json.
type Contact struct {
	// ID is unique within the contact collection.
	// New contacts receive a zero-padded sequence; legacy IDs are kept as-is.
	ID string `json:"id"`

	Name     string `json:"name" validate:"required"`
	Furigana string `json:"furigana,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`

	Emails []string `json:"emails,omitempty" validate:"dive,email"`
	Phones []string `json:"phones,omitempty"`

	// Free-text fields.
	Business  string `json:"business,omitempty"`
	History   string `json:"history,omitempty"`
	PriorInfo string `json:"priorInfo,omitempty"`

	// Category tags. Values are mirrored into Options when saved.
	Types             []string `json:"types,omitempty"`
	Affiliations      []string `json:"affiliations,omitempty"`
	IndustryInterests []string `json:"industryInterests,omitempty"`

	Photo        FileRef      `json:"photo,omitempty"`
	BusinessCard FileRef      `json:"businessCard,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`

	Revenue float64 `json:"revenue,omitempty" validate:"gte=0"`

	// Referrer is the display name of another contact, not an ID.
	Referrer string `json:"referrer,omitempty"`
	Status   string `json:"status,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tags returns the contact's tag values for the given option kind.
func (c *Contact) Tags(kind OptionKind) []string {
	switch kind {
	case OptionTypes:
		return c.Types
	case OptionAffiliations:
		return c.Affiliations
	case OptionIndustryInterests:
		return c.IndustryInterests
	default:
		return nil
	}
}

// ValidateEntityID reports whether id is safe to embed in a filename.
func ValidateEntityID(id string) error {
	if !entityIDPattern.MatchString(id) {
		return fmt.Errorf("%w: id %q must match [A-Za-z0-9_-]+", ErrInvalidInput, id)
	}
	return nil
}

// FormatContactID renders a sequence number as a contact ID.
func FormatContactID(n int) string {
	return fmt.Sprintf("%0*d", ContactIDWidth, n)
}

// ParseContactSequence returns the numeric value of a sequential contact ID.
// Legacy IDs that are not purely numeric report false.
func ParseContactSequence(id string) (int, bool) {
	if id == "" || strings.TrimLeft(id, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, false
	}
	return n, true
}
