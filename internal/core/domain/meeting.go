package domain

import (
	"fmt"
	"time"
)

// Accepted layouts for Meeting.Date and Todo.DueDate.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// Meeting is a dated note about a contact.
// ContactID is a foreign key by value; nothing enforces that the contact exists.
type Meeting struct {
	ID          string       `json:"id"`
	ContactID   string       `json:"contactId" validate:"required"`
	Date        string       `json:"date" validate:"required"`
	Content     string       `json:"content,omitempty"`
	Todos       []Todo       `json:"todos,omitempty" validate:"dive"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Todo is a follow-up item recorded in a meeting.
type Todo struct {
	Text      string `json:"text" validate:"required"`
	Completed bool   `json:"completed"`
	DueDate   string `json:"dueDate,omitempty"`
}

// ParseMeetingDate parses a date in either accepted layout.
func ParseMeetingDate(s string) (time.Time, error) {
	for _, layout := range []string{DateTimeLayout, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or YYYY-MM-DDTHH:MM", ErrInvalidInput, s)
}

// MeetingsFile is the on-disk form of meetings/contact-<id>-meetings.json.
type MeetingsFile struct {
	ContactID string    `json:"contactId"`
	Meetings  []Meeting `json:"meetings"`
}
