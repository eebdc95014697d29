package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
)

// Ensure Repository implements the interface.
var _ driving.Dataset = (*Repository)(nil)

// Repository owns the in-memory contacts, meetings and tag options.
// Mutations only touch memory; StorageService persists them on request.
type Repository struct {
	mu       sync.RWMutex
	contacts []domain.Contact
	meetings []domain.Meeting
	options  domain.Options

	now   func() time.Time
	newID func() string
}

// ContactFilter narrows FindContacts. Empty fields match everything.
type ContactFilter struct {
	Type             string
	Affiliation      string
	IndustryInterest string
	Status           string
	// Query matches name, furigana, company and e-mail addresses.
	Query string
}

// PendingTodo is an open todo together with where it lives.
type PendingTodo struct {
	MeetingID string
	ContactID string
	Index     int
	Date      string
	Todo      domain.Todo
}

// NewRepository creates a repository from loaded collections.
// Options are grown with every tag already used by the contacts.
func NewRepository(contacts []domain.Contact, meetings []domain.Meeting, options domain.Options) *Repository {
	r := &Repository{
		contacts: append([]domain.Contact(nil), contacts...),
		meetings: append([]domain.Meeting(nil), meetings...),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		newID:    uuid.NewString,
	}
	for _, kind := range domain.OptionKinds {
		r.options.SetValues(kind, dedupeTags(options.Values(kind)))
	}
	for i := range r.contacts {
		r.growOptions(&r.contacts[i])
	}
	return r
}

// SetClock overrides the timestamp source. Used by tests.
func (r *Repository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// SetIDGenerator overrides the meeting ID source. Used by tests.
func (r *Repository) SetIDGenerator(newID func() string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newID = newID
}

// Contacts returns a copy of all contacts in insertion order.
func (r *Repository) Contacts() []domain.Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Contact(nil), r.contacts...)
}

// Meetings returns a copy of all meetings.
func (r *Repository) Meetings() []domain.Meeting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Meeting(nil), r.meetings...)
}

// Options returns a copy of the tag options.
func (r *Repository) Options() domain.Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out domain.Options
	for _, kind := range domain.OptionKinds {
		out.SetValues(kind, append([]string(nil), r.options.Values(kind)...))
	}
	return out
}

// NextContactID returns the next sequential contact ID.
func (r *Repository) NextContactID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextContactID()
}

func (r *Repository) nextContactID() string {
	highest := 0
	for i := range r.contacts {
		if n, ok := domain.ParseContactSequence(r.contacts[i].ID); ok && n > highest {
			highest = n
		}
	}
	return domain.FormatContactID(highest + 1)
}

// AddContact validates and stores a new contact.
// An empty ID is replaced with the next sequential ID.
func (r *Repository) AddContact(c domain.Contact) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = r.nextContactID()
	}
	if err := r.prepareContact(&c); err != nil {
		return domain.Contact{}, err
	}
	if r.contactIndex(c.ID) >= 0 {
		return domain.Contact{}, fmt.Errorf("contact %s: %w", c.ID, domain.ErrAlreadyExists)
	}

	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	r.contacts = append(r.contacts, c)
	r.growOptions(&c)
	return c, nil
}

// UpdateContact replaces a stored contact wholesale. Fields are not merged.
func (r *Repository) UpdateContact(c domain.Contact) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.contactIndex(c.ID)
	if idx < 0 {
		return domain.Contact{}, fmt.Errorf("contact %s: %w", c.ID, domain.ErrNotFound)
	}
	if err := r.prepareContact(&c); err != nil {
		return domain.Contact{}, err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.contacts[idx].CreatedAt
	}
	c.UpdatedAt = r.now()

	r.contacts[idx] = c
	r.growOptions(&c)
	return c, nil
}

// GetContact returns a copy of the contact with the given ID.
func (r *Repository) GetContact(id string) (*domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.contactIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
	}
	c := r.contacts[idx]
	return &c, nil
}

// FindContacts returns contacts matching every non-empty filter field.
func (r *Repository) FindContacts(f ContactFilter) []domain.Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := NormalizeTag(f.Query)
	var out []domain.Contact
	for i := range r.contacts {
		c := &r.contacts[i]
		if !hasTag(c.Types, f.Type) || !hasTag(c.Affiliations, f.Affiliation) ||
			!hasTag(c.IndustryInterests, f.IndustryInterest) {
			continue
		}
		if f.Status != "" && NormalizeTag(c.Status) != NormalizeTag(f.Status) {
			continue
		}
		if query != "" && !contactMatches(c, query) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// RemoveContact deletes a contact and every meeting that references it.
// It returns the removed meetings.
func (r *Repository) RemoveContact(id string) ([]domain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.contactIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("contact %s: %w", id, domain.ErrNotFound)
	}
	r.contacts = append(r.contacts[:idx], r.contacts[idx+1:]...)

	var removed []domain.Meeting
	kept := r.meetings[:0]
	for _, m := range r.meetings {
		if m.ContactID == id {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	r.meetings = kept
	return removed, nil
}

// AddMeeting validates and stores a new meeting.
// The contact is not required to exist.
func (r *Repository) AddMeeting(m domain.Meeting) (domain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		m.ID = r.newID()
	}
	if err := prepareMeeting(&m); err != nil {
		return domain.Meeting{}, err
	}
	if r.meetingIndex(m.ID) >= 0 {
		return domain.Meeting{}, fmt.Errorf("meeting %s: %w", m.ID, domain.ErrAlreadyExists)
	}

	now := r.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	r.meetings = append(r.meetings, m)
	return m, nil
}

// UpdateMeeting replaces a stored meeting wholesale.
func (r *Repository) UpdateMeeting(m domain.Meeting) (domain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.meetingIndex(m.ID)
	if idx < 0 {
		return domain.Meeting{}, fmt.Errorf("meeting %s: %w", m.ID, domain.ErrNotFound)
	}
	if err := prepareMeeting(&m); err != nil {
		return domain.Meeting{}, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.meetings[idx].CreatedAt
	}
	m.UpdatedAt = r.now()

	r.meetings[idx] = m
	return m, nil
}

// GetMeeting returns a copy of the meeting with the given ID.
func (r *Repository) GetMeeting(id string) (*domain.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.meetingIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	m := r.meetings[idx]
	return &m, nil
}

// RemoveMeeting deletes a meeting and returns it.
func (r *Repository) RemoveMeeting(id string) (*domain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.meetingIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	m := r.meetings[idx]
	r.meetings = append(r.meetings[:idx], r.meetings[idx+1:]...)
	return &m, nil
}

// MeetingsFor returns a contact's meetings, newest first.
func (r *Repository) MeetingsFor(contactID string) []domain.Meeting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Meeting
	for _, m := range r.meetings {
		if m.ContactID == contactID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// SetTodoCompleted marks the todo at index within a meeting.
func (r *Repository) SetTodoCompleted(meetingID string, index int, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.meetingIndex(meetingID)
	if idx < 0 {
		return fmt.Errorf("meeting %s: %w", meetingID, domain.ErrNotFound)
	}
	m := &r.meetings[idx]
	if index < 0 || index >= len(m.Todos) {
		return fmt.Errorf("%w: meeting %s has no todo #%d", domain.ErrInvalidInput, meetingID, index+1)
	}

	todos := append([]domain.Todo(nil), m.Todos...)
	todos[index].Completed = completed
	m.Todos = todos
	m.UpdatedAt = r.now()
	return nil
}

// PendingTodos returns every uncompleted todo, ordered by due date then meeting date.
// Todos without a due date sort last.
func (r *Repository) PendingTodos() []PendingTodo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []PendingTodo
	for _, m := range r.meetings {
		for i, t := range m.Todos {
			if t.Completed {
				continue
			}
			out = append(out, PendingTodo{
				MeetingID: m.ID,
				ContactID: m.ContactID,
				Index:     i,
				Date:      m.Date,
				Todo:      t,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Todo.DueDate, out[j].Todo.DueDate
		if (a == "") != (b == "") {
			return b == ""
		}
		if a != b {
			return a < b
		}
		return out[i].Date < out[j].Date
	})
	return out
}

// AddOption adds a tag value unless a normalised equivalent exists.
// It reports whether the value was added.
func (r *Repository) AddOption(kind domain.OptionKind, value string) (bool, error) {
	if !kind.IsValid() {
		return false, fmt.Errorf("option kind %q: %w", kind, domain.ErrUnsupportedType)
	}
	if CleanTag(value) == "" {
		return false, fmt.Errorf("%w: empty option value", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, added := mergeTags(r.options.Values(kind), value)
	r.options.SetValues(kind, values)
	return added, nil
}

// CleanupUnusedOptions drops tag values no contact references and
// returns what was removed per kind.
func (r *Repository) CleanupUnusedOptions() map[domain.OptionKind][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make(map[domain.OptionKind][]string)
	for _, kind := range domain.OptionKinds {
		used := make(map[string]struct{})
		for i := range r.contacts {
			for _, v := range r.contacts[i].Tags(kind) {
				used[NormalizeTag(v)] = struct{}{}
			}
		}

		var kept []string
		for _, v := range r.options.Values(kind) {
			if _, ok := used[NormalizeTag(v)]; ok {
				kept = append(kept, v)
				continue
			}
			removed[kind] = append(removed[kind], v)
		}
		r.options.SetValues(kind, kept)
	}
	return removed
}

// prepareContact cleans and validates a contact in place.
func (r *Repository) prepareContact(c *domain.Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Types = dedupeTags(c.Types)
	c.Affiliations = dedupeTags(c.Affiliations)
	c.IndustryInterests = dedupeTags(c.IndustryInterests)

	if err := domain.ValidateEntityID(c.ID); err != nil {
		return err
	}
	return validateEntity(c)
}

func prepareMeeting(m *domain.Meeting) error {
	if err := domain.ValidateEntityID(m.ID); err != nil {
		return err
	}
	if err := validateEntity(m); err != nil {
		return err
	}
	if _, err := domain.ParseMeetingDate(m.Date); err != nil {
		return err
	}
	for _, t := range m.Todos {
		if t.DueDate == "" {
			continue
		}
		if _, err := domain.ParseMeetingDate(t.DueDate); err != nil {
			return err
		}
	}
	return nil
}

// growOptions adds any new tag values used by c (caller must hold lock).
func (r *Repository) growOptions(c *domain.Contact) {
	for _, kind := range domain.OptionKinds {
		values, _ := mergeTags(r.options.Values(kind), c.Tags(kind)...)
		r.options.SetValues(kind, values)
	}
}

func (r *Repository) contactIndex(id string) int {
	for i := range r.contacts {
		if r.contacts[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) meetingIndex(id string) int {
	for i := range r.meetings {
		if r.meetings[i].ID == id {
			return i
		}
	}
	return -1
}

func hasTag(values []string, want string) bool {
	if want == "" {
		return true
	}
	key := NormalizeTag(want)
	for _, v := range values {
		if NormalizeTag(v) == key {
			return true
		}
	}
	return false
}

func contactMatches(c *domain.Contact, query string) bool {
	fields := append([]string{c.Name, c.Furigana, c.Company}, c.Emails...)
	for _, f := range fields {
		if strings.Contains(NormalizeTag(f), query) {
			return true
		}
	}
	return false
}
