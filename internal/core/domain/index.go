package domain

import "time"

// Index and metadata filenames inside the index folder.
const (
	ContactsIndexFile = "contacts-index.json"
	MeetingsIndexFile = "meetings-index.json"
	MetadataFile      = "metadata.json"
)

// MetadataSchemaVersion is written into metadata.json.
const MetadataSchemaVersion = 1

// ContactIndexEntry summarises one contact file.
type ContactIndexEntry struct {
	ID           string    `json:"id"`
	LastModified time.Time `json:"lastModified"`
}

// MeetingIndexEntry summarises one meetings file.
type MeetingIndexEntry struct {
	ContactID    string    `json:"contactId"`
	LastModified time.Time `json:"lastModified"`
}

// ContactsIndex is the on-disk form of contacts-index.json.
// It is a cache derived from the contacts folder and can be rebuilt at any time.
type ContactsIndex struct {
	Entries []ContactIndexEntry `json:"entries"`
}

// MeetingsIndex is the on-disk form of meetings-index.json.
type MeetingsIndex struct {
	Entries []MeetingIndexEntry `json:"entries"`
}

// Metadata is the on-disk form of metadata.json.
type Metadata struct {
	SchemaVersion int       `json:"schemaVersion"`
	Options       Options   `json:"options"`
	SavedAt       time.Time `json:"savedAt"`
}
