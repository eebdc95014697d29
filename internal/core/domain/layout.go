package domain

import (
	"strings"
	"time"
)

// Folder names under the root folder.
const (
	FolderIndex       = "index"
	FolderContacts    = "contacts"
	FolderMeetings    = "meetings"
	FolderAttachments = "attachments"
)

// JSONMimeType is the content type of every entity and index file.
const JSONMimeType = "application/json"

const (
	contactFilePrefix  = "contact-"
	jsonSuffix         = ".json"
	meetingsFileSuffix = "-meetings.json"
	unnamedFolder      = "unnamed"
	forbiddenNameRunes = `/\:*?"<>|`
)

// FolderStructure holds the remote IDs of the fixed folder layout.
type FolderStructure struct {
	Root                string `json:"root"`
	Index               string `json:"index"`
	Contacts            string `json:"contacts"`
	Meetings            string `json:"meetings"`
	Attachments         string `json:"attachments"`
	AttachmentsContacts string `json:"attachmentsContacts"`
	AttachmentsMeetings string `json:"attachmentsMeetings"`
}

// RemoteObject is a file or folder in the object store.
type RemoteObject struct {
	ID           string
	Name         string
	MimeType     string
	ParentID     string
	IsFolder     bool
	Size         int64
	ModifiedTime time.Time
}

// ContactFileName returns the filename of a contact's JSON file.
func ContactFileName(id string) string {
	return contactFilePrefix + id + jsonSuffix
}

// MeetingsFileName returns the filename of a contact's meetings file.
func MeetingsFileName(contactID string) string {
	return contactFilePrefix + contactID + meetingsFileSuffix
}

// ParseContactFileName extracts the contact ID from a contact filename.
// Only files in the contacts folder are passed here, so an ID may itself
// end in "-meetings".
func ParseContactFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, contactFilePrefix) || !strings.HasSuffix(name, jsonSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, contactFilePrefix), jsonSuffix)
	if ValidateEntityID(id) != nil {
		return "", false
	}
	return id, true
}

// ParseMeetingsFileName extracts the contact ID from a meetings filename.
func ParseMeetingsFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, contactFilePrefix) || !strings.HasSuffix(name, meetingsFileSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, contactFilePrefix), meetingsFileSuffix)
	if ValidateEntityID(id) != nil {
		return "", false
	}
	return id, true
}

// SanitizeFolderName makes a display name usable as a folder name.
func SanitizeFolderName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(forbiddenNameRunes, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return unnamedFolder
	}
	return out
}
