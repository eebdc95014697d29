package domain

import "strings"

// FileRefKind classifies how a FileRef locates its bytes.
type FileRefKind string

const (
	// FileRefNone is an empty reference.
	FileRefNone FileRefKind = "none"
	// FileRefDrive points at a file in the remote store ("drive:<fileId>").
	FileRefDrive FileRefKind = "drive"
	// FileRefInline carries the data itself as a data: URL.
	FileRefInline FileRefKind = "inline"
	// FileRefPath is a local file path.
	FileRefPath FileRefKind = "path"
)

const driveRefPrefix = "drive:"

// FileRef references a photo, business card or attachment.
type FileRef string

// DriveRef builds a reference to a remote file ID.
func DriveRef(fileID string) FileRef {
	return FileRef(driveRefPrefix + fileID)
}

// Kind reports which form the reference takes.
func (r FileRef) Kind() FileRefKind {
	s := string(r)
	switch {
	case s == "":
		return FileRefNone
	case strings.HasPrefix(s, driveRefPrefix):
		return FileRefDrive
	case strings.HasPrefix(s, "data:"):
		return FileRefInline
	default:
		return FileRefPath
	}
}

// DriveFileID returns the remote file ID for drive references.
func (r FileRef) DriveFileID() (string, bool) {
	if r.Kind() != FileRefDrive {
		return "", false
	}
	return strings.TrimPrefix(string(r), driveRefPrefix), true
}

// Attachment is a named file reference on a contact or meeting.
type Attachment struct {
	Name string  `json:"name"`
	Ref  FileRef `json:"ref"`
}
