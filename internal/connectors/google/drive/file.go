package drive

import (
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

// MimeTypeFolder is the MIME type Drive uses for folders.
const MimeTypeFolder = "application/vnd.google-apps.folder"

// rootParent is the alias Drive accepts for the user's My Drive root.
const rootParent = "root"

// fileFields are the file properties requested on every call.
const fileFields = "id, name, mimeType, parents, size, modifiedTime, createdTime"

// listFields adds paging to fileFields for files.list.
const listFields = "nextPageToken, files(" + fileFields + ")"

// escapeQuery escapes a value for a single-quoted Drive query literal.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// parentOrRoot maps the store root ("") to Drive's root alias.
func parentOrRoot(parentID string) string {
	if parentID == "" {
		return rootParent
	}
	return parentID
}

// childQuery matches non-trashed children of parentID. An empty name
// matches any name; folders selects folders or non-folders.
func childQuery(parentID, name string, folders bool) string {
	var b strings.Builder
	if name != "" {
		b.WriteString("name = '")
		b.WriteString(escapeQuery(name))
		b.WriteString("' and ")
	}
	b.WriteString("'")
	b.WriteString(escapeQuery(parentOrRoot(parentID)))
	b.WriteString("' in parents and trashed = false and mimeType ")
	if folders {
		b.WriteString("= '")
	} else {
		b.WriteString("!= '")
	}
	b.WriteString(MimeTypeFolder)
	b.WriteString("'")
	return b.String()
}

// toRemoteObject converts a Drive file to the store's metadata type.
func toRemoteObject(f *drive.File) domain.RemoteObject {
	obj := domain.RemoteObject{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		IsFolder: f.MimeType == MimeTypeFolder,
		Size:     f.Size,
	}
	if len(f.Parents) > 0 {
		obj.ParentID = f.Parents[0]
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			obj.ModifiedTime = t.UTC()
		}
	}
	return obj
}
