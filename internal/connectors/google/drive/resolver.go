package drive

import "github.com/custodia-labs/rolodex/internal/core/domain"

// ResolveWebURL converts a drive file reference to a browser URL.
// Other reference kinds have no web URL and return "".
func ResolveWebURL(ref domain.FileRef) string {
	id, ok := ref.DriveFileID()
	if !ok || id == "" {
		return ""
	}
	return "https://drive.google.com/file/d/" + id + "/view"
}
