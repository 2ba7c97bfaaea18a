package drive

import "time"

// FolderKind and DocumentKind classify drive entries.
const (
	FolderKind   = "folder"
	DocumentKind = "document"
)

// FileInfo is the canonical metadata of a file or folder in the document
// store attached to a project.
type FileInfo struct {
	// ID is the unique identifier of the file.
	ID string `json:"id"`

	// Name is the display name of the file.
	Name string `json:"name"`

	// Kind is FolderKind or DocumentKind.
	Kind string `json:"kind"`

	// ParentID is the containing folder, empty at the root.
	ParentID string `json:"parentId,omitempty"`

	// ProjectID links the entry to the project it belongs to.
	ProjectID string `json:"projectId,omitempty"`

	// WebViewLink opens the file in the provider's viewer.
	WebViewLink string `json:"webViewLink,omitempty"`

	CreatedAt  time.Time `json:"createdAt,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt,omitempty"`

	// Trashed marks entries in the provider's trash.
	Trashed bool `json:"trashed"`
}

// DocumentRequest asks the backend to generate a document from a named
// template into a project's folder. Generation logic lives entirely on the
// backend; the client only triggers it.
type DocumentRequest struct {
	ProjectID string `json:"projectId"`
	Template  string `json:"template"`
	Title     string `json:"title"`
}
