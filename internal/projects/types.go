package projects

import "time"

// Project is the canonical project entity.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AreaID    string    `json:"areaId,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	FolderID  string    `json:"folderId,omitempty"`
	Archived  bool      `json:"archived"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ProjectInput is the caller-supplied part of a project.
type ProjectInput struct {
	Name   string `json:"name"`
	AreaID string `json:"areaId,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Area groups projects, e.g. "Work" or "Home".
type Area struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// AreaInput is the caller-supplied part of an area.
type AreaInput struct {
	Name string `json:"name"`
}
