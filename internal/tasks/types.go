package tasks

import "time"

// Task is the canonical task entity. Both backend transports deliver it in
// this shape; callers never see a transport envelope.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Notes       string    `json:"notes,omitempty"`
	ProjectID   string    `json:"projectId,omitempty"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	Due         time.Time `json:"due,omitempty"`
	Position    int       `json:"position"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// TaskInput is the caller-supplied part of a task for creates and updates.
type TaskInput struct {
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	Due       time.Time `json:"due,omitempty"`
}
