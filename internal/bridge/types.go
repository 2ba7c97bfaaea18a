package bridge

import "time"

// CalendarEvent is the calendar entry a task was synced to.
type CalendarEvent struct {
	ID     string    `json:"id"`
	TaskID string    `json:"taskId"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Conflict describes two overlapping calendar entries inside the requested
// window.
type Conflict struct {
	EventID      string    `json:"eventId"`
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	OverlapsWith string    `json:"overlapsWith"`
}
