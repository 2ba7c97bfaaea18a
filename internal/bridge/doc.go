// Package bridge connects the task manager to the user's mailbox and
// calendar: converting a mail message into a task, mirroring a task into
// the calendar, and listing overlapping calendar entries. The analysis and
// calendar writes happen on the backend; this service only invokes them.
package bridge
