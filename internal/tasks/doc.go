// Package tasks exposes the task operations of the access layer: list,
// get, create, update, delete, complete, and reorder.
//
// Every method validates its arguments before any network call, invokes the
// operation through the dual-backend invoker, and returns the canonical
// Task entity together with a Meta flag that marks degraded substitute
// data. Mutations served by the modern transport invalidate the "tasks"
// resource class in the server-side cache exactly once; invalidation
// failures are logged and swallowed.
package tasks
