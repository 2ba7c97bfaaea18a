// Package optimistic reconciles UI state that was updated ahead of server
// confirmation.
//
// The Coordinator snapshots an entity, applies the proposed value to the
// local store immediately, and dispatches the confirming network call in
// the background. Success discards the snapshot and adopts the
// authoritative server value; failure restores the snapshot exactly.
// Operations on one entity run strictly in issue order, and a later
// mutation supersedes an earlier unsettled one: the earlier response loses
// the right to write back, so a stale reply can never clobber newer local
// state. Entities created optimistically carry a temporary id until the
// server assigns a real one; dependent actions issued against a temporary
// id fail with ErrStillCreating instead of operating on a nonexistent
// entity.
package optimistic
