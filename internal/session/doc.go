// Package session holds the authenticated user session and its persistence.
//
// A Session is created on sign-in, mutated in place when the access token is
// refreshed, and destroyed on logout. The persisted record is a single keyed
// entry in the user's cache directory; it is the sole source of truth across
// process restarts and the only place credentials are written or cleared.
package session
