// Package auth owns the access-token lifecycle.
//
// The Manager tracks the session state machine (Valid -> Expired ->
// Refreshing -> Valid or LoggedOut), detects expiry, refreshes the access
// token against the backend's refresh endpoint and notifies logout listeners
// when the session is terminally dead. Concurrent refresh requests are
// collapsed into a single network call; every waiter observes the same
// outcome.
//
// The Manager is constructor-injected everywhere it is used. There is no
// process-wide instance, so tests can run isolated managers side by side.
package auth
