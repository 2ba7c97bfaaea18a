package auth

import "errors"

var (
	// ErrNotSignedIn is returned when an operation requires a session and
	// none is persisted.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrNoRefreshToken is returned when a refresh is requested but the
	// session carries no refresh credential. No network call is made.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRefreshRejected is returned when the refresh endpoint rejected the
	// refresh credential. The session is terminally dead afterwards.
	ErrRefreshRejected = errors.New("refresh token rejected")

	// ErrLoggedOut is returned by operations on a manager whose session has
	// been terminated.
	ErrLoggedOut = errors.New("session logged out")
)
