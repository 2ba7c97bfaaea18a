package session

import (
	"time"
)

// Session represents the authenticated user session.
// Invariant: AccessToken is never empty while IsAuthenticated returns true.
type Session struct {
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	AccessToken   string    `json:"accessToken"`
	RefreshToken  string    `json:"refreshToken,omitempty"`
	TokenIssuedAt time.Time `json:"tokenIssuedAt"`
	ExpiresIn     int64     `json:"expiresInSeconds"`
}

// IsAuthenticated reports whether the session carries an access token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AccessToken != ""
}

// Age returns how long ago the current access token was issued.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.TokenIssuedAt)
}

// ApplyTokens replaces the access credential after a successful refresh.
// The old refresh token is kept unless the server returned a new one.
func (s *Session) ApplyTokens(accessToken, refreshToken string, expiresIn int64, issuedAt time.Time) {
	s.AccessToken = accessToken
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}
	if expiresIn > 0 {
		s.ExpiresIn = expiresIn
	}
	s.TokenIssuedAt = issuedAt
}
