package domain

import "time"

// CsrfToken is the server-side half of the double-submit pair. The raw value
// lives only in the caller's cookie; we keep its fingerprint. SubjectID is
// empty for tokens issued before authentication.
type CsrfToken struct {
	TokenHash string
	SubjectID string
	CreatedAt time.Time
	ExpiresAt time.Time
}
