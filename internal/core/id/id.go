// Package id generates identifiers for rows, filters and requests.
// UUIDv7 is time-ordered, so identifiers created later sort later.
package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to V4 if V7 fails (should never happen)
		return uuid.New()
	}
	return id
}

// Token returns a short opaque token suitable for URL state, such as a filter id.
// It keeps the random tail of a UUIDv7 so two tokens minted in the same
// millisecond still differ.
func Token() string {
	u := New()
	return hex.EncodeToString(u[8:])
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
