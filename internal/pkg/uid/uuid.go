package uid

import "github.com/google/uuid"

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}

// UUID generates RFC 9562 UUID strings, preferring time-ordered v7.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
