package pkguid

import "github.com/google/uuid"

// UUID generates time-ordered (v7) UUID strings, used for correlation ids.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string.
func (u *UUID) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RandomUUID generates random (v4) UUID strings backed by crypto/rand.
//
// Upload ids use it so that an id leaks nothing about when or where it was made.
type RandomUUID struct{}

// NewRandomUUID returns a v4 UUID generator.
func NewRandomUUID() *RandomUUID {
	return &RandomUUID{}
}

// Generate returns a new random UUID string.
func (RandomUUID) Generate() string {
	return uuid.NewString()
}
