package model

import "github.com/google/uuid"

// NewID returns a random client-side identifier. Collisions are improbable
// but not checked.
func NewID() string {
	return uuid.NewString()
}
