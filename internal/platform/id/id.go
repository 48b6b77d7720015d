package id

import "github.com/google/uuid"

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

type UUID struct{}

func (UUID) New() string {
	return uuid.NewString()
}

// Short returns the first eight characters of a fresh UUID, for request ids.
func Short() string {
	return uuid.NewString()[:8]
}
