package domain

import "github.com/google/uuid"

// NewID generates a unique entity ID.
func NewID() string {
	return uuid.New().String()
}
