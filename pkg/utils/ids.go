// Package utils holds small helpers shared by services and commands:
// delivery IDs, fee calculation and ETA rounding.
package utils

import "github.com/google/uuid"

// GenerateID returns a random (v4) UUID string. Delivery IDs appear in URLs
// and lock keys, so they must be unique without coordination between
// instances.
func GenerateID() string {
	return uuid.NewString()
}
