// Package cache holds live onboarding sessions in memory
package cache

import (
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/yojana/internal/flow"
)

// Store defines the interface for session storage
type Store interface {
	Get(id string) (*flow.Controller, bool)
	Put(id string, c *flow.Controller)
	Delete(id string) bool
	Len() int
	Close()
}

// DefaultTTL is how long an idle session is kept
const DefaultTTL = 30 * time.Minute

// NewSessionID generates a random session identifier
func NewSessionID() string {
	return uuid.NewString()
}
