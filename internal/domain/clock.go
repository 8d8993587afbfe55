package domain

import (
	"time"

	"github.com/google/uuid"
)

// Clock is the source of "now" for default timestamps and expiry comparisons.
// Injectable so services can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator produces collision-free event and session identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random UUIDv4 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.New().String() }
