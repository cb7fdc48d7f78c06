package billingclock

import (
	"errors"
	"sync"
	"time"
)

// Clock reports the current instant and the reference-timezone calendar date.
// Implementations must be safe for concurrent use.
type Clock interface {
	Now() time.Time
	Today() Date
	Location() *time.Location
}

type wallClock struct {
	loc *time.Location
}

// New returns a Clock backed by time.Now in the given reference timezone.
// A nil location means UTC.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return wallClock{loc: loc}
}

// NewInZone resolves an IANA timezone name and returns a wall Clock for it.
func NewInZone(name string) (Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Join(ErrInvalidLocation, err)
	}
	return New(loc), nil
}

func (c wallClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c wallClock) Today() Date              { return DateOf(time.Now(), c.loc) }
func (c wallClock) Location() *time.Location { return c.loc }

// Manual is a Clock whose time only moves when told to.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
	loc *time.Location
}

// NewManual returns a Manual clock pinned at t in the given reference
// timezone. A nil location means UTC.
func NewManual(t time.Time, loc *time.Location) *Manual {
	if loc == nil {
		loc = time.UTC
	}
	return &Manual{now: t, loc: loc}
}

// Now returns the frozen instant in the clock location.
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now.In(m.loc)
}

// Today returns the calendar date of Now.
func (m *Manual) Today() Date {
	return DateOf(m.Now(), m.loc)
}

// Location returns the reference timezone.
func (m *Manual) Location() *time.Location {
	return m.loc
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
