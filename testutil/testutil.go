// Package testutil provides utilities for testing the storage engine.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/tiervault"
	"github.com/randalmurphal/tiervault/keyring"
)

// TestContext returns a context that is canceled when the test ends.
func TestContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}

// Clock is a settable time source for deterministic aging tests.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock creates a clock frozen at the given time.
func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

// Now returns the current clock time. Pass this method as a store or
// engine Now option.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Set jumps the clock to a specific time.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// NewStore creates an encrypted store in a temp directory with a fresh
// keyring, returning the store and its clock.
func NewStore(t *testing.T) (*tiervault.Store, *Clock) {
	t.Helper()

	dir := t.TempDir()
	ring, err := keyring.Open(filepath.Join(dir, "keys.log"))
	if err != nil {
		t.Fatalf("open keyring: %v", err)
	}

	clock := NewClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	store, err := tiervault.NewStore(tiervault.StoreConfig{
		BaseDir:           dir,
		Keyring:           ring,
		EncryptionEnabled: true,
		Now:               clock.Now,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, clock
}
