package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock makes window arithmetic deterministic in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestClient(t *testing.T) (*sqliteClient, *fakeClock) {
	t.Helper()

	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db", nil)
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	clock := newFakeClock()
	client.now = clock.Now
	return client, clock
}
