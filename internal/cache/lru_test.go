package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now the oldest
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("a: got %q ok=%v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.advance(30 * time.Second)
	c.Set("b", "refreshed")
	clock.advance(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "refreshed" {
		t.Fatalf("b: got %q ok=%v", v, ok)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("hits=%d misses=%d", hits, misses)
	}
}

func TestCleanExpiredAndManagerSweep(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, k)
	}
	clock.advance(2 * time.Minute)
	c.Set("d", "d")

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 3 {
		t.Fatalf("sweep removed %d, want 3", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager(nil)
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(3, time.Hour)
	c.Set("a", "1")
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}
