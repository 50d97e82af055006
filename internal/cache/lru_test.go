package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(opts Options[string]) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache(opts)
	c.now = clock.now
	return c, clock
}

func TestLRUEvictsOldest(t *testing.T) {
	var evicted []string
	c, _ := newTestCache(Options[string]{MaxSize: 2, TTL: time.Minute, OnEvict: func(k, _ string) {
		evicted = append(evicted, k)
	}})

	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should be present")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted as least recently used")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestCache(Options[string]{MaxSize: 10, TTL: time.Minute})
	c.Set("a", "1")

	clock.t = clock.t.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a expired too early")
	}
	clock.t = clock.t.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should have expired without sliding")
	}
}

func TestLRUSlidingExpiry(t *testing.T) {
	c, clock := newTestCache(Options[string]{MaxSize: 10, TTL: time.Minute, Sliding: true})
	c.Set("a", "1")

	for i := 0; i < 5; i++ {
		clock.t = clock.t.Add(50 * time.Second)
		if _, ok := c.Get("a"); !ok {
			t.Fatalf("sliding entry expired at step %d", i)
		}
	}
	clock.t = clock.t.Add(61 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("idle entry should expire")
	}
}

func TestLRUCleanExpiredAndDelete(t *testing.T) {
	var evicted int
	c, clock := newTestCache(Options[string]{MaxSize: 10, TTL: time.Minute, OnEvict: func(string, string) { evicted++ }})
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("keep", "3")

	if !c.Delete("keep") {
		t.Fatalf("Delete should report a live entry")
	}
	if c.Delete("keep") {
		t.Fatalf("second Delete should report nothing removed")
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
	if evicted != 2 {
		t.Fatalf("OnEvict calls = %d, want 2 (Delete must not notify)", evicted)
	}
}

func TestManagerCleanNow(t *testing.T) {
	c, clock := newTestCache(Options[string]{MaxSize: 10, TTL: time.Second})
	c.Set("a", "1")
	clock.t = clock.t.Add(time.Minute)

	m := NewManager(nil)
	m.Register("sessions", c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d, want 1", n)
	}
	m.Stop()
	m.Stop()
}
